// Package agent hosts the supplier-performance chat agent behind the
// AgentCore runtime HTTP contract.
package agent

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/spasystems/spa-multiagent/mcpgw"
)

// Config is read from the environment variables the deployer sets on the
// agent runtime.
type Config struct {
	Region             string `envconfig:"AWS_REGION" default:"us-east-1"`
	ModelID            string `envconfig:"MODEL_ID" default:"us.anthropic.claude-sonnet-4-20250514-v1:0"`
	NovaModelID        string `envconfig:"NOVA_MODEL_ID" default:"amazon.nova-micro-v1:0"`
	S3OutputBucket     string `envconfig:"S3_OUTPUT_BUCKET" required:"true"`
	AthenaDatabase     string `envconfig:"ATHENA_DATABASE" default:"sapdatadb"`
	ComplianceDatabase string `envconfig:"COMPLIANCE_DATABASE" default:"compdatadb"`
	KnowledgeBaseID    string `envconfig:"KNOWLEDGE_BASE_ID"`
	SAPURL             string `envconfig:"SAP_URL"`
	SecretName         string `envconfig:"SECRET_NAME"`
	Environment        string `envconfig:"ENVIRONMENT" default:"dev"`

	MemoryID           string `envconfig:"SPA_MEMORY_ID"`
	MemoryName         string `envconfig:"SPA_MEMORY_NAME"`
	MemoryContextTurns int    `envconfig:"MEMORY_CONTEXT_TURNS" default:"10"`

	InterpreterBucket string `envconfig:"CODE_INTERPRETER_BUCKET"`

	GatewayURL          string `envconfig:"GATEWAY_URL"`
	GatewayClientID     string `envconfig:"GATEWAY_COGNITO_CLIENT_ID"`
	GatewayClientSecret string `envconfig:"GATEWAY_COGNITO_CLIENT_SECRET"`
	GatewayTokenURL     string `envconfig:"GATEWAY_TOKEN_URL"`

	ListenAddr string `envconfig:"LISTEN_ADDR" default:":8080"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using process environment")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GatewayConfig maps the gateway-related fields onto the MCP client config.
func (c Config) GatewayConfig() mcpgw.Config {
	return mcpgw.Config{
		GatewayURL:   c.GatewayURL,
		ClientID:     c.GatewayClientID,
		ClientSecret: c.GatewayClientSecret,
		TokenURL:     c.GatewayTokenURL,
	}
}
