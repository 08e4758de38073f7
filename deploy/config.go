// Package deploy provisions the AWS resources for the SPA multi-agent
// system and launches the AgentCore runtime.
package deploy

import (
	"fmt"
	"strings"
)

// Defaults applied by Config.ApplyDefaults.
const (
	DefaultRegion             = "us-east-1"
	DefaultModelID            = "us.anthropic.claude-sonnet-4-20250514-v1:0"
	DefaultNovaModelID        = "amazon.nova-micro-v1:0"
	DefaultAthenaDatabase     = "sapdatadb"
	DefaultComplianceDatabase = "compdatadb"
	DefaultEnvironment        = "prod"
	DefaultAgentName          = "spa_multi_agent_system"
	DefaultSecretName         = "spa-sap-credentials-prod"
)

// GatewayConfig wires the agent to an MCP gateway for remote tools.
type GatewayConfig struct {
	// URL is the gateway MCP endpoint, e.g.
	// https://<id>.gateway.bedrock-agentcore.<region>.amazonaws.com/mcp
	URL string `json:"url,omitempty"`

	// ClientID and ClientSecret are the OAuth2 client-credentials pair for
	// the gateway's Cognito authorizer.
	ClientID     string `json:"client_id,omitempty"`
	ClientSecret string `json:"-"`

	// TokenURL is the Cognito OAuth2 token endpoint.
	TokenURL string `json:"token_url,omitempty"`
}

// Config describes one deployment of the SPA multi-agent system.
type Config struct {
	// Region is the AWS region to deploy into.
	Region string `json:"region"`

	// AgentName is the AgentCore runtime name.
	AgentName string `json:"agent_name"`

	// Environment is the deployment environment (dev/staging/prod).
	Environment string `json:"environment"`

	// ContainerImage is the ECR image URI for the agent runtime.
	ContainerImage string `json:"container_image"`

	// S3OutputBucket is the Athena query result location (s3:// URI).
	S3OutputBucket string `json:"s3_output_bucket"`

	// KnowledgeBaseID is the Bedrock Knowledge Base holding table schemas.
	KnowledgeBaseID string `json:"knowledge_base_id"`

	// SAPURL and SecretName locate the SAP system and its credentials.
	SAPURL     string `json:"sap_url"`
	SecretName string `json:"secret_name"`

	// ModelID is the primary conversation model; NovaModelID the light one.
	ModelID     string `json:"model_id"`
	NovaModelID string `json:"nova_model_id"`

	// AthenaDatabase and ComplianceDatabase are the Glue catalog databases.
	AthenaDatabase     string `json:"athena_database"`
	ComplianceDatabase string `json:"compliance_database"`

	// CognitoUserPoolID and CognitoClientID configure inbound JWT auth.
	CognitoUserPoolID string `json:"cognito_user_pool_id"`
	CognitoClientID   string `json:"cognito_client_id"`

	// Gateway carries optional MCP gateway wiring.
	Gateway GatewayConfig `json:"gateway"`

	// AutoUpdateOnConflict updates an existing runtime with the same name
	// instead of failing.
	AutoUpdateOnConflict bool `json:"auto_update_on_conflict"`
}

// ApplyDefaults fills in unset optional fields.
func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
	if c.AgentName == "" {
		c.AgentName = DefaultAgentName
	}
	if c.Environment == "" {
		c.Environment = DefaultEnvironment
	}
	if c.ModelID == "" {
		c.ModelID = DefaultModelID
	}
	if c.NovaModelID == "" {
		c.NovaModelID = DefaultNovaModelID
	}
	if c.AthenaDatabase == "" {
		c.AthenaDatabase = DefaultAthenaDatabase
	}
	if c.ComplianceDatabase == "" {
		c.ComplianceDatabase = DefaultComplianceDatabase
	}
	if c.SecretName == "" {
		c.SecretName = DefaultSecretName
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	switch {
	case c.S3OutputBucket == "":
		return fmt.Errorf("s3 output bucket is required")
	case c.KnowledgeBaseID == "":
		return fmt.Errorf("knowledge base id is required")
	case c.SAPURL == "":
		return fmt.Errorf("sap url is required")
	case c.ContainerImage == "":
		return fmt.Errorf("container image is required")
	case c.CognitoUserPoolID == "":
		return fmt.Errorf("cognito user pool id is required")
	case c.CognitoClientID == "":
		return fmt.Errorf("cognito client id is required")
	}
	return nil
}

// DiscoveryURL returns the OIDC discovery document URL for a Cognito user
// pool, used by AgentCore's customJWTAuthorizer.
func DiscoveryURL(region, userPoolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s/.well-known/openid-configuration", region, userPoolID)
}

// BucketFromURI strips the s3:// scheme and any trailing slash from a bucket
// URI. Plain bucket names pass through unchanged.
func BucketFromURI(uri string) string {
	return strings.TrimRight(strings.TrimPrefix(uri, "s3://"), "/")
}

// InterpreterBucketName returns the per-account code interpreter bucket.
func InterpreterBucketName(accountID string) string {
	return "spa-code-interpreter-" + accountID
}
