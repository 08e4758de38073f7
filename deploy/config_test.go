package deploy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		S3OutputBucket:    "s3://athena-query-bucket-123456789012/",
		KnowledgeBaseID:   "KB123",
		SAPURL:            "https://sap.example.com",
		ContainerImage:    "123456789012.dkr.ecr.us-east-1.amazonaws.com/spa-agent:latest",
		CognitoUserPoolID: "us-east-1_abc123",
		CognitoClientID:   "client-1",
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "spa_multi_agent_system", cfg.AgentName)
	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, DefaultModelID, cfg.ModelID)
	assert.Equal(t, "sapdatadb", cfg.AthenaDatabase)
	assert.Equal(t, "compdatadb", cfg.ComplianceDatabase)
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	missing := cfg
	missing.CognitoClientID = ""
	assert.ErrorContains(t, missing.Validate(), "cognito client id")

	missing = cfg
	missing.S3OutputBucket = ""
	assert.ErrorContains(t, missing.Validate(), "s3 output bucket")
}

func TestDiscoveryURL(t *testing.T) {
	url := DiscoveryURL("us-east-1", "us-east-1_abc123")
	assert.Equal(t, "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_abc123/.well-known/openid-configuration", url)
}

func TestBucketFromURI(t *testing.T) {
	assert.Equal(t, "athena-query-bucket-1", BucketFromURI("s3://athena-query-bucket-1/"))
	assert.Equal(t, "plain-bucket", BucketFromURI("plain-bucket"))
}

func TestRuntimeEnvironment(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()
	cfg.Gateway = GatewayConfig{
		URL:      "https://gw.example.com/mcp",
		ClientID: "gw-client",
		TokenURL: "https://auth.example.com/oauth2/token",
	}

	env := RuntimeEnvironment(cfg, "mem-1", "SPA_MultiAgent_PROD_1", "spa-code-interpreter-123")

	assert.Equal(t, "mem-1", env["SPA_MEMORY_ID"])
	assert.Equal(t, "spa-code-interpreter-123", env["CODE_INTERPRETER_BUCKET"])
	assert.Equal(t, "https://gw.example.com/mcp", env["GATEWAY_URL"])
	assert.Equal(t, cfg.S3OutputBucket, env["S3_OUTPUT_BUCKET"])
	assert.Equal(t, "sapdatadb", env["ATHENA_DATABASE"])
}
