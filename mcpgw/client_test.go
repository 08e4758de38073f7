package mcpgw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigEnabled(t *testing.T) {
	cfg := Config{
		GatewayURL:   "https://gw.example.com/mcp",
		ClientID:     "id",
		ClientSecret: "secret",
		TokenURL:     "https://auth.example.com/oauth2/token",
	}
	assert.True(t, cfg.Enabled())

	cfg.ClientSecret = ""
	assert.False(t, cfg.Enabled())
	assert.False(t, Config{}.Enabled())
}

func TestTokenSourceUsesClientCredentials(t *testing.T) {
	var gotGrant, gotClient string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotGrant = r.FormValue("grant_type")
		gotClient, _, _ = r.BasicAuth()
		if gotClient == "" {
			gotClient = r.FormValue("client_id")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":3600}`))
	}))
	defer server.Close()

	c := NewClient(Config{
		GatewayURL:   "https://gw.example.com/mcp",
		ClientID:     "cognito-client",
		ClientSecret: "cognito-secret",
		TokenURL:     server.URL + "/oauth2/token",
	})

	token, err := c.tokens.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token.AccessToken)
	assert.Equal(t, "client_credentials", gotGrant)
	assert.Equal(t, "cognito-client", gotClient)
}

func TestCallToolRequiresConnect(t *testing.T) {
	c := NewClient(Config{GatewayURL: "https://gw.example.com/mcp"})
	_, err := c.CallTool(context.Background(), "create_rfq", nil)
	assert.Error(t, err)
}

func TestResultText(t *testing.T) {
	result := &mcp.CallToolResult{Content: []mcp.Content{
		mcp.TextContent{Type: "text", Text: "RFQ 4500001 created"},
		mcp.TextContent{Type: "text", Text: "status: OPEN"},
	}}
	assert.Equal(t, "RFQ 4500001 created\nstatus: OPEN", resultText(result))
}
