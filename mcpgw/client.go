// Package mcpgw connects the agent to the AgentCore MCP gateway using
// Cognito client-credentials tokens.
package mcpgw

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Config carries the gateway coordinates and the Cognito app client used to
// mint machine-to-machine tokens.
type Config struct {
	GatewayURL   string
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// Enabled reports whether enough configuration is present to reach a
// gateway at all.
func (c Config) Enabled() bool {
	return c.GatewayURL != "" && c.ClientID != "" && c.ClientSecret != "" && c.TokenURL != ""
}

// Client is an MCP client for one gateway. Connect must be called before
// Tools or CallTool.
type Client struct {
	cfg    Config
	tokens oauth2.TokenSource

	mcp   *client.Client
	tools []mcp.Tool
}

// NewClient builds the client without touching the network.
func NewClient(cfg Config) *Client {
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}
	return &Client{
		cfg:    cfg,
		tokens: creds.TokenSource(context.Background()),
	}
}

// Connect fetches a token, opens the streamable-HTTP session and caches the
// gateway's tool list.
func (c *Client) Connect(ctx context.Context) error {
	token, err := c.tokens.Token()
	if err != nil {
		return fmt.Errorf("fetching gateway token: %w", err)
	}

	httpTransport, err := transport.NewStreamableHTTP(c.cfg.GatewayURL,
		transport.WithHTTPHeaders(map[string]string{
			"Authorization": "Bearer " + token.AccessToken,
		}))
	if err != nil {
		return fmt.Errorf("building gateway transport: %w", err)
	}

	mcpClient := client.NewClient(httpTransport)
	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("starting gateway session: %w", err)
	}

	initReq := mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo: mcp.Implementation{
				Name:    "spa-multiagent",
				Version: "1.0.0",
			},
		},
	}
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return fmt.Errorf("initializing gateway session: %w", err)
	}

	c.mcp = mcpClient
	if err := c.refreshTools(ctx); err != nil {
		mcpClient.Close()
		c.mcp = nil
		return err
	}

	log.Info().Str("gateway_url", c.cfg.GatewayURL).Int("tools", len(c.tools)).Msg("connected to MCP gateway")
	return nil
}

func (c *Client) refreshTools(ctx context.Context) error {
	var (
		tools  []mcp.Tool
		cursor mcp.Cursor
	)
	for {
		req := mcp.ListToolsRequest{}
		req.Params.Cursor = cursor
		page, err := c.mcp.ListTools(ctx, req)
		if err != nil {
			return fmt.Errorf("listing gateway tools: %w", err)
		}
		tools = append(tools, page.Tools...)
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	c.tools = tools
	return nil
}

// Tools returns the cached tool list.
func (c *Client) Tools() []mcp.Tool {
	return c.tools
}

// CallTool invokes a gateway tool and returns its text output.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if c.mcp == nil {
		return "", fmt.Errorf("gateway not connected")
	}

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}

	result, err := c.mcp.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("calling gateway tool %s: %w", name, err)
	}

	text := resultText(result)
	if result.IsError {
		return "", fmt.Errorf("gateway tool %s failed: %s", name, text)
	}
	return text, nil
}

// Close tears the session down.
func (c *Client) Close() error {
	if c.mcp == nil {
		return nil
	}
	return c.mcp.Close()
}

func resultText(result *mcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if text, ok := content.(mcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}
