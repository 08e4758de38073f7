package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog/log"

	"github.com/spasystems/spa-multiagent/memory"
	"github.com/spasystems/spa-multiagent/tools"
)

const (
	modelTemperature = 0.1

	// maxToolRounds caps how many tool_use cycles one request may take.
	maxToolRounds = 10
)

// ModelAPI is the Converse subset of the Bedrock runtime client.
type ModelAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// GatewayClient provides the remote tools served by the MCP gateway.
type GatewayClient interface {
	Tools() []mcp.Tool
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// EmitFunc receives streamed events as the response is produced.
type EmitFunc func(Event)

// Engine drives the model's tool loop for one deployment.
type Engine struct {
	model    ModelAPI
	modelID  string
	registry *tools.Registry
	gateway  GatewayClient // nil when no gateway is configured
	store    *memory.Store // nil when memory setup failed
}

func NewEngine(model ModelAPI, modelID string, registry *tools.Registry, gateway GatewayClient, store *memory.Store) *Engine {
	return &Engine{
		model:    model,
		modelID:  modelID,
		registry: registry,
		gateway:  gateway,
		store:    store,
	}
}

// Respond answers one prompt, streaming chunk and tool events through emit
// and finishing with a complete (or error) event.
func (e *Engine) Respond(ctx context.Context, userID, prompt string, emit EmitFunc) {
	if prompt == "" {
		emit(errorEvent("Error: No prompt provided in request."))
		return
	}
	if userID == "" {
		userID = "default-user"
	}
	sessionID := "spa-persistent-" + userID
	actorID := "spa-actor-" + userID

	log.Info().Str("session_id", sessionID).Msg("processing request")

	messages := e.loadHistory(ctx, actorID, sessionID)
	messages = append(messages, brtypes.Message{
		Role:    brtypes.ConversationRoleUser,
		Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: prompt}},
	})

	var response strings.Builder

	for round := 0; round < maxToolRounds; round++ {
		out, err := e.model.Converse(ctx, &bedrockruntime.ConverseInput{
			ModelId:  aws.String(e.modelID),
			Messages: messages,
			System:   []brtypes.SystemContentBlock{&brtypes.SystemContentBlockMemberText{Value: systemPrompt}},
			InferenceConfig: &brtypes.InferenceConfiguration{
				Temperature: aws.Float32(modelTemperature),
			},
			ToolConfig: e.toolConfig(),
		})
		if err != nil {
			log.Error().Err(err).Msg("converse call failed")
			emit(errorEvent(fmt.Sprintf("Error processing request: %v", err)))
			return
		}

		assistantMsg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
		if !ok {
			emit(errorEvent("Error processing request: empty model output"))
			return
		}
		messages = append(messages, assistantMsg.Value)

		var toolUses []brtypes.ToolUseBlock
		for _, block := range assistantMsg.Value.Content {
			switch b := block.(type) {
			case *brtypes.ContentBlockMemberText:
				response.WriteString(b.Value)
				emit(chunkEvent(b.Value))
			case *brtypes.ContentBlockMemberToolUse:
				toolUses = append(toolUses, b.Value)
			}
		}

		if out.StopReason != brtypes.StopReasonToolUse || len(toolUses) == 0 {
			break
		}

		var results []brtypes.ContentBlock
		for _, use := range toolUses {
			emit(toolEvent(aws.ToString(use.Name)))
			results = append(results, e.runTool(ctx, use))
		}
		messages = append(messages, brtypes.Message{
			Role:    brtypes.ConversationRoleUser,
			Content: results,
		})
	}

	full := response.String()
	emit(completeEvent(full))

	if e.store != nil {
		e.store.AppendTurn(ctx, actorID, sessionID, prompt, full)
	}
}

// loadHistory replays recent memory turns as conversation messages.
func (e *Engine) loadHistory(ctx context.Context, actorID, sessionID string) []brtypes.Message {
	if e.store == nil {
		return nil
	}

	turns, err := e.store.LoadRecent(ctx, actorID, sessionID)
	if err != nil {
		log.Warn().Err(err).Msg("loading conversation history failed")
		return nil
	}

	messages := make([]brtypes.Message, 0, len(turns))
	for _, turn := range turns {
		role := brtypes.ConversationRoleUser
		if strings.EqualFold(turn.Role, "assistant") {
			role = brtypes.ConversationRoleAssistant
		}
		messages = append(messages, brtypes.Message{
			Role:    role,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: turn.Text}},
		})
	}
	return messages
}

// runTool dispatches one tool_use block to a local or gateway tool. Failures
// go back to the model as text so it can recover in conversation.
func (e *Engine) runTool(ctx context.Context, use brtypes.ToolUseBlock) brtypes.ContentBlock {
	name := aws.ToString(use.Name)

	var args map[string]any
	if use.Input != nil {
		if err := use.Input.UnmarshalSmithyDocument(&args); err != nil {
			log.Warn().Err(err).Str("tool", name).Msg("decoding tool input failed")
		}
	}

	var output string
	switch {
	case e.registry.Get(name) != nil:
		output = e.registry.Get(name).Invoke(ctx, args)
	case e.gateway != nil:
		result, err := e.gateway.CallTool(ctx, name, args)
		if err != nil {
			log.Error().Err(err).Str("tool", name).Msg("gateway tool call failed")
			output = fmt.Sprintf("Error: %v", err)
		} else {
			output = result
		}
	default:
		output = fmt.Sprintf("Error: unknown tool %s", name)
	}

	return &brtypes.ContentBlockMemberToolResult{
		Value: brtypes.ToolResultBlock{
			ToolUseId: use.ToolUseId,
			Content: []brtypes.ToolResultContentBlock{
				&brtypes.ToolResultContentBlockMemberText{Value: output},
			},
		},
	}
}

// toolConfig advertises local tools first, then whatever the gateway serves.
func (e *Engine) toolConfig() *brtypes.ToolConfiguration {
	var specs []brtypes.Tool
	for _, t := range e.registry.All() {
		specs = append(specs, &brtypes.ToolMemberToolSpec{
			Value: brtypes.ToolSpecification{
				Name:        aws.String(t.Name()),
				Description: aws.String(t.Description()),
				InputSchema: &brtypes.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(t.InputSchema()),
				},
			},
		})
	}
	if e.gateway != nil {
		for _, t := range e.gateway.Tools() {
			specs = append(specs, &brtypes.ToolMemberToolSpec{
				Value: brtypes.ToolSpecification{
					Name:        aws.String(t.Name),
					Description: aws.String(t.Description),
					InputSchema: &brtypes.ToolInputSchemaMemberJson{
						Value: document.NewLazyDocument(mcpSchema(t)),
					},
				},
			})
		}
	}
	if len(specs) == 0 {
		return nil
	}
	return &brtypes.ToolConfiguration{Tools: specs}
}

func mcpSchema(t mcp.Tool) map[string]any {
	schema := map[string]any{"type": "object"}
	if t.InputSchema.Properties != nil {
		schema["properties"] = t.InputSchema.Properties
	}
	if len(t.InputSchema.Required) > 0 {
		schema["required"] = t.InputSchema.Required
	}
	return schema
}
