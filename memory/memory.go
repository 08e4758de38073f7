// Package memory persists conversation turns in AgentCore memory and loads
// recent history back into the model context.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcore"
	datatypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentcore/types"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol"
	controltypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol/types"
	"github.com/rs/zerolog/log"
)

// DefaultContextTurns is how many past turns are replayed into the prompt.
const DefaultContextTurns = 10

// DataAPI is the AgentCore data-plane subset for events.
type DataAPI interface {
	CreateEvent(ctx context.Context, params *bedrockagentcore.CreateEventInput, optFns ...func(*bedrockagentcore.Options)) (*bedrockagentcore.CreateEventOutput, error)
	ListEvents(ctx context.Context, params *bedrockagentcore.ListEventsInput, optFns ...func(*bedrockagentcore.Options)) (*bedrockagentcore.ListEventsOutput, error)
}

// ControlAPI is the control-plane subset used to verify the memory resource.
type ControlAPI interface {
	GetMemory(ctx context.Context, params *bedrockagentcorecontrol.GetMemoryInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.GetMemoryOutput, error)
	ListMemories(ctx context.Context, params *bedrockagentcorecontrol.ListMemoriesInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.ListMemoriesOutput, error)
}

// Turn is one user/assistant exchange.
type Turn struct {
	Role string
	Text string
}

// Store reads and writes conversation events for one memory resource.
type Store struct {
	data     DataAPI
	memoryID string
	turns    int
}

// NewStore wires a store against an already-resolved memory id.
func NewStore(data DataAPI, memoryID string, turns int) *Store {
	if turns <= 0 {
		turns = DefaultContextTurns
	}
	return &Store{data: data, memoryID: memoryID, turns: turns}
}

// Resolve checks that memoryID still points at an active memory. When the id
// is stale (a redeploy replaced the resource) it falls back to finding the
// memory whose name matches memoryName.
func Resolve(ctx context.Context, control ControlAPI, memoryID, memoryName string) (string, error) {
	if memoryID != "" {
		out, err := control.GetMemory(ctx, &bedrockagentcorecontrol.GetMemoryInput{MemoryId: aws.String(memoryID)})
		if err == nil && out.Memory.Status == controltypes.MemoryStatusActive {
			return memoryID, nil
		}
		log.Warn().Str("memory_id", memoryID).Err(err).Msg("configured memory id not usable, resolving by name")
	}

	if memoryName == "" {
		return "", fmt.Errorf("no usable memory id and no memory name to resolve")
	}

	var nextToken *string
	for {
		page, err := control.ListMemories(ctx, &bedrockagentcorecontrol.ListMemoriesInput{NextToken: nextToken})
		if err != nil {
			return "", fmt.Errorf("listing memories: %w", err)
		}
		for _, summary := range page.Memories {
			got, err := control.GetMemory(ctx, &bedrockagentcorecontrol.GetMemoryInput{MemoryId: summary.Id})
			if err != nil {
				continue
			}
			if aws.ToString(got.Memory.Name) == memoryName && got.Memory.Status == controltypes.MemoryStatusActive {
				id := aws.ToString(got.Memory.Id)
				log.Info().Str("memory_id", id).Str("memory_name", memoryName).Msg("memory resolved by name")
				return id, nil
			}
		}
		if page.NextToken == nil {
			break
		}
		nextToken = page.NextToken
	}

	return "", fmt.Errorf("no active memory named %s", memoryName)
}

// LoadRecent returns up to the configured number of past turns for a
// session, oldest first.
func (s *Store) LoadRecent(ctx context.Context, actorID, sessionID string) ([]Turn, error) {
	out, err := s.data.ListEvents(ctx, &bedrockagentcore.ListEventsInput{
		MemoryId:        aws.String(s.memoryID),
		ActorId:         aws.String(actorID),
		SessionId:       aws.String(sessionID),
		MaxResults:      aws.Int32(int32(s.turns)),
		IncludePayloads: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("listing memory events: %w", err)
	}

	// ListEvents hands back newest first; walk backwards so the oldest
	// turn lands first while each event keeps its user/assistant order.
	var turns []Turn
	for i := len(out.Events) - 1; i >= 0; i-- {
		for _, payload := range out.Events[i].Payload {
			conv, ok := payload.(*datatypes.PayloadTypeMemberConversational)
			if !ok {
				continue
			}
			text, ok := conv.Value.Content.(*datatypes.ContentMemberText)
			if !ok {
				continue
			}
			turns = append(turns, Turn{Role: string(conv.Value.Role), Text: text.Value})
		}
	}
	return turns, nil
}

// AppendTurn records a user message and the assistant's reply as one event.
// Memory write failures must never break the chat, so they only log.
func (s *Store) AppendTurn(ctx context.Context, actorID, sessionID, userText, assistantText string) {
	_, err := s.data.CreateEvent(ctx, &bedrockagentcore.CreateEventInput{
		MemoryId:       aws.String(s.memoryID),
		ActorId:        aws.String(actorID),
		SessionId:      aws.String(sessionID),
		EventTimestamp: aws.Time(time.Now()),
		Payload: []datatypes.PayloadType{
			&datatypes.PayloadTypeMemberConversational{Value: datatypes.Conversational{
				Role:    datatypes.RoleUser,
				Content: &datatypes.ContentMemberText{Value: userText},
			}},
			&datatypes.PayloadTypeMemberConversational{Value: datatypes.Conversational{
				Role:    datatypes.RoleAssistant,
				Content: &datatypes.ContentMemberText{Value: assistantText},
			}},
		},
	})
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("saving conversation turn failed")
		return
	}
	log.Debug().Str("session_id", sessionID).Msg("conversation turn saved")
}
