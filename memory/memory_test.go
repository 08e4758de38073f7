package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcore"
	datatypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentcore/types"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol"
	controltypes "github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeData struct {
	events    []datatypes.Event
	created   *bedrockagentcore.CreateEventInput
	createErr error
}

func (f *fakeData) CreateEvent(_ context.Context, params *bedrockagentcore.CreateEventInput, _ ...func(*bedrockagentcore.Options)) (*bedrockagentcore.CreateEventOutput, error) {
	f.created = params
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &bedrockagentcore.CreateEventOutput{}, nil
}

func (f *fakeData) ListEvents(_ context.Context, _ *bedrockagentcore.ListEventsInput, _ ...func(*bedrockagentcore.Options)) (*bedrockagentcore.ListEventsOutput, error) {
	return &bedrockagentcore.ListEventsOutput{Events: f.events}, nil
}

type fakeControl struct {
	memories map[string]controltypes.Memory
}

func (f *fakeControl) GetMemory(_ context.Context, params *bedrockagentcorecontrol.GetMemoryInput, _ ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.GetMemoryOutput, error) {
	mem, ok := f.memories[aws.ToString(params.MemoryId)]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &bedrockagentcorecontrol.GetMemoryOutput{Memory: &mem}, nil
}

func (f *fakeControl) ListMemories(_ context.Context, _ *bedrockagentcorecontrol.ListMemoriesInput, _ ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.ListMemoriesOutput, error) {
	var summaries []controltypes.MemorySummary
	for id := range f.memories {
		summaries = append(summaries, controltypes.MemorySummary{Id: aws.String(id)})
	}
	return &bedrockagentcorecontrol.ListMemoriesOutput{Memories: summaries}, nil
}

func conversational(role datatypes.Role, text string) datatypes.PayloadType {
	return &datatypes.PayloadTypeMemberConversational{Value: datatypes.Conversational{
		Role:    role,
		Content: &datatypes.ContentMemberText{Value: text},
	}}
}

func TestResolveWithValidID(t *testing.T) {
	control := &fakeControl{memories: map[string]controltypes.Memory{
		"mem-1": {Id: aws.String("mem-1"), Name: aws.String("SPA_MultiAgent_DEV_1"), Status: controltypes.MemoryStatusActive},
	}}

	id, err := Resolve(context.Background(), control, "mem-1", "SPA_MultiAgent_DEV_1")
	require.NoError(t, err)
	assert.Equal(t, "mem-1", id)
}

func TestResolveFallsBackToName(t *testing.T) {
	control := &fakeControl{memories: map[string]controltypes.Memory{
		"mem-2": {Id: aws.String("mem-2"), Name: aws.String("SPA_MultiAgent_DEV_2"), Status: controltypes.MemoryStatusActive},
	}}

	id, err := Resolve(context.Background(), control, "mem-stale", "SPA_MultiAgent_DEV_2")
	require.NoError(t, err)
	assert.Equal(t, "mem-2", id)
}

func TestResolveNoMatch(t *testing.T) {
	control := &fakeControl{memories: map[string]controltypes.Memory{}}

	_, err := Resolve(context.Background(), control, "", "SPA_MultiAgent_DEV_3")
	assert.Error(t, err)
}

func TestLoadRecentOrdersOldestFirst(t *testing.T) {
	data := &fakeData{events: []datatypes.Event{
		{Payload: []datatypes.PayloadType{
			conversational(datatypes.RoleUser, "second question"),
			conversational(datatypes.RoleAssistant, "second answer"),
		}},
		{Payload: []datatypes.PayloadType{
			conversational(datatypes.RoleUser, "first question"),
			conversational(datatypes.RoleAssistant, "first answer"),
		}},
	}}
	store := NewStore(data, "mem-1", 10)

	turns, err := store.LoadRecent(context.Background(), "user-1", "session-1")
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, "first question", turns[0].Text)
	assert.Equal(t, "first answer", turns[1].Text)
	assert.Equal(t, "second question", turns[2].Text)
}

func TestAppendTurnFailureDoesNotPanic(t *testing.T) {
	data := &fakeData{createErr: errors.New("throttled")}
	store := NewStore(data, "mem-1", 10)

	store.AppendTurn(context.Background(), "user-1", "session-1", "hi", "hello")
	require.NotNil(t, data.created)
	assert.Equal(t, "mem-1", aws.ToString(data.created.MemoryId))
	assert.Len(t, data.created.Payload, 2)
}
