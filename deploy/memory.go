package deploy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol/types"
	"github.com/rs/zerolog/log"
)

const (
	// memoryEventExpiryDays is how long conversation events are retained.
	memoryEventExpiryDays = 30

	memoryPollInterval = 10 * time.Second
	memoryMaxWait      = 5 * time.Minute
)

// MemoryAPI is the control-plane subset used for memory provisioning.
type MemoryAPI interface {
	CreateMemory(ctx context.Context, params *bedrockagentcorecontrol.CreateMemoryInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.CreateMemoryOutput, error)
	GetMemory(ctx context.Context, params *bedrockagentcorecontrol.GetMemoryInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.GetMemoryOutput, error)
}

// MemoryName builds the deployment-unique memory name.
func MemoryName(environment string, now time.Time) string {
	return fmt.Sprintf("SPA_MultiAgent_%s_%d", strings.ToUpper(environment), now.Unix())
}

// CreateMemory provisions a fresh AgentCore memory for this deployment and
// waits for it to become active. Every deployment gets a new memory; old
// ones age out through event expiry.
func CreateMemory(ctx context.Context, client MemoryAPI, environment string) (id, name string, err error) {
	name = MemoryName(environment, time.Now())
	log.Info().Str("memory", name).Msg("creating memory")

	created, err := client.CreateMemory(ctx, &bedrockagentcorecontrol.CreateMemoryInput{
		Name:                aws.String(name),
		Description:         aws.String(fmt.Sprintf("SPA Multi-Agent System Memory - %s", strings.ToUpper(environment))),
		EventExpiryDuration: aws.Int32(memoryEventExpiryDays),
	})
	if err != nil {
		return "", "", fmt.Errorf("creating memory: %w", err)
	}
	id = aws.ToString(created.Memory.Id)

	if err := waitForMemory(ctx, client, id); err != nil {
		return "", "", err
	}

	// Re-read to confirm the caller's credentials can actually use it.
	if _, err := client.GetMemory(ctx, &bedrockagentcorecontrol.GetMemoryInput{MemoryId: aws.String(id)}); err != nil {
		return "", "", fmt.Errorf("verifying memory %s: %w", id, err)
	}

	log.Info().Str("memory_id", id).Msg("memory created and verified")
	return id, name, nil
}

func waitForMemory(ctx context.Context, client MemoryAPI, id string) error {
	deadline := time.Now().Add(memoryMaxWait)

	for {
		out, err := client.GetMemory(ctx, &bedrockagentcorecontrol.GetMemoryInput{MemoryId: aws.String(id)})
		if err != nil {
			return fmt.Errorf("polling memory status: %w", err)
		}

		switch out.Memory.Status {
		case types.MemoryStatusActive:
			return nil
		case types.MemoryStatusFailed:
			return fmt.Errorf("memory %s entered FAILED state", id)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("memory %s not active after %s", id, memoryMaxWait)
		}

		log.Info().Str("memory_id", id).Str("status", string(out.Memory.Status)).Msg("waiting for memory")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(memoryPollInterval):
		}
	}
}
