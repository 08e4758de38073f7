package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol/types"
	"github.com/rs/zerolog/log"
)

const (
	runtimePollInterval = 30 * time.Second
	runtimeMaxAttempts  = 60
)

// runtimeFailureStates are the terminal deployment failures.
var runtimeFailureStates = map[string]bool{
	"CREATE_FAILED": true,
	"DELETE_FAILED": true,
	"UPDATE_FAILED": true,
	"FAILED":        true,
}

// RuntimeAPI is the control-plane subset used for runtime deployment.
type RuntimeAPI interface {
	CreateAgentRuntime(ctx context.Context, params *bedrockagentcorecontrol.CreateAgentRuntimeInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.CreateAgentRuntimeOutput, error)
	UpdateAgentRuntime(ctx context.Context, params *bedrockagentcorecontrol.UpdateAgentRuntimeInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.UpdateAgentRuntimeOutput, error)
	GetAgentRuntime(ctx context.Context, params *bedrockagentcorecontrol.GetAgentRuntimeInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.GetAgentRuntimeOutput, error)
	ListAgentRuntimes(ctx context.Context, params *bedrockagentcorecontrol.ListAgentRuntimesInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.ListAgentRuntimesOutput, error)
}

// Launch is the result of a runtime deployment.
type Launch struct {
	AgentARN string `json:"agent_arn"`
	AgentID  string `json:"agent_id"`
}

// RuntimeEnvironment builds the environment the agent container starts with.
// The deployment configuration travels to the agent entirely through these
// variables.
func RuntimeEnvironment(cfg Config, memoryID, memoryName, interpreterBucket string) map[string]string {
	return map[string]string{
		"AWS_REGION":                    cfg.Region,
		"MODEL_ID":                      cfg.ModelID,
		"NOVA_MODEL_ID":                 cfg.NovaModelID,
		"S3_OUTPUT_BUCKET":              cfg.S3OutputBucket,
		"ATHENA_DATABASE":               cfg.AthenaDatabase,
		"COMPLIANCE_DATABASE":           cfg.ComplianceDatabase,
		"KNOWLEDGE_BASE_ID":             cfg.KnowledgeBaseID,
		"SAP_URL":                       cfg.SAPURL,
		"SECRET_NAME":                   cfg.SecretName,
		"ENVIRONMENT":                   cfg.Environment,
		"SPA_MEMORY_ID":                 memoryID,
		"SPA_MEMORY_NAME":               memoryName,
		"CODE_INTERPRETER_BUCKET":       interpreterBucket,
		"GATEWAY_URL":                   cfg.Gateway.URL,
		"GATEWAY_COGNITO_CLIENT_ID":     cfg.Gateway.ClientID,
		"GATEWAY_COGNITO_CLIENT_SECRET": cfg.Gateway.ClientSecret,
		"GATEWAY_TOKEN_URL":             cfg.Gateway.TokenURL,
	}
}

// LaunchRuntime creates the AgentCore runtime with Cognito JWT inbound auth.
// When the name is taken and AutoUpdateOnConflict is set, the existing
// runtime is updated in place.
func LaunchRuntime(ctx context.Context, client RuntimeAPI, cfg Config, roleARN string, env map[string]string) (*Launch, error) {
	artifact := &types.AgentRuntimeArtifactMemberContainerConfiguration{
		Value: types.ContainerConfiguration{
			ContainerUri: aws.String(cfg.ContainerImage),
		},
	}
	authorizer := &types.AuthorizerConfigurationMemberCustomJWTAuthorizer{
		Value: types.CustomJWTAuthorizerConfiguration{
			DiscoveryUrl:   aws.String(DiscoveryURL(cfg.Region, cfg.CognitoUserPoolID)),
			AllowedClients: []string{cfg.CognitoClientID},
		},
	}
	network := &types.NetworkConfiguration{NetworkMode: types.NetworkModePublic}

	created, err := client.CreateAgentRuntime(ctx, &bedrockagentcorecontrol.CreateAgentRuntimeInput{
		AgentRuntimeName:        aws.String(cfg.AgentName),
		Description:             aws.String("SPA Multi-Agent System runtime"),
		AgentRuntimeArtifact:    artifact,
		RoleArn:                 aws.String(roleARN),
		NetworkConfiguration:    network,
		EnvironmentVariables:    env,
		AuthorizerConfiguration: authorizer,
	})
	if err == nil {
		log.Info().Str("agent_arn", aws.ToString(created.AgentRuntimeArn)).Msg("agent launch initiated")
		return &Launch{
			AgentARN: aws.ToString(created.AgentRuntimeArn),
			AgentID:  aws.ToString(created.AgentRuntimeId),
		}, nil
	}

	var conflict *types.ConflictException
	if !errors.As(err, &conflict) || !cfg.AutoUpdateOnConflict {
		return nil, fmt.Errorf("creating runtime: %w", err)
	}

	runtimeID, err := findRuntimeByName(ctx, client, cfg.AgentName)
	if err != nil {
		return nil, err
	}

	log.Info().Str("runtime_id", runtimeID).Msg("runtime exists, updating in place")
	updated, err := client.UpdateAgentRuntime(ctx, &bedrockagentcorecontrol.UpdateAgentRuntimeInput{
		AgentRuntimeId:          aws.String(runtimeID),
		AgentRuntimeArtifact:    artifact,
		RoleArn:                 aws.String(roleARN),
		NetworkConfiguration:    network,
		EnvironmentVariables:    env,
		AuthorizerConfiguration: authorizer,
	})
	if err != nil {
		return nil, fmt.Errorf("updating runtime: %w", err)
	}

	return &Launch{
		AgentARN: aws.ToString(updated.AgentRuntimeArn),
		AgentID:  runtimeID,
	}, nil
}

func findRuntimeByName(ctx context.Context, client RuntimeAPI, name string) (string, error) {
	var nextToken *string
	for {
		out, err := client.ListAgentRuntimes(ctx, &bedrockagentcorecontrol.ListAgentRuntimesInput{
			NextToken: nextToken,
		})
		if err != nil {
			return "", fmt.Errorf("listing runtimes: %w", err)
		}
		for _, rt := range out.AgentRuntimes {
			if aws.ToString(rt.AgentRuntimeName) == name {
				return aws.ToString(rt.AgentRuntimeId), nil
			}
		}
		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return "", fmt.Errorf("runtime %q not found", name)
}

// WaitForRuntime polls the runtime until it is READY. Status check errors
// consume attempts rather than aborting; a slow control plane should not
// fail an otherwise healthy deployment.
func WaitForRuntime(ctx context.Context, client RuntimeAPI, runtimeID string) error {
	status := "UNKNOWN"

	for attempt := 1; attempt <= runtimeMaxAttempts; attempt++ {
		out, err := client.GetAgentRuntime(ctx, &bedrockagentcorecontrol.GetAgentRuntimeInput{
			AgentRuntimeId: aws.String(runtimeID),
		})
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("status check error")
		} else {
			status = string(out.Status)
			log.Info().Int("attempt", attempt).Int("max", runtimeMaxAttempts).Str("status", status).Msg("monitoring deployment")

			if status == "READY" {
				return nil
			}
			if runtimeFailureStates[status] {
				return fmt.Errorf("deployment failed: %s", status)
			}
		}

		if attempt < runtimeMaxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(runtimePollInterval):
			}
		}
	}

	return fmt.Errorf("deployment timed out: %s", status)
}

// Info is the deployment record written next to the CLI.
type Info struct {
	AgentName   string      `json:"agent_name"`
	AgentARN    string      `json:"agent_arn"`
	AgentID     string      `json:"agent_id"`
	Environment string      `json:"environment"`
	InboundAuth InboundAuth `json:"inbound_auth"`
	MemoryID    string      `json:"spa_memory_id"`
	Config      Config      `json:"configuration"`
}

// InboundAuth documents how callers authenticate to the runtime.
type InboundAuth struct {
	Type         string `json:"type"`
	UserPoolID   string `json:"user_pool_id"`
	ClientID     string `json:"client_id"`
	DiscoveryURL string `json:"discovery_url"`
}

// WriteInfo persists the deployment record as indented JSON.
func WriteInfo(path string, info Info) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing deployment info: %w", err)
	}
	log.Info().Str("path", path).Msg("deployment info saved")
	return nil
}
