package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcore"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcore/types"
	"github.com/rs/zerolog/log"
)

// DefaultInterpreterID is the AWS-managed code interpreter.
const DefaultInterpreterID = "aws.codeinterpreter.v1"

const sessionTimeoutSeconds = 900

// InterpreterAPI is the code interpreter subset of the data-plane client.
type InterpreterAPI interface {
	StartCodeInterpreterSession(ctx context.Context, params *bedrockagentcore.StartCodeInterpreterSessionInput, optFns ...func(*bedrockagentcore.Options)) (*bedrockagentcore.StartCodeInterpreterSessionOutput, error)
	InvokeCodeInterpreter(ctx context.Context, params *bedrockagentcore.InvokeCodeInterpreterInput, optFns ...func(*bedrockagentcore.Options)) (*bedrockagentcore.InvokeCodeInterpreterOutput, error)
	StopCodeInterpreterSession(ctx context.Context, params *bedrockagentcore.StopCodeInterpreterSessionInput, optFns ...func(*bedrockagentcore.Options)) (*bedrockagentcore.StopCodeInterpreterSessionOutput, error)
}

// Interpreter runs code in a fresh AgentCore code interpreter session per
// call and implements CodeRunner.
type Interpreter struct {
	client     InterpreterAPI
	identifier string
}

func NewInterpreter(client InterpreterAPI) *Interpreter {
	return &Interpreter{client: client, identifier: DefaultInterpreterID}
}

// Run executes Python and returns stdout followed by stderr.
func (i *Interpreter) Run(ctx context.Context, code string) (string, error) {
	session, err := i.client.StartCodeInterpreterSession(ctx, &bedrockagentcore.StartCodeInterpreterSessionInput{
		CodeInterpreterIdentifier: aws.String(i.identifier),
		Name:                      aws.String("spa-chart-session"),
		SessionTimeoutSeconds:     aws.Int32(sessionTimeoutSeconds),
	})
	if err != nil {
		return "", fmt.Errorf("starting interpreter session: %w", err)
	}
	sessionID := aws.ToString(session.SessionId)

	defer func() {
		_, err := i.client.StopCodeInterpreterSession(ctx, &bedrockagentcore.StopCodeInterpreterSessionInput{
			CodeInterpreterIdentifier: aws.String(i.identifier),
			SessionId:                 aws.String(sessionID),
		})
		if err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("stopping interpreter session failed")
		}
	}()

	out, err := i.client.InvokeCodeInterpreter(ctx, &bedrockagentcore.InvokeCodeInterpreterInput{
		CodeInterpreterIdentifier: aws.String(i.identifier),
		SessionId:                 aws.String(sessionID),
		Name:                      types.ToolNameExecuteCode,
		Arguments: &types.ToolArguments{
			Code:     aws.String(code),
			Language: types.ProgrammingLanguagePython,
		},
	})
	if err != nil {
		return "", fmt.Errorf("invoking interpreter: %w", err)
	}

	stream := out.GetStream()
	defer stream.Close()

	var b strings.Builder
	for event := range stream.Events() {
		result, ok := event.(*types.CodeInterpreterStreamOutputMemberResult)
		if !ok {
			continue
		}
		if sc := result.Value.StructuredContent; sc != nil {
			b.WriteString(aws.ToString(sc.Stdout))
			b.WriteString(aws.ToString(sc.Stderr))
			continue
		}
		for _, content := range result.Value.Content {
			if content.Type == types.ContentBlockTypeText {
				b.WriteString(aws.ToString(content.Text))
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("reading interpreter stream: %w", err)
	}

	return b.String(), nil
}
