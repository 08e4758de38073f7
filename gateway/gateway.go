// Package gateway provisions the AgentCore MCP gateway that exposes the SAP
// RFQ Lambda as a remote tool.
package gateway

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
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/spasystems/spa-multiagent/deploy"
)

const (
	// InvokeRoleName is assumed by the gateway to call the RFQ Lambda.
	InvokeRoleName = "rfq-gateway-invoke-role"

	// TargetName is the gateway target holding the create_rfq tool.
	TargetName = "RFQTarget"

	rolePropagationWait = 10 * time.Second
	readyPollInterval   = 5 * time.Second
	readyMaxWait        = time.Minute
)

// ControlAPI is the AgentCore control-plane subset used here.
type ControlAPI interface {
	CreateGateway(ctx context.Context, params *bedrockagentcorecontrol.CreateGatewayInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.CreateGatewayOutput, error)
	GetGateway(ctx context.Context, params *bedrockagentcorecontrol.GetGatewayInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.GetGatewayOutput, error)
	CreateGatewayTarget(ctx context.Context, params *bedrockagentcorecontrol.CreateGatewayTargetInput, optFns ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.CreateGatewayTargetOutput, error)
}

// IAMAPI is the IAM subset used for the invoke role.
type IAMAPI interface {
	CreateRole(ctx context.Context, params *iam.CreateRoleInput, optFns ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	PutRolePolicy(ctx context.Context, params *iam.PutRolePolicyInput, optFns ...func(*iam.Options)) (*iam.PutRolePolicyOutput, error)
}

// LambdaAPI is the Lambda subset used to grant the gateway invoke rights.
type LambdaAPI interface {
	AddPermission(ctx context.Context, params *lambda.AddPermissionInput, optFns ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error)
}

// Provisioner creates the gateway and its target.
type Provisioner struct {
	control ControlAPI
	iam     IAMAPI
	lambda  LambdaAPI

	region    string
	accountID string

	propagationWait time.Duration
	readyInterval   time.Duration
	readyWait       time.Duration
}

// NewProvisioner wires the provisioner up.
func NewProvisioner(control ControlAPI, iamClient IAMAPI, lambdaClient LambdaAPI, region, accountID string) *Provisioner {
	return &Provisioner{
		control:         control,
		iam:             iamClient,
		lambda:          lambdaClient,
		region:          region,
		accountID:       accountID,
		propagationWait: rolePropagationWait,
		readyInterval:   readyPollInterval,
		readyWait:       readyMaxWait,
	}
}

// Result describes the provisioned gateway, persisted for the deploy step.
type Result struct {
	GatewayID  string `json:"gateway_id"`
	GatewayURL string `json:"gateway_url"`
	GatewayARN string `json:"gateway_arn"`
}

// Provision creates the invoke role, the gateway with CUSTOM_JWT auth, the
// RFQ target and the Lambda permission, and returns the gateway coordinates.
func (p *Provisioner) Provision(ctx context.Context, lambdaARN, userPoolID, clientID string) (*Result, error) {
	roleARN, err := p.ensureInvokeRole(ctx, lambdaARN)
	if err != nil {
		return nil, err
	}

	gatewayID, gatewayURL, err := p.createGateway(ctx, roleARN, userPoolID, clientID)
	if err != nil {
		return nil, err
	}

	if err := p.waitReady(ctx, gatewayID); err != nil {
		// The original tooling treats a slow gateway as a warning and
		// presses on; the target creation will fail if it truly is broken.
		log.Warn().Err(err).Msg("gateway not ready yet, continuing")
	}

	if err := p.createTarget(ctx, gatewayID, lambdaARN); err != nil {
		return nil, err
	}

	gatewayARN := fmt.Sprintf("arn:aws:bedrock-agentcore:%s:%s:gateway/%s", p.region, p.accountID, gatewayID)
	p.addLambdaPermission(ctx, lambdaARN, gatewayID, gatewayARN)

	return &Result{
		GatewayID:  gatewayID,
		GatewayURL: gatewayURL + "/mcp",
		GatewayARN: gatewayARN,
	}, nil
}

func (p *Provisioner) ensureInvokeRole(ctx context.Context, lambdaARN string) (string, error) {
	trust, _ := json.Marshal(map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{{
			"Effect":    "Allow",
			"Principal": map[string]any{"Service": "bedrock-agentcore.amazonaws.com"},
			"Action":    "sts:AssumeRole",
		}},
	})

	roleARN := fmt.Sprintf("arn:aws:iam::%s:role/%s", p.accountID, InvokeRoleName)
	created, err := p.iam.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(InvokeRoleName),
		AssumeRolePolicyDocument: aws.String(string(trust)),
	})
	if err == nil {
		roleARN = aws.ToString(created.Role.Arn)
		log.Info().Str("role_arn", roleARN).Msg("invoke role created")
	} else {
		var exists *iamtypes.EntityAlreadyExistsException
		if !errors.As(err, &exists) {
			return "", fmt.Errorf("creating invoke role: %w", err)
		}
		log.Info().Str("role_arn", roleARN).Msg("invoke role already exists")
	}

	policy, _ := json.Marshal(map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{{
			"Effect":   "Allow",
			"Action":   "lambda:InvokeFunction",
			"Resource": lambdaARN,
		}},
	})
	_, err = p.iam.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
		RoleName:       aws.String(InvokeRoleName),
		PolicyName:     aws.String("LambdaInvokePolicy"),
		PolicyDocument: aws.String(string(policy)),
	})
	if err != nil {
		return "", fmt.Errorf("putting invoke policy: %w", err)
	}

	log.Info().Dur("wait", p.propagationWait).Msg("waiting for IAM role to propagate")
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(p.propagationWait):
	}

	return roleARN, nil
}

func (p *Provisioner) createGateway(ctx context.Context, roleARN, userPoolID, clientID string) (id, url string, err error) {
	name := "RFQGateway-" + uuid.NewString()[:8]

	out, err := p.control.CreateGateway(ctx, &bedrockagentcorecontrol.CreateGatewayInput{
		Name:           aws.String(name),
		RoleArn:        aws.String(roleARN),
		ProtocolType:   types.GatewayProtocolTypeMcp,
		AuthorizerType: types.AuthorizerTypeCustomJwt,
		AuthorizerConfiguration: &types.AuthorizerConfigurationMemberCustomJWTAuthorizer{
			Value: types.CustomJWTAuthorizerConfiguration{
				DiscoveryUrl:   aws.String(deploy.DiscoveryURL(p.region, userPoolID)),
				AllowedClients: []string{clientID},
			},
		},
	})
	if err != nil {
		return "", "", fmt.Errorf("creating gateway: %w", err)
	}

	id = aws.ToString(out.GatewayId)
	url = aws.ToString(out.GatewayUrl)
	if url == "" {
		url = fmt.Sprintf("https://%s.gateway.bedrock-agentcore.%s.amazonaws.com", id, p.region)
	}
	log.Info().Str("gateway_id", id).Str("gateway_url", url).Msg("gateway created with CUSTOM_JWT")
	return id, url, nil
}

func (p *Provisioner) waitReady(ctx context.Context, gatewayID string) error {
	deadline := time.Now().Add(p.readyWait)

	for {
		out, err := p.control.GetGateway(ctx, &bedrockagentcorecontrol.GetGatewayInput{
			GatewayIdentifier: aws.String(gatewayID),
		})
		if err == nil {
			if out.Status == types.GatewayStatusReady {
				log.Info().Str("gateway_id", gatewayID).Msg("gateway is ready")
				return nil
			}
			log.Info().Str("status", string(out.Status)).Msg("gateway status")
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("gateway %s not ready after %s", gatewayID, p.readyWait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.readyInterval):
		}
	}
}

func (p *Provisioner) createTarget(ctx context.Context, gatewayID, lambdaARN string) error {
	_, err := p.control.CreateGatewayTarget(ctx, &bedrockagentcorecontrol.CreateGatewayTargetInput{
		GatewayIdentifier:   aws.String(gatewayID),
		Name:                aws.String(TargetName),
		TargetConfiguration: RFQTargetConfiguration(lambdaARN),
		CredentialProviderConfigurations: []types.CredentialProviderConfiguration{
			{CredentialProviderType: types.CredentialProviderTypeGatewayIamRole},
		},
	})
	if err != nil {
		return fmt.Errorf("creating gateway target: %w", err)
	}
	log.Info().Str("target", TargetName).Msg("gateway target created")
	return nil
}

// addLambdaPermission lets the gateway invoke the Lambda. A conflict means a
// previous run already granted it.
func (p *Provisioner) addLambdaPermission(ctx context.Context, lambdaARN, gatewayID, gatewayARN string) {
	_, err := p.lambda.AddPermission(ctx, &lambda.AddPermissionInput{
		FunctionName: aws.String(lambdaARN),
		StatementId:  aws.String("AllowBedrockAgentCore-" + gatewayID),
		Action:       aws.String("lambda:InvokeFunction"),
		Principal:    aws.String("bedrock-agentcore.amazonaws.com"),
		SourceArn:    aws.String(gatewayARN),
	})
	if err != nil {
		var conflict *lambdatypes.ResourceConflictException
		if errors.As(err, &conflict) {
			log.Info().Msg("lambda permission already exists")
			return
		}
		log.Warn().Err(err).Msg("adding lambda permission failed")
		return
	}
	log.Info().Msg("lambda permission added")
}

// SaveConfig writes the gateway coordinates for the deployment CLI to pick
// up.
func SaveConfig(path string, result *Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing gateway config: %w", err)
	}
	log.Info().Str("path", path).Msg("gateway config saved")
	return nil
}
