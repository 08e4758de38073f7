package gateway

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeControl struct {
	createGateway *bedrockagentcorecontrol.CreateGatewayInput
	statuses      []types.GatewayStatus
	statusCalls   int
	target        *bedrockagentcorecontrol.CreateGatewayTargetInput
}

func (f *fakeControl) CreateGateway(_ context.Context, params *bedrockagentcorecontrol.CreateGatewayInput, _ ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.CreateGatewayOutput, error) {
	f.createGateway = params
	return &bedrockagentcorecontrol.CreateGatewayOutput{
		GatewayId:  aws.String("gw-123"),
		GatewayUrl: aws.String("https://gw-123.gateway.bedrock-agentcore.eu-west-1.amazonaws.com"),
		Status:     types.GatewayStatusCreating,
	}, nil
}

func (f *fakeControl) GetGateway(_ context.Context, _ *bedrockagentcorecontrol.GetGatewayInput, _ ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.GetGatewayOutput, error) {
	status := f.statuses[len(f.statuses)-1]
	if f.statusCalls < len(f.statuses) {
		status = f.statuses[f.statusCalls]
	}
	f.statusCalls++
	return &bedrockagentcorecontrol.GetGatewayOutput{Status: status}, nil
}

func (f *fakeControl) CreateGatewayTarget(_ context.Context, params *bedrockagentcorecontrol.CreateGatewayTargetInput, _ ...func(*bedrockagentcorecontrol.Options)) (*bedrockagentcorecontrol.CreateGatewayTargetOutput, error) {
	f.target = params
	return &bedrockagentcorecontrol.CreateGatewayTargetOutput{}, nil
}

type fakeIAM struct {
	roleExists bool
	policy     *iam.PutRolePolicyInput
}

func (f *fakeIAM) CreateRole(_ context.Context, params *iam.CreateRoleInput, _ ...func(*iam.Options)) (*iam.CreateRoleOutput, error) {
	if f.roleExists {
		return nil, &iamtypes.EntityAlreadyExistsException{}
	}
	arn := "arn:aws:iam::111122223333:role/" + aws.ToString(params.RoleName)
	return &iam.CreateRoleOutput{Role: &iamtypes.Role{Arn: aws.String(arn)}}, nil
}

func (f *fakeIAM) PutRolePolicy(_ context.Context, params *iam.PutRolePolicyInput, _ ...func(*iam.Options)) (*iam.PutRolePolicyOutput, error) {
	f.policy = params
	return &iam.PutRolePolicyOutput{}, nil
}

type fakeLambda struct {
	permission *lambda.AddPermissionInput
	conflict   bool
}

func (f *fakeLambda) AddPermission(_ context.Context, params *lambda.AddPermissionInput, _ ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error) {
	f.permission = params
	if f.conflict {
		return nil, &lambdatypes.ResourceConflictException{}
	}
	return &lambda.AddPermissionOutput{}, nil
}

func newTestProvisioner(control *fakeControl, iamClient *fakeIAM, lambdaClient *fakeLambda) *Provisioner {
	p := NewProvisioner(control, iamClient, lambdaClient, "eu-west-1", "111122223333")
	p.propagationWait = 0
	p.readyInterval = time.Millisecond
	p.readyWait = time.Second
	return p
}

func TestProvision(t *testing.T) {
	control := &fakeControl{statuses: []types.GatewayStatus{types.GatewayStatusCreating, types.GatewayStatusReady}}
	iamClient := &fakeIAM{}
	lambdaClient := &fakeLambda{}
	p := newTestProvisioner(control, iamClient, lambdaClient)

	result, err := p.Provision(context.Background(), "arn:aws:lambda:eu-west-1:111122223333:function:rfq", "eu-west-1_AbCd1234", "client-1")
	require.NoError(t, err)

	assert.Equal(t, "gw-123", result.GatewayID)
	assert.Equal(t, "https://gw-123.gateway.bedrock-agentcore.eu-west-1.amazonaws.com/mcp", result.GatewayURL)
	assert.Equal(t, "arn:aws:bedrock-agentcore:eu-west-1:111122223333:gateway/gw-123", result.GatewayARN)

	require.NotNil(t, control.createGateway)
	assert.True(t, strings.HasPrefix(aws.ToString(control.createGateway.Name), "RFQGateway-"))
	assert.Len(t, aws.ToString(control.createGateway.Name), len("RFQGateway-")+8)
	assert.Equal(t, types.AuthorizerTypeCustomJwt, control.createGateway.AuthorizerType)

	auth, ok := control.createGateway.AuthorizerConfiguration.(*types.AuthorizerConfigurationMemberCustomJWTAuthorizer)
	require.True(t, ok)
	assert.Equal(t, []string{"client-1"}, auth.Value.AllowedClients)
	assert.Contains(t, aws.ToString(auth.Value.DiscoveryUrl), "eu-west-1_AbCd1234")

	// invoke role was scoped to the Lambda
	require.NotNil(t, iamClient.policy)
	assert.Contains(t, aws.ToString(iamClient.policy.PolicyDocument), "function:rfq")

	require.NotNil(t, lambdaClient.permission)
	assert.Equal(t, "AllowBedrockAgentCore-gw-123", aws.ToString(lambdaClient.permission.StatementId))
	assert.Equal(t, result.GatewayARN, aws.ToString(lambdaClient.permission.SourceArn))
}

func TestProvisionTargetSchema(t *testing.T) {
	control := &fakeControl{statuses: []types.GatewayStatus{types.GatewayStatusReady}}
	p := newTestProvisioner(control, &fakeIAM{roleExists: true}, &fakeLambda{conflict: true})

	_, err := p.Provision(context.Background(), "arn:aws:lambda:eu-west-1:111122223333:function:rfq", "eu-west-1_AbCd1234", "client-1")
	require.NoError(t, err)

	require.NotNil(t, control.target)
	assert.Equal(t, TargetName, aws.ToString(control.target.Name))
	require.Len(t, control.target.CredentialProviderConfigurations, 1)
	assert.Equal(t, types.CredentialProviderTypeGatewayIamRole, control.target.CredentialProviderConfigurations[0].CredentialProviderType)

	mcp, ok := control.target.TargetConfiguration.(*types.TargetConfigurationMemberMcp)
	require.True(t, ok)
	lambdaTarget, ok := mcp.Value.(*types.McpTargetConfigurationMemberLambda)
	require.True(t, ok)
	inline, ok := lambdaTarget.Value.ToolSchema.(*types.ToolSchemaMemberInlinePayload)
	require.True(t, ok)
	require.Len(t, inline.Value, 1)

	tool := inline.Value[0]
	assert.Equal(t, "create_rfq", aws.ToString(tool.Name))
	assert.ElementsMatch(t, []string{"material_number", "supplier_id", "quantity", "delivery_date"}, tool.InputSchema.Required)
	assert.Contains(t, tool.InputSchema.Properties, "rfq_name")
}

func TestWaitReadyTimesOut(t *testing.T) {
	control := &fakeControl{statuses: []types.GatewayStatus{types.GatewayStatusCreating}}
	p := newTestProvisioner(control, &fakeIAM{}, &fakeLambda{})
	p.readyWait = 10 * time.Millisecond

	err := p.waitReady(context.Background(), "gw-123")
	assert.Error(t, err)
}

func TestSaveConfig(t *testing.T) {
	path := t.TempDir() + "/gateway_config.json"
	require.NoError(t, SaveConfig(path, &Result{GatewayID: "gw-123", GatewayURL: "https://gw/mcp", GatewayARN: "arn:gw"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Result
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "gw-123", got.GatewayID)
}
