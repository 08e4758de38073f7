package deploy

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIAM struct {
	roleExists    bool
	policyExists  bool
	versions      []types.PolicyVersion
	deletedIDs    []string
	attachedARNs  []string
	createdPolicy bool
	newVersions   int
	trustDoc      string
}

func (f *fakeIAM) CreateRole(_ context.Context, in *iam.CreateRoleInput, _ ...func(*iam.Options)) (*iam.CreateRoleOutput, error) {
	if f.roleExists {
		return nil, &types.EntityAlreadyExistsException{}
	}
	f.roleExists = true
	f.trustDoc = aws.ToString(in.AssumeRolePolicyDocument)
	return &iam.CreateRoleOutput{Role: &types.Role{Arn: aws.String("arn:aws:iam::123:role/" + aws.ToString(in.RoleName))}}, nil
}

func (f *fakeIAM) GetRole(_ context.Context, in *iam.GetRoleInput, _ ...func(*iam.Options)) (*iam.GetRoleOutput, error) {
	return &iam.GetRoleOutput{Role: &types.Role{Arn: aws.String("arn:aws:iam::123:role/" + aws.ToString(in.RoleName))}}, nil
}

func (f *fakeIAM) CreatePolicy(_ context.Context, _ *iam.CreatePolicyInput, _ ...func(*iam.Options)) (*iam.CreatePolicyOutput, error) {
	f.createdPolicy = true
	f.policyExists = true
	return &iam.CreatePolicyOutput{}, nil
}

func (f *fakeIAM) ListPolicyVersions(_ context.Context, _ *iam.ListPolicyVersionsInput, _ ...func(*iam.Options)) (*iam.ListPolicyVersionsOutput, error) {
	if !f.policyExists {
		return nil, &types.NoSuchEntityException{}
	}
	return &iam.ListPolicyVersionsOutput{Versions: f.versions}, nil
}

func (f *fakeIAM) DeletePolicyVersion(_ context.Context, in *iam.DeletePolicyVersionInput, _ ...func(*iam.Options)) (*iam.DeletePolicyVersionOutput, error) {
	f.deletedIDs = append(f.deletedIDs, aws.ToString(in.VersionId))
	return &iam.DeletePolicyVersionOutput{}, nil
}

func (f *fakeIAM) CreatePolicyVersion(_ context.Context, _ *iam.CreatePolicyVersionInput, _ ...func(*iam.Options)) (*iam.CreatePolicyVersionOutput, error) {
	f.newVersions++
	return &iam.CreatePolicyVersionOutput{}, nil
}

func (f *fakeIAM) AttachRolePolicy(_ context.Context, in *iam.AttachRolePolicyInput, _ ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error) {
	f.attachedARNs = append(f.attachedARNs, aws.ToString(in.PolicyArn))
	return &iam.AttachRolePolicyOutput{}, nil
}

func newTestProvisioner(f *fakeIAM) *RoleProvisioner {
	p := NewRoleProvisioner(f)
	p.propagationWait = 0
	return p
}

func TestEnsureExecutionRoleCreatesEverything(t *testing.T) {
	fake := &fakeIAM{}
	p := newTestProvisioner(fake)

	arn, err := p.EnsureExecutionRole(context.Background(), "123456789012", "us-east-1")
	require.NoError(t, err)

	assert.Equal(t, "arn:aws:iam::123:role/"+ExecutionRoleName, arn)
	assert.True(t, fake.createdPolicy)
	// custom policy plus four managed policies
	assert.Len(t, fake.attachedARNs, 5)

	var trust map[string]any
	require.NoError(t, json.Unmarshal([]byte(fake.trustDoc), &trust))
	assert.Equal(t, "2012-10-17", trust["Version"])
}

func TestEnsureExecutionRoleReusesExistingRole(t *testing.T) {
	fake := &fakeIAM{roleExists: true, policyExists: true}
	p := newTestProvisioner(fake)

	_, err := p.EnsureExecutionRole(context.Background(), "123456789012", "us-east-1")
	require.NoError(t, err)

	assert.False(t, fake.createdPolicy)
	assert.Equal(t, 1, fake.newVersions)
}

func TestPolicyVersionRotation(t *testing.T) {
	base := time.Now()
	fake := &fakeIAM{
		roleExists:   true,
		policyExists: true,
		versions: []types.PolicyVersion{
			{VersionId: aws.String("v5"), IsDefaultVersion: true, CreateDate: aws.Time(base)},
			{VersionId: aws.String("v4"), CreateDate: aws.Time(base.Add(-1 * time.Hour))},
			{VersionId: aws.String("v3"), CreateDate: aws.Time(base.Add(-2 * time.Hour))},
			{VersionId: aws.String("v2"), CreateDate: aws.Time(base.Add(-3 * time.Hour))},
			{VersionId: aws.String("v1"), CreateDate: aws.Time(base.Add(-4 * time.Hour))},
		},
	}
	p := newTestProvisioner(fake)

	_, err := p.EnsureExecutionRole(context.Background(), "123456789012", "us-east-1")
	require.NoError(t, err)

	// the oldest non-default version goes, never the default
	assert.Equal(t, []string{"v1"}, fake.deletedIDs)
	assert.Equal(t, 1, fake.newVersions)
}

func TestPermissionPolicyScopesToAccount(t *testing.T) {
	doc := executionPermissionPolicy("123456789012", "eu-west-1")
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	assert.Contains(t, string(data), "arn:aws:s3:::spa-code-interpreter-123456789012")
	assert.Contains(t, string(data), "arn:aws:logs:eu-west-1:123456789012:log-group:/aws/bedrock-agentcore/*")
	assert.Contains(t, string(data), "bedrock-agentcore:GetWorkloadAccessTokenForJWT")
}
