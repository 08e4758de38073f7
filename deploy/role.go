package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/rs/zerolog/log"
)

const (
	// ExecutionRoleName is the IAM role assumed by the agent runtime.
	ExecutionRoleName = "spa_multi_agent_system_execution_role"

	// maxPolicyVersions is IAM's hard cap on managed policy versions.
	maxPolicyVersions = 5

	// iamPropagationWait gives IAM time to propagate the new role before
	// the runtime is created with it.
	iamPropagationWait = 15 * time.Second
)

// IAMAPI is the subset of the IAM client the provisioner uses.
type IAMAPI interface {
	CreateRole(ctx context.Context, params *iam.CreateRoleInput, optFns ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	GetRole(ctx context.Context, params *iam.GetRoleInput, optFns ...func(*iam.Options)) (*iam.GetRoleOutput, error)
	CreatePolicy(ctx context.Context, params *iam.CreatePolicyInput, optFns ...func(*iam.Options)) (*iam.CreatePolicyOutput, error)
	ListPolicyVersions(ctx context.Context, params *iam.ListPolicyVersionsInput, optFns ...func(*iam.Options)) (*iam.ListPolicyVersionsOutput, error)
	DeletePolicyVersion(ctx context.Context, params *iam.DeletePolicyVersionInput, optFns ...func(*iam.Options)) (*iam.DeletePolicyVersionOutput, error)
	CreatePolicyVersion(ctx context.Context, params *iam.CreatePolicyVersionInput, optFns ...func(*iam.Options)) (*iam.CreatePolicyVersionOutput, error)
	AttachRolePolicy(ctx context.Context, params *iam.AttachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error)
}

// RoleProvisioner creates or refreshes the execution role.
type RoleProvisioner struct {
	client IAMAPI

	// propagationWait is overridable in tests.
	propagationWait time.Duration
}

// NewRoleProvisioner creates a RoleProvisioner with the default propagation
// wait.
func NewRoleProvisioner(client IAMAPI) *RoleProvisioner {
	return &RoleProvisioner{client: client, propagationWait: iamPropagationWait}
}

// EnsureExecutionRole creates the execution role if needed, rotates the
// custom policy to the current permission set, attaches the managed
// policies, and waits for IAM propagation. It returns the role ARN.
func (p *RoleProvisioner) EnsureExecutionRole(ctx context.Context, accountID, region string) (string, error) {
	roleARN, err := p.ensureRole(ctx)
	if err != nil {
		return "", err
	}

	policyARN := fmt.Sprintf("arn:aws:iam::%s:policy/%s_policy", accountID, ExecutionRoleName)
	if err := p.ensurePolicy(ctx, policyARN, accountID, region); err != nil {
		return "", err
	}

	p.attach(ctx, policyARN, ExecutionRoleName+"_policy")
	for _, mp := range managedPolicies {
		p.attach(ctx, mp.ARN, mp.Name)
	}

	log.Info().Dur("wait", p.propagationWait).Msg("waiting for IAM propagation")
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(p.propagationWait):
	}

	return roleARN, nil
}

func (p *RoleProvisioner) ensureRole(ctx context.Context) (string, error) {
	trust, err := json.Marshal(executionTrustPolicy())
	if err != nil {
		return "", fmt.Errorf("marshaling trust policy: %w", err)
	}

	created, err := p.client.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(ExecutionRoleName),
		AssumeRolePolicyDocument: aws.String(string(trust)),
		Description:              aws.String("Execution role for SPA Multi-Agent System"),
	})
	if err == nil {
		log.Info().Str("role", ExecutionRoleName).Msg("execution role created")
		return aws.ToString(created.Role.Arn), nil
	}

	var exists *types.EntityAlreadyExistsException
	if !errors.As(err, &exists) {
		return "", fmt.Errorf("creating role: %w", err)
	}

	existing, err := p.client.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(ExecutionRoleName)})
	if err != nil {
		return "", fmt.Errorf("reading existing role: %w", err)
	}
	log.Info().Str("role", ExecutionRoleName).Msg("using existing execution role")
	return aws.ToString(existing.Role.Arn), nil
}

// ensurePolicy creates the custom policy or rotates in a new default
// version. IAM keeps at most five versions, so the oldest non-default one is
// deleted first when the limit is hit.
func (p *RoleProvisioner) ensurePolicy(ctx context.Context, policyARN, accountID, region string) error {
	doc, err := json.Marshal(executionPermissionPolicy(accountID, region))
	if err != nil {
		return fmt.Errorf("marshaling permission policy: %w", err)
	}

	versions, err := p.client.ListPolicyVersions(ctx, &iam.ListPolicyVersionsInput{
		PolicyArn: aws.String(policyARN),
	})
	if err != nil {
		var notFound *types.NoSuchEntityException
		if !errors.As(err, &notFound) {
			return fmt.Errorf("listing policy versions: %w", err)
		}

		_, err = p.client.CreatePolicy(ctx, &iam.CreatePolicyInput{
			PolicyName:     aws.String(ExecutionRoleName + "_policy"),
			PolicyDocument: aws.String(string(doc)),
			Description:    aws.String("Permissions for SPA Multi-Agent System"),
		})
		if err != nil {
			return fmt.Errorf("creating policy: %w", err)
		}
		log.Info().Msg("execution policy created")
		return nil
	}

	if len(versions.Versions) >= maxPolicyVersions {
		if oldest := oldestNonDefault(versions.Versions); oldest != nil {
			_, err = p.client.DeletePolicyVersion(ctx, &iam.DeletePolicyVersionInput{
				PolicyArn: aws.String(policyARN),
				VersionId: oldest.VersionId,
			})
			if err != nil {
				return fmt.Errorf("deleting old policy version: %w", err)
			}
		}
	}

	_, err = p.client.CreatePolicyVersion(ctx, &iam.CreatePolicyVersionInput{
		PolicyArn:      aws.String(policyARN),
		PolicyDocument: aws.String(string(doc)),
		SetAsDefault:   true,
	})
	if err != nil {
		return fmt.Errorf("creating policy version: %w", err)
	}
	log.Info().Msg("execution policy updated")
	return nil
}

func oldestNonDefault(versions []types.PolicyVersion) *types.PolicyVersion {
	var oldest *types.PolicyVersion
	for i := range versions {
		v := &versions[i]
		if v.IsDefaultVersion {
			continue
		}
		if oldest == nil || (v.CreateDate != nil && oldest.CreateDate != nil && v.CreateDate.Before(*oldest.CreateDate)) {
			oldest = v
		}
	}
	return oldest
}

// attach attaches a policy to the execution role. Attachment problems are
// logged rather than fatal: the common causes (already attached, attachment
// quota) leave a working role behind.
func (p *RoleProvisioner) attach(ctx context.Context, policyARN, name string) {
	_, err := p.client.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(ExecutionRoleName),
		PolicyArn: aws.String(policyARN),
	})
	if err != nil {
		var limit *types.LimitExceededException
		if errors.As(err, &limit) {
			log.Info().Str("policy", name).Msg("policy already attached")
			return
		}
		log.Warn().Err(err).Str("policy", name).Msg("policy attachment warning")
		return
	}
	log.Info().Str("policy", name).Msg("policy attached")
}
