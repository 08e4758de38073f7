package deploy

import "fmt"

// policyDocument is the IAM policy JSON shape. Action and Resource take
// either a string or a list, matching what IAM accepts.
type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Sid       string     `json:"Sid,omitempty"`
	Effect    string     `json:"Effect"`
	Principal *principal `json:"Principal,omitempty"`
	Action    any        `json:"Action"`
	Resource  any        `json:"Resource,omitempty"`
}

type principal struct {
	Service any `json:"Service"`
}

// executionTrustPolicy lets AgentCore, Lambda and ECS tasks assume the role.
func executionTrustPolicy() policyDocument {
	return policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{{
			Effect: "Allow",
			Principal: &principal{Service: []string{
				"bedrock-agentcore.amazonaws.com",
				"lambda.amazonaws.com",
				"ecs-tasks.amazonaws.com",
			}},
			Action: "sts:AssumeRole",
		}},
	}
}

// executionPermissionPolicy grants everything the agent runtime touches:
// logs, AgentCore memory and code interpreter, Bedrock models and knowledge
// bases, the four data buckets, SAP credentials and KMS decryption.
func executionPermissionPolicy(accountID, region string) policyDocument {
	arn := func(format string, args ...any) string {
		return fmt.Sprintf(format, args...)
	}

	return policyDocument{
		Version: "2012-10-17",
		Statement: []policyStatement{
			{
				Sid:    "CloudWatchLogsDescribe",
				Effect: "Allow",
				Action: []string{"logs:DescribeLogGroups", "logs:DescribeLogStreams"},
				Resource: []string{
					arn("arn:aws:logs:%s:%s:log-group:/aws/bedrock-agentcore/*", region, accountID),
					arn("arn:aws:logs:%s:%s:log-group:/aws/lambda/*", region, accountID),
					arn("arn:aws:logs:%s:%s:log-group:/ecs/*", region, accountID),
				},
			},
			{
				Sid:    "BedrockAgentCoreAccess",
				Effect: "Allow",
				Action: []string{
					"bedrock-agentcore:CreateMemory",
					"bedrock-agentcore:DeleteMemory",
					"bedrock-agentcore:GetMemory",
					"bedrock-agentcore:ListMemories",
					"bedrock-agentcore:UpdateMemory",
					"bedrock-agentcore:CreateEvent",
					"bedrock-agentcore:ListEvents",
					"bedrock-agentcore:GetEvent",
					"bedrock-agentcore:GetWorkloadAccessTokenForJWT",
				},
				Resource: []string{
					arn("arn:aws:bedrock-agentcore:%s:%s:memory/*", region, accountID),
					arn("arn:aws:bedrock-agentcore:%s:%s:runtime/*", region, accountID),
					arn("arn:aws:bedrock-agentcore:%s:%s:workload-identity-directory/*", region, accountID),
				},
			},
			{
				Sid:    "BedrockModelInvoke",
				Effect: "Allow",
				Action: []string{"bedrock:InvokeModel", "bedrock:InvokeModelWithResponseStream"},
				Resource: []string{
					arn("arn:aws:bedrock:%s::foundation-model/*", region),
					"arn:aws:bedrock:us-east-1::foundation-model/*",
				},
			},
			{
				Sid:      "BedrockKnowledgeBaseAccess",
				Effect:   "Allow",
				Action:   []string{"bedrock:Retrieve", "bedrock:RetrieveAndGenerate"},
				Resource: arn("arn:aws:bedrock:%s:%s:knowledge-base/*", region, accountID),
			},
			{
				Sid:    "CodeInterpreterAccess",
				Effect: "Allow",
				Action: []string{
					"bedrock-agentcore:StartCodeInterpreterSession",
					"bedrock-agentcore:InvokeCodeInterpreter",
					"bedrock-agentcore:StopCodeInterpreterSession",
				},
				Resource: "*",
			},
			{
				Sid:    "S3DeleteAccess",
				Effect: "Allow",
				Action: "s3:DeleteObject",
				Resource: []string{
					arn("arn:aws:s3:::athena-query-bucket-%s/*", accountID),
					arn("arn:aws:s3:::spa-code-interpreter-%s/*", accountID),
					arn("arn:aws:s3:::sap-data-bucket-%s/*", accountID),
					arn("arn:aws:s3:::comp-data-bucket-%s/*", accountID),
				},
			},
			{
				Sid:    "S3ListBucketAccess",
				Effect: "Allow",
				Action: []string{"s3:ListBucket", "s3:GetBucketLocation"},
				Resource: []string{
					arn("arn:aws:s3:::athena-query-bucket-%s", accountID),
					arn("arn:aws:s3:::spa-code-interpreter-%s", accountID),
					arn("arn:aws:s3:::sap-data-bucket-%s", accountID),
					arn("arn:aws:s3:::comp-data-bucket-%s", accountID),
				},
			},
			{
				Sid:    "SecretsManagerAccess",
				Effect: "Allow",
				Action: []string{"secretsmanager:GetSecretValue", "secretsmanager:DescribeSecret"},
				Resource: []string{
					arn("arn:aws:secretsmanager:%s:%s:secret:*", region, accountID),
					arn("arn:aws:secretsmanager:%s:%s:secret:SAPDEMOCRED-*", region, accountID),
					arn("arn:aws:secretsmanager:%s:%s:secret:spa-sap-credentials-*", region, accountID),
				},
			},
			{
				Sid:      "KMSDecryptAccess",
				Effect:   "Allow",
				Action:   []string{"kms:Decrypt", "kms:DescribeKey", "kms:GenerateDataKey"},
				Resource: arn("arn:aws:kms:%s:%s:key/*", region, accountID),
			},
		},
	}
}

// managedPolicies are the AWS managed policies attached alongside the custom
// policy.
var managedPolicies = []struct {
	ARN  string
	Name string
}{
	{"arn:aws:iam::aws:policy/AWSLambdaExecute", "AWSLambdaExecute"},
	{"arn:aws:iam::aws:policy/service-role/AWSAppRunnerServicePolicyForECRAccess", "AWSAppRunnerServicePolicyForECRAccess"},
	{"arn:aws:iam::aws:policy/AmazonBedrockLimitedAccess", "AmazonBedrockLimitedAccess"},
	{"arn:aws:iam::aws:policy/AmazonAthenaFullAccess", "AmazonAthenaFullAccess"},
}
