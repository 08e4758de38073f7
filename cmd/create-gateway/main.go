// create-gateway provisions the AgentCore MCP gateway that fronts the SAP
// RFQ Lambda, and writes gateway_config.json for the deploy step.
//
// Usage:
//
//	create-gateway -lambda-arn arn:aws:lambda:...:function:create-rfq \
//	    -user-pool-id eu-west-1_AbCd1234 -client-id <cognito app client>
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/joho/godotenv"

	"github.com/spasystems/spa-multiagent/gateway"
	"github.com/spasystems/spa-multiagent/logging"
)

var (
	region     = flag.String("region", "", "AWS region (default: AWS_REGION)")
	lambdaARN  = flag.String("lambda-arn", "", "ARN of the RFQ Lambda (default: RFQ_LAMBDA_ARN)")
	userPoolID = flag.String("user-pool-id", "", "Cognito user pool for gateway auth (default: GATEWAY_USER_POOL_ID)")
	clientID   = flag.String("client-id", "", "Cognito app client allowed to call the gateway (default: GATEWAY_COGNITO_CLIENT_ID)")
	outPath    = flag.String("out", "gateway_config.json", "Where to write the gateway config")
	verbose    = flag.Bool("verbose", false, "Show debug logging")
)

func main() {
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	logging.Init(logging.Config{Level: level, Console: true, Component: "create-gateway"})

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	fromEnv := func(flagValue *string, key string) string {
		if *flagValue != "" {
			return *flagValue
		}
		return os.Getenv(key)
	}

	awsRegion := fromEnv(region, "AWS_REGION")
	arn := fromEnv(lambdaARN, "RFQ_LAMBDA_ARN")
	pool := fromEnv(userPoolID, "GATEWAY_USER_POOL_ID")
	client := fromEnv(clientID, "GATEWAY_COGNITO_CLIENT_ID")
	if arn == "" || pool == "" || client == "" {
		return fmt.Errorf("lambda-arn, user-pool-id and client-id are required")
	}

	ctx := context.Background()
	var opts []func(*awsconfig.LoadOptions) error
	if awsRegion != "" {
		opts = append(opts, awsconfig.WithRegion(awsRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}

	identity, err := sts.NewFromConfig(awsCfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("getting AWS identity: %w", err)
	}

	p := gateway.NewProvisioner(
		bedrockagentcorecontrol.NewFromConfig(awsCfg),
		iam.NewFromConfig(awsCfg),
		lambda.NewFromConfig(awsCfg),
		awsCfg.Region,
		*identity.Account,
	)

	result, err := p.Provision(ctx, arn, pool, client)
	if err != nil {
		return err
	}

	if err := gateway.SaveConfig(*outPath, result); err != nil {
		return err
	}

	fmt.Println("=== Gateway Ready ===")
	fmt.Printf("Gateway ID:  %s\n", result.GatewayID)
	fmt.Printf("Gateway URL: %s\n", result.GatewayURL)
	return nil
}
