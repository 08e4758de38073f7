// deploy provisions the SPA Multi-Agent System on AWS AgentCore.
//
// It handles:
//  1. Verifying the Athena output bucket
//  2. Creating the execution role and its policy
//  3. Creating the code interpreter bucket
//  4. Creating a fresh AgentCore memory
//  5. Launching the agent runtime with Cognito inbound auth
//  6. Writing the deployment record
//
// Usage:
//
//	deploy [flags]
//
// Examples:
//
//	deploy -config deploy.json               # Deploy from a config file
//	deploy -region eu-west-1                 # Override the region
//	deploy -dry-run                          # Preview without deploying
//	deploy -auto-update                      # Update an existing runtime in place
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/joho/godotenv"

	"github.com/spasystems/spa-multiagent/deploy"
	"github.com/spasystems/spa-multiagent/logging"
)

var (
	configPath = flag.String("config", "deploy.json", "Path to the deployment config file")
	region     = flag.String("region", "", "AWS region (default: config file, then AWS_REGION)")
	infoPath   = flag.String("info", "", "Deployment record path (default: <agent>_deployment.json)")
	gatewayCfg = flag.String("gateway-config", "gateway_config.json", "Gateway config written by create-gateway (optional)")
	dryRun     = flag.Bool("dry-run", false, "Preview changes without deploying")
	autoUpdate = flag.Bool("auto-update", false, "Update an existing runtime with the same name instead of failing")
	verbose    = flag.Bool("verbose", false, "Show debug logging")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Deploy the SPA Multi-Agent System to AWS AgentCore.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nSteps:\n")
		fmt.Fprintf(os.Stderr, "  1. Verify Athena output bucket\n")
		fmt.Fprintf(os.Stderr, "  2. Create execution role\n")
		fmt.Fprintf(os.Stderr, "  3. Create code interpreter bucket\n")
		fmt.Fprintf(os.Stderr, "  4. Create AgentCore memory\n")
		fmt.Fprintf(os.Stderr, "  5. Launch runtime with Cognito inbound auth\n")
		fmt.Fprintf(os.Stderr, "  6. Write deployment record\n")
	}
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	logging.Init(logging.Config{Level: level, Console: true, Component: "deploy"})

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *region != "" {
		cfg.Region = *region
	}
	if *autoUpdate {
		cfg.AutoUpdateOnConflict = true
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	fmt.Println("=== SPA Multi-Agent System Deployment ===")
	fmt.Println()
	fmt.Printf("Region: %s\n", cfg.Region)
	fmt.Printf("Agent: %s\n", cfg.AgentName)
	fmt.Printf("Environment: %s\n", cfg.Environment)
	if *dryRun {
		fmt.Println("Mode: DRY RUN (no changes will be made)")
	}
	fmt.Println()

	ctx := context.Background()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}

	identity, err := sts.NewFromConfig(awsCfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("getting AWS identity: %w", err)
	}
	accountID := *identity.Account
	fmt.Printf("AWS Account: %s\n", accountID)
	fmt.Println()

	if *dryRun {
		return dryRunPlan(cfg, accountID)
	}

	s3Client := s3.NewFromConfig(awsCfg)
	control := bedrockagentcorecontrol.NewFromConfig(awsCfg)

	fmt.Println("=== Step 1: Verify Athena output bucket ===")
	if err := deploy.VerifyOutputBucket(ctx, s3Client, cfg.S3OutputBucket); err != nil {
		return fmt.Errorf("verifying output bucket: %w", err)
	}
	fmt.Println()

	fmt.Println("=== Step 2: Create execution role ===")
	roleARN, err := deploy.NewRoleProvisioner(iam.NewFromConfig(awsCfg)).EnsureExecutionRole(ctx, accountID, cfg.Region)
	if err != nil {
		return fmt.Errorf("creating execution role: %w", err)
	}
	fmt.Printf("Role: %s\n\n", roleARN)

	fmt.Println("=== Step 3: Create code interpreter bucket ===")
	interpreterBucket, err := deploy.EnsureInterpreterBucket(ctx, s3Client, accountID, cfg.Region)
	if err != nil {
		return fmt.Errorf("creating interpreter bucket: %w", err)
	}
	fmt.Printf("Bucket: %s\n\n", interpreterBucket)

	fmt.Println("=== Step 4: Create AgentCore memory ===")
	memoryID, memoryName, err := deploy.CreateMemory(ctx, control, cfg.Environment)
	if err != nil {
		return fmt.Errorf("creating memory: %w", err)
	}
	fmt.Printf("Memory: %s (%s)\n\n", memoryName, memoryID)

	loadGatewayConfig(&cfg)

	fmt.Println("=== Step 5: Launch runtime ===")
	env := deploy.RuntimeEnvironment(cfg, memoryID, memoryName, interpreterBucket)
	launch, err := deploy.LaunchRuntime(ctx, control, cfg, roleARN, env)
	if err != nil {
		return fmt.Errorf("launching runtime: %w", err)
	}
	fmt.Printf("Runtime: %s\n", launch.AgentARN)
	if err := deploy.WaitForRuntime(ctx, control, launch.AgentID); err != nil {
		return err
	}
	fmt.Println()

	fmt.Println("=== Step 6: Write deployment record ===")
	recordPath := *infoPath
	if recordPath == "" {
		recordPath = cfg.AgentName + "_deployment.json"
	}
	info := deploy.Info{
		AgentName:   cfg.AgentName,
		AgentARN:    launch.AgentARN,
		AgentID:     launch.AgentID,
		Environment: cfg.Environment,
		InboundAuth: deploy.InboundAuth{
			Type:         "cognito_jwt",
			UserPoolID:   cfg.CognitoUserPoolID,
			ClientID:     cfg.CognitoClientID,
			DiscoveryURL: deploy.DiscoveryURL(cfg.Region, cfg.CognitoUserPoolID),
		},
		MemoryID: memoryID,
		Config:   cfg,
	}
	if err := deploy.WriteInfo(recordPath, info); err != nil {
		return err
	}
	fmt.Println()

	fmt.Println("=== Deployment Complete ===")
	fmt.Printf("Agent ARN: %s\n", launch.AgentARN)
	return nil
}

// loadConfig reads the deployment config file; a missing file leaves an
// empty config for env-var only setups.
func loadConfig(path string) (deploy.Config, error) {
	// .env keeps secrets like the gateway client secret out of the config file
	_ = godotenv.Load()

	var cfg deploy.Config
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		fmt.Printf("Config file %s not found, using environment only\n", path)
	} else if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	} else if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *deploy.Config) {
	set := func(target *string, key string) {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
	set(&cfg.Region, "AWS_REGION")
	set(&cfg.ContainerImage, "CONTAINER_IMAGE")
	set(&cfg.S3OutputBucket, "S3_OUTPUT_BUCKET")
	set(&cfg.KnowledgeBaseID, "KNOWLEDGE_BASE_ID")
	set(&cfg.SAPURL, "SAP_URL")
	set(&cfg.SecretName, "SECRET_NAME")
	set(&cfg.CognitoUserPoolID, "COGNITO_USER_POOL_ID")
	set(&cfg.CognitoClientID, "COGNITO_CLIENT_ID")
	set(&cfg.Gateway.URL, "GATEWAY_URL")
	set(&cfg.Gateway.ClientID, "GATEWAY_COGNITO_CLIENT_ID")
	set(&cfg.Gateway.ClientSecret, "GATEWAY_COGNITO_CLIENT_SECRET")
	set(&cfg.Gateway.TokenURL, "GATEWAY_TOKEN_URL")
}

// loadGatewayConfig merges the record create-gateway wrote, if present.
// Explicit config and env values win.
func loadGatewayConfig(cfg *deploy.Config) {
	if cfg.Gateway.URL != "" {
		return
	}
	data, err := os.ReadFile(*gatewayCfg)
	if err != nil {
		fmt.Println("No gateway config found, deploying without remote RFQ tools")
		return
	}
	var gw struct {
		GatewayURL string `json:"gateway_url"`
	}
	if err := json.Unmarshal(data, &gw); err == nil && gw.GatewayURL != "" {
		cfg.Gateway.URL = gw.GatewayURL
		fmt.Printf("Using gateway: %s\n", gw.GatewayURL)
	}
}

func dryRunPlan(cfg deploy.Config, accountID string) error {
	fmt.Println("[DRY RUN] Would perform:")
	fmt.Printf("  1. Verify bucket %s\n", cfg.S3OutputBucket)
	fmt.Printf("  2. Ensure role %s\n", deploy.ExecutionRoleName)
	fmt.Printf("  3. Ensure bucket %s\n", deploy.InterpreterBucketName(accountID))
	fmt.Printf("  4. Create memory for environment %s\n", cfg.Environment)
	fmt.Printf("  5. Launch runtime %s from %s\n", cfg.AgentName, cfg.ContainerImage)
	fmt.Printf("  6. Write %s_deployment.json\n", cfg.AgentName)
	return nil
}
