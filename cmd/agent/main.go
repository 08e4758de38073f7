// agent is the SPA Multi-Agent System runtime container entrypoint. It
// serves the AgentCore HTTP contract on :8080.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcore"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentcorecontrol"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/spasystems/spa-multiagent/agent"
	athenaquery "github.com/spasystems/spa-multiagent/athena"
	"github.com/spasystems/spa-multiagent/logging"
	"github.com/spasystems/spa-multiagent/mcpgw"
	"github.com/spasystems/spa-multiagent/memory"
	"github.com/spasystems/spa-multiagent/tools"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := agent.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Component: "agent"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}

	// Memory is best effort: the agent answers without history rather than
	// refusing to start.
	var store *memory.Store
	memoryID, err := memory.Resolve(ctx, bedrockagentcorecontrol.NewFromConfig(awsCfg), cfg.MemoryID, cfg.MemoryName)
	if err != nil {
		log.Warn().Err(err).Msg("memory setup failed, running without conversation history")
	} else {
		store = memory.NewStore(bedrockagentcore.NewFromConfig(awsCfg), memoryID, cfg.MemoryContextTurns)
	}

	var gatewayClient agent.GatewayClient
	if gwCfg := cfg.GatewayConfig(); gwCfg.Enabled() {
		client := mcpgw.NewClient(gwCfg)
		if err := client.Connect(ctx); err != nil {
			log.Warn().Err(err).Msg("gateway connection failed, remote RFQ tools unavailable")
		} else {
			defer client.Close()
			gatewayClient = client
		}
	} else {
		log.Warn().Msg("gateway not configured, remote RFQ tools unavailable")
	}

	s3Client := s3.NewFromConfig(awsCfg)
	queries := athenaquery.NewRunner(athena.NewFromConfig(awsCfg), cfg.S3OutputBucket)

	registry := tools.NewRegistry(
		tools.NewSchemaLookup(bedrockagentruntime.NewFromConfig(awsCfg), cfg.KnowledgeBaseID),
		tools.NewQueryAthena(queries, cfg.AthenaDatabase),
		tools.NewFinancialPerformance(queries, cfg.AthenaDatabase),
		tools.NewQualityMetrics(queries, cfg.AthenaDatabase),
		tools.NewVendorCompliance(queries, cfg.ComplianceDatabase),
		tools.NewValidateRFQ(),
		tools.NewExecutePython(
			tools.NewInterpreter(bedrockagentcore.NewFromConfig(awsCfg)),
			s3.NewPresignClient(s3Client),
			cfg.InterpreterBucket,
		),
	)

	engine := agent.NewEngine(
		bedrockruntime.NewFromConfig(awsCfg),
		cfg.ModelID,
		registry,
		gatewayClient,
		store,
	)

	return agent.NewServer(engine, cfg.ListenAddr).Run(ctx)
}
