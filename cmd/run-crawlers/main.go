// run-crawlers starts the Glue crawlers feeding the Athena catalog and
// waits for them to finish.
//
// Usage:
//
//	run-crawlers                                   # default SAP + compliance crawlers
//	run-crawlers -crawlers a,b,c                   # explicit crawler list
//	run-crawlers -no-wait                          # start without waiting
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/glue"

	"github.com/spasystems/spa-multiagent/crawler"
	"github.com/spasystems/spa-multiagent/logging"
)

// defaultCrawlers keep the SAP data and compliance tables current.
var defaultCrawlers = []string{
	"ChatApp-sap-data-crawler",
	"ChatApp-comp-data-crawler",
}

var (
	region   = flag.String("region", "", "AWS region (default: AWS_REGION)")
	crawlers = flag.String("crawlers", "", "Comma separated crawler names (default: SAP and compliance crawlers)")
	noWait   = flag.Bool("no-wait", false, "Start crawlers without waiting for completion")
	verbose  = flag.Bool("verbose", false, "Show debug logging")
)

func main() {
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	logging.Init(logging.Config{Level: level, Console: true, Component: "run-crawlers"})

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	names := defaultCrawlers
	if *crawlers != "" {
		names = nil
		for _, name := range strings.Split(*crawlers, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}

	ctx := context.Background()
	var opts []func(*awsconfig.LoadOptions) error
	if *region != "" {
		opts = append(opts, awsconfig.WithRegion(*region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}

	runner := crawler.NewRunner(glue.NewFromConfig(awsCfg))

	if *noWait {
		runner.StartAll(ctx, names)
		return nil
	}

	if err := runner.RunAll(ctx, names); err != nil {
		return err
	}
	fmt.Println("All crawlers completed")
	return nil
}
