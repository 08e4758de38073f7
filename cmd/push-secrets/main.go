// push-secrets pushes the SAP credentials from a .env file to AWS Secrets
// Manager, where the RFQ Lambda reads them at invoke time.
//
// It reads KEY=VALUE pairs and stores the SAP keys (SAPUSER, SAPPASSWORD)
// as one JSON secret.
//
// Usage:
//
//	push-secrets [flags] [env-file]
//
// Examples:
//
//	push-secrets .env                              # Push from .env
//	push-secrets -region eu-west-1 .env            # Push to specific region
//	push-secrets -secret-name spa-sap-credentials-dev .env
//	push-secrets -dry-run .env                     # Preview without creating
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"

	"github.com/spasystems/spa-multiagent/deploy"
)

// sapKeys are the credentials the RFQ Lambda expects in the secret.
var sapKeys = []string{"SAPUSER", "SAPPASSWORD"}

var (
	region     = flag.String("region", "", "AWS region (default: AWS_REGION or us-east-1)")
	secretName = flag.String("secret-name", deploy.DefaultSecretName, "Secrets Manager secret name")
	dryRun     = flag.Bool("dry-run", false, "Preview changes without creating secrets")
	verbose    = flag.Bool("verbose", false, "Show verbose output")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [env-file]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Push SAP credentials to AWS Secrets Manager.\n\n")
		fmt.Fprintf(os.Stderr, "If env-file is not specified, .env then ../.env are tried.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nSecret keys: %s\n", strings.Join(sapKeys, ", "))
	}
	flag.Parse()

	envFile := flag.Arg(0)
	if envFile == "" {
		for _, candidate := range []string{".env", "../.env"} {
			if _, err := os.Stat(candidate); err == nil {
				envFile = candidate
				break
			}
		}
		if envFile == "" {
			fmt.Fprintln(os.Stderr, "Error: no .env file found in . or ..")
			os.Exit(1)
		}
	}

	awsRegion := *region
	if awsRegion == "" {
		awsRegion = os.Getenv("AWS_REGION")
	}
	if awsRegion == "" {
		awsRegion = os.Getenv("AWS_DEFAULT_REGION")
	}
	if awsRegion == "" {
		awsRegion = "us-east-1"
	}

	if err := run(envFile, awsRegion); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(envFile, region string) error {
	fmt.Printf("Reading from: %s\n", envFile)
	creds, err := parseEnvFile(envFile)
	if err != nil {
		return fmt.Errorf("parsing env file: %w", err)
	}
	if len(creds) == 0 {
		return fmt.Errorf("no SAP credentials found in %s (expected %s)", envFile, strings.Join(sapKeys, ", "))
	}

	fmt.Printf("AWS Region: %s\n", region)
	fmt.Printf("Secret: %s\n", *secretName)
	if *dryRun {
		fmt.Println("Mode: DRY RUN (no changes will be made)")
	}
	fmt.Println()

	payload, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("marshaling secret: %w", err)
	}

	var keyNames []string
	for k := range creds {
		keyNames = append(keyNames, k)
	}
	fmt.Printf("Keys: %s\n", strings.Join(keyNames, ", "))

	if *dryRun {
		fmt.Printf("[DRY RUN] Would create/update with: %s\n", maskValues(string(payload)))
		return nil
	}

	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}
	client := secretsmanager.NewFromConfig(cfg)

	ctx := context.Background()
	_, err = client.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(*secretName),
		SecretString: aws.String(string(payload)),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if !errors.As(err, &notFound) {
			return fmt.Errorf("updating secret: %w", err)
		}
		_, err = client.CreateSecret(ctx, &secretsmanager.CreateSecretInput{
			Name:         aws.String(*secretName),
			Description:  aws.String("SAP credentials for RFQ creation"),
			SecretString: aws.String(string(payload)),
		})
		if err != nil {
			return fmt.Errorf("creating secret: %w", err)
		}
		fmt.Println("Created new secret")
		return nil
	}

	fmt.Println("Updated existing secret")
	return nil
}

// parseEnvFile pulls the SAP keys out of a KEY=VALUE file.
func parseEnvFile(filename string) (map[string]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	envRegex := regexp.MustCompile(`^\s*(export\s+)?([A-Za-z_][A-Za-z0-9_]*)=(.*)$`)
	creds := make(map[string]string)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		matches := envRegex.FindStringSubmatch(line)
		if matches == nil {
			continue
		}

		key := matches[2]
		value := strings.Trim(matches[3], `"'`)
		if value == "" || strings.HasPrefix(value, "your-") {
			continue
		}

		for _, want := range sapKeys {
			if key == want {
				creds[key] = value
				if *verbose {
					fmt.Printf("  Found %s\n", key)
				}
				break
			}
		}
	}

	return creds, scanner.Err()
}

// maskValues hides all but the first two characters of each value.
func maskValues(jsonStr string) string {
	re := regexp.MustCompile(`("\w+"\s*:\s*")([^"]{2})([^"]*)"`)
	return re.ReplaceAllString(jsonStr, `$1$2***"`)
}
