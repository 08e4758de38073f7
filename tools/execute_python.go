package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Presigner mints presigned PUT URLs so the interpreter sandbox can upload
// charts without AWS credentials.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// CodeRunner executes Python in a sandbox and returns the combined
// stdout/stderr output.
type CodeRunner interface {
	Run(ctx context.Context, code string) (string, error)
}

const presignExpiry = 5 * time.Minute

// uploadSnippet is appended to the model's code. It pushes the rendered
// chart through the presigned URL and prints markers the tool scans for.
const uploadSnippet = `
import requests
import os

try:
    chart_path = '/tmp/chart.png' if os.path.exists('/tmp/chart.png') else 'chart.png'

    with open(chart_path, 'rb') as f:
        response = requests.put(
            '%s',
            data=f.read(),
            headers={'Content-Type': 'image/png'}
        )

    if response.status_code == 200:
        print("[S3_SUCCESS]")
    else:
        print(f"[S3_ERROR]HTTP {response.status_code}[/S3_ERROR]")
except Exception as e:
    print(f"[S3_ERROR]{str(e)}[/S3_ERROR]")
`

// ExecutePython runs model-written chart code in the code interpreter and
// publishes the resulting PNG to the visualization bucket.
type ExecutePython struct {
	runner    CodeRunner
	presigner Presigner
	bucket    string

	newChartKey func() string
}

func NewExecutePython(runner CodeRunner, presigner Presigner, bucket string) *ExecutePython {
	return &ExecutePython{
		runner:    runner,
		presigner: presigner,
		bucket:    bucket,
		newChartKey: func() string {
			hex := strings.ReplaceAll(uuid.NewString(), "-", "")
			return "visualizations/chart_" + hex[:8] + ".png"
		},
	}
}

func (t *ExecutePython) Name() string { return "execute_python" }

func (t *ExecutePython) Description() string {
	return "Execute Python code in the code interpreter. Charts are uploaded to S3 and returned as an [IMAGE] tag."
}

func (t *ExecutePython) InputSchema() map[string]any {
	return objectSchema(map[string]string{
		"code": "Python code to execute, typically matplotlib chart code",
	}, "code")
}

func (t *ExecutePython) Invoke(ctx context.Context, args map[string]any) string {
	code := stringArg(args, "code")
	key := t.newChartKey()

	presigned, err := t.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(t.bucket),
		Key:         aws.String(key),
		ContentType: aws.String("image/png"),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = presignExpiry
	})
	if err != nil {
		log.Error().Err(err).Msg("presigning chart upload failed")
		return fmt.Sprintf("Error: %v", err)
	}

	code = ensureSavefig(code)
	fullCode := code + fmt.Sprintf(uploadSnippet, presigned.URL)

	log.Info().Str("key", key).Msg("executing code with chart upload")
	output, err := t.runner.Run(ctx, fullCode)
	if err != nil {
		log.Error().Err(err).Msg("code interpreter execution failed")
		return fmt.Sprintf("Error: %v", err)
	}

	if msg, ok := uploadError(output); ok {
		log.Error().Str("error", msg).Msg("chart upload failed in sandbox")
	}
	if !strings.Contains(output, "[S3_SUCCESS]") {
		return fmt.Sprintf("Code executed but chart upload failed. Output: %s", truncate(output, 500))
	}

	s3URL := fmt.Sprintf("s3://%s/%s", t.bucket, key)
	log.Info().Str("url", s3URL).Msg("chart uploaded")
	return fmt.Sprintf("[CODE_START]\n%s\n[CODE_END]\n[EXEC_START]\nCode executed successfully\n[EXEC_END]\n[IMAGE]%s[/IMAGE]", code, s3URL)
}

// ensureSavefig makes sure the chart lands on disk for the upload snippet.
// Code that already calls plt.savefig is left alone; plt.show is swapped for
// a savefig, and code doing neither gets one appended.
func ensureSavefig(code string) string {
	if strings.Contains(code, "plt.savefig") {
		return code
	}
	if strings.Contains(code, "plt.show()") {
		return strings.ReplaceAll(code, "plt.show()", "plt.savefig('chart.png', bbox_inches='tight', dpi=150)")
	}
	return code + "\nplt.savefig('chart.png', bbox_inches='tight', dpi=150)\n"
}

func uploadError(output string) (string, bool) {
	_, after, found := strings.Cut(output, "[S3_ERROR]")
	if !found {
		return "", false
	}
	msg, _, _ := strings.Cut(after, "[/S3_ERROR]")
	return msg, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
