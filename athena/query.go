// Package athena runs SQL queries through Amazon Athena and renders the
// results as plain text for the agent.
package athena

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/rs/zerolog/log"
)

const (
	// statusInterval is how often a running query is re-checked.
	statusInterval = time.Second

	// maxStatusChecks bounds the wait: queries the agent issues are
	// interactive and must not hang a conversation.
	maxStatusChecks = 30
)

// API is the subset of the Athena client the runner needs.
type API interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, params *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
}

// Runner executes queries against a fixed output location.
type Runner struct {
	client         API
	outputLocation string
}

// NewRunner creates a Runner writing results to the given s3:// location.
func NewRunner(client API, outputLocation string) *Runner {
	return &Runner{client: client, outputLocation: outputLocation}
}

// Query runs sql in the named database, waits for completion and returns the
// result rows as tab-separated lines. An empty result set returns "".
func (r *Runner) Query(ctx context.Context, database, sql string) (string, error) {
	start, err := r.client.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString:           aws.String(sql),
		QueryExecutionContext: &types.QueryExecutionContext{Database: aws.String(database)},
		ResultConfiguration:   &types.ResultConfiguration{OutputLocation: aws.String(r.outputLocation)},
	})
	if err != nil {
		return "", fmt.Errorf("starting query: %w", err)
	}
	executionID := aws.ToString(start.QueryExecutionId)

	state, reason, err := r.waitForQuery(ctx, executionID)
	if err != nil {
		return "", err
	}
	if state != types.QueryExecutionStateSucceeded {
		return "", fmt.Errorf("query failed: %s", reason)
	}

	results, err := r.client.GetQueryResults(ctx, &athena.GetQueryResultsInput{
		QueryExecutionId: aws.String(executionID),
	})
	if err != nil {
		return "", fmt.Errorf("fetching results: %w", err)
	}

	return FormatRows(results.ResultSet), nil
}

// waitForQuery polls until the query reaches a terminal state or the check
// budget runs out. It returns the final state and, on failure, the state
// change reason.
func (r *Runner) waitForQuery(ctx context.Context, executionID string) (types.QueryExecutionState, string, error) {
	var state types.QueryExecutionState
	var reason string

	for i := 0; i < maxStatusChecks; i++ {
		out, err := r.client.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
			QueryExecutionId: aws.String(executionID),
		})
		if err != nil {
			return "", "", fmt.Errorf("checking query status: %w", err)
		}

		status := out.QueryExecution.Status
		state = status.State
		reason = aws.ToString(status.StateChangeReason)
		if reason == "" {
			reason = "Unknown error"
		}

		switch state {
		case types.QueryExecutionStateSucceeded,
			types.QueryExecutionStateFailed,
			types.QueryExecutionStateCancelled:
			return state, reason, nil
		}

		select {
		case <-ctx.Done():
			return "", "", ctx.Err()
		case <-time.After(statusInterval):
		}
	}

	log.Warn().Str("execution_id", executionID).Msg("athena query still running after wait budget")
	return state, reason, nil
}

// FormatRows renders a result set as one tab-separated line per row. Each
// cell takes the first non-empty datum value.
func FormatRows(rs *types.ResultSet) string {
	if rs == nil || len(rs.Rows) == 0 {
		return ""
	}

	lines := make([]string, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		cells := make([]string, 0, len(row.Data))
		for _, datum := range row.Data {
			cells = append(cells, aws.ToString(datum.VarCharValue))
		}
		lines = append(lines, strings.Join(cells, "\t"))
	}
	return strings.Join(lines, "\n")
}
