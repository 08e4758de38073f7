// Package crawler runs the Glue crawlers that keep the Athena catalog in
// sync with the supplier data lake.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/glue/types"
	"github.com/rs/zerolog/log"
)

const defaultPollInterval = 10 * time.Second

// API is the Glue subset the runner needs.
type API interface {
	StartCrawler(ctx context.Context, params *glue.StartCrawlerInput, optFns ...func(*glue.Options)) (*glue.StartCrawlerOutput, error)
	GetCrawler(ctx context.Context, params *glue.GetCrawlerInput, optFns ...func(*glue.Options)) (*glue.GetCrawlerOutput, error)
}

// Runner starts crawlers and waits for them to settle.
type Runner struct {
	client       API
	pollInterval time.Duration
}

func NewRunner(client API) *Runner {
	return &Runner{client: client, pollInterval: defaultPollInterval}
}

// Start kicks off a crawler. One that is already running is left alone.
func (r *Runner) Start(ctx context.Context, name string) error {
	_, err := r.client.StartCrawler(ctx, &glue.StartCrawlerInput{Name: aws.String(name)})
	if err != nil {
		var running *types.CrawlerRunningException
		if errors.As(err, &running) {
			log.Warn().Str("crawler", name).Msg("crawler already running")
			return nil
		}
		return fmt.Errorf("starting crawler %s: %w", name, err)
	}
	log.Info().Str("crawler", name).Msg("crawler started")
	return nil
}

// Wait polls until the crawler returns to READY. States other than RUNNING
// and STOPPING end the wait with a warning rather than an error, matching
// how the data team runs these by hand.
func (r *Runner) Wait(ctx context.Context, name string) error {
	for {
		out, err := r.client.GetCrawler(ctx, &glue.GetCrawlerInput{Name: aws.String(name)})
		if err != nil {
			return fmt.Errorf("checking crawler %s: %w", name, err)
		}

		state := out.Crawler.State
		switch state {
		case types.CrawlerStateReady:
			log.Info().Str("crawler", name).Msg("crawler finished")
			return nil
		case types.CrawlerStateRunning, types.CrawlerStateStopping:
			log.Info().Str("crawler", name).Str("state", string(state)).Msg("crawler still working")
		default:
			log.Warn().Str("crawler", name).Str("state", string(state)).Msg("crawler in unexpected state, not waiting further")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
}

// StartAll starts every crawler. A crawler that fails to start is logged
// and skipped so the rest still run. Returns the names that started.
func (r *Runner) StartAll(ctx context.Context, names []string) []string {
	var started []string
	for _, name := range names {
		if err := r.Start(ctx, name); err != nil {
			log.Error().Err(err).Str("crawler", name).Msg("skipping crawler")
			continue
		}
		started = append(started, name)
	}
	return started
}

// RunAll starts every crawler, then waits for each one that started.
func (r *Runner) RunAll(ctx context.Context, names []string) error {
	for _, name := range r.StartAll(ctx, names) {
		if err := r.Wait(ctx, name); err != nil {
			return err
		}
	}
	return nil
}
