package status

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bee-console/internal/imei"
	"bee-console/internal/observability/metrics"
	"bee-console/internal/roambee"
)

// ErrNoIdentifiers is returned when the run has nothing to reconcile.
var ErrNoIdentifiers = errors.New("status: no identifiers")

// RecordFetcher queries one batch's command records within an epoch window.
type RecordFetcher interface {
	FetchCommandRecords(ctx context.Context, imeis []string, startEpoch, endEpoch int64) (*roambee.CommandPage, error)
}

// Request carries the operator's reconciliation parameters.
type Request struct {
	StartDate string
	EndDate   string
	Bulk      bool
}

// Runner reconciles status batch by batch, strictly in sequence, pacing
// consecutive queries. A failed batch degrades only its own identifiers.
type Runner struct {
	fetcher   RecordFetcher
	logger    *log.Logger
	batchSize int
	delay     time.Duration
	location  *time.Location
	sleep     func(context.Context, time.Duration)
}

// Option customizes a Runner.
type Option func(*Runner)

// WithBatchSize overrides the maximum identifiers per query.
func WithBatchSize(size int) Option {
	return func(r *Runner) {
		if size > 0 {
			r.batchSize = size
		}
	}
}

// WithDelay overrides the minimum delay between consecutive batches.
func WithDelay(delay time.Duration) Option {
	return func(r *Runner) {
		if delay >= 0 {
			r.delay = delay
		}
	}
}

// WithLocation overrides the timezone used for window parsing and timestamp
// rendering. Defaults to local time.
func WithLocation(loc *time.Location) Option {
	return func(r *Runner) {
		if loc != nil {
			r.location = loc
		}
	}
}

// WithSleep overrides the pacing sleep. Tests use a recording no-op.
func WithSleep(sleep func(context.Context, time.Duration)) Option {
	return func(r *Runner) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// NewRunner constructs a status runner. Defaults: 200 identifiers per batch,
// 250ms between batches (4 requests/second).
func NewRunner(fetcher RecordFetcher, logger *log.Logger, opts ...Option) (*Runner, error) {
	if fetcher == nil {
		return nil, errors.New("status: nil fetcher")
	}
	if logger == nil {
		return nil, errors.New("status: nil logger")
	}
	r := &Runner{
		fetcher:   fetcher,
		logger:    logger,
		batchSize: 200,
		delay:     250 * time.Millisecond,
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run reconciles every identifier against the window of req and returns the
// rows in batch-then-within-batch order plus the accumulated counters.
// Window validation errors abort before any network call; batch failures
// never do.
func (r *Runner) Run(ctx context.Context, ids []string, req Request) ([]Result, Counters, error) {
	window, err := ParseWindow(req.StartDate, req.EndDate, r.location)
	if err != nil {
		return nil, Counters{}, err
	}
	if len(ids) == 0 {
		return nil, Counters{}, ErrNoIdentifiers
	}

	interpreter := Interpreter{Bulk: req.Bulk, Location: r.location}
	batches := imei.Batches(ids, r.batchSize)

	var counters Counters
	results := make([]Result, 0, len(ids))

	for i, batch := range batches {
		if i > 0 {
			r.sleep(ctx, r.delay)
		}

		r.logger.Printf("status: checking %d devices (batch %d/%d)", len(batch), i+1, len(batches))

		start := time.Now()
		page, err := r.fetcher.FetchCommandRecords(ctx, batch, window.StartEpoch(), window.EndEpoch())
		if err != nil {
			metrics.ObserveRemoteCall("status", metrics.ResultError, time.Since(start))
			metrics.IncReconcileBatch(metrics.ResultError)
			r.logger.Printf("status: batch %d/%d error: %v", i+1, len(batches), err)
			rows, batchCounters := interpreter.FailBatch(batch, failureMessage(err))
			results = append(results, rows...)
			counters.Add(batchCounters)
			recordBuckets(batchCounters)
			continue
		}
		metrics.ObserveRemoteCall("status", metrics.ResultSuccess, time.Since(start))
		metrics.IncReconcileBatch(metrics.ResultSuccess)

		rows, batchCounters := interpreter.InterpretBatch(batch, page)
		results = append(results, rows...)
		counters.Add(batchCounters)
		recordBuckets(batchCounters)
	}

	return results, counters, nil
}

// failureMessage renders a batch failure the way rows report it: remote
// rejections cite the HTTP status with a bounded body excerpt, malformed
// bodies cite the decode problem, transport failures pass through.
func failureMessage(err error) string {
	var apiErr *roambee.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("API Error: %d - %s", apiErr.StatusCode, truncate(apiErr.Body, 100))
	}
	if errors.Is(err, roambee.ErrMalformedResponse) {
		return fmt.Sprintf("Invalid response format: %v", err)
	}
	return err.Error()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func recordBuckets(c Counters) {
	for bucket, count := range c.Buckets() {
		metrics.AddStatusRows(bucket, count)
	}
}

func sleepContext(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
