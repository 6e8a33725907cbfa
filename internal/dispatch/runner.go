package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"bee-console/internal/imei"
	"bee-console/internal/observability/metrics"
)

const timeFormat = "2006-01-02 15:04:05"

// ErrNoCommand is returned when the command string is empty after trimming.
var ErrNoCommand = errors.New("dispatch: command required")

// ErrNoIdentifiers is returned when the run has nothing to dispatch to.
var ErrNoIdentifiers = errors.New("dispatch: no identifiers")

// Sender issues one batch send call against the fleet platform. A non-nil
// error means the call produced no HTTP response at all.
type Sender interface {
	SendCommands(ctx context.Context, imeis []string, command string) (statusCode int, body []byte, err error)
}

// Clock supplies row timestamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Runner processes batches strictly in sequence, pacing consecutive calls to
// respect the platform rate limit. A failed batch is recorded and never
// retried; later batches proceed regardless.
type Runner struct {
	sender    Sender
	logger    *log.Logger
	batchSize int
	delay     time.Duration
	clock     Clock
	sleep     func(context.Context, time.Duration)
}

// Option customizes a Runner.
type Option func(*Runner)

// WithBatchSize overrides the maximum identifiers per send call.
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

// WithClock overrides the row timestamp source.
func WithClock(clock Clock) Option {
	return func(r *Runner) {
		if clock != nil {
			r.clock = clock
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

// NewRunner constructs a dispatch runner. Defaults: 200 identifiers per
// batch, 250ms between batches (4 requests/second).
func NewRunner(sender Sender, logger *log.Logger, opts ...Option) (*Runner, error) {
	if sender == nil {
		return nil, errors.New("dispatch: nil sender")
	}
	if logger == nil {
		return nil, errors.New("dispatch: nil logger")
	}
	r := &Runner{
		sender:    sender,
		logger:    logger,
		batchSize: 200,
		delay:     250 * time.Millisecond,
		clock:     systemClock{},
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run broadcasts command to every identifier, one batch per send call, and
// returns one result row per identifier in input order.
func (r *Runner) Run(ctx context.Context, ids []string, command string) ([]Result, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, ErrNoCommand
	}
	if len(ids) == 0 {
		return nil, ErrNoIdentifiers
	}

	batches := imei.Batches(ids, r.batchSize)
	results := make([]Result, 0, len(ids))

	for i, batch := range batches {
		if i > 0 {
			r.sleep(ctx, r.delay)
		}

		r.logger.Printf("dispatch: sending command to %d devices (batch %d/%d)", len(batch), i+1, len(batches))

		start := r.clock.Now()
		statusCode, body, err := r.sender.SendCommands(ctx, batch, command)
		if err != nil {
			metrics.ObserveRemoteCall("send", metrics.ResultError, r.clock.Now().Sub(start))
			metrics.IncDispatchBatch(metrics.ResultError)
			detail := fmt.Sprintf("Request failed: %v", err)
			r.logger.Printf("dispatch: batch %d/%d error: %v", i+1, len(batches), err)
			results = r.appendBatch(results, batch, command, Outcome{Status: StatusError, Detail: detail})
			continue
		}
		metrics.ObserveRemoteCall("send", metrics.ResultSuccess, r.clock.Now().Sub(start))

		outcome := Classify(statusCode, body)
		if outcome.Status == StatusSuccess {
			metrics.IncDispatchBatch(metrics.ResultSuccess)
		} else {
			metrics.IncDispatchBatch(metrics.ResultFailed)
			r.logger.Printf("dispatch: batch %d/%d failed: %s", i+1, len(batches), outcome.Detail)
		}
		results = r.appendBatch(results, batch, command, outcome)
	}

	return results, nil
}

func (r *Runner) appendBatch(results []Result, batch []string, command string, outcome Outcome) []Result {
	timestamp := r.clock.Now().Format(timeFormat)
	for _, id := range batch {
		results = append(results, Result{
			IMEI:      id,
			Command:   command,
			Status:    outcome.Status,
			Detail:    outcome.Detail,
			Timestamp: timestamp,
		})
	}
	metrics.AddDispatchRows(strings.ToLower(outcome.Status), len(batch))
	return results
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
