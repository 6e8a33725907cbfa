package status

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"testing"
	"time"

	"bee-console/internal/roambee"
)

type fetchCall struct {
	imeis      []string
	startEpoch int64
	endEpoch   int64
}

type scriptedFetcher struct {
	mu    sync.Mutex
	calls []fetchCall
	pages []*roambee.CommandPage
	errs  []error
}

func (f *scriptedFetcher) FetchCommandRecords(ctx context.Context, imeis []string, startEpoch, endEpoch int64) (*roambee.CommandPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.calls)
	f.calls = append(f.calls, fetchCall{imeis: append([]string(nil), imeis...), startEpoch: startEpoch, endEpoch: endEpoch})
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.pages) {
		return f.pages[i], nil
	}
	return &roambee.CommandPage{}, nil
}

func pageFor(ids ...string) *roambee.CommandPage {
	page := &roambee.CommandPage{Total: len(ids)}
	for _, id := range ids {
		page.Data = append(page.Data, record(id, 3))
	}
	return page
}

func newTestStatusRunner(t *testing.T, fetcher RecordFetcher, sleeps *[]time.Duration, opts ...Option) *Runner {
	t.Helper()
	base := []Option{
		WithLocation(time.UTC),
		WithSleep(func(ctx context.Context, d time.Duration) { *sleeps = append(*sleeps, d) }),
	}
	r, err := NewRunner(fetcher, log.New(io.Discard, "", 0), append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func TestRunPartitionsAndPaces(t *testing.T) {
	fetcher := &scriptedFetcher{pages: []*roambee.CommandPage{
		pageFor("111111111111", "222222222222"),
		pageFor("333333333333"),
	}}
	var sleeps []time.Duration
	r := newTestStatusRunner(t, fetcher, &sleeps, WithBatchSize(2))

	ids := []string{"111111111111", "222222222222", "333333333333"}
	results, counters, err := r.Run(context.Background(), ids, Request{
		StartDate: "2025-01-01 00:00:00",
		EndDate:   "2025-01-02 00:00:00",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(fetcher.calls) != 2 {
		t.Fatalf("expected 2 batch calls, got %d", len(fetcher.calls))
	}
	if got := fetcher.calls[0].imeis; len(got) != 2 || got[0] != "111111111111" {
		t.Fatalf("unexpected first batch: %v", got)
	}
	if fetcher.calls[0].startEpoch != 1735689600 || fetcher.calls[0].endEpoch != 1735776000 {
		t.Fatalf("unexpected window epochs: %+v", fetcher.calls[0])
	}
	if len(results) != 3 || counters.Completed != 3 {
		t.Fatalf("expected 3 completed rows, got %d rows counters %+v", len(results), counters)
	}
	if len(sleeps) != 1 || sleeps[0] != 250*time.Millisecond {
		t.Fatalf("expected one 250ms pacing sleep, got %v", sleeps)
	}
}

func TestRunBatchFailureDoesNotAbortOthers(t *testing.T) {
	fetcher := &scriptedFetcher{
		pages: []*roambee.CommandPage{
			pageFor("111111111111"),
			nil,
			pageFor("333333333333"),
		},
		errs: []error{nil, errors.New("dial tcp: i/o timeout"), nil},
	}
	var sleeps []time.Duration
	r := newTestStatusRunner(t, fetcher, &sleeps, WithBatchSize(1))

	ids := []string{"111111111111", "222222222222", "333333333333"}
	results, counters, err := r.Run(context.Background(), ids, Request{
		StartDate: "2025-01-01 00:00:00",
		EndDate:   "2025-01-02 00:00:00",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(results))
	}
	if results[0].Status != StatusCompleted || results[2].Status != StatusCompleted {
		t.Fatalf("healthy batches must survive: %+v", results)
	}
	failed := results[1]
	if failed.IMEI != "222222222222" || failed.Status != StatusError {
		t.Fatalf("unexpected degraded row: %+v", failed)
	}
	if failed.Message != "dial tcp: i/o timeout" {
		t.Fatalf("unexpected failure message: %q", failed.Message)
	}
	if counters.Completed != 2 || counters.Failed != 1 {
		t.Fatalf("unexpected counters: %+v", counters)
	}
	if len(sleeps) != 2 {
		t.Fatalf("pacing must also cover failed batches, got %d sleeps", len(sleeps))
	}
}

func TestRunRejectsBadWindowBeforeFetching(t *testing.T) {
	fetcher := &scriptedFetcher{}
	var sleeps []time.Duration
	r := newTestStatusRunner(t, fetcher, &sleeps)

	_, _, err := r.Run(context.Background(), []string{"111111111111"}, Request{
		StartDate: "01/01/2025",
		EndDate:   "2025-01-02 00:00:00",
	})
	if !errors.Is(err, ErrInvalidDateFormat) {
		t.Fatalf("expected ErrInvalidDateFormat, got %v", err)
	}
	if len(fetcher.calls) != 0 {
		t.Fatalf("window validation must precede any fetch, got %d calls", len(fetcher.calls))
	}
}

func TestRunRejectsEmptyInput(t *testing.T) {
	fetcher := &scriptedFetcher{}
	var sleeps []time.Duration
	r := newTestStatusRunner(t, fetcher, &sleeps)

	_, _, err := r.Run(context.Background(), nil, Request{
		StartDate: "2025-01-01 00:00:00",
		EndDate:   "2025-01-02 00:00:00",
	})
	if !errors.Is(err, ErrNoIdentifiers) {
		t.Fatalf("expected ErrNoIdentifiers, got %v", err)
	}
}

func TestFailureMessageFormats(t *testing.T) {
	apiErr := &roambee.APIError{StatusCode: 502, Body: strings.Repeat("x", 150)}
	got := failureMessage(apiErr)
	want := fmt.Sprintf("API Error: 502 - %s", strings.Repeat("x", 100))
	if got != want {
		t.Fatalf("expected truncated api error, got %q", got)
	}

	wrapped := fmt.Errorf("%w: unexpected end of JSON input", roambee.ErrMalformedResponse)
	got = failureMessage(wrapped)
	if !strings.HasPrefix(got, "Invalid response format: ") {
		t.Fatalf("unexpected malformed-response message: %q", got)
	}

	if got := failureMessage(errors.New("plain")); got != "plain" {
		t.Fatalf("unexpected passthrough message: %q", got)
	}
}
