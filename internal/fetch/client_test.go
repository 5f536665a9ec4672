package fetch_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jonesrussell/grantpull/internal/config"
	"github.com/jonesrussell/grantpull/internal/fetch"
	"github.com/jonesrussell/grantpull/internal/logger"
)

// scriptedDoer returns canned responses in order, repeating the last one.
type scriptedDoer struct {
	responses []*http.Response
	calls     int
}

func (d *scriptedDoer) Do(*http.Request) (*http.Response, error) {
	idx := d.calls
	if idx >= len(d.responses) {
		idx = len(d.responses) - 1
	}
	d.calls++
	return d.responses[idx], nil
}

func response(status int, body string, header http.Header) *http.Response {
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     header,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

const goodPage = `{"totalRecords": 1, "opportunitiesData": [{"title": "Victim Services Grant"}]}`

func fastConfig() config.FetchConfig {
	return config.FetchConfig{
		MaxPerSecond: 1000,
		MinInterval:  time.Microsecond,
		MaxRetries:   3,
		BaseBackoff:  time.Millisecond,
		MaxBackoff:   10 * time.Millisecond,
	}
}

// recordedSleeps captures requested delays without actually sleeping.
func recordedSleeps(delays *[]time.Duration) fetch.Option {
	return fetch.WithSleep(func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	})
}

func TestFetchPageRetriesTransientThenSucceeds(t *testing.T) {
	doer := &scriptedDoer{responses: []*http.Response{
		response(http.StatusTooManyRequests, `{}`, nil),
		response(http.StatusOK, goodPage, nil),
	}}
	var delays []time.Duration

	client := fetch.NewClient(fastConfig(), logger.NewNoop(),
		fetch.WithHTTPClient(doer), recordedSleeps(&delays))

	page, err := client.FetchPage(context.Background(), fetch.PageRequest{URL: "https://api.example.gov/search"})
	if err != nil {
		t.Fatalf("FetchPage() unexpected error: %v", err)
	}
	if page.HitCount != 1 || len(page.Records) != 1 {
		t.Errorf("page = %+v, want 1 hit and 1 record", page)
	}
	if doer.calls != 2 {
		t.Errorf("doer called %d times, want 2", doer.calls)
	}
	if len(delays) != 1 {
		t.Errorf("slept %d times, want 1", len(delays))
	}
}

func TestFetchPageHonorsRetryAfterHint(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "7")
	doer := &scriptedDoer{responses: []*http.Response{
		response(http.StatusTooManyRequests, `{}`, header),
		response(http.StatusOK, goodPage, nil),
	}}
	var delays []time.Duration

	client := fetch.NewClient(fastConfig(), logger.NewNoop(),
		fetch.WithHTTPClient(doer), recordedSleeps(&delays))

	if _, err := client.FetchPage(context.Background(), fetch.PageRequest{URL: "https://api.example.gov/search"}); err != nil {
		t.Fatalf("FetchPage() unexpected error: %v", err)
	}
	if len(delays) != 1 || delays[0] != 7*time.Second {
		t.Errorf("delays = %v, want exactly [7s] from server hint", delays)
	}
}

func TestFetchPagePermanentErrorNotRetried(t *testing.T) {
	doer := &scriptedDoer{responses: []*http.Response{
		response(http.StatusNotFound, `{}`, nil),
	}}

	client := fetch.NewClient(fastConfig(), logger.NewNoop(), fetch.WithHTTPClient(doer))

	_, err := client.FetchPage(context.Background(), fetch.PageRequest{URL: "https://api.example.gov/search"})
	if err == nil {
		t.Fatal("FetchPage() expected error for 404")
	}
	if doer.calls != 1 {
		t.Errorf("doer called %d times, want 1 (no retry on permanent error)", doer.calls)
	}
	if errors.Is(err, fetch.ErrRetryBudgetExhausted) {
		t.Error("404 must fail immediately, not via budget exhaustion")
	}

	var fe *fetch.FetchError
	if !errors.As(err, &fe) || fe.Status != http.StatusNotFound {
		t.Errorf("error = %v, want FetchError with status 404", err)
	}
}

func TestFetchPageExhaustsRetryBudget(t *testing.T) {
	doer := &scriptedDoer{responses: []*http.Response{
		response(http.StatusInternalServerError, `{}`, nil),
	}}
	var delays []time.Duration

	client := fetch.NewClient(fastConfig(), logger.NewNoop(),
		fetch.WithHTTPClient(doer), recordedSleeps(&delays))

	_, err := client.FetchPage(context.Background(), fetch.PageRequest{URL: "https://api.example.gov/search"})
	if !errors.Is(err, fetch.ErrRetryBudgetExhausted) {
		t.Fatalf("error = %v, want ErrRetryBudgetExhausted", err)
	}
	if doer.calls != 3 {
		t.Errorf("doer called %d times, want 3 (the full budget)", doer.calls)
	}
	if len(delays) != 2 {
		t.Errorf("slept %d times, want 2 (no sleep after the final attempt)", len(delays))
	}
}

func TestFetchPageMalformedShapeFailsImmediately(t *testing.T) {
	doer := &scriptedDoer{responses: []*http.Response{
		response(http.StatusOK, `{"unexpected": true}`, nil),
	}}

	client := fetch.NewClient(fastConfig(), logger.NewNoop(), fetch.WithHTTPClient(doer))

	_, err := client.FetchPage(context.Background(), fetch.PageRequest{URL: "https://api.example.gov/search"})
	if !errors.Is(err, fetch.ErrMalformedResponse) {
		t.Fatalf("error = %v, want ErrMalformedResponse", err)
	}
	if doer.calls != 1 {
		t.Errorf("doer called %d times, want 1 (malformed shape is permanent)", doer.calls)
	}
}
