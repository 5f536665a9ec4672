package fetch_test

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"testing"

	"github.com/jonesrussell/grantpull/internal/domain"
	"github.com/jonesrussell/grantpull/internal/fetch"
	"github.com/jonesrussell/grantpull/internal/logger"
)

// syntheticFetcher serves hitCount records in pages of pageSize, keyed by the
// offset query parameter.
type syntheticFetcher struct {
	hitCount int
	pageSize int
	calls    int
	failAt   int // fail the nth call (1-based); 0 disables
}

func (f *syntheticFetcher) FetchPage(_ context.Context, req fetch.PageRequest) (*fetch.RawPage, error) {
	f.calls++
	if f.failAt > 0 && f.calls == f.failAt {
		return nil, fmt.Errorf("synthetic failure")
	}

	offset, _ := strconv.Atoi(req.Params.Get("offset"))
	page := &fetch.RawPage{HitCount: f.hitCount}
	for i := offset; i < f.hitCount && i < offset+f.pageSize; i++ {
		page.Records = append(page.Records, domain.RawRecord{"id": strconv.Itoa(i)})
	}
	return page, nil
}

func TestFetchAllTermination(t *testing.T) {
	tests := []struct {
		name      string
		hitCount  int
		pageSize  int
		maxPages  int
		wantTotal int
		wantCalls int
	}{
		{"exact multiple", 100, 25, 0, 100, 4},
		{"remainder page", 105, 25, 0, 105, 5},
		{"single page", 10, 25, 0, 10, 1},
		{"empty result set", 0, 25, 0, 0, 1},
		{"max pages caps the walk", 100, 25, 2, 50, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &syntheticFetcher{hitCount: tt.hitCount, pageSize: tt.pageSize}
			paginator := fetch.NewPaginator(fetcher, logger.NewNoop())

			records, pages, err := paginator.FetchAll(context.Background(), fetch.Query{
				URL:    "https://api.example.gov/search",
				Params: url.Values{},
			}, tt.maxPages)
			if err != nil {
				t.Fatalf("FetchAll() unexpected error: %v", err)
			}

			if len(records) != tt.wantTotal {
				t.Errorf("got %d records, want %d", len(records), tt.wantTotal)
			}
			if fetcher.calls != tt.wantCalls {
				t.Errorf("fetcher called %d times, want %d", fetcher.calls, tt.wantCalls)
			}
			if pages != tt.wantCalls {
				t.Errorf("reported %d pages, want %d", pages, tt.wantCalls)
			}
		})
	}
}

func TestFetchAllAbortsOnPageFailure(t *testing.T) {
	fetcher := &syntheticFetcher{hitCount: 100, pageSize: 25, failAt: 3}
	paginator := fetch.NewPaginator(fetcher, logger.NewNoop())

	records, pages, err := paginator.FetchAll(context.Background(), fetch.Query{
		URL:    "https://api.example.gov/search",
		Params: url.Values{},
	}, 0)

	if err == nil {
		t.Fatal("FetchAll() expected error when a page fails")
	}
	if len(records) != 50 {
		t.Errorf("got %d partial records, want 50 from the two good pages", len(records))
	}
	if pages != 2 {
		t.Errorf("reported %d pages, want 2", pages)
	}
}
