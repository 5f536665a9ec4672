package fetch

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jonesrussell/grantpull/internal/domain"
	"github.com/jonesrussell/grantpull/internal/logger"
)

// PageFetcher fetches a single page. Satisfied by *Client.
type PageFetcher interface {
	FetchPage(ctx context.Context, req PageRequest) (*RawPage, error)
}

// Query describes an offset-paginated result set to exhaust.
type Query struct {
	URL    string
	Params url.Values
	Header map[string][]string
	// StartOffset is the first offset to fetch. Usually 0.
	StartOffset int
}

// Paginator drives a PageFetcher across an offset-based result set until
// exhaustion or a safety cap. It does not dedupe; that is the caller's
// responsibility, typically by record identity.
type Paginator struct {
	client PageFetcher
	log    logger.Interface
}

// NewPaginator creates a paginator over the given client.
func NewPaginator(client PageFetcher, log logger.Interface) *Paginator {
	return &Paginator{client: client, log: log}
}

// FetchAll accumulates pages starting at the query's offset. It continues
// while the last page returned at least one record and the running total is
// below the upstream's reported hit count, and stops early at maxPages
// (0 disables the cap) or on an empty page. Returns the records, the number
// of pages fetched, and the first fatal fetch error. A failed page aborts the
// whole walk: a pagination gap cannot be safely skipped.
func (p *Paginator) FetchAll(ctx context.Context, query Query, maxPages int) ([]domain.RawRecord, int, error) {
	var records []domain.RawRecord

	offset := query.StartOffset
	pages := 0
	hitCount := 0

	for {
		params := cloneValues(query.Params)
		params.Set("offset", strconv.Itoa(offset))

		page, err := p.client.FetchPage(ctx, PageRequest{
			URL:    query.URL,
			Params: params,
			Header: query.Header,
		})
		if err != nil {
			return records, pages, fmt.Errorf("page at offset %d: %w", offset, err)
		}

		pages++
		if pages == 1 {
			hitCount = page.HitCount
		}

		records = append(records, page.Records...)
		offset += len(page.Records)

		p.log.Debug("Fetched page",
			"page", pages,
			"records", len(page.Records),
			"total", len(records),
			"hit_count", hitCount,
		)

		if maxPages > 0 && pages >= maxPages {
			p.log.Info("Stopping at page cap", "max_pages", maxPages, "total", len(records))
			break
		}
		if len(page.Records) == 0 || len(records) >= hitCount {
			break
		}
	}

	return records, pages, nil
}

// cloneValues copies query params so per-page offset mutation does not leak
// into the caller's values.
func cloneValues(values url.Values) url.Values {
	cloned := make(url.Values, len(values)+1)
	for key, vals := range values {
		cloned[key] = append([]string(nil), vals...)
	}
	return cloned
}
