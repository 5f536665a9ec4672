package pipeline

import (
	"context"
	"fmt"
	"time"

	colly "github.com/gocolly/colly/v2"

	"github.com/jonesrussell/grantpull/internal/config"
	"github.com/jonesrussell/grantpull/internal/dedupe"
	"github.com/jonesrussell/grantpull/internal/domain"
	"github.com/jonesrussell/grantpull/internal/grantness"
	"github.com/jonesrussell/grantpull/internal/logger"
	"github.com/jonesrussell/grantpull/internal/storage"
)

// scrapeUserAgent identifies the scraper politely.
const scrapeUserAgent = "grantpull/1.0"

// ScrapeResult reports what one scrape pass did.
type ScrapeResult struct {
	Visited       int
	Accepted      int
	RejectedPages int
	Skipped       int
	Stored        int
	DurationMs    int64
	Opportunities []*domain.Opportunity
}

// Scraper runs the page ingestion path: fetch each configured source page,
// classify it with the grantness cascade, and persist accepted opportunities
// through the same dedup index and store as the API path.
type Scraper struct {
	cfg      *config.Config
	log      logger.Interface
	analyzer *grantness.Analyzer
	repo     *storage.Repository
	now      func() time.Time
}

// NewScraper wires the scrape path.
func NewScraper(cfg *config.Config, log logger.Interface, analyzer *grantness.Analyzer, repo *storage.Repository) *Scraper {
	return &Scraper{cfg: cfg, log: log, analyzer: analyzer, repo: repo, now: time.Now}
}

// Run visits every configured source page sequentially and classifies each.
// Per-page failures are logged and isolated; a storage failure aborts.
func (s *Scraper) Run(ctx context.Context) (*ScrapeResult, error) {
	start := s.now()
	result := &ScrapeResult{}

	index, err := s.seedIndex(ctx)
	if err != nil {
		return result, err
	}

	collector := colly.NewCollector(
		colly.UserAgent(scrapeUserAgent),
		colly.MaxDepth(1),
	)
	collector.SetRequestTimeout(s.cfg.Fetch.Timeout)
	if limitErr := collector.Limit(&colly.LimitRule{
		DomainGlob: "*",
		Delay:      s.cfg.Scraper.Delay,
	}); limitErr != nil {
		return result, fmt.Errorf("failed to set scrape rate limit: %w", limitErr)
	}

	// Visits run one at a time, so the last captured response always belongs
	// to the current source. Capturing per visit instead of keying by the
	// configured URL keeps redirected sources (http to https, moved pages),
	// where the response arrives under the final URL.
	type page struct {
		url  string
		html string
	}
	var fetched *page

	collector.OnResponse(func(r *colly.Response) {
		fetched = &page{
			url:  r.Request.URL.String(),
			html: string(r.Body),
		}
	})
	collector.OnError(func(r *colly.Response, visitErr error) {
		s.log.Warn("Page fetch failed", "url", r.Request.URL.String(), "error", visitErr)
	})

	var candidates []*domain.Opportunity
	for _, source := range s.cfg.Scraper.Sources {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}

		fetched = nil
		if visitErr := collector.Visit(source.URL); visitErr != nil {
			s.log.Warn("Skipping unreachable source", "source", source.Name, "error", visitErr)
			continue
		}
		collector.Wait()

		if fetched == nil {
			s.log.Warn("No response captured for source", "source", source.Name, "url", source.URL)
			continue
		}
		result.Visited++

		analysis, analyzeErr := s.analyzer.Analyze(grantness.Input{
			URL:          fetched.url,
			HTML:         fetched.html,
			LocationHint: source.Region,
		})
		if analyzeErr != nil {
			s.log.Warn("Page analysis failed", "source", source.Name, "error", analyzeErr)
			continue
		}

		if !analysis.IsGrant {
			result.RejectedPages++
			continue
		}

		opp := analysis.Opportunity
		if index.ShouldSkip(opp) {
			result.Skipped++
			continue
		}
		index.Add(opp)
		candidates = append(candidates, opp)
		result.Accepted++
	}

	for _, opp := range candidates {
		if upsertErr := s.repo.Upsert(ctx, opp); upsertErr != nil {
			result.DurationMs = time.Since(start).Milliseconds()
			return result, fmt.Errorf("scrape aborted: %w", upsertErr)
		}
		result.Stored++
	}
	result.Opportunities = candidates

	result.DurationMs = time.Since(start).Milliseconds()
	s.log.Info("Scrape complete",
		"visited", result.Visited,
		"accepted", result.Accepted,
		"rejected_pages", result.RejectedPages,
		"skipped", result.Skipped,
		"stored", result.Stored,
		"duration_ms", result.DurationMs,
	)
	return result, nil
}

// seedIndex mirrors the pull path's index rebuild so both paths dedupe
// against the same persisted history.
func (s *Scraper) seedIndex(ctx context.Context) (*dedupe.Index, error) {
	seen, err := s.repo.ListSeen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to seed dedup index: %w", err)
	}

	index := dedupe.NewIndex(s.log)
	for _, record := range seen {
		index.SeedURL(record.SourceURL)
		var deadline *string
		if record.ResponseDeadline.Valid {
			deadline = &record.ResponseDeadline.String
		}
		index.SeedKey(record.Title, record.Agency, deadline)
	}
	return index, nil
}
