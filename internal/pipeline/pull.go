// Package pipeline orchestrates the two ingestion paths: the paginated API
// pull and the page scrape. Both paths feed the same dedup index, selector,
// and store, so duplicates are caught identically regardless of origin.
package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jonesrussell/grantpull/internal/checkpoint"
	"github.com/jonesrussell/grantpull/internal/config"
	"github.com/jonesrussell/grantpull/internal/dedupe"
	"github.com/jonesrussell/grantpull/internal/domain"
	"github.com/jonesrussell/grantpull/internal/fetch"
	"github.com/jonesrussell/grantpull/internal/grantness"
	"github.com/jonesrussell/grantpull/internal/logger"
	"github.com/jonesrussell/grantpull/internal/mapper"
	"github.com/jonesrussell/grantpull/internal/selector"
	"github.com/jonesrussell/grantpull/internal/storage"
)

// postedDateLayout is the upstream API's query date format.
const postedDateLayout = "01/02/2006"

// Result reports what one pull did. A failed pull still carries the partial
// counts accumulated before the failure.
type Result struct {
	TotalFetched  int
	Valid         int
	Rejected      int
	Skipped       int
	Selected      int
	Stored        int
	Pages         int
	DurationMs    int64
	Opportunities []*domain.Opportunity
}

// Puller runs the API ingestion path end to end.
type Puller struct {
	cfg         *config.Config
	log         logger.Interface
	paginator   *fetch.Paginator
	mapper      *mapper.Mapper
	analyzer    *grantness.Analyzer
	repo        *storage.Repository
	checkpoints *checkpoint.FileStore
	rejects     *mapper.RejectsWriter
	now         func() time.Time
}

// NewPuller wires the pull path from its collaborators.
func NewPuller(
	cfg *config.Config,
	log logger.Interface,
	paginator *fetch.Paginator,
	recordMapper *mapper.Mapper,
	analyzer *grantness.Analyzer,
	repo *storage.Repository,
	checkpoints *checkpoint.FileStore,
	rejects *mapper.RejectsWriter,
) *Puller {
	return &Puller{
		cfg:         cfg,
		log:         log,
		paginator:   paginator,
		mapper:      recordMapper,
		analyzer:    analyzer,
		repo:        repo,
		checkpoints: checkpoints,
		rejects:     rejects,
		now:         time.Now,
	}
}

// WithClock pins the puller's clock for deterministic windows in tests.
func (p *Puller) WithClock(now func() time.Time) *Puller {
	p.now = now
	return p
}

// Run executes one pull: rebuild the dedup index, compute the posted-date
// window from the checkpoint, exhaust the paginated result set, canonicalize
// and score, dedupe, select the top candidates, persist, and advance the
// checkpoint. A pagination failure aborts the run with partial counts; a
// checkpoint write failure is fatal so the next run cannot silently skip
// records.
func (p *Puller) Run(ctx context.Context) (*Result, error) {
	start := p.now().UTC()
	result := &Result{}

	index, err := p.seedIndex(ctx)
	if err != nil {
		return result, err
	}

	from, to, err := p.window(start)
	if err != nil {
		return result, err
	}
	knownURLs, knownKeys := index.Size()
	p.log.Info("Starting pull",
		"posted_from", from.Format(postedDateLayout),
		"posted_to", to.Format(postedDateLayout),
		"known_urls", knownURLs,
		"known_keys", knownKeys,
	)

	records, pages, fetchErr := p.paginator.FetchAll(ctx, p.buildQuery(from, to), p.cfg.Source.MaxPages)
	result.Pages = pages
	result.TotalFetched = len(records)
	if fetchErr != nil {
		result.DurationMs = time.Since(start).Milliseconds()
		return result, fmt.Errorf("pull aborted: %w", fetchErr)
	}

	candidates := p.canonicalize(records, index, result)

	selected := selector.SelectTop(candidates, p.cfg.Select.Limit)
	result.Selected = len(selected)
	result.Opportunities = selected

	for _, opp := range selected {
		if err := p.repo.Upsert(ctx, opp); err != nil {
			result.DurationMs = time.Since(start).Milliseconds()
			return result, fmt.Errorf("pull aborted: %w", err)
		}
		result.Stored++
	}

	if err := p.checkpoints.Write(&domain.Checkpoint{LastSuccessfulRun: start}); err != nil {
		result.DurationMs = time.Since(start).Milliseconds()
		return result, fmt.Errorf("pull aborted: %w", err)
	}

	result.DurationMs = time.Since(start).Milliseconds()
	p.log.Info("Pull complete",
		"total_fetched", result.TotalFetched,
		"valid", result.Valid,
		"rejected", result.Rejected,
		"skipped", result.Skipped,
		"stored", result.Stored,
		"pages", result.Pages,
		"duration_ms", result.DurationMs,
	)
	return result, nil
}

// seedIndex rebuilds the dedup index from all persisted records, so
// within-run and across-run duplicates are caught identically.
func (p *Puller) seedIndex(ctx context.Context) (*dedupe.Index, error) {
	seen, err := p.repo.ListSeen(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to seed dedup index: %w", err)
	}

	index := dedupe.NewIndex(p.log)
	for _, s := range seen {
		index.SeedURL(s.SourceURL)
		var deadline *string
		if s.ResponseDeadline.Valid {
			deadline = &s.ResponseDeadline.String
		}
		index.SeedKey(s.Title, s.Agency, deadline)
	}
	return index, nil
}

// window computes the posted-date range. No checkpoint means a full
// backfill; either way the window is clamped to the upstream's maximum.
func (p *Puller) window(now time.Time) (from, to time.Time, err error) {
	to = now

	cp, err := p.checkpoints.Read()
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	if cp == nil {
		from = now.AddDate(0, 0, -p.cfg.Source.BackfillDays)
		p.log.Info("No checkpoint found, backfilling", "days", p.cfg.Source.BackfillDays)
	} else {
		from = cp.LastSuccessfulRun
	}

	if maxDays := p.cfg.Source.MaxWindowDays; maxDays > 0 {
		if oldest := now.AddDate(0, 0, -maxDays); from.Before(oldest) {
			p.log.Warn("Clamping posted-date window",
				"requested_from", from.Format(postedDateLayout),
				"clamped_from", oldest.Format(postedDateLayout),
			)
			from = oldest
		}
	}

	return from, to, nil
}

// buildQuery assembles the paginated search request.
func (p *Puller) buildQuery(from, to time.Time) fetch.Query {
	params := url.Values{}
	params.Set("api_key", p.cfg.Source.APIKey)
	params.Set("postedFrom", from.Format(postedDateLayout))
	params.Set("postedTo", to.Format(postedDateLayout))
	params.Set("limit", fmt.Sprintf("%d", p.cfg.Source.PageLimit))
	if p.cfg.Source.StateFilter != "" {
		params.Set("state", p.cfg.Source.StateFilter)
	}
	if p.cfg.Source.SetAside != "" {
		params.Set("typeOfSetAside", p.cfg.Source.SetAside)
	}

	return fetch.Query{URL: p.cfg.Source.BaseURL, Params: params}
}

// canonicalize maps, prefilters, dedupes, and scores the raw records.
// Mapping failures go to the rejects side-channel and never abort the run.
func (p *Puller) canonicalize(records []domain.RawRecord, index *dedupe.Index, result *Result) []*domain.Opportunity {
	var candidates []*domain.Opportunity

	for _, raw := range records {
		opp, err := p.mapper.Map(raw)
		if err != nil {
			result.Rejected++
			if writeErr := p.rejects.Write(raw, err.Error()); writeErr != nil {
				p.log.Error("Failed to record reject", "error", writeErr)
			}
			continue
		}

		if !p.matchesTitleFilter(opp) {
			result.Skipped++
			continue
		}
		if index.ShouldSkip(opp) {
			result.Skipped++
			continue
		}

		p.analyzer.Score(opp)
		index.Add(opp)
		candidates = append(candidates, opp)
		result.Valid++
	}

	return candidates
}

// matchesTitleFilter applies the configured keyword prefilter against title
// and summary. An empty keyword list admits everything.
func (p *Puller) matchesTitleFilter(opp *domain.Opportunity) bool {
	if len(p.cfg.Source.TitleKeywords) == 0 {
		return true
	}

	haystack := strings.ToLower(opp.Title + " " + opp.Summary)
	for _, kw := range p.cfg.Source.TitleKeywords {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
