package grantness

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	ahocorasick "github.com/cloudflare/ahocorasick"
	"github.com/google/uuid"

	"github.com/jonesrussell/grantpull/internal/config"
	"github.com/jonesrussell/grantpull/internal/dedupe"
	"github.com/jonesrussell/grantpull/internal/domain"
	"github.com/jonesrussell/grantpull/internal/logger"
)

// sourcePlaceholder substitutes when hostname extraction fails. Source must
// never be empty, a persistence constraint; the substitution is logged as an
// anomaly so it cannot pass as clean data.
const sourcePlaceholder = "unknown-source"

// Input is one page to analyze. Analysis is a pure function of these fields
// and the analyzer's configuration; the location hint populates
// place-of-performance only and never affects classification.
type Input struct {
	URL          string
	HTML         string
	Snippet      string
	LocationHint string
}

// Result is the analysis outcome. A rejection names the stage and reason; an
// acceptance carries the extracted canonical opportunity.
type Result struct {
	IsGrant     bool
	Stage       string
	Reason      string
	Opportunity *domain.Opportunity
}

// Analyzer runs the grantness cascade over fetched pages.
type Analyzer struct {
	cfg      *config.ClassifierConfig
	log      logger.Interface
	matcher  *ahocorasick.Matcher
	keywords []string
	now      func() time.Time
}

// NewAnalyzer builds the keyword automaton once; per-page analysis then
// matches the whole vocabulary in a single pass over the text.
func NewAnalyzer(cfg *config.ClassifierConfig, log logger.Interface) *Analyzer {
	keywords := make([]string, 0, len(cfg.TopicKeywords))
	for _, kw := range cfg.TopicKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			keywords = append(keywords, kw)
		}
	}

	var matcher *ahocorasick.Matcher
	if len(keywords) > 0 {
		matcher = ahocorasick.NewStringMatcher(keywords)
	}

	return &Analyzer{
		cfg:      cfg,
		log:      log,
		matcher:  matcher,
		keywords: keywords,
		now:      time.Now,
	}
}

// WithClock pins the analyzer's clock. Deadline expiry and scoring are
// relative to "today", so tests fix it.
func (a *Analyzer) WithClock(now func() time.Time) *Analyzer {
	a.now = now
	return a
}

// Analyze classifies one page. Rejections are a negative result, not an
// error; only unparsable HTML fails.
func (a *Analyzer) Analyze(input Input) (*Result, error) {
	facts, err := ExtractFacts(input.URL, input.HTML)
	if err != nil {
		return nil, fmt.Errorf("failed to extract page facts: %w", err)
	}
	facts.Host = hostOf(input.URL)

	ctx := buildContext(a.cfg, facts, input.Snippet, a.now())

	for _, st := range a.cascade() {
		result := st.evaluate(ctx)
		if !result.pass {
			a.log.Debug("Page rejected",
				"url", input.URL,
				"stage", st.name,
				"reason", result.reason)
			return &Result{Stage: st.name, Reason: result.reason}, nil
		}
	}

	opp := a.buildOpportunity(ctx, input)
	a.log.Info("Page accepted as opportunity",
		"url", input.URL,
		"id", opp.ID,
		"relevance", opp.RelevanceScore)

	return &Result{IsGrant: true, Opportunity: opp}, nil
}

// Score computes relevance for a canonical record that did not come from
// page analysis, mining its title and summary with the same vocabulary and
// weights the page path uses. Mutates the record's score and matched
// keywords.
func (a *Analyzer) Score(opp *domain.Opportunity) {
	text := strings.ToLower(opp.Title + " " + opp.Summary)

	seen := make(map[string]bool)
	var matched []string
	if a.matcher != nil {
		for _, idx := range a.matcher.Match([]byte(text)) {
			kw := a.keywords[idx]
			if !seen[kw] {
				seen[kw] = true
				matched = append(matched, kw)
			}
		}
	}

	ctx := &pageContext{
		trust:           classifyHost(hostOf(opp.SourceURL), a.cfg.TrustedHosts, a.cfg.TerritorySuffixes),
		matchedKeywords: matched,
		now:             a.now(),
	}
	if opp.HasDeadline() {
		if t, err := time.Parse("2006-01-02", *opp.ResponseDeadline); err == nil {
			ctx.deadlineTime = t
			ctx.hasDeadline = true
		}
	}

	opp.MatchedKeywords = matched
	opp.RelevanceScore = relevanceScore(a.cfg, ctx)
}

// evalTopicRelevance rejects pages with zero matches against the domain
// vocabulary and records the distinct matched keywords for scoring.
func (a *Analyzer) evalTopicRelevance(ctx *pageContext) stageResult {
	if a.matcher == nil {
		return reject("no topic vocabulary configured")
	}

	seen := make(map[string]bool)
	for _, idx := range a.matcher.Match([]byte(ctx.text)) {
		kw := a.keywords[idx]
		if !seen[kw] {
			seen[kw] = true
			ctx.matchedKeywords = append(ctx.matchedKeywords, kw)
		}
	}

	if len(ctx.matchedKeywords) == 0 {
		return reject("no topic keyword matches")
	}
	return pass()
}

// buildOpportunity extracts the canonical record from an accepted page.
// Every canonical field is populated, possibly empty, never missing.
func (a *Analyzer) buildOpportunity(ctx *pageContext, input Input) *domain.Opportunity {
	now := a.now().UTC()

	source := ctx.facts.Host
	if source == "" {
		source = sourcePlaceholder
		a.log.Warn("Hostname extraction failed, substituting placeholder source", "url", input.URL)
	}

	opp := &domain.Opportunity{
		ID:                 a.deriveID(input.URL),
		Title:              ctx.facts.Title,
		Agency:             extractAgency(ctx.facts),
		Summary:            extractSummary(ctx.facts, input.Snippet),
		PostedDate:         now.Format(time.RFC3339),
		AwardCeiling:       ctx.amount,
		Categories:         []string{},
		Eligibility:        []string{},
		PlaceOfPerformance: parseLocationHint(input.LocationHint),
		PointOfContact:     extractContact(ctx.facts.BodyText),
		Source:             source,
		SourceURL:          input.URL,
		Raw: domain.RawRecord{
			"url":     input.URL,
			"title":   ctx.facts.Title,
			"snippet": input.Snippet,
		},
		CreatedAt:       now,
		RelevanceScore:  relevanceScore(a.cfg, ctx),
		MatchedKeywords: ctx.matchedKeywords,
	}

	if ctx.hasDeadline {
		deadline := ctx.deadline
		opp.ResponseDeadline = &deadline
	}
	if ctx.opportunityNumber != "" {
		opp.Categories = append(opp.Categories, ctx.opportunityNumber)
	}

	return opp
}

// deriveID hashes the normalized URL so the same page maps to the same
// identity across runs. The random fallback is an anomaly worth noticing.
func (a *Analyzer) deriveID(pageURL string) string {
	if hash, err := dedupe.URLHash(pageURL); err == nil {
		return hash
	}
	id := uuid.NewString()
	a.log.Warn("Could not hash page URL, generating random identity", "url", pageURL, "id", id)
	return id
}

// hostOf extracts the lowercased hostname, tolerating bare host input.
func hostOf(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	host := parsed.Hostname()
	if host == "" && !strings.Contains(pageURL, "/") {
		host = pageURL
	}
	return strings.ToLower(host)
}
