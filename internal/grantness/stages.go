package grantness

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jonesrussell/grantpull/internal/config"
)

// pageContext carries accumulated evidence through the stage cascade. Early
// stages populate fields later stages and field extraction reuse.
type pageContext struct {
	cfg     *config.ClassifierConfig
	facts   *PageFacts
	snippet string

	// text is the lowercased title + headings + body + snippet, the corpus
	// every text stage mines. rawText preserves the original case for date
	// extraction, where month names are case-sensitive to parse.
	text    string
	rawText string
	urlPath string

	trust DomainTrust

	matchedKeywords []string
	signalNames     []string

	deadline     string
	deadlineTime time.Time
	hasDeadline  bool

	opportunityNumber string
	amount            *float64

	now time.Time
}

// stageResult reports a single stage's verdict. A failed stage carries the
// human-readable reason that becomes the rejection's first-class value.
type stageResult struct {
	pass   bool
	reason string
}

func pass() stageResult { return stageResult{pass: true} }

func reject(format string, args ...any) stageResult {
	return stageResult{reason: fmt.Sprintf(format, args...)}
}

// stage is one filter in the cascade. Stages run in order; the first failure
// short-circuits the page to "not a grant" with that stage's name and reason.
type stage struct {
	name     string
	evaluate func(ctx *pageContext) stageResult
}

// buildContext assembles the page context mined by every stage.
func buildContext(cfg *config.ClassifierConfig, facts *PageFacts, snippet string, now time.Time) *pageContext {
	var corpus strings.Builder
	corpus.WriteString(facts.Title)
	for _, heading := range facts.Headings {
		corpus.WriteByte(' ')
		corpus.WriteString(heading)
	}
	corpus.WriteByte(' ')
	corpus.WriteString(facts.BodyText)
	corpus.WriteByte(' ')
	corpus.WriteString(snippet)

	urlPath := ""
	if parsed, err := url.Parse(facts.URL); err == nil {
		urlPath = strings.ToLower(parsed.Path)
	}

	return &pageContext{
		cfg:     cfg,
		facts:   facts,
		snippet: snippet,
		text:    strings.ToLower(corpus.String()),
		rawText: corpus.String(),
		urlPath: urlPath,
		now:     now,
	}
}

// evalDomainAllowlist admits only trusted hosts and approved government,
// military, or territory suffixes.
func evalDomainAllowlist(ctx *pageContext) stageResult {
	ctx.trust = classifyHost(ctx.facts.Host, ctx.cfg.TrustedHosts, ctx.cfg.TerritorySuffixes)
	if ctx.trust == TrustNone {
		return reject("host %q is not on the allow-list", ctx.facts.Host)
	}
	return pass()
}

// evalMediaBlocklist rejects newsroom output. Known mixed-content list pages
// on the allow-list are exempt; their real opportunities would otherwise be
// lost to the section they are published under.
func evalMediaBlocklist(ctx *pageContext) stageResult {
	for _, allowed := range ctx.cfg.BlocklistAllowHosts {
		if strings.EqualFold(ctx.facts.Host, allowed) {
			return pass()
		}
	}

	surface := strings.ToLower(ctx.facts.Title + " " + extractSummary(ctx.facts, ctx.snippet))
	for _, term := range mediaTerms {
		if strings.Contains(surface, term) || strings.Contains(ctx.urlPath, strings.ReplaceAll(term, " ", "-")) {
			return reject("media vocabulary %q", term)
		}
	}

	for _, segment := range strings.Split(ctx.urlPath, "/") {
		if mediaPathSegments[segment] {
			return reject("media URL section %q", segment)
		}
	}

	if match := mediaWordPattern.FindString(strings.ToLower(ctx.facts.Title)); match != "" {
		return reject("media word %q in title", match)
	}

	return pass()
}

// evalTribalExclusivity rejects exclusively-tribal eligibility: explicit
// phrasing, or tribal vocabulary with no co-mention of any other eligible
// entity type. Out of scope for the target population, not a judgment on
// such programs.
func evalTribalExclusivity(ctx *pageContext) stageResult {
	for _, phrase := range tribalExclusivePhrases {
		if strings.Contains(ctx.text, phrase) {
			return reject("exclusively-tribal phrasing %q", phrase)
		}
	}

	if tribalPattern.MatchString(ctx.text) && !eligibleEntityPattern.MatchString(ctx.text) {
		return reject("tribal vocabulary with no other eligible entity types")
	}

	return pass()
}

// evalGenericLandingPage rejects index pages: missing or exact generic
// titles, short all-generic-word titles, generic URL paths lacking a specific
// identifier, and thin body text. Government domains get a relaxed length
// threshold. A titleless page is rejected here because an accepted record
// must always carry a title.
func evalGenericLandingPage(ctx *pageContext) stageResult {
	title := strings.ToLower(strings.TrimSpace(ctx.facts.Title))

	if title == "" {
		return reject("no extractable title")
	}

	if genericTitles[title] {
		return reject("generic title %q", title)
	}

	words := strings.Fields(title)
	if len(words) > 0 && len(words) <= 4 {
		allGeneric := true
		for _, word := range words {
			if !genericTitleWords[strings.Trim(word, ".,:&")] {
				allGeneric = false
				break
			}
		}
		if allGeneric {
			return reject("all-generic short title %q", title)
		}
	}

	if genericPathPattern.MatchString(ctx.urlPath) && !specificIDPattern.MatchString(ctx.facts.URL) {
		return reject("generic URL path %q with no specific identifier", ctx.urlPath)
	}

	minBody := ctx.cfg.MinBodyLength
	if ctx.trust.governmentGrade() {
		minBody = ctx.cfg.GovMinBodyLength
	}
	if len(ctx.facts.BodyText) < minBody {
		return reject("body text %d chars, below minimum %d", len(ctx.facts.BodyText), minBody)
	}

	return pass()
}

// evalStructuralSignals counts distinct funding-notice signal categories.
// This is the primary defense against incidental keyword mentions.
func evalStructuralSignals(ctx *pageContext) stageResult {
	for _, category := range signalCategories {
		if category.pattern.MatchString(ctx.text) {
			ctx.signalNames = append(ctx.signalNames, category.name)
		}
	}

	if len(ctx.signalNames) < ctx.cfg.MinStructuralSignals {
		return reject("%d of %d required signal categories (%s)",
			len(ctx.signalNames), ctx.cfg.MinStructuralSignals, strings.Join(ctx.signalNames, ", "))
	}
	return pass()
}

// evalDeadlineExpiry extracts the first parseable deadline and rejects pages
// whose deadline is strictly before today, date-only comparison. A page with
// no extractable deadline passes; absence is handled by the specificity stage
// and the deadline score.
func evalDeadlineExpiry(ctx *pageContext) stageResult {
	deadline, deadlineTime, found := extractDeadline(ctx.rawText)
	if !found {
		return pass()
	}
	ctx.deadline = deadline
	ctx.deadlineTime = deadlineTime
	ctx.hasDeadline = true

	today := ctx.now.UTC().Truncate(24 * time.Hour)
	if deadlineTime.Truncate(24 * time.Hour).Before(today) {
		return reject("deadline %s already passed", deadline)
	}
	return pass()
}

// evalSpecificity accepts only pages anchored to a concrete cycle: a
// deadline, an award amount, an opportunity number, or a fiscal-year token.
// Government and region-specific domains are additionally satisfied by
// contact info, an apply/download link, or explicit rolling language.
func evalSpecificity(ctx *pageContext) stageResult {
	ctx.opportunityNumber = extractOpportunityNumber(ctx.facts.BodyText + " " + ctx.snippet)
	ctx.amount = extractAmount(ctx.text)

	if ctx.hasDeadline || ctx.amount != nil || ctx.opportunityNumber != "" || fiscalYearPattern.MatchString(ctx.text) {
		return pass()
	}

	if ctx.cfg.GovLenientSpecificity && ctx.trust.governmentGrade() {
		contact := extractContact(ctx.facts.BodyText)
		if contact.Email != "" || contact.Phone != "" {
			return pass()
		}
		for _, link := range ctx.facts.Links {
			if applyLinkPattern.MatchString(link.Href) || applyLinkPattern.MatchString(link.Text) {
				return pass()
			}
		}
		if rollingLanguagePattern.MatchString(ctx.text) {
			return pass()
		}
	}

	return reject("no deadline, amount, opportunity number, or fiscal-year token")
}

// cascade is the ordered filter pipeline. Topic relevance sits mid-cascade so
// cheap host and vocabulary checks run before keyword matching, which needs
// the analyzer's matcher and is bound in at construction.
func (a *Analyzer) cascade() []stage {
	return []stage{
		{"domain-allowlist", evalDomainAllowlist},
		{"media-blocklist", evalMediaBlocklist},
		{"tribal-exclusivity", evalTribalExclusivity},
		{"generic-landing-page", evalGenericLandingPage},
		{"topic-relevance", a.evalTopicRelevance},
		{"structural-signals", evalStructuralSignals},
		{"deadline-expiry", evalDeadlineExpiry},
		{"specificity", evalSpecificity},
	}
}
