package grantness

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jonesrussell/grantpull/internal/domain"
	"github.com/jonesrussell/grantpull/internal/mapper"
)

// deadlinePatterns pair a deadline cue with a capturable date. Ordered so the
// most explicit phrasing wins; the first parseable capture is the deadline.
var deadlinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:application |submission )?deadline[:\s]+(?:is\s+)?(?:on\s+)?([a-z]+ \d{1,2},? \d{4}|\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4})`),
	regexp.MustCompile(`(?i)(?:applications? (?:are )?due|due date|submit(?:ted)? by|closes? on|closing date)[:\s]+(?:is\s+)?(?:on\s+)?([a-z]+ \d{1,2},? \d{4}|\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{4})`),
	regexp.MustCompile(`(?i)\bdue\s+([a-z]+ \d{1,2},? \d{4})`),
}

// extractDeadline scans the page text for the first deadline-like phrase with
// a parseable date. Reports the canonical date-only form.
func extractDeadline(text string) (string, time.Time, bool) {
	for _, pattern := range deadlinePatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			if t, ok := mapper.ParseInstant(match[1]); ok {
				return t.Format("2006-01-02"), t, true
			}
		}
	}
	return "", time.Time{}, false
}

// amountPattern captures dollar figures, optionally with a million suffix.
var amountPattern = regexp.MustCompile(`(?i)\$\s?([\d,]+(?:\.\d+)?)\s?(million|m\b)?`)

// extractAmount finds the largest dollar figure on the page, which for
// funding notices is almost always the ceiling rather than a fee or example.
func extractAmount(text string) *float64 {
	var best float64
	found := false
	for _, match := range amountPattern.FindAllStringSubmatch(text, -1) {
		cleaned := strings.ReplaceAll(match[1], ",", "")
		value, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			continue
		}
		if match[2] != "" {
			value *= 1_000_000
		}
		if value > best {
			best = value
			found = true
		}
	}
	if !found {
		return nil
	}
	return &best
}

// extractSummary prefers explicit description metadata, then the provided
// snippet, then leading body text capped to a readable length.
const maxSummaryLength = 500

func extractSummary(facts *PageFacts, snippet string) string {
	for _, candidate := range []string{facts.MetaDescription, facts.OGDescription, snippet} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			return truncateText(candidate, maxSummaryLength)
		}
	}
	return truncateText(facts.BodyText, maxSummaryLength)
}

func truncateText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := s[:limit]
	if idx := strings.LastIndex(cut, " "); idx > limit/2 {
		cut = cut[:idx]
	}
	return cut
}

// extractAgency uses og:site_name when present, else derives a readable name
// from the host (jaxcf.org -> "jaxcf.org"; www stripped).
func extractAgency(facts *PageFacts) string {
	if facts.OGSiteName != "" {
		return facts.OGSiteName
	}
	return strings.TrimPrefix(facts.Host, "www.")
}

// locationHintPattern recognizes the "City, ST" hint form.
var locationHintPattern = regexp.MustCompile(`^(.+?),\s*([A-Za-z]{2})$`)

// parseLocationHint populates place-of-performance from the configured region
// hint. The hint never influences classification.
func parseLocationHint(hint string) domain.PlaceOfPerformance {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return domain.PlaceOfPerformance{}
	}
	if match := locationHintPattern.FindStringSubmatch(hint); match != nil {
		return domain.PlaceOfPerformance{
			City:    strings.TrimSpace(match[1]),
			State:   strings.ToUpper(match[2]),
			Country: "USA",
		}
	}
	return domain.PlaceOfPerformance{City: hint, Country: "USA"}
}

// contactEmailPattern and contactPhonePattern extract point-of-contact
// details when the page exposes them in plain text.
var (
	contactEmailPattern = regexp.MustCompile(`[\w.+-]+@[\w-]+(?:\.[\w-]+)+`)
	contactPhonePattern = regexp.MustCompile(`\(\d{3}\)\s?\d{3}-\d{4}|\d{3}-\d{3}-\d{4}`)
)

func extractContact(text string) domain.PointOfContact {
	return domain.PointOfContact{
		Email: contactEmailPattern.FindString(text),
		Phone: contactPhonePattern.FindString(text),
	}
}

// opportunityNumberPattern captures solicitation/opportunity identifiers for
// the specificity stage and the canonical record.
var opportunityNumberPattern = regexp.MustCompile(`(?i)(?:opportunity|solicitation|funding opportunity) number[:\s]+([a-z0-9][a-z0-9.\-]{3,})`)

func extractOpportunityNumber(text string) string {
	if match := opportunityNumberPattern.FindStringSubmatch(text); match != nil {
		return strings.ToUpper(strings.TrimRight(match[1], "."))
	}
	return ""
}
