package grantness

import (
	"regexp"
	"strings"
)

// DomainTrust is the trust tier assigned by the domain allow-list stage. It
// doubles as the domain component of the relevance score.
type DomainTrust int

const (
	TrustNone DomainTrust = iota
	TrustGovernment
	TrustMilitary
	TrustTerritory
	TrustHost
)

// String renders the trust tier for logging.
func (t DomainTrust) String() string {
	switch t {
	case TrustGovernment:
		return "government"
	case TrustMilitary:
		return "military"
	case TrustTerritory:
		return "territory"
	case TrustHost:
		return "trusted-host"
	default:
		return "untrusted"
	}
}

// governmentGrade reports whether the tier gets the relaxed body-length and
// specificity treatment.
func (t DomainTrust) governmentGrade() bool {
	return t == TrustGovernment || t == TrustMilitary || t == TrustTerritory
}

// classifyHost assigns a trust tier to a hostname. Government and military
// suffixes outrank the explicit trusted-host list so a .gov host on both
// keeps its government trust score.
func classifyHost(host string, trustedHosts, territorySuffixes []string) DomainTrust {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return TrustNone
	}

	switch {
	case strings.HasSuffix(host, ".gov"):
		return TrustGovernment
	case strings.HasSuffix(host, ".mil"):
		return TrustMilitary
	}

	for _, suffix := range territorySuffixes {
		if strings.HasSuffix(host, strings.ToLower(suffix)) {
			return TrustTerritory
		}
	}

	for _, trusted := range trustedHosts {
		trusted = strings.ToLower(trusted)
		if host == trusted || strings.HasSuffix(host, "."+trusted) {
			return TrustHost
		}
	}

	return TrustNone
}

// mediaTerms reject pages whose URL, title, or summary reads like newsroom
// output rather than a funding notice.
var mediaTerms = []string{
	"press release",
	"press-release",
	"news release",
	"newsroom",
	"media advisory",
	"media release",
	"blog",
	"editorial",
	"op-ed",
}

// mediaPathSegments are URL path segments that mark newsroom sections.
var mediaPathSegments = map[string]bool{
	"news":      true,
	"press":     true,
	"blog":      true,
	"media":     true,
	"newsroom":  true,
	"stories":   true,
	"headlines": true,
}

// mediaWordPattern catches bare media words in titles, where a substring
// check would be too eager against body text.
var mediaWordPattern = regexp.MustCompile(`\b(news|press|blog|announcement archive)\b`)

// tribalExclusivePhrases indicate exclusively-tribal eligibility outright.
var tribalExclusivePhrases = []string{
	"tribal governments only",
	"tribal applicants only",
	"federally recognized tribes only",
	"tribes only",
	"open only to tribal",
	"limited to federally recognized tribes",
}

// tribalPattern and eligibleEntityPattern implement the weaker signal: tribal
// vocabulary with no co-mention of any other eligible entity type.
var (
	tribalPattern = regexp.MustCompile(`\b(tribal|tribes?|indian country|native american|alaska native)\b`)

	eligibleEntityPattern = regexp.MustCompile(`\b(nonprofits?|non-profits?|501\(c\)|states?|local governments?|count(?:y|ies)|cit(?:y|ies)|municipalit(?:y|ies)|universit(?:y|ies)|colleges?|school districts?|faith-based|community-based|community organizations?|institutions? of higher education)\b`)
)

// genericTitles are exact titles that mark index or landing pages.
var genericTitles = map[string]bool{
	"grants":                true,
	"grant":                 true,
	"funding":               true,
	"opportunities":         true,
	"grant opportunities":   true,
	"funding opportunities": true,
	"grants and funding":    true,
	"grant programs":        true,
	"programs":              true,
	"home":                  true,
	"resources":             true,
	"apply":                 true,
}

// genericTitleWords is the vocabulary for the short-all-generic-title check:
// a title of a few words drawn entirely from this set names a section, not an
// opportunity.
var genericTitleWords = map[string]bool{
	"grant": true, "grants": true, "funding": true, "fund": true, "funds": true,
	"opportunity": true, "opportunities": true, "program": true, "programs": true,
	"home": true, "resources": true, "apply": true, "overview": true,
	"available": true, "current": true, "open": true, "and": true, "for": true,
	"of": true, "the": true, "our": true,
}

// genericPathPattern matches landing-page URL paths; specificIDPattern
// exempts paths carrying a real identifier.
var (
	genericPathPattern = regexp.MustCompile(`(?i)/(grants?|funding|opportunities|grant-programs?|programs)/?$`)

	specificIDPattern = regexp.MustCompile(`(?i)(fy-?\d{2,4}|fiscal-year|\d{5,}|[a-z]{2,}-\d{2,})`)
)

// signalCategory is one funding-notice structural signal. The stage counts
// distinct categories present, not raw matches, so a page repeating
// "deadline" ten times still scores one.
type signalCategory struct {
	name    string
	pattern *regexp.Regexp
}

// signalCategories are the seven funding-notice signal families. Patterns run
// against lowercased text.
var signalCategories = []signalCategory{
	{"eligibility", regexp.MustCompile(`\b(eligib\w*|who (?:may|can) apply|applicants? (?:must|should)|501\(c\))`)},
	{"deadline", regexp.MustCompile(`\b(deadline|due date|closing date|closes? on|applications? (?:are )?due|submit(?:ted)? by)`)},
	{"award", regexp.MustCompile(`\b(award (?:ceiling|floor|amount)s?|total funding|funding amount|anticipated funding|up to \$)|\$\d`)},
	{"opportunity-number", regexp.MustCompile(`\b(opportunity number|solicitation number|funding opportunity number|nofo|cfda|assistance listing|rfp|rfa)\b`)},
	{"application", regexp.MustCompile(`\b(how to apply|application (?:process|period|portal|materials)|grants\.gov|submit (?:an|your) application|apply (?:online|now|here|by))`)},
	{"contact", regexp.MustCompile(`\b(program officer|for (?:more information|questions),? contact|contact:)|[\w.+-]+@[\w-]+(?:\.[\w-]+)+|\(\d{3}\)\s?\d{3}-\d{4}`)},
	{"program", regexp.MustCompile(`\b(grant program|cooperative agreement|funding opportunit(?:y|ies)|notice of funding|program (?:goals?|purpose|description))`)},
}

// rollingLanguagePattern recognizes explicit no-fixed-deadline phrasing,
// accepted by the lenient specificity path.
var rollingLanguagePattern = regexp.MustCompile(`\b(rolling (?:basis|deadline|applications?)|accepted on a rolling|open continuously|accepted year-round|no (?:application )?deadline)\b`)

// fiscalYearPattern is a specificity token on its own.
var fiscalYearPattern = regexp.MustCompile(`\b(fy\s?20\d{2}|fiscal year 20\d{2})\b`)

// applyLinkPattern recognizes apply/download links by href or anchor text.
var applyLinkPattern = regexp.MustCompile(`(?i)(apply|application|download|grants\.gov|\.pdf\b)`)
