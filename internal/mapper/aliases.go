package mapper

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonesrussell/grantpull/internal/domain"
)

// Extractor pulls one candidate value for a canonical field out of a raw
// record. Reports false when the record carries nothing usable.
type Extractor func(raw domain.RawRecord) (string, bool)

// FieldAliases is the ordered alias table for one canonical field. The first
// extractor that yields a non-empty value wins, insulating the canonical
// schema from upstream field-name churn across API versions.
type FieldAliases struct {
	Field      string
	Extractors []Extractor
}

// Resolve walks the alias list in order.
func (fa FieldAliases) Resolve(raw domain.RawRecord) (string, bool) {
	for _, extract := range fa.Extractors {
		if value, ok := extract(raw); ok && value != "" {
			return value, true
		}
	}
	return "", false
}

// stringKey extracts a top-level key coerced to string.
func stringKey(name string) Extractor {
	return func(raw domain.RawRecord) (string, bool) {
		value, exists := raw[name]
		if !exists {
			return "", false
		}
		s := coerceString(value)
		return s, s != ""
	}
}

// firstLinkHref extracts the first non-empty href from a links array.
func firstLinkHref(name string) Extractor {
	return func(raw domain.RawRecord) (string, bool) {
		links, ok := raw[name].([]any)
		if !ok {
			return "", false
		}
		for _, entry := range links {
			link, isMap := entry.(map[string]any)
			if !isMap {
				continue
			}
			if href := coerceString(link["href"]); href != "" {
				return href, true
			}
		}
		return "", false
	}
}

// coerceString renders a raw value as a string. Maps are reduced to their
// name or code, matching the upstream API's nested shapes.
func coerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case map[string]any:
		if name := coerceString(v["name"]); name != "" {
			return name
		}
		return coerceString(v["code"])
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

// Alias tables per canonical field. Order encodes precedence.
var (
	identityAliases = FieldAliases{Field: "identity", Extractors: []Extractor{
		stringKey("solicitationNumber"),
		stringKey("noticeId"),
		stringKey("opportunityId"),
		stringKey("opportunityNumber"),
		stringKey("id"),
	}}

	urlAliases = FieldAliases{Field: "source_record_url", Extractors: []Extractor{
		firstLinkHref("links"),
		stringKey("uiLink"),
		stringKey("url"),
		stringKey("link"),
	}}

	titleAliases = FieldAliases{Field: "title", Extractors: []Extractor{
		stringKey("title"),
		stringKey("opportunityTitle"),
		stringKey("name"),
	}}

	agencyAliases = FieldAliases{Field: "agency", Extractors: []Extractor{
		stringKey("organizationName"),
		stringKey("fullParentPathName"),
		stringKey("agencyName"),
		stringKey("agency"),
	}}

	summaryAliases = FieldAliases{Field: "summary", Extractors: []Extractor{
		stringKey("description"),
		stringKey("summary"),
		stringKey("synopsis"),
	}}

	postedAliases = FieldAliases{Field: "posted_date", Extractors: []Extractor{
		stringKey("postedDate"),
		stringKey("publishDate"),
		stringKey("datePosted"),
		stringKey("posted_date"),
	}}

	// responseDeadLine is a real upstream spelling, not a typo here.
	deadlineAliases = FieldAliases{Field: "response_deadline", Extractors: []Extractor{
		stringKey("responseDeadline"),
		stringKey("responseDeadLine"),
		stringKey("closeDate"),
		stringKey("applicationDueDate"),
	}}

	awardCeilingAliases = FieldAliases{Field: "award_ceiling", Extractors: []Extractor{
		stringKey("awardCeiling"),
		stringKey("award_ceiling"),
	}}

	awardFloorAliases = FieldAliases{Field: "award_floor", Extractors: []Extractor{
		stringKey("awardFloor"),
		stringKey("award_floor"),
	}}

	awardAmountAliases = FieldAliases{Field: "award_amount", Extractors: []Extractor{
		stringKey("awardAmount"),
		stringKey("estimatedTotalProgramFunding"),
	}}
)

// categoryAliases are top-level keys whose values contribute category tags.
var categoryAliases = []string{"classificationCode", "naicsCode", "cfdaNumbers", "category"}

// eligibilityAliases are top-level keys whose values contribute eligibility codes.
var eligibilityAliases = []string{"typeOfSetAside", "setAsideCode", "setAside", "eligibility"}
