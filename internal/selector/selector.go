// Package selector picks the top-N opportunities for downstream consumers.
// Time-sensitivity trumps topical score: an opportunity closing soon matters
// more than a slightly better-matched one with months of runway.
package selector

import (
	"sort"

	"github.com/jonesrussell/grantpull/internal/domain"
)

// SelectTop orders candidates and truncates to limit. Dated opportunities
// sort before undated; between two dated, the earlier deadline wins; ties
// fall to the higher relevance score. A limit of zero or less disables
// truncation. The input slice is not modified.
func SelectTop(candidates []*domain.Opportunity, limit int) []*domain.Opportunity {
	ranked := make([]*domain.Opportunity, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		return Less(ranked[i], ranked[j])
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Less is the selection comparator. Deadlines are canonical YYYY-MM-DD
// strings, so lexical comparison is chronological.
func Less(a, b *domain.Opportunity) bool {
	switch {
	case a.HasDeadline() && !b.HasDeadline():
		return true
	case !a.HasDeadline() && b.HasDeadline():
		return false
	case a.HasDeadline() && b.HasDeadline() && *a.ResponseDeadline != *b.ResponseDeadline:
		return *a.ResponseDeadline < *b.ResponseDeadline
	default:
		return a.RelevanceScore > b.RelevanceScore
	}
}
