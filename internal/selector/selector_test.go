package selector_test

import (
	"testing"

	"github.com/jonesrussell/grantpull/internal/domain"
	"github.com/jonesrussell/grantpull/internal/selector"
)

func dated(deadline string, score float64) *domain.Opportunity {
	return &domain.Opportunity{ResponseDeadline: &deadline, RelevanceScore: score}
}

func undated(score float64) *domain.Opportunity {
	return &domain.Opportunity{RelevanceScore: score}
}

func TestSelectTopOrdering(t *testing.T) {
	candidates := []*domain.Opportunity{
		dated("2025-12-20", 0.9),
		dated("2025-11-01", 0.7),
		dated("2025-12-20", 0.95),
	}

	got := selector.SelectTop(candidates, 2)
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if *got[0].ResponseDeadline != "2025-11-01" {
		t.Errorf("first = %s, want the earliest deadline 2025-11-01", *got[0].ResponseDeadline)
	}
	if *got[1].ResponseDeadline != "2025-12-20" || got[1].RelevanceScore < 0.9 {
		t.Errorf("second = %s/%.2f, want a 2025-12-20 candidate with score >= 0.9",
			*got[1].ResponseDeadline, got[1].RelevanceScore)
	}
}

func TestSelectTopDatedBeforeUndated(t *testing.T) {
	candidates := []*domain.Opportunity{
		undated(0.99),
		dated("2026-06-30", 0.4),
	}

	got := selector.SelectTop(candidates, 0)
	if !got[0].HasDeadline() {
		t.Error("dated candidate must sort before undated regardless of score")
	}
	if got[1].RelevanceScore != 0.99 {
		t.Errorf("undated candidate missing from result: %+v", got[1])
	}
}

func TestSelectTopUndatedTieBreaksByScore(t *testing.T) {
	candidates := []*domain.Opportunity{
		undated(0.5),
		undated(0.8),
		undated(0.6),
	}

	got := selector.SelectTop(candidates, 0)
	for i := 1; i < len(got); i++ {
		if got[i-1].RelevanceScore < got[i].RelevanceScore {
			t.Errorf("undated candidates not in descending score order: %.2f before %.2f",
				got[i-1].RelevanceScore, got[i].RelevanceScore)
		}
	}
}

func TestSelectTopDoesNotMutateInput(t *testing.T) {
	candidates := []*domain.Opportunity{
		dated("2025-12-20", 0.9),
		dated("2025-11-01", 0.7),
	}

	_ = selector.SelectTop(candidates, 1)
	if *candidates[0].ResponseDeadline != "2025-12-20" {
		t.Error("input slice order changed")
	}
	if len(candidates) != 2 {
		t.Errorf("input slice truncated to %d", len(candidates))
	}
}
