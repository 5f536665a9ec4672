package grantness

import (
	"math"
	"time"

	"github.com/jonesrussell/grantpull/internal/config"
)

// Deadline score anchors. The decay window itself is configuration.
const (
	deadlineScoreMissing = 0.3
	deadlineScorePast    = 0.2
	deadlineScoreNearest = 1.0
	deadlineScoreFar     = 0.2
	deadlineScoreFloor   = 0.4
	topicScoreSaturation = 3
)

// domainTrustScore maps the trust tier to its score component. Government
// outranks military and territory, which outrank merely trusted hosts.
func domainTrustScore(trust DomainTrust) float64 {
	switch trust {
	case TrustGovernment:
		return 1.0
	case TrustMilitary, TrustTerritory:
		return 0.9
	case TrustHost:
		return 0.8
	default:
		return 0
	}
}

// deadlineScore rewards near-term deadlines: linear decay from 1.0 today to
// 0.2 at the decay window, with a floor of 0.4 beyond it. No deadline scores
// below a past one's floor but above a stale far-future notice's worst case.
func deadlineScore(deadline time.Time, hasDeadline bool, now time.Time, decayDays int) float64 {
	if !hasDeadline {
		return deadlineScoreMissing
	}

	days := deadline.Sub(now.UTC().Truncate(24*time.Hour)).Hours() / 24
	switch {
	case days < 0:
		return deadlineScorePast
	case days <= float64(decayDays):
		return deadlineScoreNearest - (deadlineScoreNearest-deadlineScoreFar)*(days/float64(decayDays))
	default:
		return deadlineScoreFloor
	}
}

// topicScore saturates at three distinct keyword matches.
func topicScore(matches int) float64 {
	return math.Min(1, float64(matches)/topicScoreSaturation)
}

// relevanceScore combines the three components with configured weights,
// rounded to two decimals.
func relevanceScore(cfg *config.ClassifierConfig, ctx *pageContext) float64 {
	score := cfg.TopicWeight*topicScore(len(ctx.matchedKeywords)) +
		cfg.DomainWeight*domainTrustScore(ctx.trust) +
		cfg.DeadlineWeight*deadlineScore(ctx.deadlineTime, ctx.hasDeadline, ctx.now, cfg.DeadlineDecayDays)
	return math.Round(score*100) / 100
}
