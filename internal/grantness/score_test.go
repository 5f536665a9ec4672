package grantness

import (
	"math"
	"testing"
	"time"
)

func TestDomainTrustScore(t *testing.T) {
	tests := []struct {
		trust DomainTrust
		want  float64
	}{
		{TrustGovernment, 1.0},
		{TrustMilitary, 0.9},
		{TrustTerritory, 0.9},
		{TrustHost, 0.8},
		{TrustNone, 0},
	}

	for _, tt := range tests {
		if got := domainTrustScore(tt.trust); got != tt.want {
			t.Errorf("domainTrustScore(%s) = %v, want %v", tt.trust, got, tt.want)
		}
	}
}

func TestDeadlineScore(t *testing.T) {
	now := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	day := func(offset int) time.Time { return now.AddDate(0, 0, offset) }

	tests := []struct {
		name        string
		deadline    time.Time
		hasDeadline bool
		want        float64
	}{
		{"no deadline", time.Time{}, false, 0.3},
		{"past deadline", day(-10), true, 0.2},
		{"today scores highest", day(0), true, 1.0},
		{"mid window decays linearly", day(90), true, 0.6},
		{"window edge", day(180), true, 0.2},
		{"beyond window gets the floor", day(200), true, 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deadlineScore(tt.deadline, tt.hasDeadline, now, 180)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("deadlineScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTopicScoreSaturates(t *testing.T) {
	tests := []struct {
		matches int
		want    float64
	}{
		{0, 0},
		{1, 1.0 / 3},
		{2, 2.0 / 3},
		{3, 1},
		{10, 1},
	}

	for _, tt := range tests {
		if got := topicScore(tt.matches); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("topicScore(%d) = %v, want %v", tt.matches, got, tt.want)
		}
	}
}

func TestClassifyHost(t *testing.T) {
	trusted := []string{"grants.gov", "www.jaxcf.org"}
	suffixes := []string{".fl.us", ".us"}

	tests := []struct {
		host string
		want DomainTrust
	}{
		{"www.acf.hhs.gov", TrustGovernment},
		{"sam.mil", TrustMilitary},
		{"jacksonville.fl.us", TrustTerritory},
		{"duval.us", TrustTerritory},
		{"grants.gov", TrustGovernment},
		{"www.jaxcf.org", TrustHost},
		{"random-blog.example.com", TrustNone},
		{"", TrustNone},
	}

	for _, tt := range tests {
		if got := classifyHost(tt.host, trusted, suffixes); got != tt.want {
			t.Errorf("classifyHost(%q) = %s, want %s", tt.host, got, tt.want)
		}
	}
}
