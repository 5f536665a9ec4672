// Package domain defines the canonical record shapes shared across the
// ingestion pipeline.
package domain

import "time"

// RawRecord is a source-specific record as fetched, untyped. It is preserved
// verbatim inside the canonical record's provenance payload.
type RawRecord map[string]any

// PlaceOfPerformance is the optional location an opportunity applies to.
type PlaceOfPerformance struct {
	City    string `json:"city" db:"pop_city"`
	State   string `json:"state" db:"pop_state"`
	Zip     string `json:"zip" db:"pop_zip"`
	Country string `json:"country" db:"pop_country"`
}

// PointOfContact is the optional contact attached to an opportunity.
type PointOfContact struct {
	Name  string `json:"name" db:"contact_name"`
	Email string `json:"email" db:"contact_email"`
	Phone string `json:"phone" db:"contact_phone"`
}

// Opportunity is the canonical, source-independent record produced by the
// pipeline. Every field is always present on an accepted record, possibly
// empty or nil, never missing.
type Opportunity struct {
	// ID is derived deterministically from the source number or URL and is
	// stable across runs. Never empty on an accepted record.
	ID string `json:"id" db:"id"`

	Title   string `json:"title" db:"title"`
	Agency  string `json:"agency" db:"agency"`
	Summary string `json:"summary" db:"summary"`

	// PostedDate is an ISO-8601 UTC instant. Required on the API path.
	PostedDate string `json:"posted_date" db:"posted_date"`
	// ResponseDeadline is a date-only YYYY-MM-DD string. Nil means the
	// opportunity is undated or rolling, which is legal.
	ResponseDeadline *string `json:"response_deadline" db:"response_deadline"`

	AwardCeiling *float64 `json:"award_ceiling" db:"award_ceiling"`
	AwardFloor   *float64 `json:"award_floor" db:"award_floor"`
	AwardAmount  *float64 `json:"award_amount" db:"award_amount"`

	Categories  []string `json:"categories"`
	Eligibility []string `json:"eligibility"`

	PlaceOfPerformance PlaceOfPerformance `json:"place_of_performance"`
	PointOfContact     PointOfContact     `json:"point_of_contact"`

	// Source is the source name or domain. Never empty: a placeholder is
	// substituted with a logged anomaly when hostname extraction fails,
	// because downstream persistence requires it.
	Source    string    `json:"source" db:"source"`
	SourceURL string    `json:"source_record_url" db:"source_url"`
	Raw       RawRecord `json:"raw"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// Scrape-path scoring. Zero-valued on the API path.
	RelevanceScore  float64  `json:"relevance_score" db:"relevance_score"`
	MatchedKeywords []string `json:"matched_keywords"`
}

// HasDeadline reports whether the opportunity carries a response deadline.
func (o *Opportunity) HasDeadline() bool {
	return o.ResponseDeadline != nil && *o.ResponseDeadline != ""
}

// Checkpoint bounds incremental fetches to records newer than the last
// successful run. Read once at start; absence means full backfill.
type Checkpoint struct {
	LastSuccessfulRun time.Time `json:"last_successful_run"`
}
