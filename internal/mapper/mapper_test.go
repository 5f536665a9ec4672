package mapper_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jonesrussell/grantpull/internal/domain"
	"github.com/jonesrussell/grantpull/internal/logger"
	"github.com/jonesrussell/grantpull/internal/mapper"
)

func fixedClock() time.Time {
	return time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)
}

func newTestMapper() *mapper.Mapper {
	return mapper.NewMapper("sam", logger.NewNoop()).WithClock(fixedClock)
}

func sampleRecord() domain.RawRecord {
	return domain.RawRecord{
		"solicitationNumber": "HT-2025-001",
		"title":              "Services for Survivors of Human Trafficking",
		"organizationName":   "Administration for Children and Families",
		"description":        "Comprehensive case management for survivors.",
		"postedDate":         "2025-09-15",
		"responseDeadLine":   "2025-12-15",
		"awardCeiling":       "1,500,000",
		"uiLink":             "https://sam.gov/opp/ht-2025-001/view",
		"placeOfPerformance": map[string]any{
			"city":  "Jacksonville",
			"state": "FL",
			"zip":   "32202",
		},
		"pointOfContact": []any{
			map[string]any{"fullName": "Grants Desk", "Email": "grants@example.gov"},
		},
	}
}

func TestMapCanonicalizesKnownAliases(t *testing.T) {
	opp, err := newTestMapper().Map(sampleRecord())
	if err != nil {
		t.Fatalf("Map() unexpected error: %v", err)
	}

	if opp.ID != "HT-2025-001" {
		t.Errorf("ID = %q, want solicitation number", opp.ID)
	}
	if opp.Title != "Services for Survivors of Human Trafficking" {
		t.Errorf("Title = %q", opp.Title)
	}
	if opp.PostedDate != "2025-09-15T00:00:00Z" {
		t.Errorf("PostedDate = %q, want ISO-8601 UTC instant", opp.PostedDate)
	}
	if opp.ResponseDeadline == nil || *opp.ResponseDeadline != "2025-12-15" {
		t.Errorf("ResponseDeadline = %v, want 2025-12-15", opp.ResponseDeadline)
	}
	if opp.AwardCeiling == nil || *opp.AwardCeiling != 1_500_000 {
		t.Errorf("AwardCeiling = %v, want 1500000", opp.AwardCeiling)
	}
	if opp.PlaceOfPerformance.City != "Jacksonville" || opp.PlaceOfPerformance.State != "FL" {
		t.Errorf("PlaceOfPerformance = %+v", opp.PlaceOfPerformance)
	}
	if opp.PointOfContact.Email != "grants@example.gov" {
		t.Errorf("PointOfContact.Email = %q", opp.PointOfContact.Email)
	}
	if opp.Source != "sam" {
		t.Errorf("Source = %q, want sam", opp.Source)
	}
}

func TestMapIsIdempotent(t *testing.T) {
	m := newTestMapper()

	first, err := m.Map(sampleRecord())
	if err != nil {
		t.Fatalf("Map() unexpected error: %v", err)
	}
	second, err := m.Map(sampleRecord())
	if err != nil {
		t.Fatalf("Map() unexpected error: %v", err)
	}

	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	if string(firstJSON) != string(secondJSON) {
		t.Errorf("mapping the same record twice differs:\n%s\n%s", firstJSON, secondJSON)
	}
}

func TestMapRequiredFields(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(domain.RawRecord)
		wantField string
	}{
		{
			name: "missing identity and url",
			mutate: func(raw domain.RawRecord) {
				delete(raw, "solicitationNumber")
				delete(raw, "uiLink")
			},
			wantField: "identity",
		},
		{
			name:      "missing title",
			mutate:    func(raw domain.RawRecord) { delete(raw, "title") },
			wantField: "title",
		},
		{
			name:      "missing posted date",
			mutate:    func(raw domain.RawRecord) { delete(raw, "postedDate") },
			wantField: "posted_date",
		},
		{
			name:      "unparsable posted date",
			mutate:    func(raw domain.RawRecord) { raw["postedDate"] = "whenever" },
			wantField: "posted_date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := sampleRecord()
			tt.mutate(raw)

			_, err := newTestMapper().Map(raw)
			var mapErr *mapper.MappingError
			if !errors.As(err, &mapErr) {
				t.Fatalf("Map() error = %v, want *MappingError", err)
			}
			if mapErr.Field != tt.wantField {
				t.Errorf("MappingError.Field = %q, want %q", mapErr.Field, tt.wantField)
			}
		})
	}
}

func TestMapFallsBackToURLHashIdentity(t *testing.T) {
	raw := sampleRecord()
	delete(raw, "solicitationNumber")

	opp, err := newTestMapper().Map(raw)
	if err != nil {
		t.Fatalf("Map() unexpected error: %v", err)
	}
	if len(opp.ID) != 64 {
		t.Errorf("ID = %q, want 64-char URL hash", opp.ID)
	}
}

func TestMapUnparsableDeadlineBecomesAbsent(t *testing.T) {
	raw := sampleRecord()
	raw["responseDeadLine"] = "see announcement"

	opp, err := newTestMapper().Map(raw)
	if err != nil {
		t.Fatalf("Map() unexpected error: %v", err)
	}
	if opp.ResponseDeadline != nil {
		t.Errorf("ResponseDeadline = %v, want nil for unparsable input", *opp.ResponseDeadline)
	}
}

func TestMapDeadlineAliasPrecedence(t *testing.T) {
	raw := sampleRecord()
	raw["responseDeadline"] = "2025-11-30"

	opp, err := newTestMapper().Map(raw)
	if err != nil {
		t.Fatalf("Map() unexpected error: %v", err)
	}
	if opp.ResponseDeadline == nil || *opp.ResponseDeadline != "2025-11-30" {
		t.Errorf("ResponseDeadline = %v, want responseDeadline to outrank responseDeadLine", opp.ResponseDeadline)
	}
}
