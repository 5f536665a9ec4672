package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/grantpull/internal/domain"
	"github.com/jonesrussell/grantpull/internal/storage"
)

func openTestRepo(t *testing.T) *storage.Repository {
	t.Helper()

	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return storage.NewRepository(db)
}

func sampleOpportunity() *domain.Opportunity {
	deadline := "2025-12-15"
	ceiling := 750000.0
	return &domain.Opportunity{
		ID:               "HT-2025-001",
		Title:            "Services for Survivors of Human Trafficking",
		Agency:           "Administration for Children and Families",
		Summary:          "Comprehensive case management for survivors.",
		PostedDate:       "2025-09-15T00:00:00Z",
		ResponseDeadline: &deadline,
		AwardCeiling:     &ceiling,
		Categories:       []string{"93.598"},
		Eligibility:      []string{"nonprofit"},
		PlaceOfPerformance: domain.PlaceOfPerformance{
			City:  "Jacksonville",
			State: "FL",
		},
		PointOfContact: domain.PointOfContact{Email: "grants@example.gov"},
		Source:         "sam",
		SourceURL:      "https://sam.gov/opp/ht-2025-001/view",
		Raw:            domain.RawRecord{"solicitationNumber": "HT-2025-001"},
		CreatedAt:      time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC),
		RelevanceScore: 0.93,
		MatchedKeywords: []string{
			"human trafficking", "case management",
		},
	}
}

func TestUpsertAndGetRoundTrip(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	original := sampleOpportunity()
	require.NoError(t, repo.Upsert(ctx, original))

	got, err := repo.GetByID(ctx, original.ID)
	require.NoError(t, err)

	require.Equal(t, original.Title, got.Title)
	require.Equal(t, original.PostedDate, got.PostedDate)
	require.NotNil(t, got.ResponseDeadline)
	require.Equal(t, "2025-12-15", *got.ResponseDeadline)
	require.NotNil(t, got.AwardCeiling)
	require.InDelta(t, 750000.0, *got.AwardCeiling, 0.001)
	require.Equal(t, original.Categories, got.Categories)
	require.Equal(t, original.PlaceOfPerformance, got.PlaceOfPerformance)
	require.Equal(t, original.PointOfContact, got.PointOfContact)
	require.Equal(t, original.MatchedKeywords, got.MatchedKeywords)
	require.Equal(t, "sam", got.Source)
}

func TestUpsertByIdentityUpdatesInPlace(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	first := sampleOpportunity()
	require.NoError(t, repo.Upsert(ctx, first))

	updated := sampleOpportunity()
	updated.Title = "Services for Survivors of Human Trafficking (Amended)"
	updated.RelevanceScore = 0.95
	require.NoError(t, repo.Upsert(ctx, updated))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count, "upsert by identity must not duplicate rows")

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, updated.Title, got.Title)
	require.InDelta(t, 0.95, got.RelevanceScore, 0.001)
}

func TestGetByIDNotFound(t *testing.T) {
	repo := openTestRepo(t)

	_, err := repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListSeenReturnsDedupFields(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	withDeadline := sampleOpportunity()
	require.NoError(t, repo.Upsert(ctx, withDeadline))

	undated := sampleOpportunity()
	undated.ID = "HT-2025-002"
	undated.Title = "Transitional Housing Support"
	undated.ResponseDeadline = nil
	undated.SourceURL = "https://sam.gov/opp/ht-2025-002/view"
	require.NoError(t, repo.Upsert(ctx, undated))

	seen, err := repo.ListSeen(ctx)
	require.NoError(t, err)
	require.Len(t, seen, 2)

	byURL := make(map[string]storage.SeenIdentifiers, len(seen))
	for _, s := range seen {
		byURL[s.SourceURL] = s
	}

	dated := byURL[withDeadline.SourceURL]
	require.True(t, dated.ResponseDeadline.Valid)
	require.Equal(t, "2025-12-15", dated.ResponseDeadline.String)

	require.False(t, byURL[undated.SourceURL].ResponseDeadline.Valid)
}
