package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/grantpull/internal/domain"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("opportunity not found")

// Repository provides database operations for opportunities.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new repository instance.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// opportunityRow is the flat SQL shape. Structured fields travel as JSON text
// columns and are converted at the repository boundary.
type opportunityRow struct {
	ID                 string          `db:"id"`
	Title              string          `db:"title"`
	Agency             string          `db:"agency"`
	Summary            string          `db:"summary"`
	PostedDate         string          `db:"posted_date"`
	ResponseDeadline   sql.NullString  `db:"response_deadline"`
	AwardCeiling       sql.NullFloat64 `db:"award_ceiling"`
	AwardFloor         sql.NullFloat64 `db:"award_floor"`
	AwardAmount        sql.NullFloat64 `db:"award_amount"`
	Categories         string          `db:"categories"`
	Eligibility        string          `db:"eligibility"`
	PlaceOfPerformance string          `db:"place_of_performance"`
	PointOfContact     string          `db:"point_of_contact"`
	Source             string          `db:"source"`
	SourceURL          string          `db:"source_url"`
	Raw                string          `db:"raw"`
	RelevanceScore     float64         `db:"relevance_score"`
	MatchedKeywords    string          `db:"matched_keywords"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

// Upsert inserts or updates an opportunity by identity. Re-pulling a known
// record refreshes its mutable fields without duplicating the row.
func (r *Repository) Upsert(ctx context.Context, opp *domain.Opportunity) error {
	row, err := toRow(opp)
	if err != nil {
		return err
	}
	row.UpdatedAt = time.Now().UTC()

	query := `
		INSERT INTO opportunities (
			id, title, agency, summary, posted_date, response_deadline,
			award_ceiling, award_floor, award_amount, categories, eligibility,
			place_of_performance, point_of_contact, source, source_url, raw,
			relevance_score, matched_keywords, created_at, updated_at
		) VALUES (
			:id, :title, :agency, :summary, :posted_date, :response_deadline,
			:award_ceiling, :award_floor, :award_amount, :categories, :eligibility,
			:place_of_performance, :point_of_contact, :source, :source_url, :raw,
			:relevance_score, :matched_keywords, :created_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			agency = excluded.agency,
			summary = excluded.summary,
			posted_date = excluded.posted_date,
			response_deadline = excluded.response_deadline,
			award_ceiling = excluded.award_ceiling,
			award_floor = excluded.award_floor,
			award_amount = excluded.award_amount,
			categories = excluded.categories,
			eligibility = excluded.eligibility,
			place_of_performance = excluded.place_of_performance,
			point_of_contact = excluded.point_of_contact,
			source = excluded.source,
			source_url = excluded.source_url,
			raw = excluded.raw,
			relevance_score = excluded.relevance_score,
			matched_keywords = excluded.matched_keywords,
			updated_at = excluded.updated_at
	`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to upsert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// GetByID retrieves one opportunity.
func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Opportunity, error) {
	var row opportunityRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM opportunities WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get opportunity: %w", err)
	}
	return fromRow(&row)
}

// List returns all persisted opportunities, newest first.
func (r *Repository) List(ctx context.Context) ([]*domain.Opportunity, error) {
	var rows []opportunityRow
	err := r.db.SelectContext(ctx, &rows, `SELECT * FROM opportunities ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list opportunities: %w", err)
	}

	opportunities := make([]*domain.Opportunity, 0, len(rows))
	for i := range rows {
		opp, convErr := fromRow(&rows[i])
		if convErr != nil {
			return nil, convErr
		}
		opportunities = append(opportunities, opp)
	}
	return opportunities, nil
}

// SeenIdentifiers returns every persisted source URL and the fields that form
// the dedup key, for rebuilding the index before a pull.
type SeenIdentifiers struct {
	SourceURL        string         `db:"source_url"`
	Title            string         `db:"title"`
	Agency           string         `db:"agency"`
	ResponseDeadline sql.NullString `db:"response_deadline"`
}

// ListSeen returns the identifying fields of all persisted records.
func (r *Repository) ListSeen(ctx context.Context) ([]SeenIdentifiers, error) {
	var seen []SeenIdentifiers
	err := r.db.SelectContext(ctx, &seen,
		`SELECT source_url, title, agency, response_deadline FROM opportunities`)
	if err != nil {
		return nil, fmt.Errorf("failed to list seen identifiers: %w", err)
	}
	return seen, nil
}

// Count returns the number of persisted opportunities.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM opportunities`); err != nil {
		return 0, fmt.Errorf("failed to count opportunities: %w", err)
	}
	return n, nil
}

func toRow(opp *domain.Opportunity) (*opportunityRow, error) {
	categories, err := marshalJSON(opp.Categories, "categories")
	if err != nil {
		return nil, err
	}
	eligibility, err := marshalJSON(opp.Eligibility, "eligibility")
	if err != nil {
		return nil, err
	}
	pop, err := marshalJSON(opp.PlaceOfPerformance, "place_of_performance")
	if err != nil {
		return nil, err
	}
	poc, err := marshalJSON(opp.PointOfContact, "point_of_contact")
	if err != nil {
		return nil, err
	}
	raw, err := marshalJSON(opp.Raw, "raw")
	if err != nil {
		return nil, err
	}
	keywords, err := marshalJSON(opp.MatchedKeywords, "matched_keywords")
	if err != nil {
		return nil, err
	}

	return &opportunityRow{
		ID:                 opp.ID,
		Title:              opp.Title,
		Agency:             opp.Agency,
		Summary:            opp.Summary,
		PostedDate:         opp.PostedDate,
		ResponseDeadline:   nullString(opp.ResponseDeadline),
		AwardCeiling:       nullFloat(opp.AwardCeiling),
		AwardFloor:         nullFloat(opp.AwardFloor),
		AwardAmount:        nullFloat(opp.AwardAmount),
		Categories:         categories,
		Eligibility:        eligibility,
		PlaceOfPerformance: pop,
		PointOfContact:     poc,
		Source:             opp.Source,
		SourceURL:          opp.SourceURL,
		Raw:                raw,
		RelevanceScore:     opp.RelevanceScore,
		MatchedKeywords:    keywords,
		CreatedAt:          opp.CreatedAt,
	}, nil
}

func fromRow(row *opportunityRow) (*domain.Opportunity, error) {
	opp := &domain.Opportunity{
		ID:             row.ID,
		Title:          row.Title,
		Agency:         row.Agency,
		Summary:        row.Summary,
		PostedDate:     row.PostedDate,
		Source:         row.Source,
		SourceURL:      row.SourceURL,
		RelevanceScore: row.RelevanceScore,
		CreatedAt:      row.CreatedAt,
	}

	if row.ResponseDeadline.Valid {
		deadline := row.ResponseDeadline.String
		opp.ResponseDeadline = &deadline
	}
	if row.AwardCeiling.Valid {
		v := row.AwardCeiling.Float64
		opp.AwardCeiling = &v
	}
	if row.AwardFloor.Valid {
		v := row.AwardFloor.Float64
		opp.AwardFloor = &v
	}
	if row.AwardAmount.Valid {
		v := row.AwardAmount.Float64
		opp.AwardAmount = &v
	}

	for _, field := range []struct {
		name string
		data string
		dest any
	}{
		{"categories", row.Categories, &opp.Categories},
		{"eligibility", row.Eligibility, &opp.Eligibility},
		{"place_of_performance", row.PlaceOfPerformance, &opp.PlaceOfPerformance},
		{"point_of_contact", row.PointOfContact, &opp.PointOfContact},
		{"raw", row.Raw, &opp.Raw},
		{"matched_keywords", row.MatchedKeywords, &opp.MatchedKeywords},
	} {
		if field.data == "" {
			continue
		}
		if err := json.Unmarshal([]byte(field.data), field.dest); err != nil {
			return nil, fmt.Errorf("failed to decode %s for %s: %w", field.name, row.ID, err)
		}
	}

	return opp, nil
}

func marshalJSON(v any, field string) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", field, err)
	}
	return string(data), nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
