package fetch

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/jonesrussell/grantpull/internal/domain"
)

// RawPage is one decoded page of an offset-paginated result set.
type RawPage struct {
	// HitCount is the upstream's reported total for the whole query.
	HitCount int
	Records  []domain.RawRecord
}

// pageEnvelope tolerates the envelope field names observed across upstream
// API versions. Weak typing absorbs string/number churn in totals.
type pageEnvelope struct {
	TotalRecords int `mapstructure:"totalRecords"`
	TotalHits    int `mapstructure:"totalHits"`
	Total        int `mapstructure:"total"`

	OpportunitiesData []map[string]any `mapstructure:"opportunitiesData"`
	Results           []map[string]any `mapstructure:"results"`
	Records           []map[string]any `mapstructure:"records"`
}

// decodePage decodes a response body into a RawPage. A body that parses as
// JSON but matches none of the known envelope shapes is malformed and is
// never retried.
func decodePage(body []byte) (*RawPage, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	var env pageEnvelope
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &env,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build page decoder: %w", err)
	}
	if decodeErr := decoder.Decode(raw); decodeErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)
	}

	records := env.OpportunitiesData
	if records == nil {
		records = env.Results
	}
	if records == nil {
		records = env.Records
	}
	if records == nil {
		return nil, fmt.Errorf("%w: no records field in envelope", ErrMalformedResponse)
	}

	hitCount := env.TotalRecords
	if hitCount == 0 {
		hitCount = env.TotalHits
	}
	if hitCount == 0 {
		hitCount = env.Total
	}

	page := &RawPage{HitCount: hitCount, Records: make([]domain.RawRecord, 0, len(records))}
	for _, rec := range records {
		page.Records = append(page.Records, domain.RawRecord(rec))
	}

	return page, nil
}
