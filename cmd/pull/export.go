package pull

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/jonesrussell/grantpull/internal/domain"
)

// csvHeader is the export column order.
var csvHeader = []string{
	"id", "title", "agency", "posted_date", "response_deadline",
	"award_ceiling", "relevance_score", "source", "source_url",
}

// exportCSV writes the selected opportunities as CSV.
func exportCSV(path string, opportunities []*domain.Opportunity) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, opp := range opportunities {
		deadline := ""
		if opp.HasDeadline() {
			deadline = *opp.ResponseDeadline
		}
		ceiling := ""
		if opp.AwardCeiling != nil {
			ceiling = strconv.FormatFloat(*opp.AwardCeiling, 'f', 2, 64)
		}
		row := []string{
			opp.ID,
			opp.Title,
			opp.Agency,
			opp.PostedDate,
			deadline,
			ceiling,
			strconv.FormatFloat(opp.RelevanceScore, 'f', 2, 64),
			opp.Source,
			opp.SourceURL,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// exportJSON writes the selected opportunities as a JSON array.
func exportJSON(path string, opportunities []*domain.Opportunity) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(opportunities); err != nil {
		return fmt.Errorf("failed to encode opportunities: %w", err)
	}
	return nil
}
