// Package pull implements the pull command, the paginated API ingestion path.
package pull

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/grantpull/cmd/common"
	"github.com/jonesrussell/grantpull/internal/domain"
	"github.com/jonesrussell/grantpull/internal/pipeline"
)

// Command returns the pull command for use in the root command.
func Command() *cobra.Command {
	var (
		outputCSV  string
		outputJSON string
		noFilters  bool
	)

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Pull opportunities from the paginated API",
		Long: `Fetch all opportunities posted since the last successful run, canonicalize
and score them, drop duplicates, and store the top candidates. Without a
checkpoint the pull backfills the configured lookback window.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			if noFilters {
				deps.Config.Source.TitleKeywords = nil
			}

			puller, cleanup, err := common.BuildPuller(cmd.Context(), deps)
			if err != nil {
				return err
			}
			defer cleanup()

			result, runErr := puller.Run(cmd.Context())
			renderSummary(result)
			if runErr != nil {
				return runErr
			}

			renderOpportunities(result.Opportunities)

			if outputCSV != "" {
				if exportErr := exportCSV(outputCSV, result.Opportunities); exportErr != nil {
					return exportErr
				}
				fmt.Printf("Wrote %d opportunities to %s\n", len(result.Opportunities), outputCSV)
			}
			if outputJSON != "" {
				if exportErr := exportJSON(outputJSON, result.Opportunities); exportErr != nil {
					return exportErr
				}
				fmt.Printf("Wrote %d opportunities to %s\n", len(result.Opportunities), outputJSON)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&outputCSV, "output-csv", "", "write selected opportunities to a CSV file")
	cmd.Flags().StringVar(&outputJSON, "output-json", "", "write selected opportunities to a JSON file")
	cmd.Flags().BoolVar(&noFilters, "no-filters", false, "disable the configured title keyword prefilter")

	return cmd
}

// renderSummary prints the run counts. Printed even for failed runs, which
// carry partial counts.
func renderSummary(result *pipeline.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Fetched", "Valid", "Rejected", "Skipped", "Stored", "Pages", "Duration (ms)"})
	t.AppendRow(table.Row{
		result.TotalFetched,
		result.Valid,
		result.Rejected,
		result.Skipped,
		result.Stored,
		result.Pages,
		result.DurationMs,
	})
	t.Render()
}

// renderOpportunities prints the selected candidates, deadline-first order.
func renderOpportunities(opportunities []*domain.Opportunity) {
	if len(opportunities) == 0 {
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Title", "Agency", "Deadline", "Score"})
	for i, opp := range opportunities {
		deadline := ""
		if opp.HasDeadline() {
			deadline = *opp.ResponseDeadline
		}
		t.AppendRow(table.Row{i + 1, truncate(opp.Title, 60), truncate(opp.Agency, 30), deadline, opp.RelevanceScore})
	}
	t.Render()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
