// Package scrape implements the scrape command, the page ingestion path.
package scrape

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/grantpull/cmd/common"
)

// Command returns the scrape command for use in the root command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Fetch and classify the configured source pages",
		Long: `Visit every configured source page, decide whether each is a genuine open
funding opportunity, and store the accepted ones. Pages are fetched
sequentially with the configured delay between requests.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			scraper, cleanup, err := common.BuildScraper(cmd.Context(), deps)
			if err != nil {
				return err
			}
			defer cleanup()

			result, runErr := scraper.Run(cmd.Context())

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Visited", "Accepted", "Rejected", "Skipped", "Stored", "Duration (ms)"})
			t.AppendRow(table.Row{
				result.Visited,
				result.Accepted,
				result.RejectedPages,
				result.Skipped,
				result.Stored,
				result.DurationMs,
			})
			t.Render()

			return runErr
		},
	}
}
