// Package analyze implements the analyze command: classify one saved page.
package analyze

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/grantpull/cmd/common"
	"github.com/jonesrussell/grantpull/internal/grantness"
)

// Command returns the analyze command for use in the root command.
func Command() *cobra.Command {
	var (
		snippet      string
		locationHint string
	)

	cmd := &cobra.Command{
		Use:   "analyze <url> <html-file>",
		Short: "Classify a saved HTML page",
		Long: `Run the grantness cascade over a saved HTML page and print the verdict.
Useful for tuning the classifier against pages it got wrong. The URL is the
page's original address; the domain stages classify its host.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			pageURL, htmlPath := args[0], args[1]
			html, err := os.ReadFile(htmlPath)
			if err != nil {
				return fmt.Errorf("failed to read HTML file: %w", err)
			}

			analyzer := grantness.NewAnalyzer(&deps.Config.Classifier, deps.Logger)
			result, err := analyzer.Analyze(grantness.Input{
				URL:          pageURL,
				HTML:         string(html),
				Snippet:      snippet,
				LocationHint: locationHint,
			})
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			if !result.IsGrant {
				fmt.Printf("not a grant (stage %s): %s\n", result.Stage, result.Reason)
				return nil
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(result.Opportunity); err != nil {
				return fmt.Errorf("failed to render opportunity: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&snippet, "snippet", "", "search-result snippet accompanying the page")
	cmd.Flags().StringVar(&locationHint, "location", "", "location hint, e.g. \"Jacksonville, FL\"")

	return cmd
}
