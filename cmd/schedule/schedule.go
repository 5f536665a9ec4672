// Package schedule implements the schedule command: recurring pulls on a
// cron expression.
package schedule

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/grantpull/cmd/common"
)

// Command returns the schedule command for use in the root command.
func Command() *cobra.Command {
	var spec string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run pulls on a recurring schedule",
		Long: `Run the pull pipeline on a cron schedule until interrupted. The schedule
uses the standard 5-field cron format; the default pulls once a day.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := common.NewCommandDeps()
			if err != nil {
				return fmt.Errorf("failed to initialize dependencies: %w", err)
			}

			if spec == "" {
				spec = deps.Config.Schedule.Cron
			}

			cronParser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
			scheduler := cron.New(cron.WithParser(cronParser), cron.WithChain(cron.Recover(cron.DefaultLogger)))

			ctx := cmd.Context()
			_, err = scheduler.AddFunc(spec, func() {
				puller, cleanup, buildErr := common.BuildPuller(ctx, deps)
				if buildErr != nil {
					deps.Logger.Error("Failed to build pull pipeline", "error", buildErr)
					return
				}
				defer cleanup()

				if _, runErr := puller.Run(ctx); runErr != nil {
					deps.Logger.Error("Scheduled pull failed", "error", runErr)
				}
			})
			if err != nil {
				return fmt.Errorf("invalid cron expression %q: %w", spec, err)
			}

			scheduler.Start()
			deps.Logger.Info("Scheduler started", "cron", spec)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-quit:
				deps.Logger.Info("Shutdown signal received", "signal", sig.String())
			case <-ctx.Done():
			}

			stopCtx := scheduler.Stop()
			<-stopCtx.Done()
			deps.Logger.Info("Scheduler stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&spec, "cron", "", "cron expression overriding the configured schedule")

	return cmd
}
