// ABOUTME: Background job command for external schedulers (cron, systemd timers)
// ABOUTME: Maps the retry driver's result onto exit codes: 0 success, 75 retry, 1 failure

package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/newsling/newsling/internal/job"
)

// Exit codes for the scheduler contract. 75 is EX_TEMPFAIL, the conventional
// "transient, try again" code.
const (
	exitSuccess = 0
	exitFailure = 1
	exitRetry   = 75
)

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Run one background sync attempt",
	Long: `Run a single sync attempt for an external scheduler.

Exit codes:
  0   sync completed
  75  transient failure, schedule a retry with backoff
  1   permanent failure (for example rejected credentials), stop retrying`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		driver := job.NewDriver(store, engine)

		switch result := driver.Run(cmd.Context()); result {
		case job.Success:
			exitCode = exitSuccess
		case job.Retry:
			exitCode = exitRetry
		case job.Failure:
			exitCode = exitFailure
		}
		logrus.WithField("exit_code", exitCode).Debug("job finished")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobCmd)
}
