package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/complyline/kbengine/internal/core/domain"
)

var syncFull bool

var syncCmd = &cobra.Command{
	Use:   "sync [document|ticket]",
	Short: "Index compliance records into the knowledge base",
	Long: `Triggers an ingestion run for a source collection and waits for it,
showing progress. Incremental by default: only records changed since the
last run are fetched. Use --full to re-index everything.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"document", "ticket"},
	RunE:      runSyncCmd,
}

func init() {
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "re-index all records, ignoring the watermark")
	rootCmd.AddCommand(syncCmd)
}

func runSyncCmd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	kind := domain.RecordKind(args[0])

	mode := domain.SyncIncremental
	if syncFull {
		mode = domain.SyncFull
	}

	jobID, err := syncService.StartSync(ctx, cfg.Org, kind, mode)
	if err != nil {
		var cooldown *domain.CooldownError
		if errors.As(err, &cooldown) {
			return fmt.Errorf("previous sync finished too recently, retry in %s",
				cooldown.Remaining.Round(time.Second))
		}
		return err
	}

	return watchJob(ctx, cmd, jobID)
}

// watchJob polls the job row until it reaches a terminal state, rendering
// progress as a bar.
func watchJob(ctx context.Context, cmd *cobra.Command, jobID string) error {
	var bar *progressbar.ProgressBar

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		job, err := syncService.JobStatus(ctx, jobID)
		if err != nil {
			return fmt.Errorf("reading job status: %w", err)
		}

		if bar == nil && job.Total > 0 {
			bar = progressbar.NewOptions(job.Total,
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("Indexing"),
			)
		}
		if bar != nil {
			_ = bar.Set(job.Progress)
		}

		switch job.Status {
		case domain.JobCompleted:
			if bar != nil {
				_ = bar.Finish()
				cmd.Println()
			}
			if job.Message != "" {
				cmd.Printf("Sync %s: %s\n", job.ID, job.Message)
			} else {
				cmd.Printf("Sync %s: %d records indexed\n", job.ID, job.Progress)
			}
			return nil
		case domain.JobFailed:
			if bar != nil {
				cmd.Println()
			}
			return fmt.Errorf("sync failed at %d/%d records: %s", job.Progress, job.Total, job.Message)
		}
	}
	return nil
}
