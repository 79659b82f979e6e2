package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the indexed state of the knowledge base",
	Args:  cobra.NoArgs,
	RunE:  runStatusCmd,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatusCmd(cmd *cobra.Command, _ []string) error {
	status, err := syncService.KBStatus(context.Background(), cfg.Org)
	if err != nil {
		return err
	}

	cmd.Printf("Organisation:    %s\n", cfg.Org)
	cmd.Printf("Indexed records: %d\n", status.IndexedRecords)
	cmd.Printf("Stored chunks:   %d\n", status.TotalChunks)

	if status.LastSync != nil {
		last := status.LastSync
		cmd.Printf("Last sync:       %s %s (%d/%d records, finished %s)\n",
			last.Kind, last.Status, last.Progress, last.Total,
			last.FinishedAt.Local().Format(time.RFC822))
		if last.Message != "" {
			cmd.Printf("                 %s\n", last.Message)
		}
	} else {
		cmd.Println("Last sync:       never")
	}

	if status.IncompleteSync != nil {
		inc := status.IncompleteSync
		cmd.Printf("Incomplete sync: %s stopped at %d/%d records; the next incremental sync will resume it\n",
			inc.Kind, inc.Progress, inc.Total)
	}
	return nil
}
