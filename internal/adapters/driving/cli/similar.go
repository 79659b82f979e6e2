package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var similarLimit int

var similarCmd = &cobra.Command{
	Use:   "similar <record-id>",
	Short: "Find records similar to a given record",
	Args:  cobra.ExactArgs(1),
	RunE:  runSimilarCmd,
}

func init() {
	similarCmd.Flags().IntVarP(&similarLimit, "limit", "n", 0, "maximum results (default 8)")
	rootCmd.AddCommand(similarCmd)
}

func runSimilarCmd(cmd *cobra.Command, args []string) error {
	results, err := retrievalService.FindSimilar(context.Background(), cfg.Org, args[0], similarLimit)
	if err != nil {
		return err
	}

	printResults(cmd, results)
	return nil
}
