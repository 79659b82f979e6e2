package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question answered from the knowledge base",
	Long: `Retrieves the indexed chunks most relevant to the question and asks the
chat model for an answer grounded strictly in them, with source citations.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAskCmd,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAskCmd(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	answer, err := answerService.Ask(context.Background(), cfg.Org, question)
	if err != nil {
		return err
	}

	cmd.Println(answer.Text)

	if len(answer.Sources) > 0 {
		cmd.Println("\nSources:")
		for i, src := range answer.Sources {
			title := src.Title
			if title == "" {
				title = src.RecordID
			}
			cmd.Printf("  [%d] %s (%.3f)\n", i+1, title, src.Similarity)
		}
	}
	return nil
}
