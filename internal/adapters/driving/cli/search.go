package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/complyline/kbengine/internal/core/domain"
)

var (
	searchLimit    int
	searchKind     string
	searchStatus   string
	searchCategory string
	searchTeam     string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Semantic search over indexed records",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearchCmd,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum results (default 8)")
	searchCmd.Flags().StringVar(&searchKind, "kind", "", "restrict to a collection (document|ticket)")
	searchCmd.Flags().StringVar(&searchStatus, "status", "", "restrict to a record status")
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "restrict to a category")
	searchCmd.Flags().StringVar(&searchTeam, "team", "", "restrict to a team")
	rootCmd.AddCommand(searchCmd)
}

func runSearchCmd(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	results, err := retrievalService.Search(context.Background(), cfg.Org, query, domain.SearchOptions{
		Limit:    searchLimit,
		Kind:     domain.RecordKind(searchKind),
		Status:   searchStatus,
		Category: searchCategory,
		Team:     searchTeam,
	})
	if err != nil {
		return err
	}

	printResults(cmd, results)
	return nil
}

// printResults renders search hits with their scores.
func printResults(cmd *cobra.Command, results []domain.SearchResult) {
	if len(results) == 0 {
		cmd.Println("No results.")
		return
	}

	for i, res := range results {
		title := res.Chunk.Meta.Title
		if title == "" {
			title = res.Chunk.RecordID
		}
		cmd.Printf("%2d. [%.3f] %s (%s, chunk %d)\n",
			i+1, res.Similarity, title, res.Chunk.Meta.Kind, res.Chunk.Index)

		excerpt := res.Chunk.Content
		if len(excerpt) > 160 {
			excerpt = excerpt[:160] + "..."
		}
		cmd.Printf("    %s\n", strings.ReplaceAll(excerpt, "\n", " "))
	}
}
