package paperqa

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statsCheck bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index size and processing history",
	Long: `Stats reports the number of indexed chunks and the processing history.
With --check it also verifies that the document source, the embedding
backend and the vector store are reachable.`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsCheck, "check", false, "verify backend connectivity")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if statsCheck {
		if err := runChecks(ctx, a); err != nil {
			return err
		}
		fmt.Println()
	}

	stats, err := a.client.Stats(ctx)
	if err != nil {
		return err
	}

	color.Cyan("Index")
	fmt.Printf("  indexed chunks: %d\n", stats.IndexedChunks)

	if stats.History != nil {
		color.Cyan("Processing history")
		fmt.Printf("  documents processed: %d\n", stats.History.Total)
		fmt.Printf("  successful:          %d\n", stats.History.Successful)
		if stats.History.Failed > 0 {
			color.Red("  failed:              %d", stats.History.Failed)
		} else {
			fmt.Printf("  failed:              %d\n", stats.History.Failed)
		}
	}
	return nil
}

// runChecks probes every configured backend and reports per-backend status.
// A failing backend does not abort the remaining probes.
func runChecks(ctx context.Context, a *app) error {
	color.Cyan("Connectivity")

	failed := false
	report := func(name string, err error) {
		if err != nil {
			color.Red("  ✗ %s: %v", name, err)
			failed = true
			return
		}
		color.Green("  ✓ %s", name)
	}

	if a.source != nil {
		report("paperless", a.source.TestConnection(ctx))
	} else {
		color.Yellow("  - paperless: not configured")
	}

	_, err := a.embedder.EmbedSingle(ctx, "Verbindungstest")
	report("embedding backend", err)

	_, err = a.client.Stats(ctx)
	report("vector store", err)

	if failed {
		return fmt.Errorf("one or more backends are unreachable")
	}
	return nil
}
