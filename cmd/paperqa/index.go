package paperqa

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/paperqa/paperqa/pkg/types"
)

var indexForce bool

var indexCmd = &cobra.Command{
	Use:   "index [document-id]",
	Short: "Index documents into the vector store",
	Long: `Index documents from the configured Paperless instance.

Without arguments the whole corpus is indexed; already-indexed, unchanged
documents are skipped via their content hash. With a document id only that
document is indexed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "re-index documents even when unchanged")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireSource(); err != nil {
		return err
	}

	if len(args) == 1 {
		status, err := a.client.IndexDocument(ctx, types.Document{ID: args[0]}, indexForce)
		if err != nil {
			return err
		}
		switch status {
		case types.IndexStatusIndexed:
			color.Green("✓ document %s indexed", args[0])
		case types.IndexStatusSkipped:
			color.Yellow("- document %s unchanged, skipped", args[0])
		default:
			color.Red("✗ document %s failed", args[0])
		}
		return nil
	}

	fmt.Println("Indexing all documents...")
	stats, err := a.client.IndexAll(ctx, indexForce)
	if err != nil {
		return err
	}

	color.Green("✓ %d indexed", stats.Indexed)
	color.Yellow("- %d skipped", stats.Skipped)
	if stats.Failed > 0 {
		color.Red("✗ %d failed", stats.Failed)
	}
	fmt.Printf("%d documents total\n", stats.Total())
	return nil
}
