package paperqa

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var classifyApply bool

var classifyCmd = &cobra.Command{
	Use:   "classify [document-id]",
	Short: "Suggest metadata for documents",
	Long: `Classify reads a document from Paperless and suggests document type,
person tags, correspondent and creation date from its content, restricted to
the configured vocabulary. With --apply the suggestion is written back.

Without a document id every document carrying the processing tag
(classify.processing_tag) is classified, applied and recorded in the
history ledger. Documents with a ledger entry are skipped on re-runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().BoolVar(&classifyApply, "apply", false, "write the suggested metadata back to Paperless")
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireSource(); err != nil {
		return err
	}

	if len(args) == 0 {
		return runClassifyBatch(ctx, a)
	}

	doc, err := a.source.GetDocument(ctx, args[0])
	if err != nil {
		return err
	}

	result, err := a.classifier.Classify(ctx, doc.Content)
	if err != nil {
		return err
	}
	if result.Empty() {
		color.Yellow("Keine Metadaten erkannt.")
		return nil
	}

	color.Cyan("Vorschlag für %q:", doc.Title)
	if result.DocumentType != "" {
		fmt.Printf("  Typ:            %s\n", result.DocumentType)
	}
	if result.Correspondent != "" {
		fmt.Printf("  Korrespondent:  %s\n", result.Correspondent)
	}
	if len(result.PersonTags) > 0 {
		fmt.Printf("  Personen:       %v\n", result.PersonTags)
	}
	if result.Date != "" {
		fmt.Printf("  Datum:          %s\n", result.Date)
	}

	if !classifyApply {
		return nil
	}
	if err := a.applier.Apply(ctx, *doc, result); err != nil {
		return err
	}
	color.Green("✓ Metadaten übernommen")
	return nil
}

// runClassifyBatch processes every pending tagged document.
func runClassifyBatch(ctx context.Context, a *app) error {
	if a.processor == nil {
		return errors.New("batch classification needs a history ledger (set history.path)")
	}

	pending, err := a.processor.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		color.Green("Keine unverarbeiteten Dokumente.")
		return nil
	}
	fmt.Printf("%d Dokumente zu verarbeiten\n", len(pending))

	report, err := a.processor.ProcessPending(ctx)
	if err != nil {
		return err
	}

	color.Green("✓ Verarbeitet:     %d", report.Processed)
	if report.Skipped > 0 {
		color.Yellow("  Übersprungen:   %d", report.Skipped)
	}
	if report.Failed > 0 {
		color.Red("✗ Fehlgeschlagen: %d", report.Failed)
	}
	return nil
}
