package paperqa

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/paperqa/paperqa/pkg/types"
)

var (
	searchK             int
	searchType          string
	searchCorrespondent string
	searchYear          string
	searchTags          []string
)

var searchCmd = &cobra.Command{
	Use:   "search <question>",
	Short: "Search the indexed documents without generating an answer",
	Long: `Search returns the best-matching documents for a question. Filters left
empty are extracted from the question automatically.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().IntVarP(&searchK, "limit", "k", 0, "number of documents to return (0 uses the configured default)")
	searchCmd.Flags().StringVar(&searchType, "type", "", "restrict to a document type")
	searchCmd.Flags().StringVar(&searchCorrespondent, "correspondent", "", "restrict to a correspondent")
	searchCmd.Flags().StringVar(&searchYear, "year", "", "restrict to a creation year")
	searchCmd.Flags().StringSliceVar(&searchTags, "tag", nil, "restrict to documents carrying the tag (repeatable)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	question := strings.Join(args, " ")

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	filter := &types.Filter{
		DocumentType:  searchType,
		Correspondent: searchCorrespondent,
		Year:          searchYear,
		Tags:          searchTags,
	}
	var filterArg *types.Filter
	if !filter.IsZero() {
		filterArg = filter
	}

	result, err := a.client.Search(ctx, question, searchK, filterArg)
	if err != nil {
		return err
	}

	if result.Degraded {
		color.Red("Die Suche ist momentan nicht verfügbar.")
		return nil
	}
	if result.Empty() {
		color.Yellow("Keine passenden Dokumente gefunden.")
		return nil
	}

	for i, hit := range result.Hits {
		title := hit.Metadata.Title
		if title == "" {
			title = "Unbekannt"
		}
		color.Cyan("[%d] %s  (Distanz %.3f)", i+1, title, hit.Distance)

		var details []string
		if hit.Metadata.Correspondent != "" {
			details = append(details, "Von: "+hit.Metadata.Correspondent)
		}
		if hit.Metadata.DocumentType != "" {
			details = append(details, "Typ: "+hit.Metadata.DocumentType)
		}
		if hit.Metadata.Created != "" {
			details = append(details, "Datum: "+hit.Metadata.Created)
		}
		if len(details) > 0 {
			fmt.Println("    " + strings.Join(details, "  "))
		}

		excerpt := hit.Text
		if len(excerpt) > 160 {
			excerpt = excerpt[:160] + "..."
		}
		fmt.Println("    " + excerpt)
		fmt.Println()
	}
	return nil
}
