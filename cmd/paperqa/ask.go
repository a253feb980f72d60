package paperqa

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/paperqa/paperqa/pkg/types"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about the indexed documents",
	Long: `Ask a natural-language question. The answer cites the documents it was
generated from and carries a confidence estimate.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	question := strings.Join(args, " ")

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := a.client.Ask(ctx, question)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(answer.Text)
	fmt.Println()

	if len(answer.Sources) > 0 {
		color.Cyan("Quellen:")
		for i, src := range answer.Sources {
			line := fmt.Sprintf("  [%d] %s", i+1, src.Title)
			if src.Correspondent != "" {
				line += " (" + src.Correspondent + ")"
			}
			fmt.Printf("%s  %.0f%%\n", line, src.Relevance*100)
		}
		fmt.Println()
	}

	printConfidence(answer.Confidence)
	if answer.Degraded {
		color.Red("Hinweis: Die Suche war eingeschränkt verfügbar.")
	}
	return nil
}

func printConfidence(conf types.Confidence) {
	text := fmt.Sprintf("Konfidenz: %s (%.2f)", conf.Label, conf.Score)
	switch conf.Label {
	case types.ConfidenceHigh:
		color.Green(text)
	case types.ConfidenceMedium:
		color.Yellow(text)
	default:
		color.Red(text)
	}
}
