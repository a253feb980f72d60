package paperqa

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset [document-id]",
	Short: "Remove documents from the index",
	Long: `Without arguments the whole index and the processing history are dropped.
With a document id only that document's chunks and history entry are removed,
so the next indexing and classification runs pick it up again.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip the confirmation prompt")
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(args) == 1 {
		if err := a.client.DeleteDocument(ctx, args[0]); err != nil {
			return err
		}
		color.Green("✓ document %s removed from the index", args[0])
		return nil
	}

	if !resetYes && !confirm("Drop the whole index and processing history?") {
		fmt.Println("aborted")
		return nil
	}
	if err := a.client.Reset(ctx); err != nil {
		return err
	}
	color.Green("✓ index reset")
	return nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
