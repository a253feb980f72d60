package paperqa

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configInitOutput string

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default values",
	RunE:  runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "", "target path (default is $HOME/.paperqa.yaml)")
}

const configHeader = `# PaperQA configuration.
# Every value below is the default; delete what you do not change.
# PAPERLESS_URL, PAPERLESS_TOKEN, OPENAI_API_KEY, OLLAMA_URL and CHROMA_URL
# override their corresponding entries.
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configInitOutput
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to resolve home directory: %w", err)
		}
		path = filepath.Join(home, ".paperqa.yaml")
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", path)
	}

	raw, err := yaml.Marshal(defaultConfigDocument())
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}

	if err := os.WriteFile(path, append([]byte(configHeader), raw...), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	color.Green("✓ wrote %s", path)
	return nil
}

// defaultConfigDocument mirrors the viper defaults as a YAML document.
func defaultConfigDocument() map[string]any {
	return map[string]any{
		"log": map[string]any{
			"level":  "info",
			"format": "text",
		},
		"server": map[string]any{
			"host": "localhost",
			"port": 8080,
			"mode": "release",
		},
		"paperless": map[string]any{
			"url":       "",
			"token":     "",
			"page_size": 100,
			"timeout":   30,
		},
		"llm": map[string]any{
			"model":       "llama3.1",
			"base_url":    "http://localhost:11434",
			"temperature": 0.7,
			"max_tokens":  1024,
			"timeout":     180,
		},
		"embedding": map[string]any{
			"model":    "nomic-embed-text",
			"base_url": "http://localhost:11434",
			"timeout":  30,
		},
		"vector_store": map[string]any{
			"driver":     "chroma",
			"url":        "http://localhost:8000",
			"collection": "paperless_documents",
			"timeout":    30,
		},
		"indexing": map[string]any{
			"chunk_size":    1500,
			"chunk_overlap": 200,
			"workers":       4,
		},
		"retrieval": map[string]any{
			"context_docs":      3,
			"over_fetch_factor": 2,
			"multi_query":       true,
			"query_variants":    2,
			"max_variants":      6,
			"llm_expansion":     false,
			"auto_filters":      true,
		},
		"confidence": map[string]any{
			"weight_avg_distance":  0.40,
			"weight_best_distance": 0.30,
			"weight_coverage":      0.15,
			"weight_answer":        0.15,
			"high_threshold":       0.70,
			"medium_threshold":     0.45,
			"distance_ceiling":     1.0,
		},
		"classify": map[string]any{
			"document_types": []string{
				"Rechnung", "Vertrag", "Kündigung", "Bescheinigung", "Allgemein",
			},
			"person_tags":    []string{},
			"correspondents": []string{},
			"processing_tag": "KI",
		},
		"history": map[string]any{
			"path": "data/history",
		},
		"circuit_breaker": map[string]any{
			"enabled":             false,
			"max_requests":        1,
			"interval":            60,
			"timeout":             30,
			"ready_to_trip_ratio": 0.6,
		},
	}
}
