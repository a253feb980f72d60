// Package config loads application configuration from file, environment
// variables and defaults via viper.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Paperless document source configuration
	Paperless PaperlessConfig `mapstructure:"paperless"`

	// LLM configuration (answer generation, query rewriting, classification)
	LLM ModelConfig `mapstructure:"llm"`

	// Embedding configuration
	Embedding ModelConfig `mapstructure:"embedding"`

	// VectorStore configuration
	VectorStore VectorStoreConfig `mapstructure:"vector_store"`

	// Indexing configuration
	Indexing IndexingConfig `mapstructure:"indexing"`

	// Retrieval configuration
	Retrieval RetrievalConfig `mapstructure:"retrieval"`

	// Confidence scoring configuration
	Confidence ConfidenceConfig `mapstructure:"confidence"`

	// Classify holds the classification vocabulary
	Classify ClassifyConfig `mapstructure:"classify"`

	// History configuration (processed-document ledger)
	History HistoryConfig `mapstructure:"history"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// PaperlessConfig holds the document source connection settings.
type PaperlessConfig struct {
	URL      string `mapstructure:"url"`
	Token    string `mapstructure:"token"`
	PageSize int    `mapstructure:"page_size"`
	Timeout  int    `mapstructure:"timeout"` // seconds
}

// ModelConfig holds settings for one OpenAI-compatible backend.
type ModelConfig struct {
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Timeout     int     `mapstructure:"timeout"` // seconds
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Driver     string `mapstructure:"driver"` // chroma, memory
	URL        string `mapstructure:"url"`
	Collection string `mapstructure:"collection"`
	Timeout    int    `mapstructure:"timeout"` // seconds
}

// IndexingConfig holds chunking and batch-indexing settings.
type IndexingConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
	Workers      int `mapstructure:"workers"`
}

// RetrievalConfig holds the retrieval pipeline tunables.
type RetrievalConfig struct {
	ContextDocs     int  `mapstructure:"context_docs"`      // documents fed to the prompt
	OverFetchFactor int  `mapstructure:"over_fetch_factor"` // per-variant k multiplier
	MultiQuery      bool `mapstructure:"multi_query"`
	QueryVariants   int  `mapstructure:"query_variants"` // LLM reformulations per question
	MaxVariants     int  `mapstructure:"max_variants"`   // fan-out cap across expansion
	LLMExpansion    bool `mapstructure:"llm_expansion"`  // synonym expansion via LLM when the static map misses
	AutoFilters     bool `mapstructure:"auto_filters"`   // extract metadata filters from the question

	// Synonyms replaces the built-in synonym map when set; keys are
	// normalized lower-case phrases.
	Synonyms map[string][]string `mapstructure:"synonyms"`
}

// ConfidenceConfig holds the scoring weights and label thresholds. These are
// product decisions, injected rather than hard-coded in the estimator.
type ConfidenceConfig struct {
	WeightAvgDistance  float64 `mapstructure:"weight_avg_distance"`
	WeightBestDistance float64 `mapstructure:"weight_best_distance"`
	WeightCoverage     float64 `mapstructure:"weight_coverage"`
	WeightAnswer       float64 `mapstructure:"weight_answer"`
	HighThreshold      float64 `mapstructure:"high_threshold"`
	MediumThreshold    float64 `mapstructure:"medium_threshold"`
	DistanceCeiling    float64 `mapstructure:"distance_ceiling"`
}

// ClassifyConfig holds the closed vocabulary used for classification and
// rule-based filter extraction.
type ClassifyConfig struct {
	DocumentTypes  []string `mapstructure:"document_types"`
	PersonTags     []string `mapstructure:"person_tags"`
	Correspondents []string `mapstructure:"correspondents"`
	// ProcessingTag marks documents awaiting batch classification.
	ProcessingTag string `mapstructure:"processing_tag"`
}

// HistoryConfig holds the processed-document ledger settings.
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

// TelemetryConfig holds telemetry configuration.
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
}

// AlertConfig holds configuration for alerting.
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// CircuitBreakerConfig holds configuration for circuit breaking.
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // seconds
	Timeout          int     `mapstructure:"timeout"`  // seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")

	viper.SetDefault("paperless.page_size", 100)
	viper.SetDefault("paperless.timeout", 30)

	viper.SetDefault("llm.model", "llama3.1")
	viper.SetDefault("llm.base_url", "http://localhost:11434")
	viper.SetDefault("llm.temperature", 0.7)
	viper.SetDefault("llm.max_tokens", 1024)
	viper.SetDefault("llm.timeout", 180)

	viper.SetDefault("embedding.model", "nomic-embed-text")
	viper.SetDefault("embedding.base_url", "http://localhost:11434")
	viper.SetDefault("embedding.timeout", 30)

	viper.SetDefault("vector_store.driver", "chroma")
	viper.SetDefault("vector_store.url", "http://localhost:8000")
	viper.SetDefault("vector_store.collection", "paperless_documents")
	viper.SetDefault("vector_store.timeout", 30)

	viper.SetDefault("indexing.chunk_size", 1500)
	viper.SetDefault("indexing.chunk_overlap", 200)
	viper.SetDefault("indexing.workers", 4)

	viper.SetDefault("retrieval.context_docs", 3)
	viper.SetDefault("retrieval.over_fetch_factor", 2)
	viper.SetDefault("retrieval.multi_query", true)
	viper.SetDefault("retrieval.query_variants", 2)
	viper.SetDefault("retrieval.max_variants", 6)
	viper.SetDefault("retrieval.llm_expansion", false)
	viper.SetDefault("retrieval.auto_filters", true)

	viper.SetDefault("confidence.weight_avg_distance", 0.40)
	viper.SetDefault("confidence.weight_best_distance", 0.30)
	viper.SetDefault("confidence.weight_coverage", 0.15)
	viper.SetDefault("confidence.weight_answer", 0.15)
	viper.SetDefault("confidence.high_threshold", 0.70)
	viper.SetDefault("confidence.medium_threshold", 0.45)
	viper.SetDefault("confidence.distance_ceiling", 1.0)

	viper.SetDefault("classify.document_types", []string{
		"Rechnung", "Vertrag", "Kündigung", "Bescheinigung", "Allgemein",
	})
	viper.SetDefault("classify.processing_tag", "KI")

	viper.SetDefault("history.path", "data/history")

	viper.SetDefault("circuit_breaker.enabled", false)
	viper.SetDefault("circuit_breaker.max_requests", 1)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)

	home, err := os.UserHomeDir()
	if err == nil {
		viper.SetDefault("telemetry.parquet_path", home+"/.paperqa/telemetry")
	}
}

// overrideWithEnv overrides config with environment variables.
func overrideWithEnv(config *Config) {
	if url := os.Getenv("PAPERLESS_URL"); url != "" {
		config.Paperless.URL = url
	}
	if token := os.Getenv("PAPERLESS_TOKEN"); token != "" {
		config.Paperless.Token = token
	}
	if url := os.Getenv("OLLAMA_URL"); url != "" {
		config.LLM.BaseURL = url
		config.Embedding.BaseURL = url
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		if config.LLM.APIKey == "" {
			config.LLM.APIKey = key
		}
		if config.Embedding.APIKey == "" {
			config.Embedding.APIKey = key
		}
	}
	if url := os.Getenv("CHROMA_URL"); url != "" {
		config.VectorStore.URL = url
	}
}
