package paperqa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/paperqa/paperqa"
	"github.com/paperqa/paperqa/pkg/alert"
	"github.com/paperqa/paperqa/pkg/classify"
	"github.com/paperqa/paperqa/pkg/config"
	"github.com/paperqa/paperqa/pkg/embedder"
	"github.com/paperqa/paperqa/pkg/filters"
	"github.com/paperqa/paperqa/pkg/history"
	"github.com/paperqa/paperqa/pkg/logger"
	"github.com/paperqa/paperqa/pkg/nlp"
	"github.com/paperqa/paperqa/pkg/paperless"
	"github.com/paperqa/paperqa/pkg/vectorstore"
)

// app bundles the wired pipeline for one command invocation.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	client     *paperqa.Client
	source     *paperless.Client
	embedder   embedder.Client
	classifier *classify.Classifier
	applier    *classify.Applier
	processor  *classify.Processor
}

// buildApp loads the configuration and wires every collaborator of the
// pipeline: models, vector store, document source, ledger and extractors.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Telemetry.ParquetPath != "" {
		if err := os.MkdirAll(cfg.Telemetry.ParquetPath, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create telemetry directory: %w", err)
		}
	}
	log, err := logger.New(cfg.Log, cfg.Telemetry.ParquetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	slog.SetDefault(log)

	alerter := buildAlerter(cfg, log)

	llmClient, err := buildLLM(cfg, alerter, log)
	if err != nil {
		return nil, err
	}

	embedderClient, err := buildEmbedder(cfg, alerter, log)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var source *paperless.Client
	if cfg.Paperless.URL != "" {
		source, err = paperless.NewClient(paperless.Config{
			URL:            cfg.Paperless.URL,
			Token:          cfg.Paperless.Token,
			PageSize:       cfg.Paperless.PageSize,
			TimeoutSeconds: cfg.Paperless.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create paperless client: %w", err)
		}
	}

	opts := []paperqa.Option{
		paperqa.WithFilterExtractor(buildExtractor(cfg, llmClient, log)),
	}
	var ledger *history.Ledger
	if cfg.History.Path != "" {
		ledger, err = history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open history ledger: %w", err)
		}
		opts = append(opts, paperqa.WithHistory(ledger))
	}

	pipelineCfg := &paperqa.Config{
		Retrieval:  cfg.Retrieval,
		Confidence: cfg.Confidence,
		Indexing:   cfg.Indexing,
	}

	var docSource paperqa.DocumentSource
	if source != nil {
		docSource = source
	}
	client, err := paperqa.NewClient(docSource, embedderClient, llmClient, store, pipelineCfg, log, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	a := &app{
		cfg:      cfg,
		logger:   log,
		client:   client,
		source:   source,
		embedder: embedderClient,
		classifier: classify.NewClassifier(llmClient, classify.Vocabulary{
			DocumentTypes:  cfg.Classify.DocumentTypes,
			PersonTags:     cfg.Classify.PersonTags,
			Correspondents: cfg.Classify.Correspondents,
		}, log),
	}
	if source != nil {
		a.applier = classify.NewApplier(source, log)
	}
	// The batch workflow needs both the archive and the ledger that keeps
	// re-runs from classifying the same documents twice.
	if source != nil && ledger != nil {
		a.processor = classify.NewProcessor(source, a.classifier, a.applier, ledger, cfg.Classify.ProcessingTag, log)
	}
	return a, nil
}

// requireSource fails commands that cannot run without a configured
// Paperless instance.
func (a *app) requireSource() error {
	if a.source == nil {
		return errors.New("no paperless instance configured (set paperless.url or PAPERLESS_URL)")
	}
	return nil
}

func (a *app) Close() error {
	return a.client.Close()
}

func buildAlerter(cfg *config.Config, log *slog.Logger) alert.Alerter {
	if cfg.Alert.Enabled {
		return alert.NewEmailAlerter(cfg.Alert)
	}
	return alert.NewLogAlerter(log)
}

func buildLLM(cfg *config.Config, alerter alert.Alerter, log *slog.Logger) (nlp.Client, error) {
	base, err := nlp.NewOpenAIClient(cfg.LLM.APIKey, nlp.Config{
		Model:          cfg.LLM.Model,
		Temperature:    &cfg.LLM.Temperature,
		MaxTokens:      &cfg.LLM.MaxTokens,
		BaseURL:        cfg.LLM.BaseURL,
		TimeoutSeconds: cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	var client nlp.Client = nlp.NewRetryClient(base, nlp.DefaultRetryConfig())
	if cfg.CircuitBreaker.Enabled {
		client = nlp.NewCircuitBreakerClient(client, cfg.CircuitBreaker, alerter, log, "llm")
	}
	return client, nil
}

func buildEmbedder(cfg *config.Config, alerter alert.Alerter, log *slog.Logger) (embedder.Client, error) {
	base, err := embedder.NewOpenAIClient(cfg.Embedding.APIKey, embedder.Config{
		Model:          cfg.Embedding.Model,
		BaseURL:        cfg.Embedding.BaseURL,
		TimeoutSeconds: cfg.Embedding.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	var client embedder.Client = embedder.NewCachedClient(base)
	if cfg.CircuitBreaker.Enabled {
		client = embedder.NewCircuitBreakerClient(client, cfg.CircuitBreaker, alerter, log, "embedder")
	}
	return client, nil
}

func buildStore(ctx context.Context, cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.VectorStore.Driver {
	case "chroma":
		store, err := vectorstore.NewChromaStore(ctx, vectorstore.ChromaConfig{
			URL:            cfg.VectorStore.URL,
			Collection:     cfg.VectorStore.Collection,
			TimeoutSeconds: cfg.VectorStore.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to chroma: %w", err)
		}
		return store, nil
	case "memory":
		return vectorstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported vector store driver: %s", cfg.VectorStore.Driver)
	}
}

// buildExtractor assembles the filter extraction chain: cheap vocabulary
// rules first, the model as fallback.
func buildExtractor(cfg *config.Config, llm nlp.Client, log *slog.Logger) filters.Extractor {
	vocab := filters.Vocabulary{
		DocumentTypes:  cfg.Classify.DocumentTypes,
		Correspondents: cfg.Classify.Correspondents,
		Tags:           cfg.Classify.PersonTags,
	}
	return filters.NewHybridExtractor(
		filters.NewRulesExtractor(vocab),
		filters.NewLLMExtractor(llm, vocab, log),
	)
}
