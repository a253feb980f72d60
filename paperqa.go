package paperqa

import (
	"context"
	"errors"
	"log/slog"

	"github.com/paperqa/paperqa/pkg/chunker"
	"github.com/paperqa/paperqa/pkg/config"
	"github.com/paperqa/paperqa/pkg/embedder"
	"github.com/paperqa/paperqa/pkg/filters"
	"github.com/paperqa/paperqa/pkg/history"
	"github.com/paperqa/paperqa/pkg/nlp"
	"github.com/paperqa/paperqa/pkg/query"
	"github.com/paperqa/paperqa/pkg/types"
	"github.com/paperqa/paperqa/pkg/vectorstore"
)

var (
	// ErrIndexingInProgress is returned when a bulk indexing run is
	// already active.
	ErrIndexingInProgress = errors.New("indexing already in progress")
	// ErrEmptyQuestion is returned when the question is blank.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrNoContent is returned when a document has no text to index.
	ErrNoContent = errors.New("document has no content")
)

// DocumentSource supplies documents to index. The Paperless client
// implements it; tests use fixtures. A non-empty tag restricts the listing
// to documents carrying that tag.
type DocumentSource interface {
	ListDocuments(ctx context.Context, tag string) ([]types.Document, error)
	GetDocument(ctx context.Context, id string) (*types.Document, error)
}

// Config holds the pipeline tunables for a Client.
type Config struct {
	Retrieval  config.RetrievalConfig
	Confidence config.ConfidenceConfig
	Indexing   config.IndexingConfig
}

// DefaultConfig returns the configuration the pipeline was tuned with.
func DefaultConfig() *Config {
	return &Config{
		Retrieval: config.RetrievalConfig{
			ContextDocs:     3,
			OverFetchFactor: 2,
			MultiQuery:      true,
			QueryVariants:   2,
			MaxVariants:     6,
			AutoFilters:     true,
		},
		Confidence: config.ConfidenceConfig{
			WeightAvgDistance:  0.40,
			WeightBestDistance: 0.30,
			WeightCoverage:     0.15,
			WeightAnswer:       0.15,
			HighThreshold:      0.70,
			MediumThreshold:    0.45,
			DistanceCeiling:    1.0,
		},
		Indexing: config.IndexingConfig{
			ChunkSize:    chunker.DefaultSize,
			ChunkOverlap: chunker.DefaultOverlap,
			Workers:      4,
		},
	}
}

// Client is the main implementation of the question answering pipeline.
type Client struct {
	source    DocumentSource
	embedder  embedder.Client
	llm       nlp.Client
	store     vectorstore.Store
	chunker   *chunker.Chunker
	expander  *query.Expander
	multi     *query.MultiQuery
	extractor filters.Extractor
	estimator *ConfidenceEstimator
	ledger    *history.Ledger
	config    *Config
	logger    *slog.Logger

	indexing indexingGuard
}

// Option customizes a Client beyond its required collaborators.
type Option func(*Client)

// WithFilterExtractor sets the extractor used for automatic metadata
// filtering of questions.
func WithFilterExtractor(e filters.Extractor) Option {
	return func(c *Client) { c.extractor = e }
}

// WithHistory attaches the ledger of classified documents, so Stats can
// report processing history and Reset can clear it.
func WithHistory(l *history.Ledger) Option {
	return func(c *Client) { c.ledger = l }
}

// WithSynonyms replaces the built-in synonym table used for query
// expansion.
func WithSynonyms(synonyms map[string][]string) Option {
	return func(c *Client) {
		c.expander = query.NewExpander(synonyms, c.llm, c.config.Retrieval.LLMExpansion, c.logger)
	}
}

// NewClient creates a question answering client over the given
// collaborators. A nil config uses DefaultConfig; a nil logger uses
// slog.Default.
func NewClient(source DocumentSource, embedderClient embedder.Client, llmClient nlp.Client, store vectorstore.Store, cfg *Config, logger *slog.Logger, opts ...Option) (*Client, error) {
	if store == nil {
		return nil, errors.New("vector store is required")
	}
	if embedderClient == nil {
		return nil, errors.New("embedder is required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		source:    source,
		embedder:  embedderClient,
		llm:       llmClient,
		store:     store,
		chunker:   chunker.New(cfg.Indexing.ChunkSize, cfg.Indexing.ChunkOverlap),
		expander:  query.NewExpander(cfg.Retrieval.Synonyms, llmClient, cfg.Retrieval.LLMExpansion, logger),
		multi:     query.NewMultiQuery(llmClient, logger),
		estimator: NewConfidenceEstimator(cfg.Confidence),
		config:    cfg,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Statistics reports the state of the index and the processing ledger.
type Statistics struct {
	IndexedChunks int            `json:"indexed_chunks"`
	History       *history.Stats `json:"history,omitempty"`
}

// DeleteDocument removes a document's chunks from the index and clears its
// ledger entry so the next classification run picks it up again.
func (c *Client) DeleteDocument(ctx context.Context, documentID string) error {
	if err := c.store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	if c.ledger != nil {
		return c.ledger.Reset(documentID)
	}
	return nil
}

// Reset drops the whole index and the processing ledger.
func (c *Client) Reset(ctx context.Context) error {
	if err := c.store.DeleteAll(ctx); err != nil {
		return err
	}
	if c.ledger != nil {
		return c.ledger.ResetAll()
	}
	return nil
}

// Stats reports the current index size and processing history.
func (c *Client) Stats(ctx context.Context) (*Statistics, error) {
	count, err := c.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Statistics{IndexedChunks: count}
	if c.ledger != nil {
		hs, err := c.ledger.Statistics()
		if err != nil {
			return nil, err
		}
		stats.History = &hs
	}
	return stats, nil
}

// Close releases the client's backends.
func (c *Client) Close() error {
	var errs []error
	if c.llm != nil {
		errs = append(errs, c.llm.Close())
	}
	if c.embedder != nil {
		errs = append(errs, c.embedder.Close())
	}
	errs = append(errs, c.store.Close())
	if c.ledger != nil {
		errs = append(errs, c.ledger.Close())
	}
	return errors.Join(errs...)
}
