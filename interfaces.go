package paperqa

import (
	"context"

	"github.com/paperqa/paperqa/pkg/types"
)

// This file defines focused interfaces so consumers can depend on the
// smallest surface that meets their needs. The Client implements all of
// them.

// Indexer ingests documents into the vector store.
type Indexer interface {
	// IndexDocument chunks, embeds and stores one document. Unchanged
	// documents are skipped unless force is set; changed documents have
	// their stale chunks replaced.
	IndexDocument(ctx context.Context, doc types.Document, force bool) (types.IndexStatus, error)

	// IndexAll indexes the whole archive. Only one run may be active at
	// a time; a second call fails with ErrIndexingInProgress. Individual
	// document failures are counted, not fatal.
	IndexAll(ctx context.Context, force bool) (*types.IndexStats, error)
}

// Searcher performs semantic retrieval over the indexed corpus.
type Searcher interface {
	// Search returns the k best-matching documents for the question,
	// at most one hit per source document, best first. A nil filter
	// enables automatic filter extraction from the question.
	Search(ctx context.Context, question string, k int, filter *types.Filter) (*types.RetrievalResult, error)
}

// Answerer answers questions against the indexed corpus.
type Answerer interface {
	// Ask retrieves context for the question and generates a cited,
	// confidence-scored answer.
	Ask(ctx context.Context, question string) (*types.Answer, error)
}

// Maintainer provides administrative operations on the index.
type Maintainer interface {
	// DeleteDocument removes a document's chunks from the index.
	DeleteDocument(ctx context.Context, documentID string) error

	// Reset drops the whole index and the processing ledger.
	Reset(ctx context.Context) error

	// Stats reports the current index size and processing history.
	Stats(ctx context.Context) (*Statistics, error)
}

// Compile-time check that Client composes all focused interfaces.
var _ interface {
	Indexer
	Searcher
	Answerer
	Maintainer
} = (*Client)(nil)
