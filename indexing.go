package paperqa

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/paperqa/paperqa/pkg/types"
	"github.com/paperqa/paperqa/pkg/vectorstore"
)

// indexingGuard serializes bulk indexing runs.
type indexingGuard struct {
	running atomic.Bool
}

func (g *indexingGuard) acquire() bool { return g.running.CompareAndSwap(false, true) }
func (g *indexingGuard) release()      { g.running.Store(false) }

// contentHash fingerprints the document text so changed documents can be
// told apart from already-indexed ones.
func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// IndexDocument chunks, embeds and stores one document.
//
// The chunk id is derived from the document id and chunk index, so indexing
// is idempotent: an unchanged document is detected via the content hash on
// its first chunk and skipped. A changed document has all of its old chunks
// deleted before the new ones are written, so shrinking documents leave no
// stale chunks behind.
func (c *Client) IndexDocument(ctx context.Context, doc types.Document, force bool) (types.IndexStatus, error) {
	content := doc.Content
	if content == "" && c.source != nil {
		full, err := c.source.GetDocument(ctx, doc.ID)
		if err != nil {
			return types.IndexStatusFailed, fmt.Errorf("failed to fetch document %s: %w", doc.ID, err)
		}
		content = full.Content
	}
	if strings.TrimSpace(content) == "" {
		c.logger.Warn("document has no content, skipping", "doc", doc.ID, "title", doc.Title)
		return types.IndexStatusSkipped, nil
	}

	hash := contentHash(content)

	if !force {
		status, err := c.checkExisting(ctx, doc.ID, hash)
		if err != nil {
			return types.IndexStatusFailed, err
		}
		if status == types.IndexStatusSkipped {
			c.logger.Debug("document unchanged, skipping", "doc", doc.ID)
			return types.IndexStatusSkipped, nil
		}
	} else {
		// Forced runs always replace whatever is there.
		if err := c.store.DeleteDocument(ctx, doc.ID); err != nil {
			return types.IndexStatusFailed, fmt.Errorf("failed to clear stale chunks for %s: %w", doc.ID, err)
		}
	}

	texts := c.chunker.Chunk(content)
	if len(texts) == 0 {
		return types.IndexStatusSkipped, nil
	}

	vectors, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return types.IndexStatusFailed, fmt.Errorf("failed to embed document %s: %w", doc.ID, err)
	}

	chunks := make([]vectorstore.Chunk, len(texts))
	for i, text := range texts {
		meta := types.ChunkMetadata{
			DocumentID:    doc.ID,
			Title:         doc.Title,
			Correspondent: doc.Correspondent,
			DocumentType:  doc.DocumentType,
			Created:       doc.Created,
			Tags:          strings.Join(doc.Tags, ","),
			ChunkIndex:    i,
			TotalChunks:   len(texts),
		}
		if i == 0 {
			meta.ContentHash = hash
		}
		chunks[i] = vectorstore.Chunk{
			ID:       types.ChunkID(doc.ID, i),
			Text:     text,
			Vector:   vectors[i],
			Metadata: meta.ToMap(),
		}
	}

	if err := c.store.Upsert(ctx, chunks); err != nil {
		return types.IndexStatusFailed, fmt.Errorf("failed to store chunks for %s: %w", doc.ID, err)
	}

	c.logger.Info("document indexed", "doc", doc.ID, "title", doc.Title, "chunks", len(chunks))
	return types.IndexStatusIndexed, nil
}

// checkExisting decides whether an already-indexed document can be skipped.
// A matching content hash on chunk 0 means unchanged; a mismatch means the
// document changed and its old chunks are deleted here.
func (c *Client) checkExisting(ctx context.Context, documentID, hash string) (types.IndexStatus, error) {
	first, err := c.store.Get(ctx, types.ChunkID(documentID, 0))
	if errors.Is(err, vectorstore.ErrNotFound) {
		return types.IndexStatusIndexed, nil
	}
	if err != nil {
		return types.IndexStatusFailed, fmt.Errorf("failed to check existing chunks for %s: %w", documentID, err)
	}

	if first.Metadata[types.MetaContentHash] == hash {
		return types.IndexStatusSkipped, nil
	}

	c.logger.Info("document changed, re-indexing", "doc", documentID)
	if err := c.store.DeleteDocument(ctx, documentID); err != nil {
		return types.IndexStatusFailed, fmt.Errorf("failed to delete stale chunks for %s: %w", documentID, err)
	}
	return types.IndexStatusIndexed, nil
}

// IndexAll indexes every document in the source archive with a bounded
// worker pool. One failing document never aborts the run.
func (c *Client) IndexAll(ctx context.Context, force bool) (*types.IndexStats, error) {
	if !c.indexing.acquire() {
		return nil, ErrIndexingInProgress
	}
	defer c.indexing.release()

	if c.source == nil {
		return nil, fmt.Errorf("no document source configured")
	}

	docs, err := c.source.ListDocuments(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	c.logger.Info("bulk indexing started", "documents", len(docs), "force", force)

	workers := c.config.Indexing.Workers
	if workers <= 0 {
		workers = 1
	}

	var (
		mu    sync.Mutex
		stats types.IndexStats
		wg    sync.WaitGroup
		sem   = make(chan struct{}, workers)
	)

	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(doc types.Document) {
			defer wg.Done()
			defer func() { <-sem }()

			status, err := c.IndexDocument(ctx, doc, force)
			if err != nil {
				c.logger.Error("indexing failed", "doc", doc.ID, "title", doc.Title, "error", err)
			}

			mu.Lock()
			switch status {
			case types.IndexStatusIndexed:
				stats.Indexed++
			case types.IndexStatusSkipped:
				stats.Skipped++
			default:
				stats.Failed++
			}
			mu.Unlock()
		}(doc)
	}
	wg.Wait()

	c.logger.Info("bulk indexing finished",
		"indexed", stats.Indexed, "skipped", stats.Skipped, "failed", stats.Failed)
	return &stats, nil
}
