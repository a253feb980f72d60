package types

import (
	"sort"
	"strconv"
	"strings"
)

// ContextKey is a typed key for context values carried through the pipeline.
type ContextKey string

const (
	// ContextKeyRequestID carries the request id assigned by the HTTP layer.
	ContextKeyRequestID ContextKey = "request_id"
	// ContextKeySessionID carries the conversation session id.
	ContextKeySessionID ContextKey = "session_id"
	// ContextKeyRequestSource identifies the entry point (cli, http).
	ContextKeyRequestSource ContextKey = "request_source"
)

// Document is a document as delivered by the document source. Content is
// only populated when it was explicitly requested.
type Document struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Correspondent string   `json:"correspondent"`
	DocumentType  string   `json:"document_type"`
	Created       string   `json:"created"` // ISO date string, e.g. 2024-03-15
	Tags          []string `json:"tags"`
	ASN           string   `json:"archive_serial_number,omitempty"`
	Content       string   `json:"content,omitempty"`
}

// ChunkID derives the deterministic vector-store key for one chunk of a
// document. It is a pure function of (document id, chunk index) so that
// re-indexing an unchanged document is detectable by an existence check.
func ChunkID(documentID string, index int) string {
	return documentID + "_chunk_" + strconv.Itoa(index)
}

// ChunkMetadata is the denormalized, flat, string-valued metadata stored
// with every chunk. The vector store only filters on scalar fields, so
// document-level attributes are copied onto each chunk at creation time.
type ChunkMetadata struct {
	DocumentID    string
	Title         string
	Correspondent string
	DocumentType  string
	Created       string
	Tags          string // comma-joined tag list
	ChunkIndex    int
	TotalChunks   int
	ContentHash   string // sha256 of the full document content, chunk 0 only
}

// Metadata field names as stored in the vector store.
const (
	MetaDocumentID    = "doc_id_original"
	MetaTitle         = "title"
	MetaCorrespondent = "correspondent"
	MetaDocumentType  = "document_type"
	MetaCreated       = "created"
	MetaTags          = "tags"
	MetaChunkIndex    = "chunk_index"
	MetaTotalChunks   = "total_chunks"
	MetaContentHash   = "content_hash"
)

// ToMap flattens the metadata into the string map the store expects.
func (m ChunkMetadata) ToMap() map[string]string {
	return map[string]string{
		MetaDocumentID:    m.DocumentID,
		MetaTitle:         m.Title,
		MetaCorrespondent: m.Correspondent,
		MetaDocumentType:  m.DocumentType,
		MetaCreated:       m.Created,
		MetaTags:          m.Tags,
		MetaChunkIndex:    strconv.Itoa(m.ChunkIndex),
		MetaTotalChunks:   strconv.Itoa(m.TotalChunks),
		MetaContentHash:   m.ContentHash,
	}
}

// MetadataFromMap rebuilds ChunkMetadata from a stored string map.
// Unknown or malformed numeric fields default to zero.
func MetadataFromMap(m map[string]string) ChunkMetadata {
	idx, _ := strconv.Atoi(m[MetaChunkIndex])
	total, _ := strconv.Atoi(m[MetaTotalChunks])
	return ChunkMetadata{
		DocumentID:    m[MetaDocumentID],
		Title:         m[MetaTitle],
		Correspondent: m[MetaCorrespondent],
		DocumentType:  m[MetaDocumentType],
		Created:       m[MetaCreated],
		Tags:          m[MetaTags],
		ChunkIndex:    idx,
		TotalChunks:   total,
		ContentHash:   m[MetaContentHash],
	}
}

// TagList splits the comma-joined tag field back into individual tags.
func (m ChunkMetadata) TagList() []string {
	if m.Tags == "" {
		return nil
	}
	parts := strings.Split(m.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// SearchHit is one result of a similarity search. Distance follows the
// cosine-distance convention: lower means more similar.
type SearchHit struct {
	ChunkID    string        `json:"chunk_id"`
	DocumentID string        `json:"doc_id"`
	Text       string        `json:"text"`
	Distance   float64       `json:"distance"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// RetrievalResult is an ordered, deduplicated set of hits: at most one hit
// per source document, best match first, capped at the caller's k.
//
// Degraded marks a result produced while every query variant failed against
// the backends. It is distinct from an empty result, which means the search
// ran correctly and nothing qualified.
type RetrievalResult struct {
	Hits     []SearchHit `json:"hits"`
	Degraded bool        `json:"degraded"`
}

// Empty reports whether the result carries no hits.
func (r *RetrievalResult) Empty() bool {
	return r == nil || len(r.Hits) == 0
}

// DocumentIDs returns the source document ids in result order.
func (r *RetrievalResult) DocumentIDs() []string {
	ids := make([]string, 0, len(r.Hits))
	for _, h := range r.Hits {
		ids = append(ids, h.DocumentID)
	}
	return ids
}

// SortHitsByDistance orders hits ascending by distance. The sort is stable
// so equal distances keep their first-seen order.
func SortHitsByDistance(hits []SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
}

// Filter is a partial metadata predicate applied during retrieval.
// DocumentType and Correspondent are exact-match fields the store can
// evaluate natively; Year and Tags are evaluated as post-filters because
// the store only supports scalar equality.
type Filter struct {
	DocumentType  string   `json:"document_type,omitempty"`
	Correspondent string   `json:"correspondent,omitempty"`
	Year          string   `json:"year,omitempty"`
	Tags          []string `json:"tags,omitempty"`
}

// IsZero reports whether no predicate is set.
func (f *Filter) IsZero() bool {
	return f == nil || (f.DocumentType == "" && f.Correspondent == "" && f.Year == "" && len(f.Tags) == 0)
}

// Where returns the native store predicate (exact-match fields only).
func (f *Filter) Where() map[string]string {
	if f == nil {
		return nil
	}
	where := make(map[string]string)
	if f.DocumentType != "" {
		where[MetaDocumentType] = f.DocumentType
	}
	if f.Correspondent != "" {
		where[MetaCorrespondent] = f.Correspondent
	}
	if len(where) == 0 {
		return nil
	}
	return where
}

// MatchesPost evaluates the predicates the store cannot express natively:
// year as a prefix match on the ISO created date and tag membership on the
// comma-joined tag field.
func (f *Filter) MatchesPost(meta ChunkMetadata) bool {
	if f == nil {
		return true
	}
	if f.Year != "" && !strings.HasPrefix(meta.Created, f.Year) {
		return false
	}
	if len(f.Tags) > 0 {
		have := make(map[string]bool)
		for _, t := range meta.TagList() {
			have[strings.ToLower(t)] = true
		}
		for _, want := range f.Tags {
			if !have[strings.ToLower(strings.TrimSpace(want))] {
				return false
			}
		}
	}
	return true
}

// Merge combines an explicit caller filter with an extracted one. Explicit
// values win on conflicting keys; extracted values only fill gaps.
func Merge(explicit, extracted *Filter) *Filter {
	if explicit.IsZero() {
		return extracted
	}
	if extracted.IsZero() {
		return explicit
	}
	merged := *explicit
	if merged.DocumentType == "" {
		merged.DocumentType = extracted.DocumentType
	}
	if merged.Correspondent == "" {
		merged.Correspondent = extracted.Correspondent
	}
	if merged.Year == "" {
		merged.Year = extracted.Year
	}
	if len(merged.Tags) == 0 {
		merged.Tags = extracted.Tags
	}
	return &merged
}

// Source identifies one document an answer was grounded on.
type Source struct {
	DocID         string  `json:"doc_id"`
	Title         string  `json:"title"`
	Correspondent string  `json:"correspondent"`
	DocumentType  string  `json:"document_type"`
	Relevance     float64 `json:"relevance"`
}

// ConfidenceLabel is the categorical confidence attached to an answer.
type ConfidenceLabel string

const (
	ConfidenceHigh   ConfidenceLabel = "high"
	ConfidenceMedium ConfidenceLabel = "medium"
	ConfidenceLow    ConfidenceLabel = "low"
)

// Confidence pairs the continuous score with its categorical label.
type Confidence struct {
	Score float64         `json:"score"`
	Label ConfidenceLabel `json:"label"`
}

// Answer is the result of one question answered against the corpus.
type Answer struct {
	Text       string     `json:"answer"`
	Sources    []Source   `json:"sources"`
	Confidence Confidence `json:"confidence"`
	Degraded   bool       `json:"degraded,omitempty"`
}

// IndexStatus is the per-document outcome of indexing.
type IndexStatus string

const (
	IndexStatusIndexed IndexStatus = "indexed"
	IndexStatusSkipped IndexStatus = "skipped"
	IndexStatusFailed  IndexStatus = "failed"
)

// IndexStats aggregates outcomes of a whole-corpus indexing run.
type IndexStats struct {
	Indexed int `json:"indexed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Total returns the number of documents the run looked at.
func (s IndexStats) Total() int {
	return s.Indexed + s.Skipped + s.Failed
}

// Role is the author of a chat message.
type Role string

// Message is a single chat message sent to the language model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Response is the language model's reply.
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
	TokensUsed   int    `json:"tokens_used,omitempty"`
}
