// Package types defines the shared data model of the retrieval pipeline:
// documents, chunk metadata, search hits, retrieval results, metadata
// filters, answers and the chat message/response shapes used by the
// language-model clients.
package types
