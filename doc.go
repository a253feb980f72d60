// Package paperqa answers natural-language questions over a private
// Paperless-NGX document archive using retrieval-augmented generation.
//
// Documents are chunked, embedded, and indexed into a vector store. A
// question is expanded into several query variants, each variant is searched
// semantically, and the merged context is handed to a language model that
// answers with source citations and a calibrated confidence estimate. All
// model inference runs against local OpenAI-compatible backends, so document
// content never leaves the machine.
package paperqa
