// Package ingestion provides the document ingestion pipeline.
//
// The Pipeline type manages the ingestion workflow for uploaded files:
//   - Extracting plain text from the raw bytes
//   - Splitting the text into bounded chunks
//   - Enriching chunks with keywords and summaries
//   - Generating embeddings and upserting into the vector index
//   - Recording the file in the ingested file registry
//
// Extraction, embedding, and index writes are fatal to the ingestion call.
// Enrichment runs concurrently on a worker pool and degrades gracefully:
// failures are logged and the affected chunks keep empty annotations.
package ingestion
