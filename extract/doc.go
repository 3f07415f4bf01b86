// Package extract implements the text extraction capability for ingestion.
//
// An Extractor turns uploaded file bytes into ordered plain-text units using
// format-specific loaders: langchaingo document loaders for plain text, PDF,
// HTML, and CSV, and a goldmark AST walk for Markdown. Extraction failures
// are fatal to the ingestion call that triggered them; degraded output is
// never produced.
package extract
