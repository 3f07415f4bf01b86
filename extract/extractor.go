package extract

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
)

// Extractor converts uploaded file bytes into plain-text units.
// The format is chosen from the file name extension. Extraction is fatal on
// unsupported or corrupt input; callers must not write any state before a
// successful extraction.
type Extractor struct {
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
	}
}

// NewExtractor creates a new extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		logger: slog.Default().With("component", "extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the plain-text units of the file, in document order.
// Supported formats: .txt, .text, .md, .markdown, .pdf, .html, .htm, .csv.
// Returns *ExtractionError on unsupported extensions, corrupt input, and
// files with no extractable text.
func (e *Extractor) Extract(ctx context.Context, data []byte, fileName string) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	e.logger.Debug("extracting text", "file", fileName, "ext", ext, "bytes", len(data))

	var (
		docs []schema.Document
		err  error
	)

	switch ext {
	case ".txt", ".text":
		docs, err = documentloaders.NewText(bytes.NewReader(data)).Load(ctx)
	case ".md", ".markdown":
		units, mdErr := extractMarkdown(data)
		if mdErr != nil {
			return nil, &ExtractionError{FileName: fileName, Err: mdErr}
		}
		return nonEmpty(fileName, units)
	case ".pdf":
		docs, err = documentloaders.NewPDF(bytes.NewReader(data), int64(len(data))).Load(ctx)
	case ".html", ".htm":
		docs, err = documentloaders.NewHTML(bytes.NewReader(data)).Load(ctx)
	case ".csv":
		docs, err = documentloaders.NewCSV(bytes.NewReader(data)).Load(ctx)
	default:
		return nil, &ExtractionError{FileName: fileName, Err: ErrUnsupportedFormat}
	}

	if err != nil {
		e.logger.Error("extraction failed", "file", fileName, "err", err)
		return nil, &ExtractionError{FileName: fileName, Err: err}
	}

	units := make([]string, 0, len(docs))
	for _, doc := range docs {
		units = append(units, doc.PageContent)
	}
	return nonEmpty(fileName, units)
}

// nonEmpty drops blank units and fails the extraction when nothing remains.
func nonEmpty(fileName string, units []string) ([]string, error) {
	kept := make([]string, 0, len(units))
	for _, unit := range units {
		if strings.TrimSpace(unit) != "" {
			kept = append(kept, unit)
		}
	}
	if len(kept) == 0 {
		return nil, &ExtractionError{FileName: fileName, Err: ErrEmptyDocument}
	}
	return kept, nil
}
