package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docchat/ai"
	"github.com/poiesic/docchat/core"
)

const maxKeywords = 5

const keywordsPromptTemplate = `Extract the most important keywords from the following text.
Reply with at most %d keywords as a single comma-separated line and nothing else.

Text:
%s`

const summaryPromptTemplate = `Summarize the following text in one or two sentences.
Reply with the summary only.

Text:
%s`

// enricher annotates chunks with keywords and a summary.
type enricher struct {
	generator ai.Generator
	logger    *slog.Logger
}

func newEnricher(generator ai.Generator, logger *slog.Logger) *enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &enricher{
		generator: generator,
		logger:    logger.With("component", "enricher"),
	}
}

// enrichAll annotates chunks concurrently on the pool. A failed chunk keeps
// empty annotations; enrichment never fails the ingestion.
func (e *enricher) enrichAll(ctx context.Context, pool *ants.Pool, chunks []*core.Chunk) {
	var wg sync.WaitGroup
	for _, chunk := range chunks {
		chunk := chunk
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			e.enrich(ctx, chunk)
		})
		if submitErr != nil {
			wg.Done()
			e.logger.Warn("enrichment pool rejected task", "chunk", chunk.ID, "err", submitErr)
		}
	}
	wg.Wait()
}

// enrich annotates one chunk in place.
func (e *enricher) enrich(ctx context.Context, chunk *core.Chunk) {
	keywords, err := e.extractKeywords(ctx, chunk.Text)
	if err != nil {
		e.logger.Warn("keyword extraction failed", "chunk", chunk.ID, "err", err)
	} else {
		chunk.Metadata.Keywords = keywords
	}

	summary, err := e.summarize(ctx, chunk.Text)
	if err != nil {
		e.logger.Warn("summarization failed", "chunk", chunk.ID, "err", err)
	} else {
		chunk.Metadata.Summary = summary
	}
}

func (e *enricher) extractKeywords(ctx context.Context, text string) ([]string, error) {
	prompt := fmt.Sprintf(keywordsPromptTemplate, maxKeywords, text)
	response, err := e.generator.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseKeywords(response), nil
}

func (e *enricher) summarize(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(summaryPromptTemplate, text)
	response, err := e.generator.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}

// parseKeywords splits a comma-separated model response into at most
// maxKeywords cleaned keywords. Models sometimes answer one keyword per
// line, so newlines are treated as separators too.
func parseKeywords(response string) []string {
	fields := strings.FieldsFunc(response, func(r rune) bool {
		return r == ',' || r == '\n'
	})

	var keywords []string
	for _, field := range fields {
		keyword := strings.TrimSpace(field)
		keyword = strings.Trim(keyword, ".-*")
		keyword = strings.TrimSpace(keyword)
		if keyword == "" {
			continue
		}
		keywords = append(keywords, keyword)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}
