package ingestion

import (
	"strings"

	"github.com/poiesic/docchat/core"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// defaultChunkTokens bounds a chunk to roughly one embedding input.
	defaultChunkTokens = 400
	// defaultOverlapTokens carries context across adjacent chunks.
	defaultOverlapTokens = 50

	// charsPerToken approximates English prose for budget conversion.
	charsPerToken = 4
)

// splitter turns extracted text units into bounded chunks.
type splitter struct {
	inner textsplitter.RecursiveCharacter
}

// newSplitter creates a splitter with the given token budgets.
// Budgets are approximated as characters; a zero or negative value selects
// the default.
func newSplitter(chunkTokens, overlapTokens int) *splitter {
	if chunkTokens <= 0 {
		chunkTokens = defaultChunkTokens
	}
	if overlapTokens <= 0 {
		overlapTokens = defaultOverlapTokens
	}
	inner := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkTokens*charsPerToken),
		textsplitter.WithChunkOverlap(overlapTokens*charsPerToken),
	)
	return &splitter{inner: inner}
}

// split produces chunks for one document from its extracted units.
// Chunk ids are content-derived so the output is deterministic for a given
// document id and text.
func (s *splitter) split(docID, source string, units []string) ([]*core.Chunk, error) {
	var chunks []*core.Chunk
	ordinal := 0
	for _, unit := range units {
		pieces, err := s.inner.SplitText(unit)
		if err != nil {
			return nil, err
		}
		for _, piece := range pieces {
			piece = strings.TrimSpace(piece)
			if piece == "" {
				continue
			}
			chunks = append(chunks, &core.Chunk{
				ID:   core.ChunkID(docID, ordinal, piece),
				Text: piece,
				Metadata: core.ChunkMetadata{
					DocID:  docID,
					Source: source,
				},
			})
			ordinal++
		}
	}
	return chunks, nil
}
