package retrieval

import (
	"fmt"
	"strings"

	"github.com/poiesic/docchat/core"
)

const groundedPreamble = `You are a helpful assistant answering questions about the user's documents.
Answer using the context below. If the context does not contain the answer, say that you don't know instead of guessing.`

const barePreamble = `You are a helpful assistant. No relevant documents were found for this question, so answer from the conversation alone and say when you don't know.`

// Assembler builds the generation prompt from retrieved context, the
// conversation window, and the question.
type Assembler struct{}

// NewAssembler creates a new prompt assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// BuildPrompt renders the full prompt. An empty match slice produces the
// bare-question form; the conversation window may also be empty for the
// first turn of a conversation.
func (a *Assembler) BuildPrompt(question string, window []*core.Message, matches []*core.ChunkMatch) string {
	var b strings.Builder

	if len(matches) > 0 {
		b.WriteString(groundedPreamble)
		b.WriteString("\n\nContext:\n")
		for _, match := range matches {
			fmt.Fprintf(&b, "[source: %s]\n%s\n\n", match.Chunk.Metadata.Source, match.Chunk.Text)
		}
	} else {
		b.WriteString(barePreamble)
		b.WriteString("\n\n")
	}

	if len(window) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, msg := range window {
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Text)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "user: %s\nassistant:", question)
	return b.String()
}
