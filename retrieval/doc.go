// Package retrieval finds document chunks relevant to a question and
// assembles them into prompt context.
//
// A Retriever embeds the question and searches the vector index with an
// inclusive similarity threshold. Finding nothing is a valid outcome; the
// assembler then produces a bare-question prompt instead of a grounded one.
package retrieval
