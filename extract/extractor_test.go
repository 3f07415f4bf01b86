package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPlainText(t *testing.T) {
	e := NewExtractor()

	units, err := e.Extract(context.Background(), []byte("hello world\nsecond line"), "notes.txt")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Contains(t, units[0], "hello world")
	assert.Contains(t, units[0], "second line")
}

func TestExtractMarkdownSections(t *testing.T) {
	e := NewExtractor()

	doc := `# Intro

Opening paragraph.

## Setup

Install the tool.

` + "```\nmake install\n```"

	units, err := e.Extract(context.Background(), []byte(doc), "guide.md")
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Contains(t, units[0], "Intro")
	assert.Contains(t, units[0], "Opening paragraph.")
	assert.Contains(t, units[1], "Setup")
	assert.Contains(t, units[1], "Install the tool.")
	assert.Contains(t, units[1], "make install")
}

func TestExtractMarkdownNoHeadings(t *testing.T) {
	e := NewExtractor()

	units, err := e.Extract(context.Background(), []byte("just a paragraph with no headings"), "plain.md")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Contains(t, units[0], "just a paragraph")
}

func TestExtractUnsupportedFormat(t *testing.T) {
	e := NewExtractor()

	_, err := e.Extract(context.Background(), []byte("binary junk"), "archive.zip")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	var extErr *ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, "archive.zip", extErr.FileName)
}

func TestExtractEmptyDocument(t *testing.T) {
	e := NewExtractor()

	_, err := e.Extract(context.Background(), []byte("   \n\t  "), "blank.txt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestExtractCaseInsensitiveExtension(t *testing.T) {
	e := NewExtractor()

	units, err := e.Extract(context.Background(), []byte("UPPER CASE EXTENSION"), "NOTES.TXT")
	require.NoError(t, err)
	require.Len(t, units, 1)
}
