package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDocument(t *testing.T) {
	doc := NewDocument("https://example.com/doc", "  Inaugural Address ", "2001-01-20", "body")
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "Inaugural Address", doc.Title)
	assert.Equal(t, "2001-01-20", doc.Date)

	other := NewDocument("src", "t", "", "body")
	assert.Equal(t, UnknownDate, other.Date)
	assert.NotEqual(t, doc.ID, other.ID)
}

func TestChunkID(t *testing.T) {
	doc := Document{ID: "abc"}
	assert.Equal(t, "abc_0", doc.ChunkID(0))
	assert.Equal(t, "abc_12", doc.ChunkID(12))
}
