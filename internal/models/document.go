package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Document is a single archive document, either freshly scraped or loaded
// back from the corpus folder.
type Document struct {
	ID       string
	Source   string // URL or file path the document came from
	Title    string
	Date     string // normalized YYYY-MM-DD, "0000-00-00" when unknown
	Content  string
	Metadata map[string]interface{}
}

// ProcessedDocument is a Document after chunking. Embeddings are filled in
// by the pipeline, one vector per chunk.
type ProcessedDocument struct {
	Document
	Chunks     []string
	Embeddings [][]float32
}

const UnknownDate = "0000-00-00"

// NewDocument assigns a fresh ID and normalizes the date field.
func NewDocument(source, title, date, content string) Document {
	if date == "" {
		date = UnknownDate
	}
	return Document{
		ID:      uuid.NewString(),
		Source:  source,
		Title:   strings.TrimSpace(title),
		Date:    date,
		Content: content,
	}
}

// ChunkID is the storage key for chunk i of a document.
func (d Document) ChunkID(i int) string {
	return fmt.Sprintf("%s_%d", d.ID, i)
}
