package types

import (
	"context"

	"github.com/kdriscoll/histrag/internal/models"
)

// Core interfaces
type VectorStore interface {
	Store(ctx context.Context, docs []models.ProcessedDocument) error
	Query(ctx context.Context, embedding []float32, limit int) ([]models.Document, error)
	Close()
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

type Processor interface {
	Process(docs []models.Document) ([]models.ProcessedDocument, error)
}

// Loader reads a corpus folder back into Documents.
type Loader interface {
	Load(dir string) ([]models.Document, error)
}

// Scraper walks an archive and emits Documents.
type Scraper interface {
	Scrape(ctx context.Context, baseURL string) ([]models.Document, error)
}
