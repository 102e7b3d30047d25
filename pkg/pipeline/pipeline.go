package pipeline

import (
	"context"
	"fmt"

	"github.com/kdriscoll/histrag/internal/models"
	"github.com/kdriscoll/histrag/internal/types"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Workers   int // concurrent embedding calls
	BatchSize int // documents per store transaction

	OnEmbedded func(chunks int)
	OnStored   func(docs int)
}

// Pipeline runs a batch of documents through chunking, embedding, and
// storage.
type Pipeline struct {
	processor types.Processor
	embedder  types.Embedder
	store     types.VectorStore
	config    Config
}

func New(processor types.Processor, embedder types.Embedder, store types.VectorStore, config Config) *Pipeline {
	if config.Workers == 0 {
		config.Workers = 4
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	return &Pipeline{
		processor: processor,
		embedder:  embedder,
		store:     store,
		config:    config,
	}
}

// Ingest processes and stores the documents, returning the number of
// chunks written. Embedding runs concurrently across documents, bounded
// by the worker count.
func (p *Pipeline) Ingest(ctx context.Context, docs []models.Document) (int, error) {
	processed, err := p.processor.Process(docs)
	if err != nil {
		return 0, fmt.Errorf("failed to process documents: %w", err)
	}
	if len(processed) == 0 {
		return 0, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)

	for i := range processed {
		i := i
		g.Go(func() error {
			embeddings, err := p.embedder.CreateEmbedding(ctx, processed[i].Chunks)
			if err != nil {
				return fmt.Errorf("failed to embed document %q: %w", processed[i].Title, err)
			}
			processed[i].Embeddings = embeddings
			if p.config.OnEmbedded != nil {
				p.config.OnEmbedded(len(processed[i].Chunks))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	chunks := 0
	for i := 0; i < len(processed); i += p.config.BatchSize {
		end := i + p.config.BatchSize
		if end > len(processed) {
			end = len(processed)
		}
		batch := processed[i:end]

		if err := p.store.Store(ctx, batch); err != nil {
			return chunks, fmt.Errorf("failed to store batch: %w", err)
		}
		for _, doc := range batch {
			chunks += len(doc.Chunks)
		}
		if p.config.OnStored != nil {
			p.config.OnStored(len(batch))
		}
	}

	return chunks, nil
}
