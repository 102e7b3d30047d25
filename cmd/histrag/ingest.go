package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/kdriscoll/histrag/internal/models"
	"github.com/kdriscoll/histrag/internal/types"
	"github.com/kdriscoll/histrag/pkg/archive"
	"github.com/kdriscoll/histrag/pkg/config"
	"github.com/kdriscoll/histrag/pkg/pipeline"
	"github.com/kdriscoll/histrag/pkg/processor"
	"github.com/kdriscoll/histrag/pkg/scraper"
)

// ingester wires the scraper, archive writer, and ingest pipeline behind
// the CLI's progress bars.
type ingester struct {
	cfg      *config.Config
	embedder types.Embedder
	store    types.VectorStore
}

func newIngester(cfg *config.Config, embedder types.Embedder, store types.VectorStore) *ingester {
	return &ingester{cfg: cfg, embedder: embedder, store: store}
}

func (in *ingester) scrapeArchive(ctx context.Context, archiveURL string) error {
	logger, logFile, err := scraper.FileLogger(in.cfg.Scraper.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()

	writer, err := archive.NewWriter(in.cfg.Scraper.OutputDir)
	if err != nil {
		return err
	}

	color.Blue("\nScraping archive %s\n", archiveURL)
	scrapingBar := getProgressBar(-1, "Scraping documents...")

	s, err := scraper.NewWithConfig(scraper.ScraperConfig{
		BaseURL:   archiveURL,
		MaxPages:  in.cfg.Scraper.MaxPages,
		RateLimit: in.cfg.Scraper.RateLimit,
		Retries:   in.cfg.Scraper.Retries,
		Logger:    logger,
		OnProgress: func(title string) {
			scrapingBar.Add(1)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize scraper: %w", err)
	}

	docs, err := s.Scrape(ctx, archiveURL)
	scrapingBar.Finish()
	if err != nil {
		return fmt.Errorf("failed to scrape archive: %w", err)
	}
	color.Green("\n✓ Scraped %d documents\n", len(docs))

	for _, doc := range docs {
		if _, err := writer.Write(doc); err != nil {
			logger.Printf("error saving document %q: %v", doc.Title, err)
		}
	}
	color.Green("✓ Saved documents to %s\n", writer.Dir())

	return in.ingest(ctx, docs)
}

func (in *ingester) ingestFolder(ctx context.Context, dir string) error {
	color.Blue("\nLoading documents from %s\n", dir)

	docs, err := archive.NewLoader().Load(dir)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}
	color.Green("✓ Loaded %d documents\n", len(docs))

	return in.ingest(ctx, docs)
}

func (in *ingester) ingest(ctx context.Context, docs []models.Document) error {
	proc := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:       in.cfg.Processor.ChunkSize,
		ChunkOverlap:    in.cfg.Processor.ChunkOverlap,
		RemoveStopwords: in.cfg.Processor.RemoveStopwords,
	})

	embeddingBar := getProgressBar(-1, "Embedding chunks...")
	storageBar := getProgressBar(len(docs), "Storing in vector database...")

	p := pipeline.New(&proc, in.embedder, in.store, pipeline.Config{
		Workers:   in.cfg.Ingest.Workers,
		BatchSize: in.cfg.Database.BatchSize,
		OnEmbedded: func(chunks int) {
			embeddingBar.Add(chunks)
		},
		OnStored: func(docs int) {
			storageBar.Add(docs)
		},
	})

	chunks, err := p.Ingest(ctx, docs)
	embeddingBar.Finish()
	storageBar.Finish()
	if err != nil {
		return fmt.Errorf("failed to ingest documents: %w", err)
	}

	color.Green("\n✓ Stored %d chunks\n", chunks)
	return nil
}
