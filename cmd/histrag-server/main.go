package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/kdriscoll/histrag/pkg/config"
	"github.com/kdriscoll/histrag/pkg/llm"
	"github.com/kdriscoll/histrag/pkg/pipeline"
	"github.com/kdriscoll/histrag/pkg/processor"
	"github.com/kdriscoll/histrag/pkg/store"
	"github.com/kdriscoll/histrag/server"
)

func main() {
	var configPath, addr string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&addr, "addr", "", "Listen address (defaults to PORT env or :8080)")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			log.Printf("config: %v", e)
		}
		os.Exit(1)
	}

	if addr == "" {
		if port := os.Getenv("PORT"); port != "" {
			addr = ":" + port
		}
	}

	ctx := context.Background()

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		log.Fatalf("failed to initialize chat engine: %v", err)
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.LLM.EmbedModel,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		log.Fatalf("failed to initialize embedder: %v", err)
	}

	vectorStore, err := store.NewWithConfig(ctx, store.VectorStoreConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
		VectorDim:  cfg.Database.VectorDim,
		BatchSize:  cfg.Database.BatchSize,
	})
	if err != nil {
		log.Fatalf("failed to initialize vector store: %v", err)
	}
	defer vectorStore.Close()

	proc := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:       cfg.Processor.ChunkSize,
		ChunkOverlap:    cfg.Processor.ChunkOverlap,
		RemoveStopwords: cfg.Processor.RemoveStopwords,
	})

	pipe := pipeline.New(&proc, embedder, vectorStore, pipeline.Config{
		Workers:   cfg.Ingest.Workers,
		BatchSize: cfg.Database.BatchSize,
	})

	srv := server.New(server.Config{
		Addr:            addr,
		Streaming:       cfg.UI.Streaming,
		ScrapeMaxPages:  cfg.Scraper.MaxPages,
		ScrapeRateLimit: cfg.Scraper.RateLimit,
	}, chatEngine, embedder, vectorStore, pipe, log.Default())

	if err := srv.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
