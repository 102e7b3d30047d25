package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/fatih/color"
	"github.com/kdriscoll/histrag/pkg/config"
	"github.com/kdriscoll/histrag/pkg/llm"
	"github.com/kdriscoll/histrag/pkg/store"
	"github.com/schollz/progressbar/v3"
)

func main() {
	cfg, err := parseFlags()
	if err != nil {
		log.Fatal(err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config: %v", e)
		}
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() (*config.Config, error) {
	var (
		configPath  string
		ollamaURL   = flag.String("ollama-url", "", "Ollama server URL")
		dbURL       = flag.String("db-url", "", "PostgreSQL connection string")
		archiveURL  = flag.String("archive-url", "", "Archive URL to scrape")
		docsDir     = flag.String("docs-dir", "", "Folder of documents to ingest")
		outputDir   = flag.String("output-dir", "", "Directory for scraped documents")
		model       = flag.String("model", "", "Chat model to use")
		embedModel  = flag.String("embed-model", "", "Embedding model to use")
		maxPages    = flag.Int("max-pages", 0, "Maximum listing pages to scrape (0 = all)")
		chunkSize   = flag.Int("chunk-size", 0, "Size of text chunks")
		overlap     = flag.Int("chunk-overlap", 0, "Overlap between text chunks")
		vectorDim   = flag.Int("vector-dim", 0, "Vector dimension")
		tableName   = flag.String("table", "", "PostgreSQL table name")
		batchSize   = flag.Int("batch-size", 0, "Batch size for database operations")
		rateLimit   = flag.Float64("rate-limit", 0, "Scraper requests per second")
		maxTokens   = flag.Int("max-tokens", 0, "Maximum tokens for LLM response")
		workers     = flag.Int("workers", 0, "Concurrent embedding workers")
		streaming   = flag.Bool("stream", true, "Enable streaming responses")
		temperature = flag.Float64("temperature", 0, "Set the LLM temperature")
	)
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	// Flags set on the command line win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ollama-url":
			cfg.LLM.BaseURL = *ollamaURL
		case "db-url":
			cfg.Database.URL = *dbURL
		case "archive-url":
			cfg.Scraper.BaseURL = *archiveURL
		case "docs-dir":
			cfg.Ingest.DocsDir = *docsDir
		case "output-dir":
			cfg.Scraper.OutputDir = *outputDir
		case "model":
			cfg.LLM.Model = *model
		case "embed-model":
			cfg.LLM.EmbedModel = *embedModel
		case "max-pages":
			cfg.Scraper.MaxPages = *maxPages
		case "chunk-size":
			cfg.Processor.ChunkSize = *chunkSize
		case "chunk-overlap":
			cfg.Processor.ChunkOverlap = *overlap
		case "vector-dim":
			cfg.Database.VectorDim = *vectorDim
		case "table":
			cfg.Database.TableName = *tableName
		case "batch-size":
			cfg.Database.BatchSize = *batchSize
		case "rate-limit":
			cfg.Scraper.RateLimit = *rateLimit
		case "max-tokens":
			cfg.LLM.MaxTokens = *maxTokens
		case "workers":
			cfg.Ingest.Workers = *workers
		case "stream":
			cfg.UI.Streaming = *streaming
		case "temperature":
			cfg.LLM.Temperature = *temperature
		}
	})

	return cfg, nil
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("items"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	chatEngine, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize chat engine: %w", err)
	}

	embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
		Model:   cfg.LLM.EmbedModel,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}

	vectorStore, err := store.NewWithConfig(ctx, store.VectorStoreConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
		VectorDim:  cfg.Database.VectorDim,
		BatchSize:  cfg.Database.BatchSize,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize vector store: %w", err)
	}
	defer vectorStore.Close()

	ing := newIngester(cfg, embedder, vectorStore)

	if cfg.Scraper.BaseURL != "" {
		if err := ing.scrapeArchive(ctx, cfg.Scraper.BaseURL); err != nil {
			return err
		}
	}

	if cfg.Ingest.DocsDir != "" {
		if err := ing.ingestFolder(ctx, cfg.Ingest.DocsDir); err != nil {
			return err
		}
	}

	return chatLoop(ctx, cfg, chatEngine, embedder, vectorStore, ing)
}

func chatLoop(ctx context.Context, cfg *config.Config, chatEngine *llm.ChatEngine,
	embedder *llm.Embedder, vectorStore *store.VectorStore, ing *ingester) error {

	color.Cyan("\nAsk questions about the document archive (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()
	urlRegex := regexp.MustCompile(`https?://[^\s]+`)

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(query) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		// A pasted archive URL is scraped and ingested inline.
		if url := urlRegex.FindString(query); url != "" {
			color.Blue("\nDetected URL: %s", url)
			if err := ing.scrapeArchive(ctx, url); err != nil {
				color.Red("Failed to process URL: %v\n", err)
			}
			if query == url {
				continue
			}
		}

		querySpinner := getSpinner("Searching the archive...")
		embedding, err := embedder.EmbedQuery(ctx, query)
		if err != nil {
			querySpinner.Finish()
			color.Red("Failed to create query embedding: %v\n", err)
			continue
		}

		docs, err := vectorStore.Query(ctx, embedding, 5)
		querySpinner.Finish()
		fmt.Print("\r")
		if err != nil {
			color.Red("Error querying documents: %v\n", err)
			continue
		}

		if cfg.UI.Streaming {
			chunks, errc := chatEngine.ChatStream(ctx, query, docs)

			fmt.Print("\n")
			assistantPrompt("Assistant: ")
			for chunk := range chunks {
				fmt.Print(chunk)
			}
			if err := <-errc; err != nil {
				color.Red("\nError: %v\n", err)
				continue
			}
			fmt.Println(llm.FormatSources(docs))
		} else {
			responseSpinner := getSpinner("Generating response...")
			response, err := chatEngine.Chat(ctx, query, docs)
			responseSpinner.Finish()
			fmt.Print("\r")

			if err != nil {
				color.Red("Error: %v\n", err)
				continue
			}
			assistantPrompt("\nAssistant: %s\n", response)
			fmt.Println(llm.FormatSources(docs))
		}
	}

	return scanner.Err()
}
