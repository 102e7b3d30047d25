package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/kdriscoll/histrag/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model           string
	Temperature     float64
	MaxTokens       int
	SystemTemplate  string
	ContextTemplate string
	BaseURL         string // Ollama server URL
}

// ChatEngine answers questions over retrieved archive context.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "llama3.2"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = "Use the following pieces of context to answer the question. " +
			"If you don't know the answer, just say that you don't know, " +
			"don't try to make up an answer."
	}
	if config.ContextTemplate == "" {
		config.ContextTemplate = "Context:\n%s\nQuestion: %s"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    llm,
	}, nil
}

// Chat generates a response based on the query and context documents.
func (ce *ChatEngine) Chat(ctx context.Context, query string, docs []models.Document) (string, error) {
	response, err := ce.llm.GenerateContent(ctx, ce.messages(query, docs),
		llms.WithMaxTokens(ce.config.MaxTokens),
		llms.WithTemperature(ce.config.Temperature),
	)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}
	return response.Choices[0].Content, nil
}

// ChatStream generates a response, delivering tokens over the returned
// channel as the model produces them. The channel closes when generation
// finishes; a generation error arrives on the error channel.
func (ce *ChatEngine) ChatStream(ctx context.Context, query string, docs []models.Document) (<-chan string, <-chan error) {
	chunks := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errc)

		_, err := ce.llm.GenerateContent(ctx, ce.messages(query, docs),
			llms.WithMaxTokens(ce.config.MaxTokens),
			llms.WithTemperature(ce.config.Temperature),
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				select {
				case chunks <- string(chunk):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}),
		)
		if err != nil {
			errc <- fmt.Errorf("chat error: %w", err)
		}
	}()

	return chunks, errc
}

func (ce *ChatEngine) messages(query string, docs []models.Document) []llms.MessageContent {
	prompt := fmt.Sprintf(ce.config.ContextTemplate, formatContext(docs), query)
	return []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, ce.config.SystemTemplate),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}
}

func formatContext(docs []models.Document) string {
	var b strings.Builder
	for _, doc := range docs {
		if doc.Title != "" {
			b.WriteString(fmt.Sprintf("%s (%s)\n", doc.Title, doc.Date))
		}
		b.WriteString(doc.Content)
		b.WriteString("\n\n")
	}
	return b.String()
}

// FormatSources lists the distinct sources behind a set of retrieved
// documents, for citation after an answer.
func FormatSources(docs []models.Document) string {
	var sources []string
	seen := make(map[string]bool)

	for _, doc := range docs {
		if doc.Source == "" || seen[doc.Source] {
			continue
		}
		sources = append(sources, doc.Source)
		seen[doc.Source] = true
	}

	if len(sources) == 0 {
		return ""
	}
	return fmt.Sprintf("\nSources:\n%s", strings.Join(sources, "\n"))
}
