package processor

import (
	"fmt"
	"strings"

	"github.com/kdriscoll/histrag/internal/models"
	"github.com/tmc/langchaingo/textsplitter"
)

type ProcessorConfig struct {
	ChunkSize       int
	ChunkOverlap    int
	MinChunkLength  int
	RemoveStopwords bool
	CustomStopwords []string
}

type Processor struct {
	config   ProcessorConfig
	splitter textsplitter.RecursiveCharacter
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize == 0 {
		config.ChunkSize = 500
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 100
	}
	if config.MinChunkLength == 0 {
		config.MinChunkLength = 20
	}

	return Processor{
		config: config,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(config.ChunkSize),
			textsplitter.WithChunkOverlap(config.ChunkOverlap),
		),
	}
}

// Process cleans each document and splits it into overlapping chunks.
// Documents whose content produces no usable chunk are dropped.
func (p *Processor) Process(docs []models.Document) ([]models.ProcessedDocument, error) {
	var processed []models.ProcessedDocument

	for _, doc := range docs {
		cleaned := p.cleanText(doc.Content)
		if cleaned == "" {
			continue
		}

		split, err := p.splitter.SplitText(cleaned)
		if err != nil {
			return nil, fmt.Errorf("failed to split document %q: %w", doc.Title, err)
		}

		var chunks []string
		for _, chunk := range split {
			chunk = strings.TrimSpace(chunk)
			if len(chunk) >= p.config.MinChunkLength {
				chunks = append(chunks, chunk)
			}
		}
		if len(chunks) == 0 {
			continue
		}

		processed = append(processed, models.ProcessedDocument{
			Document: doc,
			Chunks:   chunks,
		})
	}

	return processed, nil
}

func (p *Processor) cleanText(text string) string {
	// Collapse runs of whitespace but keep paragraph breaks so the
	// splitter can prefer them as boundaries.
	paragraphs := strings.Split(text, "\n\n")
	var kept []string
	for _, para := range paragraphs {
		para = strings.Join(strings.Fields(para), " ")
		if p.config.RemoveStopwords {
			para = p.removeStopwords(para)
		}
		if para != "" {
			kept = append(kept, para)
		}
	}
	return strings.Join(kept, "\n\n")
}

func (p *Processor) removeStopwords(text string) string {
	stopwords := make(map[string]bool)
	for _, w := range defaultStopwords {
		stopwords[w] = true
	}
	for _, w := range p.config.CustomStopwords {
		stopwords[strings.ToLower(w)] = true
	}

	var filtered []string
	for _, word := range strings.Fields(text) {
		if !stopwords[strings.ToLower(word)] {
			filtered = append(filtered, word)
		}
	}
	return strings.Join(filtered, " ")
}

// Common English stopwords
var defaultStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for",
	"from", "has", "he", "in", "is", "it", "its", "of", "on",
	"that", "the", "to", "was", "were", "will", "with",
}
