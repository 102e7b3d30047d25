package processor_test

import (
	"strings"
	"testing"

	"github.com/kdriscoll/histrag/internal/models"
	"github.com/kdriscoll/histrag/pkg/processor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessorProcess(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:      100,
		ChunkOverlap:   20,
		MinChunkLength: 10,
	})

	content := strings.Repeat("The state of our union has never been stronger. ", 10)
	docs := []models.Document{
		{ID: "d1", Title: "State of the Union", Content: content},
	}

	processed, err := p.Process(docs)
	require.NoError(t, err)
	require.Len(t, processed, 1)
	assert.Greater(t, len(processed[0].Chunks), 1)

	for _, chunk := range processed[0].Chunks {
		assert.LessOrEqual(t, len(chunk), 100)
		assert.GreaterOrEqual(t, len(chunk), 10)
	}
}

func TestProcessorDropsEmptyDocuments(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{})

	processed, err := p.Process([]models.Document{
		{ID: "d1", Title: "Empty", Content: "   \n\n  "},
		{ID: "d2", Title: "Real", Content: "A speech long enough to keep around for chunking purposes."},
	})
	require.NoError(t, err)
	require.Len(t, processed, 1)
	assert.Equal(t, "Real", processed[0].Title)
}

func TestProcessorCollapsesWhitespace(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:      1000,
		ChunkOverlap:   0,
		MinChunkLength: 5,
	})

	processed, err := p.Process([]models.Document{
		{ID: "d1", Content: "Too   many    spaces\there.\n\nSecond paragraph stays."},
	})
	require.NoError(t, err)
	require.Len(t, processed, 1)
	require.NotEmpty(t, processed[0].Chunks)
	assert.Contains(t, processed[0].Chunks[0], "Too many spaces here.")
	assert.NotContains(t, processed[0].Chunks[0], "  ")
}

func TestProcessorRemoveStopwords(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:       1000,
		ChunkOverlap:    0,
		MinChunkLength:  5,
		RemoveStopwords: true,
		CustomStopwords: []string{"presidential"},
	})

	processed, err := p.Process([]models.Document{
		{ID: "d1", Content: "The presidential address was given at the Capitol building today."},
	})
	require.NoError(t, err)
	require.Len(t, processed, 1)
	chunk := processed[0].Chunks[0]
	assert.NotContains(t, strings.Fields(chunk), "the")
	assert.NotContains(t, strings.Fields(chunk), "presidential")
	assert.Contains(t, chunk, "address")
	assert.Contains(t, chunk, "Capitol")
}
