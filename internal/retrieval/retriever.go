package retrieval

import (
	"context"
	"fmt"
	"strings"
)

// Chunk is one scored piece of retrieved test-case material.
type Chunk struct {
	Score    float64           `json:"score"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// Retriever is the boundary to whatever holds the test-case documents. An
// empty result is a valid, meaningful response: no relevant material.
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int, filename string) ([]Chunk, error)
}

// NoRelevantDocuments is the sentinel context handed to the extractor when
// retrieval finds nothing.
const NoRelevantDocuments = "NO_RELEVANT_DOCUMENTS"

// FormatContext renders chunks into the extraction prompt's context block.
func FormatContext(chunks []Chunk) string {
	if len(chunks) == 0 {
		return NoRelevantDocuments
	}
	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		parts = append(parts, fmt.Sprintf("[Chunk %d] (Score: %.3f, Meta: %v)\n%s", i+1, c.Score, c.Metadata, c.Text))
	}
	return strings.Join(parts, "\n\n")
}
