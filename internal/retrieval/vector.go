package retrieval

import (
	"context"
	"fmt"
	"log"

	"github.com/tmc/langchaingo/vectorstores"
)

// VectorRetriever serves chunks out of a langchaingo vector store. The store
// is populated by an external ingestion pipeline; this side only queries.
type VectorRetriever struct {
	Store vectorstores.VectorStore
}

func NewVectorRetriever(store vectorstores.VectorStore) *VectorRetriever {
	return &VectorRetriever{Store: store}
}

func (r *VectorRetriever) Retrieve(ctx context.Context, query string, limit int, filename string) ([]Chunk, error) {
	log.Printf("[retrieval] similarity search for %q (limit %d)", query, limit)
	docs, err := r.Store.SimilaritySearch(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %v", err)
	}

	var chunks []Chunk
	for _, doc := range docs {
		meta := make(map[string]string, len(doc.Metadata))
		for k, v := range doc.Metadata {
			meta[k] = fmt.Sprintf("%v", v)
		}
		if filename != "" && meta["filename"] != filename {
			continue
		}
		chunks = append(chunks, Chunk{
			Score:    float64(doc.Score),
			Text:     doc.PageContent,
			Metadata: meta,
		})
	}
	return chunks, nil
}
