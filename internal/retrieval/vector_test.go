package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

type fakeVectorStore struct {
	docs     []schema.Document
	err      error
	gotQuery string
	gotLimit int
}

func (f *fakeVectorStore) AddDocuments(ctx context.Context, docs []schema.Document, _ ...vectorstores.Option) ([]string, error) {
	return nil, nil
}

func (f *fakeVectorStore) SimilaritySearch(ctx context.Context, query string, numDocuments int, _ ...vectorstores.Option) ([]schema.Document, error) {
	f.gotQuery = query
	f.gotLimit = numDocuments
	return f.docs, f.err
}

func TestVectorRetrieverMapsDocuments(t *testing.T) {
	store := &fakeVectorStore{docs: []schema.Document{
		{
			PageContent: "Scenario: user logs in with valid credentials",
			Score:       0.91,
			Metadata:    map[string]any{"filename": "Login.docx", "chunk": 3},
		},
	}}
	r := NewVectorRetriever(store)

	chunks, err := r.Retrieve(context.Background(), "login", 5, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.gotQuery != "login" || store.gotLimit != 5 {
		t.Errorf("search got query=%q limit=%d", store.gotQuery, store.gotLimit)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	c := chunks[0]
	if c.Text != "Scenario: user logs in with valid credentials" {
		t.Errorf("text: %q", c.Text)
	}
	if c.Score < 0.90 || c.Score > 0.92 {
		t.Errorf("score not carried over: %v", c.Score)
	}
	// Non-string metadata values are stringified, not dropped.
	if c.Metadata["chunk"] != "3" {
		t.Errorf("metadata chunk: %q", c.Metadata["chunk"])
	}
	if c.Metadata["filename"] != "Login.docx" {
		t.Errorf("metadata filename: %q", c.Metadata["filename"])
	}
}

func TestVectorRetrieverFiltersByFilename(t *testing.T) {
	store := &fakeVectorStore{docs: []schema.Document{
		{PageContent: "from checkout doc", Metadata: map[string]any{"filename": "Checkout.docx"}},
		{PageContent: "from login doc", Metadata: map[string]any{"filename": "Login.docx"}},
		{PageContent: "no filename at all", Metadata: map[string]any{}},
	}}
	r := NewVectorRetriever(store)

	chunks, err := r.Retrieve(context.Background(), "pay", 5, "Checkout.docx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Text != "from checkout doc" {
		t.Fatalf("filter kept %d chunks: %+v", len(chunks), chunks)
	}
}

func TestVectorRetrieverSearchError(t *testing.T) {
	r := NewVectorRetriever(&fakeVectorStore{err: errors.New("index offline")})

	_, err := r.Retrieve(context.Background(), "login", 5, "")
	if err == nil || !strings.Contains(err.Error(), "similarity search failed") {
		t.Fatalf("got %v", err)
	}
}
