package retrieval

import (
	"context"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
)

// DocRetriever serves chunks straight from a local documents directory, for
// setups without a vector store. Files are loaded once per process; HTML
// documents are reduced to their readable text before chunking.
type DocRetriever struct {
	dir    string
	chunks []Chunk
}

func NewDocRetriever(dir string) *DocRetriever {
	r := &DocRetriever{dir: dir}
	r.load()
	return r
}

func (r *DocRetriever) load() {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		log.Printf("[retrieval] docs dir unavailable: %v", err)
		return
	}
	sanitizer := bluemonday.StrictPolicy()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".md" && ext != ".txt" && ext != ".html" && ext != ".htm" {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("[retrieval] failed to read %s: %v", path, err)
			continue
		}
		text := string(data)
		if ext == ".html" || ext == ".htm" {
			text = extractReadable(text, sanitizer)
		}
		for _, para := range splitParagraphs(text) {
			r.chunks = append(r.chunks, Chunk{
				Text:     para,
				Metadata: map[string]string{"filename": entry.Name()},
			})
		}
	}
	log.Printf("[retrieval] loaded %d chunks from %s", len(r.chunks), r.dir)
}

func extractReadable(html string, sanitizer *bluemonday.Policy) string {
	u, _ := url.Parse("file:///doc.html")
	article, err := readability.FromReader(strings.NewReader(html), u)
	if err != nil {
		return sanitizer.Sanitize(html)
	}
	return sanitizer.Sanitize(article.TextContent)
}

var paragraphRe = regexp.MustCompile(`\n\s*\n`)

func splitParagraphs(text string) []string {
	var out []string
	for _, p := range paragraphRe.Split(text, -1) {
		p = strings.TrimSpace(p)
		if len(p) >= 20 {
			out = append(out, p)
		}
	}
	return out
}

var docTokenRe = regexp.MustCompile(`[a-z0-9]+`)

func (r *DocRetriever) Retrieve(ctx context.Context, query string, limit int, filename string) ([]Chunk, error) {
	queryTokens := make(map[string]bool)
	for _, t := range docTokenRe.FindAllString(strings.ToLower(query), -1) {
		queryTokens[t] = true
	}

	var scored []Chunk
	for _, c := range r.chunks {
		if filename != "" && c.Metadata["filename"] != filename {
			continue
		}
		chunkTokens := make(map[string]bool)
		for _, t := range docTokenRe.FindAllString(strings.ToLower(c.Text), -1) {
			chunkTokens[t] = true
		}
		score := 0.0
		for t := range queryTokens {
			if chunkTokens[t] {
				score++
			}
		}
		if score > 0 {
			c.Score = score
			scored = append(scored, c)
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}
