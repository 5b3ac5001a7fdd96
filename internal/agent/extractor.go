package agent

import (
	"context"
	"log"

	"github.com/arjun/flowtest/internal/observability"
	"github.com/arjun/flowtest/internal/testcase"
	"github.com/tmc/langchaingo/llms"
)

// Extractor turns retrieved document context into a structured test-case
// catalog with a single LLM call. Malformed output yields an empty list.
type Extractor struct {
	Model   llms.Model
	Prompts *PromptManager
	Logger  *observability.Logger
}

func NewExtractor(model llms.Model, prompts *PromptManager, logger *observability.Logger) *Extractor {
	return &Extractor{Model: model, Prompts: prompts, Logger: logger}
}

func (e *Extractor) Extract(ctx context.Context, contextText string) []testcase.TestCase {
	prompt, err := e.Prompts.Render("testcase_extract", map[string]string{
		"context": contextText,
	})
	if err != nil {
		log.Printf("[extractor] %v", err)
		return nil
	}

	response, err := llms.GenerateFromSinglePrompt(ctx, e.Model, prompt, llms.WithTemperature(0.2))
	if err != nil {
		log.Printf("[extractor] LLM call failed: %v", err)
		return nil
	}
	if e.Logger != nil {
		e.Logger.LogLLM("extract", prompt, response)
	}

	var catalog testcase.Catalog
	if !safeUnmarshal(response, &catalog) {
		log.Printf("[extractor] failed to parse catalog JSON (truncated): %s", truncate(response, 800))
		return nil
	}
	return catalog.TestCases
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
