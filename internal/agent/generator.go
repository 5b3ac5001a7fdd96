package agent

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/arjun/flowtest/internal/dsl"
	"github.com/arjun/flowtest/internal/observability"
	"github.com/arjun/flowtest/internal/testcase"
	"github.com/tmc/langchaingo/llms"
)

// Generator renders a selected test case into an executable DSL plan. Output
// that cannot be parsed even after a fix-up reprompt becomes an empty plan,
// which the orchestrator treats as a failed run.
type Generator struct {
	Model   llms.Model
	Prompts *PromptManager
	Logger  *observability.Logger
}

func NewGenerator(model llms.Model, prompts *PromptManager, logger *observability.Logger) *Generator {
	return &Generator{Model: model, Prompts: prompts, Logger: logger}
}

func (g *Generator) Generate(ctx context.Context, tc testcase.TestCase, baseURL string, testData map[string]string) dsl.Plan {
	dataJSON, _ := json.Marshal(testData)
	prompt, err := g.Prompts.Render("testcase_dsl", map[string]string{
		"scenario":       tc.Scenario,
		"steps":          strings.Join(tc.Steps, "\n"),
		"test_data":      strings.Join(tc.TestData.Raw(), "\n"),
		"test_data_json": string(dataJSON),
		"expected":       strings.Join(tc.Expected, "\n"),
		"base_url":       baseURL,
	})
	if err != nil {
		log.Printf("[generator] %v", err)
		return emptyPlan(tc)
	}

	response, err := llms.GenerateFromSinglePrompt(ctx, g.Model, prompt, llms.WithTemperature(0.2))
	if err != nil {
		log.Printf("[generator] LLM call failed: %v", err)
		return emptyPlan(tc)
	}
	if g.Logger != nil {
		g.Logger.LogLLM("generate_dsl", prompt, response)
	}

	var plan dsl.Plan
	if safeUnmarshal(response, &plan) {
		return plan
	}

	log.Printf("[generator] failed to parse plan JSON, attempting fix (truncated): %s", truncate(response, 800))
	fixPrompt, err := g.Prompts.Render("json_fix", map[string]string{"text": response})
	if err != nil {
		log.Printf("[generator] %v", err)
		return emptyPlan(tc)
	}
	fixed, err := llms.GenerateFromSinglePrompt(ctx, g.Model, fixPrompt, llms.WithTemperature(0))
	if err != nil {
		log.Printf("[generator] fix-up LLM call failed: %v", err)
		return emptyPlan(tc)
	}
	if safeUnmarshal(fixed, &plan) {
		return plan
	}
	log.Printf("[generator] fix-up did not produce valid JSON")
	return emptyPlan(tc)
}

func emptyPlan(tc testcase.TestCase) dsl.Plan {
	name := tc.ID
	if name == "" {
		name = "unnamed"
	}
	return dsl.Plan{Name: name}
}
