package questiongen

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/feedbreak/feedbreak/internal/llm"
	"github.com/feedbreak/feedbreak/internal/store"
)

// LLMGenerator implements Generator using the LLM provider.
type LLMGenerator struct {
	provider llm.Provider
	config   Config
}

// New creates a new LLMGenerator with the given provider and config.
func New(provider llm.Provider, cfg Config) *LLMGenerator {
	return &LLMGenerator{provider: provider, config: cfg}
}

// questionOutput is the raw LLM response before validation.
type questionOutput struct {
	QuestionText string   `json:"question_text"`
	Concepts     []string `json:"concepts"`
	Difficulty   int      `json:"difficulty"`
}

// Generate produces a single question for the given input.
func (g *LLMGenerator) Generate(ctx context.Context, input Input) (*Question, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeQuestionGen)

	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(input, g.config)},
		},
		Schema:      QuestionSchema,
		MaxTokens:   g.config.MaxTokens,
		Temperature: g.config.Temperature,
	}

	resp, err := g.provider.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}

	var raw questionOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}

	concepts := raw.Concepts
	if len(concepts) == 0 {
		concepts = input.ExpectedConcepts
	}
	q := &Question{
		Prompt:           raw.QuestionText,
		ExpectedConcepts: concepts,
		Difficulty:       raw.Difficulty,
		GeneratedBy:      store.GeneratedLLM,
	}

	for _, v := range g.config.Validators {
		if verr := v.Validate(q, input); verr != nil {
			return nil, verr
		}
	}

	return q, nil
}
