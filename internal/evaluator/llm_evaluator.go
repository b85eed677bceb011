package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/feedbreak/feedbreak/internal/llm"
)

// LLMConfig holds configuration for the LLM evaluator.
type LLMConfig struct {
	MaxTokens   int
	Temperature float64
}

// DefaultLLMConfig returns sensible defaults.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		MaxTokens:   400,
		Temperature: 0.3,
	}
}

// LLMEvaluator scores answers with an LLM provider.
type LLMEvaluator struct {
	provider llm.Provider
	cfg      LLMConfig
}

// NewLLMEvaluator creates an LLM-based evaluator.
func NewLLMEvaluator(provider llm.Provider, cfg LLMConfig) *LLMEvaluator {
	return &LLMEvaluator{provider: provider, cfg: cfg}
}

// evaluationOutput is the raw LLM response.
type evaluationOutput struct {
	QualityScore       float64  `json:"quality_score"`
	ConceptsIdentified []string `json:"concepts_identified"`
	MissingConcepts    []string `json:"missing_concepts"`
	Feedback           string   `json:"feedback"`
}

// Evaluate sends the answer to the LLM and returns the parsed assessment.
// Any "passed" judgement is derived from the score, never taken from the
// model.
func (e *LLMEvaluator) Evaluate(ctx context.Context, req Request) (*Result, error) {
	ctx = llm.WithPurpose(ctx, llm.PurposeAnswerEval)

	userMsg, err := buildEvaluationMessage(req)
	if err != nil {
		return nil, fmt.Errorf("build evaluation prompt: %w", err)
	}

	resp, err := e.provider.Generate(ctx, llm.Request{
		System: evaluationSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: userMsg},
		},
		Schema:      EvaluationSchema,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM evaluation failed: %w", err)
	}

	var raw evaluationOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse evaluation response: %w", err)
	}
	if strings.TrimSpace(raw.Feedback) == "" {
		return nil, fmt.Errorf("evaluation response has empty feedback")
	}

	return newResult(raw.QualityScore, raw.ConceptsIdentified, raw.MissingConcepts, raw.Feedback), nil
}

const evaluationSystemPrompt = `You are a teacher assessing how well a learner understood a short educational video.

Instructions:
- Judge whether the answer shows understanding of the concepts presented in the video.
- List which expected concepts were mentioned or demonstrated, and which were missing.
- Score the quality from 0.0 to 1.0:
  0.0-0.4: did not understand, inadequate or very superficial answer
  0.5-0.6: basic understanding, incomplete or imprecise
  0.7-0.8: good understanding, mentions the main concepts
  0.9-1.0: deep, well articulated understanding
- Reward answers in the learner's own words over memorised phrases.
- Write 2-3 sentences of feedback. Be encouraging, point out what went well and what to improve.
- A score of 0.6 or more means the learner passed.`

var evaluationUserTemplate = template.Must(template.New("evaluation").Funcs(template.FuncMap{
	"join": func(s []string) string { return strings.Join(s, ", ") },
}).Parse(`Video:
{{if .ReferenceMaterial}}{{.ReferenceMaterial}}{{else}}No description{{end}}

Expected concepts: {{if .ExpectedConcepts}}{{join .ExpectedConcepts}}{{else}}general concepts{{end}}

Question asked:
{{.QuestionText}}

Learner's answer:
{{.AnswerText}}`))

func buildEvaluationMessage(req Request) (string, error) {
	var buf bytes.Buffer
	if err := evaluationUserTemplate.Execute(&buf, req); err != nil {
		return "", err
	}
	return buf.String(), nil
}
