package evaluator

import "github.com/feedbreak/feedbreak/internal/llm"

// EvaluationSchema defines the JSON schema for LLM answer evaluation responses.
var EvaluationSchema = &llm.Schema{
	Name:        "answer-evaluation",
	Description: "Assessment of a learner's free-text answer against the concepts of a video",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"quality_score": map[string]any{
				"type":        "number",
				"minimum":     0.0,
				"maximum":     1.0,
				"description": "Quality of understanding from 0.0 to 1.0",
			},
			"concepts_identified": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Expected concepts the answer mentioned or demonstrated",
			},
			"missing_concepts": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Expected concepts the answer did not cover",
			},
			"feedback": map[string]any{
				"type":        "string",
				"description": "Two or three encouraging, specific sentences for the learner",
			},
		},
		"required":             []any{"quality_score", "concepts_identified", "missing_concepts", "feedback"},
		"additionalProperties": false,
	},
}
