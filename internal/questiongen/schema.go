package questiongen

import "github.com/feedbreak/feedbreak/internal/llm"

// QuestionSchema defines the JSON schema for LLM question generation responses.
var QuestionSchema = &llm.Schema{
	Name:        "checkpoint-question",
	Description: "A single open comprehension question about a short educational video",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question_text": map[string]any{
				"type":        "string",
				"description": "The open question shown to the learner",
			},
			"concepts": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "The concepts a good answer should mention",
			},
			"difficulty": map[string]any{
				"type":        "integer",
				"minimum":     1,
				"maximum":     5,
				"description": "Self-assessed difficulty from 1 (easy) to 5 (hard)",
			},
		},
		"required":             []any{"question_text", "concepts", "difficulty"},
		"additionalProperties": false,
	},
}
