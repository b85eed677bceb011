package llm

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"google.golang.org/genai"
)

// assessmentSchema mirrors the shape of the answer evaluation schema.
var assessmentSchema = &Schema{
	Name: "test-assessment",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"quality_score": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"concepts":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"feedback":      map[string]any{"type": "string"},
			"level":         map[string]any{"type": "integer", "minimum": 1, "maximum": 5},
			"tone":          map[string]any{"type": "string", "enum": []any{"warm", "neutral"}},
		},
		"required":             []any{"quality_score", "concepts", "feedback"},
		"additionalProperties": false,
	},
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"valid", `{"quality_score":0.8,"concepts":["light"],"feedback":"Good"}`, true},
		{"score out of range", `{"quality_score":1.5,"concepts":[],"feedback":"x"}`, false},
		{"missing feedback", `{"quality_score":0.5,"concepts":[]}`, false},
		{"extra field", `{"quality_score":0.5,"concepts":[],"feedback":"x","passed":true}`, false},
		{"not json", `Sure! Here is the assessment`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate(ProviderOpenAI, assessmentSchema, json.RawMessage(tt.raw))
			if tt.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if kind, _ := KindOf(err); kind != KindInvalidResponse {
				t.Fatalf("err = %v, want invalid response", err)
			}
			if e := err.(*Error); string(e.Content) != tt.raw {
				t.Errorf("content not kept: %s", e.Content)
			}
		})
	}
}

func TestFinishReportsTruncation(t *testing.T) {
	req := Request{Schema: assessmentSchema}
	_, err := finish(ProviderGemini, req, json.RawMessage(`{"quality_score":0.`), Usage{}, "gemini-2.5-flash", StopMaxTokens)
	if kind, _ := KindOf(err); kind != KindTruncated {
		t.Fatalf("err = %v, want truncated", err)
	}

	resp, err := finish(ProviderGemini, Request{}, json.RawMessage(`plain text`), newUsage(3, 4), "gemini-2.5-flash", StopMaxTokens)
	if err != nil {
		t.Fatalf("schema-less truncation should pass through: %v", err)
	}
	if resp.Usage.TotalTokens != 7 || resp.StopReason != StopMaxTokens {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestMockProvider_ScriptThenUnavailable(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: newUsage(10, 5)})
	resp, err := mock.Generate(context.Background(), Request{System: "sys"})
	if err != nil {
		t.Fatal(err)
	}
	if string(resp.Content) != `{"a":1}` || resp.Usage.TotalTokens != 15 {
		t.Errorf("unexpected response: %+v", resp)
	}

	_, err = mock.Generate(context.Background(), Request{Schema: assessmentSchema})
	if kind, ok := KindOf(err); !ok || kind != KindUnavailable {
		t.Fatalf("exhausted script: err = %v", err)
	}
	if mock.CallCount() != 2 || mock.Calls[0].System != "sys" {
		t.Errorf("calls not recorded: %+v", mock.Calls)
	}
}

func TestOfflineProvider_AnswersFromSchema(t *testing.T) {
	p := NewOfflineProvider()
	resp, err := p.Generate(context.Background(), Request{Schema: assessmentSchema})
	if err != nil {
		t.Fatalf("offline answer failed validation: %v", err)
	}

	var got struct {
		QualityScore float64  `json:"quality_score"`
		Concepts     []string `json:"concepts"`
		Feedback     string   `json:"feedback"`
		Level        int      `json:"level"`
		Tone         string   `json:"tone"`
	}
	if err := json.Unmarshal(resp.Content, &got); err != nil {
		t.Fatal(err)
	}
	if got.QualityScore != 0.5 || got.Level != 1 || got.Tone != "warm" {
		t.Errorf("unexpected placeholder: %s", resp.Content)
	}
	if got.Feedback != "placeholder feedback" {
		t.Errorf("feedback = %q", got.Feedback)
	}

	if _, err := p.Generate(context.Background(), Request{}); err == nil {
		t.Error("offline provider answered a request without a schema")
	}
}

func TestLookupCost(t *testing.T) {
	tests := []struct {
		model string
		want  float64 // input price
	}{
		{"gpt-4o-mini", 0.15},
		{"gpt-4o-mini-2024-07-18", 0.15},
		{"gpt-4o-2024-11-20", 2.5},
		{"claude-haiku-4-5-20251001", 1},
		{"google/gemini-2.0-flash-001", 0.1},
		{"gemini-2.0-flash-lite", 0.075},
	}
	for _, tt := range tests {
		c := LookupCost(tt.model)
		if c == nil || c.InputPerMTok != tt.want {
			t.Errorf("LookupCost(%q) = %+v, want input %v", tt.model, c, tt.want)
		}
	}
	if LookupCost("llama-3-70b") != nil {
		t.Error("unknown model priced")
	}
	if usd, ok := EstimateCost("gpt-4o-mini", newUsage(1_000_000, 1_000_000)); !ok || math.Abs(usd-0.75) > 1e-9 {
		t.Errorf("EstimateCost = %v/%v, want 0.75", usd, ok)
	}
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(assessmentSchema.Definition)
	if s.Type != genai.TypeObject || len(s.Properties) != 5 {
		t.Fatalf("unexpected root: %+v", s)
	}
	score := s.Properties["quality_score"]
	if score.Type != genai.TypeNumber || score.Minimum == nil || *score.Maximum != 1 {
		t.Errorf("score bounds lost: %+v", score)
	}
	if s.Properties["concepts"].Items.Type != genai.TypeString {
		t.Error("array items lost")
	}
	if got := s.Properties["tone"].Enum; len(got) != 2 || got[0] != "warm" {
		t.Errorf("enum = %v", got)
	}
	if len(s.Required) != 3 {
		t.Errorf("required = %v", s.Required)
	}
}

func TestResolveModel(t *testing.T) {
	if got := resolveModel("gemini-flash", geminiAliases); got != "gemini-2.5-flash" {
		t.Errorf("alias = %q", got)
	}
	if got := resolveModel("claude-opus-4-1", anthropicAliases); got != "claude-opus-4-1" {
		t.Errorf("passthrough = %q", got)
	}
}
