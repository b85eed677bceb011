package questiongen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/feedbreak/feedbreak/internal/store"
)

// DefaultWebhookTimeout bounds a single webhook call.
const DefaultWebhookTimeout = 30 * time.Second

// WebhookGenerator asks an external workflow (an n8n webhook) for a
// question. The webhook receives the learner and video as JSON and answers
// with {"question": "..."} or {"question_text": "..."}.
type WebhookGenerator struct {
	url        string
	httpClient *http.Client
}

// NewWebhookGenerator creates a generator posting to url. A non-positive
// timeout selects DefaultWebhookTimeout.
func NewWebhookGenerator(url string, timeout time.Duration) (*WebhookGenerator, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("webhook url is required")
	}
	if timeout <= 0 {
		timeout = DefaultWebhookTimeout
	}
	return &WebhookGenerator{url: url, httpClient: &http.Client{Timeout: timeout}}, nil
}

type webhookUser struct {
	Name           string   `json:"name"`
	Age            int      `json:"age"`
	Interests      []string `json:"interests"`
	EducationLevel string   `json:"education_level"`
}

type webhookVideo struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	ExpectedConcepts []string `json:"expected_concepts"`
}

type webhookRequest struct {
	User  webhookUser  `json:"user"`
	Video webhookVideo `json:"video"`
}

type webhookResponse struct {
	Question     string `json:"question"`
	QuestionText string `json:"question_text"`
}

// Generate posts the input to the webhook and returns its question.
func (g *WebhookGenerator) Generate(ctx context.Context, input Input) (*Question, error) {
	body, err := json.Marshal(webhookRequest{
		User: webhookUser{
			Name:           input.Learner.Name,
			Age:            input.Learner.Age,
			Interests:      nonNil(input.Learner.Interests),
			EducationLevel: input.Learner.EducationLevel,
		},
		Video: webhookVideo{
			Title:            input.Topic,
			Description:      input.SourceMaterial,
			ExpectedConcepts: nonNil(input.ExpectedConcepts),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode webhook request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webhook request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("read webhook response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	var out webhookResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode webhook response: %w", err)
	}
	text := strings.TrimSpace(out.Question)
	if text == "" {
		text = strings.TrimSpace(out.QuestionText)
	}
	if text == "" {
		return nil, fmt.Errorf("webhook response missing question field")
	}

	return &Question{
		Prompt:           text,
		ExpectedConcepts: input.ExpectedConcepts,
		GeneratedBy:      store.GeneratedWebhook,
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
