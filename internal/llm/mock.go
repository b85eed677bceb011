package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
)

// MockResponse is one scripted answer. Err, when set, is returned instead
// of Content.
type MockResponse struct {
	Content json.RawMessage
	Usage   Usage
	Err     error
}

// MockProvider replays scripted responses in order and records every
// request. In offline mode an empty script is not an error: responses are
// built from the request schema instead.
type MockProvider struct {
	mu      sync.Mutex
	script  []MockResponse
	offline bool
	Calls   []Request
}

// NewMockProvider returns a provider that replays responses and then
// reports itself unavailable.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{script: responses}
}

// NewOfflineProvider returns a provider that answers every schema request
// with placeholder JSON. It backs FEEDBREAK_LLM_PROVIDER=mock so the
// checkpoint flow runs without an API key.
func NewOfflineProvider() *MockProvider {
	return &MockProvider{offline: true}
}

var errScriptExhausted = errors.New("no scripted response left")

func (m *MockProvider) Generate(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)

	if len(m.script) == 0 {
		if !m.offline || req.Schema == nil {
			return nil, &Error{Kind: KindUnavailable, Provider: ProviderMock, Err: errScriptExhausted}
		}
		content, err := json.Marshal(placeholder(req.Schema.Definition, req.Schema.Name))
		if err != nil {
			return nil, &Error{Kind: KindInvalidResponse, Provider: ProviderMock, Err: err}
		}
		return finish(ProviderMock, req, content, Usage{}, ProviderMock, StopEnd)
	}

	next := m.script[0]
	m.script = m.script[1:]
	if next.Err != nil {
		return nil, next.Err
	}
	return &Response{Content: next.Content, Usage: next.Usage, Model: ProviderMock, StopReason: StopEnd}, nil
}

func (m *MockProvider) Name() string    { return ProviderMock }
func (m *MockProvider) ModelID() string { return ProviderMock }

// AddResponse appends to the script.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, resp)
}

// CallCount returns the number of Generate calls so far.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// placeholder builds a value that satisfies def: the first enum member,
// the midpoint of a bounded number, and "placeholder <field>" for strings.
func placeholder(def map[string]any, field string) any {
	if enum, ok := def["enum"].([]any); ok && len(enum) > 0 {
		return enum[0]
	}
	switch def["type"] {
	case "object":
		out := map[string]any{}
		props, _ := def["properties"].(map[string]any)
		for name, p := range props {
			if pd, ok := p.(map[string]any); ok {
				out[name] = placeholder(pd, name)
			}
		}
		return out
	case "array":
		return []any{}
	case "number":
		lo, hasLo := number(def["minimum"])
		hi, hasHi := number(def["maximum"])
		switch {
		case hasLo && hasHi:
			return (lo + hi) / 2
		case hasLo:
			return lo
		case hasHi:
			return hi
		}
		return 0.0
	case "integer":
		if lo, ok := number(def["minimum"]); ok {
			return int(lo)
		}
		return 0
	case "boolean":
		return false
	default:
		return "placeholder " + strings.ReplaceAll(field, "_", " ")
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
