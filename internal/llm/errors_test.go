package llm

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/feedbreak/feedbreak/internal/apperr"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{0, KindUnavailable},
		{http.StatusTooManyRequests, KindRateLimited},
		{http.StatusUnauthorized, KindRejected},
		{http.StatusNotFound, KindRejected},
		{http.StatusInternalServerError, KindUnavailable},
		{http.StatusServiceUnavailable, KindUnavailable},
	}
	for _, tt := range tests {
		e := fromStatus(ProviderOpenAI, tt.status, errors.New("sdk"))
		if e.Kind != tt.want {
			t.Errorf("fromStatus(%d) = %s, want %s", tt.status, e.Kind, tt.want)
		}
	}
}

func TestErrorIsDependencyFailure(t *testing.T) {
	sdk := errors.New("connection reset")
	err := fmt.Errorf("evaluate: %w", &Error{Kind: KindUnavailable, Provider: ProviderGemini, Err: sdk})

	if !apperr.IsDependency(err) {
		t.Fatalf("IsDependency(%v) = false", err)
	}
	var dep *apperr.DependencyError
	if !errors.As(err, &dep) {
		t.Fatal("errors.As found no DependencyError")
	}
	if dep.Dependency != "llm/gemini" {
		t.Errorf("dependency = %q, want llm/gemini", dep.Dependency)
	}
	if !errors.Is(dep, sdk) {
		t.Error("dependency error does not wrap the SDK error")
	}
	if kind, ok := KindOf(err); !ok || kind != KindUnavailable {
		t.Errorf("KindOf = %s/%v", kind, ok)
	}
	if _, ok := KindOf(sdk); ok {
		t.Error("KindOf matched a plain error")
	}
}

func TestErrorMessage(t *testing.T) {
	e := &Error{Kind: KindRateLimited, Provider: ProviderAnthropic, RetryAfter: 2e9, Err: errors.New("429")}
	if got, want := e.Error(), "llm anthropic: rate limited (retry after 2s): 429"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
