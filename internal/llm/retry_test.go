package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2}
}

func failure(kind Kind) MockResponse {
	return MockResponse{Err: &Error{Kind: kind, Provider: ProviderMock, Err: errors.New(kind.String())}}
}

var okQuestion = MockResponse{Content: json.RawMessage(`{"question_text":"Why do leaves look green?"}`)}

func TestRetry_RecoversFromTransientFailures(t *testing.T) {
	for _, kind := range []Kind{KindUnavailable, KindRateLimited} {
		mock := NewMockProvider(failure(kind), okQuestion)
		resp, err := WithRetry(mock, fastRetry()).Generate(context.Background(), Request{})
		if err != nil {
			t.Fatalf("%s: %v", kind, err)
		}
		if string(resp.Content) != string(okQuestion.Content) {
			t.Errorf("%s: content = %s", kind, resp.Content)
		}
		if mock.CallCount() != 2 {
			t.Errorf("%s: calls = %d, want 2", kind, mock.CallCount())
		}
	}
}

func TestRetry_DoesNotRetryPermanentFailures(t *testing.T) {
	for _, kind := range []Kind{KindRejected, KindTruncated} {
		mock := NewMockProvider(failure(kind), okQuestion)
		_, err := WithRetry(mock, fastRetry()).Generate(context.Background(), Request{})
		if got, _ := KindOf(err); got != kind {
			t.Errorf("%s: err = %v", kind, err)
		}
		if mock.CallCount() != 1 {
			t.Errorf("%s: calls = %d, want 1", kind, mock.CallCount())
		}
	}
}

func TestRetry_InvalidResponseRetriedOnce(t *testing.T) {
	mock := NewMockProvider(failure(KindInvalidResponse), failure(KindInvalidResponse), okQuestion)
	_, err := WithRetry(mock, fastRetry()).Generate(context.Background(), Request{})
	if kind, _ := KindOf(err); kind != KindInvalidResponse {
		t.Fatalf("err = %v, want invalid response", err)
	}
	if mock.CallCount() != 2 {
		t.Errorf("calls = %d, want 2", mock.CallCount())
	}
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	mock := NewMockProvider(failure(KindUnavailable), failure(KindUnavailable), failure(KindUnavailable), okQuestion)
	_, err := WithRetry(mock, fastRetry()).Generate(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error after 3 attempts")
	}
	if mock.CallCount() != 3 {
		t.Errorf("calls = %d, want 3", mock.CallCount())
	}
}

func TestRetry_StopsOnCancel(t *testing.T) {
	slow := RetryConfig{MaxAttempts: 3, InitialWait: time.Second, MaxWait: time.Second, Multiplier: 1}
	mock := NewMockProvider(failure(KindUnavailable), okQuestion)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := WithRetry(mock, slow).Generate(ctx, Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Errorf("retry ignored cancellation: %v", time.Since(start))
	}
}

func TestRetry_HonoursRetryAfter(t *testing.T) {
	r := &RetryProvider{config: fastRetry()}
	err := &Error{Kind: KindRateLimited, RetryAfter: 3 * time.Second}
	if got := r.wait(0, err); got != 3*time.Second {
		t.Errorf("wait = %v, want 3s", got)
	}
	if got := r.wait(10, errors.New("x")); got > 6*time.Millisecond {
		t.Errorf("wait = %v, want capped near MaxWait", got)
	}
}
