package logger

import "testing"

func TestSanitizeKVs(t *testing.T) {
	got := sanitizeKVs([]interface{}{
		"api_key", "sk-123",
		"input_tokens", 42,
		"device_id", "dev-1",
		"dangling",
	})
	want := []interface{}{"api_key", "[REDACTED]", "input_tokens", 42, "device_id", "dev-1", "dangling"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("kv[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNopLogger(t *testing.T) {
	l := Nop().With("component", "test")
	l.Info("hello", "k", "v")
	l.Warn("careful")
	l.Sync()
}
