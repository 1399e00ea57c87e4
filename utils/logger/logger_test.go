package logger

import "testing"

func TestSanitizeKVs(t *testing.T) {
	in := []interface{}{"document_id", 7, "feed_token", "abc.def.ghi", "API_KEY", "sk-1", "dangling"}
	out := sanitizeKVs(in)

	want := []interface{}{"document_id", 7, "feed_token", "[REDACTED]", "API_KEY", "[REDACTED]", "dangling"}
	if len(out) != len(want) {
		t.Fatalf("len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	log := NewNop().With("component", "test")
	log.Info("hello", "k", "v")
	log.Warn("odd kv count", "k")
	log.Sync()
}
