package scenario

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func mustHash(t *testing.T, v any) string {
	t.Helper()
	h, err := CanonicalHash(v)
	if err != nil {
		t.Fatalf("CanonicalHash: %v", err)
	}
	return h
}

func TestCanonicalHash_KeyOrderInvariant(t *testing.T) {
	var a, b map[string]any
	if err := yaml.Unmarshal([]byte("run_label: demo\nintent: soak\nnested:\n  x: 1\n  y: 2\n"), &a); err != nil {
		t.Fatal(err)
	}
	if err := yaml.Unmarshal([]byte("nested:\n  y: 2\n  x: 1\nintent: soak\nrun_label: demo\n"), &b); err != nil {
		t.Fatal(err)
	}
	if mustHash(t, a) != mustHash(t, b) {
		t.Fatal("hash must be invariant to mapping key order")
	}
}

func TestCanonicalHash_LeafChange(t *testing.T) {
	a := map[string]any{"run": map[string]any{"label": "demo", "level": 0.5}}
	b := map[string]any{"run": map[string]any{"label": "demo", "level": 0.6}}
	if mustHash(t, a) == mustHash(t, b) {
		t.Fatal("hash must change when a scalar leaf changes")
	}
}

func TestCanonicalHash_DateNormalization(t *testing.T) {
	when := time.Date(2026, 8, 26, 9, 30, 0, 0, time.UTC)
	a := map[string]any{"started": when}
	b := map[string]any{"started": "2026-08-26T09:30:00Z"}
	if mustHash(t, a) != mustHash(t, b) {
		t.Fatal("time values must hash as their ISO-8601 string form")
	}
}

func TestCanonicalHash_LegacyMapKeys(t *testing.T) {
	a := map[string]any{"cfg": map[any]any{"a": 1, "b": 2}}
	b := map[string]any{"cfg": map[string]any{"a": 1, "b": 2}}
	if mustHash(t, a) != mustHash(t, b) {
		t.Fatal("map[any]any and map[string]any must hash identically")
	}
}

func TestCanonicalHash_Idempotent(t *testing.T) {
	v := map[string]any{"segments": []any{map[string]any{"t0": 0.0, "t1": 10.0}}}
	if mustHash(t, v) != mustHash(t, v) {
		t.Fatal("hash must be deterministic")
	}
	if len(mustHash(t, v)) != 64 {
		t.Fatal("expected 64-char hex SHA-256")
	}
}

func TestShortHash(t *testing.T) {
	if got := ShortHash("abcdef0123456789"); got != "abcdef01" {
		t.Fatalf("ShortHash = %q", got)
	}
	if got := ShortHash("abc"); got != "abc" {
		t.Fatalf("ShortHash short input = %q", got)
	}
}
