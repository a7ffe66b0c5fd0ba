package ratelimit

import "testing"

func TestAllowConsumesTokens(t *testing.T) {
	l := New(2, 0)

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("first two requests should pass")
	}
	if l.Allow("a") {
		t.Fatalf("bucket should be empty")
	}
}

func TestKeysIsolated(t *testing.T) {
	l := New(1, 0)

	if !l.Allow("a") {
		t.Fatalf("first key should pass")
	}
	if !l.Allow("b") {
		t.Fatalf("second key has its own bucket")
	}
	if l.Allow("a") {
		t.Fatalf("first key should be exhausted")
	}
}
