package signer

import (
	"strings"
	"testing"
)

func TestSignDeterministic(t *testing.T) {
	a := Sign("alice@example.com2023-05-19 10:00:00 +0000 UTC", "key-one")
	b := Sign("alice@example.com2023-05-19 10:00:00 +0000 UTC", "key-one")
	if a != b {
		t.Fatalf("expected deterministic output, got %q and %q", a, b)
	}
}

func TestSignLength(t *testing.T) {
	code := Sign("payload", "key")
	if len(code) != CodeLength {
		t.Fatalf("expected %d hex chars, got %d (%q)", CodeLength, len(code), code)
	}
	if code != strings.ToLower(code) {
		t.Fatalf("expected lowercase hex, got %q", code)
	}
}

func TestSignKeySensitivity(t *testing.T) {
	raw := "alice@example.comsalt"
	seen := map[string]string{}
	for _, key := range []string{"key-one", "key-two", "key-three"} {
		code := Sign(raw, key)
		if prev, ok := seen[code]; ok {
			t.Fatalf("keys %q and %q produced the same code %q", prev, key, code)
		}
		seen[code] = key
	}
}

func TestSignSaltSensitivity(t *testing.T) {
	if Sign("alice@example.comsalt-a", "key") == Sign("alice@example.comsalt-b", "key") {
		t.Fatalf("expected different salts to produce different codes")
	}
}

func TestVerify(t *testing.T) {
	raw := "bob@example.com2023-05-19 10:00:00 +0000 UTC"
	code := Sign(raw, "secret")

	if !Verify(raw, "secret", code) {
		t.Fatalf("expected genuine code to verify")
	}
	if Verify(raw, "other-secret", code) {
		t.Fatalf("expected wrong key to fail verification")
	}
	if Verify(raw+"x", "secret", code) {
		t.Fatalf("expected changed payload to fail verification")
	}
	flipped := "0"
	if code[CodeLength-1] == '0' {
		flipped = "1"
	}
	if Verify(raw, "secret", code[:CodeLength-1]+flipped) {
		t.Fatalf("expected tampered code to fail verification")
	}
}
