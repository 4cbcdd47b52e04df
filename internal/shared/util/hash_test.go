package util

import "testing"

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("abstraction", "context", "v1")
	b := Fingerprint("abstraction", "context", "v1")
	if a != b {
		t.Fatalf("fingerprint not stable: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}

func TestFingerprintBoundaries(t *testing.T) {
	// "ab"+"c" must not collide with "a"+"bc".
	if Fingerprint("ab", "c") == Fingerprint("a", "bc") {
		t.Fatal("fingerprint collides across part boundaries")
	}
	if Fingerprint("x") == Fingerprint("x", "") {
		t.Fatal("fingerprint ignores empty trailing part")
	}
}

func TestSanitizeFileName(t *testing.T) {
	if _, err := SanitizeFileName("../etc/passwd"); err == nil {
		t.Fatal("expected traversal rejection")
	}
	got, err := SanitizeFileName("a/b\\c.md")
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}
	if got != "a_b_c.md" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
}
