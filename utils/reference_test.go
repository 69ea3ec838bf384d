package utils

import (
	"strings"
	"testing"
)

func TestGeneratePaymentReference(t *testing.T) {
	ref := GeneratePaymentReference(42)
	if !strings.HasPrefix(ref, "INV-") {
		t.Fatalf("expected INV- prefix, got %s", ref)
	}
	if !strings.HasSuffix(ref, "42") {
		t.Fatalf("expected user id suffix, got %s", ref)
	}

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		r := GeneratePaymentReference(7)
		if seen[r] {
			t.Fatalf("duplicate reference generated: %s", r)
		}
		seen[r] = true
	}
}

func TestGeneratePayoutReference(t *testing.T) {
	ref := GeneratePayoutReference(9)
	if !strings.HasPrefix(ref, "PAY-") {
		t.Fatalf("expected PAY- prefix, got %s", ref)
	}
	if !strings.HasSuffix(ref, "9") {
		t.Fatalf("expected withdrawal id suffix, got %s", ref)
	}
}
