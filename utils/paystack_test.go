package utils

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPaystackSignature(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_abc123")

	body := []byte(`{"event":"charge.success","data":{"reference":"INV-1"}}`)
	sig := signBody("sk_test_abc123", body)

	if !VerifyPaystackSignature(body, sig) {
		t.Fatalf("valid signature rejected")
	}
	if VerifyPaystackSignature(body, sig[:len(sig)-2]+"ff") {
		t.Fatalf("tampered signature accepted")
	}
	if VerifyPaystackSignature([]byte(`{"event":"charge.failed"}`), sig) {
		t.Fatalf("signature accepted for different body")
	}
	if VerifyPaystackSignature(body, "") {
		t.Fatalf("empty signature accepted")
	}
}

func TestVerifyPaystackSignatureWithoutSecret(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "")
	body := []byte(`{}`)
	if VerifyPaystackSignature(body, signBody("", body)) {
		t.Fatalf("signature accepted with no secret configured")
	}
}

func TestMapPaystackStatus(t *testing.T) {
	cases := map[string]string{
		"success":    GatewayStatusSuccess,
		"Success":    GatewayStatusSuccess,
		"failed":     GatewayStatusFailed,
		"abandoned":  GatewayStatusFailed,
		"reversed":   GatewayStatusFailed,
		"pending":    GatewayStatusPending,
		"ongoing":    GatewayStatusPending,
		"queued":     GatewayStatusPending,
		"processing": GatewayStatusPending,
		"":           GatewayStatusPending,
	}
	for raw, want := range cases {
		if got := MapPaystackStatus(raw); got != want {
			t.Fatalf("MapPaystackStatus(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestParsePaystackWebhook(t *testing.T) {
	body := []byte(`{"event":"charge.success","data":{"id":42,"reference":"INV-0001","status":"success","amount":10000000,"channel":"card"}}`)
	event, err := ParsePaystackWebhook(body)
	if err != nil {
		t.Fatalf("ParsePaystackWebhook: %v", err)
	}
	if event.Event != "charge.success" {
		t.Fatalf("expected charge.success, got %s", event.Event)
	}
	if event.Data.Reference != "INV-0001" || event.Data.Amount != 10000000 {
		t.Fatalf("data fields not decoded: %+v", event.Data)
	}

	if _, err := ParsePaystackWebhook([]byte(`{"data":{}}`)); err == nil {
		t.Fatalf("expected error for missing event field")
	}
	if _, err := ParsePaystackWebhook([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for malformed body")
	}
}
