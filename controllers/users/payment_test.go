package users

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/un-caught/agri-invest/utils"
)

func webhookSignature(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(t *testing.T, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v3/callback/paystack", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Paystack-Signature", signature)
	}
	rec := httptest.NewRecorder()
	PaystackWebhookHandler(rec, req)
	return rec
}

// A bad signature must be rejected before the handler reaches the database;
// database.DB stays nil in these tests, so any DB access would panic.
func TestWebhookRejectsInvalidSignature(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_webhook")

	body := []byte(`{"event":"charge.success","data":{"reference":"INV-1"}}`)

	rec := postWebhook(t, body, "deadbeef")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad signature, got %d", rec.Code)
	}
	var resp utils.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success || resp.Message != "Invalid signature" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	if rec := postWebhook(t, body, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing signature, got %d", rec.Code)
	}
}

func TestWebhookIgnoresUnknownEvent(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_webhook")

	body := []byte(`{"event":"subscription.create","data":{"reference":"SUB-1"}}`)
	rec := postWebhook(t, body, webhookSignature("sk_test_webhook", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for unknown event, got %d", rec.Code)
	}

	var resp struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.Data["status"] != "ignored" {
		t.Fatalf("expected ignored status, got %+v", resp)
	}
}

func TestWebhookRejectsMalformedPayload(t *testing.T) {
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_webhook")

	body := []byte(`{"data":{"reference":"INV-1"}}`)
	rec := postWebhook(t, body, webhookSignature("sk_test_webhook", body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for payload without event, got %d", rec.Code)
	}
}
