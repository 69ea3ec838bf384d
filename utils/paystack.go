package utils

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Normalized gateway statuses. Paystack reports several terminal failure
// states (failed, abandoned, reversed); callers only care about these three.
const (
	GatewayStatusSuccess = "success"
	GatewayStatusFailed  = "failed"
	GatewayStatusPending = "pending"
)

func getPaystackConfig() (baseURL, secretKey string, err error) {
	baseURL = os.Getenv("PAYSTACK_BASE_URL")
	secretKey = os.Getenv("PAYSTACK_SECRET_KEY")
	if baseURL == "" {
		baseURL = "https://api.paystack.co"
	}
	if secretKey == "" {
		return "", "", fmt.Errorf("PAYSTACK_SECRET_KEY is required")
	}
	return baseURL, secretKey, nil
}

// paystackEnvelope is the outer shape of every Paystack API response.
type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func paystackRequest(ctx context.Context, client *http.Client, method, path string, body interface{}, out interface{}) error {
	baseURL, secretKey, err := getPaystackConfig()
	if err != nil {
		return err
	}
	url := strings.TrimRight(baseURL, "/") + path

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("paystack %s: %w", path, err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)

	var env paystackEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("paystack %s: parse response: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Status {
		return fmt.Errorf("paystack %s: HTTP %d: %s", path, resp.StatusCode, env.Message)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("paystack %s: parse data: %w", path, err)
		}
	}
	return nil
}

// PaystackInitResult from POST /transaction/initialize.
type PaystackInitResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// InitializePaystackTransaction starts a checkout session. Amount is in
// naira and converted to kobo on the wire.
func InitializePaystackTransaction(ctx context.Context, client *http.Client, email string, amount decimal.Decimal, reference string, metadata map[string]interface{}) (*PaystackInitResult, error) {
	body := map[string]interface{}{
		"email":     email,
		"amount":    amount.Mul(decimal.NewFromInt(100)).IntPart(),
		"reference": reference,
		"currency":  "NGN",
	}
	if len(metadata) > 0 {
		body["metadata"] = metadata
	}
	var result PaystackInitResult
	if err := paystackRequest(ctx, client, http.MethodPost, "/transaction/initialize", body, &result); err != nil {
		return nil, err
	}
	if result.AuthorizationURL == "" {
		return nil, fmt.Errorf("paystack initialize: empty authorization url")
	}
	return &result, nil
}

// PaystackTransaction from GET /transaction/verify/{reference}.
type PaystackTransaction struct {
	ID              int64           `json:"id"`
	Status          string          `json:"status"`
	Reference       string          `json:"reference"`
	Amount          int64           `json:"amount"`
	GatewayResponse string          `json:"gateway_response"`
	Channel         string          `json:"channel"`
	Currency        string          `json:"currency"`
	PaidAt          *time.Time      `json:"paid_at"`
	Metadata        json.RawMessage `json:"metadata"`
}

// VerifyPaystackTransaction looks up the charge by reference.
func VerifyPaystackTransaction(ctx context.Context, client *http.Client, reference string) (*PaystackTransaction, error) {
	var result PaystackTransaction
	if err := paystackRequest(ctx, client, http.MethodGet, "/transaction/verify/"+reference, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MapPaystackStatus normalizes a raw Paystack transaction status.
func MapPaystackStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success":
		return GatewayStatusSuccess
	case "failed", "abandoned", "reversed":
		return GatewayStatusFailed
	default:
		return GatewayStatusPending
	}
}

// VerifyPaystackSignature checks the X-Paystack-Signature header: hex
// HMAC-SHA512 of the raw request body keyed with the secret key.
func VerifyPaystackSignature(body []byte, signature string) bool {
	_, secretKey, err := getPaystackConfig()
	if err != nil {
		return false
	}
	mac := hmac.New(sha512.New, []byte(secretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// PaystackWebhookEvent is the body Paystack posts to the callback URL.
type PaystackWebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		ID              int64           `json:"id"`
		Reference       string          `json:"reference"`
		Status          string          `json:"status"`
		Amount          int64           `json:"amount"`
		GatewayResponse string          `json:"gateway_response"`
		Channel         string          `json:"channel"`
		PaidAt          *time.Time      `json:"paid_at"`
		Metadata        json.RawMessage `json:"metadata"`
	} `json:"data"`
}

// ParsePaystackWebhook decodes a webhook body. Call only after the
// signature has been verified.
func ParsePaystackWebhook(body []byte) (*PaystackWebhookEvent, error) {
	var event PaystackWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("parse webhook: %w", err)
	}
	if event.Event == "" {
		return nil, fmt.Errorf("parse webhook: missing event")
	}
	return &event, nil
}

// CreatePaystackRecipient registers a bank account as a transfer recipient
// and returns its recipient code.
func CreatePaystackRecipient(ctx context.Context, client *http.Client, name, accountNumber, bankCode string) (string, error) {
	body := map[string]interface{}{
		"type":           "nuban",
		"name":           name,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       "NGN",
	}
	var result struct {
		RecipientCode string `json:"recipient_code"`
	}
	if err := paystackRequest(ctx, client, http.MethodPost, "/transferrecipient", body, &result); err != nil {
		return "", err
	}
	return result.RecipientCode, nil
}

// PaystackTransferResult from POST /transfer.
type PaystackTransferResult struct {
	TransferCode string `json:"transfer_code"`
	Reference    string `json:"reference"`
	Status       string `json:"status"`
}

// InitiatePaystackTransfer queues a payout to a recipient code. Amount is
// in naira. The transfer settles asynchronously; the webhook reports
// transfer.success / transfer.failed.
func InitiatePaystackTransfer(ctx context.Context, client *http.Client, recipientCode string, amount decimal.Decimal, reference, reason string) (*PaystackTransferResult, error) {
	body := map[string]interface{}{
		"source":    "balance",
		"amount":    amount.Mul(decimal.NewFromInt(100)).IntPart(),
		"recipient": recipientCode,
		"reference": reference,
		"reason":    reason,
	}
	var result PaystackTransferResult
	if err := paystackRequest(ctx, client, http.MethodPost, "/transfer", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
