package admins

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/un-caught/agri-invest/models"
	"github.com/un-caught/agri-invest/utils"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func postWithdrawalAction(t *testing.T, id uint, action, body string) *httptest.ResponseRecorder {
	t.Helper()
	router := mux.NewRouter()
	router.HandleFunc("/v3/admins/withdrawals/{id}/{action:approve|reject|mark_paid}", WithdrawalActionHandler).Methods(http.MethodPost)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/v3/admins/withdrawals/%d/%s", id, action), reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func seedWithdrawal(t *testing.T, db *gorm.DB, status string) models.WithdrawalRequest {
	t.Helper()
	wr := models.WithdrawalRequest{
		UserID:      1,
		Amount:      decimal.NewFromInt(150),
		Type:        models.WithdrawalTypeFull,
		Status:      status,
		RequestDate: time.Now(),
	}
	if status != models.WithdrawalStatusPending {
		ref := "PAY-TEST-1"
		wr.PaymentReference = &ref
	}
	if err := db.Create(&wr).Error; err != nil {
		t.Fatalf("seed withdrawal: %v", err)
	}
	return wr
}

func TestMarkPaidWritesLedgerEntry(t *testing.T) {
	db := openAdminDB(t)
	wr := seedWithdrawal(t, db, models.WithdrawalStatusApproved)

	rec := postWithdrawalAction(t, wr.ID, "mark_paid", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("mark_paid returned %d: %s", rec.Code, rec.Body.String())
	}

	var got models.WithdrawalRequest
	if err := db.First(&got, wr.ID).Error; err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if got.Status != models.WithdrawalStatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if got.ProcessedDate == nil {
		t.Fatalf("processed date not set")
	}

	var entries []models.Transaction
	if err := db.Where("user_id = ?", wr.UserID).Find(&entries).Error; err != nil {
		t.Fatalf("load ledger: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry.Type != models.TransactionTypeWithdrawal {
		t.Fatalf("ledger type = %s, want withdrawal", entry.Type)
	}
	if !entry.Amount.Equal(wr.Amount) {
		t.Fatalf("ledger amount = %s, want %s", entry.Amount, wr.Amount)
	}
	if entry.PaymentReference == nil || *entry.PaymentReference != *wr.PaymentReference {
		t.Fatalf("ledger reference = %v, want %s", entry.PaymentReference, *wr.PaymentReference)
	}
}

// The status change and its ledger entry commit or roll back together: a
// payout is never acknowledged completed without an audit trail.
func TestMarkPaidRollsBackWhenLedgerWriteFails(t *testing.T) {
	db := openAdminDB(t)
	wr := seedWithdrawal(t, db, models.WithdrawalStatusApproved)

	ledgerDown := errors.New("ledger unavailable")
	err := db.Callback().Create().Before("gorm:create").Register("ledger_outage", func(d *gorm.DB) {
		if d.Statement.Table == "transactions" {
			_ = d.AddError(ledgerDown)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	defer db.Callback().Create().Remove("ledger_outage")

	rec := postWithdrawalAction(t, wr.ID, "mark_paid", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when the ledger write fails, got %d: %s", rec.Code, rec.Body.String())
	}

	var got models.WithdrawalRequest
	if err := db.First(&got, wr.ID).Error; err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if got.Status != models.WithdrawalStatusApproved {
		t.Fatalf("status = %s, want approved after rollback", got.Status)
	}
	var count int64
	if err := db.Model(&models.Transaction{}).Count(&count).Error; err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	if count != 0 {
		t.Fatalf("ledger entries = %d, want 0", count)
	}
}

// A second, conflicting action on the same request must lose with a 400
// that reports the current state; the persisted status never flips back.
func TestConflictingActionRejectedAfterApprove(t *testing.T) {
	db := openAdminDB(t)
	wr := seedWithdrawal(t, db, models.WithdrawalStatusPending)

	if rec := postWithdrawalAction(t, wr.ID, "approve", ""); rec.Code != http.StatusOK {
		t.Fatalf("approve returned %d: %s", rec.Code, rec.Body.String())
	}
	rec := postWithdrawalAction(t, wr.ID, "reject", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for reject after approve, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp utils.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(resp.Message, "cannot move from approved") {
		t.Fatalf("message %q does not report the current state", resp.Message)
	}

	var got models.WithdrawalRequest
	if err := db.First(&got, wr.ID).Error; err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if got.Status != models.WithdrawalStatusApproved {
		t.Fatalf("status = %s, want approved", got.Status)
	}
	if got.PaymentReference == nil || !strings.HasPrefix(*got.PaymentReference, "PAY-") {
		t.Fatalf("payment reference = %v, want a PAY- reference", got.PaymentReference)
	}
}

// A transfer the gateway refuses to queue flips the request to failed so
// another approve can retry it; it is never stuck in approved.
func TestApprovePayoutQueueFailureIsRetryable(t *testing.T) {
	db := openAdminDB(t)
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_admin")

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"status":false,"message":"service unavailable"}`)
	}))
	defer down.Close()
	t.Setenv("PAYSTACK_BASE_URL", down.URL)

	wr := seedWithdrawal(t, db, models.WithdrawalStatusPending)
	rec := postWithdrawalAction(t, wr.ID, "approve", `{"recipient_code":"RCP_retry"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for refused transfer, got %d: %s", rec.Code, rec.Body.String())
	}

	var got models.WithdrawalRequest
	if err := db.First(&got, wr.ID).Error; err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if got.Status != models.WithdrawalStatusFailed {
		t.Fatalf("status = %s, want failed so approve can retry", got.Status)
	}
	if !strings.Contains(got.AdminNotes, "could not be queued") {
		t.Fatalf("admin notes %q do not record the queue failure", got.AdminNotes)
	}

	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":true,"message":"Transfer has been queued","data":{"transfer_code":"TRF_1","status":"pending"}}`)
	}))
	defer up.Close()
	t.Setenv("PAYSTACK_BASE_URL", up.URL)

	rec = postWithdrawalAction(t, wr.ID, "approve", `{"recipient_code":"RCP_retry"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("retry approve returned %d: %s", rec.Code, rec.Body.String())
	}
	if err := db.First(&got, wr.ID).Error; err != nil {
		t.Fatalf("reload request: %v", err)
	}
	if got.Status != models.WithdrawalStatusApproved {
		t.Fatalf("status = %s, want approved after retry", got.Status)
	}
	if got.PaymentReference == nil || !strings.HasPrefix(*got.PaymentReference, "PAY-") {
		t.Fatalf("payment reference = %v, want a PAY- reference", got.PaymentReference)
	}
}
