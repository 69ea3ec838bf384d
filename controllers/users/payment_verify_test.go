package users

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/un-caught/agri-invest/models"
	"github.com/un-caught/agri-invest/utils"

	"gorm.io/gorm"
)

func paystackVerifyStub(t *testing.T, status string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":true,"message":"Verification successful","data":{"status":%q,"reference":"INV-CONFIRM-1","channel":"card"}}`, status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func postVerify(t *testing.T, reference string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v3/users/payments/verify", strings.NewReader(fmt.Sprintf(`{"reference":%q}`, reference)))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(context.WithValue(req.Context(), utils.UserIDKey, uint(1)))
	rec := httptest.NewRecorder()
	VerifyPaymentHandler(rec, req)
	return rec
}

func TestVerifyPaymentMarksFailedCharge(t *testing.T) {
	db := openEngineDB(t)
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_verify")
	t.Setenv("PAYSTACK_BASE_URL", paystackVerifyStub(t, "abandoned").URL)

	_, payment := seedConfirmableInvestment(t, db, 5)

	rec := postVerify(t, payment.Reference)
	if rec.Code != http.StatusOK {
		t.Fatalf("verify returned %d: %s", rec.Code, rec.Body.String())
	}
	var got models.Payment
	if err := db.Where("reference = ?", payment.Reference).First(&got).Error; err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	if got.Status != models.PaymentStatusFailed {
		t.Fatalf("payment status = %s, want failed", got.Status)
	}
}

// When the final reload fails the handler must report the failure instead
// of answering 200 with the stale pre-update row.
func TestVerifyPaymentReloadFailureIsReported(t *testing.T) {
	db := openEngineDB(t)
	t.Setenv("PAYSTACK_SECRET_KEY", "sk_test_verify")
	t.Setenv("PAYSTACK_BASE_URL", paystackVerifyStub(t, "abandoned").URL)

	_, payment := seedConfirmableInvestment(t, db, 5)

	// The handler reads payments three times on this path: the initial
	// lookup, the locked read, then the reload. Fail the reload.
	queries := 0
	err := db.Callback().Query().Before("gorm:query").Register("reload_outage", func(d *gorm.DB) {
		if d.Statement.Table != "payments" {
			return
		}
		queries++
		if queries == 3 {
			_ = d.AddError(errors.New("connection lost"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	defer db.Callback().Query().Remove("reload_outage")

	rec := postVerify(t, payment.Reference)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when the reload fails, got %d: %s", rec.Code, rec.Body.String())
	}
}
