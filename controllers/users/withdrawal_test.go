package users

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/un-caught/agri-invest/models"
	"github.com/un-caught/agri-invest/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func postWithdrawal(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v3/users/withdrawals", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(context.WithValue(req.Context(), utils.UserIDKey, uint(1)))
	rec := httptest.NewRecorder()
	CreateWithdrawalHandler(rec, req)
	return rec
}

func seedCompletedInvestment(t *testing.T, db *gorm.DB, amount, actualReturn int64, claimedBy *uint) models.Investment {
	t.Helper()
	inv := models.Investment{
		UserID:              1,
		PackageID:           1,
		Amount:              decimal.NewFromInt(amount),
		ActualReturn:        decimal.NewFromInt(actualReturn),
		Status:              models.InvestmentStatusCompleted,
		WithdrawalRequestID: claimedBy,
	}
	if err := db.Create(&inv).Error; err != nil {
		t.Fatalf("seed investment: %v", err)
	}
	return inv
}

func TestCreateWithdrawalLinksInvestments(t *testing.T) {
	db := openEngineDB(t)
	seedCompletedInvestment(t, db, 100, 110, nil)
	seedCompletedInvestment(t, db, 200, 230, nil)

	rec := postWithdrawal(t, `{"type":"interest"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create withdrawal returned %d: %s", rec.Code, rec.Body.String())
	}

	var wr models.WithdrawalRequest
	if err := db.First(&wr).Error; err != nil {
		t.Fatalf("load withdrawal request: %v", err)
	}
	if want := decimal.NewFromInt(40); !wr.Amount.Equal(want) {
		t.Fatalf("amount = %s, want %s", wr.Amount, want)
	}
	var linked int64
	if err := db.Model(&models.Investment{}).Where("withdrawal_request_id = ?", wr.ID).Count(&linked).Error; err != nil {
		t.Fatalf("count linked: %v", err)
	}
	if linked != 2 {
		t.Fatalf("linked investments = %d, want 2", linked)
	}
}

// Requesting an investment that already belongs to another withdrawal is a
// conflict; nothing may be persisted.
func TestCreateWithdrawalRejectsClaimedInvestment(t *testing.T) {
	db := openEngineDB(t)
	free := seedCompletedInvestment(t, db, 100, 110, nil)
	other := uint(7)
	taken := seedCompletedInvestment(t, db, 200, 230, &other)

	rec := postWithdrawal(t, fmt.Sprintf(`{"type":"full","investment_ids":[%d,%d]}`, free.ID, taken.ID))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for claimed investment, got %d: %s", rec.Code, rec.Body.String())
	}
	var count int64
	if err := db.Model(&models.WithdrawalRequest{}).Count(&count).Error; err != nil {
		t.Fatalf("count requests: %v", err)
	}
	if count != 0 {
		t.Fatalf("withdrawal requests persisted = %d, want 0", count)
	}
}

// A claim that loses the race after the eligibility read rolls back
// entirely: the short row count surfaces as a conflict and no partial
// linkage survives.
func TestCreateWithdrawalConcurrentClaimConflicts(t *testing.T) {
	db := openEngineDB(t)
	a := seedCompletedInvestment(t, db, 100, 110, nil)
	b := seedCompletedInvestment(t, db, 200, 230, nil)

	fired := false
	err := db.Callback().Query().After("gorm:query").Register("concurrent_claim", func(d *gorm.DB) {
		if fired || d.Statement.Table != "investments" {
			return
		}
		fired = true
		if err := d.Session(&gorm.Session{NewDB: true}).
			Exec("UPDATE investments SET withdrawal_request_id = 999 WHERE id = ?", b.ID).Error; err != nil {
			_ = d.AddError(err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	defer db.Callback().Query().Remove("concurrent_claim")

	rec := postWithdrawal(t, fmt.Sprintf(`{"type":"full","investment_ids":[%d,%d]}`, a.ID, b.ID))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 when the claim loses the race, got %d: %s", rec.Code, rec.Body.String())
	}

	var count int64
	if err := db.Model(&models.WithdrawalRequest{}).Count(&count).Error; err != nil {
		t.Fatalf("count requests: %v", err)
	}
	if count != 0 {
		t.Fatalf("withdrawal requests persisted = %d, want 0", count)
	}
	var gotA models.Investment
	if err := db.First(&gotA, a.ID).Error; err != nil {
		t.Fatalf("reload investment: %v", err)
	}
	if gotA.WithdrawalRequestID != nil {
		t.Fatalf("claim on investment %d should have rolled back", a.ID)
	}
}
