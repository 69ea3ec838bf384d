package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestInvestmentActivate(t *testing.T) {
	pkg := &InvestmentPackage{ReturnRate: dec("30"), DurationDays: 180}
	inv := &Investment{Status: InvestmentStatusPending, Amount: dec("100000")}
	start := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

	if err := inv.Activate(pkg, start); err != nil {
		t.Fatalf("Activate returned error: %v", err)
	}
	if inv.Status != InvestmentStatusActive {
		t.Fatalf("expected active, got %s", inv.Status)
	}
	if inv.StartDate == nil || !inv.StartDate.Equal(start) {
		t.Fatalf("start date not set to activation time")
	}
	wantEnd := start.AddDate(0, 0, 180)
	if inv.EndDate == nil || !inv.EndDate.Equal(wantEnd) {
		t.Fatalf("expected end date %v, got %v", wantEnd, inv.EndDate)
	}
	if !inv.ActualReturn.Equal(dec("130000")) {
		t.Fatalf("expected actual return 130000, got %s", inv.ActualReturn)
	}
}

func TestInvestmentActivateOnlyFromPending(t *testing.T) {
	pkg := &InvestmentPackage{ReturnRate: dec("10"), DurationDays: 30}
	for _, status := range []string{InvestmentStatusActive, InvestmentStatusCompleted, InvestmentStatusCancelled} {
		inv := &Investment{Status: status, Amount: dec("5000")}
		err := inv.Activate(pkg, time.Now())
		var transitionErr *InvalidTransitionError
		if !errors.As(err, &transitionErr) {
			t.Fatalf("status %s: expected InvalidTransitionError, got %v", status, err)
		}
		if inv.Status != status {
			t.Fatalf("status %s: rejected transition mutated status to %s", status, inv.Status)
		}
	}
}

func TestInvestmentCompleteBeforeMaturity(t *testing.T) {
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	inv := &Investment{Status: InvestmentStatusActive, EndDate: &end}

	if err := inv.Complete(end.Add(-time.Hour)); !errors.Is(err, ErrNotMatured) {
		t.Fatalf("expected ErrNotMatured before end date, got %v", err)
	}
	if inv.Status != InvestmentStatusActive {
		t.Fatalf("failed completion mutated status to %s", inv.Status)
	}
	if err := inv.Complete(end); err != nil {
		t.Fatalf("Complete at end date returned error: %v", err)
	}
	if inv.Status != InvestmentStatusCompleted || inv.CompletedDate == nil {
		t.Fatalf("completion did not record status and date")
	}
}

func TestInvestmentCancelOnlyPending(t *testing.T) {
	inv := &Investment{Status: InvestmentStatusPending}
	if err := inv.Cancel(); err != nil {
		t.Fatalf("Cancel pending returned error: %v", err)
	}
	if inv.Status != InvestmentStatusCancelled {
		t.Fatalf("expected cancelled, got %s", inv.Status)
	}

	active := &Investment{Status: InvestmentStatusActive}
	var transitionErr *InvalidTransitionError
	if err := active.Cancel(); !errors.As(err, &transitionErr) {
		t.Fatalf("expected InvalidTransitionError for active cancel, got %v", err)
	}
}

func TestPaymentNeverRegressesFromSuccess(t *testing.T) {
	paidAt := time.Now()
	p := &Payment{Status: PaymentStatusPending}
	if err := p.MarkSuccess(paidAt); err != nil {
		t.Fatalf("MarkSuccess returned error: %v", err)
	}
	if err := p.MarkSuccess(paidAt); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed on duplicate success, got %v", err)
	}
	if err := p.MarkFailed(); !errors.Is(err, ErrAlreadyProcessed) {
		t.Fatalf("expected ErrAlreadyProcessed on failure after success, got %v", err)
	}
	if p.Status != PaymentStatusSuccess {
		t.Fatalf("late failure regressed payment to %s", p.Status)
	}
}

func TestWithdrawalMarkPaidRequiresApproved(t *testing.T) {
	now := time.Now()
	wr := &WithdrawalRequest{Status: WithdrawalStatusPending}
	err := wr.MarkPaid("payout landed", now)
	var transitionErr *InvalidTransitionError
	if !errors.As(err, &transitionErr) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if transitionErr.From != WithdrawalStatusPending {
		t.Fatalf("error should report current status, got %q", transitionErr.From)
	}
	if wr.Status != WithdrawalStatusPending || wr.ProcessedDate != nil {
		t.Fatalf("rejected transition mutated the request")
	}
}

func TestWithdrawalApproveRetryAfterFailure(t *testing.T) {
	now := time.Now()
	wr := &WithdrawalRequest{Status: WithdrawalStatusPending}
	if err := wr.Approve("PAY-1", "first attempt", now); err != nil {
		t.Fatalf("Approve from pending: %v", err)
	}
	if err := wr.MarkFailed("transfer bounced", now); err != nil {
		t.Fatalf("MarkFailed from approved: %v", err)
	}
	if err := wr.Approve("PAY-2", "retry", now); err != nil {
		t.Fatalf("Approve from failed should be allowed: %v", err)
	}
	if wr.PaymentReference == nil || *wr.PaymentReference != "PAY-2" {
		t.Fatalf("retry did not replace the payment reference")
	}
}

func TestWithdrawalAmount(t *testing.T) {
	investments := []Investment{
		{Amount: dec("100"), ActualReturn: dec("130")},
		{Amount: dec("50"), ActualReturn: dec("55")},
	}
	if got := WithdrawalAmount(WithdrawalTypeFull, investments); !got.Equal(dec("185")) {
		t.Fatalf("full amount: expected 185, got %s", got)
	}
	if got := WithdrawalAmount(WithdrawalTypeInterest, investments); !got.Equal(dec("35")) {
		t.Fatalf("interest amount: expected 35, got %s", got)
	}
	if got := WithdrawalAmount(WithdrawalTypeReinvest, investments); !got.Equal(dec("35")) {
		t.Fatalf("reinvest amount: expected 35, got %s", got)
	}
}

func TestSlotCounterInvariant(t *testing.T) {
	pkg := &InvestmentPackage{TotalSlots: 2, AvailableSlots: 1}
	if err := pkg.takeSlot(); err != nil {
		t.Fatalf("takeSlot with availability: %v", err)
	}
	if err := pkg.takeSlot(); !errors.Is(err, ErrOutOfStock) {
		t.Fatalf("expected ErrOutOfStock at zero, got %v", err)
	}
	pkg.returnSlot()
	pkg.returnSlot()
	pkg.returnSlot()
	if pkg.AvailableSlots != pkg.TotalSlots {
		t.Fatalf("returnSlot exceeded capacity: %d/%d", pkg.AvailableSlots, pkg.TotalSlots)
	}
}

func TestWithdrawalNotesAppendOnly(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	wr := &WithdrawalRequest{Status: WithdrawalStatusPending}
	if err := wr.Reject("documents missing", now); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	wr.AddNote("user notified", now.Add(time.Hour))
	want := "2026-02-01 09:30 - documents missing\n2026-02-01 10:30 - user notified"
	if wr.AdminNotes != want {
		t.Fatalf("notes mismatch:\n got %q\nwant %q", wr.AdminNotes, want)
	}
}
