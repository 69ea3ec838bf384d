package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	WithdrawalTypeInterest = "interest"
	WithdrawalTypeReinvest = "reinvest"
	WithdrawalTypeFull     = "full"

	WithdrawalStatusPending   = "pending"
	WithdrawalStatusApproved  = "approved"
	WithdrawalStatusRejected  = "rejected"
	WithdrawalStatusCompleted = "completed"
	WithdrawalStatusFailed    = "failed"
)

type WithdrawalRequest struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	UserID           uint            `gorm:"not null;index" json:"user_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Type             string          `gorm:"type:enum('interest','reinvest','full');not null" json:"type"`
	Status           string          `gorm:"type:enum('pending','approved','rejected','completed','failed');default:'pending'" json:"status"`
	RequestDate      time.Time       `json:"request_date"`
	ProcessedDate    *time.Time      `json:"processed_date,omitempty"`
	AdminNotes       string          `gorm:"type:text" json:"admin_notes"`
	PaymentReference *string         `gorm:"size:191" json:"payment_reference,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	// Relations
	Investments []Investment `gorm:"foreignKey:WithdrawalRequestID" json:"investments,omitempty"`
}

func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}

// ValidWithdrawalType reports whether t is one of the accepted request types.
func ValidWithdrawalType(t string) bool {
	switch t {
	case WithdrawalTypeInterest, WithdrawalTypeReinvest, WithdrawalTypeFull:
		return true
	}
	return false
}

// WithdrawalAmount computes the payout for the given type over the linked
// investments: full pays principal plus interest, interest and reinvest pay
// interest only.
func WithdrawalAmount(withdrawalType string, investments []Investment) decimal.Decimal {
	total := decimal.Zero
	for _, inv := range investments {
		if withdrawalType == WithdrawalTypeFull {
			total = total.Add(inv.ActualReturn)
		} else {
			total = total.Add(inv.ActualReturn.Sub(inv.Amount))
		}
	}
	return total.Round(2)
}

// appendNote adds a timestamped line to AdminNotes; earlier notes are never
// rewritten.
func (w *WithdrawalRequest) appendNote(note string, now time.Time) {
	if strings.TrimSpace(note) == "" {
		return
	}
	line := now.Format("2006-01-02 15:04") + " - " + note
	if w.AdminNotes == "" {
		w.AdminNotes = line
		return
	}
	w.AdminNotes = w.AdminNotes + "\n" + line
}

// AddNote appends a note without changing status.
func (w *WithdrawalRequest) AddNote(note string, now time.Time) {
	w.appendNote(note, now)
}

// Approve is legal from pending or failed; a failed payout can be retried.
func (w *WithdrawalRequest) Approve(reference, note string, now time.Time) error {
	if w.Status != WithdrawalStatusPending && w.Status != WithdrawalStatusFailed {
		return &InvalidTransitionError{Entity: "withdrawal request", From: w.Status, To: WithdrawalStatusApproved}
	}
	w.Status = WithdrawalStatusApproved
	w.ProcessedDate = &now
	w.PaymentReference = &reference
	w.appendNote(note, now)
	return nil
}

func (w *WithdrawalRequest) Reject(note string, now time.Time) error {
	if w.Status != WithdrawalStatusPending {
		return &InvalidTransitionError{Entity: "withdrawal request", From: w.Status, To: WithdrawalStatusRejected}
	}
	w.Status = WithdrawalStatusRejected
	w.ProcessedDate = &now
	w.appendNote(note, now)
	return nil
}

// MarkPaid confirms the payout landed; only approved requests qualify.
func (w *WithdrawalRequest) MarkPaid(note string, now time.Time) error {
	if w.Status != WithdrawalStatusApproved {
		return &InvalidTransitionError{Entity: "withdrawal request", From: w.Status, To: WithdrawalStatusCompleted}
	}
	w.Status = WithdrawalStatusCompleted
	w.ProcessedDate = &now
	w.appendNote(note, now)
	return nil
}

// MarkFailed records a failed transfer; the request can be re-approved.
func (w *WithdrawalRequest) MarkFailed(note string, now time.Time) error {
	if w.Status != WithdrawalStatusApproved {
		return &InvalidTransitionError{Entity: "withdrawal request", From: w.Status, To: WithdrawalStatusFailed}
	}
	w.Status = WithdrawalStatusFailed
	w.appendNote(note, now)
	return nil
}
