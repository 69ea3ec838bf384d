package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	InvestmentStatusPending   = "pending"
	InvestmentStatusActive    = "active"
	InvestmentStatusCompleted = "completed"
	InvestmentStatusCancelled = "cancelled"
)

type Investment struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	UserID              uint            `gorm:"not null;index" json:"user_id"`
	PackageID           uint            `gorm:"not null;index" json:"package_id"`
	Amount              decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	ActualReturn        decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0.00" json:"actual_return"`
	Status              string          `gorm:"type:enum('pending','active','completed','cancelled');default:'pending'" json:"status"`
	StartDate           *time.Time      `json:"start_date,omitempty"`
	EndDate             *time.Time      `json:"end_date,omitempty"`
	CompletedDate       *time.Time      `json:"completed_date,omitempty"`
	WithdrawalRequestID *uint           `gorm:"index" json:"withdrawal_request_id,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`

	// Relations
	Package *InvestmentPackage `gorm:"foreignKey:PackageID" json:"package,omitempty"`
}

func (Investment) TableName() string {
	return "investments"
}

// Activate moves a pending investment to active. The payout is fixed here
// from the package terms at confirmation time, so later package edits never
// change what an investor is owed.
func (inv *Investment) Activate(pkg *InvestmentPackage, now time.Time) error {
	if inv.Status != InvestmentStatusPending {
		return &InvalidTransitionError{Entity: "investment", From: inv.Status, To: InvestmentStatusActive}
	}
	end := now.AddDate(0, 0, pkg.DurationDays)
	inv.Status = InvestmentStatusActive
	inv.StartDate = &now
	inv.EndDate = &end
	profit := inv.Amount.Mul(pkg.ReturnRate).Div(decimal.NewFromInt(100))
	inv.ActualReturn = inv.Amount.Add(profit).Round(2)
	return nil
}

// Complete moves an active investment to completed once its end date has
// passed.
func (inv *Investment) Complete(now time.Time) error {
	if inv.Status != InvestmentStatusActive {
		return &InvalidTransitionError{Entity: "investment", From: inv.Status, To: InvestmentStatusCompleted}
	}
	if inv.EndDate == nil || now.Before(*inv.EndDate) {
		return ErrNotMatured
	}
	inv.Status = InvestmentStatusCompleted
	inv.CompletedDate = &now
	return nil
}

// Cancel is only legal while no payment has been confirmed.
func (inv *Investment) Cancel() error {
	if inv.Status != InvestmentStatusPending {
		return &InvalidTransitionError{Entity: "investment", From: inv.Status, To: InvestmentStatusCancelled}
	}
	inv.Status = InvestmentStatusCancelled
	return nil
}
