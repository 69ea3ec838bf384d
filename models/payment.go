package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

type Payment struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	UserID           uint            `gorm:"not null;index" json:"user_id"`
	InvestmentID     *uint           `gorm:"index" json:"investment_id,omitempty"`
	Amount           decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency         string          `gorm:"size:3;default:'NGN'" json:"currency"`
	Status           string          `gorm:"type:enum('pending','success','failed');default:'pending'" json:"status"`
	Reference        string          `gorm:"type:varchar(191);not null;uniqueIndex" json:"reference"`
	AccessCode       *string         `gorm:"size:191" json:"access_code,omitempty"`
	AuthorizationURL *string         `gorm:"size:255" json:"authorization_url,omitempty"`
	Channel          *string         `gorm:"size:50" json:"channel,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	Metadata         *string         `gorm:"type:json" json:"metadata,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// MarkSuccess records a confirmed charge. A second success for the same
// payment is a duplicate notification, reported as ErrAlreadyProcessed so
// the caller can acknowledge without re-crediting.
func (p *Payment) MarkSuccess(paidAt time.Time) error {
	if p.Status == PaymentStatusSuccess {
		return ErrAlreadyProcessed
	}
	p.Status = PaymentStatusSuccess
	p.PaidAt = &paidAt
	return nil
}

// MarkFailed records a failed charge. A failure event arriving after the
// payment already succeeded never regresses the status.
func (p *Payment) MarkFailed() error {
	if p.Status == PaymentStatusSuccess {
		return ErrAlreadyProcessed
	}
	p.Status = PaymentStatusFailed
	return nil
}
