package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	TransactionTypeInvestment    = "investment"
	TransactionTypeRefund        = "refund"
	TransactionTypeWithdrawal    = "withdrawal"
	TransactionTypeReferralBonus = "referral_bonus"

	TransactionStatusPending   = "pending"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
)

// Transaction is the append-only ledger. Rows are written through
// AppendTransaction inside the same database transaction as the state
// change they record, and are never updated or deleted.
type Transaction struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	UserID           uint            `gorm:"not null;index" json:"user_id"`
	InvestmentID     *uint           `gorm:"index" json:"investment_id,omitempty"`
	Type             string          `gorm:"type:enum('investment','refund','withdrawal','referral_bonus');not null" json:"type"`
	Amount           decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Status           string          `gorm:"type:enum('pending','completed','failed');not null;default:'completed'" json:"status"`
	Description      string          `gorm:"type:text" json:"description"`
	PaymentMethod    *string         `gorm:"size:50" json:"payment_method,omitempty"`
	PaymentReference *string         `gorm:"size:191;index" json:"payment_reference,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// AppendTransaction writes a ledger entry. It is the only write path into
// the transactions table.
func AppendTransaction(tx *gorm.DB, entry *Transaction) error {
	if entry.Status == "" {
		entry.Status = TransactionStatusCompleted
	}
	return tx.Create(entry).Error
}
