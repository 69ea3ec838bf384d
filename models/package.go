package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	PackageCategoryDirect  = "direct"
	PackageCategoryStorage = "storage"

	PackageStatusActive   = "active"
	PackageStatusInactive = "inactive"
)

// InvestmentPackage is a time-bound plan with a fixed number of slots.
// Storage plans are packages whose slots are physical storage units; the
// engine treats both categories identically.
type InvestmentPackage struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Name           string          `gorm:"size:150;not null" json:"name"`
	Category       string          `gorm:"type:enum('direct','storage');default:'direct'" json:"category"`
	Description    string          `gorm:"type:text" json:"description"`
	MinAmount      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"min_amount"`
	MaxAmount      decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"max_amount"`
	ReturnRate     decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"return_rate"`
	DurationDays   int             `gorm:"not null" json:"duration_days"`
	TotalSlots     int             `gorm:"not null" json:"total_slots"`
	AvailableSlots int             `gorm:"not null" json:"available_slots"`
	Unit           string          `gorm:"size:30" json:"unit,omitempty"`
	Status         string          `gorm:"type:enum('active','inactive');default:'active'" json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func (InvestmentPackage) TableName() string {
	return "investment_packages"
}

// takeSlot decrements the in-memory counter. Callers must hold the row lock.
func (p *InvestmentPackage) takeSlot() error {
	if p.AvailableSlots <= 0 {
		return ErrOutOfStock
	}
	p.AvailableSlots--
	return nil
}

// returnSlot increments the counter, capped at TotalSlots so duplicate
// releases can never push availability past capacity.
func (p *InvestmentPackage) returnSlot() {
	if p.AvailableSlots < p.TotalSlots {
		p.AvailableSlots++
	}
}

// CommitSlot consumes one slot of the package inside tx. The row is locked
// for the remainder of the transaction, so concurrent confirmations on the
// last slot serialize and the loser gets ErrOutOfStock.
func CommitSlot(tx *gorm.DB, packageID uint) error {
	var pkg InvestmentPackage
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&pkg, packageID).Error; err != nil {
		return err
	}
	if err := pkg.takeSlot(); err != nil {
		return err
	}
	return tx.Model(&InvestmentPackage{}).Where("id = ?", pkg.ID).
		Update("available_slots", pkg.AvailableSlots).Error
}

// ResizeSlots changes a package's capacity inside tx. The sold count is
// read under the row lock and preserved: available_slots becomes
// newTotal - sold, so a confirmation committing a slot concurrently is
// never erased. Shrinking below the sold count returns ErrSlotsBelowSold.
func ResizeSlots(tx *gorm.DB, packageID uint, newTotal int) (*InvestmentPackage, error) {
	var pkg InvestmentPackage
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&pkg, packageID).Error; err != nil {
		return nil, err
	}
	sold := pkg.TotalSlots - pkg.AvailableSlots
	if newTotal < sold {
		return nil, ErrSlotsBelowSold
	}
	pkg.TotalSlots = newTotal
	pkg.AvailableSlots = newTotal - sold
	if err := tx.Model(&InvestmentPackage{}).Where("id = ?", pkg.ID).Updates(map[string]interface{}{
		"total_slots":     pkg.TotalSlots,
		"available_slots": pkg.AvailableSlots,
	}).Error; err != nil {
		return nil, err
	}
	return &pkg, nil
}

// ReleaseSlot returns one slot to the package inside tx.
func ReleaseSlot(tx *gorm.DB, packageID uint) error {
	var pkg InvestmentPackage
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&pkg, packageID).Error; err != nil {
		return err
	}
	pkg.returnSlot()
	return tx.Model(&InvestmentPackage{}).Where("id = ?", pkg.ID).
		Update("available_slots", pkg.AvailableSlots).Error
}
