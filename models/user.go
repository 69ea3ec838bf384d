package models

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Email       string    `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Password    string    `gorm:"size:255;not null" json:"-"`
	Phone       *string   `gorm:"size:20" json:"phone,omitempty"`
	Role        string    `gorm:"type:enum('user','admin');default:'user'" json:"role"`
	KYCComplete bool      `gorm:"column:kyc_complete;default:false" json:"kyc_complete"`
	Status      string    `gorm:"type:enum('active','suspended');default:'active'" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"-"`
}

func (User) TableName() string {
	return "users"
}
