package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a marketplace account. The same row acts as client and freelancer.
// Exactly one of Username, Phone or GoogleSub identifies the registration path.
type User struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Username     *string         `gorm:"uniqueIndex" json:"username,omitempty"`
	Phone        *string         `gorm:"uniqueIndex" json:"phone,omitempty"`
	GoogleSub    *string         `gorm:"uniqueIndex" json:"-"` // OAuth provider subject
	Email        string          `json:"email,omitempty"`
	Name         string          `gorm:"not null" json:"name"`
	AvatarURL    string          `json:"avatar,omitempty"`
	PasswordHash string          `json:"-"`
	Balance      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"-"` // mutated only by the wallet ledger
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
