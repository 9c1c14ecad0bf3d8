package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet transaction types. Deposits and income are positive, payments negative.
const (
	TransactionDeposit = "deposit"
	TransactionPayment = "payment"
	TransactionIncome  = "income"
)

// WalletTransaction is one immutable balance-affecting event
type WalletTransaction struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	UserID         uint            `gorm:"not null;index" json:"user_id"`
	Type           string          `gorm:"type:varchar(20);not null" json:"type"`
	Amount         decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Description    string          `json:"description"`
	RelatedOrderID *uint           `gorm:"index" json:"related_order_id,omitempty"`
	RelatedUserID  *uint           `json:"related_user_id,omitempty"`
	RelatedUser    *User           `gorm:"foreignKey:RelatedUserID" json:"-"`
	RelatedName    string          `gorm:"-" json:"related_user_name,omitempty"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for the WalletTransaction model
func (WalletTransaction) TableName() string {
	return "wallet_transactions"
}
