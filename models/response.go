package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Response statuses. Accepted and rejected are terminal.
const (
	ResponseStatusPending  = "pending"
	ResponseStatusAccepted = "accepted"
	ResponseStatusRejected = "rejected"
)

// OrderResponse is a freelancer's bid on an order
type OrderResponse struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	OrderID       uint             `gorm:"not null;uniqueIndex:idx_response_order_freelancer" json:"order_id"`
	Order         *Order           `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	FreelancerID  uint             `gorm:"not null;uniqueIndex:idx_response_order_freelancer;index" json:"freelancer_id"`
	Freelancer    User             `gorm:"foreignKey:FreelancerID" json:"freelancer"`
	Message       string           `gorm:"type:text;not null" json:"message"`
	ProposedPrice *decimal.Decimal `gorm:"type:numeric(14,2)" json:"proposed_price"`
	Status        string           `gorm:"not null;default:'pending';index" json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	DeletedAt     gorm.DeletedAt   `gorm:"index" json:"-"`
}

// TableName specifies the table name for the OrderResponse model
func (OrderResponse) TableName() string {
	return "order_responses"
}
