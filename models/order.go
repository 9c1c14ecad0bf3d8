package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order statuses
const (
	OrderStatusOpen       = "open"
	OrderStatusInProgress = "in_progress"
	OrderStatusCompleted  = "completed"
)

// Order is a job posting created by a client
type Order struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	OwnerID     uint             `gorm:"not null;index" json:"owner_id"`
	Owner       User             `gorm:"foreignKey:OwnerID" json:"owner"`
	ExecutorID  *uint            `gorm:"index" json:"executor_id"` // set when a response is accepted
	Executor    *User            `gorm:"foreignKey:ExecutorID" json:"executor,omitempty"`
	Title       string           `gorm:"not null" json:"title"`
	Description string           `gorm:"type:text;not null" json:"description"`
	Category    string           `gorm:"not null;index" json:"category"`
	BudgetMin   *decimal.Decimal `gorm:"type:numeric(14,2)" json:"budget_min"`
	BudgetMax   *decimal.Decimal `gorm:"type:numeric(14,2)" json:"budget_max"`
	Deadline    *time.Time       `json:"deadline"`
	Status      string           `gorm:"not null;default:'open';index" json:"status"` // open, in_progress, completed
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}
