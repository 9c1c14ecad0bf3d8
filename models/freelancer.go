package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Freelancer is the public profile of a user offering services.
// Rating, TotalReviews and CompletedProjects are maintained by the review and payment flows.
type Freelancer struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	UserID            uint             `gorm:"not null;uniqueIndex" json:"user_id"`
	User              User             `gorm:"foreignKey:UserID" json:"user"`
	Bio               string           `gorm:"type:text" json:"bio"`
	HourlyRate        *decimal.Decimal `gorm:"type:numeric(14,2)" json:"hourly_rate"`
	AvatarKey         *string          `json:"-"`
	AvatarURL         string           `gorm:"-" json:"avatar_url,omitempty"`
	Skills            []string         `gorm:"serializer:json;type:text" json:"skills"`
	Rating            float64          `gorm:"not null;default:0" json:"rating"`
	TotalReviews      int              `gorm:"not null;default:0" json:"total_reviews"`
	CompletedProjects int              `gorm:"not null;default:0" json:"completed_projects"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// TableName specifies the table name for the Freelancer model
func (Freelancer) TableName() string {
	return "freelancers"
}

// Review is a client's rating of a completed order
type Review struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OrderID      uint      `gorm:"not null;uniqueIndex" json:"order_id"`
	Order        *Order    `gorm:"foreignKey:OrderID" json:"-"`
	FreelancerID uint      `gorm:"not null;index" json:"freelancer_id"` // user id of the executor
	ClientID     uint      `gorm:"not null;index" json:"client_id"`
	Client       User      `gorm:"foreignKey:ClientID" json:"-"`
	Rating       int       `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comment      string    `gorm:"type:text" json:"comment"`
	ClientName   string    `gorm:"-" json:"client_name"`
	OrderTitle   string    `gorm:"-" json:"order_title,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName specifies the table name for the Review model
func (Review) TableName() string {
	return "reviews"
}
