package models

import (
	"time"

	"gorm.io/gorm"
)

// Chat is a thread between an order's client and one freelancer
type Chat struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	OrderID      uint           `gorm:"not null;uniqueIndex:idx_chat_participants" json:"order_id"`
	Order        *Order         `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	ClientID     uint           `gorm:"not null;uniqueIndex:idx_chat_participants;index" json:"client_id"`
	Client       User           `gorm:"foreignKey:ClientID" json:"-"`
	FreelancerID uint           `gorm:"not null;uniqueIndex:idx_chat_participants;index" json:"freelancer_id"`
	Freelancer   User           `gorm:"foreignKey:FreelancerID" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Chat model
func (Chat) TableName() string {
	return "chats"
}

// HasParticipant reports whether userID belongs to the chat
func (c Chat) HasParticipant(userID uint) bool {
	return c.ClientID == userID || c.FreelancerID == userID
}

// OtherParticipant returns the participant that is not userID
func (c Chat) OtherParticipant(userID uint) uint {
	if c.ClientID == userID {
		return c.FreelancerID
	}
	return c.ClientID
}

// Message is an append-only chat entry
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ChatID    uint      `gorm:"not null;index" json:"chat_id"`
	SenderID  uint      `gorm:"not null;index" json:"sender_id"`
	Sender    User      `gorm:"foreignKey:SenderID" json:"sender"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for the Message model
func (Message) TableName() string {
	return "messages"
}
