package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/freelancehub/marketplace-api/models"
	"gorm.io/gorm"
)

// ChatSummary is one row of a user's chat list
type ChatSummary struct {
	ChatID        uint       `json:"chat_id"`
	OrderID       uint       `json:"order_id"`
	OrderTitle    string     `json:"order_title"`
	OtherUserID   uint       `json:"other_user_id"`
	OtherUserName string     `json:"other_user_name"`
	LastMessage   string     `json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_time"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ChatService manages order-scoped conversations
type ChatService struct {
	db *gorm.DB
}

// NewChatService creates a chat service on db
func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{db: db}
}

// Create finds or creates the chat between the order's owner and another participant.
// created is false when an existing chat was returned.
func (s *ChatService) Create(ctx context.Context, orderID, callerID, otherUserID uint) (chat *models.Chat, created bool, err error) {
	if otherUserID == 0 || otherUserID == callerID {
		return nil, false, ErrValidation.WithMessage("Chat participants must be two different users")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := findOrder(tx, orderID)
		if err != nil {
			return err
		}

		var freelancerID uint
		switch order.OwnerID {
		case callerID:
			freelancerID = otherUserID
		case otherUserID:
			freelancerID = callerID
		default:
			return ErrForbidden.WithMessage("Chats must include the order owner")
		}

		if err := tx.First(&models.User{}, freelancerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound.WithMessage("User not found")
			}
			return err
		}

		chat, created, err = findOrCreateChat(tx, order.ID, order.OwnerID, freelancerID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return chat, created, nil
}

// Send appends a message to a chat the sender participates in
func (s *ChatService) Send(ctx context.Context, chatID, senderID uint, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	var message models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat models.Chat
		err := tx.First(&chat, chatID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound.WithMessage("Chat not found")
		}
		if err != nil {
			return err
		}
		if !chat.HasParticipant(senderID) {
			return ErrForbidden.WithMessage("You are not a participant of this chat")
		}
		return appendMessage(tx, chat.ID, senderID, text, &message)
	})
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// SendToOrder posts into the chat between the order owner and its executor,
// creating the chat on first use.
func (s *ChatService) SendToOrder(ctx context.Context, orderID, senderID uint, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	var message models.Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := findOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.ExecutorID == nil {
			return ErrValidation.WithMessage("Order has no executor yet")
		}
		if senderID != order.OwnerID && senderID != *order.ExecutorID {
			return ErrForbidden.WithMessage("Only the order owner and executor can message on this order")
		}

		chat, _, err := findOrCreateChat(tx, order.ID, order.OwnerID, *order.ExecutorID)
		if err != nil {
			return err
		}
		return appendMessage(tx, chat.ID, senderID, text, &message)
	})
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// ListMessages returns the chat history oldest first
func (s *ChatService) ListMessages(ctx context.Context, chatID, callerID uint) ([]models.Message, error) {
	db := s.db.WithContext(ctx)

	var chat models.Chat
	err := db.First(&chat, chatID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound.WithMessage("Chat not found")
	}
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(callerID) {
		return nil, ErrForbidden.WithMessage("You are not a participant of this chat")
	}

	return chatMessages(db, chat.ID)
}

// ListOrderMessages returns the history of the chat between the order owner and its
// executor. Before a response is accepted only the owner may look, and sees nothing.
func (s *ChatService) ListOrderMessages(ctx context.Context, orderID, callerID uint) (*models.Order, []models.Message, error) {
	db := s.db.WithContext(ctx)

	order, err := findOrder(db, orderID)
	if err != nil {
		return nil, nil, err
	}
	isExecutor := order.ExecutorID != nil && *order.ExecutorID == callerID
	if callerID != order.OwnerID && !isExecutor {
		return nil, nil, ErrForbidden.WithMessage("Only the order owner and executor can read this chat")
	}
	if order.ExecutorID == nil {
		return order, []models.Message{}, nil
	}

	var chat models.Chat
	err = db.Where("order_id = ? AND client_id = ? AND freelancer_id = ?", order.ID, order.OwnerID, *order.ExecutorID).
		First(&chat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return order, []models.Message{}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	messages, err := chatMessages(db, chat.ID)
	if err != nil {
		return nil, nil, err
	}
	return order, messages, nil
}

// chatMessages loads a chat's history oldest first with senders
func chatMessages(db *gorm.DB, chatID uint) ([]models.Message, error) {
	messages := []models.Message{}
	err := db.Preload("Sender").
		Where("chat_id = ?", chatID).
		Order("created_at ASC").Order("id ASC").
		Find(&messages).Error
	return messages, err
}

// ListChats returns the user's chats ordered by last activity. Chats without
// messages come last, newest first.
func (s *ChatService) ListChats(ctx context.Context, userID uint) ([]ChatSummary, error) {
	db := s.db.WithContext(ctx)

	var chats []models.Chat
	err := db.Preload("Order").Preload("Client").Preload("Freelancer").
		Where("client_id = ? OR freelancer_id = ?", userID, userID).
		Find(&chats).Error
	if err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return []ChatSummary{}, nil
	}

	ids := make([]uint, len(chats))
	for i, chat := range chats {
		ids[i] = chat.ID
	}

	// Messages are append-only, so the highest id per chat is the latest
	var latest []models.Message
	err = db.Where("id IN (?)",
		db.Model(&models.Message{}).Select("MAX(id)").Where("chat_id IN ?", ids).Group("chat_id"),
	).Find(&latest).Error
	if err != nil {
		return nil, err
	}
	lastByChat := make(map[uint]models.Message, len(latest))
	for _, m := range latest {
		lastByChat[m.ChatID] = m
	}

	summaries := make([]ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summary := ChatSummary{
			ChatID:      chat.ID,
			OrderID:     chat.OrderID,
			OtherUserID: chat.OtherParticipant(userID),
			CreatedAt:   chat.CreatedAt,
		}
		if chat.Order != nil {
			summary.OrderTitle = chat.Order.Title
		}
		if chat.ClientID == userID {
			summary.OtherUserName = chat.Freelancer.Name
		} else {
			summary.OtherUserName = chat.Client.Name
		}
		if m, ok := lastByChat[chat.ID]; ok {
			at := m.CreatedAt
			summary.LastMessage = m.Text
			summary.LastMessageAt = &at
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		switch {
		case a.LastMessageAt != nil && b.LastMessageAt != nil:
			if a.LastMessageAt.Equal(*b.LastMessageAt) {
				return a.ChatID > b.ChatID
			}
			return a.LastMessageAt.After(*b.LastMessageAt)
		case a.LastMessageAt != nil:
			return true
		case b.LastMessageAt != nil:
			return false
		default:
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ChatID > b.ChatID
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
	})

	return summaries, nil
}

func findOrder(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := tx.First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound.WithMessage("Order not found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func findOrCreateChat(tx *gorm.DB, orderID, clientID, freelancerID uint) (*models.Chat, bool, error) {
	var chat models.Chat
	err := tx.Where("order_id = ? AND client_id = ? AND freelancer_id = ?", orderID, clientID, freelancerID).
		First(&chat).Error
	if err == nil {
		return &chat, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	chat = models.Chat{OrderID: orderID, ClientID: clientID, FreelancerID: freelancerID}
	created, err := createOrLoad(tx, &chat,
		"order_id = ? AND client_id = ? AND freelancer_id = ?", orderID, clientID, freelancerID)
	if err != nil {
		return nil, false, err
	}
	return &chat, created, nil
}

func appendMessage(tx *gorm.DB, chatID, senderID uint, text string, message *models.Message) error {
	*message = models.Message{ChatID: chatID, SenderID: senderID, Text: text}
	if err := tx.Create(message).Error; err != nil {
		return err
	}
	return tx.Preload("Sender").First(message, message.ID).Error
}
