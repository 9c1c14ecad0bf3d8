package services

import (
	"context"
	"errors"
	"strings"

	"github.com/freelancehub/marketplace-api/metrics"
	"github.com/freelancehub/marketplace-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ResponseService manages freelancer bids and their acceptance
type ResponseService struct {
	db *gorm.DB
}

// NewResponseService creates a response service on db
func NewResponseService(db *gorm.DB) *ResponseService {
	return &ResponseService{db: db}
}

// Create records a pending bid by freelancerID on an open order
func (s *ResponseService) Create(ctx context.Context, orderID, freelancerID uint, message string, price *decimal.Decimal) (*models.OrderResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage.WithMessage("Response message must not be empty")
	}
	if price != nil && price.IsNegative() {
		return nil, ErrValidation.WithMessage("Proposed price must not be negative")
	}

	response := models.OrderResponse{
		OrderID:       orderID,
		FreelancerID:  freelancerID,
		Message:       message,
		ProposedPrice: price,
		Status:        models.ResponseStatusPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		err := tx.First(&order, orderID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound.WithMessage("Order not found")
		}
		if err != nil {
			return err
		}
		if order.Status != models.OrderStatusOpen {
			return ErrOrderNotOpen.WithMessage("Order is no longer accepting responses")
		}
		if order.OwnerID == freelancerID {
			return ErrValidation.WithMessage("You cannot respond to your own order")
		}

		var count int64
		if err := tx.Model(&models.OrderResponse{}).
			Where("order_id = ? AND freelancer_id = ?", orderID, freelancerID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyResponded
		}

		if err := tx.Create(&response).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyResponded
			}
			return err
		}
		return tx.Preload("Freelancer").First(&response, response.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &response, nil
}

// ListForOrder returns the bids on an order. Only the order owner may see them.
func (s *ResponseService) ListForOrder(ctx context.Context, orderID, callerID uint) ([]models.OrderResponse, error) {
	db := s.db.WithContext(ctx)

	var order models.Order
	err := db.First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound.WithMessage("Order not found")
	}
	if err != nil {
		return nil, err
	}
	if order.OwnerID != callerID {
		return nil, ErrForbidden.WithMessage("Only the order owner can view its responses")
	}

	var responses []models.OrderResponse
	err = db.Preload("Freelancer").
		Where("order_id = ?", orderID).
		Order("created_at DESC").Order("id DESC").
		Find(&responses).Error
	return responses, err
}

// ListForUser returns bids the user made or received, newest first
func (s *ResponseService) ListForUser(ctx context.Context, userID uint) ([]models.OrderResponse, error) {
	var responses []models.OrderResponse
	err := s.db.WithContext(ctx).
		Preload("Freelancer").Preload("Order").
		Joins("JOIN orders ON orders.id = order_responses.order_id AND orders.deleted_at IS NULL").
		Where("order_responses.freelancer_id = ? OR orders.owner_id = ?", userID, userID).
		Order("order_responses.created_at DESC").Order("order_responses.id DESC").
		Find(&responses).Error
	return responses, err
}

// Accept marks the response accepted, assigns its freelancer as the executor and
// rejects every other pending response on the order.
func (s *ResponseService) Accept(ctx context.Context, responseID, callerID uint) (*models.OrderResponse, error) {
	return s.decide(ctx, responseID, callerID, models.ResponseStatusAccepted)
}

// Reject marks the response rejected
func (s *ResponseService) Reject(ctx context.Context, responseID, callerID uint) (*models.OrderResponse, error) {
	return s.decide(ctx, responseID, callerID, models.ResponseStatusRejected)
}

func (s *ResponseService) decide(ctx context.Context, responseID, callerID uint, status string) (*models.OrderResponse, error) {
	var response models.OrderResponse

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&response, responseID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound.WithMessage("Response not found")
		}
		if err != nil {
			return err
		}

		// The order row lock serializes concurrent decisions on the same order
		var order models.Order
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, response.OrderID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound.WithMessage("Order not found")
		}
		if err != nil {
			return err
		}
		if order.OwnerID != callerID {
			return ErrForbidden.WithMessage("Only the order owner can decide on responses")
		}

		if err := tx.First(&response, responseID).Error; err != nil {
			return err
		}
		if response.Status != models.ResponseStatusPending {
			return ErrInvalidTransition
		}

		if status == models.ResponseStatusAccepted {
			if order.Status != models.OrderStatusOpen {
				return ErrOrderNotOpen.WithMessage("Order already has an executor")
			}
			if err := tx.Model(&order).Updates(map[string]interface{}{
				"status":      models.OrderStatusInProgress,
				"executor_id": response.FreelancerID,
			}).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.OrderResponse{}).
				Where("order_id = ? AND id <> ? AND status = ?", order.ID, response.ID, models.ResponseStatusPending).
				Update("status", models.ResponseStatusRejected).Error; err != nil {
				return err
			}
		}

		if err := tx.Model(&response).Update("status", status).Error; err != nil {
			return err
		}
		return tx.Preload("Freelancer").First(&response, response.ID).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordResponseDecision(status)
	return &response, nil
}
