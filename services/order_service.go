package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/freelancehub/marketplace-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// OrderInput holds the mutable fields of an order. Nil fields are left untouched on update.
type OrderInput struct {
	Title       *string
	Description *string
	Category    *string
	BudgetMin   *decimal.Decimal
	BudgetMax   *decimal.Decimal
	Deadline    *time.Time
}

func (in OrderInput) empty() bool {
	return in.Title == nil && in.Description == nil && in.Category == nil &&
		in.BudgetMin == nil && in.BudgetMax == nil && in.Deadline == nil
}

// OrderFilter narrows the order listing
type OrderFilter struct {
	Category string
	OwnerID  uint
	Status   string
	Page     int
	Limit    int
}

// Pagination describes one page of a listing
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

// NewPagination normalizes page and limit and computes the page count
func NewPagination(page, limit int, total int64) Pagination {
	page, limit = normalizePage(page, limit)
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

// OrderService manages the order catalog
type OrderService struct {
	db *gorm.DB
}

// NewOrderService creates an order service on db
func NewOrderService(db *gorm.DB) *OrderService {
	return &OrderService{db: db}
}

// Create publishes a new open order owned by ownerID
func (s *OrderService) Create(ctx context.Context, ownerID uint, in OrderInput) (*models.Order, error) {
	order := models.Order{OwnerID: ownerID, Status: models.OrderStatusOpen}
	if err := applyOrderInput(&order, in); err != nil {
		return nil, err
	}
	if order.Title == "" || order.Description == "" || order.Category == "" {
		return nil, ErrValidation.WithMessage("Title, description and category are required")
	}

	db := s.db.WithContext(ctx)
	if err := db.Create(&order).Error; err != nil {
		return nil, err
	}
	if err := db.Preload("Owner").First(&order, order.ID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// List returns orders newest first with owner and executor loaded
func (s *OrderService) List(ctx context.Context, f OrderFilter) ([]models.Order, Pagination, error) {
	page, limit := normalizePage(f.Page, f.Limit)

	query := s.db.WithContext(ctx).Model(&models.Order{})
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.OwnerID != 0 {
		query = query.Where("owner_id = ?", f.OwnerID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}

	var orders []models.Order
	err := query.Preload("Owner").Preload("Executor").
		Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, Pagination{}, err
	}

	return orders, NewPagination(page, limit, total), nil
}

// Get loads a single order
func (s *OrderService) Get(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Owner").Preload("Executor").First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound.WithMessage("Order not found")
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Update applies a partial update. Only the owner may edit.
func (s *OrderService) Update(ctx context.Context, orderID, callerID uint, in OrderInput) (*models.Order, error) {
	if in.empty() {
		return nil, ErrValidation.WithMessage("No fields to update")
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadOwnedOrder(tx, orderID, callerID, &order); err != nil {
			return err
		}
		if err := applyOrderInput(&order, in); err != nil {
			return err
		}
		if order.Title == "" || order.Description == "" || order.Category == "" {
			return ErrValidation.WithMessage("Title, description and category must not be empty")
		}
		return tx.Model(&order).
			Select("title", "description", "category", "budget_min", "budget_max", "deadline").
			Updates(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

// Delete soft-deletes the order together with its responses and chats.
// Messages and wallet history are kept.
func (s *OrderService) Delete(ctx context.Context, orderID, callerID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := loadOwnedOrder(tx, orderID, callerID, &order); err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderResponse{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.Chat{}).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
}

func loadOwnedOrder(tx *gorm.DB, orderID, callerID uint, order *models.Order) error {
	err := tx.First(order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound.WithMessage("Order not found")
	}
	if err != nil {
		return err
	}
	if order.OwnerID != callerID {
		return ErrForbidden.WithMessage("Only the order owner can modify it")
	}
	return nil
}

func applyOrderInput(order *models.Order, in OrderInput) error {
	if in.Title != nil {
		order.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		order.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		order.Category = strings.TrimSpace(*in.Category)
	}
	if in.BudgetMin != nil {
		order.BudgetMin = in.BudgetMin
	}
	if in.BudgetMax != nil {
		order.BudgetMax = in.BudgetMax
	}
	if in.Deadline != nil {
		order.Deadline = in.Deadline
	}

	if order.BudgetMin != nil && order.BudgetMin.IsNegative() {
		return ErrValidation.WithMessage("Budget must not be negative")
	}
	if order.BudgetMax != nil && order.BudgetMax.IsNegative() {
		return ErrValidation.WithMessage("Budget must not be negative")
	}
	if order.BudgetMin != nil && order.BudgetMax != nil && order.BudgetMin.GreaterThan(*order.BudgetMax) {
		return ErrValidation.WithMessage("budget_min must not exceed budget_max")
	}
	return nil
}
