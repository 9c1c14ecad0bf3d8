package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/freelancehub/marketplace-api/metrics"
	"github.com/freelancehub/marketplace-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultTransactionLimit = 50
	maxTransactionLimit     = 200
)

// PaymentInput describes a transfer from payer to payee, optionally settling an order
type PaymentInput struct {
	PayerID     uint
	PayeeID     uint
	Amount      decimal.Decimal
	OrderID     *uint
	Description string
}

// WalletService is the balance ledger. Every balance change appends a WalletTransaction
// in the same database transaction.
type WalletService struct {
	db *gorm.DB
}

// NewWalletService creates a wallet service on db
func NewWalletService(db *gorm.DB) *WalletService {
	return &WalletService{db: db}
}

// Balance returns the user's current balance
func (s *WalletService) Balance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("id", "balance").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, ErrNotFound.WithMessage("User not found")
	}
	if err != nil {
		return decimal.Zero, err
	}
	return user.Balance, nil
}

// Deposit credits amount to the user and returns the new balance
func (s *WalletService) Deposit(ctx context.Context, userID uint, amount decimal.Decimal) (decimal.Decimal, error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	var balance decimal.Decimal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users, err := lockUsers(tx, userID)
		if err != nil {
			return err
		}
		user := users[userID]

		balance = user.Balance.Add(amount)
		if err := tx.Model(user).Update("balance", balance).Error; err != nil {
			return err
		}
		return tx.Create(&models.WalletTransaction{
			UserID:      userID,
			Type:        models.TransactionDeposit,
			Amount:      amount,
			Description: "Balance top-up",
		}).Error
	})
	if err != nil {
		return decimal.Zero, err
	}

	metrics.RecordWalletOperation(models.TransactionDeposit)
	return balance, nil
}

// Pay moves funds from payer to payee and returns the payer's new balance.
// When an order is given it must be in progress and owned by the payer; it is
// completed in the same transaction.
func (s *WalletService) Pay(ctx context.Context, in PaymentInput) (decimal.Decimal, error) {
	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	var balance decimal.Decimal
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payeeID := in.PayeeID

		var order *models.Order
		if in.OrderID != nil {
			order = &models.Order{}
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(order, *in.OrderID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound.WithMessage("Order not found")
			}
			if err != nil {
				return err
			}
			if order.OwnerID != in.PayerID {
				return ErrForbidden.WithMessage("Only the order owner can pay for it")
			}
			if order.Status != models.OrderStatusInProgress || order.ExecutorID == nil {
				return ErrConflict.WithMessage("Order is not in progress")
			}
			if payeeID == 0 {
				payeeID = *order.ExecutorID
			}
			if payeeID != *order.ExecutorID {
				return ErrValidation.WithMessage("Payment recipient must be the order executor")
			}
		}

		if payeeID == 0 {
			return ErrValidation.WithMessage("Recipient is required")
		}
		if payeeID == in.PayerID {
			return ErrValidation.WithMessage("Cannot pay yourself")
		}

		users, err := lockUsers(tx, in.PayerID, payeeID)
		if err != nil {
			return err
		}
		payer, payee := users[in.PayerID], users[payeeID]

		if payer.Balance.LessThan(amount) {
			return ErrInsufficientFunds
		}

		balance = payer.Balance.Sub(amount)
		if err := tx.Model(payer).Update("balance", balance).Error; err != nil {
			return err
		}
		if err := tx.Model(payee).Update("balance", payee.Balance.Add(amount)).Error; err != nil {
			return err
		}

		description := in.Description
		if description == "" && order != nil {
			description = fmt.Sprintf("Payment for order: %s", order.Title)
		}

		payerID := in.PayerID
		ledger := []models.WalletTransaction{
			{
				UserID:         payerID,
				Type:           models.TransactionPayment,
				Amount:         amount.Neg(),
				Description:    description,
				RelatedOrderID: in.OrderID,
				RelatedUserID:  &payeeID,
			},
			{
				UserID:         payeeID,
				Type:           models.TransactionIncome,
				Amount:         amount,
				Description:    description,
				RelatedOrderID: in.OrderID,
				RelatedUserID:  &payerID,
			},
		}
		if err := tx.Create(&ledger).Error; err != nil {
			return err
		}

		if order == nil {
			return nil
		}
		if err := tx.Model(order).Update("status", models.OrderStatusCompleted).Error; err != nil {
			return err
		}
		return incrementCompletedProjects(tx, payeeID)
	})
	if err != nil {
		return decimal.Zero, err
	}

	metrics.RecordWalletOperation(models.TransactionPayment)
	return balance, nil
}

// Transactions returns the user's ledger, newest first unless ascending is set
func (s *WalletService) Transactions(ctx context.Context, userID uint, limit int, ascending bool) ([]models.WalletTransaction, error) {
	if limit < 1 {
		limit = defaultTransactionLimit
	}
	if limit > maxTransactionLimit {
		limit = maxTransactionLimit
	}

	direction := "DESC"
	if ascending {
		direction = "ASC"
	}

	var txs []models.WalletTransaction
	err := s.db.WithContext(ctx).Preload("RelatedUser").
		Where("user_id = ?", userID).
		Order("created_at " + direction).Order("id " + direction).
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	for i := range txs {
		if txs[i].RelatedUser != nil {
			txs[i].RelatedName = txs[i].RelatedUser.Name
		}
	}
	return txs, nil
}

// lockUsers loads and row-locks the given users in ascending id order so that
// concurrent transfers between the same pair cannot deadlock.
func lockUsers(tx *gorm.DB, ids ...uint) (map[uint]*models.User, error) {
	var users []models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]*models.User, len(users))
	for i := range users {
		byID[users[i].ID] = &users[i]
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, ErrNotFound.WithMessage("User not found")
		}
	}
	return byID, nil
}

func incrementCompletedProjects(tx *gorm.DB, userID uint) error {
	result := tx.Model(&models.Freelancer{}).
		Where("user_id = ?", userID).
		UpdateColumn("completed_projects", gorm.Expr("completed_projects + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	return tx.Create(&models.Freelancer{UserID: userID, Skills: []string{}, CompletedProjects: 1}).Error
}
