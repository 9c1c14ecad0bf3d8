package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/freelancehub/marketplace-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultFreelancerLimit = 20
	maxFreelancerLimit     = 100
	profileReviewLimit     = 20
	profileOrderLimit      = 10
	maxReviewCommentLength = 1000
)

// ProfileInput holds the editable freelancer profile fields
type ProfileInput struct {
	Bio        string
	HourlyRate *decimal.Decimal
	Skills     []string
}

// FreelancerProfile is the public profile page
type FreelancerProfile struct {
	Freelancer      models.Freelancer `json:"freelancer"`
	Reviews         []models.Review   `json:"reviews"`
	CompletedOrders []models.Order    `json:"completed_orders"`
}

// ProfileService manages freelancer profiles and reviews
type ProfileService struct {
	db     *gorm.DB
	images ImageService
}

// NewProfileService creates a profile service. images may be nil when avatars are disabled.
func NewProfileService(db *gorm.DB, images ImageService) *ProfileService {
	return &ProfileService{db: db, images: images}
}

// List returns freelancers by rating, then completed projects
func (s *ProfileService) List(ctx context.Context, limit int) ([]models.Freelancer, error) {
	if limit < 1 {
		limit = defaultFreelancerLimit
	}
	if limit > maxFreelancerLimit {
		limit = maxFreelancerLimit
	}

	var freelancers []models.Freelancer
	err := s.db.WithContext(ctx).Preload("User").
		Order("rating DESC").Order("completed_projects DESC").Order("id ASC").
		Limit(limit).
		Find(&freelancers).Error
	if err != nil {
		return nil, err
	}

	for i := range freelancers {
		s.resolveAvatar(ctx, &freelancers[i])
	}
	return freelancers, nil
}

// Profile returns a freelancer with recent reviews and completed work
func (s *ProfileService) Profile(ctx context.Context, freelancerID uint) (*FreelancerProfile, error) {
	db := s.db.WithContext(ctx)

	var freelancer models.Freelancer
	err := db.Preload("User").First(&freelancer, freelancerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound.WithMessage("Freelancer not found")
	}
	if err != nil {
		return nil, err
	}
	s.resolveAvatar(ctx, &freelancer)

	var reviews []models.Review
	err = db.Preload("Client").Preload("Order", func(tx *gorm.DB) *gorm.DB { return tx.Unscoped() }).
		Where("freelancer_id = ?", freelancer.UserID).
		Order("created_at DESC").Order("id DESC").
		Limit(profileReviewLimit).
		Find(&reviews).Error
	if err != nil {
		return nil, err
	}
	for i := range reviews {
		reviews[i].ClientName = reviews[i].Client.Name
		if reviews[i].Order != nil {
			reviews[i].OrderTitle = reviews[i].Order.Title
		}
	}

	var orders []models.Order
	err = db.Where("executor_id = ? AND status = ?", freelancer.UserID, models.OrderStatusCompleted).
		Order("created_at DESC").Order("id DESC").
		Limit(profileOrderLimit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	return &FreelancerProfile{Freelancer: freelancer, Reviews: reviews, CompletedOrders: orders}, nil
}

// Upsert creates or updates the caller's freelancer profile
func (s *ProfileService) Upsert(ctx context.Context, userID uint, in ProfileInput) (*models.Freelancer, error) {
	if in.HourlyRate != nil && in.HourlyRate.IsNegative() {
		return nil, ErrValidation.WithMessage("Hourly rate must not be negative")
	}

	skills := make([]string, 0, len(in.Skills))
	for _, skill := range in.Skills {
		if skill = strings.TrimSpace(skill); skill != "" {
			skills = append(skills, skill)
		}
	}

	var freelancer models.Freelancer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.User{}, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound.WithMessage("User not found")
			}
			return err
		}

		err := tx.Where("user_id = ?", userID).First(&freelancer).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			freelancer = models.Freelancer{UserID: userID}
		} else if err != nil {
			return err
		}

		freelancer.Bio = strings.TrimSpace(in.Bio)
		freelancer.HourlyRate = in.HourlyRate
		freelancer.Skills = skills
		if err := tx.Save(&freelancer).Error; err != nil {
			return err
		}
		return tx.Preload("User").First(&freelancer, freelancer.ID).Error
	})
	if err != nil {
		return nil, err
	}

	s.resolveAvatar(ctx, &freelancer)
	return &freelancer, nil
}

// UploadAvatar stores a PNG avatar for the caller's profile and replaces the old one
func (s *ProfileService) UploadAvatar(ctx context.Context, userID uint, fileHeader *multipart.FileHeader) (*models.Freelancer, error) {
	if s.images == nil {
		return nil, ErrValidation.WithMessage("Image storage is not configured")
	}

	db := s.db.WithContext(ctx)

	var freelancer models.Freelancer
	err := db.Where("user_id = ?", userID).First(&freelancer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound.WithMessage("Create a freelancer profile first")
	}
	if err != nil {
		return nil, err
	}

	key, err := s.images.UploadImage(ctx, fileHeader, AvatarPrefix)
	if err != nil {
		return nil, err
	}

	var previous string
	if freelancer.AvatarKey != nil {
		previous = *freelancer.AvatarKey
	}
	if err := db.Model(&models.Freelancer{}).Where("id = ?", freelancer.ID).Update("avatar_key", key).Error; err != nil {
		_ = s.images.DeleteImage(ctx, key)
		return nil, err
	}
	if previous != "" && previous != key {
		_ = s.images.DeleteImage(ctx, previous)
	}

	freelancer.AvatarKey = &key
	s.resolveAvatar(ctx, &freelancer)
	return &freelancer, nil
}

// CreateReview lets the client of a completed order rate its executor once.
// The executor's rating and review count are recomputed in the same transaction.
func (s *ProfileService) CreateReview(ctx context.Context, orderID, clientID uint, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrValidation.WithMessage("Rating must be between 1 and 5")
	}
	comment = strings.TrimSpace(comment)
	if len([]rune(comment)) > maxReviewCommentLength {
		return nil, ErrValidation.WithMessage("Comment must be at most 1000 characters")
	}

	var review models.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := findOrder(tx, orderID)
		if err != nil {
			return err
		}
		if order.OwnerID != clientID {
			return ErrForbidden.WithMessage("Only the order owner can leave a review")
		}
		if order.Status != models.OrderStatusCompleted || order.ExecutorID == nil {
			return ErrValidation.WithMessage("Only completed orders can be reviewed")
		}

		var count int64
		if err := tx.Model(&models.Review{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrConflict.WithMessage("This order has already been reviewed")
		}

		review = models.Review{
			OrderID:      orderID,
			FreelancerID: *order.ExecutorID,
			ClientID:     clientID,
			Rating:       rating,
			Comment:      comment,
		}
		if err := tx.Create(&review).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrConflict.WithMessage("This order has already been reviewed")
			}
			return err
		}
		review.OrderTitle = order.Title

		return recomputeRating(tx, *order.ExecutorID)
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func recomputeRating(tx *gorm.DB, userID uint) error {
	var stats struct {
		Total   int64
		Average float64
	}
	err := tx.Model(&models.Review{}).
		Select("COUNT(*) AS total, COALESCE(AVG(rating), 0) AS average").
		Where("freelancer_id = ?", userID).
		Scan(&stats).Error
	if err != nil {
		return err
	}

	var freelancer models.Freelancer
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&freelancer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		freelancer = models.Freelancer{UserID: userID, Skills: []string{}}
	} else if err != nil {
		return err
	}

	freelancer.Rating = decimal.NewFromFloat(stats.Average).Round(2).InexactFloat64()
	freelancer.TotalReviews = int(stats.Total)
	return tx.Save(&freelancer).Error
}

func (s *ProfileService) resolveAvatar(ctx context.Context, f *models.Freelancer) {
	if s.images == nil || f.AvatarKey == nil || *f.AvatarKey == "" {
		return
	}
	if url, err := s.images.GetImageURL(ctx, *f.AvatarKey); err == nil {
		f.AvatarURL = url
	}
}
