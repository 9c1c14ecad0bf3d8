package controllers

import (
	"net/http"

	"github.com/freelancehub/marketplace-api/config"
	"github.com/freelancehub/marketplace-api/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type profileRequest struct {
	Bio        string           `json:"bio"`
	HourlyRate *decimal.Decimal `json:"hourly_rate"`
	Skills     []string         `json:"skills"`
}

type reviewRequest struct {
	OrderID uint   `json:"order_id" binding:"required"`
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

func profileService() *services.ProfileService {
	return services.NewProfileService(config.GetDB(), services.GetImageService())
}

// GetFreelancers handles GET /api/v1/freelancers?action=list|profile
func GetFreelancers(c *gin.Context) {
	switch action(c, "", "list") {
	case "list":
		freelancers, err := profileService().List(c.Request.Context(), queryInt(c, "limit", 20))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":     true,
			"freelancers": freelancers,
		})
	case "profile":
		freelancerID, ok := parseID(c.Query("freelancer_id"))
		if !ok {
			respondValidation(c, "freelancer_id is required")
			return
		}
		profile, err := profileService().Profile(c.Request.Context(), freelancerID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":          true,
			"freelancer":       profile.Freelancer,
			"reviews":          profile.Reviews,
			"completed_orders": profile.CompletedOrders,
		})
	default:
		respondValidation(c, "Unknown action")
	}
}

// UpsertFreelancer handles POST /api/v1/freelancers
func UpsertFreelancer(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request body")
		return
	}

	freelancer, err := profileService().Upsert(c.Request.Context(), userID, services.ProfileInput{
		Bio:        req.Bio,
		HourlyRate: req.HourlyRate,
		Skills:     req.Skills,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"freelancer_id": freelancer.ID,
		"freelancer":    freelancer,
	})
}

// UploadAvatar handles POST /api/v1/freelancers/avatar (multipart field "avatar")
func UploadAvatar(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		respondValidation(c, "avatar file is required")
		return
	}

	freelancer, err := profileService().UploadAvatar(c.Request.Context(), userID, fileHeader)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"freelancer": freelancer,
	})
}

// CreateReview handles POST /api/v1/reviews
func CreateReview(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "order_id and rating are required")
		return
	}

	review, err := profileService().CreateReview(c.Request.Context(), req.OrderID, userID, req.Rating, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"review":  review,
	})
}
