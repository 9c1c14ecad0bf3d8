package controllers

import (
	"net/http"

	"github.com/freelancehub/marketplace-api/config"
	"github.com/freelancehub/marketplace-api/models"
	"github.com/freelancehub/marketplace-api/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createResponseRequest struct {
	OrderID       uint             `json:"order_id" binding:"required"`
	Message       string           `json:"message"`
	ProposedPrice *decimal.Decimal `json:"proposed_price"`
}

type decideResponseRequest struct {
	ResponseID uint   `json:"response_id" binding:"required"`
	Action     string `json:"action"`
}

// ListResponses handles GET /api/v1/responses. With order_id it lists the bids on
// that order for its owner; otherwise the caller's sent and received bids.
func ListResponses(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	svc := services.NewResponseService(config.GetDB())

	var (
		responses []models.OrderResponse
		err       error
	)
	if raw := c.Query("order_id"); raw != "" {
		orderID, valid := parseID(raw)
		if !valid {
			respondValidation(c, "Invalid order_id")
			return
		}
		responses, err = svc.ListForOrder(c.Request.Context(), orderID, userID)
	} else {
		responses, err = svc.ListForUser(c.Request.Context(), userID)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"responses": responses,
	})
}

// CreateResponse handles POST /api/v1/responses
func CreateResponse(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req createResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "order_id is required")
		return
	}

	response, err := services.NewResponseService(config.GetDB()).
		Create(c.Request.Context(), req.OrderID, userID, req.Message, req.ProposedPrice)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"response": response,
	})
}

// UpdateResponse handles PUT /api/v1/responses with action accept or reject
func UpdateResponse(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req decideResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "response_id is required")
		return
	}

	svc := services.NewResponseService(config.GetDB())

	var (
		response *models.OrderResponse
		err      error
	)
	switch action(c, req.Action, "") {
	case "accept":
		response, err = svc.Accept(c.Request.Context(), req.ResponseID, userID)
	case "reject":
		response, err = svc.Reject(c.Request.Context(), req.ResponseID, userID)
	default:
		respondValidation(c, "action must be accept or reject")
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"response": response,
	})
}
