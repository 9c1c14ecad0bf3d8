package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/freelancehub/marketplace-api/config"
	"github.com/freelancehub/marketplace-api/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// OrderRequest represents the body for creating or updating an order
type OrderRequest struct {
	OrderID     uint             `json:"order_id"`
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	Category    *string          `json:"category"`
	BudgetMin   *decimal.Decimal `json:"budget_min"`
	BudgetMax   *decimal.Decimal `json:"budget_max"`
	Deadline    *string          `json:"deadline"`
}

func (r OrderRequest) toInput() (services.OrderInput, bool) {
	in := services.OrderInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		BudgetMin:   r.BudgetMin,
		BudgetMax:   r.BudgetMax,
	}
	if r.Deadline != nil && strings.TrimSpace(*r.Deadline) != "" {
		deadline, ok := parseDeadline(*r.Deadline)
		if !ok {
			return in, false
		}
		in.Deadline = &deadline
	}
	return in, true
}

func parseDeadline(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ListOrders handles GET /api/v1/orders
func ListOrders(c *gin.Context) {
	filter := services.OrderFilter{
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Page:     queryInt(c, "page", 1),
		Limit:    queryInt(c, "limit", 10),
	}
	if raw := c.Query("user_id"); raw != "" {
		ownerID, ok := parseID(raw)
		if !ok {
			respondValidation(c, "user_id must be a positive integer")
			return
		}
		filter.OwnerID = ownerID
	}

	orders, pagination, err := services.NewOrderService(config.GetDB()).List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"orders":     orders,
		"pagination": pagination,
	})
}

// GetOrder handles GET /api/v1/orders/:id
func GetOrder(c *gin.Context) {
	orderID, ok := parseID(c.Param("id"))
	if !ok {
		respondValidation(c, "Invalid order ID")
		return
	}

	order, err := services.NewOrderService(config.GetDB()).Get(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   order,
	})
}

// CreateOrder handles POST /api/v1/orders
func CreateOrder(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request body")
		return
	}
	in, ok := req.toInput()
	if !ok {
		respondValidation(c, "deadline must be a date (YYYY-MM-DD) or RFC3339 timestamp")
		return
	}

	order, err := services.NewOrderService(config.GetDB()).Create(c.Request.Context(), userID, in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"order":   order,
	})
}

// UpdateOrder handles PUT /api/v1/orders/:id and PUT /api/v1/orders with order_id in the body
func UpdateOrder(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request body")
		return
	}

	orderID := req.OrderID
	if raw := c.Param("id"); raw != "" {
		orderID, ok = parseID(raw)
	} else {
		ok = orderID != 0
	}
	if !ok {
		respondValidation(c, "order_id is required")
		return
	}

	in, ok := req.toInput()
	if !ok {
		respondValidation(c, "deadline must be a date (YYYY-MM-DD) or RFC3339 timestamp")
		return
	}

	order, err := services.NewOrderService(config.GetDB()).Update(c.Request.Context(), orderID, userID, in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   order,
	})
}

// DeleteOrder handles DELETE /api/v1/orders/:id and DELETE /api/v1/orders?order_id=
func DeleteOrder(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	raw := c.Param("id")
	if raw == "" {
		raw = c.Query("order_id")
	}
	orderID, ok := parseID(raw)
	if !ok {
		respondValidation(c, "order_id is required")
		return
	}

	if err := services.NewOrderService(config.GetDB()).Delete(c.Request.Context(), orderID, userID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Order deleted",
	})
}
