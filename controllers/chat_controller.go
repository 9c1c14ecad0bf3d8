package controllers

import (
	"net/http"

	"github.com/freelancehub/marketplace-api/config"
	"github.com/freelancehub/marketplace-api/services"
	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Action      string `json:"action"`
	OrderID     uint   `json:"order_id"`
	OtherUserID uint   `json:"other_user_id"`
	ChatID      uint   `json:"chat_id"`
	Message     string `json:"message"`
}

// GetChats handles GET /api/v1/chats?action=list|messages|order-messages
func GetChats(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	svc := services.NewChatService(config.GetDB())

	switch action(c, "", "list") {
	case "list":
		chats, err := svc.ListChats(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"chats":   chats,
		})
	case "messages":
		chatID, valid := parseID(c.Query("chat_id"))
		if !valid {
			respondValidation(c, "chat_id is required")
			return
		}
		messages, err := svc.ListMessages(c.Request.Context(), chatID, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"messages": messages,
		})
	case "order-messages":
		orderID, valid := parseID(c.Query("order_id"))
		if !valid {
			respondValidation(c, "order_id is required")
			return
		}
		order, messages, err := svc.ListOrderMessages(c.Request.Context(), orderID, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"messages": messages,
			"order": gin.H{
				"id":          order.ID,
				"title":       order.Title,
				"owner_id":    order.OwnerID,
				"executor_id": order.ExecutorID,
			},
		})
	default:
		respondValidation(c, "Unknown action")
	}
}

// PostChats handles POST /api/v1/chats?action=create|send|send-order
func PostChats(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Invalid request body")
		return
	}

	svc := services.NewChatService(config.GetDB())

	switch action(c, req.Action, "send") {
	case "create":
		if req.OrderID == 0 || req.OtherUserID == 0 {
			respondValidation(c, "order_id and other_user_id are required")
			return
		}
		chat, created, err := svc.Create(c.Request.Context(), req.OrderID, userID, req.OtherUserID)
		if err != nil {
			respondError(c, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{
			"success": true,
			"chat_id": chat.ID,
			"created": created,
		})
	case "send":
		if req.ChatID == 0 {
			respondValidation(c, "chat_id is required")
			return
		}
		message, err := svc.Send(c.Request.Context(), req.ChatID, userID, req.Message)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": message,
		})
	case "send-order":
		if req.OrderID == 0 {
			respondValidation(c, "order_id is required")
			return
		}
		message, err := svc.SendToOrder(c.Request.Context(), req.OrderID, userID, req.Message)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"success": true,
			"message": message,
		})
	default:
		respondValidation(c, "Unknown action")
	}
}
