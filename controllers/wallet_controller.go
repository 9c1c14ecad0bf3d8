package controllers

import (
	"net/http"

	"github.com/freelancehub/marketplace-api/config"
	"github.com/freelancehub/marketplace-api/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type walletRequest struct {
	Action       string          `json:"action"`
	Amount       decimal.Decimal `json:"amount"`
	OrderID      *uint           `json:"order_id"`
	FreelancerID uint            `json:"freelancer_id"`
	Description  string          `json:"description"`
}

// GetWallet handles GET /api/v1/wallet?action=balance|transactions
func GetWallet(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	svc := services.NewWalletService(config.GetDB())

	switch action(c, "", "balance") {
	case "balance":
		balance, err := svc.Balance(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"balance": balance,
		})
	case "transactions":
		txs, err := svc.Transactions(c.Request.Context(), userID, queryInt(c, "limit", 50), c.Query("order") == "asc")
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"transactions": txs,
		})
	default:
		respondValidation(c, "Unknown action")
	}
}

// PostWallet handles POST /api/v1/wallet?action=deposit|payment
func PostWallet(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req walletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "amount must be a number")
		return
	}

	svc := services.NewWalletService(config.GetDB())

	switch action(c, req.Action, "") {
	case "deposit":
		balance, err := svc.Deposit(c.Request.Context(), userID, req.Amount)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"balance": balance,
		})
	case "payment":
		balance, err := svc.Pay(c.Request.Context(), services.PaymentInput{
			PayerID:     userID,
			PayeeID:     req.FreelancerID,
			Amount:      req.Amount,
			OrderID:     req.OrderID,
			Description: req.Description,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"balance": balance,
		})
	default:
		respondValidation(c, "action must be deposit or payment")
	}
}
