package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/freelancehub/marketplace-api/config"
	"github.com/freelancehub/marketplace-api/models"
	"github.com/freelancehub/marketplace-api/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sendCodeRequest struct {
	Phone string `json:"phone" binding:"required,e164"`
}

type verifyCodeRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
	Name  string `json:"name"`
}

type verifyTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// Auth handles POST /api/v1/auth?action=register|login|send-code|verify-code|verify
func Auth(c *gin.Context) {
	switch c.Query("action") {
	case "register":
		register(c)
	case "login":
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidation(c, "Username and password are required")
			return
		}
		resolveAndRespond(c, services.PasswordCredential{Username: req.Username, Password: req.Password}, http.StatusOK)
	case "send-code":
		sendCode(c)
	case "verify-code":
		var req verifyCodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidation(c, "Phone and code are required")
			return
		}
		resolveAndRespond(c, services.PhoneCredential{Phone: req.Phone, Code: req.Code, Name: req.Name}, http.StatusOK)
	case "verify":
		var req verifyTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidation(c, "Token is required")
			return
		}
		resolveAndRespond(c, services.OAuthCredential{Token: req.Token}, http.StatusOK)
	default:
		respondValidation(c, "Unknown action")
	}
}

func register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Username and password are required")
		return
	}

	user, err := services.GetIdentityService().Register(c.Request.Context(), req.Username, req.Password, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	respondWithSession(c, user, http.StatusCreated)
}

func sendCode(c *gin.Context) {
	var req sendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidation(c, "Phone number must be in E.164 format, e.g. +15551234567")
		return
	}

	code, err := services.GetIdentityService().SendCode(c.Request.Context(), req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}

	response := gin.H{
		"success": true,
		"message": "Verification code sent",
	}
	if cfg := config.GetConfig(); cfg == nil || !cfg.IsProduction() {
		response["devCode"] = code
	}
	c.JSON(http.StatusOK, response)
}

func resolveAndRespond(c *gin.Context, cred services.Credential, status int) {
	user, err := services.GetIdentityService().Resolve(c.Request.Context(), cred)
	if err != nil {
		respondError(c, err)
		return
	}
	respondWithSession(c, user, status)
}

func respondWithSession(c *gin.Context, user *models.User, status int) {
	token, expiresAt, err := services.GetTokenService().Issue(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(status, gin.H{
		"success":    true,
		"user":       user,
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}

// Me handles GET /api/v1/auth/me
func Me(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var user models.User
	err := config.GetDB().WithContext(c.Request.Context()).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, errorBody("NOT_FOUND", "User not found"))
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user,
	})
}
