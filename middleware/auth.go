package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/freelancehub/marketplace-api/config"
	"github.com/freelancehub/marketplace-api/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserIDHeader is the legacy development header carrying a raw user id
const UserIDHeader = "X-User-Id"

const (
	userIDKey = "user_id"
	claimsKey = "validated_claims"
)

// EnsureValidToken authenticates the request with the HS256 session token issued at
// sign-in. When cfg.AllowUserIDHeader is set, a request without a bearer token may
// identify itself with X-User-Id instead.
func EnsureValidToken(cfg *config.Config) gin.HandlerFunc {
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		cfg.JWTIssuer,
		[]string{cfg.JWTAudience},
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		logger.L().Fatal("failed to set up the jwt validator", zap.Error(err))
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		logger.L().Debug("rejected session token", zap.Error(err))

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"UNAUTHORIZED","message":"Missing or invalid session token"}}`))
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		if cfg.AllowUserIDHeader && c.GetHeader("Authorization") == "" {
			if raw := strings.TrimSpace(c.GetHeader(UserIDHeader)); raw != "" {
				id, err := strconv.ParseUint(raw, 10, 64)
				if err != nil || id == 0 {
					abortUnauthorized(c, "Invalid X-User-Id header")
					return
				}
				c.Set(userIDKey, uint(id))
				c.Next()
				return
			}
		}

		reached := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			reached = true
			claims := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)

			id, err := strconv.ParseUint(claims.RegisteredClaims.Subject, 10, 64)
			if err != nil || id == 0 {
				abortUnauthorized(c, "Invalid token subject")
				return
			}

			c.Request = r
			c.Set(userIDKey, uint(id))
			c.Set(claimsKey, claims)
			c.Next()
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		if !reached {
			c.Abort()
		}
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}

// GetUserID extracts the authenticated user ID from the Gin context
func GetUserID(c *gin.Context) (uint, error) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return 0, &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	id, ok := userID.(uint)
	if !ok || id == 0 {
		return 0, &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not valid"}
	}

	return id, nil
}

// GetClaims extracts the validated JWT claims from the Gin context.
// Requests authenticated through X-User-Id carry no claims.
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get(claimsKey)
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
