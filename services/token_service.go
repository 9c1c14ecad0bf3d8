package services

import (
	"strconv"
	"time"

	"github.com/freelancehub/marketplace-api/config"
	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues the HS256 session tokens that the auth middleware validates
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

var tokenServiceInstance *TokenService

// NewTokenService creates a token issuer from configuration
func NewTokenService(cfg *config.Config) *TokenService {
	return &TokenService{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
		ttl:      cfg.SessionTTL,
		now:      time.Now,
	}
}

// InitTokenService creates the shared token service instance
func InitTokenService(cfg *config.Config) *TokenService {
	tokenServiceInstance = NewTokenService(cfg)
	return tokenServiceInstance
}

// GetTokenService returns the initialized token service instance
func GetTokenService() *TokenService {
	return tokenServiceInstance
}

// SetTokenService sets the token service instance (primarily for testing)
func SetTokenService(service *TokenService) {
	tokenServiceInstance = service
}

// Issue signs a session token whose subject is the user id
func (s *TokenService) Issue(userID uint) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
