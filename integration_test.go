package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/freelancehub/marketplace-api/config"
	"github.com/freelancehub/marketplace-api/services"
	"github.com/freelancehub/marketplace-api/testutil"
	"github.com/freelancehub/marketplace-api/utils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// MarketplaceSuite drives the full router against an in-memory database
type MarketplaceSuite struct {
	suite.Suite
	router *gin.Engine
}

func (s *MarketplaceSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		GoEnv:         "test",
		JWTSecret:     "integration-secret",
		JWTIssuer:     "freelancehub",
		JWTAudience:   "freelancehub-api",
		SessionTTL:    time.Hour,
		AuthRateLimit: 1000,
		AuthRateBurst: 1000,
	}
	config.SetConfig(cfg)

	db := testutil.NewTestDB(s.T())
	config.SetDB(db)

	utils.UploadDir = s.T().TempDir()
	services.SetIdentityService(services.NewIdentityService(db, services.IdentityOptions{}))
	services.SetTokenService(services.NewTokenService(cfg))
	services.SetImageService(services.NewLocalImageService(utils.UploadDir))

	s.router = newRouter(cfg, zap.NewNop())
}

func (s *MarketplaceSuite) do(method, path, token string, body interface{}) (int, map[string]interface{}) {
	var payload bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var response map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	}
	return w.Code, response
}

func (s *MarketplaceSuite) register(username string) (string, float64) {
	status, response := s.do(http.MethodPost, "/api/v1/auth?action=register", "", gin.H{
		"username": username, "password": "password1",
	})
	s.Require().Equal(http.StatusCreated, status, response)
	return response["token"].(string), response["user"].(map[string]interface{})["id"].(float64)
}

func (s *MarketplaceSuite) TestHealthAndMetrics() {
	status, response := s.do(http.MethodGet, "/api/v1/health", "", nil)
	s.Equal(http.StatusOK, status)
	s.Equal("FreelanceHub API is running", response["message"])

	status, _ = s.do(http.MethodPost, "/api/v1/health", "", nil)
	s.Equal(http.StatusNotFound, status)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/metrics", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "http_requests_total")
}

func (s *MarketplaceSuite) TestRequestIDAndCORS() {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	s.Equal(http.StatusNoContent, w.Code)
	s.Equal("*", w.Header().Get("Access-Control-Allow-Origin"))
	s.Equal("86400", w.Header().Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-Id", "req-123")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal("req-123", w.Header().Get("X-Request-Id"))
}

func (s *MarketplaceSuite) TestProtectedRoutesRequireToken() {
	status, response := s.do(http.MethodPost, "/api/v1/orders", "", gin.H{"title": "x"})
	s.Equal(http.StatusUnauthorized, status)
	s.Equal(false, response["success"])

	status, _ = s.do(http.MethodGet, "/api/v1/wallet?action=balance", "not-a-jwt", nil)
	s.Equal(http.StatusUnauthorized, status)

	status, _ = s.do(http.MethodGet, "/api/v1/orders", "", nil)
	s.Equal(http.StatusOK, status, "order listing is public")
}

func (s *MarketplaceSuite) TestOrderLifecycle() {
	clientToken, clientID := s.register("client")
	freelancerToken, freelancerID := s.register("freelancer")

	status, me := s.do(http.MethodGet, "/api/v1/auth/me", clientToken, nil)
	s.Require().Equal(http.StatusOK, status)
	s.Equal(clientID, me["user"].(map[string]interface{})["id"])

	status, response := s.do(http.MethodPost, "/api/v1/orders", clientToken, gin.H{
		"title": "Build a REST API", "description": "Go and PostgreSQL", "category": "development",
		"budget_min": 200, "budget_max": 400,
	})
	s.Require().Equal(http.StatusCreated, status, response)
	orderID := response["order"].(map[string]interface{})["id"].(float64)

	status, response = s.do(http.MethodPost, "/api/v1/freelancers", freelancerToken, gin.H{
		"bio": "Backend engineer", "hourly_rate": 50, "skills": []string{"go"},
	})
	s.Require().Equal(http.StatusOK, status, response)
	profileID := response["freelancer_id"].(float64)

	status, response = s.do(http.MethodPost, "/api/v1/responses", freelancerToken, gin.H{
		"order_id": orderID, "message": "Ready to start", "proposed_price": 300,
	})
	s.Require().Equal(http.StatusCreated, status, response)
	responseID := response["response"].(map[string]interface{})["id"].(float64)

	status, response = s.do(http.MethodPut, "/api/v1/responses?action=accept", clientToken, gin.H{"response_id": responseID})
	s.Require().Equal(http.StatusOK, status, response)

	status, response = s.do(http.MethodGet, fmt.Sprintf("/api/v1/orders/%v", orderID), "", nil)
	s.Require().Equal(http.StatusOK, status)
	order := response["order"].(map[string]interface{})
	s.Equal("in_progress", order["status"])
	s.Equal(freelancerID, order["executor_id"])

	status, _ = s.do(http.MethodPost, "/api/v1/chats?action=send-order", freelancerToken, gin.H{
		"order_id": orderID, "message": "Starting today",
	})
	s.Require().Equal(http.StatusCreated, status)

	status, response = s.do(http.MethodGet, "/api/v1/chats?action=list", clientToken, nil)
	s.Require().Equal(http.StatusOK, status)
	chats := response["chats"].([]interface{})
	s.Require().Len(chats, 1)
	s.Equal("Starting today", chats[0].(map[string]interface{})["last_message"])

	status, response = s.do(http.MethodPost, "/api/v1/wallet?action=deposit", clientToken, gin.H{"amount": 500})
	s.Require().Equal(http.StatusOK, status, response)

	status, response = s.do(http.MethodPost, "/api/v1/wallet?action=payment", clientToken, gin.H{
		"amount": 300, "order_id": orderID,
	})
	s.Require().Equal(http.StatusOK, status, response)
	s.Equal(float64(200), response["balance"])

	status, response = s.do(http.MethodGet, "/api/v1/wallet?action=balance", freelancerToken, nil)
	s.Require().Equal(http.StatusOK, status)
	s.Equal(float64(300), response["balance"])

	status, response = s.do(http.MethodPost, "/api/v1/reviews", clientToken, gin.H{
		"order_id": orderID, "rating": 5, "comment": "Great job",
	})
	s.Require().Equal(http.StatusCreated, status, response)

	status, response = s.do(http.MethodGet, fmt.Sprintf("/api/v1/freelancers?action=profile&freelancer_id=%v", profileID), "", nil)
	s.Require().Equal(http.StatusOK, status, response)
	freelancer := response["freelancer"].(map[string]interface{})
	s.Equal(float64(5), freelancer["rating"])
	s.Equal(float64(1), freelancer["total_reviews"])
	s.Equal(float64(1), freelancer["completed_projects"])
	s.Len(response["completed_orders"], 1)
}

func TestMarketplaceSuite(t *testing.T) {
	suite.Run(t, new(MarketplaceSuite))
}
