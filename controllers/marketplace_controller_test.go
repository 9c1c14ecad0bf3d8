package controllers

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/freelancehub/marketplace-api/models"
	"github.com/freelancehub/marketplace-api/services"
	"github.com/freelancehub/marketplace-api/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponses_CreateListAndAccept(t *testing.T) {
	db := setupTestDB(t)
	client := testutil.CreateUser(t, db, "client")
	first := testutil.CreateUser(t, db, "first")
	second := testutil.CreateUser(t, db, "second")
	order := testutil.CreateOrder(t, db, client, "Mobile app")

	w := performJSON(routerAs(client.ID), http.MethodPost, "/responses", gin.H{"order_id": order.ID, "message": "mine"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "owner cannot bid on own order")

	w = performJSON(routerAs(first.ID), http.MethodPost, "/responses", gin.H{"order_id": order.ID, "message": "  "})
	assert.Equal(t, "EMPTY_MESSAGE", errorCode(t, w))

	w = performJSON(routerAs(first.ID), http.MethodPost, "/responses", gin.H{
		"order_id": order.ID, "message": "I can do it", "proposed_price": 500,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	firstResponse := decodeBody(t, w)["response"].(map[string]interface{})
	assert.Equal(t, models.ResponseStatusPending, firstResponse["status"])

	w = performJSON(routerAs(first.ID), http.MethodPost, "/responses", gin.H{"order_id": order.ID, "message": "again"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_RESPONDED", errorCode(t, w))

	w = performJSON(routerAs(second.ID), http.MethodPost, "/responses", gin.H{"order_id": order.ID, "message": "Me too"})
	require.Equal(t, http.StatusCreated, w.Code)
	secondResponse := decodeBody(t, w)["response"].(map[string]interface{})

	w = performJSON(routerAs(first.ID), http.MethodGet, fmt.Sprintf("/responses?order_id=%d", order.ID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performJSON(routerAs(client.ID), http.MethodGet, fmt.Sprintf("/responses?order_id=%d", order.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["responses"], 2)

	w = performJSON(routerAs(first.ID), http.MethodPut, "/responses?action=accept", gin.H{"response_id": firstResponse["id"]})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performJSON(routerAs(client.ID), http.MethodPut, "/responses", gin.H{"response_id": firstResponse["id"], "action": "approve"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performJSON(routerAs(client.ID), http.MethodPut, "/responses?action=accept", gin.H{"response_id": firstResponse["id"]})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.ResponseStatusAccepted, decodeBody(t, w)["response"].(map[string]interface{})["status"])

	w = performJSON(routerAs(client.ID), http.MethodPut, "/responses", gin.H{"response_id": secondResponse["id"], "action": "accept"})
	assert.Equal(t, http.StatusConflict, w.Code)

	var stored models.Order
	require.NoError(t, db.First(&stored, order.ID).Error)
	assert.Equal(t, models.OrderStatusInProgress, stored.Status)
	require.NotNil(t, stored.ExecutorID)
	assert.Equal(t, first.ID, *stored.ExecutorID)

	w = performJSON(routerAs(second.ID), http.MethodGet, "/responses", nil)
	require.Equal(t, http.StatusOK, w.Code)
	mine := decodeBody(t, w)["responses"].([]interface{})
	require.Len(t, mine, 1)
	assert.Equal(t, models.ResponseStatusRejected, mine[0].(map[string]interface{})["status"])
}

func TestChats_CreateSendAndList(t *testing.T) {
	db := setupTestDB(t)
	client := testutil.CreateUser(t, db, "client")
	freelancer := testutil.CreateUser(t, db, "freelancer")
	outsider := testutil.CreateUser(t, db, "outsider")
	order := testutil.CreateOrder(t, db, client, "Translation")

	w := performJSON(routerAs(client.ID), http.MethodPost, "/chats?action=create", gin.H{
		"order_id": order.ID, "other_user_id": freelancer.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	chatID := decodeBody(t, w)["chat_id"]

	w = performJSON(routerAs(client.ID), http.MethodPost, "/chats?action=create", gin.H{
		"order_id": order.ID, "other_user_id": freelancer.ID,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, chatID, decodeBody(t, w)["chat_id"])

	w = performJSON(routerAs(freelancer.ID), http.MethodPost, "/chats", gin.H{"chat_id": chatID, "message": "Hello!"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = performJSON(routerAs(outsider.ID), http.MethodPost, "/chats?action=send", gin.H{"chat_id": chatID, "message": "hi"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performJSON(routerAs(client.ID), http.MethodPost, "/chats?action=send", gin.H{"chat_id": chatID, "message": ""})
	assert.Equal(t, "EMPTY_MESSAGE", errorCode(t, w))

	w = performJSON(routerAs(client.ID), http.MethodGet, fmt.Sprintf("/chats?action=messages&chat_id=%v", chatID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	messages := decodeBody(t, w)["messages"].([]interface{})
	require.Len(t, messages, 1)
	assert.Equal(t, "Hello!", messages[0].(map[string]interface{})["text"])

	w = performJSON(routerAs(outsider.ID), http.MethodGet, fmt.Sprintf("/chats?action=messages&chat_id=%v", chatID), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performJSON(routerAs(client.ID), http.MethodGet, "/chats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	chats := decodeBody(t, w)["chats"].([]interface{})
	require.Len(t, chats, 1)
	summary := chats[0].(map[string]interface{})
	assert.Equal(t, "freelancer", summary["other_user_name"])
	assert.Equal(t, "Hello!", summary["last_message"])
	assert.Equal(t, "Translation", summary["order_title"])

	w = performJSON(routerAs(client.ID), http.MethodPost, "/chats?action=send-order", gin.H{"order_id": order.ID, "message": "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "no executor yet")
}

func TestChats_OrderMessages(t *testing.T) {
	db := setupTestDB(t)
	client := testutil.CreateUser(t, db, "client")
	freelancer := testutil.CreateUser(t, db, "freelancer")
	outsider := testutil.CreateUser(t, db, "outsider")
	order := testutil.CreateOrder(t, db, client, "Logo")
	path := fmt.Sprintf("/chats?action=order-messages&order_id=%d", order.ID)

	w := performJSON(routerAs(client.ID), http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, decodeBody(t, w)["messages"])

	require.NoError(t, db.Model(order).Updates(map[string]interface{}{
		"status": models.OrderStatusInProgress, "executor_id": freelancer.ID,
	}).Error)

	w = performJSON(routerAs(freelancer.ID), http.MethodPost, "/chats?action=send-order", gin.H{"order_id": order.ID, "message": "draft attached"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = performJSON(routerAs(client.ID), http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	messages := body["messages"].([]interface{})
	require.Len(t, messages, 1)
	assert.Equal(t, "draft attached", messages[0].(map[string]interface{})["text"])
	assert.Equal(t, "Logo", body["order"].(map[string]interface{})["title"])

	w = performJSON(routerAs(outsider.ID), http.MethodGet, path, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performJSON(routerAs(client.ID), http.MethodGet, "/chats?action=order-messages&order_id=9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performJSON(routerAs(client.ID), http.MethodGet, "/chats?action=order-messages", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWallet_DepositPayAndHistory(t *testing.T) {
	db := setupTestDB(t)
	client := testutil.CreateUser(t, db, "client")
	freelancer := testutil.CreateUser(t, db, "freelancer")
	order := testutil.CreateOrder(t, db, client, "Data import")
	require.NoError(t, db.Model(order).Updates(map[string]interface{}{
		"status": models.OrderStatusInProgress, "executor_id": freelancer.ID,
	}).Error)

	w := performJSON(routerAs(client.ID), http.MethodPost, "/wallet?action=deposit", gin.H{"amount": -5})
	assert.Equal(t, "INVALID_AMOUNT", errorCode(t, w))

	w = performJSON(routerAs(client.ID), http.MethodPost, "/wallet?action=deposit", gin.H{"amount": "abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performJSON(routerAs(client.ID), http.MethodPost, "/wallet", gin.H{"action": "deposit", "amount": 300})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(300), decodeBody(t, w)["balance"])

	w = performJSON(routerAs(client.ID), http.MethodPost, "/wallet?action=payment", gin.H{"amount": 1000, "order_id": order.ID})
	assert.Equal(t, "INSUFFICIENT_FUNDS", errorCode(t, w))

	w = performJSON(routerAs(client.ID), http.MethodPost, "/wallet?action=payment", gin.H{"amount": 120.5, "order_id": order.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 179.5, decodeBody(t, w)["balance"])

	w = performJSON(routerAs(freelancer.ID), http.MethodGet, "/wallet?action=balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 120.5, decodeBody(t, w)["balance"])

	w = performJSON(routerAs(client.ID), http.MethodGet, "/wallet?action=transactions&order=asc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	txs := decodeBody(t, w)["transactions"].([]interface{})
	require.Len(t, txs, 2)
	assert.Equal(t, models.TransactionDeposit, txs[0].(map[string]interface{})["type"])
	payment := txs[1].(map[string]interface{})
	assert.Equal(t, models.TransactionPayment, payment["type"])
	assert.Equal(t, -120.5, payment["amount"])
	assert.Equal(t, "freelancer", payment["related_user_name"])

	var stored models.Order
	require.NoError(t, db.First(&stored, order.ID).Error)
	assert.Equal(t, models.OrderStatusCompleted, stored.Status)

	w = performJSON(routerAs(client.ID), http.MethodPost, "/wallet?action=refund", gin.H{"amount": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func avatarRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("avatar", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/freelancers/avatar", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestFreelancers_ProfileAvatarAndReview(t *testing.T) {
	db := setupTestDB(t)
	client := testutil.CreateUser(t, db, "client")
	freelancer := testutil.CreateUser(t, db, "freelancer")

	images := services.NewMockImageService()
	previous := services.GetImageService()
	images.SetAsMockForTesting()
	t.Cleanup(func() { services.SetImageService(previous) })

	w := httptest.NewRecorder()
	routerAs(freelancer.ID).ServeHTTP(w, avatarRequest(t, "me.png", []byte("\x89PNG\r\n\x1a\npixels")))
	assert.Equal(t, http.StatusNotFound, w.Code, "profile must exist first")

	w = performJSON(routerAs(freelancer.ID), http.MethodPost, "/freelancers", gin.H{
		"bio": "Go developer", "hourly_rate": 40, "skills": []string{"go", " ", "postgres"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	response := decodeBody(t, w)
	profileID := response["freelancer_id"]
	assert.Equal(t, []interface{}{"go", "postgres"}, response["freelancer"].(map[string]interface{})["skills"])

	w = httptest.NewRecorder()
	routerAs(freelancer.ID).ServeHTTP(w, avatarRequest(t, "me.jpg", []byte("jpeg")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_FILE_FORMAT", errorCode(t, w))

	w = httptest.NewRecorder()
	routerAs(freelancer.ID).ServeHTTP(w, avatarRequest(t, "me.png", []byte("\x89PNG\r\n\x1a\npixels")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, decodeBody(t, w)["freelancer"].(map[string]interface{})["avatar_url"], "avatars/")
	assert.Equal(t, 1, images.Count())

	order := testutil.CreateOrder(t, db, client, "Backend")
	w = performJSON(routerAs(client.ID), http.MethodPost, "/reviews", gin.H{"order_id": order.ID, "rating": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code, "order not completed")

	require.NoError(t, db.Model(order).Updates(map[string]interface{}{
		"status": models.OrderStatusCompleted, "executor_id": freelancer.ID,
	}).Error)

	w = performJSON(routerAs(client.ID), http.MethodPost, "/reviews", gin.H{"order_id": order.ID, "rating": 6})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performJSON(routerAs(freelancer.ID), http.MethodPost, "/reviews", gin.H{"order_id": order.ID, "rating": 5})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performJSON(routerAs(client.ID), http.MethodPost, "/reviews", gin.H{"order_id": order.ID, "rating": 4, "comment": "Solid work"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = performJSON(routerAs(client.ID), http.MethodPost, "/reviews", gin.H{"order_id": order.ID, "rating": 5})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = performJSON(routerAs(client.ID), http.MethodGet, fmt.Sprintf("/freelancers?action=profile&freelancer_id=%v", profileID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decodeBody(t, w)
	assert.Equal(t, float64(4), profile["freelancer"].(map[string]interface{})["rating"])
	reviews := profile["reviews"].([]interface{})
	require.Len(t, reviews, 1)
	assert.Equal(t, "client", reviews[0].(map[string]interface{})["client_name"])
	assert.Len(t, profile["completed_orders"], 1)

	w = performJSON(routerAs(client.ID), http.MethodGet, "/freelancers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody(t, w)["freelancers"], 1)

	w = performJSON(routerAs(client.ID), http.MethodGet, "/freelancers?action=profile&freelancer_id=999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
