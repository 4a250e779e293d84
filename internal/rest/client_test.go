package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teamforge/chatlink/internal/testutil"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "secret-token", testutil.TestLogger(t))
}

func TestHistory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method, "expected GET request")
		assert.Equal(t, "/api/chats/7/messages", r.URL.Path, "expected history path")
		assert.Equal(t, "1", r.URL.Query().Get("page"), "expected page query parameter")
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"), "expected bearer token")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":[
			{"id":3,"chat_id":7,"sender_id":2,"content":"third","created_at":"2025-01-03T00:00:00Z"},
			{"id":2,"chat_id":7,"sender_id":1,"content":"second","created_at":"2025-01-02T00:00:00Z"},
			{"id":1,"chat_id":7,"sender_id":2,"content":"first","created_at":"2025-01-01T00:00:00Z"}
		]}`))
	})

	msgs, err := c.History(context.Background(), 7, 1)
	assert.NoError(t, err, "expected no error fetching history")
	assert.Len(t, msgs, 3, "expected three messages")
	assert.Equal(t, 3, msgs[0].Id, "expected the page to stay newest-first")
}

func TestHistoryServerFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"error":"chat not found"}`))
	})

	_, err := c.History(context.Background(), 99, 1)
	assert.Error(t, err, "expected error for failed fetch")

	var apiErr *ApiError
	assert.ErrorAs(t, err, &apiErr, "expected an ApiError")
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode, "expected status code to be carried")
	assert.Equal(t, "chat not found", apiErr.Message, "expected server error message to be carried")
}

func TestHistoryUnsuccessfulEnvelope(t *testing.T) {
	// A 200 response with success:false is still a failure.
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"error":"not a participant"}`))
	})

	_, err := c.History(context.Background(), 7, 1)
	assert.Error(t, err, "expected error for success:false envelope")

	var apiErr *ApiError
	assert.ErrorAs(t, err, &apiErr, "expected an ApiError")
	assert.Equal(t, "not a participant", apiErr.Message)
}

func TestChatWithUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method, "expected POST request")
		assert.Equal(t, "/api/chats", r.URL.Path, "expected chats path")

		var body map[string]int
		err := json.NewDecoder(r.Body).Decode(&body)
		assert.NoError(t, err, "expected a JSON body")
		assert.Equal(t, 2, body["user_id"], "expected peer user id in body")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"id":7,"participant_ids":[1,2]}}`))
	})

	chat, err := c.ChatWithUser(context.Background(), 2)
	assert.NoError(t, err, "expected no error creating chat")
	assert.Equal(t, 7, chat.Id, "expected chat id to match")
	assert.Equal(t, []int{1, 2}, chat.ParticipantIds, "expected both participants")
}

func TestMarkRead(t *testing.T) {
	var called bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodPost, r.Method, "expected POST request")
		assert.Equal(t, "/api/chats/7/read", r.URL.Path, "expected mark read path")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true}`))
	})

	err := c.MarkRead(context.Background(), 7)
	assert.NoError(t, err, "expected no error marking read")
	assert.True(t, called, "expected the endpoint to be called")
}

func TestUnreadCount(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chats/unread-count", r.URL.Path, "expected unread count path")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"count":4}}`))
	})

	count, err := c.UnreadCount(context.Background())
	assert.NoError(t, err, "expected no error fetching unread count")
	assert.Equal(t, 4, count, "expected count to match")
}

func TestInvalidResponseBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	})

	_, err := c.UnreadCount(context.Background())
	assert.Error(t, err, "expected error for non-JSON response")

	var apiErr *ApiError
	assert.ErrorAs(t, err, &apiErr, "expected an ApiError")
	assert.Equal(t, "invalid response body", apiErr.Message)
}
