// Package rest is the client for the backend's chat HTTP API. Every
// response is wrapped in a {success, data} envelope.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/teamforge/chatlink/internal/types"
)

const requestTimeout = 15 * time.Second

type ApiError struct {
	StatusCode int
	Message    string
}

func (e *ApiError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}

	return fmt.Sprintf("api error %d", e.StatusCode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *log.Logger
}

func NewClient(baseURL, token string, logger *log.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: requestTimeout},
		log:     logger,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = new(bytes.Buffer)
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	var req *http.Request
	var err error
	if reqBody != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &ApiError{StatusCode: resp.StatusCode, Message: "invalid response body"}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices || !env.Success {
		apiErr := &ApiError{StatusCode: resp.StatusCode, Message: env.Error}
		c.log.Printf("%s %s: %v", method, path, apiErr)
		return apiErr
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}

	return nil
}

// History fetches one page of a chat's messages. Pages are returned
// newest-first; the conversation store reverses them for display.
func (c *Client) History(ctx context.Context, chatId, page int) ([]types.Message, error) {
	var msgs []types.Message
	path := fmt.Sprintf("/api/chats/%d/messages?page=%d", chatId, page)
	if err := c.do(ctx, http.MethodGet, path, nil, &msgs); err != nil {
		return nil, err
	}

	return msgs, nil
}

// ChatWithUser looks up or creates the 1:1 chat with another user.
func (c *Client) ChatWithUser(ctx context.Context, userId int) (types.Chat, error) {
	var chat types.Chat
	body := map[string]int{"user_id": userId}
	if err := c.do(ctx, http.MethodPost, "/api/chats", body, &chat); err != nil {
		return types.Chat{}, err
	}

	return chat, nil
}

// MarkRead records on the server that the chat's messages were read.
func (c *Client) MarkRead(ctx context.Context, chatId int) error {
	path := fmt.Sprintf("/api/chats/%d/read", chatId)
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// UnreadCount returns the total number of unread chat messages.
func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var data struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/chats/unread-count", nil, &data); err != nil {
		return 0, err
	}

	return data.Count, nil
}
