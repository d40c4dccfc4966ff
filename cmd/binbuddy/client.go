package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kalambet/binbuddy/internal/assistant"
	"github.com/kalambet/binbuddy/internal/config"
	"github.com/kalambet/binbuddy/internal/storage"
)

// apiClient talks to a running binbuddy server on the loopback interface.
type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var newAPIClient = func() (*apiClient, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	token, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return nil, fmt.Errorf("getting API token: %w", err)
	}

	return &apiClient{
		baseURL:    fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// userStatus mirrors the admin API's user status payload.
type userStatus struct {
	Warnings     int        `json:"warnings"`
	State        string     `json:"state"`
	BlockedUntil *time.Time `json:"blocked_until"`
}

func (c *apiClient) chat(ctx context.Context, message string, cc assistant.ConversationContext) (chatResponse, error) {
	var reply chatResponse
	err := c.call(ctx, http.MethodPost, "/v1/chat", map[string]any{
		"message": message,
		"context": cc,
	}, &reply)
	return reply, err
}

func (c *apiClient) incidents(ctx context.Context, q url.Values) ([]storage.BehaviorRecord, error) {
	var records []storage.BehaviorRecord
	err := c.call(ctx, http.MethodGet, "/v1/admin/incidents?"+q.Encode(), nil, &records)
	return records, err
}

func (c *apiClient) unanswered(ctx context.Context, limit int) ([]storage.UnansweredQuestion, error) {
	var questions []storage.UnansweredQuestion
	err := c.call(ctx, http.MethodGet, "/v1/admin/unanswered?limit="+strconv.Itoa(limit), nil, &questions)
	return questions, err
}

func (c *apiClient) userStatus(ctx context.Context, userID string) (userStatus, error) {
	var st userStatus
	err := c.call(ctx, http.MethodGet, "/v1/admin/users/"+url.PathEscape(userID)+"/status", nil, &st)
	return st, err
}

func (c *apiClient) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out)
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable, is binbuddy running? (%w)", err)
	}
	return resp, nil
}

// decodeJSON decodes a success body into v. Error responses are turned into
// an error carrying the status code and, when present, the server's message.
func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode < 400 {
		return json.NewDecoder(resp.Body).Decode(v)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
	}
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		return fmt.Errorf("server returned %d: %w", resp.StatusCode, errors.New(envelope.Error.Message))
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
}
