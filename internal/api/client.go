package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskdeck/internal/model"
)

const requestIDHeader = "X-Request-Id"

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	logger  *zap.Logger

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request. A client passed to WithHTTPClient is
// copied, never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func NewClient(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		timeout: 10 * time.Second,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 && c.http.Timeout != c.timeout {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c
}

// SetToken replaces the bearer token issued by the identity service.
// An empty token clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Health calls the service root, which reports service and database status.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.do(ctx, http.MethodGet, "/", nil, &h)
	return h, err
}

func (c *Client) List(ctx context.Context, userID string, status model.FilterStatus, sort model.SortOption) ([]model.Task, error) {
	q := url.Values{}
	if status != "" && status != model.FilterAll {
		q.Set("status", string(status))
	}
	if sort != "" {
		q.Set("sort", string(sort))
	}
	path := tasksPath(userID)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	tasks := []model.Task{}
	if err := c.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) Get(ctx context.Context, userID string, id int64) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodGet, taskPath(userID, id), nil, &t)
	return t, err
}

func (c *Client) Create(ctx context.Context, userID string, data model.TaskCreate) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodPost, tasksPath(userID), data, &t)
	return t, err
}

func (c *Client) Update(ctx context.Context, userID string, id int64, data model.TaskUpdate) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodPut, taskPath(userID, id), data, &t)
	return t, err
}

func (c *Client) ToggleComplete(ctx context.Context, userID string, id int64) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodPatch, taskPath(userID, id)+"/complete", nil, &t)
	return t, err
}

func (c *Client) Delete(ctx context.Context, userID string, id int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(userID, id), nil, nil)
}

func tasksPath(userID string) string {
	return "/api/" + url.PathEscape(userID) + "/tasks"
}

func taskPath(userID string, id int64) string {
	return fmt.Sprintf("%s/%d", tasksPath(userID), id)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, reqID)

	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", reqID),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("request_id", reqID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if resp.StatusCode == http.StatusNoContent || out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrTransport, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{
		Message: defaultErrorDetail,
		Code:    CodeUnknown,
		Status:  resp.StatusCode,
	}

	// тело может быть не JSON
	var body struct {
		Detail    string `json:"detail"`
		ErrorCode string `json:"error_code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		if body.Detail != "" {
			apiErr.Message = body.Detail
		}
		if body.ErrorCode != "" {
			apiErr.Code = body.ErrorCode
		}
	}
	return apiErr
}
