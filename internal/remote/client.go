// Package remote implements the store's persistence contract against the
// todod REST API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sandeepkv93/todod/internal/api"
	"github.com/sandeepkv93/todod/internal/model"
	"github.com/sandeepkv93/todod/internal/stats"
	"github.com/sandeepkv93/todod/internal/store"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

var (
	ErrNotFound     = errors.New("remote: not found")
	ErrUnauthorized = errors.New("remote: unauthorized")
	ErrInvalidURL   = errors.New("remote: invalid base url")
)

const (
	defaultTimeout  = 10 * time.Second
	defaultMaxRetry = 5 * time.Second
)

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: status %d", e.Status)
	}
	return fmt.Sprintf("remote: status %d: %s", e.Status, e.Message)
}

func (e *StatusError) StatusCode() int { return e.Status }

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	}
	return false
}

type Client struct {
	base       *url.URL
	http       *http.Client
	token      string
	logger     *zap.Logger
	maxElapsed time.Duration
}

var (
	_ store.Persistence = (*Client)(nil)
	_ store.Session     = (*Client)(nil)
)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetry bounds how long idempotent reads are retried. Zero disables
// retries.
func WithRetry(maxElapsed time.Duration) Option {
	return func(c *Client) { c.maxElapsed = maxElapsed }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, baseURL)
	}
	c := &Client{
		base: u,
		http: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger:     zap.NewNop(),
		maxElapsed: defaultMaxRetry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Token() string { return c.token }

func (c *Client) GetTodos(ctx context.Context, filter store.ListFilter) ([]model.Task, error) {
	q := url.Values{}
	if filter.Status != "" {
		q.Set("status", string(filter.Status))
	}
	if filter.Priority != "" {
		q.Set("priority", string(filter.Priority))
	}
	if filter.Category != "" {
		q.Set("category", filter.Category)
	}
	var out []model.Task
	if err := c.read(ctx, "/todos", q, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Task{}
	}
	return out, nil
}

func (c *Client) CreateTodo(ctx context.Context, in model.TaskInput) (model.Task, error) {
	var out model.Task
	err := c.send(ctx, http.MethodPost, "/todos", in, &out)
	return out, err
}

func (c *Client) UpdateTodo(ctx context.Context, id string, in model.TaskInput) (model.Task, error) {
	var out model.Task
	err := c.send(ctx, http.MethodPut, "/todos/"+url.PathEscape(id), in, &out)
	return out, err
}

func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodDelete, "/todos/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ToggleTodo(ctx context.Context, id string, completed bool) (model.Task, error) {
	var out model.Task
	err := c.send(ctx, http.MethodPatch, "/todos/"+url.PathEscape(id)+"/toggle", api.ToggleRequest{Completed: completed}, &out)
	return out, err
}

func (c *Client) BulkDelete(ctx context.Context, ids []string) error {
	return c.send(ctx, http.MethodPost, "/todos/bulk-delete", api.IDsRequest{IDs: ids}, nil)
}

func (c *Client) ReorderTodos(ctx context.Context, ids []string) error {
	return c.send(ctx, http.MethodPut, "/todos/order", api.IDsRequest{IDs: ids}, nil)
}

func (c *Client) GetCategories(ctx context.Context) ([]string, error) {
	var out api.CategoriesResponse
	if err := c.read(ctx, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

func (c *Client) GetStats(ctx context.Context) (stats.Stats, error) {
	var out stats.Stats
	err := c.read(ctx, "/stats", nil, &out)
	return out, err
}

// read issues a GET, retrying transport failures and 5xx answers with
// exponential backoff.
func (c *Client) read(ctx context.Context, path string, q url.Values, out any) error {
	if c.maxElapsed <= 0 {
		return c.do(ctx, http.MethodGet, path, q, nil, out)
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxElapsedTime = c.maxElapsed

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := c.do(ctx, http.MethodGet, path, q, nil, out)
		if err == nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && se.Status < http.StatusInternalServerError {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		c.logger.Debug("retrying read", zap.String("path", path), zap.Int("attempt", attempt), zap.Error(err))
		return err
	}, backoff.WithContext(policy, ctx))
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	return c.do(ctx, method, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	u := c.base.JoinPath(path)
	if len(q) > 0 {
		u.RawQuery = q.Encode()
	}

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	se := &StatusError{Status: resp.StatusCode}
	var body api.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err == nil {
		se.Code = body.Error
		se.Message = body.Message
		if body.Field != "" {
			se.Message = body.Field + ": " + body.Message
		}
	} else {
		se.Message = http.StatusText(resp.StatusCode)
	}
	return se
}
