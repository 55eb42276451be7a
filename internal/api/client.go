package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexanderramin/tasktimer/internal/domain"
	"github.com/google/uuid"
)

// Client is the consumed surface of the task backend.
type Client interface {
	// StartTask opens a new time log entry. Never retried.
	StartTask(ctx context.Context, taskID string) error

	// PauseTask closes the open time log entry. Never retried.
	PauseTask(ctx context.Context, taskID string) error

	// GetTask fetches one task with its time log ledger.
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	// ListTasks fetches every task visible to the caller.
	ListTasks(ctx context.Context) ([]*domain.Task, error)
}

// httpClient implements Client over the backend's HTTP API.
type httpClient struct {
	cfg      Config
	http     *http.Client
	tokens   TokenSource
	observer Observer
}

// NewHTTPClient creates a Client for the backend at cfg.Endpoint. A nil
// TokenSource uses cfg.Token as a static token.
func NewHTTPClient(cfg Config, tokens TokenSource, observer Observer) Client {
	if observer == nil {
		observer = NoopObserver{}
	}
	if tokens == nil {
		tokens = StaticToken(cfg.Token)
	}
	return &httpClient{
		cfg: cfg,
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 5 * time.Second,
				}).DialContext,
			},
		},
		tokens:   tokens,
		observer: observer,
	}
}

func (c *httpClient) StartTask(ctx context.Context, taskID string) error {
	_, err := c.call(ctx, OpStart, taskID, "/tasks/start/"+url.PathEscape(taskID), false)
	return err
}

func (c *httpClient) PauseTask(ctx context.Context, taskID string) error {
	_, err := c.call(ctx, OpPause, taskID, "/tasks/pause/"+url.PathEscape(taskID), false)
	return err
}

func (c *httpClient) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	body, err := c.call(ctx, OpGet, taskID, "/tasks/task/"+url.PathEscape(taskID), true)
	if err != nil {
		return nil, err
	}

	var p taskPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	task := p.toDomain()
	if err := task.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return task, nil
}

func (c *httpClient) ListTasks(ctx context.Context) ([]*domain.Task, error) {
	body, err := c.call(ctx, OpList, "", "/tasks", true)
	if err != nil {
		return nil, err
	}

	var ps []taskPayload
	if err := json.Unmarshal(body, &ps); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	tasks := make([]*domain.Task, 0, len(ps))
	for _, p := range ps {
		task := p.toDomain()
		if err := task.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// call performs one logical backend call. Fetches retry transient failures
// up to MaxRetries; start and pause are sent exactly once.
func (c *httpClient) call(ctx context.Context, op Op, taskID, path string, retry bool) ([]byte, error) {
	start := time.Now()
	requestID := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout())
	defer cancel()

	attempts := 1
	if retry {
		attempts += c.cfg.MaxRetries
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		body, err := c.sendAuthorized(ctx, path, requestID)
		if err == nil {
			c.observer.OnCallComplete(CallEvent{
				Op:        op,
				TaskID:    taskID,
				RequestID: requestID,
				LatencyMs: time.Since(start).Milliseconds(),
				Success:   true,
			})
			return body, nil
		}
		lastErr = err

		// Don't retry on context cancellation/timeout
		if ctx.Err() != nil || !retryable(err) {
			break
		}
	}

	err := classify(ctx, lastErr)
	c.observer.OnCallComplete(CallEvent{
		Op:        op,
		TaskID:    taskID,
		RequestID: requestID,
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   false,
		ErrorCode: errorCode(err),
	})
	return nil, err
}

// sendAuthorized sends the request, refreshing the token once on 401.
func (c *httpClient) sendAuthorized(ctx context.Context, path, requestID string) ([]byte, error) {
	body, err := c.send(ctx, path, requestID)
	if !isStatus(err, http.StatusUnauthorized) {
		return body, err
	}

	if rerr := c.tokens.Refresh(ctx); rerr != nil {
		return nil, fmt.Errorf("%w: token refresh failed: %v", ErrUnavailable, rerr)
	}

	body, err = c.send(ctx, path, requestID)
	if isStatus(err, http.StatusUnauthorized) {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return body, err
}

func (c *httpClient) send(ctx context.Context, path, requestID string) ([]byte, error) {
	endpoint := strings.TrimRight(c.cfg.Endpoint, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: obtaining token: %v", ErrUnavailable, err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// classify maps a raw failure onto the package's sentinel errors.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, ErrUnavailable) || errors.Is(err, ErrUnauthorized) {
		return err
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var se *StatusError
	if errors.As(err, &se) {
		if se.Code == http.StatusNotFound {
			return fmt.Errorf("%w: %w", ErrNotFound, se)
		}
		return fmt.Errorf("%w: %w", ErrRejected, se)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500
	}
	return !errors.Is(err, ErrUnauthorized) && !errors.Is(err, ErrUnavailable)
}

func isStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "TIMEOUT"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrRejected):
		return "REJECTED"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	default:
		return "UNKNOWN"
	}
}
