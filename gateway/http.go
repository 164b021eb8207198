package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/xraph/coalesce"
	"github.com/xraph/coalesce/event"
	"github.com/xraph/coalesce/scope"
	"github.com/xraph/coalesce/throttle"
)

// maxErrorBody caps how much of an upstream error body is captured
// into an APIError.
const maxErrorBody = 4 << 10

// Client is the production HTTP implementation of Gateway.
type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	logger   *slog.Logger
	throttle *throttle.Manager
}

var _ Gateway = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. The default uses a
// 30-second timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithThrottle sets the outbound limiter consulted before each call.
func WithThrottle(m *throttle.Manager) Option {
	return func(c *Client) { c.throttle = m }
}

// NewClient creates an HTTP gateway for the given upstream base URL and
// access token.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, coalesce.ErrMissingCredentials
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ---------------------------------------------------------------------------
// Wire envelopes
// ---------------------------------------------------------------------------

type jobRef struct {
	ID string `json:"id"`
}

type bulkRequest struct {
	Job   *jobRef      `json:"job,omitempty"`
	Items []event.Item `json:"items"`
}

// jobEnvelope is the upstream's job representation. closing_at is epoch
// seconds and may be absent.
type jobEnvelope struct {
	ID        string `json:"id"`
	AppID     string `json:"app_id"`
	State     string `json:"state"`
	ClosingAt int64  `json:"closing_at"`
}

func (e *jobEnvelope) toJob() *Job {
	j := &Job{ID: e.ID, AppID: e.AppID, State: e.State}
	if e.ClosingAt > 0 {
		j.ClosingAt = time.Unix(e.ClosingAt, 0).UTC()
	}
	return j
}

// ---------------------------------------------------------------------------
// Bulk mode
// ---------------------------------------------------------------------------

// CreateJob opens a new bulk job seeded with the given items.
func (c *Client) CreateJob(ctx context.Context, dt event.DataType, items []event.Item) (*Job, error) {
	release, err := c.claim(ctx, dt)
	if err != nil {
		return nil, err
	}
	defer release()

	job, err := c.postBulk(ctx, dt, bulkRequest{Items: items})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("opened bulk job",
		"data_type", string(dt),
		"job_id", job.ID,
		"closing_at", job.ClosingAt,
	)
	return job, nil
}

// AppendJob adds items to an existing bulk job.
func (c *Client) AppendJob(ctx context.Context, dt event.DataType, jobID string, items []event.Item) (*Job, error) {
	release, err := c.claim(ctx, dt)
	if err != nil {
		return nil, err
	}
	defer release()

	job, err := c.postBulk(ctx, dt, bulkRequest{Job: &jobRef{ID: jobID}, Items: items})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("appended to bulk job",
		"data_type", string(dt),
		"job_id", jobID,
		"items", len(items),
	)
	return job, nil
}

func (c *Client) postBulk(ctx context.Context, dt event.DataType, body bulkRequest) (*Job, error) {
	resp, err := c.post(ctx, "/bulk/"+string(dt), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp)
	}

	var env jobEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("coalesce/gateway: decode job envelope: %w", err)
	}
	return env.toJob(), nil
}

// ---------------------------------------------------------------------------
// Single-record mode
// ---------------------------------------------------------------------------

// SaveUser writes one user profile directly.
func (c *Client) SaveUser(ctx context.Context, data map[string]any) (*Response, error) {
	release, err := c.claim(ctx, event.DataTypeUsers)
	if err != nil {
		return nil, err
	}
	defer release()
	return c.postSingle(ctx, "/users", data)
}

// TrackEvent writes one event directly.
func (c *Client) TrackEvent(ctx context.Context, data map[string]any) (*Response, error) {
	release, err := c.claim(ctx, event.DataTypeEvents)
	if err != nil {
		return nil, err
	}
	defer release()
	return c.postSingle(ctx, "/events", data)
}

func (c *Client) postSingle(ctx context.Context, path string, data map[string]any) (*Response, error) {
	resp, err := c.post(ctx, path, data)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp)
	}

	out := &Response{StatusCode: resp.StatusCode}
	// Single-mode bodies are informational; decode best-effort.
	if err := json.NewDecoder(resp.Body).Decode(&out.Body); err != nil && !errors.Is(err, io.EOF) {
		c.logger.Debug("single-record response body not JSON", "path", path, "error", err)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Plumbing
// ---------------------------------------------------------------------------

// claim reserves a throttle slot for the call, keyed by data type and
// the workspace captured in the context. The returned func releases it.
func (c *Client) claim(ctx context.Context, dt event.DataType) (func(), error) {
	if c.throttle == nil {
		return func() {}, nil
	}
	workspace, _ := scope.Capture(ctx)
	if !c.throttle.Acquire(string(dt), workspace) {
		return nil, fmt.Errorf("%w: %s writes for workspace %q", coalesce.ErrThrottled, dt, workspace)
	}
	return func() { c.throttle.Release(string(dt), workspace) }, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("coalesce/gateway: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("coalesce/gateway: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coalesce/gateway: POST %s: %w", path, err)
	}
	return resp, nil
}

func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &APIError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("X-Request-Id"),
		Body:       strings.TrimSpace(string(body)),
	}
}
