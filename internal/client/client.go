package client

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

	"wkfmanager/internal/api"
)

// DefaultTimeout bounds one request. A create waits for every component to
// pass its health checks, which can take over a minute.
const DefaultTimeout = 3 * time.Minute

// StatusError is returned when the engine answers with an unexpected status.
// Message holds the plain text error body.
type StatusError struct {
	Method  string
	Path    string
	Status  int
	Message string
}

// Error implements the error interface for StatusError.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("%d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// StatusCode returns the HTTP status of a StatusError, or 0 for other errors.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// Options configures a Client.
type Options struct {
	// Timeout of one request; 0 selects DefaultTimeout
	Timeout time.Duration

	// EncodeTwice sends request bodies as a JSON string holding the encoded
	// spec, as the legacy restaurant owner client does.
	EncodeTwice bool
}

// Client talks to the workflow engine REST API.
type Client struct {
	endpoint    string
	httpClient  *http.Client
	encodeTwice bool
}

// New creates a client for the engine at endpoint, e.g. http://localhost:8080.
func New(endpoint string, opts Options) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid endpoint %q: scheme must be http or https", endpoint)
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Client{
		endpoint:    strings.TrimRight(endpoint, "/"),
		httpClient:  &http.Client{Timeout: opts.Timeout},
		encodeTwice: opts.EncodeTwice,
	}, nil
}

// Endpoint returns the engine base URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Health checks that the engine is reachable.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, http.StatusOK, nil)
}

// Create deploys a new workflow and returns the committed spec.
func (c *Client) Create(ctx context.Context, storeID string, spec api.WorkflowSpec) (api.WorkflowSpec, error) {
	var out api.WorkflowSpec
	err := c.do(ctx, http.MethodPut, "/workflow-requests/"+url.PathEscape(storeID), &spec, http.StatusCreated, &out)
	return out, err
}

// Update replaces the spec of an existing workflow and returns the committed spec.
func (c *Client) Update(ctx context.Context, storeID string, spec api.WorkflowSpec) (api.WorkflowSpec, error) {
	var out api.WorkflowSpec
	err := c.do(ctx, http.MethodPut, "/workflow-update/"+url.PathEscape(storeID), &spec, http.StatusOK, &out)
	return out, err
}

// Delete tears a workflow down.
func (c *Client) Delete(ctx context.Context, storeID string) error {
	return c.do(ctx, http.MethodDelete, "/workflow-requests/"+url.PathEscape(storeID), nil, http.StatusNoContent, nil)
}

// Get returns one registered workflow.
func (c *Client) Get(ctx context.Context, storeID string) (api.WorkflowSpec, error) {
	var out api.WorkflowSpec
	err := c.do(ctx, http.MethodGet, "/workflow-requests/"+url.PathEscape(storeID), nil, http.StatusOK, &out)
	return out, err
}

// List returns every registered workflow keyed by storeId.
func (c *Client) List(ctx context.Context) (map[string]api.WorkflowSpec, error) {
	out := map[string]api.WorkflowSpec{}
	err := c.do(ctx, http.MethodGet, "/workflow-requests", nil, http.StatusOK, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, spec *api.WorkflowSpec, want int, out interface{}) error {
	var body io.Reader
	if spec != nil {
		raw, err := c.encode(*spec)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if spec != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != want {
		return &StatusError{
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(data)),
		}
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) encode(spec api.WorkflowSpec) ([]byte, error) {
	raw, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow spec: %w", err)
	}
	if c.encodeTwice {
		return json.Marshal(string(raw))
	}
	return raw, nil
}
