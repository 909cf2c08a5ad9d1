package contract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wkfmanager/internal/api"
	"wkfmanager/internal/catalog"
	"wkfmanager/pkg/logging"
)

const contractSubsystem = "Contract"

// maxErrorBody caps how much of a failed response is kept in errors.
const maxErrorBody = 512

// ResponseError reports a component answering with an unexpected status.
type ResponseError struct {
	Method string
	URL    string
	Status int
	Body   string
}

// Error implements the error interface for ResponseError.
func (e *ResponseError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Client talks to the HTTP contract every ordinary component implements:
//
//	GET    /health                   -> 200
//	PUT    /workflow-requests/{id}   -> 201
//	PUT    /workflow-update/{id}     -> 200
//	DELETE /workflow-requests/{id}   -> 204
//
// Specs are sent as a JSON string holding the encoded spec, which is what
// the components decode.
type Client struct {
	httpClient *http.Client
	host       string
}

// NewClient creates a contract client. When host is empty, instances are
// addressed by service name and target port on the cluster network;
// otherwise by host and published port.
func NewClient(timeout time.Duration, host string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		host:       host,
	}
}

// BaseURL returns the root URL of an instance.
func (c *Client) BaseURL(inst catalog.Instance) string {
	if c.host != "" {
		return "http://" + c.host + ":" + strconv.Itoa(inst.PublishedPort)
	}
	return "http://" + inst.Name + ":" + strconv.Itoa(inst.TargetPort)
}

// Health probes GET /health once.
func (c *Client) Health(ctx context.Context, inst catalog.Instance) error {
	return c.do(ctx, http.MethodGet, c.BaseURL(inst)+"/health", nil, http.StatusOK)
}

// Assign hands a workflow spec to an instance. An instance that already
// holds the storeId (409) is treated as assigned.
func (c *Client) Assign(ctx context.Context, inst catalog.Instance, storeID string, spec api.WorkflowSpec) error {
	body, err := encodeSpec(spec)
	if err != nil {
		return err
	}
	err = c.do(ctx, http.MethodPut, c.BaseURL(inst)+"/workflow-requests/"+url.PathEscape(storeID), body, http.StatusCreated)
	if status(err) == http.StatusConflict {
		logging.Warn(contractSubsystem, "%s already holds workflow %s", inst.Name, storeID)
		return nil
	}
	return err
}

// Update replaces the workflow spec an instance holds.
func (c *Client) Update(ctx context.Context, inst catalog.Instance, storeID string, spec api.WorkflowSpec) error {
	body, err := encodeSpec(spec)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPut, c.BaseURL(inst)+"/workflow-update/"+url.PathEscape(storeID), body, http.StatusOK)
}

// Unassign removes a workflow spec from an instance. An instance that does
// not hold the storeId (404) is treated as unassigned.
func (c *Client) Unassign(ctx context.Context, inst catalog.Instance, storeID string) error {
	err := c.do(ctx, http.MethodDelete, c.BaseURL(inst)+"/workflow-requests/"+url.PathEscape(storeID), nil, http.StatusNoContent)
	if status(err) == http.StatusNotFound {
		return nil
	}
	return err
}

func (c *Client) do(ctx context.Context, method, target string, body []byte, want int) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to build request %s %s: %w", method, target, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &ResponseError{
			Method: method,
			URL:    target,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(data)),
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func encodeSpec(spec api.WorkflowSpec) ([]byte, error) {
	inner, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow spec: %w", err)
	}
	return json.Marshal(string(inner))
}

func status(err error) int {
	if re, ok := err.(*ResponseError); ok {
		return re.Status
	}
	return 0
}
