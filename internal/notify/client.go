package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"wkfmanager/internal/config"
	"wkfmanager/pkg/logging"
)

const notifySubsystem = "Notify"

// Notifier reports the outcome of transitions to the requester.
type Notifier interface {
	Notify(ctx context.Context, origin string, reason Reason, data Data)
}

// Message is the body posted to the origin.
type Message struct {
	Message string `json:"message"`
}

// EncodeMessage returns the wire form of a notification: the JSON message
// object wrapped in a JSON string, which is what existing receivers decode.
func EncodeMessage(msg string) ([]byte, error) {
	inner, err := json.Marshal(Message{Message: msg})
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(inner))
}

// DecodeMessage accepts a notification body either as the message object or
// as a JSON string holding it.
func DecodeMessage(body []byte) (Message, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Message{}, fmt.Errorf("invalid notification body: %w", err)
	}

	var inner string
	if err := json.Unmarshal(raw, &inner); err == nil {
		raw = json.RawMessage(inner)
	}

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("invalid notification body: %w", err)
	}
	return msg, nil
}

// Client posts notifications to http://{origin}:{port}{path}. Delivery is
// best-effort: failures are logged and never returned.
type Client struct {
	httpClient *http.Client
	port       int
	path       string
	disabled   bool
	templates  *MessageTemplateEngine
}

// NewClient creates a notification client from the notifications config.
func NewClient(cfg config.NotificationConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		port:       cfg.Port,
		path:       cfg.Path,
		disabled:   cfg.Disabled,
		templates:  NewMessageTemplateEngine(),
	}
}

// Templates returns the template engine so callers can override messages.
func (c *Client) Templates() *MessageTemplateEngine {
	return c.templates
}

// URL returns the notification endpoint of an origin.
func (c *Client) URL(origin string) string {
	return "http://" + origin + ":" + strconv.Itoa(c.port) + c.path
}

// Notify renders the message for reason and posts it to origin.
func (c *Client) Notify(ctx context.Context, origin string, reason Reason, data Data) {
	msg := c.templates.Render(reason, data)
	if c.disabled || origin == "" {
		logging.Debug(notifySubsystem, "Not sending notification: %s", msg)
		return
	}

	if err := c.send(ctx, origin, msg); err != nil {
		logging.Warn(notifySubsystem, "Notification to %s failed (%s): %v", origin, msg, err)
		return
	}
	logging.Debug(notifySubsystem, "Notified %s: %s", origin, msg)
}

func (c *Client) send(ctx context.Context, origin, msg string) error {
	body, err := EncodeMessage(msg)
	if err != nil {
		return err
	}

	// Do not let a cancelled request context drop the final notification.
	ctx = context.WithoutCancel(ctx)
	if c.httpClient.Timeout == 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(origin), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
