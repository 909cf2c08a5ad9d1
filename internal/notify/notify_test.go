package notify

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wkfmanager/internal/config"
)

func TestRender(t *testing.T) {
	engine := NewMessageTemplateEngine()

	tests := []struct {
		name   string
		reason Reason
		data   Data
		want   string
	}{
		{
			name:   "created",
			reason: ReasonWorkflowCreated,
			data:   Data{StoreID: "store-a", Method: "edge", Components: []string{"cass", "restocker"}},
			want:   "Workflow store-a deployed (edge: cass, restocker)",
		},
		{
			name:   "create failed",
			reason: ReasonWorkflowCreateFailed,
			data:   Data{StoreID: "store-a", Components: []string{"restocker"}, Error: "timeout"},
			want:   "Workflow store-a deployment failed for restocker: timeout",
		},
		{
			name:   "healthy persistent",
			reason: ReasonComponentHealthy,
			data:   Data{StoreID: "store-a", Component: "restocker", Instance: "restocker"},
			want:   "restocker is healthy for workflow store-a",
		},
		{
			name:   "healthy edge",
			reason: ReasonComponentHealthy,
			data:   Data{StoreID: "store-a", Component: "restocker", Instance: "restocker2"},
			want:   "restocker is healthy as restocker2 for workflow store-a",
		},
		{
			name:   "timed out",
			reason: ReasonComponentTimedOut,
			data:   Data{StoreID: "store-a", Component: "cass", Attempts: 9},
			want:   "cass did not become healthy after 9 attempts for workflow store-a",
		},
		{
			name:   "unknown reason",
			reason: Reason("Mystery"),
			data:   Data{StoreID: "store-a"},
			want:   "Mystery for workflow store-a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.Render(tt.reason, tt.data))
		})
	}
}

func TestSetTemplate(t *testing.T) {
	engine := NewMessageTemplateEngine()
	require.NoError(t, engine.SetTemplate(ReasonWorkflowDeleted, `{{.StoreID | upper}} gone`))
	assert.Equal(t, "STORE-A gone", engine.Render(ReasonWorkflowDeleted, Data{StoreID: "store-a"}))

	assert.Error(t, engine.SetTemplate(ReasonWorkflowDeleted, `{{.StoreID`))
}

func TestClientNotify(t *testing.T) {
	received := make(chan Message, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/results", r.URL.Path)
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(body), `"`), "body is a JSON string")
		msg, err := DecodeMessage(body)
		assert.NoError(t, err)
		received <- msg
	}))
	defer srv.Close()

	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	c := NewClient(config.NotificationConfig{Port: port, Path: "/results", Timeout: time.Second})
	assert.Equal(t, "http://"+host+":"+portStr+"/results", c.URL(host))

	c.Notify(context.Background(), host, ReasonWorkflowDeleted, Data{StoreID: "store-a"})

	select {
	case msg := <-received:
		assert.Equal(t, "Workflow store-a torn down", msg.Message)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not received")
	}
}

func TestClientNotifySwallowsFailures(t *testing.T) {
	c := NewClient(config.NotificationConfig{Port: 1, Path: "/results", Timeout: 100 * time.Millisecond})

	done := make(chan struct{})
	go func() {
		c.Notify(context.Background(), "127.0.0.1", ReasonWorkflowDeleted, Data{StoreID: "store-a"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify must return even when the origin is unreachable")
	}
}

func TestClientDisabled(t *testing.T) {
	var called atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
	}))
	defer srv.Close()

	_, portStr, _ := net.SplitHostPort(srv.Listener.Addr().String())
	port, _ := strconv.Atoi(portStr)

	c := NewClient(config.NotificationConfig{Port: port, Path: "/results", Timeout: time.Second, Disabled: true})
	c.Notify(context.Background(), "127.0.0.1", ReasonWorkflowDeleted, Data{StoreID: "store-a"})
	assert.False(t, called.Load())
}
