package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/careerwise/careerwise-hub/internal/domain/mentor"
	"github.com/careerwise/careerwise-hub/pkg/circuitbreaker"
	"github.com/careerwise/careerwise-hub/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type capturedChat struct {
	Model string `json:"model"`

	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`

	Stream *bool           `json:"stream"`
	Format json.RawMessage `json:"format"`
}

func chatServer(t *testing.T, reply string, seen *capturedChat) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		resp := map[string]any{
			"model":   "test-model",
			"message": map[string]string{"role": "assistant", "content": reply},
			"done":    true,
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server, mutate func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		BaseURL:          srv.URL,
		Model:            "test-model",
		Timeout:          2 * time.Second,
		Retries:          0,
		InitialBackoff:   time.Millisecond,
		BreakerThreshold: 5,
		BreakerReset:     time.Minute,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := NewClient(cfg, srv.Client(), logger.Nop())
	require.NoError(t, err)
	return c
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "not a url"}, nil, nil)
	assert.Error(t, err)
}

func TestClient_Chat(t *testing.T) {
	var seen capturedChat
	srv := chatServer(t, "  Keep going!  ", &seen)
	c := newTestClient(t, srv, nil)

	history := []mentor.Message{
		{Role: mentor.RoleUser, Content: "hi"},
		{Role: mentor.RoleMentor, Content: "hello"},
		{Role: mentor.RoleUser, Content: "what next?"},
	}
	reply, err := c.Chat(context.Background(), "you are a mentor", history)
	require.NoError(t, err)
	assert.Equal(t, "Keep going!", reply)

	assert.Equal(t, "test-model", seen.Model)
	require.NotNil(t, seen.Stream)
	assert.False(t, *seen.Stream)
	require.Len(t, seen.Messages, 4)
	assert.Equal(t, "system", seen.Messages[0].Role)
	assert.Equal(t, "you are a mentor", seen.Messages[0].Content)
	assert.Equal(t, "assistant", seen.Messages[2].Role)
	assert.Equal(t, "user", seen.Messages[3].Role)
}

func TestClient_GenerateJSON_SendsSchema(t *testing.T) {
	var seen capturedChat
	srv := chatServer(t, `{"title":"Intro"}`, &seen)
	c := newTestClient(t, srv, nil)

	schema := json.RawMessage(`{"type":"object"}`)
	out, err := c.GenerateJSON(context.Background(), "write a lesson", schema)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Intro"}`, string(out))
	assert.JSONEq(t, `{"type":"object"}`, string(seen.Format))
	require.Len(t, seen.Messages, 1)
	assert.Equal(t, "write a lesson", seen.Messages[0].Content)
}

func TestClient_EmptyReply(t *testing.T) {
	srv := chatServer(t, "   ", nil)
	c := newTestClient(t, srv, nil)

	_, err := c.Chat(context.Background(), "sys", nil)
	assert.ErrorIs(t, err, ErrEmptyReply)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": "ok"},
			"done":    true,
		})
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(t, srv, func(cfg *Config) { cfg.Retries = 2 })

	reply, err := c.Chat(context.Background(), "sys", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(t, srv, func(cfg *Config) { cfg.Retries = 3 })

	_, err := c.Chat(context.Background(), "sys", nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_BreakerOpens(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, `{"error":"boom"}`, http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	c := newTestClient(t, srv, func(cfg *Config) { cfg.BreakerThreshold = 1 })

	_, err := c.Chat(context.Background(), "sys", nil)
	require.Error(t, err)
	assert.Equal(t, circuitbreaker.StateOpen, c.BreakerState())

	_, err = c.Chat(context.Background(), "sys", nil)
	assert.True(t, errors.Is(err, circuitbreaker.ErrCircuitOpen))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestRetryable(t *testing.T) {
	assert.False(t, retryable(circuitbreaker.ErrCircuitOpen))
	assert.False(t, retryable(context.Canceled))
	assert.True(t, retryable(context.DeadlineExceeded))
	assert.True(t, retryable(errors.New("connection reset")))
}
