// Package ollama implements the mentor language model on top of the Ollama
// chat API. Every call runs through a circuit breaker and is retried with
// backoff while the breaker stays closed.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/careerwise/careerwise-hub/internal/domain/mentor"
	"github.com/careerwise/careerwise-hub/pkg/circuitbreaker"
	"github.com/careerwise/careerwise-hub/pkg/logger"
	"github.com/careerwise/careerwise-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains configuration for the Ollama client.
type Config struct {
	BaseURL string
	Model   string

	// Timeout bounds a single attempt.
	Timeout time.Duration

	// Retries is the number of extra attempts after the first.
	Retries        int
	InitialBackoff time.Duration

	BreakerThreshold int
	BreakerReset     time.Duration
}

// DefaultConfig returns local-development defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:          "http://localhost:11434",
		Model:            "llama3.2",
		Timeout:          60 * time.Second,
		Retries:          2,
		InitialBackoff:   500 * time.Millisecond,
		BreakerThreshold: 5,
		BreakerReset:     30 * time.Second,
	}
}

// ErrEmptyReply is returned when the model answers with no content.
var ErrEmptyReply = errors.New("ollama: empty reply")

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client implements mentor.Completer.
type Client struct {
	api     *api.Client
	http    *http.Client
	cfg     Config
	breaker *circuitbreaker.CircuitBreaker
	log     *logger.Logger
}

var _ mentor.Completer = (*Client)(nil)

// NewClient creates a client. A nil httpClient gets a pooled transport.
func NewClient(cfg Config, httpClient *http.Client, log *logger.Logger) (*Client, error) {
	def := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}

	u, err := url.ParseRequestURI(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("ollama: invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Component("ollama"))

	breaker := circuitbreaker.New(circuitbreaker.Config{
		Name:             "ollama",
		FailureThreshold: cfg.BreakerThreshold,
		Timeout:          cfg.BreakerReset,
		// caller cancellations say nothing about the model's health
		IsFailure: func(err error) bool {
			return !errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to circuitbreaker.State) {
			log.Warn("circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})

	return &Client{
		api:     api.NewClient(u, httpClient),
		http:    httpClient,
		cfg:     cfg,
		breaker: breaker,
		log:     log,
	}, nil
}

func defaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 15 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        20,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// BreakerState reports the circuit state, for readiness checks.
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.State()
}

// Chat sends the system prompt and history and returns the assistant reply.
func (c *Client) Chat(ctx context.Context, system string, history []mentor.Message) (string, error) {
	msgs := make([]api.Message, 0, len(history)+1)
	msgs = append(msgs, api.Message{Role: "system", Content: system})
	for _, m := range history {
		msgs = append(msgs, api.Message{Role: chatRole(m.Role), Content: m.Content})
	}

	reply, err := c.chat(ctx, msgs, nil)
	if err != nil {
		return "", err
	}
	return reply, nil
}

// GenerateJSON asks the model for a document constrained by schema.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, schema json.RawMessage) ([]byte, error) {
	format := schema
	if len(format) == 0 {
		format = json.RawMessage(`"json"`)
	}
	msgs := []api.Message{{Role: "user", Content: prompt}}

	reply, err := c.chat(ctx, msgs, format)
	if err != nil {
		return nil, err
	}
	return []byte(reply), nil
}

func (c *Client) chat(ctx context.Context, msgs []api.Message, format json.RawMessage) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model:    c.cfg.Model,
		Messages: msgs,
		Stream:   &stream,
		Format:   format,
	}

	opts := append(
		retry.MentorOptions(c.cfg.Retries+1, c.cfg.InitialBackoff),
		retry.WithRetryIf(retryable),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			c.log.Warn("mentor call failed, retrying",
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Err(err),
			)
		}),
	)

	start := time.Now()
	reply, err := retry.DoWithData(ctx, func(ctx context.Context) (string, error) {
		var out string
		err := c.breaker.Execute(ctx, func(ctx context.Context) error {
			attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
			defer cancel()

			var sb strings.Builder
			if err := c.api.Chat(attemptCtx, req, func(r api.ChatResponse) error {
				sb.WriteString(r.Message.Content)
				return nil
			}); err != nil {
				return err
			}
			out = strings.TrimSpace(sb.String())
			if out == "" {
				return ErrEmptyReply
			}
			return nil
		})
		return out, err
	}, opts...)
	if err != nil {
		c.log.Error("mentor call failed", logger.Err(err), logger.Latency(time.Since(start)))
		return "", err
	}

	c.log.Debug("mentor call completed",
		logger.String("model", c.cfg.Model),
		logger.Latency(time.Since(start)),
	)
	return reply, nil
}

// retryable rejects errors a second attempt cannot fix.
func retryable(err error) bool {
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var status api.StatusError
	if errors.As(err, &status) {
		return status.StatusCode >= 500 || status.StatusCode == http.StatusTooManyRequests
	}
	return true
}

func chatRole(r mentor.Role) string {
	if r == mentor.RoleMentor {
		return "assistant"
	}
	return "user"
}
