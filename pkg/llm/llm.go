// Package llm talks to chat-completion style inference backends. A Client
// holds an ordered list of providers and falls through them on failure
// unless the caller opts out.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fintrack/pkg/metrics"

	"go.uber.org/zap"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is one completion call. Model may be empty to use the provider default.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

type Response struct {
	Content  string
	Usage    Usage
	Provider string
}

// Provider is a single inference backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// ErrNoProvider is returned when no backend is configured.
var ErrNoProvider = errors.New("no inference provider configured")

// StatusError is a non-2xx answer from a backend.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// StatusCode extracts the backend status from err, 0 when there is none.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

type callOptions struct {
	fallback bool
}

type CallOption func(*callOptions)

// WithoutFallback restricts the call to the primary provider.
func WithoutFallback() CallOption {
	return func(o *callOptions) { o.fallback = false }
}

type Client struct {
	providers []Provider
	logger    *zap.Logger
}

// NewClient builds a client; the first provider is the primary.
func NewClient(logger *zap.Logger, providers ...Provider) *Client {
	var ps []Provider
	for _, p := range providers {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return &Client{providers: ps, logger: logger}
}

// Configured reports whether at least one provider is available.
func (c *Client) Configured() bool {
	return c != nil && len(c.providers) > 0
}

// Providers lists provider names in call order.
func (c *Client) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Complete runs req against the primary provider and, unless disabled, each
// fallback in turn. There are no retries of the same provider. When every
// provider fails the primary's error is returned.
func (c *Client) Complete(ctx context.Context, req Request, opts ...CallOption) (*Response, error) {
	if !c.Configured() {
		return nil, ErrNoProvider
	}

	o := callOptions{fallback: true}
	for _, opt := range opts {
		opt(&o)
	}

	candidates := c.providers
	if !o.fallback {
		candidates = candidates[:1]
	}

	var firstErr error
	for i, p := range candidates {
		resp, err := c.call(ctx, p, req)
		if err == nil {
			if i > 0 {
				c.logger.Warn("Inference served by fallback provider",
					zap.String("provider", p.Name()),
					zap.NamedError("primary_error", firstErr),
				)
			}
			return resp, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		c.logger.Warn("Inference provider failed",
			zap.String("provider", p.Name()),
			zap.Int("status", StatusCode(err)),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, firstErr
}

func (c *Client) call(ctx context.Context, p Provider, req Request) (*Response, error) {
	start := time.Now()
	resp, err := p.Complete(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.LLMRequestDuration.WithLabelValues(p.Name(), outcome).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if resp.Provider == "" {
		resp.Provider = p.Name()
	}
	return resp, nil
}
