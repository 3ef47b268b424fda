package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/dshills/designsync/internal/apperr"
	"github.com/dshills/designsync/internal/config"
	"github.com/dshills/designsync/internal/metrics"
	"github.com/dshills/designsync/internal/retry"
)

const (
	defaultMaxTokens = 4096
	defaultTimeout   = 120 * time.Second
)

// Request is one prompt sent to the model.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
}

// Response is the normalized model output.
type Response struct {
	Content    string
	TokensUsed int
}

// Profile is the per-task part of a request: the system prompt and limits.
type Profile struct {
	Name        string
	System      string
	MaxTokens   int
	Temperature float64
}

// Request builds a Request for the given user prompt.
func (p Profile) Request(user string) Request {
	return Request{System: p.System, User: user, MaxTokens: p.MaxTokens, Temperature: p.Temperature}
}

// Completer is what the pipelines need from a model client.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// backend speaks one family's wire format and returns the raw body.
type backend interface {
	complete(ctx context.Context, req Request) (raw []byte, tokens int, err error)
}

// Client sends prompts to one configured model.
type Client struct {
	family  string
	model   string
	backend backend
	retry   retry.Config
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	httpCli *http.Client
	retry   retry.Config
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(o *clientOptions) { o.httpCli = h }
}

// WithRetry sets the retry policy.
func WithRetry(cfg retry.Config) Option {
	return func(o *clientOptions) { o.retry = cfg }
}

// New creates a Client for cfg.Family.
func New(cfg config.Model, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, apperr.NewConfiguration([]string{"MODEL_API_KEY"})
	}
	if cfg.Name == "" {
		return nil, apperr.NewConfiguration([]string{"MODEL_NAME"})
	}
	o := clientOptions{httpCli: &http.Client{Timeout: defaultTimeout}, retry: retry.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		b   backend
		err error
	)
	switch cfg.Family {
	case config.FamilyChat, "":
		b = newChatBackend(cfg, o.httpCli)
	case config.FamilyResponses:
		b, err = newResponsesBackend(cfg, o.httpCli)
	case config.FamilyMessages:
		b = newMessagesBackend(cfg, o.httpCli)
	default:
		return nil, fmt.Errorf("unknown model family: %s", cfg.Family)
	}
	if err != nil {
		return nil, err
	}

	family := cfg.Family
	if family == "" {
		family = config.FamilyChat
	}
	return &Client{family: family, model: cfg.Name, backend: b, retry: o.retry}, nil
}

// Family reports which wire format the client speaks.
func (c *Client) Family() string { return c.family }

// Complete sends req and returns the normalized content.
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}

	start := time.Now()
	resp, err := retry.Do(ctx, c.retry, "model "+c.family, retry.Retryable, func() (Response, error) {
		raw, tokens, err := c.backend.complete(ctx, req)
		if err != nil {
			return Response{}, err
		}
		content := strings.TrimSpace(ExtractContent(raw))
		if content == "" {
			return Response{}, &apperr.Error{Code: apperr.CodeUpstream, Message: "model returned empty content"}
		}
		return Response{Content: content, TokensUsed: tokens}, nil
	})
	if err != nil {
		metrics.ModelRequests.WithLabelValues(c.family, metrics.OutcomeError).Inc()
		return Response{}, err
	}
	metrics.ModelRequests.WithLabelValues(c.family, metrics.OutcomeSuccess).Inc()

	clog.FromContext(ctx).With("family", c.family).
		With("model", c.model).
		With("tokens", resp.TokensUsed).
		With("elapsed", time.Since(start)).
		Info("Model call complete")
	return resp, nil
}

// mapSDKError converts an SDK or transport error into an apperr value. status
// is the HTTP status the SDK reported, or 0 when the request never got one.
func mapSDKError(ctx context.Context, service string, status int, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.NewTransport(service, err)
	}
	if status > 0 {
		e := apperr.FromStatus(service, status, err.Error())
		e.Err = err
		return e
	}
	return apperr.NewTransport(service, err)
}
