package confluence

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dshills/designsync/internal/apperr"
	"github.com/dshills/designsync/internal/config"
	"github.com/dshills/designsync/internal/retry"
)

const (
	service         = "confluence"
	apiPath         = "/wiki/api/v2"
	defaultTimeout  = 120 * time.Second
	maxResponseSize = 10 << 20
)

// Client talks to one Confluence site.
type Client struct {
	siteURL string
	apiURL  string
	auth    string
	httpCli *http.Client
	retry   retry.Config
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpCli = h }
}

// WithRetry sets the retry policy applied to reads.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithClock sets the time source used for section timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a Client. Base URL, email and API token are all required.
func New(cfg config.Confluence, opts ...Option) (*Client, error) {
	var missing []string
	if cfg.BaseURL == "" {
		missing = append(missing, "CONFLUENCE_BASE_URL")
	}
	if cfg.Email == "" {
		missing = append(missing, "CONFLUENCE_EMAIL")
	}
	if cfg.APIToken == "" {
		missing = append(missing, "CONFLUENCE_API_TOKEN")
	}
	if len(missing) > 0 {
		return nil, apperr.NewConfiguration(missing)
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid confluence base URL %q", cfg.BaseURL)
	}

	site := strings.TrimRight(cfg.BaseURL, "/")
	c := &Client{
		siteURL: site,
		apiURL:  site + apiPath,
		auth:    "Basic " + base64.StdEncoding.EncodeToString([]byte(cfg.Email+":"+cfg.APIToken)),
		httpCli: &http.Client{Timeout: defaultTimeout},
		retry:   retry.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// do sends one request and decodes a 2xx JSON body into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		rdr = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, rdr)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpCli.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperr.NewTransport(service, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return apperr.NewTransport(service, fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, respBody)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding confluence response: %w", err)
	}
	return nil
}

type errorBody struct {
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
	Message string `json:"message"`
}

func statusError(status int, body []byte) error {
	if status != http.StatusBadRequest {
		return apperr.FromStatus(service, status, string(body))
	}
	var eb errorBody
	var fieldErrors []string
	if json.Unmarshal(body, &eb) == nil {
		for _, e := range eb.Errors {
			msg := e.Title
			if e.Detail != "" {
				if msg != "" {
					msg += ": "
				}
				msg += e.Detail
			}
			if msg != "" {
				fieldErrors = append(fieldErrors, msg)
			}
		}
		if len(fieldErrors) == 0 && eb.Message != "" {
			fieldErrors = append(fieldErrors, eb.Message)
		}
	}
	return apperr.NewValidation("confluence rejected the request", fieldErrors)
}
