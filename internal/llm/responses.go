package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/chainguard-dev/clog"

	"github.com/dshills/designsync/internal/apperr"
	"github.com/dshills/designsync/internal/config"
)

const maxResponseSize = 10 << 20

// responsesBackend speaks the Azure responses endpoint, which has no system
// slot: the system prompt is folded into the user text.
type responsesBackend struct {
	url     string
	apiKey  string
	model   string
	httpCli *http.Client
}

func newResponsesBackend(cfg config.Model, httpCli *http.Client) (*responsesBackend, error) {
	if cfg.Endpoint == "" {
		return nil, apperr.NewConfiguration([]string{"MODEL_ENDPOINT"})
	}
	if cfg.APIVersion == "" {
		return nil, apperr.NewConfiguration([]string{"MODEL_API_VERSION"})
	}
	u := strings.TrimRight(cfg.Endpoint, "/") + "/openai/responses?api-version=" + url.QueryEscape(cfg.APIVersion)
	return &responsesBackend{url: u, apiKey: cfg.APIKey, model: cfg.Name, httpCli: httpCli}, nil
}

type responsesRequest struct {
	Model string           `json:"model"`
	Input []responsesInput `json:"input"`
}

type responsesInput struct {
	Role    string             `json:"role"`
	Content []responsesPart `json:"content"`
}

type responsesPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responsesUsage struct {
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (b *responsesBackend) complete(ctx context.Context, req Request) ([]byte, int, error) {
	text := req.User
	if req.System != "" {
		text = req.System + "\n\n" + req.User
	}
	body := responsesRequest{
		Model: b.model,
		Input: []responsesInput{{
			Role:    "user",
			Content: []responsesPart{{Type: "input_text", Text: text}},
		}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", b.apiKey)

	httpResp, err := b.httpCli.Do(httpReq)
	if err != nil {
		return nil, 0, mapSDKError(ctx, "model", 0, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, 0, apperr.NewTransport("model", fmt.Errorf("reading response: %w", err))
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, 0, apperr.FromStatus("model", httpResp.StatusCode, string(respBody))
	}

	// Usage is optional; an undecodable body is still normalized by the caller.
	var usage responsesUsage
	if err := json.Unmarshal(respBody, &usage); err != nil {
		clog.FromContext(ctx).With("error", err).Debug("Responses usage not decoded")
	}
	return respBody, usage.Usage.TotalTokens, nil
}
