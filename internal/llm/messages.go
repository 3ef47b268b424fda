package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dshills/designsync/internal/config"
)

// messagesBackend speaks the Anthropic messages API.
type messagesBackend struct {
	client anthropic.Client
	model  string
}

func newMessagesBackend(cfg config.Model, httpCli *http.Client) *messagesBackend {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpCli),
		option.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(cfg.Endpoint, "/")+"/"))
	}
	return &messagesBackend{client: anthropic.NewClient(opts...), model: cfg.Name}
}

func (b *messagesBackend) complete(ctx context.Context, req Request) ([]byte, int, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{{
			Role:    anthropic.MessageParamRoleUser,
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(req.User)},
		}},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	msg, err := b.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		status := 0
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return nil, 0, mapSDKError(ctx, "model", status, err)
	}
	return []byte(msg.RawJSON()), int(msg.Usage.InputTokens + msg.Usage.OutputTokens), nil
}
