package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"

	"github.com/dshills/designsync/internal/config"
)

const defaultOpenAIURL = "https://api.openai.com/v1"

// chatBackend speaks OpenAI-compatible chat completions, directly or through
// an Azure deployment.
type chatBackend struct {
	client     openai.Client
	model      string
	tokenParam string
}

func newChatBackend(cfg config.Model, httpCli *http.Client) *chatBackend {
	opts := []option.RequestOption{
		option.WithHTTPClient(httpCli),
		option.WithMaxRetries(0),
	}
	if cfg.APIVersion != "" {
		// Routes to {endpoint}/openai/deployments/{model}/chat/completions.
		opts = append(opts, azure.WithEndpoint(cfg.Endpoint, cfg.APIVersion), azure.WithAPIKey(cfg.APIKey))
	} else {
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = defaultOpenAIURL
		}
		opts = append(opts, option.WithBaseURL(strings.TrimRight(endpoint, "/")+"/"), option.WithAPIKey(cfg.APIKey))
	}

	tp := cfg.TokenParam
	if tp == "" {
		tp = TokenParam(cfg.APIVersion)
	}
	return &chatBackend{client: openai.NewClient(opts...), model: cfg.Name, tokenParam: tp}
}

func (b *chatBackend) complete(ctx context.Context, req Request) ([]byte, int, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(b.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if b.tokenParam == ParamMaxCompletionTokens {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	} else {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		status := 0
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return nil, 0, mapSDKError(ctx, "model", status, err)
	}
	return []byte(completion.RawJSON()), int(completion.Usage.TotalTokens), nil
}
