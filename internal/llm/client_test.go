package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dshills/designsync/internal/apperr"
	"github.com/dshills/designsync/internal/config"
	"github.com/dshills/designsync/internal/retry"
)

const chatReply = `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o",
	"choices":[{"index":0,"message":{"role":"assistant","content":"review text"},"finish_reason":"stop"}],
	"usage":{"prompt_tokens":30,"completion_tokens":20,"total_tokens":50}}`

func fastRetry() Option {
	return WithRetry(retry.Config{MaxRetries: 2, BaseBackoff: time.Millisecond})
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	b, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decoding body %s: %v", b, err)
	}
	return m
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(config.Model{Name: "m"}); !apperr.Is(err, apperr.CodeConfiguration) {
		t.Errorf("missing key: err = %v", err)
	}
	if _, err := New(config.Model{APIKey: "k", Name: "m", Family: "bogus"}); err == nil {
		t.Error("expected error for unknown family")
	}
	if _, err := New(config.Model{APIKey: "k", Name: "m", Family: config.FamilyResponses}); !apperr.Is(err, apperr.CodeConfiguration) {
		t.Errorf("responses without endpoint: err = %v", err)
	}
}

func TestChat_OpenAI(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Path = %q, want /chat/completions", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		body = decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatReply))
	}))
	defer srv.Close()

	c, err := New(config.Model{Family: config.FamilyChat, Endpoint: srv.URL, APIKey: "test-key", Name: "gpt-4o"}, fastRetry())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	resp, err := c.Complete(context.Background(), Request{System: "sys", User: "usr", MaxTokens: 100, Temperature: 0.3})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if resp.Content != "review text" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.TokensUsed != 50 {
		t.Errorf("TokensUsed = %d, want 50", resp.TokensUsed)
	}

	if body["model"] != "gpt-4o" {
		t.Errorf("model = %v", body["model"])
	}
	if body["max_tokens"] != float64(100) {
		t.Errorf("max_tokens = %v, want 100", body["max_tokens"])
	}
	if _, ok := body["max_completion_tokens"]; ok {
		t.Error("max_completion_tokens sent without a new API version")
	}
	msgs, _ := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("messages = %v, want system and user", body["messages"])
	}
	if m, _ := msgs[0].(map[string]any); m["role"] != "system" {
		t.Errorf("first message role = %v, want system", m["role"])
	}
}

func TestChat_AzureDeployment(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("Path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("api-version"); got != "2024-10-21" {
			t.Errorf("api-version = %q", got)
		}
		if r.Header.Get("api-key") != "azure-key" {
			t.Errorf("api-key = %q", r.Header.Get("api-key"))
		}
		body = decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatReply))
	}))
	defer srv.Close()

	c, err := New(config.Model{
		Family:     config.FamilyChat,
		Endpoint:   srv.URL,
		APIKey:     "azure-key",
		APIVersion: "2024-10-21",
		Name:       "gpt-4o",
	}, fastRetry())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if _, err := c.Complete(context.Background(), Request{System: "s", User: "u", MaxTokens: 64}); err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if body["max_completion_tokens"] != float64(64) {
		t.Errorf("max_completion_tokens = %v, want 64", body["max_completion_tokens"])
	}
	if _, ok := body["max_tokens"]; ok {
		t.Error("max_tokens sent for a post-2024-08-01 API version")
	}
}

func TestChat_TokenParamOverride(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body = decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatReply))
	}))
	defer srv.Close()

	c, _ := New(config.Model{Endpoint: srv.URL, APIKey: "k", Name: "o3", TokenParam: ParamMaxCompletionTokens}, fastRetry())
	if _, err := c.Complete(context.Background(), Request{User: "u", MaxTokens: 10}); err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if body["max_completion_tokens"] != float64(10) {
		t.Errorf("override ignored: %v", body)
	}
}

func TestChat_RetriesRateLimit(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"slow down"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatReply))
	}))
	defer srv.Close()

	c, _ := New(config.Model{Endpoint: srv.URL, APIKey: "k", Name: "gpt-4o"}, fastRetry())
	if _, err := c.Complete(context.Background(), Request{User: "u"}); err != nil {
		t.Fatalf("Complete error after retry: %v", err)
	}
	if attempts.Load() != 2 {
		t.Errorf("attempts = %d, want 2", attempts.Load())
	}
}

func TestResponses(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/responses" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("api-version"); got != "2025-04-01-preview" {
			t.Errorf("api-version = %q", got)
		}
		if r.Header.Get("api-key") != "k" {
			t.Errorf("api-key = %q", r.Header.Get("api-key"))
		}
		body = decodeBody(t, r)
		w.Write([]byte(`{"output":[{"type":"message","content":[{"type":"output_text","text":"resp text"}]}],"usage":{"total_tokens":7}}`))
	}))
	defer srv.Close()

	c, err := New(config.Model{
		Family:     config.FamilyResponses,
		Endpoint:   srv.URL + "/",
		APIKey:     "k",
		APIVersion: "2025-04-01-preview",
		Name:       "gpt-5",
	}, fastRetry())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	resp, err := c.Complete(context.Background(), Request{System: "SYS", User: "USR"})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if resp.Content != "resp text" || resp.TokensUsed != 7 {
		t.Errorf("resp = %+v", resp)
	}

	input := body["input"].([]any)[0].(map[string]any)
	if input["role"] != "user" {
		t.Errorf("role = %v, want user", input["role"])
	}
	part := input["content"].([]any)[0].(map[string]any)
	if part["type"] != "input_text" || part["text"] != "SYS\n\nUSR" {
		t.Errorf("content part = %v", part)
	}
}

func TestResponses_NonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain answer"))
	}))
	defer srv.Close()

	c, err := New(config.Model{
		Family:     config.FamilyResponses,
		Endpoint:   srv.URL,
		APIKey:     "k",
		APIVersion: "2025-04-01-preview",
		Name:       "gpt-5",
	}, fastRetry())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	resp, err := c.Complete(context.Background(), Request{System: "SYS", User: "USR"})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if resp.Content != "plain answer" || resp.TokensUsed != 0 {
		t.Errorf("resp = %+v, want plain answer with no usage", resp)
	}
}

func TestResponses_ServerErrorExhaustsRetries(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, _ := New(config.Model{Family: config.FamilyResponses, Endpoint: srv.URL, APIKey: "k", APIVersion: "v", Name: "m"}, fastRetry())
	_, err := c.Complete(context.Background(), Request{User: "u"})
	if !apperr.Is(err, apperr.CodeUpstream) {
		t.Errorf("err = %v, want upstream", err)
	}
	if attempts.Load() != 3 {
		t.Errorf("attempts = %d, want 3", attempts.Load())
	}
}

func TestMessages(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("Path = %q", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "ant-key" {
			t.Errorf("x-api-key = %q", r.Header.Get("x-api-key"))
		}
		body = decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5",
			"content":[{"type":"text","text":"from "},{"type":"text","text":"claude"}],
			"stop_reason":"end_turn","usage":{"input_tokens":10,"output_tokens":5}}`))
	}))
	defer srv.Close()

	c, err := New(config.Model{Family: config.FamilyMessages, Endpoint: srv.URL, APIKey: "ant-key", Name: "claude-sonnet-4-5"}, fastRetry())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	resp, err := c.Complete(context.Background(), Request{System: "be terse", User: "hi", MaxTokens: 200})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if resp.Content != "from claude" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.TokensUsed != 15 {
		t.Errorf("TokensUsed = %d, want 15", resp.TokensUsed)
	}
	if body["max_tokens"] != float64(200) {
		t.Errorf("max_tokens = %v", body["max_tokens"])
	}
	if body["system"] == nil {
		t.Error("system prompt not sent in the system slot")
	}
}

func TestMessages_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	c, _ := New(config.Model{Family: config.FamilyMessages, Endpoint: srv.URL, APIKey: "bad", Name: "m"}, fastRetry())
	_, err := c.Complete(context.Background(), Request{User: "u"})
	if !apperr.Is(err, apperr.CodeUnauthorized) {
		t.Errorf("err = %v, want unauthorized", err)
	}
}

func TestProfile_Request(t *testing.T) {
	p := Profile{Name: "review", System: "sys", MaxTokens: 4000, Temperature: 0.2}
	req := p.Request("user prompt")
	if req.System != "sys" || req.User != "user prompt" || req.MaxTokens != 4000 || req.Temperature != 0.2 {
		t.Errorf("req = %+v", req)
	}
}
