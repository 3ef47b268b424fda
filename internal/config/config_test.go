package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/dshills/designsync/internal/apperr"
)

func load(t *testing.T, env map[string]string, overrides map[string]string) Config {
	t.Helper()
	cfg, err := Load(context.Background(), LoadOptions{
		Path:      writeFile(t, ""),
		Lookuper:  envconfig.MapLookuper(env),
		Overrides: overrides,
	})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	return cfg
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Model.Family != FamilyChat {
		t.Errorf("Default family = %q, want %q", cfg.Model.Family, FamilyChat)
	}
	if cfg.Model.ReviewMaxTokens != 4000 {
		t.Errorf("Default review max tokens = %d, want 4000", cfg.Model.ReviewMaxTokens)
	}
	if cfg.Model.MeetingMaxTokens != 6000 {
		t.Errorf("Default meeting max tokens = %d, want 6000", cfg.Model.MeetingMaxTokens)
	}
	if !cfg.Review.RedactSecrets {
		t.Error("Default redactSecrets should be true")
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("Default addr = %q, want :8080", cfg.Server.Addr)
	}
	if cfg.HTTPTimeout != 120*time.Second {
		t.Errorf("Default timeout = %v, want 120s", cfg.HTTPTimeout)
	}
}

func TestLoad_Env(t *testing.T) {
	cfg := load(t, map[string]string{
		"CONFLUENCE_BASE_URL":   "https://acme.atlassian.net/",
		"CONFLUENCE_EMAIL":      "bot@acme.com",
		"CONFLUENCE_API_TOKEN":  "tok",
		"MODEL_FAMILY":          "responses",
		"MODEL_TEMPERATURE":     "0.7",
		"REVIEW_MAX_TOKENS":     "1234",
		"REVIEW_REDACT_SECRETS": "false",
		"REVIEW_REDACT_PATHS":   "a/**,b.txt",
		"RETRY_MAX":             "5",
		"HTTP_TIMEOUT":          "10s",
	}, nil)

	if cfg.Confluence.BaseURL != "https://acme.atlassian.net" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.Confluence.BaseURL)
	}
	if cfg.Model.Family != FamilyResponses {
		t.Errorf("Family = %q, want responses", cfg.Model.Family)
	}
	if cfg.Model.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", cfg.Model.Temperature)
	}
	if cfg.Model.ReviewMaxTokens != 1234 {
		t.Errorf("ReviewMaxTokens = %d, want 1234", cfg.Model.ReviewMaxTokens)
	}
	if cfg.Review.RedactSecrets {
		t.Error("RedactSecrets should be false from env")
	}
	if len(cfg.Review.RedactPaths) != 2 || cfg.Review.RedactPaths[1] != "b.txt" {
		t.Errorf("RedactPaths = %v", cfg.Review.RedactPaths)
	}
	if cfg.Retry.MaxRetries != 5 {
		t.Errorf("MaxRetries = %d, want 5", cfg.Retry.MaxRetries)
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("HTTPTimeout = %v, want 10s", cfg.HTTPTimeout)
	}
	// Unset env vars keep their defaults.
	if cfg.Model.MeetingMaxTokens != 6000 {
		t.Errorf("MeetingMaxTokens = %d, want default 6000", cfg.Model.MeetingMaxTokens)
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	_, err := Load(context.Background(), LoadOptions{
		Path:     writeFile(t, ""),
		Lookuper: envconfig.MapLookuper(map[string]string{"REVIEW_MAX_TOKENS": "lots"}),
	})
	if err == nil {
		t.Error("expected error for non-integer REVIEW_MAX_TOKENS")
	}
}

func TestLoad_Precedence(t *testing.T) {
	path := writeFile(t, "model:\n  name: file-model\n  family: messages\nlogLevel: debug\n")
	cfg, err := Load(context.Background(), LoadOptions{
		Path:      path,
		Lookuper:  envconfig.MapLookuper(map[string]string{"MODEL_NAME": "env-model"}),
		Overrides: map[string]string{"logLevel": "warn"},
	})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Model.Family != FamilyMessages {
		t.Errorf("Family = %q, want file value", cfg.Model.Family)
	}
	if cfg.Model.Name != "env-model" {
		t.Errorf("Name = %q, want env to beat file", cfg.Model.Name)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want override to beat file", cfg.LogLevel)
	}
	if cfg.Model.ReviewMaxTokens != 4000 {
		t.Errorf("ReviewMaxTokens = %d, want default kept", cfg.Model.ReviewMaxTokens)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(context.Background(), LoadOptions{
		Path:     filepath.Join(t.TempDir(), "nope.yaml"),
		Lookuper: envconfig.MapLookuper(nil),
	})
	if err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoad_DefaultPathMissingIsFine(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load(context.Background(), LoadOptions{Lookuper: envconfig.MapLookuper(nil)})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Model.Name != "gpt-4o" {
		t.Errorf("Name = %q, want default", cfg.Model.Name)
	}
}

func TestMergeOverrides(t *testing.T) {
	cfg := Default()
	err := mergeOverrides(&cfg, map[string]string{
		"family":        "messages",
		"model":         "claude-sonnet-4-5",
		"addr":          ":9000",
		"maxDiffBytes":  "1000",
		"redactSecrets": "false",
		"logLevel":      "",
	})
	if err != nil {
		t.Fatalf("mergeOverrides error: %v", err)
	}
	if cfg.Model.Family != "messages" || cfg.Model.Name != "claude-sonnet-4-5" {
		t.Errorf("model = %+v", cfg.Model)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Review.MaxDiffBytes != 1000 || cfg.Review.RedactSecrets {
		t.Errorf("review = %+v", cfg.Review)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("empty override should be ignored, LogLevel = %q", cfg.LogLevel)
	}
}

func TestMergeOverrides_Invalid(t *testing.T) {
	cfg := Default()
	if err := mergeOverrides(&cfg, map[string]string{"maxDiffBytes": "big"}); err == nil {
		t.Error("expected error for non-integer maxDiffBytes")
	}
	if err := mergeOverrides(&cfg, map[string]string{"nonexistent": "x"}); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestRequire(t *testing.T) {
	cfg := Default()
	err := cfg.Require(SectionConfluence, SectionModel)
	if !apperr.Is(err, apperr.CodeConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
	msg := err.Error()
	for _, name := range []string{"CONFLUENCE_BASE_URL", "CONFLUENCE_EMAIL", "CONFLUENCE_API_TOKEN", "MODEL_API_KEY"} {
		if !strings.Contains(msg, name) {
			t.Errorf("error %q does not name %s", msg, name)
		}
	}
	if strings.Contains(msg, "GITHUB_TOKEN") {
		t.Errorf("error %q names an unrequested section", msg)
	}

	cfg.Confluence = Confluence{BaseURL: "https://x", Email: "e", APIToken: "t"}
	cfg.Model.APIKey = "k"
	if err := cfg.Require(SectionConfluence, SectionModel); err != nil {
		t.Errorf("Require error: %v", err)
	}
}

func TestRequire_ResponsesNeedsEndpoint(t *testing.T) {
	cfg := Default()
	cfg.Model.Family = FamilyResponses
	cfg.Model.APIKey = "k"
	err := cfg.Require(SectionModel)
	if err == nil || !strings.Contains(err.Error(), "MODEL_ENDPOINT") {
		t.Errorf("err = %v, want MODEL_ENDPOINT missing", err)
	}
}

func TestRequire_UnknownFamily(t *testing.T) {
	cfg := Default()
	cfg.Model.Family = "bogus"
	cfg.Model.APIKey = "k"
	if err := cfg.Require(SectionModel); err == nil {
		t.Error("expected error for unknown family")
	}
}

func TestMasked(t *testing.T) {
	cfg := Default()
	cfg.Confluence.APIToken = "secret-token"
	cfg.Model.APIKey = "sk-123"
	m := cfg.Masked()
	if m.Confluence.APIToken == "secret-token" || m.Model.APIKey == "sk-123" {
		t.Error("secrets not masked")
	}
	if m.GitHub.Token != "" {
		t.Errorf("empty secret should stay empty, got %q", m.GitHub.Token)
	}
	if cfg.Model.APIKey != "sk-123" {
		t.Error("Masked modified the receiver")
	}
}

func TestConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-test")
	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir error: %v", err)
	}
	if dir != "/tmp/xdg-test/designsync" {
		t.Errorf("ConfigDir = %q, want %q", dir, "/tmp/xdg-test/designsync")
	}
	path, err := ConfigPath()
	if err != nil {
		t.Fatalf("ConfigPath error: %v", err)
	}
	if path != "/tmp/xdg-test/designsync/config.yaml" {
		t.Errorf("ConfigPath = %q", path)
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Model.Name = "saved-model"
	cfg.Retry.MaxRetries = 7
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	got, err := Load(context.Background(), LoadOptions{Path: path, Lookuper: envconfig.MapLookuper(nil)})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if got.Model.Name != "saved-model" {
		t.Errorf("Name = %q, want saved-model", got.Model.Name)
	}
	if got.Retry.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d, want 7", got.Retry.MaxRetries)
	}
	if got.Retry.BaseBackoff != time.Second {
		t.Errorf("BaseBackoff = %v, want 1s round-tripped", got.Retry.BaseBackoff)
	}
}
