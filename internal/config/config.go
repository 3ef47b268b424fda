package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"

	"github.com/dshills/designsync/internal/apperr"
	"github.com/dshills/designsync/internal/retry"
)

// Model families.
const (
	FamilyChat      = "chat"
	FamilyResponses = "responses"
	FamilyMessages  = "messages"
)

// Config is the complete designsync configuration. It is built once at
// startup and passed explicitly to every client constructor.
type Config struct {
	Confluence  Confluence    `yaml:"confluence"`
	GitHub      GitHub        `yaml:"github"`
	Model       Model         `yaml:"model"`
	Review      Review        `yaml:"review"`
	Server      Server        `yaml:"server"`
	Retry       retry.Config  `yaml:"retry"`
	HTTPTimeout time.Duration `yaml:"httpTimeout" env:"HTTP_TIMEOUT,overwrite"`
	LogLevel    string        `yaml:"logLevel" env:"LOG_LEVEL,overwrite"`
}

// Confluence holds document-service settings.
type Confluence struct {
	BaseURL  string `yaml:"baseURL" env:"CONFLUENCE_BASE_URL,overwrite"`
	Email    string `yaml:"email" env:"CONFLUENCE_EMAIL,overwrite"`
	APIToken string `yaml:"apiToken" env:"CONFLUENCE_API_TOKEN,overwrite"`
}

// GitHub holds source-hosting settings.
type GitHub struct {
	Token  string `yaml:"token" env:"GITHUB_TOKEN,overwrite"`
	APIURL string `yaml:"apiURL" env:"GITHUB_API_URL,overwrite"`
}

// Model holds language-model settings.
type Model struct {
	// Family selects the wire format: chat, responses or messages.
	Family   string `yaml:"family" env:"MODEL_FAMILY,overwrite"`
	Endpoint string `yaml:"endpoint" env:"MODEL_ENDPOINT,overwrite"`
	APIKey   string `yaml:"apiKey" env:"MODEL_API_KEY,overwrite"`
	// APIVersion is the Azure api-version. For the chat family a non-empty
	// value switches to Azure deployment routing.
	APIVersion string `yaml:"apiVersion" env:"MODEL_API_VERSION,overwrite"`
	Name       string `yaml:"name" env:"MODEL_NAME,overwrite"`
	// TokenParam forces max_tokens or max_completion_tokens.
	TokenParam       string  `yaml:"tokenParam,omitempty" env:"MODEL_TOKEN_PARAM,overwrite"`
	Temperature      float64 `yaml:"temperature" env:"MODEL_TEMPERATURE,overwrite"`
	ReviewMaxTokens  int     `yaml:"reviewMaxTokens" env:"REVIEW_MAX_TOKENS,overwrite"`
	MeetingMaxTokens int     `yaml:"meetingMaxTokens" env:"MEETING_MAX_TOKENS,overwrite"`
}

// Review holds pull-request review settings.
type Review struct {
	MaxDiffBytes  int      `yaml:"maxDiffBytes" env:"REVIEW_MAX_DIFF_BYTES,overwrite"`
	RedactSecrets bool     `yaml:"redactSecrets" env:"REVIEW_REDACT_SECRETS,overwrite"`
	RedactPaths   []string `yaml:"redactPaths,omitempty" env:"REVIEW_REDACT_PATHS,overwrite"`
}

// Server holds HTTP service settings.
type Server struct {
	Addr          string `yaml:"addr" env:"SERVER_ADDR,overwrite"`
	WebhookSecret string `yaml:"webhookSecret,omitempty" env:"WEBHOOK_SECRET,overwrite"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		GitHub: GitHub{APIURL: "https://api.github.com"},
		Model: Model{
			Family:           FamilyChat,
			Name:             "gpt-4o",
			Temperature:      0.2,
			ReviewMaxTokens:  4000,
			MeetingMaxTokens: 6000,
		},
		Review: Review{
			MaxDiffBytes:  200000,
			RedactSecrets: true,
			RedactPaths:   []string{"**/.env", "**/*secrets*"},
		},
		Server:      Server{Addr: ":8080"},
		Retry:       retry.Default(),
		HTTPTimeout: 120 * time.Second,
		LogLevel:    "info",
	}
}

// ConfigDir returns the platform-appropriate config directory.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "designsync"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "designsync"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "designsync"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "designsync"), nil
	default:
		return filepath.Join(home, ".config", "designsync"), nil
	}
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadOptions controls where Load reads from.
type LoadOptions struct {
	// Path is an explicit config file. When empty the default path is used
	// and a missing file is not an error.
	Path string
	// Lookuper resolves environment variables. Defaults to the process env.
	Lookuper envconfig.Lookuper
	// Overrides come from CLI flags; only non-empty values are applied.
	Overrides map[string]string
}

// Load builds the effective config by merging defaults <- file <- env <-
// overrides.
func Load(ctx context.Context, opts LoadOptions) (Config, error) {
	cfg := Default()

	path, explicit := opts.Path, opts.Path != ""
	if !explicit {
		p, err := ConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}
	if err := mergeFile(&cfg, path, explicit); err != nil {
		return Config{}, err
	}

	l := opts.Lookuper
	if l == nil {
		l = envconfig.OsLookuper()
	}
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return Config{}, fmt.Errorf("processing environment: %w", err)
	}

	if err := mergeOverrides(&cfg, opts.Overrides); err != nil {
		return Config{}, err
	}
	if err := cfg.Retry.Validate(); err != nil {
		return Config{}, fmt.Errorf("retry config: %w", err)
	}

	cfg.Confluence.BaseURL = strings.TrimRight(cfg.Confluence.BaseURL, "/")
	cfg.GitHub.APIURL = strings.TrimRight(cfg.GitHub.APIURL, "/")
	cfg.Model.Endpoint = strings.TrimRight(cfg.Model.Endpoint, "/")
	return cfg, nil
}

func mergeFile(cfg *Config, path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	// Fields absent from the file keep their current values.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for key, v := range overrides {
		if v == "" {
			continue
		}
		switch key {
		case "family":
			cfg.Model.Family = v
		case "model":
			cfg.Model.Name = v
		case "addr":
			cfg.Server.Addr = v
		case "logLevel":
			cfg.LogLevel = v
		case "maxDiffBytes":
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("maxDiffBytes must be an integer: %w", err)
			}
			cfg.Review.MaxDiffBytes = n
		case "redactSecrets":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("redactSecrets must be a boolean: %w", err)
			}
			cfg.Review.RedactSecrets = b
		default:
			return fmt.Errorf("unknown config override: %s", key)
		}
	}
	return nil
}

// Section names a group of settings a command depends on.
type Section string

const (
	SectionConfluence Section = "confluence"
	SectionGitHub     Section = "github"
	SectionModel      Section = "model"
)

// Require returns a CONFIGURATION error listing every setting the given
// sections need but do not have.
func (c Config) Require(sections ...Section) error {
	var missing []string
	check := func(v, name string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	for _, s := range sections {
		switch s {
		case SectionConfluence:
			check(c.Confluence.BaseURL, "CONFLUENCE_BASE_URL")
			check(c.Confluence.Email, "CONFLUENCE_EMAIL")
			check(c.Confluence.APIToken, "CONFLUENCE_API_TOKEN")
		case SectionGitHub:
			check(c.GitHub.Token, "GITHUB_TOKEN")
		case SectionModel:
			check(c.Model.APIKey, "MODEL_API_KEY")
			check(c.Model.Name, "MODEL_NAME")
			switch c.Model.Family {
			case FamilyChat:
				if c.Model.APIVersion != "" {
					check(c.Model.Endpoint, "MODEL_ENDPOINT")
				}
			case FamilyMessages:
			case FamilyResponses:
				check(c.Model.Endpoint, "MODEL_ENDPOINT")
				check(c.Model.APIVersion, "MODEL_API_VERSION")
			default:
				missing = append(missing, fmt.Sprintf("MODEL_FAMILY (unknown family %q)", c.Model.Family))
			}
		}
	}
	if len(missing) > 0 {
		return apperr.NewConfiguration(missing)
	}
	return nil
}

// Masked returns a copy with secrets replaced, for display.
func (c Config) Masked() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "********"
	}
	c.Confluence.APIToken = mask(c.Confluence.APIToken)
	c.GitHub.Token = mask(c.GitHub.Token)
	c.Model.APIKey = mask(c.Model.APIKey)
	c.Server.WebhookSecret = mask(c.Server.WebhookSecret)
	return c
}

// Save writes cfg as YAML to path, creating the directory if needed.
func Save(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
