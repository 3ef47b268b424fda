package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	gh "github.com/google/go-github/v84/github"
	"github.com/waigani/diffparser"
	"golang.org/x/oauth2"

	"github.com/dshills/designsync/internal/apperr"
	"github.com/dshills/designsync/internal/config"
	"github.com/dshills/designsync/internal/retry"
)

const (
	service        = "github"
	defaultAPIURL  = "https://api.github.com"
	defaultTimeout = 60 * time.Second
)

// PRRef identifies one pull request.
type PRRef struct {
	Owner  string
	Repo   string
	Number int
}

func (r PRRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// FileStat counts the lines a pull request adds to and removes from one file.
type FileStat struct {
	Path      string
	Additions int
	Deletions int
}

// Changeset is everything a review needs to know about a pull request.
type Changeset struct {
	PRRef
	Title       string
	Description string
	URL         string
	// Diff is the unified diff of the whole pull request.
	Diff  string
	Files []FileStat
}

// Client provides access to the GitHub REST API.
type Client struct {
	gh    *gh.Client
	retry retry.Config
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	timeout time.Duration
	retry   retry.Config
	base    http.RoundTripper
}

// WithTimeout sets the per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithRetry sets the retry policy for reads and comment posts.
func WithRetry(cfg retry.Config) Option {
	return func(o *clientOptions) { o.retry = cfg }
}

// WithTransport sets the transport under the token source.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.base = rt }
}

// New creates a GitHub client authenticated with cfg.Token.
func New(cfg config.GitHub, opts ...Option) (*Client, error) {
	if cfg.Token == "" {
		return nil, apperr.NewConfiguration([]string{"GITHUB_TOKEN"})
	}
	o := clientOptions{timeout: defaultTimeout, retry: retry.Default(), base: http.DefaultTransport}
	for _, opt := range opts {
		opt(&o)
	}

	httpCli := &http.Client{
		Timeout: o.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}),
			Base:   o.base,
		},
	}
	client := gh.NewClient(httpCli)

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	base, err := url.Parse(strings.TrimRight(apiURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL %q: %w", apiURL, err)
	}
	client.BaseURL = base

	return &Client{gh: client, retry: o.retry}, nil
}

// GetChangeset fetches the pull request's metadata and unified diff.
func (c *Client) GetChangeset(ctx context.Context, ref PRRef) (*Changeset, error) {
	pr, err := retry.Do(ctx, c.retry, "github get pull request", retry.Retryable, func() (*gh.PullRequest, error) {
		pr, _, err := c.gh.PullRequests.Get(ctx, ref.Owner, ref.Repo, ref.Number)
		return pr, mapError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching pull request %s: %w", ref, err)
	}

	diff, err := retry.Do(ctx, c.retry, "github get diff", retry.Retryable, func() (string, error) {
		d, _, err := c.gh.PullRequests.GetRaw(ctx, ref.Owner, ref.Repo, ref.Number, gh.RawOptions{Type: gh.Diff})
		return d, mapError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching diff for %s: %w", ref, err)
	}

	cs := &Changeset{
		PRRef:       ref,
		Title:       pr.GetTitle(),
		Description: pr.GetBody(),
		URL:         pr.GetHTMLURL(),
		Diff:        diff,
		Files:       FileStats(diff),
	}
	clog.FromContext(ctx).With("pr", ref.String()).With("files", len(cs.Files)).Info("Fetched pull request")
	return cs, nil
}

// PostComment adds a top-level comment to the pull request and returns its
// URL.
func (c *Client) PostComment(ctx context.Context, ref PRRef, body string) (string, error) {
	comment, err := retry.Do(ctx, c.retry, "github post comment", retry.Retryable, func() (*gh.IssueComment, error) {
		ic, _, err := c.gh.Issues.CreateComment(ctx, ref.Owner, ref.Repo, ref.Number, &gh.IssueComment{
			Body: gh.Ptr(body),
		})
		return ic, mapError(err)
	})
	if err != nil {
		return "", fmt.Errorf("posting comment on %s: %w", ref, err)
	}
	return comment.GetHTMLURL(), nil
}

// FileStats derives per-file line counts from a unified diff. An unparseable
// diff yields no stats.
func FileStats(diff string) []FileStat {
	if strings.TrimSpace(diff) == "" {
		return nil
	}
	parsed, err := diffparser.Parse(diff)
	if err != nil {
		return nil
	}
	stats := make([]FileStat, 0, len(parsed.Files))
	for _, f := range parsed.Files {
		s := FileStat{Path: f.NewName}
		if s.Path == "" {
			s.Path = f.OrigName
		}
		for _, h := range f.Hunks {
			for _, l := range h.WholeRange.Lines {
				switch l.Mode {
				case diffparser.ADDED:
					s.Additions++
				case diffparser.REMOVED:
					s.Deletions++
				}
			}
		}
		stats = append(stats, s)
	}
	return stats
}

// mapError converts go-github errors into apperr values.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var rl *gh.RateLimitError
	if errors.As(err, &rl) {
		return apperr.FromStatus(service, http.StatusTooManyRequests, rl.Message)
	}
	var abuse *gh.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return apperr.FromStatus(service, http.StatusTooManyRequests, abuse.Message)
	}
	var er *gh.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		return apperr.FromStatus(service, er.Response.StatusCode, er.Message)
	}
	return apperr.NewTransport(service, err)
}

var (
	repoRe  = regexp.MustCompile(`^([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+)$`)
	prURLRe = regexp.MustCompile(`^https?://[^/]+/([^/]+)/([^/]+)/pull/(\d+)`)
)

// ParseRepo splits "owner/repo".
func ParseRepo(s string) (owner, repo string, err error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".git")
	if m := repoRe.FindStringSubmatch(s); m != nil {
		return m[1], m[2], nil
	}
	return "", "", fmt.Errorf("expected owner/repo, got %q", s)
}

// ParsePRURL extracts a PRRef from a pull request web URL.
func ParsePRURL(s string) (PRRef, error) {
	m := prURLRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return PRRef{}, fmt.Errorf("not a pull request URL: %s", s)
	}
	n, err := strconv.Atoi(m[3])
	if err != nil {
		return PRRef{}, fmt.Errorf("invalid pull request number in %s: %w", s, err)
	}
	return PRRef{Owner: m[1], Repo: m[2], Number: n}, nil
}
