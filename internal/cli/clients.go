package cli

import (
	"net/http"

	"github.com/dshills/designsync/internal/config"
	"github.com/dshills/designsync/internal/confluence"
	"github.com/dshills/designsync/internal/github"
	"github.com/dshills/designsync/internal/llm"
	"github.com/dshills/designsync/internal/meeting"
	"github.com/dshills/designsync/internal/review"
)

func newConfluence(cfg config.Config) (*confluence.Client, error) {
	return confluence.New(cfg.Confluence,
		confluence.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		confluence.WithRetry(cfg.Retry),
	)
}

func newGitHub(cfg config.Config) (*github.Client, error) {
	return github.New(cfg.GitHub,
		github.WithTimeout(cfg.HTTPTimeout),
		github.WithRetry(cfg.Retry),
	)
}

func newModel(cfg config.Config) (*llm.Client, error) {
	return llm.New(cfg.Model,
		llm.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		llm.WithRetry(cfg.Retry),
	)
}

func newReviewPipeline(cfg config.Config, dryRun bool) (*review.Pipeline, error) {
	if err := cfg.Require(config.SectionGitHub, config.SectionConfluence, config.SectionModel); err != nil {
		return nil, err
	}
	gh, err := newGitHub(cfg)
	if err != nil {
		return nil, err
	}
	docs, err := newConfluence(cfg)
	if err != nil {
		return nil, err
	}
	model, err := newModel(cfg)
	if err != nil {
		return nil, err
	}
	opts := review.OptionsFromConfig(cfg)
	opts.DryRun = dryRun
	return review.NewPipeline(gh, docs, model, opts), nil
}

func newMeetingPipeline(cfg config.Config, dryRun bool, sectionTitle string) (*meeting.Pipeline, error) {
	if err := cfg.Require(config.SectionConfluence, config.SectionModel); err != nil {
		return nil, err
	}
	docs, err := newConfluence(cfg)
	if err != nil {
		return nil, err
	}
	model, err := newModel(cfg)
	if err != nil {
		return nil, err
	}
	opts := meeting.OptionsFromConfig(cfg)
	opts.DryRun = dryRun
	opts.SectionTitle = sectionTitle
	return meeting.NewPipeline(docs, model, opts), nil
}
