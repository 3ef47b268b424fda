package review

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/designsync/internal/config"
	"github.com/dshills/designsync/internal/confluence"
	"github.com/dshills/designsync/internal/github"
	"github.com/dshills/designsync/internal/llm"
	"github.com/dshills/designsync/internal/metrics"
	"github.com/dshills/designsync/internal/output"
	"github.com/dshills/designsync/internal/redact"
)

const pipelineName = "review"

// Result is the outcome of one review run.
type Result = output.ReviewReport

// PullRequests is the source-hosting API the pipeline needs.
type PullRequests interface {
	GetChangeset(ctx context.Context, ref github.PRRef) (*github.Changeset, error)
	PostComment(ctx context.Context, ref github.PRRef, body string) (string, error)
}

// Documents is the document API the pipeline needs.
type Documents interface {
	FetchPage(ctx context.Context, pageURL string) (*confluence.Page, error)
}

// Options tunes a Pipeline.
type Options struct {
	// DryRun builds the comment without posting it.
	DryRun        bool
	MaxDiffBytes  int
	RedactSecrets bool
	RedactPaths   []string
	Profile       llm.Profile
	// ModelName is shown in the comment footer.
	ModelName string
}

// OptionsFromConfig derives pipeline options from the loaded config.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		MaxDiffBytes:  cfg.Review.MaxDiffBytes,
		RedactSecrets: cfg.Review.RedactSecrets,
		RedactPaths:   cfg.Review.RedactPaths,
		Profile:       Profile(cfg.Model),
		ModelName:     cfg.Model.Name,
	}
}

// Pipeline reviews pull requests against their design documents.
type Pipeline struct {
	prs   PullRequests
	docs  Documents
	model llm.Completer
	opts  Options
}

// NewPipeline creates a review pipeline.
func NewPipeline(prs PullRequests, docs Documents, model llm.Completer, opts Options) *Pipeline {
	if opts.Profile.System == "" {
		opts.Profile = Profile(config.Default().Model)
	}
	return &Pipeline{prs: prs, docs: docs, model: model, opts: opts}
}

// Run reviews one pull request. A pull request without a design document
// link yields Success=false and no error. On failure a best-effort error
// comment is posted and the original error is returned.
func (p *Pipeline) Run(ctx context.Context, ref github.PRRef) (*Result, error) {
	start := time.Now()
	runID := ulid.Make().String()

	ctx, span := otel.Tracer("designsync/review").Start(ctx, "review.run", trace.WithAttributes(
		attribute.String("pr", ref.String()),
		attribute.String("run_id", runID),
	))
	defer span.End()

	log := clog.FromContext(ctx).With("run_id", runID).With("pr", ref.String())
	ctx = clog.WithLogger(ctx, log)

	res := &Result{RunID: runID, PR: ref.String(), Model: p.opts.ModelName, DryRun: p.opts.DryRun}
	err := p.run(ctx, ref, res)
	res.ElapsedMs = time.Since(start).Milliseconds()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.ObservePipeline(pipelineName, metrics.OutcomeError, start)
		log.With("error", err).Error("Review failed")

		res.Error = err.Error()
		p.notifyFailure(ctx, ref, res)
		return nil, err
	}

	outcome := metrics.OutcomeSuccess
	if !res.Success {
		outcome = metrics.OutcomeSkipped
	}
	metrics.ObservePipeline(pipelineName, outcome, start)
	log.With("success", res.Success).With("elapsed_ms", res.ElapsedMs).Info("Review complete")
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, ref github.PRRef, res *Result) error {
	cs, err := p.prs.GetChangeset(ctx, ref)
	if err != nil {
		return fmt.Errorf("fetching changeset: %w", err)
	}
	res.PRTitle = cs.Title
	res.PRURL = cs.URL
	for _, f := range cs.Files {
		res.Files = append(res.Files, output.FileChange{Path: f.Path, Additions: f.Additions, Deletions: f.Deletions})
	}

	docURL, ok := ExtractDesignDocURL(cs.Description)
	if !ok {
		clog.FromContext(ctx).Info("No design document linked")
		res.Message = MissingDesignDocMessage
		return p.comment(ctx, ref, res)
	}
	res.DocumentURL = docURL

	doc, err := p.docs.FetchPage(ctx, docURL)
	if err != nil {
		return fmt.Errorf("fetching design document: %w", err)
	}
	res.DocumentTitle = doc.Title
	res.DocumentVersion = doc.Version

	diff := cs.Diff
	if p.opts.RedactSecrets {
		diff, res.Redactions = redact.Diff(diff, p.opts.RedactPaths)
	}
	diff, res.Truncated = TruncateDiff(diff, p.opts.MaxDiffBytes)

	resp, err := p.model.Complete(ctx, p.opts.Profile.Request(BuildPrompt(cs, doc, diff)))
	if err != nil {
		return fmt.Errorf("model review: %w", err)
	}
	res.Review = resp.Content
	res.TokensUsed = resp.TokensUsed
	res.Success = true

	return p.comment(ctx, ref, res)
}

func (p *Pipeline) comment(ctx context.Context, ref github.PRRef, res *Result) error {
	res.Comment = output.RenderComment(res)
	if p.opts.DryRun {
		return nil
	}
	u, err := p.prs.PostComment(ctx, ref, res.Comment)
	if err != nil {
		return fmt.Errorf("posting review comment: %w", err)
	}
	res.CommentURL = u
	return nil
}

// notifyFailure posts an error comment; its own failure is only logged.
func (p *Pipeline) notifyFailure(ctx context.Context, ref github.PRRef, res *Result) {
	if p.opts.DryRun {
		return
	}
	if _, err := p.prs.PostComment(ctx, ref, output.RenderComment(res)); err != nil {
		clog.FromContext(ctx).With("error", err).Warn("Could not post failure notice")
	}
}

// BatchItem is the outcome of one pull request in a batch.
type BatchItem struct {
	Ref    github.PRRef
	Result *Result
	Err    error
}

// RunBatch reviews refs one after another. A failed item does not stop the
// batch; cancellation of ctx does.
func (p *Pipeline) RunBatch(ctx context.Context, refs []github.PRRef) []BatchItem {
	items := make([]BatchItem, 0, len(refs))
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			items = append(items, BatchItem{Ref: ref, Err: err})
			continue
		}
		res, err := p.Run(ctx, ref)
		items = append(items, BatchItem{Ref: ref, Result: res, Err: err})
	}
	return items
}
