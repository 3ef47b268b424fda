package meeting

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/designsync/internal/apperr"
	"github.com/dshills/designsync/internal/config"
	"github.com/dshills/designsync/internal/confluence"
	"github.com/dshills/designsync/internal/llm"
	"github.com/dshills/designsync/internal/metrics"
	"github.com/dshills/designsync/internal/output"
	"github.com/dshills/designsync/internal/redact"
)

const pipelineName = "meeting"

// Result is the outcome of one meeting run.
type Result = output.MeetingReport

// Input is one meeting to fold into a design document.
type Input struct {
	DocumentURL string
	Summary     string
	Transcript  string
}

// Validate checks that DocumentURL is an absolute http(s) URL and that there
// is some meeting text.
func (in Input) Validate() error {
	var errs []string
	if strings.TrimSpace(in.DocumentURL) == "" {
		errs = append(errs, "confluence_design_document_url is required")
	} else if u, err := url.Parse(in.DocumentURL); err != nil || !u.IsAbs() || u.Host == "" ||
		(u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, "confluence_design_document_url must be an absolute http or https URL")
	}
	if strings.TrimSpace(in.Summary) == "" && strings.TrimSpace(in.Transcript) == "" {
		errs = append(errs, "one of meeting_summary or meeting_transcript is required")
	}
	if len(errs) > 0 {
		return apperr.NewValidation("invalid meeting input", errs)
	}
	return nil
}

// Documents is the document API the pipeline needs.
type Documents interface {
	FetchPage(ctx context.Context, pageURL string) (*confluence.Page, error)
	Append(ctx context.Context, pageURL, additional, sectionTitle string) (*confluence.UpdateResult, error)
}

// Notifier is told about failed runs.
type Notifier interface {
	NotifyFailure(ctx context.Context, in Input, err error)
}

// Options tunes a Pipeline.
type Options struct {
	// DryRun analyzes the meeting without writing the document.
	DryRun        bool
	RedactSecrets bool
	Profile       llm.Profile
	// SectionTitle heads the appended section; empty uses the document
	// client's default.
	SectionTitle string
	Notifier     Notifier
}

// OptionsFromConfig derives pipeline options from the loaded config.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		RedactSecrets: cfg.Review.RedactSecrets,
		Profile:       Profile(cfg.Model),
		Notifier:      LogNotifier{},
	}
}

// Pipeline folds meeting notes into design documents.
type Pipeline struct {
	docs  Documents
	model llm.Completer
	opts  Options
}

// NewPipeline creates a meeting pipeline.
func NewPipeline(docs Documents, model llm.Completer, opts Options) *Pipeline {
	if opts.Profile.System == "" {
		opts.Profile = Profile(config.Default().Model)
	}
	return &Pipeline{docs: docs, model: model, opts: opts}
}

// Run analyzes one meeting and, when the model says the design changed,
// appends the update to the document. An unparseable model reply is not an
// error; the result is then unstructured and the document is left alone.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	runID := ulid.Make().String()

	ctx, span := otel.Tracer("designsync/meeting").Start(ctx, "meeting.run", trace.WithAttributes(
		attribute.String("document_url", in.DocumentURL),
		attribute.String("run_id", runID),
	))
	defer span.End()

	log := clog.FromContext(ctx).With("run_id", runID).With("document_url", in.DocumentURL)
	ctx = clog.WithLogger(ctx, log)

	res := &Result{RunID: runID, DocumentURL: in.DocumentURL, DryRun: p.opts.DryRun}
	err := p.run(ctx, in, res)
	res.ElapsedMs = time.Since(start).Milliseconds()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		outcome := metrics.OutcomeError
		if apperr.Is(err, apperr.CodeVersionConflict) {
			outcome = metrics.OutcomeConflict
		}
		metrics.ObservePipeline(pipelineName, outcome, start)
		log.With("error", err).Error("Meeting analysis failed")

		if p.opts.Notifier != nil {
			p.opts.Notifier.NotifyFailure(ctx, in, err)
		}
		return nil, err
	}

	outcome := metrics.OutcomeSuccess
	if !res.Updated {
		outcome = metrics.OutcomeSkipped
	}
	metrics.ObservePipeline(pipelineName, outcome, start)
	span.SetAttributes(attribute.Bool("updated", res.Updated))
	log.With("updated", res.Updated).With("elapsed_ms", res.ElapsedMs).Info("Meeting analysis complete")
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, in Input, res *Result) error {
	doc, err := p.docs.FetchPage(ctx, in.DocumentURL)
	if err != nil {
		return fmt.Errorf("fetching design document: %w", err)
	}
	res.DocumentTitle = doc.Title

	summary, transcript := in.Summary, in.Transcript
	if p.opts.RedactSecrets {
		summary, _ = redact.Secrets(summary)
		transcript, _ = redact.Secrets(transcript)
	}

	resp, err := p.model.Complete(ctx, p.opts.Profile.Request(BuildPrompt(doc, summary, transcript)))
	if err != nil {
		return fmt.Errorf("model analysis: %w", err)
	}

	a, perr := ParseAnalysis(resp.Content)
	if perr != nil {
		clog.FromContext(ctx).With("error", perr).Warn("Model reply was not JSON, using line scan")
	}
	res.Summary = a.Summary
	res.DesignChanges = a.DesignChanges
	res.ActionItems = a.ActionItems
	res.Reasoning = a.Reasoning
	res.Structured = a.Structured
	res.ShouldUpdate = a.ShouldUpdate && strings.TrimSpace(a.UpdatedContent) != ""

	if !res.ShouldUpdate {
		return nil
	}
	if p.opts.DryRun {
		metrics.DocumentWrites.WithLabelValues(metrics.OutcomeSkipped).Inc()
		return nil
	}

	upd, err := p.docs.Append(ctx, in.DocumentURL, a.UpdatedContent, p.opts.SectionTitle)
	if err != nil {
		outcome := metrics.OutcomeError
		if apperr.Is(err, apperr.CodeVersionConflict) {
			outcome = metrics.OutcomeConflict
		}
		metrics.DocumentWrites.WithLabelValues(outcome).Inc()
		return fmt.Errorf("updating design document: %w", err)
	}
	metrics.DocumentWrites.WithLabelValues(metrics.OutcomeSuccess).Inc()
	res.Updated = true
	res.NewVersion = upd.Version
	return nil
}
