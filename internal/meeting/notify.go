package meeting

import (
	"context"

	"github.com/chainguard-dev/clog"

	"github.com/dshills/designsync/internal/apperr"
)

// LogNotifier reports failed runs through the context logger, with a hint
// for the operator on what to do next.
type LogNotifier struct{}

// NotifyFailure implements Notifier.
func (LogNotifier) NotifyFailure(ctx context.Context, in Input, err error) {
	log := clog.FromContext(ctx).With("document_url", in.DocumentURL)
	var code apperr.Code
	if e, ok := apperr.As(err); ok {
		code = e.Code
		log = log.With("code", string(code))
	}
	log.With("hint", failureHint(code)).Warn("Meeting notes were not applied to the design document")
}

func failureHint(code apperr.Code) string {
	switch code {
	case apperr.CodeVersionConflict:
		return "the page changed during the run; submit the meeting notes again"
	case apperr.CodeNotFound:
		return "check that the design document URL points at an existing page"
	case apperr.CodeUnauthorized:
		return "check the Confluence and model credentials"
	case apperr.CodeValidation:
		return "the document service rejected the update; see the error details"
	default:
		return "retry later; the upstream service may be unavailable"
	}
}
