package server

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strings"

	"github.com/chainguard-dev/clog"
	gh "github.com/google/go-github/v84/github"

	"github.com/dshills/designsync/internal/apperr"
	"github.com/dshills/designsync/internal/github"
	"github.com/dshills/designsync/internal/meeting"
	"github.com/dshills/designsync/internal/metrics"
)

// Pull request actions that trigger a review.
var reviewActions = map[string]bool{
	"opened":      true,
	"synchronize": true,
	"edited":      true,
}

type errorBody struct {
	Error   string         `json:"error"`
	Code    apperr.Code    `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

type statusBody struct {
	Status string `json:"status"`
	PR     string `json:"pr,omitempty"`
	Event  string `json:"event,omitempty"`
	Action string `json:"action,omitempty"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	log := clog.FromContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	payload, err := s.validatePayload(r)
	if err != nil {
		status := http.StatusBadRequest
		if s.opts.WebhookSecret != "" {
			status = http.StatusUnauthorized
		}
		log.With("error", err).Warn("Rejected webhook delivery")
		writeJSON(w, status, errorBody{Error: "invalid webhook payload or signature", Code: apperr.CodeValidation})
		return
	}

	event := gh.WebHookType(r)
	if event == "ping" {
		metrics.WebhookEvents.WithLabelValues(event, "").Inc()
		writeJSON(w, http.StatusOK, statusBody{Status: "pong"})
		return
	}

	parsed, err := gh.ParseWebHook(event, payload)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(event, "").Inc()
		writeJSON(w, http.StatusOK, statusBody{Status: "ignored", Event: event})
		return
	}
	pr, ok := parsed.(*gh.PullRequestEvent)
	if !ok {
		metrics.WebhookEvents.WithLabelValues(event, "").Inc()
		writeJSON(w, http.StatusOK, statusBody{Status: "ignored", Event: event})
		return
	}

	action := pr.GetAction()
	metrics.WebhookEvents.WithLabelValues(event, action).Inc()
	if !reviewActions[action] {
		writeJSON(w, http.StatusOK, statusBody{Status: "ignored", Event: event, Action: action})
		return
	}

	ref := github.PRRef{
		Owner:  pr.GetRepo().GetOwner().GetLogin(),
		Repo:   pr.GetRepo().GetName(),
		Number: pr.GetNumber(),
	}
	if ref.Number == 0 {
		ref.Number = pr.GetPullRequest().GetNumber()
	}
	if ref.Owner == "" || ref.Repo == "" || ref.Number <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "pull_request event without repository or number", Code: apperr.CodeValidation})
		return
	}
	if s.opts.Reviewer == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "reviews are not configured", Code: apperr.CodeConfiguration})
		return
	}

	log.With("pr", ref.String()).With("action", action).Info("Queued review")
	s.startReview(ref, pr.GetPullRequest().GetHead().GetSHA())
	writeJSON(w, http.StatusAccepted, statusBody{Status: "accepted", PR: ref.String(), Action: action})
}

// validatePayload checks the signature when a secret is configured and
// returns the JSON payload for both JSON and form-encoded deliveries.
func (s *Server) validatePayload(r *http.Request) ([]byte, error) {
	if s.opts.WebhookSecret != "" {
		return gh.ValidatePayload(r, []byte(s.opts.WebhookSecret))
	}
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}
	return gh.ValidatePayloadFromBody(ct, r.Body, "", nil)
}

type meetingRequest struct {
	DocumentURL string `json:"confluence_design_document_url"`
	Summary     string `json:"meeting_summary"`
	Transcript  string `json:"meeting_transcript"`
}

func (s *Server) handleMeetingForm(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("static/meeting.html")
	if err != nil {
		http.Error(w, "form unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) handleMeeting(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	req, err := decodeMeetingRequest(r)
	if err != nil {
		writeError(w, apperr.NewValidation(err.Error(), nil))
		return
	}
	in := meeting.Input{DocumentURL: strings.TrimSpace(req.DocumentURL), Summary: req.Summary, Transcript: req.Transcript}
	if err := in.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if s.opts.Meetings == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "meeting analysis is not configured", Code: apperr.CodeConfiguration})
		return
	}

	res, err := s.opts.Meetings.Run(r.Context(), in)
	if err != nil {
		clog.FromContext(r.Context()).With("error", err).Error("Meeting request failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func decodeMeetingRequest(r *http.Request) (meetingRequest, error) {
	var req meetingRequest
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return req, errors.New("request body is not valid JSON")
		}
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return req, errors.New("request body is not a valid form")
		}
		req.DocumentURL = r.FormValue("confluence_design_document_url")
		req.Summary = r.FormValue("meeting_summary")
		req.Transcript = r.FormValue("meeting_transcript")
	default:
		return req, errors.New("content type must be application/json or a form encoding")
	}
	return req, nil
}

func writeError(w http.ResponseWriter, err error) {
	body := errorBody{Error: err.Error(), Code: apperr.CodeUpstream}
	if e, ok := apperr.As(err); ok {
		body.Code = e.Code
		body.Error = e.Message
		body.Details = e.Details
	}
	writeJSON(w, apperr.HTTPStatus(err), body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
