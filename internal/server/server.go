package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/singleflight"

	"github.com/dshills/designsync/internal/github"
	"github.com/dshills/designsync/internal/meeting"
	"github.com/dshills/designsync/internal/review"
)

//go:embed static/meeting.html
var staticFS embed.FS

const (
	defaultReviewTimeout = 10 * time.Minute
	shutdownTimeout      = 30 * time.Second
	maxBodyBytes         = 5 << 20
)

// Reviewer runs one pull-request review.
type Reviewer interface {
	Run(ctx context.Context, ref github.PRRef) (*review.Result, error)
}

// MeetingRunner runs one meeting analysis.
type MeetingRunner interface {
	Run(ctx context.Context, in meeting.Input) (*meeting.Result, error)
}

// Options configures a Server.
type Options struct {
	Addr string
	// WebhookSecret enables X-Hub-Signature-256 verification when non-empty.
	WebhookSecret string
	Reviewer      Reviewer
	Meetings      MeetingRunner
	// Context is the parent of background reviews; it carries the logger.
	// Defaults to context.Background().
	Context       context.Context
	ReviewTimeout time.Duration
}

// Server serves the webhook, the meeting form, health and metrics.
type Server struct {
	opts    Options
	handler http.Handler
	group   singleflight.Group
	wg      sync.WaitGroup
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.ReviewTimeout <= 0 {
		opts.ReviewTimeout = defaultReviewTimeout
	}
	s := &Server{opts: opts}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("GET /meeting", s.handleMeetingForm)
	mux.HandleFunc("POST /meeting", s.handleMeeting)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "ok")
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	s.handler = securityHeaders(s.logRequests(mux))
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Wait blocks until every background review has finished.
func (s *Server) Wait() { s.wg.Wait() }

// ListenAndServe serves on Options.Addr until ctx is done, then shuts down
// gracefully and waits for background reviews.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log := clog.FromContext(ctx)
	log.With("addr", s.opts.Addr).Info("designsync listening")
	if strings.HasPrefix(s.opts.Addr, ":") || strings.Contains(s.opts.Addr, "0.0.0.0") {
		log.Warn("Server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info("Shutting down, waiting for in-flight reviews")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		s.Wait()
		return err
	}
}

// startReview runs the review for ref in the background. Deliveries for the
// same head commit join a review that is still running; a new head starts its
// own.
func (s *Server) startReview(ref github.PRRef, headSHA string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		key := ref.String()
		if headSHA != "" {
			key += "@" + headSHA
		}
		_, err, shared := s.group.Do(key, func() (any, error) {
			ctx, cancel := context.WithTimeout(s.opts.Context, s.opts.ReviewTimeout)
			defer cancel()
			return s.opts.Reviewer.Run(ctx, ref)
		})
		log := clog.FromContext(s.opts.Context).With("pr", ref.String()).With("head", headSHA).With("shared", shared)
		if err != nil {
			log.With("error", err).Error("Background review failed")
			return
		}
		log.Info("Background review finished")
	}()
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		ctx := clog.WithLogger(r.Context(), clog.FromContext(s.opts.Context))
		next.ServeHTTP(rec, r.WithContext(ctx))
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			return
		}
		clog.FromContext(ctx).With("method", r.Method).
			With("path", r.URL.Path).
			With("status", rec.status).
			With("elapsed", time.Since(start)).
			Info("HTTP request")
	})
}
