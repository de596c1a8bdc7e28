package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fwojciec/unfurl"
	"github.com/fwojciec/unfurl/extract"
)

// DefaultPreviewTimeout bounds the extraction done by the preview handler.
const DefaultPreviewTimeout = 5 * time.Second

// Server serves link previews as JSON.
type Server struct {
	server *http.Server
	router *http.ServeMux

	// Engine answers ad-hoc previews.
	Engine *extract.Engine

	// Resolver serves stored short links. Link routes return 404 when nil.
	Resolver *extract.Resolver

	// Links supplies cached metadata when a preview times out. Optional.
	Links unfurl.LinkService

	// PreviewTimeout bounds ad-hoc previews.
	PreviewTimeout time.Duration

	Logger *slog.Logger
}

// NewServer creates a server listening on addr.
func NewServer(addr string, engine *extract.Engine, resolver *extract.Resolver) *Server {
	s := &Server{
		router:         http.NewServeMux(),
		Engine:         engine,
		Resolver:       resolver,
		PreviewTimeout: DefaultPreviewTimeout,
		Logger:         slog.New(slog.DiscardHandler),
	}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /api/v1/preview", s.handlePreview)
	s.router.HandleFunc("GET /api/v1/links/{code}", s.handleLink)
	return s
}

// Handler returns the server's request router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the server and blocks until it stops. It returns
// nil after a graceful Shutdown.
func (s *Server) ListenAndServe() error {
	s.Logger.Info("starting preview server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("stopping preview server")
	return s.server.Shutdown(ctx)
}

// previewResponse is the body returned for ad-hoc previews.
type previewResponse struct {
	URL      string                    `json:"url"`
	Metadata unfurl.PageMetadata       `json:"metadata"`
	Weak     bool                      `json:"weak"`
	TimedOut bool                      `json:"timedOut,omitempty"`
	Attempt  *unfurl.ExtractionAttempt `json:"attempt,omitempty"`
}

// linkResponse is the body returned for stored links.
type linkResponse struct {
	Link      *unfurl.LinkRecord        `json:"link"`
	Weak      bool                      `json:"weak"`
	Refreshed bool                      `json:"refreshed"`
	TimedOut  bool                      `json:"timedOut,omitempty"`
	Attempt   *unfurl.ExtractionAttempt `json:"attempt,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePreview extracts metadata for the url query parameter. When the
// extraction outlives PreviewTimeout the stored record for the URL, or a
// placeholder, is served instead.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		s.writeError(w, r, unfurl.Errorf(unfurl.EINVALID, "url parameter required"))
		return
	}
	target, err := unfurl.NormalizeURL(raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	trace := boolParam(r, "trace")

	ctx, cancel := context.WithTimeout(r.Context(), s.previewTimeout())
	defer cancel()

	done := make(chan *extract.Result, 1)
	go func() {
		res, err := s.Engine.Extract(ctx, target)
		if err != nil {
			res = &extract.Result{Metadata: extract.InvalidURLMetadata(target), Weak: true}
		}
		done <- res
	}()

	select {
	case res := <-done:
		if ctx.Err() == nil {
			resp := previewResponse{URL: target, Metadata: res.Metadata, Weak: res.Weak}
			if trace {
				resp.Attempt = res.Attempt
			}
			s.writeJSON(w, http.StatusOK, resp)
			return
		}
	case <-ctx.Done():
	}

	s.writeJSON(w, http.StatusOK, s.cachedPreview(r.Context(), target))
}

// cachedPreview builds the response served when a preview times out.
func (s *Server) cachedPreview(ctx context.Context, target string) previewResponse {
	resp := previewResponse{URL: target, TimedOut: true}
	if s.Links != nil {
		if link, err := s.Links.FindLinkByURL(ctx, target); err == nil {
			resp.Metadata = link.Metadata
		}
	}
	resp.Metadata.Merge(&unfurl.PageMetadata{
		Title:   unfurl.PlaceholderTitle(unfurl.Host(target)),
		Favicon: unfurl.DefaultFavicon(target),
	})
	resp.Weak = unfurl.IsWeak(&resp.Metadata)
	return resp
}

// handleLink serves a stored link. The crawler and force query parameters
// select the refresh context.
func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	if s.Resolver == nil {
		s.writeError(w, r, unfurl.Errorf(unfurl.ENOTFOUND, "link store not configured"))
		return
	}
	rc := unfurl.RefreshContext{
		IsCrawler: boolParam(r, "crawler"),
		Forced:    boolParam(r, "force"),
	}

	res, err := s.Resolver.Resolve(r.Context(), r.PathValue("code"), rc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := linkResponse{
		Link:      res.Link,
		Weak:      unfurl.IsWeak(&res.Link.Metadata),
		Refreshed: res.Refreshed,
		TimedOut:  res.TimedOut,
	}
	if boolParam(r, "trace") {
		resp.Attempt = res.Attempt
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("encoding response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := unfurl.ErrorCode(err)
	status := ErrorStatusCode(code)
	if status == http.StatusInternalServerError {
		s.Logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, status, map[string]string{
		"code":  code,
		"error": unfurl.ErrorMessage(err),
	})
}

// ErrorStatusCode maps an error code to an HTTP status.
func ErrorStatusCode(code string) int {
	switch code {
	case unfurl.EINVALID:
		return http.StatusBadRequest
	case unfurl.ENOTFOUND:
		return http.StatusNotFound
	case unfurl.ETIMEOUT:
		return http.StatusGatewayTimeout
	case unfurl.EUNAVAILABLE:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) previewTimeout() time.Duration {
	if s.PreviewTimeout <= 0 {
		return DefaultPreviewTimeout
	}
	return s.PreviewTimeout
}

func boolParam(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
