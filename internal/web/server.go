package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samvad-hq/whatsnew-harvester/internal/changelog"
	"github.com/samvad-hq/whatsnew-harvester/internal/domain"
	"github.com/samvad-hq/whatsnew-harvester/internal/logger"
	"github.com/samvad-hq/whatsnew-harvester/pkg/sources"
)

// DefaultPagesPerRequest caps how many upstream pages one request may pull
// while looking for a visible note.
const DefaultPagesPerRequest = 5

// Catalog opens browsing sessions on configured sources.
type Catalog interface {
	List() []sources.Source
	Open(id string) (*changelog.Controller, sources.Source, error)
}

// Options configures a Server.
type Options struct {
	SessionTTL      time.Duration
	PagesPerRequest int
	Log             logger.Logger
}

// Server is the HTML and JSON front end over browsing sessions.
type Server struct {
	catalog  Catalog
	sessions *Sessions
	maxPages int
	log      logger.Logger
}

// NewServer builds a server over catalog.
func NewServer(catalog Catalog, opts Options) *Server {
	if opts.Log == nil {
		opts.Log = &logger.NopLogger{}
	}
	if opts.PagesPerRequest <= 0 {
		opts.PagesPerRequest = DefaultPagesPerRequest
	}
	return &Server{
		catalog:  catalog,
		sessions: NewSessions(opts.SessionTTL),
		maxPages: opts.PagesPerRequest,
		log:      opts.Log,
	}
}

// Sessions exposes the live session table.
func (s *Server) Sessions() *Sessions { return s.sessions }

// Router returns the HTTP routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Route("/sources/{sourceID}", func(r chi.Router) {
		r.Get("/", s.handleSourcePage)
		r.Get("/more", s.handleMore)
	})
	r.Get("/api/sources/{sourceID}/notes", s.handleNotesAPI)
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down and
// closes every session.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.sessions.RunSweeper(sweepCtx, 0, func(removed int) {
		s.log.DebugObj("expired sessions swept", "sessions_swept", map[string]any{
			"removed":   removed,
			"remaining": s.sessions.Len(),
		})
	})

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoObj("http server listening", "http_addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.sessions.CloseAll()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	err := srv.Shutdown(shutdownCtx)
	s.sessions.CloseAll()
	return err
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.DebugObj("http request", "http_request", map[string]any{
			"request_id":  middleware.GetReqID(r.Context()),
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"bytes":       ww.BytesWritten(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	srcs := s.catalog.List()
	if len(srcs) == 0 {
		s.renderError(w, r, http.StatusNotFound, "no sources configured")
		return
	}
	http.Redirect(w, r, "/sources/"+url.PathEscape(srcs[0].ID), http.StatusFound)
}

func (s *Server) handleSourcePage(w http.ResponseWriter, r *http.Request) {
	ctrl, src, err := s.catalog.Open(chi.URLParam(r, "sourceID"))
	if err != nil {
		s.renderError(w, r, http.StatusNotFound, err.Error())
		return
	}

	if _, err := ctrl.LoadVisible(r.Context(), s.maxPages); err != nil {
		ctrl.Close()
		s.logLoadError(src.ID, err)
		s.renderError(w, r, statusForLoadError(err), "could not load release notes")
		return
	}

	feed := ctrl.Snapshot()
	data := pageData{
		Source:  src,
		Sources: s.catalog.List(),
		Notes:   feed.Records,
		HasMore: feed.HasMore,
	}
	if feed.HasMore {
		data.Session = s.sessions.Create(src.ID, ctrl)
	} else {
		ctrl.Close()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := Page(data).Render(r.Context(), w); err != nil {
		s.log.ErrorObj("render page failed", "error", err)
	}
}

func (s *Server) handleMore(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "sourceID")
	session := r.URL.Query().Get("session")
	ctrl, ok := s.sessions.Get(session, sourceID)
	if !ok {
		http.Error(w, "session not found or expired", http.StatusNotFound)
		return
	}

	u, err := ctrl.LoadVisible(r.Context(), s.maxPages)
	if err != nil {
		s.logLoadError(sourceID, err)
		http.Error(w, "could not load release notes", statusForLoadError(err))
		return
	}
	if u.Skipped && u.State == changelog.Loading {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := Fragment(sourceID, session, u.Appended, ctrl.HasMore()).Render(r.Context(), w); err != nil {
		s.log.ErrorObj("render fragment failed", "error", err)
	}
}

// notesResponse is the JSON shape of the notes API.
type notesResponse struct {
	Session string                 `json:"session"`
	Notes   []domain.DisplayRecord `json:"notes"`
	HasMore bool                   `json:"has_more"`
	State   changelog.State        `json:"state"`
}

// handleNotesAPI returns the next visible batch. Without a session query
// parameter a new session is opened and its first batch returned.
func (s *Server) handleNotesAPI(w http.ResponseWriter, r *http.Request) {
	sourceID := chi.URLParam(r, "sourceID")
	session := r.URL.Query().Get("session")

	var ctrl *changelog.Controller
	if session == "" {
		c, src, err := s.catalog.Open(sourceID)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		ctrl = c
		session = s.sessions.Create(src.ID, ctrl)
	} else {
		c, ok := s.sessions.Get(session, sourceID)
		if !ok {
			writeJSONError(w, http.StatusNotFound, "session not found or expired")
			return
		}
		ctrl = c
	}

	u, err := ctrl.LoadVisible(r.Context(), s.maxPages)
	if err != nil {
		s.logLoadError(sourceID, err)
		writeJSONError(w, statusForLoadError(err), err.Error())
		return
	}

	notes := u.Appended
	if notes == nil {
		notes = []domain.DisplayRecord{}
	}
	writeJSON(w, http.StatusOK, notesResponse{
		Session: session,
		Notes:   notes,
		HasMore: ctrl.HasMore(),
		State:   ctrl.State(),
	})
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := ErrorPage(status, msg).Render(r.Context(), w); err != nil {
		s.log.ErrorObj("render error page failed", "error", err)
	}
}

func (s *Server) logLoadError(sourceID string, err error) {
	s.log.WarnObj("feed load failed", "feed_error", map[string]any{
		"source_id": sourceID,
		"error":     err.Error(),
	})
}

func statusForLoadError(err error) int {
	switch {
	case errors.Is(err, changelog.ErrClosed):
		return http.StatusGone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
