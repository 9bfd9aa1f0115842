// Package server exposes analyzer sessions over HTTP. Each session wraps one
// page; clients exchange extractColors/scanContrast/highlightElement
// messages with it and follow colorsExtracted events as server-sent events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hashicorp/go-hclog"

	"github.com/jmylchreest/pagetint/internal/analyzer"
	"github.com/jmylchreest/pagetint/internal/security"
	"github.com/jmylchreest/pagetint/internal/store"
	"github.com/jmylchreest/pagetint/internal/version"
)

// DefaultMaxSessions applies when Options.MaxSessions is zero.
const DefaultMaxSessions = 16

// ErrTooManySessions is returned when the session limit is reached.
var ErrTooManySessions = errors.New("too many sessions")

// ErrSessionNotFound is returned for unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Options configures a Server.
type Options struct {
	Open OpenFunc

	Analyzer analyzer.Options
	Watch    analyzer.WatchOptions

	// AllowPrivate permits sessions on loopback and private addresses.
	AllowPrivate bool
	MaxSessions  int

	// Store records every extraction and audit when set.
	Store *store.Store

	Logger hclog.Logger
}

// Server holds the live sessions.
type Server struct {
	opts   Options
	logger hclog.Logger
	router chi.Router

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

// New creates a server.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}

	s := &Server{
		opts:     opts,
		logger:   opts.Logger.Named("server"),
		sessions: make(map[string]*session),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Status  string       `json:"status"`
			Version version.Info `json:"version"`
		}{"ok", version.GetInfo()})
	})
	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Delete("/", s.handleDelete)
			r.Post("/messages", s.handleMessage)
			r.Get("/events", s.handleEvents)
		})
	})
	s.router = r

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is done, then shuts down and
// ends every session.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Streams never finish on their own, so sessions end first.
	s.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// Close ends every session. Later session requests fail.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for id, sess := range sessions {
		if err := sess.stop(); err != nil {
			s.logger.Warn("failed to close session", "session", id, "error", err)
		}
	}
}

// Sessions returns the number of live sessions.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) session(id string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

type createRequest struct {
	URL    string `json:"url"`
	Source string `json:"source"`
}

type createResponse struct {
	ID string `json:"id"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if err := security.ValidatePageURL(req.URL, s.opts.AllowPrivate); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	s.mu.Lock()
	full := s.closed || len(s.sessions) >= s.opts.MaxSessions
	s.mu.Unlock()
	if full {
		writeError(w, http.StatusServiceUnavailable, ErrTooManySessions)
		return
	}

	sess, err := s.start(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrTooManySessions) {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{ID: sess.ID()})
}

// start opens the page, registers the session and launches its watcher.
func (s *Server) start(ctx context.Context, req createRequest) (*session, error) {
	source, closer, err := s.opts.Open(ctx, req.URL, req.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	opts := s.opts.Analyzer
	opts.Logger = s.logger
	a := analyzer.New(source, opts)

	watchCtx, cancel := context.WithCancel(context.Background())
	sess := &session{
		url:      req.URL,
		kind:     req.Source,
		analyzer: a,
		closer:   closer,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed || len(s.sessions) >= s.opts.MaxSessions {
		s.mu.Unlock()
		cancel()
		if closer != nil {
			_ = closer.Close()
		}
		return nil, ErrTooManySessions
	}
	s.sessions[sess.ID()] = sess
	s.mu.Unlock()

	var mutations <-chan struct{}
	if ms, ok := source.(analyzer.MutationSource); ok {
		if mutations, err = ms.Mutations(watchCtx); err != nil {
			s.logger.Warn("mutation tracking unavailable", "session", sess.ID(), "error", err)
		}
	}

	watch := s.opts.Watch
	watch.EmitOnChange = true
	go func() {
		defer close(sess.done)
		_ = a.Watch(watchCtx, mutations, watch, func(e analyzer.Event) {
			s.savePalette(sess, e)
			sess.publish(e)
		})
	}()

	s.logger.Info("session started", "session", sess.ID(), "url", req.URL, "source", req.Source)
	return sess, nil
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", ErrSessionNotFound, id))
		return
	}
	if err := sess.stop(); err != nil {
		s.logger.Warn("failed to close session", "session", id, "error", err)
	}
	s.logger.Info("session ended", "session", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	var req analyzer.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid message: %w", err))
		return
	}

	resp, err := sess.analyzer.Handle(r.Context(), req)
	if err != nil {
		if errors.Is(err, analyzer.ErrUnknownAction) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusBadGateway, err)
		return
	}

	switch req.Action {
	case analyzer.ActionExtractColors:
		s.savePalette(sess, analyzer.Event{Colors: resp.Colors})
	case analyzer.ActionScanContrast:
		if s.opts.Store != nil {
			if _, err := s.opts.Store.SaveAudit(r.Context(), sess.ID(), sess.url, resp.Issues); err != nil {
				s.logger.Warn("failed to save audit", "session", sess.ID(), "error", err)
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) savePalette(sess *session, e analyzer.Event) {
	if s.opts.Store == nil {
		return
	}
	if _, err := s.opts.Store.SavePalette(context.Background(), sess.ID(), sess.url, e.Colors); err != nil {
		s.logger.Warn("failed to save palette", "session", sess.ID(), "error", err)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.logger.Warn("event stream cannot flush", "error", err)
		return
	}

	events, unsubscribe := sess.subscribe()
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sess.done:
			return
		case e := <-events:
			data, err := json.Marshal(e)
			if err != nil {
				s.logger.Error("failed to encode event", "error", err)
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Action, data); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
