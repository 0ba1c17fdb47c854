package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/blackmichael/karma-feed/internal/config"
	"github.com/blackmichael/karma-feed/internal/domain"
	"github.com/blackmichael/karma-feed/internal/feed"
	"github.com/blackmichael/karma-feed/internal/leaderboard"
	"github.com/blackmichael/karma-feed/internal/render"
	"github.com/blackmichael/karma-feed/internal/session"
	"github.com/blackmichael/karma-feed/internal/view"
	"github.com/gorilla/websocket"
)

// Server is the local dashboard. It serves the current session, feed and
// leaderboard as JSON and text, and streams leaderboard snapshots over
// WebSocket.
type Server struct {
	session  *session.Store
	posts    *feed.Controller
	feedView *view.Feed
	board    *leaderboard.Poller
	renderer *render.Renderer
	upgrader websocket.Upgrader
	logger   *slog.Logger

	handler    http.Handler
	httpServer *http.Server
}

// NewServer creates a new dashboard server.
func NewServer(
	cfg *config.Config,
	sess *session.Store,
	posts *feed.Controller,
	feedView *view.Feed,
	board *leaderboard.Poller,
	logger *slog.Logger,
) *Server {
	s := &Server{
		session:  sess,
		posts:    posts,
		feedView: feedView,
		board:    board,
		renderer: render.NewRenderer(100),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("GET /api/feed", s.handleFeed)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /ws/leaderboard", s.handleLeaderboardStream)

	s.handler = withLogging(logger, mux)
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	var b strings.Builder
	if user := s.session.User(); user != nil {
		fmt.Fprintf(&b, "Signed in as %s\n\n", user.Username)
	} else {
		b.WriteString("Not signed in\n\n")
	}
	b.WriteString(s.renderer.Feed(s.feedView))
	b.WriteString("\n")
	b.WriteString(s.renderer.Leaderboard(s.board.Snapshot()))

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, b.String())
}

type sessionResponse struct {
	State         string       `json:"state"`
	Authenticated bool         `json:"authenticated"`
	User          *domain.User `json:"user"`
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse{
		State:         s.session.State().String(),
		Authenticated: s.session.IsAuthenticated(),
		User:          s.session.User(),
	})
}

type feedResponse struct {
	Loading bool          `json:"loading"`
	Version uint64        `json:"version"`
	Posts   []domain.Post `json:"posts"`
}

func (s *Server) handleFeed(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, feedResponse{
		Loading: s.posts.Loading(),
		Version: s.posts.Version(),
		Posts:   s.posts.Posts(),
	})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.board.Snapshot())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.posts.Fetch(r.Context()); err != nil {
		s.logger.Error("feed refresh failed", "error", err)
		writeError(w, http.StatusBadGateway, "UpstreamError", "failed to refresh feed")
		return
	}
	if err := s.board.Refresh(r.Context()); err != nil {
		s.logger.Warn("leaderboard refresh failed", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"version": s.posts.Version(),
		"posts":   len(s.posts.Posts()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Hijack lets the WebSocket upgrade take over the connection.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
