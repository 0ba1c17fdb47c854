package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/blackmichael/karma-feed/internal/api"
	"github.com/blackmichael/karma-feed/internal/config"
	"github.com/blackmichael/karma-feed/internal/feed"
	"github.com/blackmichael/karma-feed/internal/leaderboard"
	"github.com/blackmichael/karma-feed/internal/session"
	"github.com/blackmichael/karma-feed/internal/sqlite"
	"github.com/blackmichael/karma-feed/internal/view"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postsJSON = `[
	{"id": 1, "author": {"id": 1, "username": "alice"}, "content": "hello karma", "created_at": "2024-03-09T12:00:00Z", "like_count": 2, "comments": []}
]`

const leaderboardJSON = `[{"username": "alice", "karma": 10}, {"username": "bob", "karma": 4}]`

type fixture struct {
	server *Server
	posts  *feed.Controller
	board  *leaderboard.Poller
	sess   *session.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/posts/":
			io.WriteString(w, postsJSON)
		case "/api/leaderboard/":
			io.WriteString(w, leaderboardJSON)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(backend.Close)

	creds, err := sqlite.NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { creds.Close() })

	client := api.NewClient(backend.URL+"/api", creds, api.WithLogger(logger))
	sess := session.New(client, creds, logger)
	require.NoError(t, sess.Init(context.Background()))

	posts := feed.NewController(client, logger)
	posts.Mount(context.Background())
	board := leaderboard.NewPoller(client, time.Minute, logger)
	require.NoError(t, board.Refresh(context.Background()))

	cfg := &config.Config{Port: 0}
	srv := NewServer(cfg, sess, posts, view.NewFeed(posts, client, logger), board, logger)
	return &fixture{server: srv, posts: posts, board: board, sess: sess}
}

func (f *fixture) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestServer_Health(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestServer_Session(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/session")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"state": "anonymous", "authenticated": false, "user": null}`, rec.Body.String())
}

func TestServer_Feed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/feed")
	require.Equal(t, http.StatusOK, rec.Code)

	var body feedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Loading)
	assert.Equal(t, uint64(1), body.Version)
	require.Len(t, body.Posts, 1)
	assert.Equal(t, "hello karma", body.Posts[0].Content)
}

func TestServer_Leaderboard(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/leaderboard")
	require.Equal(t, http.StatusOK, rec.Code)

	var snap leaderboard.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Len(t, snap.Entries, 2)
	assert.Equal(t, "alice", snap.Entries[0].Username)
	assert.Equal(t, "bob", snap.Entries[1].Username)
}

func TestServer_Index(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Not signed in")
	assert.Contains(t, body, "hello karma")
	assert.Contains(t, body, "Karma = Post Likes × 5 + Comment Likes × 1")
}

func TestServer_UnknownPath(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Refresh(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/refresh")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"version": 2, "posts": 1}`, rec.Body.String())
	assert.Equal(t, uint64(2), f.posts.Version())
}

func TestServer_LeaderboardStream(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	srv := httptest.NewServer(f.server.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/leaderboard"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first leaderboard.Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	require.Len(t, first.Entries, 2)
	assert.Equal(t, "alice", first.Entries[0].Username)

	require.NoError(t, f.board.Refresh(context.Background()))

	var next leaderboard.Snapshot
	require.NoError(t, conn.ReadJSON(&next))
	assert.Len(t, next.Entries, 2)
	assert.False(t, next.UpdatedAt.Before(first.UpdatedAt))
}
