package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/blackmichael/karma-feed/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory domain.CredentialStore.
type memStore struct {
	mu     sync.Mutex
	creds  domain.Credentials
	clears int
}

func (s *memStore) Load(context.Context) (domain.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds, nil
}

func (s *memStore) Save(_ context.Context, creds domain.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = creds
	return nil
}

func (s *memStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = domain.Credentials{}
	s.clears++
	return nil
}

func newTestClient(t *testing.T, store domain.CredentialStore, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api", store, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestClient_AttachesBearer(t *testing.T) {
	t.Parallel()

	store := &memStore{creds: domain.Credentials{Access: "tok", Refresh: "ref"}}
	var gotAuth, gotRequestID string
	client := newTestClient(t, store, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/posts/", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		writeJSON(w, http.StatusOK, []domain.Post{{ID: 1, Content: "hi"}})
	})

	posts, err := client.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Len(t, gotRequestID, 36)
}

func TestClient_NoCredentialNoHeader(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, &memStore{}, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, []domain.LeaderboardEntry{})
	})

	entries, err := client.Leaderboard(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestClient_UnauthorizedClearsStoreFromAnyEndpoint(t *testing.T) {
	t.Parallel()

	calls := map[string]func(c *Client) error{
		"list posts":  func(c *Client) error { _, err := c.ListPosts(context.Background()); return err },
		"get post":    func(c *Client) error { _, err := c.GetPost(context.Background(), 1); return err },
		"create post": func(c *Client) error { _, err := c.CreatePost(context.Background(), "x"); return err },
		"comment":     func(c *Client) error { _, err := c.CreateComment(context.Background(), 1, "x", nil); return err },
		"like":        func(c *Client) error { _, err := c.Like(context.Background(), domain.PostLike(1)); return err },
		"leaderboard": func(c *Client) error { _, err := c.Leaderboard(context.Background()); return err },
		"user":        func(c *Client) error { _, err := c.CurrentUser(context.Background()); return err },
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := &memStore{creds: domain.Credentials{Access: "stale", Refresh: "stale-r"}}
			client := newTestClient(t, store, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
			})
			signedOut := 0
			client.OnUnauthorized(func() { signedOut++ })

			err := call(client)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnauthorized)

			creds, _ := store.Load(context.Background())
			assert.Equal(t, domain.Credentials{}, creds)
			assert.Equal(t, 1, store.clears)
			assert.Equal(t, 1, signedOut)
		})
	}
}

func TestClient_OtherErrorsPropagate(t *testing.T) {
	t.Parallel()

	store := &memStore{creds: domain.Credentials{Access: "tok", Refresh: "ref"}}
	client := newTestClient(t, store, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
	})
	client.OnUnauthorized(func() { t.Error("unauthorized handler must not run") })

	_, err := client.CreatePost(context.Background(), "hello")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Status)
	assert.Equal(t, "boom", statusErr.Message())
	assert.False(t, errors.Is(err, ErrUnauthorized))
	assert.Zero(t, store.clears)
}

func TestClient_LoginIsAnonymous(t *testing.T) {
	t.Parallel()

	store := &memStore{creds: domain.Credentials{Access: "existing", Refresh: "existing-r"}}
	client := newTestClient(t, store, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
	})
	client.OnUnauthorized(func() { t.Error("login failure must not sign out") })

	_, err := client.Login(context.Background(), "alice", "wrong")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, "Invalid credentials", statusErr.Message())

	creds, _ := store.Load(context.Background())
	assert.Equal(t, "existing", creds.Access)
}

func TestClient_LoginDecodesTokens(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, &memStore{}, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"username": "alice", "password": "pw12345"}, body)
		writeJSON(w, http.StatusOK, map[string]any{
			"user":   map[string]any{"id": 1, "username": "alice"},
			"tokens": map[string]string{"access": "acc", "refresh": "ref"},
		})
	})

	resp, err := client.Login(context.Background(), "alice", "pw12345")
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, domain.Credentials{Access: "acc", Refresh: "ref"}, resp.Credentials())
}

func TestClient_LikeBodyAndDuplicate(t *testing.T) {
	t.Parallel()

	var bodies []map[string]any
	status := http.StatusCreated
	client := newTestClient(t, &memStore{}, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/likes/", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		writeJSON(w, status, map[string]any{"id": 1})
	})

	created, err := client.Like(context.Background(), domain.CommentLike(5))
	require.NoError(t, err)
	assert.True(t, created)

	status = http.StatusOK
	created, err = client.Like(context.Background(), domain.PostLike(2))
	require.NoError(t, err)
	assert.False(t, created)

	require.Len(t, bodies, 2)
	assert.Equal(t, map[string]any{"post": nil, "comment": float64(5)}, bodies[0])
	assert.Equal(t, map[string]any{"post": float64(2), "comment": nil}, bodies[1])
}

func TestClient_LikeRejectsInvalidTargetLocally(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, &memStore{}, func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	})

	_, err := client.Like(context.Background(), domain.LikeTarget{})
	assert.ErrorIs(t, err, domain.ErrInvalidLikeTarget)
}

func TestClient_CreateCommentParent(t *testing.T) {
	t.Parallel()

	var body map[string]any
	client := newTestClient(t, &memStore{}, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, http.StatusCreated, map[string]any{"id": 9, "post": 1})
	})

	parent := int64(4)
	comment, err := client.CreateComment(context.Background(), 1, "reply", &parent)
	require.NoError(t, err)
	assert.Equal(t, int64(9), comment.ID)
	assert.Equal(t, map[string]any{"post": float64(1), "content": "reply", "parent": float64(4)}, body)

	_, err = client.CreateComment(context.Background(), 1, "top", nil)
	require.NoError(t, err)
	assert.Nil(t, body["parent"])
	assert.Contains(t, body, "parent")
}

func TestStatusError_FieldErrors(t *testing.T) {
	t.Parallel()

	err := &StatusError{Status: 400, Body: []byte(`{"username": ["A user with that username already exists."], "password": "Password fields didn't match.", "email": ["Enter a valid email address.", "Too long."]}`)}
	assert.Equal(t, domain.FieldErrors{
		"username": "A user with that username already exists.",
		"password": "Password fields didn't match.",
		"email":    "Enter a valid email address. Too long.",
	}, err.FieldErrors())

	assert.Nil(t, (&StatusError{Body: []byte("<html>oops</html>")}).FieldErrors())
	assert.Empty(t, (&StatusError{Body: []byte("oops")}).Message())
}

func TestNewClient_Timeout(t *testing.T) {
	t.Parallel()

	c := NewClient("", &memStore{})
	assert.Equal(t, defaultTimeout, c.httpClient.Timeout)
	assert.Equal(t, defaultBaseURL, c.baseURL)

	c = NewClient("", &memStore{}, WithTimeout(2*time.Second))
	assert.Equal(t, 2*time.Second, c.httpClient.Timeout)
}

func TestNewClient_TimeoutLeavesCallerClientAlone(t *testing.T) {
	t.Parallel()

	hc := &http.Client{Timeout: 5 * time.Second}
	c := NewClient("", &memStore{}, WithHTTPClient(hc), WithTimeout(time.Second))

	assert.Same(t, hc, c.httpClient)
	assert.Equal(t, 5*time.Second, hc.Timeout)
}
