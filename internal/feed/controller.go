// Package feed owns the post collection. Every mutation is followed by a
// full refetch; the controller never patches its snapshot in place.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/blackmichael/karma-feed/internal/domain"
)

// Backend is the part of the API client used by the controller.
type Backend interface {
	ListPosts(ctx context.Context) ([]domain.Post, error)
	CreatePost(ctx context.Context, content string) (*domain.Post, error)
}

// Controller holds the current post snapshot.
type Controller struct {
	backend Backend
	logger  *slog.Logger

	mu        sync.RWMutex
	posts     []domain.Post
	loading   bool
	version   uint64
	listeners []func()
}

// NewController creates a Controller. It reports Loading until the first
// fetch resolves.
func NewController(backend Backend, logger *slog.Logger) *Controller {
	return &Controller{
		backend: backend,
		logger:  logger,
		posts:   []domain.Post{},
		loading: true,
	}
}

// Mount runs the initial fetch. A failure is logged and leaves the
// collection empty; it is not returned.
func (c *Controller) Mount(ctx context.Context) {
	_ = c.Fetch(ctx)
}

// Fetch replaces the whole collection with the backend's current snapshot.
// On failure the previous snapshot is kept and the error is logged and
// returned.
func (c *Controller) Fetch(ctx context.Context) error {
	posts, err := c.backend.ListPosts(ctx)
	if err != nil {
		c.logger.Error("error fetching posts", "error", err)
		c.mu.Lock()
		wasLoading := c.loading
		c.loading = false
		c.mu.Unlock()
		if wasLoading {
			c.notify()
		}
		return err
	}

	c.mu.Lock()
	c.posts = posts
	c.loading = false
	c.version++
	version := c.version
	c.mu.Unlock()

	c.logger.Debug("posts fetched", "posts", len(posts), "version", version)
	c.notify()
	return nil
}

// CreatePost publishes content and then refetches. Whitespace-only content
// is rejected with domain.ErrEmptyContent before any call. The new post is
// visible only once the refetch completes. A failed refetch is logged and
// does not fail the create.
func (c *Controller) CreatePost(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return domain.ErrEmptyContent
	}

	post, err := c.backend.CreatePost(ctx, content)
	if err != nil {
		c.logger.Error("error creating post", "error", err)
		return fmt.Errorf("create post: %w", err)
	}
	c.logger.Info("post created", "post_id", post.ID)

	_ = c.Fetch(ctx)
	return nil
}

// Posts returns the current snapshot. The returned posts must be treated
// as read-only.
func (c *Controller) Posts() []domain.Post {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Post, len(c.posts))
	copy(out, c.posts)
	return out
}

// Loading reports whether the first fetch is still outstanding.
func (c *Controller) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Version increments each time the snapshot is replaced.
func (c *Controller) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// OnChange registers fn to run after the snapshot or loading state changes.
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Controller) notify() {
	c.mu.RLock()
	listeners := make([]func(), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.RUnlock()

	for _, fn := range listeners {
		fn()
	}
}
