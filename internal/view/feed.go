// Package view holds the per-item presentation state for the feed: form
// drafts, optimistic likes and the recursive comment tree. Views are keyed
// by backend id and resynced from each new feed snapshot, so the local like
// flag lives as long as the item is in the feed.
package view

import (
	"context"
	"log/slog"
	"sync"

	"github.com/blackmichael/karma-feed/internal/domain"
)

// Source is the feed controller as seen by the view.
type Source interface {
	Posts() []domain.Post
	Loading() bool
	Version() uint64
	Fetch(ctx context.Context) error
	CreatePost(ctx context.Context, content string) error
}

// Feed is the presentation state of the whole feed.
type Feed struct {
	// Composer holds the new post draft.
	Composer Form

	source Source
	env    *env

	mu        sync.Mutex
	synced    bool
	version   uint64
	posts     []*PostView
	byPost    map[int64]*PostView
	byComment map[int64]*CommentView
}

// NewFeed creates a Feed over source. Writes made through the views call
// backend and then source.Fetch.
func NewFeed(source Source, backend Backend, logger *slog.Logger) *Feed {
	return &Feed{
		source: source,
		env: &env{
			backend: backend,
			refetch: source.Fetch,
			logger:  logger,
		},
		byPost:    map[int64]*PostView{},
		byComment: map[int64]*CommentView{},
	}
}

// Loading reports whether the first fetch is still outstanding.
func (f *Feed) Loading() bool {
	return f.source.Loading()
}

// Posts returns the post views for the current snapshot in backend order.
func (f *Feed) Posts() []*PostView {
	f.Sync()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*PostView, len(f.posts))
	copy(out, f.posts)
	return out
}

// Post returns the view of the post with the given id, or nil.
func (f *Feed) Post(id int64) *PostView {
	f.Sync()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byPost[id]
}

// Comment returns the view of the comment with the given id at any depth,
// or nil.
func (f *Feed) Comment(id int64) *CommentView {
	f.Sync()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byComment[id]
}

// SubmitPost publishes the composer draft through the controller.
func (f *Feed) SubmitPost(ctx context.Context) error {
	return f.Composer.Submit(ctx, f.source.CreatePost)
}

// Sync rebuilds the view tree if the controller holds a newer snapshot.
// Views for ids present in both snapshots are reused; their like counts are
// taken from the new snapshot while the liked flag is kept.
func (f *Feed) Sync() {
	version := f.source.Version()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.synced && version == f.version {
		return
	}

	snapshot := f.source.Posts()
	posts := make([]*PostView, 0, len(snapshot))
	byPost := make(map[int64]*PostView, len(snapshot))
	byComment := make(map[int64]*CommentView)

	for _, p := range snapshot {
		pv, ok := f.byPost[p.ID]
		if !ok {
			pv = &PostView{env: f.env}
		}
		comments := f.syncComments(p.Comments, 0, byComment)

		pv.mu.Lock()
		pv.post = p
		pv.comments = comments
		pv.mu.Unlock()
		pv.like.reset(p.LikeCount)

		posts = append(posts, pv)
		byPost[p.ID] = pv
	}

	f.posts = posts
	f.byPost = byPost
	f.byComment = byComment
	f.version = version
	f.synced = true
}

func (f *Feed) syncComments(snapshot []domain.Comment, depth int, seen map[int64]*CommentView) []*CommentView {
	views := make([]*CommentView, 0, len(snapshot))
	for _, c := range snapshot {
		cv, ok := f.byComment[c.ID]
		if !ok {
			cv = &CommentView{env: f.env}
		}
		replies := f.syncComments(c.Replies, depth+1, seen)

		cv.mu.Lock()
		cv.comment = c
		cv.depth = depth
		cv.replies = replies
		cv.mu.Unlock()
		cv.like.reset(c.LikeCount)

		views = append(views, cv)
		seen[c.ID] = cv
	}
	return views
}
