package view

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/blackmichael/karma-feed/internal/domain"
)

// IndentWidth is the number of columns a comment is indented per depth.
const IndentWidth = 2

// Backend is the part of the API client the post and comment views call
// directly.
type Backend interface {
	CreateComment(ctx context.Context, postID int64, content string, parentID *int64) (*domain.Comment, error)
	Like(ctx context.Context, target domain.LikeTarget) (created bool, err error)
}

// env is shared by every view in one feed.
type env struct {
	backend Backend
	refetch func(ctx context.Context) error
	logger  *slog.Logger
}

// like runs the optimistic like flow for target. The count is incremented
// before the call; a failure is logged and not rolled back. A successful
// like triggers a refetch of the whole feed.
func (e *env) like(ctx context.Context, state *likeState, target domain.LikeTarget) error {
	if !state.begin() {
		return ErrAlreadyLiked
	}

	created, err := e.backend.Like(ctx, target)
	if err != nil {
		state.finish(LikeFailed)
		e.logger.Error("error liking", "target", target.String(), "error", err)
		return err
	}
	state.finish(LikeConfirmed)
	if !created {
		e.logger.Info("like already registered", "target", target.String())
	}

	e.afterWrite(ctx)
	return nil
}

func (e *env) comment(ctx context.Context, postID int64, content string, parentID *int64) error {
	c, err := e.backend.CreateComment(ctx, postID, content, parentID)
	if err != nil {
		e.logger.Error("error creating comment", "post_id", postID, "error", err)
		return fmt.Errorf("create comment: %w", err)
	}
	e.logger.Info("comment created", "post_id", postID, "comment_id", c.ID)

	e.afterWrite(ctx)
	return nil
}

// afterWrite refetches the feed. The write already succeeded, so a failed
// refetch is only logged.
func (e *env) afterWrite(ctx context.Context) {
	if e.refetch == nil {
		return
	}
	if err := e.refetch(ctx); err != nil {
		e.logger.Error("refetch after write failed", "error", err)
	}
}

// PostView is the presentation state of one post.
type PostView struct {
	// CommentForm holds the new top-level comment draft.
	CommentForm Form

	env  *env
	like likeState

	mu       sync.RWMutex
	post     domain.Post
	comments []*CommentView
}

// Post returns the snapshot the view was last synced with.
func (v *PostView) Post() domain.Post {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.post
}

// Comments returns the views of the top-level comments in backend order.
func (v *PostView) Comments() []*CommentView {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]*CommentView, len(v.comments))
	copy(out, v.comments)
	return out
}

// LikeCount is the displayed like count, including an optimistic like.
func (v *PostView) LikeCount() int {
	n, _, _ := v.like.get()
	return n
}

// Liked reports whether the like control is disabled.
func (v *PostView) Liked() bool {
	_, liked, _ := v.like.get()
	return liked
}

// LikeStatus returns the state of the local like.
func (v *PostView) LikeStatus() LikeStatus {
	_, _, status := v.like.get()
	return status
}

// Like registers a like on the post. See env.like.
func (v *PostView) Like(ctx context.Context) error {
	return v.env.like(ctx, &v.like, domain.PostLike(v.Post().ID))
}

// SubmitComment posts the comment form's draft as a top-level comment.
func (v *PostView) SubmitComment(ctx context.Context) error {
	postID := v.Post().ID
	return v.CommentForm.Submit(ctx, func(ctx context.Context, content string) error {
		return v.env.comment(ctx, postID, content, nil)
	})
}

// CommentView is the presentation state of one comment and, through
// Replies, its subtree.
type CommentView struct {
	// ReplyForm holds the reply draft.
	ReplyForm Form

	env  *env
	like likeState

	mu      sync.RWMutex
	comment domain.Comment
	depth   int
	replies []*CommentView
}

// Comment returns the snapshot the view was last synced with.
func (v *CommentView) Comment() domain.Comment {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.comment
}

// Depth is 0 for top-level comments and grows by one per reply level.
func (v *CommentView) Depth() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.depth
}

// Indent returns the indentation in columns for the comment's depth.
func (v *CommentView) Indent() int {
	return v.Depth() * IndentWidth
}

// Replies returns the direct replies in backend order.
func (v *CommentView) Replies() []*CommentView {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]*CommentView, len(v.replies))
	copy(out, v.replies)
	return out
}

// LikeCount is the displayed like count, including an optimistic like.
func (v *CommentView) LikeCount() int {
	n, _, _ := v.like.get()
	return n
}

// Liked reports whether the like control is disabled.
func (v *CommentView) Liked() bool {
	_, liked, _ := v.like.get()
	return liked
}

// LikeStatus returns the state of the local like.
func (v *CommentView) LikeStatus() LikeStatus {
	_, _, status := v.like.get()
	return status
}

// Like registers a like on the comment. See env.like.
func (v *CommentView) Like(ctx context.Context) error {
	return v.env.like(ctx, &v.like, domain.CommentLike(v.Comment().ID))
}

// SubmitReply posts the reply form's draft as a reply to this comment.
func (v *CommentView) SubmitReply(ctx context.Context) error {
	c := v.Comment()
	parentID := c.ID
	return v.ReplyForm.Submit(ctx, func(ctx context.Context, content string) error {
		return v.env.comment(ctx, c.PostID, content, &parentID)
	})
}

// Walk visits the comment and its replies depth-first.
func (v *CommentView) Walk(fn func(*CommentView)) {
	fn(v)
	for _, r := range v.Replies() {
		r.Walk(fn)
	}
}
