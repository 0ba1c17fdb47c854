package view

import (
	"errors"
	"fmt"
	"sync"
)

// ErrAlreadyLiked is returned when Like is called on an item whose like
// control is already disabled.
var ErrAlreadyLiked = errors.New("already liked")

// LikeStatus tracks the outcome of the local like on an item.
type LikeStatus int

const (
	// LikeNone means the item has not been liked in this view.
	LikeNone LikeStatus = iota
	// LikePending means the like is shown but the call has not returned.
	LikePending
	// LikeConfirmed means the backend accepted the like.
	LikeConfirmed
	// LikeFailed means the call failed. The optimistic count is kept.
	LikeFailed
)

func (s LikeStatus) String() string {
	switch s {
	case LikeNone:
		return "none"
	case LikePending:
		return "pending"
	case LikeConfirmed:
		return "confirmed"
	case LikeFailed:
		return "failed"
	default:
		return fmt.Sprintf("LikeStatus(%d)", int(s))
	}
}

// likeState is the optimistic like counter shared by posts and comments.
// Once liked it stays liked for the lifetime of the view.
type likeState struct {
	mu     sync.Mutex
	count  int
	liked  bool
	status LikeStatus
}

// begin applies the optimistic increment. It returns false if the item was
// already liked.
func (l *likeState) begin() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.liked {
		return false
	}
	l.liked = true
	l.count++
	l.status = LikePending
	return true
}

func (l *likeState) finish(status LikeStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status = status
}

// reset takes the count from a new snapshot. The liked flag survives.
func (l *likeState) reset(count int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.count = count
}

func (l *likeState) get() (count int, liked bool, status LikeStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count, l.liked, l.status
}
