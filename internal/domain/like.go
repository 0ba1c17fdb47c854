package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidLikeTarget is returned for a like that does not name exactly one
// of a post or a comment.
var ErrInvalidLikeTarget = errors.New("like must target exactly one of post or comment")

// LikeTarget identifies what a like applies to. Build it with PostLike or
// CommentLike; the zero value is invalid.
type LikeTarget struct {
	postID    *int64
	commentID *int64
}

// PostLike targets a post.
func PostLike(postID int64) LikeTarget {
	return LikeTarget{postID: &postID}
}

// CommentLike targets a comment.
func CommentLike(commentID int64) LikeTarget {
	return LikeTarget{commentID: &commentID}
}

// Validate checks that exactly one target is set.
func (t LikeTarget) Validate() error {
	if (t.postID == nil) == (t.commentID == nil) {
		return ErrInvalidLikeTarget
	}
	return nil
}

// PostID returns the liked post id, if the target is a post.
func (t LikeTarget) PostID() (int64, bool) {
	if t.postID == nil {
		return 0, false
	}
	return *t.postID, true
}

// CommentID returns the liked comment id, if the target is a comment.
func (t LikeTarget) CommentID() (int64, bool) {
	if t.commentID == nil {
		return 0, false
	}
	return *t.commentID, true
}

func (t LikeTarget) String() string {
	if id, ok := t.PostID(); ok {
		return fmt.Sprintf("post %d", id)
	}
	if id, ok := t.CommentID(); ok {
		return fmt.Sprintf("comment %d", id)
	}
	return "invalid like target"
}

// MarshalJSON encodes the request body for the like endpoint. The unused
// side is sent as an explicit null.
func (t LikeTarget) MarshalJSON() ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Post    *int64 `json:"post"`
		Comment *int64 `json:"comment"`
	}{
		Post:    t.postID,
		Comment: t.commentID,
	})
}
