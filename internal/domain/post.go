package domain

import "time"

// Author is the nested user reference the backend attaches to posts and
// comments.
type Author struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Post is a read-only snapshot of a backend post. Comments holds only the
// top-level comments; deeper replies hang off each Comment.
type Post struct {
	ID        int64     `json:"id"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	LikeCount int       `json:"like_count"`
	Comments  []Comment `json:"comments"`
}

// Comment is a node in a post's comment tree.
type Comment struct {
	ID     int64  `json:"id"`
	PostID int64  `json:"post"`
	Author Author `json:"author"`

	// ParentID is nil for top-level comments.
	ParentID *int64 `json:"parent"`

	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	LikeCount int       `json:"like_count"`
	Replies   []Comment `json:"replies"`
}

// IsTopLevel reports whether the comment is the root of a reply subtree.
func (c *Comment) IsTopLevel() bool {
	return c.ParentID == nil
}

// Walk visits c and every reply below it depth-first, in the order the
// backend returned them. depth is 0 for c itself.
func (c *Comment) Walk(fn func(c *Comment, depth int)) {
	c.walk(fn, 0)
}

func (c *Comment) walk(fn func(c *Comment, depth int), depth int) {
	fn(c, depth)
	for i := range c.Replies {
		c.Replies[i].walk(fn, depth+1)
	}
}

// CountComments returns the number of comments in the given trees,
// replies included.
func CountComments(comments []Comment) int {
	n := 0
	for i := range comments {
		comments[i].Walk(func(*Comment, int) { n++ })
	}
	return n
}
