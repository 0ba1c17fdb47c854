package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/blackmichael/karma-feed/internal/domain"
)

// AuthResponse is the body returned by login and registration.
type AuthResponse struct {
	User   domain.User `json:"user"`
	Tokens struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	} `json:"tokens"`
}

// Credentials returns the issued token pair.
func (r *AuthResponse) Credentials() domain.Credentials {
	return domain.Credentials{
		Access:  r.Tokens.Access,
		Refresh: r.Tokens.Refresh,
	}
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type createPostRequest struct {
	Content string `json:"content"`
}

type createCommentRequest struct {
	Post    int64  `json:"post"`
	Content string `json:"content"`
	Parent  *int64 `json:"parent"`
}

// Login exchanges a username and password for a user and token pair. It is
// sent without credentials and a 401 here does not sign anyone out.
func (c *Client) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	var resp AuthResponse
	_, err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/login/",
		body:      loginRequest{Username: username, Password: password},
		result:    &resp,
		anonymous: true,
	})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return &resp, nil
}

// Register creates an account and returns the same shape as Login.
func (c *Client) Register(ctx context.Context, in RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	_, err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/register/",
		body:      in,
		result:    &resp,
		anonymous: true,
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &resp, nil
}

// CurrentUser returns the user owning the stored access credential.
func (c *Client) CurrentUser(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/auth/user/", result: &user}); err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return &user, nil
}

// ListPosts returns every post with its nested comment tree.
func (c *Client) ListPosts(ctx context.Context) ([]domain.Post, error) {
	var posts []domain.Post
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/posts/", result: &posts}); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	return posts, nil
}

// GetPost returns a single post.
func (c *Client) GetPost(ctx context.Context, id int64) (*domain.Post, error) {
	var post domain.Post
	path := fmt.Sprintf("/posts/%d/", id)
	if _, err := c.do(ctx, request{method: http.MethodGet, path: path, result: &post}); err != nil {
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	return &post, nil
}

// CreatePost publishes a new post.
func (c *Client) CreatePost(ctx context.Context, content string) (*domain.Post, error) {
	var post domain.Post
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/posts/",
		body:   createPostRequest{Content: content},
		result: &post,
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return &post, nil
}

// CreateComment adds a comment to a post. A nil parentID creates a
// top-level comment; otherwise the comment is a reply to parentID.
func (c *Client) CreateComment(ctx context.Context, postID int64, content string, parentID *int64) (*domain.Comment, error) {
	var comment domain.Comment
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/comments/",
		body:   createCommentRequest{Post: postID, Content: content, Parent: parentID},
		result: &comment,
	})
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return &comment, nil
}

// Like registers a like on a post or a comment. created is false when the
// backend reports the like already existed.
func (c *Client) Like(ctx context.Context, target domain.LikeTarget) (created bool, err error) {
	if err := target.Validate(); err != nil {
		return false, err
	}
	status, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/likes/",
		body:   target,
	})
	if err != nil {
		return false, fmt.Errorf("like %s: %w", target, err)
	}
	return status == http.StatusCreated, nil
}

// Leaderboard returns the ranked entries in backend order.
func (c *Client) Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	var entries []domain.LeaderboardEntry
	if _, err := c.do(ctx, request{method: http.MethodGet, path: "/leaderboard/", result: &entries}); err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	return entries, nil
}
