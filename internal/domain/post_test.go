package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const postJSON = `{
	"id": 1,
	"author": {"id": 2, "username": "alice"},
	"content": "hello",
	"created_at": "2025-01-02T03:04:05.123456Z",
	"like_count": 2,
	"comments": [
		{
			"id": 10, "post": 1, "parent": null,
			"author": {"id": 3, "username": "bob"},
			"content": "top", "created_at": "2025-01-02T04:00:00Z", "like_count": 3,
			"replies": [
				{
					"id": 11, "post": 1, "parent": 10,
					"author": {"id": 2, "username": "alice"},
					"content": "reply", "created_at": "2025-01-02T05:00:00+00:00", "like_count": 0,
					"replies": [
						{
							"id": 12, "post": 1, "parent": 11,
							"author": {"id": 3, "username": "bob"},
							"content": "deeper", "created_at": "2025-01-02T06:00:00Z", "like_count": 1,
							"replies": []
						}
					]
				}
			]
		},
		{
			"id": 13, "post": 1, "parent": null,
			"author": {"id": 4, "username": "carol"},
			"content": "second", "created_at": "2025-01-02T07:00:00Z", "like_count": 0,
			"replies": []
		}
	]
}`

func TestPost_DecodesCommentTree(t *testing.T) {
	t.Parallel()

	var post Post
	require.NoError(t, json.Unmarshal([]byte(postJSON), &post))

	assert.Equal(t, "alice", post.Author.Username)
	assert.Equal(t, 2, post.LikeCount)
	require.Len(t, post.Comments, 2)

	top := post.Comments[0]
	assert.True(t, top.IsTopLevel())
	require.Len(t, top.Replies, 1)
	require.NotNil(t, top.Replies[0].ParentID)
	assert.Equal(t, int64(10), *top.Replies[0].ParentID)
	assert.Equal(t, 4, CountComments(post.Comments))
}

func TestComment_WalkDepths(t *testing.T) {
	t.Parallel()

	var post Post
	require.NoError(t, json.Unmarshal([]byte(postJSON), &post))

	var ids []int64
	var depths []int
	post.Comments[0].Walk(func(c *Comment, depth int) {
		ids = append(ids, c.ID)
		depths = append(depths, depth)
	})

	assert.Equal(t, []int64{10, 11, 12}, ids)
	assert.Equal(t, []int{0, 1, 2}, depths)
}

func TestFieldErrors_Error(t *testing.T) {
	t.Parallel()

	err := FieldErrors{"username": "taken", "password": "too short"}
	assert.Equal(t, "password: too short; username: taken", err.Error())
}
