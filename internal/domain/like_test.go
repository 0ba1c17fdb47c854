package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeTarget_ExactlyOne(t *testing.T) {
	t.Parallel()

	t.Run("post", func(t *testing.T) {
		t.Parallel()
		target := PostLike(7)
		require.NoError(t, target.Validate())

		id, ok := target.PostID()
		assert.True(t, ok)
		assert.Equal(t, int64(7), id)
		_, ok = target.CommentID()
		assert.False(t, ok)
	})

	t.Run("comment", func(t *testing.T) {
		t.Parallel()
		target := CommentLike(9)
		require.NoError(t, target.Validate())

		id, ok := target.CommentID()
		assert.True(t, ok)
		assert.Equal(t, int64(9), id)
		_, ok = target.PostID()
		assert.False(t, ok)
	})

	t.Run("zero value is rejected", func(t *testing.T) {
		t.Parallel()
		var target LikeTarget
		assert.ErrorIs(t, target.Validate(), ErrInvalidLikeTarget)

		_, err := json.Marshal(target)
		assert.ErrorIs(t, err, ErrInvalidLikeTarget)
	})
}

func TestLikeTarget_MarshalJSON(t *testing.T) {
	t.Parallel()

	body, err := json.Marshal(PostLike(3))
	require.NoError(t, err)
	assert.JSONEq(t, `{"post": 3, "comment": null}`, string(body))

	body, err = json.Marshal(CommentLike(4))
	require.NoError(t, err)
	assert.JSONEq(t, `{"post": null, "comment": 4}`, string(body))
}
