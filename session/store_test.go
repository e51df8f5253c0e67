package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatgate/obo-identity/core"
)

func sampleSession() *core.Session {
	return &core.Session{
		ID:        NewID(),
		CreatedAt: time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC),
		User: &core.User{
			Identifier:  "a@b.com",
			DisplayName: "a",
			Email:       "a@b.com",
			Provider:    "obo",
			Metadata: core.Metadata{
				AuthType:       core.AuthTypeOBO,
				OBOToken:       "token",
				OBOTokenExpiry: "2025-03-04T13:00:00Z",
				Headers: core.Headers{
					core.HeaderAccessToken: "token",
					core.HeaderEmail:       "a@b.com",
				},
			},
		},
	}
}

// testStore runs the behavior every Store must share.
func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("it returns ErrNotFound for unknown ids", func(t *testing.T) {
		_, err := store.Get(ctx, "unknown")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("it round-trips the session user", func(t *testing.T) {
		sess := sampleSession()
		require.NoError(t, store.Save(ctx, sess))

		got, err := store.Get(ctx, sess.ID)
		require.NoError(t, err)
		assert.Equal(t, sess.ID, got.ID)
		assert.True(t, sess.CreatedAt.Equal(got.CreatedAt))
		assert.Equal(t, sess.User, got.User)
	})

	t.Run("it deletes sessions", func(t *testing.T) {
		sess := sampleSession()
		require.NoError(t, store.Save(ctx, sess))
		require.NoError(t, store.Delete(ctx, sess.ID))

		_, err := store.Get(ctx, sess.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("it rejects sessions without id", func(t *testing.T) {
		assert.EqualError(t, store.Save(ctx, &core.Session{}), "session id missing")
		assert.EqualError(t, store.Save(ctx, nil), "session missing")
	})
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
