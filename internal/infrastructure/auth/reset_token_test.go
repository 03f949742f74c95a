package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/flowdesk/backend/internal/domain/identity"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resetHarness struct {
	store   identity.ResetTokenStore
	advance func(time.Duration)
}

func forEachResetStore(t *testing.T, fn func(t *testing.T, h resetHarness)) {
	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		fn(t, resetHarness{store: NewRedisResetTokenStore(client, time.Hour), advance: mr.FastForward})
	})
	t.Run("memory", func(t *testing.T) {
		store := NewInMemoryResetTokenStore(time.Hour)
		now := time.Now()
		store.now = func() time.Time { return now }
		fn(t, resetHarness{store: store, advance: func(d time.Duration) { now = now.Add(d) }})
	})
}

func TestResetTokenStore_SingleUse(t *testing.T) {
	forEachResetStore(t, func(t *testing.T, h resetHarness) {
		ctx := context.Background()
		userID := uuid.New()

		token, err := h.store.Issue(ctx, userID)
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		got, err := h.store.Consume(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, userID, got)

		_, err = h.store.Consume(ctx, token)
		assert.ErrorIs(t, err, identity.ErrResetTokenInvalid)
	})
}

func TestResetTokenStore_Expiry(t *testing.T) {
	forEachResetStore(t, func(t *testing.T, h resetHarness) {
		ctx := context.Background()
		token, err := h.store.Issue(ctx, uuid.New())
		require.NoError(t, err)

		h.advance(61 * time.Minute)

		_, err = h.store.Consume(ctx, token)
		assert.ErrorIs(t, err, identity.ErrResetTokenInvalid)
	})
}

func TestResetTokenStore_NewTokenRevokesPrevious(t *testing.T) {
	forEachResetStore(t, func(t *testing.T, h resetHarness) {
		ctx := context.Background()
		userID := uuid.New()

		first, err := h.store.Issue(ctx, userID)
		require.NoError(t, err)
		second, err := h.store.Issue(ctx, userID)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)

		_, err = h.store.Consume(ctx, first)
		assert.ErrorIs(t, err, identity.ErrResetTokenInvalid)

		got, err := h.store.Consume(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})
}

func TestResetTokenStore_UnknownToken(t *testing.T) {
	forEachResetStore(t, func(t *testing.T, h resetHarness) {
		_, err := h.store.Consume(context.Background(), "bogus")
		assert.ErrorIs(t, err, identity.ErrResetTokenInvalid)
		_, err = h.store.Consume(context.Background(), "")
		assert.ErrorIs(t, err, identity.ErrResetTokenInvalid)
	})
}

func TestRedisResetTokenStore_StoresOnlyHash(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	store := NewRedisResetTokenStore(client, time.Hour)

	userID := uuid.New()
	token, err := store.Issue(context.Background(), userID)
	require.NoError(t, err)

	assert.False(t, mr.Exists(resetTokenKeyPrefix+token))
	assert.True(t, mr.Exists(resetTokenKeyPrefix+hashResetToken(token)))
	assert.Equal(t, time.Hour, mr.TTL(resetTokenKeyPrefix+hashResetToken(token)))
}
