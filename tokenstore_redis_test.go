package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) *RedisTokenStore {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisTokenStore("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRedisTokenLifecycle(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	ok, err := store.TokenExists(ctx, "tok-1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.SaveToken(ctx, "tok-1"))

	ok, err = store.TokenExists(ctx, "tok-1")
	require.NoError(t, err)
	require.True(t, ok)

	// an unrelated token stays invisible
	ok, err = store.TokenExists(ctx, "tok-2")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.DeleteToken(ctx, "tok-1"))
	ok, err = store.TokenExists(ctx, "tok-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisDeleteIsIdempotent(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.DeleteToken(ctx, "never-saved"))

	require.NoError(t, store.SaveToken(ctx, "tok"))
	require.NoError(t, store.DeleteToken(ctx, "tok"))
	require.NoError(t, store.DeleteToken(ctx, "tok"))
}

func TestRedisBadURL(t *testing.T) {
	_, err := NewRedisTokenStore("not-a-url")
	require.Error(t, err)
}
