package sessionstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	auth "github.com/goliatone/go-store-auth"
	"github.com/goliatone/go-store-auth/sessionstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSession() *auth.Session {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	return &auth.Session{
		Identity:     auth.Identity{ID: "id-1", Email: "ana@lojax.ao", Metadata: map[string]any{"full_name": "Ana"}},
		AccessToken:  "access",
		RefreshToken: "refresh",
		IssuedAt:     now,
		ExpiresAt:    now.Add(time.Hour),
	}
}

func exerciseStore(t *testing.T, store sessionstore.Store) {
	t.Helper()
	ctx := context.Background()

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	session := sampleSession()
	require.NoError(t, store.Save(ctx, session))

	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "access", loaded.AccessToken)
	assert.Equal(t, "ana@lojax.ao", loaded.Identity.Email)
	assert.Equal(t, "Ana", loaded.Identity.Metadata["full_name"])
	assert.True(t, loaded.ExpiresAt.Equal(session.ExpiresAt))

	require.NoError(t, store.Clear(ctx))
	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, sessionstore.NewMemoryStore())
}

func TestMemoryStoreCopiesSessions(t *testing.T) {
	store := sessionstore.NewMemoryStore()
	ctx := context.Background()

	session := sampleSession()
	require.NoError(t, store.Save(ctx, session))
	session.AccessToken = "mutated"

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access", loaded.AccessToken)
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("STOREAUTH_TEST_REDIS_URL")
	if url == "" {
		t.Skip("STOREAUTH_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := sessionstore.NewRedisClient(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	key := "storeauth:test:" + t.Name()
	t.Cleanup(func() { _ = client.Del(context.Background(), key).Err() })

	store := sessionstore.NewRedisStore(client, sessionstore.WithKey(key), sessionstore.WithTTL(time.Minute))
	exerciseStore(t, store)

	require.NoError(t, store.Save(ctx, sampleSession()))
	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	_, err := sessionstore.NewRedisClient(context.Background(), "://nope")
	assert.Error(t, err)
}
