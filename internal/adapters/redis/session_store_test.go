package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/helsevakt/vaksineportal/internal/domain/auth"
	"github.com/helsevakt/vaksineportal/internal/testutil"
)

func testSession(id string, ttl time.Duration) domainauth.StoredSession {
	return domainauth.StoredSession{
		ID: id,
		Account: domainauth.Account{
			ID:          "u1",
			Username:    "kari@helsevakt.no",
			DisplayName: "Kari Nordmann",
			TenantID:    "helsevakt",
		},
		ExpiresAt: time.Now().Add(ttl),
	}
}

func TestSessionStore_SaveAndGet(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	sess := testSession("s1", time.Hour)
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, sess.Account, got.Account)
	assert.WithinDuration(t, sess.ExpiresAt, got.ExpiresAt, time.Second)

	ttl, err := client.TTL(ctx, "session:s1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, 59*time.Minute)
}

func TestSessionStore_SaveValidation(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	require.Error(t, store.Save(ctx, testSession("", time.Hour)))
	require.Error(t, store.Save(ctx, testSession("s1", -time.Minute)))
}

func TestSessionStore_GetMissing(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	_, err := store.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.Get(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionStore_GetEvictsExpired(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewSessionStore(client)
	ctx := context.Background()

	// Write a record whose embedded expiry is already in the past, bypassing
	// Save's guard, to simulate clock skew between writer and Redis.
	sess := testSession("stale", -time.Minute)
	raw := `{"id":"stale","account":{"id":"u1"},"expires_at":"` +
		sess.ExpiresAt.UTC().Format(time.RFC3339Nano) + `"}`
	require.NoError(t, client.Set(ctx, "session:stale", raw, time.Hour).Err())

	_, err := store.Get(ctx, "stale")
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := client.Exists(ctx, "session:stale").Result()
	require.NoError(t, err)
	assert.Zero(t, exists)
}

func TestSessionStore_Delete(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	store := NewSessionStoreWithPrefix(client, "sess:")
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testSession("s1", time.Hour)))
	require.NoError(t, store.Delete(ctx, "s1"))

	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing or empty ID is a no-op.
	require.NoError(t, store.Delete(ctx, "s1"))
	require.NoError(t, store.Delete(ctx, ""))
}
