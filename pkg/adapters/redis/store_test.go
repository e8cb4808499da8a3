package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utopium/chatflow/pkg/adapters/redis"
	"github.com/utopium/chatflow/pkg/domain"
	"github.com/utopium/chatflow/pkg/ports"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)

	store := redis.NewFromClient(client)
	ports.RunStateStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	sessionID := "session-ttl"

	require.NoError(t, store.Save(ctx, sessionID, domain.NewSnapshot()))

	sessions, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, sessions, sessionID)

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, sessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// The index is pruned against the wall clock, not miniredis time.
	time.Sleep(1200 * time.Millisecond)

	sessions, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	sessionID := "my-session"

	require.NoError(t, store.Save(ctx, sessionID, domain.NewSnapshot()))

	assert.True(t, mr.Exists("custom:app:my-session:state"))
	assert.True(t, mr.Exists("custom:app:my-session:transcript"))
	assert.True(t, mr.Exists("custom:app:index"))

	list, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, list, sessionID)
}

func TestRedisStore_MissingTranscriptIsNotFound(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)

	require.NoError(t, mr.Set(redis.DefaultPrefix+"half:state", `{"step":"title"}`))

	_, err := store.Load(context.Background(), "half")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestRedisStore_CorruptStateIsLeftInPlace(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)

	require.NoError(t, mr.Set(redis.DefaultPrefix+"bad:state", "{not json"))
	require.NoError(t, mr.Set(redis.DefaultPrefix+"bad:transcript", "[]"))

	_, err := store.Load(context.Background(), "bad")
	assert.ErrorIs(t, err, domain.ErrCorruptState)

	raw, getErr := mr.Get(redis.DefaultPrefix + "bad:state")
	require.NoError(t, getErr)
	assert.Equal(t, "{not json", raw)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := redis.New("://nope")
	assert.Error(t, err)
}
