package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/utopium/chatflow/pkg/adapters/memory"
	"github.com/utopium/chatflow/pkg/domain"
	"github.com/utopium/chatflow/pkg/ports"
	"github.com/utopium/chatflow/pkg/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	*memory.Store
	corrupt map[string]bool
}

func NewSlowStore() *SlowStore {
	return &SlowStore{Store: memory.NewStore(), corrupt: map[string]bool{}}
}

func (s *SlowStore) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	time.Sleep(5 * time.Millisecond)
	if s.corrupt[sessionID] {
		return nil, errors.Join(domain.ErrCorruptState, errors.New("unexpected EOF"))
	}
	return s.Store.Load(ctx, sessionID)
}

func (s *SlowStore) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	time.Sleep(5 * time.Millisecond)
	return s.Store.Save(ctx, sessionID, snap)
}

func TestManager_WithLockSerializesReadModifyWrite(t *testing.T) {
	store := NewSlowStore()
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	require.NoError(t, manager.Save(ctx, id, domain.NewSnapshot()))

	var wg sync.WaitGroup
	const writers = 10
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.WithLock(ctx, id, func(ctx context.Context) error {
				snap, err := store.Load(ctx, id)
				if err != nil {
					return err
				}
				snap.State.Version++
				return store.Save(ctx, id, snap)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, writers, snap.State.Version, "no update may be lost")
}

func TestManager_LoadOrStart(t *testing.T) {
	store := NewSlowStore()
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "atomic-init"

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := manager.LoadOrStart(ctx, id)
			assert.NoError(t, err)
			assert.NotNil(t, snap)
		}()
	}
	wg.Wait()

	snap, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StepIdle, snap.State.Step)
	assert.Empty(t, snap.Transcript)
}

func TestManager_RestoreCorruptFallsBackWithoutOverwriting(t *testing.T) {
	store := NewSlowStore()
	manager := session.NewManager(store)
	ctx := context.Background()

	stored := domain.NewSnapshot()
	stored.State.Step = domain.StepTitle
	require.NoError(t, store.Store.Save(ctx, "bad", stored))
	store.corrupt["bad"] = true

	snap, fresh, err := manager.Restore(ctx, "bad")
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Equal(t, domain.StepIdle, snap.State.Step)

	_, err = manager.LoadOrStart(ctx, "bad")
	require.NoError(t, err)

	raw, err := store.Store.Load(ctx, "bad")
	require.NoError(t, err)
	assert.Equal(t, domain.StepTitle, raw.State.Step, "corrupt data must stay in place")
}

type failingStore struct{ *memory.Store }

func (failingStore) Load(context.Context, string) (*domain.Snapshot, error) {
	return nil, errors.New("connection refused")
}

func TestManager_RestorePropagatesStoreErrors(t *testing.T) {
	manager := session.NewManager(failingStore{memory.NewStore()})

	_, _, err := manager.Restore(context.Background(), "x")
	assert.ErrorContains(t, err, "connection refused")
}

type recordingLocker struct {
	mu       sync.Mutex
	locked   []string
	unlocked int
	ttl      time.Duration
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locked = append(l.locked, key)
	l.ttl = ttl
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocked++
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &recordingLocker{}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(time.Minute))

	require.NoError(t, manager.Save(context.Background(), "s1", domain.NewSnapshot()))

	assert.Equal(t, []string{"s1"}, locker.locked)
	assert.Equal(t, 1, locker.unlocked)
	assert.Equal(t, time.Minute, locker.ttl)
}

func TestManager_LockCanceled(t *testing.T) {
	locker := ports.DistributedLocker(lockerFunc(func(ctx context.Context, _ string, _ time.Duration) (ports.UnlockFunc, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := manager.Save(ctx, "s1", domain.NewSnapshot())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type lockerFunc func(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error)

func (f lockerFunc) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	return f(ctx, key, ttl)
}
