package middleware_test

import (
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utopium/chatflow/pkg/adapters/memory"
	"github.com/utopium/chatflow/pkg/domain"
	"github.com/utopium/chatflow/pkg/persistence/middleware"
	"github.com/utopium/chatflow/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func secretSnapshot() *domain.Snapshot {
	snap := domain.NewSnapshot()
	snap.State.Step = domain.StepTitle
	snap.State.Data[domain.FieldTitle] = "my-secret-sauce"
	snap.Append(domain.UserMessage("my-secret-sauce"))
	return snap
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := NewMockStore()
	secureStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)

	ctx := context.Background()
	sessionID := "test-session"

	require.NoError(t, secureStore.Save(ctx, sessionID, secretSnapshot()))

	stored, err := underlyingStore.Load(ctx, sessionID)
	require.NoError(t, err)
	assert.NotContains(t, stored.State.Data, domain.FieldTitle)
	assert.Contains(t, stored.State.Data, middleware.EnvelopeKey)
	assert.Empty(t, stored.Transcript)
	assert.Equal(t, domain.StepIdle, stored.State.Step)

	loaded, err := secureStore.Load(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "my-secret-sauce", loaded.State.Data[domain.FieldTitle])
	assert.Equal(t, domain.StepTitle, loaded.State.Step)
	assert.Equal(t, []domain.Message{domain.UserMessage("my-secret-sauce")}, loaded.Transcript)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := NewMockStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	oldStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlyingStore)
	require.NoError(t, oldStore.Save(ctx, "rotation-session", secretSnapshot()))

	rotated := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlyingStore)

	loaded, err := rotated.Load(ctx, "rotation-session")
	require.NoError(t, err)
	assert.Equal(t, "my-secret-sauce", loaded.State.Data[domain.FieldTitle])

	// Without the old key the session reads as corrupt.
	strict := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: newKey})(underlyingStore)
	_, err = strict.Load(ctx, "rotation-session")
	assert.ErrorIs(t, err, domain.ErrCorruptState)
}

func TestEncryptionMiddleware_PlainSnapshotIsCorrupt(t *testing.T) {
	underlyingStore := NewMockStore()
	require.NoError(t, underlyingStore.Save(context.Background(), "plain", domain.NewSnapshot()))

	secureStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)
	_, err := secureStore.Load(context.Background(), "plain")
	assert.ErrorIs(t, err, domain.ErrCorruptState)
}

func TestEncryptionMiddleware_InvalidKeyPanics(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	})
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	store := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(memory.NewStore())
	ports.RunStateStoreContract(t, store)
}
