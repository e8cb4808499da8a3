package middleware_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utopium/chatflow/pkg/domain"
	"github.com/utopium/chatflow/pkg/persistence/middleware"
)

func TestPIIMiddleware_SealsAtRest(t *testing.T) {
	underlyingStore := NewMockStore()
	cfg := middleware.EncryptionConfig{ActiveKey: generateKey(t)}
	secureStore := middleware.NewPIIMiddleware([]string{"^account$", "(?i)title"}, cfg)(underlyingStore)

	ctx := context.Background()
	snap := domain.NewSnapshot()
	snap.State.Data[domain.FieldAccount] = "animeutopia"
	snap.State.Data[domain.FieldTitle] = "Leaked headline"
	snap.State.Data[domain.FieldHighlightTitle] = "Leaked"
	snap.State.Data[domain.FieldBackground] = "image"

	require.NoError(t, secureStore.Save(ctx, "pii-session", snap))

	assert.Equal(t, "Leaked headline", snap.State.Data[domain.FieldTitle], "Middleware modified original snapshot in memory")

	stored, err := underlyingStore.Load(ctx, "pii-session")
	require.NoError(t, err)
	for _, k := range []string{domain.FieldAccount, domain.FieldTitle, domain.FieldHighlightTitle} {
		assert.True(t, strings.HasPrefix(stored.State.Data[k], middleware.SealedPrefix), k)
		assert.NotContains(t, stored.State.Data[k], "Leaked")
	}
	assert.Equal(t, "image", stored.State.Data[domain.FieldBackground])
}

func TestPIIMiddleware_LoadRestoresAnswers(t *testing.T) {
	cfg := middleware.EncryptionConfig{ActiveKey: generateKey(t)}
	secureStore := middleware.NewPIIMiddleware([]string{"^title$", "file"}, cfg)(NewMockStore())

	snap := domain.NewSnapshot()
	snap.State.Data[domain.FieldTitle] = "Big Announcement"
	snap.State.File = &domain.Attachment{Name: "face.jpg", Data: []byte{1, 2}}
	snap.State.RefFile = &domain.Attachment{Name: "ref.png", Data: []byte{3}}
	require.NoError(t, secureStore.Save(context.Background(), "s", snap))

	loaded, err := secureStore.Load(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, "Big Announcement", loaded.State.Data[domain.FieldTitle])
	assert.Equal(t, []byte{1, 2}, loaded.State.File.Data)
	assert.Equal(t, []byte{3}, loaded.State.RefFile.Data)
}

func TestPIIMiddleware_SealsFileBytes(t *testing.T) {
	underlyingStore := NewMockStore()
	cfg := middleware.EncryptionConfig{ActiveKey: generateKey(t)}
	secureStore := middleware.NewPIIMiddleware([]string{"file"}, cfg)(underlyingStore)

	snap := domain.NewSnapshot()
	snap.State.File = &domain.Attachment{Name: "face.jpg", Data: []byte{1, 2}}
	require.NoError(t, secureStore.Save(context.Background(), "s", snap))

	stored, err := underlyingStore.Load(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, "face.jpg", stored.State.File.Name)
	assert.NotEqual(t, []byte{1, 2}, stored.State.File.Data)
	assert.Equal(t, []byte{1, 2}, snap.State.File.Data)
}

func TestPIIMiddleware_WrongKeyIsCorrupt(t *testing.T) {
	underlyingStore := NewMockStore()
	writer := middleware.NewPIIMiddleware([]string{"title"}, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)
	reader := middleware.NewPIIMiddleware([]string{"title"}, middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)

	snap := domain.NewSnapshot()
	snap.State.Data[domain.FieldTitle] = "secret"
	require.NoError(t, writer.Save(context.Background(), "s", snap))

	_, err := reader.Load(context.Background(), "s")
	assert.ErrorIs(t, err, domain.ErrCorruptState)
}

func TestPIIMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := NewMockStore()
	oldKey := generateKey(t)
	writer := middleware.NewPIIMiddleware([]string{"title"}, middleware.EncryptionConfig{ActiveKey: oldKey})(underlyingStore)
	reader := middleware.NewPIIMiddleware([]string{"title"}, middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{oldKey},
	})(underlyingStore)

	snap := domain.NewSnapshot()
	snap.State.Data[domain.FieldTitle] = "secret"
	require.NoError(t, writer.Save(context.Background(), "s", snap))

	loaded, err := reader.Load(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, "secret", loaded.State.Data[domain.FieldTitle])
}

func TestChain_PIIBeforeEncryption(t *testing.T) {
	underlyingStore := NewMockStore()
	cfg := middleware.EncryptionConfig{ActiveKey: generateKey(t)}
	store := middleware.Chain(underlyingStore,
		middleware.NewPIIMiddleware([]string{"title"}, cfg),
		middleware.NewEncryptionMiddleware(cfg),
	)

	snap := domain.NewSnapshot()
	snap.State.Data[domain.FieldTitle] = "secret"
	require.NoError(t, store.Save(context.Background(), "s", snap))

	loaded, err := store.Load(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, "secret", loaded.State.Data[domain.FieldTitle])
}

func TestNewPIIMiddleware_RequiresKey(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewPIIMiddleware([]string{"title"}, middleware.EncryptionConfig{ActiveKey: []byte("short")})
	})
}
