package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utopium/chatflow/internal/adapters/file"
	"github.com/utopium/chatflow/pkg/domain"
	"github.com/utopium/chatflow/pkg/ports"
)

// Ensure Store implements StateStore
var _ ports.StateStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_TwoEntriesPerSession(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	snap := domain.NewSnapshot()
	snap.Append(domain.BotMessage("hi"))
	require.NoError(t, store.Save(ctx, "s1", snap))

	assert.FileExists(t, filepath.Join(dir, "s1.state.json"))
	assert.FileExists(t, filepath.Join(dir, "s1.transcript.json"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temp files must not be left behind")

	// Without a transcript the session does not exist.
	require.NoError(t, os.Remove(filepath.Join(dir, "s1.transcript.json")))
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestFileStore_CorruptStateIsLeftInPlace(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)

	statePath := filepath.Join(dir, "bad.state.json")
	require.NoError(t, os.WriteFile(statePath, []byte("{oops"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.transcript.json"), []byte("[]"), 0644))

	_, err := store.Load(context.Background(), "bad")
	assert.ErrorIs(t, err, domain.ErrCorruptState)

	data, readErr := os.ReadFile(statePath)
	require.NoError(t, readErr)
	assert.Equal(t, "{oops", string(data))
}

func TestFileStore_RejectsPathTraversal(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", "..", "../escape", `a\b`} {
		assert.Error(t, store.Save(ctx, id, domain.NewSnapshot()), id)
		_, err := store.Load(ctx, id)
		assert.Error(t, err, id)
	}
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "nope"))
	sessions, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
