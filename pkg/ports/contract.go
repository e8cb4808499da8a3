package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utopium/chatflow/pkg/domain"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := domain.NewSnapshot()
		snap.State.Step = domain.StepTitle
		snap.State.Data[domain.FieldAccount] = "animeutopia"
		snap.State.File = &domain.Attachment{Name: "bg.png", ContentType: "image/png", Data: []byte{1, 2, 3}}
		snap.Append(domain.UserMessage("create post"), domain.BotMessage("What account?", "a", "b"))

		require.NoError(t, store.Save(ctx, sessionID, snap))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.StepTitle, loaded.State.Step)
		assert.Equal(t, "animeutopia", loaded.State.Data[domain.FieldAccount])
		require.NotNil(t, loaded.State.File)
		assert.Equal(t, []byte{1, 2, 3}, loaded.State.File.Data)
		assert.Equal(t, snap.Transcript, loaded.Transcript)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		snap := domain.NewSnapshot()
		snap.State.ImgMode = true
		require.NoError(t, store.Save(ctx, sessionID, snap))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.True(t, loaded.State.ImgMode)
		assert.Equal(t, domain.StepIdle, loaded.State.Step)
		assert.Empty(t, loaded.Transcript)
	})

	t.Run("Load Is Isolated", func(t *testing.T) {
		snap := domain.NewSnapshot()
		require.NoError(t, store.Save(ctx, sessionID, snap))
		snap.State.Data["mutated"] = "after save"

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.NotContains(t, loaded.State.Data, "mutated")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, domain.NewSnapshot()))

		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewSnapshot()))
		require.NoError(t, store.Save(ctx, id2, domain.NewSnapshot()))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
