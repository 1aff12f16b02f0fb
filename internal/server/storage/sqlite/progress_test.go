package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophprogress/internal/models"
	"github.com/iudanet/gophprogress/internal/server/storage"
)

func addGold(n int64) storage.ApplyFunc {
	return func(current models.Ledger) (models.Ledger, error) {
		current.GoldComposed += n
		current.Progress = "p"
		return current, nil
	}
}

func TestProgressStorage_GetLedger_NotFound(t *testing.T) {
	s := setupTestStorage(t)
	user := createTestUser(t, s, "empty")

	_, err := s.GetLedger(context.Background(), user.ID)
	assert.ErrorIs(t, err, storage.ErrLedgerNotFound)
}

func TestProgressStorage_ApplySave(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)
	user := createTestUser(t, s, "saver")

	ledger, replayed, err := s.ApplySave(ctx, user.ID, "progress_1", addGold(5))
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, int64(5), ledger.GoldComposed)
	assert.Equal(t, int64(1), ledger.Level)

	ledger, replayed, err = s.ApplySave(ctx, user.ID, "progress_2", addGold(3))
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, int64(8), ledger.GoldComposed)

	stored, err := s.GetLedger(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), stored.GoldComposed)
	assert.Equal(t, "p", stored.Progress)
}

func TestProgressStorage_ApplySave_Replay(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)
	user := createTestUser(t, s, "replayer")

	_, _, err := s.ApplySave(ctx, user.ID, "progress_same", addGold(5))
	require.NoError(t, err)

	ledger, replayed, err := s.ApplySave(ctx, user.ID, "progress_same", addGold(5))
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, int64(5), ledger.GoldComposed)
}

func TestProgressStorage_ApplySave_RequestIDScopedByUser(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)
	alice := createTestUser(t, s, "alice")
	bob := createTestUser(t, s, "bob")

	_, _, err := s.ApplySave(ctx, alice.ID, "progress_x", addGold(1))
	require.NoError(t, err)

	_, replayed, err := s.ApplySave(ctx, bob.ID, "progress_x", addGold(1))
	require.NoError(t, err)
	assert.False(t, replayed)
}

func TestProgressStorage_ApplySave_ApplyErrorRollsBack(t *testing.T) {
	ctx := context.Background()
	s := setupTestStorage(t)
	user := createTestUser(t, s, "rollback")

	applyErr := errors.New("invalid progress")
	_, _, err := s.ApplySave(ctx, user.ID, "progress_bad", func(models.Ledger) (models.Ledger, error) {
		return models.Ledger{}, applyErr
	})
	assert.ErrorIs(t, err, applyErr)

	_, err = s.GetLedger(ctx, user.ID)
	assert.ErrorIs(t, err, storage.ErrLedgerNotFound)

	// request id не был помечен, повтор применяется
	_, replayed, err := s.ApplySave(ctx, user.ID, "progress_bad", addGold(2))
	require.NoError(t, err)
	assert.False(t, replayed)
}

func TestProgressStorage_ApplySave_UnknownUser(t *testing.T) {
	s := setupTestStorage(t)

	_, _, err := s.ApplySave(context.Background(), "missing-user", "progress_1", addGold(1))
	assert.Error(t, err)
}
