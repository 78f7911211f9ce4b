package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relay/domain"
	apperrors "relay/pkg/errors"
)

func mustNote(t *testing.T, userID, title string) *domain.Note {
	t.Helper()
	note, err := domain.NewNote(userID, title, "content", nil)
	require.NoError(t, err)
	return note
}

func TestNoteRepository_SaveAndGet(t *testing.T) {
	repo := NewNoteRepository()
	ctx := context.Background()

	note := mustNote(t, "user-1", "hello")
	require.NoError(t, repo.Save(ctx, note))

	got, err := repo.GetByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, note.Title, got.Title)

	// The stored note is a copy; caller mutations do not leak in.
	note.Title = "mutated"
	got, err = repo.GetByID(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)
}

func TestNoteRepository_GetMissing(t *testing.T) {
	repo := NewNoteRepository()

	_, err := repo.GetByID(context.Background(), "nope")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestNoteRepository_ListByUser(t *testing.T) {
	repo := NewNoteRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, mustNote(t, "user-1", "a")))
	require.NoError(t, repo.Save(ctx, mustNote(t, "user-1", "b")))
	require.NoError(t, repo.Save(ctx, mustNote(t, "user-2", "c")))

	notes, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, notes, 2)

	notes, err = repo.ListByUser(ctx, "user-3")
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestNoteRepository_Delete(t *testing.T) {
	repo := NewNoteRepository()
	ctx := context.Background()

	note := mustNote(t, "user-1", "temp")
	require.NoError(t, repo.Save(ctx, note))
	require.NoError(t, repo.Delete(ctx, note.ID))

	assert.True(t, apperrors.IsNotFound(repo.Delete(ctx, note.ID)))
}

func TestNoteRepository_RespectsCancellation(t *testing.T) {
	repo := NewNoteRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, repo.Save(ctx, mustNote(t, "user-1", "x")))
	_, err := repo.GetByID(ctx, "any")
	assert.Error(t, err)
}
