package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"relay/infrastructure/persistence/memory"
	apperrors "relay/pkg/errors"
)

func newService() *NoteService {
	return NewNoteService(memory.NewNoteRepository(), zap.NewNop())
}

func TestNoteService_CreateAndGet(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	note, err := svc.Create(ctx, "user-1", "groceries", "milk, eggs", []string{"Home", "home", " "})
	require.NoError(t, err)
	assert.NotEmpty(t, note.ID)
	assert.Equal(t, []string{"home"}, note.Tags, "tags are lowercased and deduplicated")

	got, err := svc.Get(ctx, "user-1", note.ID)
	require.NoError(t, err)
	assert.Equal(t, "groceries", got.Title)
}

func TestNoteService_CreateRejectsInvalid(t *testing.T) {
	svc := newService()

	_, err := svc.Create(context.Background(), "user-1", "   ", "content", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestNoteService_OwnershipIsEnforced(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	note, err := svc.Create(ctx, "user-1", "private", "mine", nil)
	require.NoError(t, err)

	// Another user sees not-found, not forbidden.
	_, err = svc.Get(ctx, "user-2", note.ID)
	assert.True(t, apperrors.IsNotFound(err))

	err = svc.Delete(ctx, "user-2", note.ID)
	assert.True(t, apperrors.IsNotFound(err))

	// The owner still can read it.
	_, err = svc.Get(ctx, "user-1", note.ID)
	assert.NoError(t, err)
}

func TestNoteService_Update(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	note, err := svc.Create(ctx, "user-1", "draft", "v1", nil)
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "user-1", note.ID, "final", "v2", []string{"done"})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Title)
	assert.Equal(t, "v2", updated.Content)
	assert.True(t, updated.HasTag("done"))
	assert.False(t, updated.UpdatedAt.Before(note.UpdatedAt))
}

func TestNoteService_UpdateRejectsInvalid(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	note, err := svc.Create(ctx, "user-1", "draft", "v1", nil)
	require.NoError(t, err)

	_, err = svc.Update(ctx, "user-1", note.ID, "", "v2", nil)
	require.True(t, apperrors.IsValidation(err))

	// The stored note is untouched after a failed update.
	got, err := svc.Get(ctx, "user-1", note.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft", got.Title)
	assert.Equal(t, "v1", got.Content)
}

func TestNoteService_ListNewestFirst(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	for _, title := range []string{"first", "second", "third"} {
		_, err := svc.Create(ctx, "user-1", title, "", nil)
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, "user-2", "other", "", nil)
	require.NoError(t, err)

	notes, err := svc.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, notes, 3)
	for i := 1; i < len(notes); i++ {
		assert.False(t, notes[i-1].CreatedAt.Before(notes[i].CreatedAt))
	}
}

func TestNoteService_ListRequiresUser(t *testing.T) {
	svc := newService()

	_, err := svc.List(context.Background(), "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestNoteService_Delete(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	note, err := svc.Create(ctx, "user-1", "temp", "", nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "user-1", note.ID))

	_, err = svc.Get(ctx, "user-1", note.ID)
	assert.True(t, apperrors.IsNotFound(err))
}
