// Package memory provides an in-process note repository, used in development
// and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"relay/domain"
	apperrors "relay/pkg/errors"
)

// NoteRepository stores notes in a mutex-guarded map.
type NoteRepository struct {
	mu    sync.RWMutex
	notes map[string]*domain.Note
}

// NewNoteRepository creates an empty in-memory note repository.
func NewNoteRepository() *NoteRepository {
	return &NoteRepository{
		notes: make(map[string]*domain.Note),
	}
}

// Save persists a note. Stores a copy so callers can keep mutating theirs.
func (r *NoteRepository) Save(ctx context.Context, note *domain.Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	stored := *note
	r.mu.Lock()
	r.notes[note.ID] = &stored
	r.mu.Unlock()
	return nil
}

// GetByID retrieves a note by its ID.
func (r *NoteRepository) GetByID(ctx context.Context, id string) (*domain.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	stored, ok := r.notes[id]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFoundError("note")
	}

	note := *stored
	return &note, nil
}

// ListByUser retrieves all notes owned by a user, newest first.
func (r *NoteRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	out := make([]*domain.Note, 0)
	for _, stored := range r.notes {
		if stored.UserID != userID {
			continue
		}
		note := *stored
		out = append(out, &note)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes a note.
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.notes[id]; !ok {
		return apperrors.NewNotFoundError("note")
	}
	delete(r.notes, id)
	return nil
}
