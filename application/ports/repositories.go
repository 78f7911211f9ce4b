// Package ports declares the persistence interfaces the application layer
// depends on. Implementations live under infrastructure/persistence.
package ports

import (
	"context"

	"relay/domain"
)

// NoteRepository defines the persistence contract for notes.
type NoteRepository interface {
	// Save persists a note (create or update).
	Save(ctx context.Context, note *domain.Note) error

	// GetByID retrieves a note by its ID.
	GetByID(ctx context.Context, id string) (*domain.Note, error)

	// ListByUser retrieves all notes owned by a user, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Note, error)

	// Delete removes a note.
	Delete(ctx context.Context, id string) error
}
