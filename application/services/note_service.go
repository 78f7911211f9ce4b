// Package services implements the application-level use cases of the notes
// service. Services orchestrate domain entities through repository ports and
// stay transport-agnostic.
package services

import (
	"context"

	"go.uber.org/zap"

	"relay/application/ports"
	"relay/domain"
	apperrors "relay/pkg/errors"
)

// NoteService provides the note use cases.
type NoteService struct {
	repo   ports.NoteRepository
	logger *zap.Logger
}

// NewNoteService creates a note service.
func NewNoteService(repo ports.NoteRepository, logger *zap.Logger) *NoteService {
	return &NoteService{
		repo:   repo,
		logger: logger,
	}
}

// Create creates a note owned by userID.
func (s *NoteService) Create(ctx context.Context, userID, title, content string, tags []string) (*domain.Note, error) {
	note, err := domain.NewNote(userID, title, content, tags)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, note); err != nil {
		return nil, apperrors.Wrap(err, "failed to save note")
	}

	s.logger.Debug("note created",
		zap.String("note_id", note.ID),
		zap.String("user_id", userID),
	)
	return note, nil
}

// Get retrieves a note, enforcing ownership when userID is non-empty.
func (s *NoteService) Get(ctx context.Context, userID, id string) (*domain.Note, error) {
	note, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID != "" && note.UserID != userID {
		// Hide other users' notes rather than admitting they exist.
		return nil, apperrors.NewNotFoundError("note")
	}
	return note, nil
}

// List retrieves all notes owned by userID, newest first.
func (s *NoteService) List(ctx context.Context, userID string) ([]*domain.Note, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("user id is required")
	}
	return s.repo.ListByUser(ctx, userID)
}

// Update replaces a note's content.
func (s *NoteService) Update(ctx context.Context, userID, id, title, content string, tags []string) (*domain.Note, error) {
	note, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if err := note.Update(title, content, tags); err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, note); err != nil {
		return nil, apperrors.Wrap(err, "failed to update note")
	}

	s.logger.Debug("note updated", zap.String("note_id", note.ID))
	return note, nil
}

// Delete removes a note.
func (s *NoteService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return apperrors.Wrap(err, "failed to delete note")
	}

	s.logger.Debug("note deleted", zap.String("note_id", id))
	return nil
}
