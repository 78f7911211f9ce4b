// Package domain holds the core entities of the notes service. Entities are
// persistence-agnostic; repositories adapt them to their stores.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "relay/pkg/errors"
)

// Note is a user-owned piece of content.
type Note struct {
	ID        string    `json:"id" dynamodbav:"id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Title     string    `json:"title" dynamodbav:"title"`
	Content   string    `json:"content" dynamodbav:"content"`
	Tags      []string  `json:"tags,omitempty" dynamodbav:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

const (
	maxTitleLength   = 200
	maxContentLength = 50000
)

// NewNote creates a note with a fresh identity and timestamps.
func NewNote(userID, title, content string, tags []string) (*Note, error) {
	now := time.Now().UTC()
	n := &Note{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		Content:   content,
		Tags:      normalizeTags(tags),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// Validate checks the entity's invariants.
func (n *Note) Validate() error {
	if n.UserID == "" {
		return apperrors.NewValidationError("note requires an owner")
	}
	if n.Title == "" {
		return apperrors.NewValidationError("note title must not be empty")
	}
	if len(n.Title) > maxTitleLength {
		return apperrors.NewValidationError("note title exceeds maximum length")
	}
	if len(n.Content) > maxContentLength {
		return apperrors.NewValidationError("note content exceeds maximum length")
	}
	return nil
}

// Update applies new content to the note, refreshing the update timestamp.
func (n *Note) Update(title, content string, tags []string) error {
	updated := *n
	updated.Title = strings.TrimSpace(title)
	updated.Content = content
	updated.Tags = normalizeTags(tags)
	if err := updated.Validate(); err != nil {
		return err
	}

	*n = updated
	n.UpdatedAt = time.Now().UTC()
	return nil
}

// HasTag reports whether the note carries the given tag.
func (n *Note) HasTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, t := range n.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
