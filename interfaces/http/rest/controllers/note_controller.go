// Package controllers binds application services to route table entries.
// Controllers translate decoded payloads and path parameters into service
// calls; they never touch the raw transport.
package controllers

import (
	"context"

	"go.uber.org/zap"

	"relay/application/services"
	"relay/pkg/common"
	apperrors "relay/pkg/errors"
	"relay/pkg/routing"
)

// CreateNoteRequest is the payload for creating a note.
type CreateNoteRequest struct {
	Title   string   `json:"title" validate:"required,min=1,max=200"`
	Content string   `json:"content" validate:"max=50000"`
	Tags    []string `json:"tags,omitempty" validate:"max=20,dive,min=1,max=50"`
}

// UpdateNoteRequest is the payload for updating a note.
type UpdateNoteRequest struct {
	Title   string   `json:"title" validate:"required,min=1,max=200"`
	Content string   `json:"content" validate:"max=50000"`
	Tags    []string `json:"tags,omitempty" validate:"max=20,dive,min=1,max=50"`
}

// NoteController exposes the note use cases over the route table.
type NoteController struct {
	notes  *services.NoteService
	logger *zap.Logger
}

// NewNoteController creates a note controller.
func NewNoteController(notes *services.NoteService, logger *zap.Logger) *NoteController {
	return &NoteController{notes: notes, logger: logger}
}

// RegisterRoutes registers the controller's routes. Called once at startup,
// before the table freezes.
func (c *NoteController) RegisterRoutes(table *routing.Table) error {
	type route struct {
		method  string
		pattern string
		handler routing.HandlerFunc
		opts    []routing.RegisterOption
	}

	routes := []route{
		{"POST", "/api/notes", c.create, []routing.RegisterOption{
			routing.WithPayload(func() interface{} { return &CreateNoteRequest{} }),
		}},
		{"GET", "/api/notes", c.list, nil},
		{"GET", "/api/notes/{id}", c.get, nil},
		{"PUT", "/api/notes/{id}", c.update, []routing.RegisterOption{
			routing.WithPayload(func() interface{} { return &UpdateNoteRequest{} }),
		}},
		{"DELETE", "/api/notes/{id}", c.delete, nil},
	}

	for _, r := range routes {
		if err := table.Register(r.method, r.pattern, r.handler, c, r.opts...); err != nil {
			return err
		}
	}
	return nil
}

func (c *NoteController) create(ctx context.Context, payload interface{}) (interface{}, error) {
	req, ok := payload.(*CreateNoteRequest)
	if !ok {
		return nil, apperrors.NewInternalError("unexpected payload type")
	}

	return c.notes.Create(ctx, callerID(ctx), req.Title, req.Content, req.Tags)
}

func (c *NoteController) list(ctx context.Context, _ interface{}) (interface{}, error) {
	return c.notes.List(ctx, callerID(ctx))
}

func (c *NoteController) get(ctx context.Context, _ interface{}) (interface{}, error) {
	return c.notes.Get(ctx, callerID(ctx), common.RouteParam(ctx, "id"))
}

func (c *NoteController) update(ctx context.Context, payload interface{}) (interface{}, error) {
	req, ok := payload.(*UpdateNoteRequest)
	if !ok {
		return nil, apperrors.NewInternalError("unexpected payload type")
	}

	return c.notes.Update(ctx, callerID(ctx), common.RouteParam(ctx, "id"), req.Title, req.Content, req.Tags)
}

func (c *NoteController) delete(ctx context.Context, _ interface{}) (interface{}, error) {
	if err := c.notes.Delete(ctx, callerID(ctx), common.RouteParam(ctx, "id")); err != nil {
		return nil, err
	}
	return map[string]string{"status": "deleted"}, nil
}

// callerID returns the authenticated user id, or the anonymous fallback when
// the deployment runs without authentication.
func callerID(ctx context.Context) string {
	if userID, ok := common.GetUserID(ctx); ok && userID != "" {
		return userID
	}
	return "anonymous"
}
