package repository

import (
	"context"
	"time"

	"github.com/dododo1295/notetree/model"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NoteStore persists notes keyed by id and scoped by owner. Every lookup,
// update and delete filters on both id and owner, so a note owned by someone
// else is reported as model.ErrNoteNotFound. Driver failures come back as
// *model.TransientError.
type NoteStore interface {
	// FindByOwner returns all of the owner's notes in no particular order.
	FindByOwner(ctx context.Context, userID string) ([]*model.Note, error)
	FindOne(ctx context.Context, userID, noteID string) (*model.Note, error)
	// Insert stores note, assigning a fresh id when note.ID is empty.
	Insert(ctx context.Context, note *model.Note) error
	// Update applies changes and returns the stored result.
	Update(ctx context.Context, userID, noteID string, changes NoteChanges) (*model.Note, error)
	Delete(ctx context.Context, userID, noteID string) error
	Ping(ctx context.Context) error
	Name() string
}

// NoteChanges is the store-level form of a partial update: the client's
// fields plus the server-computed ones.
type NoteChanges struct {
	Update    model.NoteUpdate
	Markdown  *string
	UpdatedAt time.Time
}

// NewNoteID returns a new 24 hex character note id.
func NewNoteID() string {
	return primitive.NewObjectID().Hex()
}

func transient(op string, err error) error {
	return &model.TransientError{Op: op, Err: err}
}
