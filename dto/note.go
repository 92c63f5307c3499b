package dto

import (
	"bytes"
	"encoding/json"

	"github.com/dododo1295/notetree/model"
)

// NoteURI binds the :id path segment.
type NoteURI struct {
	ID string `uri:"id" binding:"required,objectid"`
}

type SearchQuery struct {
	Q string `form:"q" binding:"required,min=2"`
}

// CreateNoteRequest is the POST body. Title must be present but may be
// empty; content, when present, must be a JSON object.
type CreateNoteRequest struct {
	Title    *string         `json:"title" binding:"required,max=200"`
	Content  json.RawMessage `json:"content"`
	Tags     []string        `json:"tags" binding:"omitempty,dive,max=64,notetag"`
	ParentID *string         `json:"parentId"`
	Order    *float64        `json:"order"`
}

// UpdateNoteRequest is the PUT body. Omitted fields are left unchanged;
// parentId null moves the note to the root.
type UpdateNoteRequest struct {
	Title    *string          `json:"title" binding:"omitempty,max=200"`
	Content  json.RawMessage  `json:"content"`
	Tags     *[]string        `json:"tags"`
	ParentID model.OptionalID `json:"parentId"`
	Order    *float64         `json:"order"`
}

func (r *CreateNoteRequest) ToInput() (model.NoteInput, error) {
	content, err := decodeContent(r.Content)
	if err != nil {
		return model.NoteInput{}, err
	}

	in := model.NoteInput{
		Content: content,
		Tags:    r.Tags,
		Order:   r.Order,
	}
	if r.Title != nil {
		in.Title = *r.Title
	}
	if r.ParentID != nil && *r.ParentID != "" {
		in.ParentID = r.ParentID
	}
	return in, nil
}

func (r *UpdateNoteRequest) ToUpdate() (model.NoteUpdate, error) {
	content, err := decodeContent(r.Content)
	if err != nil {
		return model.NoteUpdate{}, err
	}
	return model.NoteUpdate{
		Title:    r.Title,
		Content:  content,
		Tags:     r.Tags,
		ParentID: r.ParentID,
		Order:    r.Order,
	}, nil
}

// decodeContent returns nil for an absent field and rejects anything that
// is not a JSON object.
func decodeContent(raw json.RawMessage) (model.Document, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, model.NewValidationError("content", "content must be a JSON object")
	}
	var doc model.Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, model.NewValidationError("content", "content must be a JSON object")
	}
	return doc, nil
}
