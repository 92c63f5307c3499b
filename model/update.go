package model

import (
	"bytes"
	"encoding/json"
)

// OptionalID distinguishes an omitted parentId from an explicit null.
// Set is false when the field was absent; Set with a nil Value means "move to root".
type OptionalID struct {
	Set   bool
	Value *string
}

// SetID returns an OptionalID that replaces the field with id.
func SetID(id string) OptionalID {
	return OptionalID{Set: true, Value: &id}
}

// ClearID returns an OptionalID that replaces the field with null.
func ClearID() OptionalID {
	return OptionalID{Set: true}
}

func (o *OptionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		o.Value = nil
		return nil
	}
	o.Value = &s
	return nil
}

func (o OptionalID) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// IsZero lets encoders with omitzero skip an unset field.
func (o OptionalID) IsZero() bool {
	return !o.Set
}

// NoteUpdate is a partial update: nil fields are left unchanged, present
// fields replace the stored value.
type NoteUpdate struct {
	Title    *string    `json:"title,omitempty"`
	Content  Document   `json:"content,omitzero"`
	Tags     *[]string  `json:"tags,omitempty"`
	ParentID OptionalID `json:"parentId,omitzero"`
	Order    *float64   `json:"order,omitempty"`
}

// IsEmpty reports whether the update would change nothing.
func (u *NoteUpdate) IsEmpty() bool {
	return u.Title == nil && u.Content == nil && u.Tags == nil && !u.ParentID.Set && u.Order == nil
}

// Merge folds newer on top of u, newer fields winning.
func (u *NoteUpdate) Merge(newer NoteUpdate) {
	if newer.Title != nil {
		t := *newer.Title
		u.Title = &t
	}
	if newer.Content != nil {
		u.Content = newer.Content.Clone()
	}
	if newer.Tags != nil {
		tags := append([]string(nil), (*newer.Tags)...)
		u.Tags = &tags
	}
	if newer.ParentID.Set {
		u.ParentID = newer.ParentID
	}
	if newer.Order != nil {
		o := *newer.Order
		u.Order = &o
	}
}

// ApplyTo shallow-merges the present fields into n. Server-computed fields are untouched.
func (u *NoteUpdate) ApplyTo(n *Note) {
	if u.Title != nil {
		n.Title = *u.Title
	}
	if u.Content != nil {
		n.Content = u.Content.Clone()
	}
	if u.Tags != nil {
		n.Tags = append([]string(nil), (*u.Tags)...)
	}
	if u.ParentID.Set {
		if u.ParentID.Value == nil {
			n.ParentID = nil
		} else {
			p := *u.ParentID.Value
			n.ParentID = &p
		}
	}
	if u.Order != nil {
		n.Order = *u.Order
	}
}

// NoteInput carries the client-supplied fields of a create call.
type NoteInput struct {
	Title    string
	Content  Document
	Tags     []string
	ParentID *string
	Order    *float64
}
