package model

import (
	"time"
)

// Document is the editor's structured rich-text value. The server treats it
// as opaque apart from requiring a JSON object.
type Document map[string]interface{}

// EmptyDocument returns the document stored when a note is created without content.
func EmptyDocument() Document {
	return Document{"type": "doc", "content": []interface{}{}}
}

// Note is one owner's note as stored and as sent over the wire.
type Note struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	UserID    string    `bson:"user_id" json:"ownerId"`
	Title     string    `bson:"title" json:"title"`
	Content   Document  `bson:"content" json:"content"`
	Markdown  string    `bson:"markdown" json:"derivedText"`
	Tags      []string  `bson:"tags" json:"tags"`
	ParentID  *string   `bson:"parent_id" json:"parentId"`
	Order     float64   `bson:"order" json:"order"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsRoot reports whether the note sits at the top level of its owner's forest.
func (n *Note) IsRoot() bool {
	return n.ParentID == nil || *n.ParentID == ""
}

// ParentKey returns the parent id, with "" standing for the root.
func (n *Note) ParentKey() string {
	if n.ParentID == nil {
		return ""
	}
	return *n.ParentID
}

// Clone returns a copy that shares no slices, maps or pointers with n.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	c := *n
	if n.Tags != nil {
		c.Tags = append([]string(nil), n.Tags...)
	}
	if n.ParentID != nil {
		p := *n.ParentID
		c.ParentID = &p
	}
	c.Content = n.Content.Clone()
	return &c
}

// Clone deep-copies the document tree.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return cloneValue(map[string]interface{}(d)).(map[string]interface{})
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case Document:
		return cloneValue(map[string]interface{}(t))
	case []interface{}:
		s := make([]interface{}, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	default:
		return v
	}
}

// StringPtr is a small helper for optional string fields.
func StringPtr(s string) *string {
	return &s
}
