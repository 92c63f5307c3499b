package repository

import (
	"context"
	"errors"

	"github.com/dododo1295/notetree/model"
	"github.com/dododo1295/notetree/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const notesCollection = "notes"

type NotesRepo struct {
	MongoCollection *mongo.Collection
}

func GetNotesRepo(client *mongo.Client, dbName string) *NotesRepo {
	return &NotesRepo{
		MongoCollection: client.Database(dbName).Collection(notesCollection),
	}
}

func (r *NotesRepo) Name() string {
	return "mongo"
}

func (r *NotesRepo) Ping(ctx context.Context) error {
	if err := r.MongoCollection.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return transient("ping mongo", err)
	}
	return nil
}

// Insert creates a new note
func (r *NotesRepo) Insert(ctx context.Context, note *model.Note) error {
	timer := utils.TrackDBOperation("insert", notesCollection)
	defer timer.ObserveDuration()

	if note.UserID == "" {
		return errors.New("user ID is required")
	}
	if note.ID == "" {
		note.ID = NewNoteID()
	}

	if _, err := r.MongoCollection.InsertOne(ctx, note); err != nil {
		utils.TrackError("database", "note_insert_failed")
		return transient("insert note", err)
	}
	return nil
}

// FindByOwner retrieves all notes for a user
func (r *NotesRepo) FindByOwner(ctx context.Context, userID string) ([]*model.Note, error) {
	timer := utils.TrackDBOperation("find", notesCollection)
	defer timer.ObserveDuration()

	cursor, err := r.MongoCollection.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		utils.TrackError("database", "note_find_failed")
		return nil, transient("find notes", err)
	}
	defer cursor.Close(ctx)

	notes := make([]*model.Note, 0)
	if err = cursor.All(ctx, &notes); err != nil {
		return nil, transient("decode notes", err)
	}
	for _, n := range notes {
		normalizeNote(n)
	}
	return notes, nil
}

// FindOne retrieves a specific note
func (r *NotesRepo) FindOne(ctx context.Context, userID, noteID string) (*model.Note, error) {
	timer := utils.TrackDBOperation("find_one", notesCollection)
	defer timer.ObserveDuration()

	var note model.Note
	err := r.MongoCollection.FindOne(ctx, bson.M{"_id": noteID, "user_id": userID}).Decode(&note)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrNoteNotFound
		}
		return nil, transient("find note", err)
	}
	normalizeNote(&note)
	return &note, nil
}

// Update sets only the fields present in changes
func (r *NotesRepo) Update(ctx context.Context, userID, noteID string, changes NoteChanges) (*model.Note, error) {
	timer := utils.TrackDBOperation("update", notesCollection)
	defer timer.ObserveDuration()

	filter := bson.M{
		"_id":     noteID,
		"user_id": userID,
	}
	update := bson.M{"$set": setFields(changes)}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var note model.Note
	err := r.MongoCollection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&note)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrNoteNotFound
		}
		utils.TrackError("database", "note_update_failed")
		return nil, transient("update note", err)
	}
	normalizeNote(&note)
	return &note, nil
}

// Delete deletes a specific note. Children keep their parent_id.
func (r *NotesRepo) Delete(ctx context.Context, userID, noteID string) error {
	timer := utils.TrackDBOperation("delete", notesCollection)
	defer timer.ObserveDuration()

	filter := bson.M{
		"_id":     noteID,
		"user_id": userID,
	}

	result, err := r.MongoCollection.DeleteOne(ctx, filter)
	if err != nil {
		utils.TrackError("database", "note_delete_failed")
		return transient("delete note", err)
	}

	if result.DeletedCount == 0 {
		return model.ErrNoteNotFound
	}

	return nil
}

func setFields(changes NoteChanges) bson.M {
	set := bson.M{"updated_at": changes.UpdatedAt}
	u := changes.Update
	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.Content != nil {
		set["content"] = u.Content
	}
	if changes.Markdown != nil {
		set["markdown"] = *changes.Markdown
	}
	if u.Tags != nil {
		set["tags"] = *u.Tags
	}
	if u.ParentID.Set {
		if u.ParentID.Value == nil {
			set["parent_id"] = nil
		} else {
			set["parent_id"] = *u.ParentID.Value
		}
	}
	if u.Order != nil {
		set["order"] = *u.Order
	}
	return set
}

// normalizeNote replaces the driver's primitive.A/D/M values inside content
// with plain maps and slices, and fills nil collections.
func normalizeNote(n *model.Note) {
	if n.Content != nil {
		n.Content = normalizeValue(map[string]interface{}(n.Content)).(map[string]interface{})
	} else {
		n.Content = model.EmptyDocument()
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			t[k] = normalizeValue(val)
		}
		return t
	case model.Document:
		return normalizeValue(map[string]interface{}(t))
	case primitive.M:
		return normalizeValue(map[string]interface{}(t))
	case primitive.D:
		m := make(map[string]interface{}, len(t))
		for _, e := range t {
			m[e.Key] = normalizeValue(e.Value)
		}
		return m
	case primitive.A:
		return normalizeValue([]interface{}(t))
	case []interface{}:
		for i, val := range t {
			t[i] = normalizeValue(val)
		}
		return t
	case int32:
		return float64(t)
	case int64:
		return float64(t)
	default:
		return v
	}
}
