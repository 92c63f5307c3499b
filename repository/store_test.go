package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dododo1295/notetree/model"
	"github.com/dododo1295/notetree/repository"
	"github.com/dododo1295/notetree/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newNote(owner, title string, parent *string, order float64) *model.Note {
	return &model.Note{
		UserID: owner,
		Title:  title,
		Content: model.Document{
			"type": "doc",
			"content": []interface{}{
				map[string]interface{}{
					"type": "paragraph",
					"content": []interface{}{
						map[string]interface{}{"type": "text", "text": title},
					},
				},
			},
		},
		Markdown:  title,
		Tags:      []string{"work"},
		ParentID:  parent,
		Order:     order,
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
}

func TestSQLNotesRepo(t *testing.T) {
	runStoreContract(t, func(t *testing.T) repository.NoteStore {
		return testutils.NewSQLStore(t)
	})
}

func TestMongoNotesRepo(t *testing.T) {
	runStoreContract(t, func(t *testing.T) repository.NoteStore {
		db := testutils.SetupTestDB(t)
		require.NoError(t, repository.SetupIndexes(db))
		return repository.GetNotesRepo(db.Client(), db.Name())
	})
}

func runStoreContract(t *testing.T, newStore func(t *testing.T) repository.NoteStore) {
	ctx := context.Background()

	t.Run("InsertAssignsIDAndFindOneRoundTrips", func(t *testing.T) {
		store := newStore(t)
		note := newNote("alice", "Plans", nil, 1)
		require.NoError(t, store.Insert(ctx, note))
		require.Len(t, note.ID, 24)

		got, err := store.FindOne(ctx, "alice", note.ID)
		require.NoError(t, err)
		assert.Equal(t, note.ID, got.ID)
		assert.Equal(t, "alice", got.UserID)
		assert.Equal(t, "Plans", got.Title)
		assert.Equal(t, []string{"work"}, got.Tags)
		assert.Nil(t, got.ParentID)
		assert.Equal(t, float64(1), got.Order)
		assert.True(t, baseTime.Equal(got.CreatedAt))
		assert.Equal(t, "doc", got.Content["type"])

		blocks, ok := got.Content["content"].([]interface{})
		require.True(t, ok, "content children should decode as a plain slice")
		require.Len(t, blocks, 1)
		para, ok := blocks[0].(map[string]interface{})
		require.True(t, ok, "blocks should decode as plain maps")
		assert.Equal(t, "paragraph", para["type"])
	})

	t.Run("OwnerScoping", func(t *testing.T) {
		store := newStore(t)
		note := newNote("alice", "Secret", nil, 1)
		require.NoError(t, store.Insert(ctx, note))

		_, err := store.FindOne(ctx, "bob", note.ID)
		assert.ErrorIs(t, err, model.ErrNoteNotFound)

		title := "hijacked"
		_, err = store.Update(ctx, "bob", note.ID, repository.NoteChanges{
			Update:    model.NoteUpdate{Title: &title},
			UpdatedAt: baseTime.Add(time.Minute),
		})
		assert.ErrorIs(t, err, model.ErrNoteNotFound)

		assert.ErrorIs(t, store.Delete(ctx, "bob", note.ID), model.ErrNoteNotFound)

		bobs, err := store.FindByOwner(ctx, "bob")
		require.NoError(t, err)
		assert.Empty(t, bobs)

		got, err := store.FindOne(ctx, "alice", note.ID)
		require.NoError(t, err)
		assert.Equal(t, "Secret", got.Title)
	})

	t.Run("FindByOwnerReturnsOnlyOwnersNotes", func(t *testing.T) {
		store := newStore(t)
		for _, title := range []string{"a", "b", "c"} {
			require.NoError(t, store.Insert(ctx, newNote("alice", title, nil, 1)))
		}
		require.NoError(t, store.Insert(ctx, newNote("bob", "d", nil, 1)))

		notes, err := store.FindByOwner(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, notes, 3)
		for _, n := range notes {
			assert.Equal(t, "alice", n.UserID)
		}
	})

	t.Run("UpdateChangesOnlyPresentFields", func(t *testing.T) {
		store := newStore(t)
		note := newNote("alice", "Before", nil, 5)
		require.NoError(t, store.Insert(ctx, note))

		title := "After"
		later := baseTime.Add(time.Hour)
		got, err := store.Update(ctx, "alice", note.ID, repository.NoteChanges{
			Update:    model.NoteUpdate{Title: &title},
			UpdatedAt: later,
		})
		require.NoError(t, err)
		assert.Equal(t, "After", got.Title)
		assert.Equal(t, float64(5), got.Order)
		assert.Equal(t, []string{"work"}, got.Tags)
		assert.Equal(t, "Before", got.Markdown)
		assert.True(t, later.Equal(got.UpdatedAt))
		assert.True(t, baseTime.Equal(got.CreatedAt))
	})

	t.Run("UpdateParentSetAndClear", func(t *testing.T) {
		store := newStore(t)
		parent := newNote("alice", "Parent", nil, 1)
		child := newNote("alice", "Child", nil, 2)
		require.NoError(t, store.Insert(ctx, parent))
		require.NoError(t, store.Insert(ctx, child))

		got, err := store.Update(ctx, "alice", child.ID, repository.NoteChanges{
			Update:    model.NoteUpdate{ParentID: model.SetID(parent.ID)},
			UpdatedAt: baseTime.Add(time.Minute),
		})
		require.NoError(t, err)
		require.NotNil(t, got.ParentID)
		assert.Equal(t, parent.ID, *got.ParentID)

		got, err = store.Update(ctx, "alice", child.ID, repository.NoteChanges{
			Update:    model.NoteUpdate{ParentID: model.ClearID()},
			UpdatedAt: baseTime.Add(2 * time.Minute),
		})
		require.NoError(t, err)
		assert.Nil(t, got.ParentID)
	})

	t.Run("UpdateContentAndMarkdown", func(t *testing.T) {
		store := newStore(t)
		note := newNote("alice", "Doc", nil, 1)
		require.NoError(t, store.Insert(ctx, note))

		md := "**bold**"
		tags := []string{}
		got, err := store.Update(ctx, "alice", note.ID, repository.NoteChanges{
			Update: model.NoteUpdate{
				Content: model.EmptyDocument(),
				Tags:    &tags,
			},
			Markdown:  &md,
			UpdatedAt: baseTime.Add(time.Minute),
		})
		require.NoError(t, err)
		assert.Equal(t, "**bold**", got.Markdown)
		assert.Empty(t, got.Tags)
		assert.Equal(t, "doc", got.Content["type"])
	})

	t.Run("DeleteLeavesChildren", func(t *testing.T) {
		store := newStore(t)
		parent := newNote("alice", "Parent", nil, 1)
		require.NoError(t, store.Insert(ctx, parent))
		child := newNote("alice", "Child", &parent.ID, 1)
		require.NoError(t, store.Insert(ctx, child))

		require.NoError(t, store.Delete(ctx, "alice", parent.ID))
		_, err := store.FindOne(ctx, "alice", parent.ID)
		assert.True(t, errors.Is(err, model.ErrNoteNotFound))

		orphan, err := store.FindOne(ctx, "alice", child.ID)
		require.NoError(t, err)
		require.NotNil(t, orphan.ParentID)
		assert.Equal(t, parent.ID, *orphan.ParentID)

		assert.ErrorIs(t, store.Delete(ctx, "alice", parent.ID), model.ErrNoteNotFound)
	})

	t.Run("Ping", func(t *testing.T) {
		store := newStore(t)
		assert.NoError(t, store.Ping(ctx))
		assert.NotEmpty(t, store.Name())
	})
}
