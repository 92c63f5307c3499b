package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dododo1295/notetree/model"
	"github.com/dododo1295/notetree/repository"
	"github.com/dododo1295/notetree/testutils"
	"github.com/dododo1295/notetree/usecase"
)

var start = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func setupNotesUsecaseTest(t *testing.T) *usecase.NotesService {
	t.Helper()
	svc := usecase.NewNotesService(testutils.NewSQLStore(t), nil)
	svc.Now = testutils.NewStepClock(start).Now
	return svc
}

func mustCreate(t *testing.T, svc *usecase.NotesService, owner string, in model.NoteInput) *model.Note {
	t.Helper()
	note, err := svc.Create(context.Background(), owner, in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return note
}

func paragraphDoc(text string) model.Document {
	return model.Document{
		"type": "doc",
		"content": []interface{}{
			map[string]interface{}{
				"type": "paragraph",
				"content": []interface{}{
					map[string]interface{}{"type": "text", "text": text},
				},
			},
		},
	}
}

func TestCreateNote(t *testing.T) {
	svc := setupNotesUsecaseTest(t)
	ctx := context.Background()
	order := 7.5
	badID := "not-an-id"
	missing := "0123456789abcdef01234567"

	manyTags := make([]string, usecase.MaxTags+1)
	for i := range manyTags {
		manyTags[i] = strings.Repeat("t", i+1)
	}

	tests := []struct {
		name      string
		in        model.NoteInput
		wantErr   bool
		wantField string
	}{
		{
			name: "Valid Note",
			in:   model.NoteInput{Title: "Plans", Content: paragraphDoc("hello"), Tags: []string{"work"}},
		},
		{
			name: "Empty Title Allowed",
			in:   model.NoteInput{Title: ""},
		},
		{
			name: "Explicit Order",
			in:   model.NoteInput{Title: "Ordered", Order: &order},
		},
		{
			name:      "Title Too Long",
			in:        model.NoteInput{Title: strings.Repeat("a", usecase.MaxTitleLength+1)},
			wantErr:   true,
			wantField: "title",
		},
		{
			name:      "Too Many Tags",
			in:        model.NoteInput{Title: "Tags", Tags: manyTags},
			wantErr:   true,
			wantField: "tags",
		},
		{
			name:      "Tag Too Long",
			in:        model.NoteInput{Title: "Tags", Tags: []string{strings.Repeat("x", usecase.MaxTagLength+1)}},
			wantErr:   true,
			wantField: "tags",
		},
		{
			name:      "Tag With Comma",
			in:        model.NoteInput{Title: "Tags", Tags: []string{"a,b"}},
			wantErr:   true,
			wantField: "tags",
		},
		{
			name:      "Malformed Parent",
			in:        model.NoteInput{Title: "Child", ParentID: &badID},
			wantErr:   true,
			wantField: "parentId",
		},
		{
			name:      "Unknown Parent",
			in:        model.NoteInput{Title: "Child", ParentID: &missing},
			wantErr:   true,
			wantField: "parentId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			note, err := svc.Create(ctx, "alice", tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				var ve *model.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("Create() error = %T, want *model.ValidationError", err)
				}
				if ve.Field != tt.wantField {
					t.Errorf("ValidationError.Field = %q, want %q", ve.Field, tt.wantField)
				}
				return
			}
			if note.ID == "" {
				t.Error("Create() returned a note without an ID")
			}
			if note.UserID != "alice" {
				t.Errorf("UserID = %q, want alice", note.UserID)
			}
			if note.CreatedAt.IsZero() || !note.CreatedAt.Equal(note.UpdatedAt) {
				t.Errorf("timestamps not set: created %v updated %v", note.CreatedAt, note.UpdatedAt)
			}
		})
	}
}

func TestCreateNoteDefaults(t *testing.T) {
	svc := setupNotesUsecaseTest(t)
	note := mustCreate(t, svc, "alice", model.NoteInput{Title: "Defaults", Tags: []string{" work ", "", "work", "home"}})

	if note.Content["type"] != "doc" {
		t.Errorf("Content = %v, want empty document", note.Content)
	}
	if note.ParentID != nil {
		t.Errorf("ParentID = %v, want nil", *note.ParentID)
	}
	if want := float64(note.CreatedAt.UnixMilli()); note.Order != want {
		t.Errorf("Order = %v, want creation time in ms %v", note.Order, want)
	}
	if got := strings.Join(note.Tags, ","); got != "work,home" {
		t.Errorf("Tags = %q, want normalized work,home", got)
	}
}

func TestCreateNoteDerivesMarkdown(t *testing.T) {
	svc := setupNotesUsecaseTest(t)
	note := mustCreate(t, svc, "alice", model.NoteInput{Title: "Md", Content: paragraphDoc("hello world")})

	if note.Markdown != "hello world" {
		t.Errorf("Markdown = %q, want %q", note.Markdown, "hello world")
	}
}

func TestOwnershipIsolation(t *testing.T) {
	svc := setupNotesUsecaseTest(t)
	ctx := context.Background()
	note := mustCreate(t, svc, "alice", model.NoteInput{Title: "Private"})

	if _, err := svc.GetByID(ctx, "bob", note.ID); !errors.Is(err, model.ErrNoteNotFound) {
		t.Errorf("GetByID() as other owner error = %v, want ErrNoteNotFound", err)
	}
	title := "mine now"
	if _, err := svc.Update(ctx, "bob", note.ID, model.NoteUpdate{Title: &title}); !errors.Is(err, model.ErrNoteNotFound) {
		t.Errorf("Update() as other owner error = %v, want ErrNoteNotFound", err)
	}
	if err := svc.Delete(ctx, "bob", note.ID); !errors.Is(err, model.ErrNoteNotFound) {
		t.Errorf("Delete() as other owner error = %v, want ErrNoteNotFound", err)
	}

	bobs, err := svc.List(ctx, "bob")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(bobs) != 0 {
		t.Errorf("List() for bob returned %d notes, want 0", len(bobs))
	}

	// Absent and foreign notes must be indistinguishable.
	_, errForeign := svc.GetByID(ctx, "bob", note.ID)
	_, errMissing := svc.GetByID(ctx, "bob", "0123456789abcdef01234567")
	if errForeign.Error() != errMissing.Error() {
		t.Errorf("foreign error %q differs from missing error %q", errForeign, errMissing)
	}

	// A foreign note cannot be used as a parent either.
	_, err = svc.Create(ctx, "bob", model.NoteInput{Title: "Child", ParentID: &note.ID})
	if !model.IsValidation(err) {
		t.Errorf("Create() under foreign parent error = %v, want ValidationError", err)
	}

	got, err := svc.GetByID(ctx, "alice", note.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != "Private" {
		t.Errorf("Title = %q, want unchanged", got.Title)
	}
}

func TestInvalidNoteID(t *testing.T) {
	svc := setupNotesUsecaseTest(t)
	ctx := context.Background()

	if _, err := svc.GetByID(ctx, "alice", "abc"); !errors.Is(err, model.ErrInvalidID) {
		t.Errorf("GetByID() error = %v, want ErrInvalidID", err)
	}
	if _, err := svc.Update(ctx, "alice", "abc", model.NoteUpdate{}); !errors.Is(err, model.ErrInvalidID) {
		t.Errorf("Update() error = %v, want ErrInvalidID", err)
	}
	if err := svc.Delete(ctx, "alice", "abc"); !errors.Is(err, model.ErrInvalidID) {
		t.Errorf("Delete() error = %v, want ErrInvalidID", err)
	}
}

func TestUpdateNoteUsecase(t *testing.T) {
	svc := setupNotesUsecaseTest(t)
	ctx := context.Background()
	parent := mustCreate(t, svc, "alice", model.NoteInput{Title: "Parent"})
	note := mustCreate(t, svc, "alice", model.NoteInput{Title: "Note", Content: paragraphDoc("before"), Tags: []string{"a"}})

	t.Run("Title Only", func(t *testing.T) {
		title := "Renamed"
		got, err := svc.Update(ctx, "alice", note.ID, model.NoteUpdate{Title: &title})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if got.Title != "Renamed" || got.Markdown != "before" || len(got.Tags) != 1 {
			t.Errorf("Update() = %+v, want only title changed", got)
		}
		if !got.UpdatedAt.After(note.UpdatedAt) {
			t.Errorf("UpdatedAt %v not after %v", got.UpdatedAt, note.UpdatedAt)
		}
		if !got.CreatedAt.Equal(note.CreatedAt) {
			t.Errorf("CreatedAt changed to %v", got.CreatedAt)
		}
	})

	t.Run("Content Recomputes Markdown", func(t *testing.T) {
		got, err := svc.Update(ctx, "alice", note.ID, model.NoteUpdate{Content: paragraphDoc("after")})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if got.Markdown != "after" {
			t.Errorf("Markdown = %q, want after", got.Markdown)
		}
	})

	t.Run("Move Under Parent And Back To Root", func(t *testing.T) {
		got, err := svc.Update(ctx, "alice", note.ID, model.NoteUpdate{ParentID: model.SetID(parent.ID)})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if got.ParentID == nil || *got.ParentID != parent.ID {
			t.Fatalf("ParentID = %v, want %s", got.ParentID, parent.ID)
		}

		got, err = svc.Update(ctx, "alice", note.ID, model.NoteUpdate{ParentID: model.ClearID()})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if got.ParentID != nil {
			t.Errorf("ParentID = %v, want nil", *got.ParentID)
		}
	})

	t.Run("Own Parent Rejected", func(t *testing.T) {
		_, err := svc.Update(ctx, "alice", note.ID, model.NoteUpdate{ParentID: model.SetID(note.ID)})
		if !model.IsValidation(err) {
			t.Errorf("Update() error = %v, want ValidationError", err)
		}
	})

	t.Run("Tags Normalized", func(t *testing.T) {
		tags := []string{"x", " x ", "y"}
		got, err := svc.Update(ctx, "alice", note.ID, model.NoteUpdate{Tags: &tags})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if strings.Join(got.Tags, ",") != "x,y" {
			t.Errorf("Tags = %v, want [x y]", got.Tags)
		}
	})

	t.Run("Missing Note", func(t *testing.T) {
		title := "x"
		_, err := svc.Update(ctx, "alice", "0123456789abcdef01234567", model.NoteUpdate{Title: &title})
		if !errors.Is(err, model.ErrNoteNotFound) {
			t.Errorf("Update() error = %v, want ErrNoteNotFound", err)
		}
	})

	t.Run("Empty Update Touches Timestamp", func(t *testing.T) {
		before, _ := svc.GetByID(ctx, "alice", note.ID)
		got, err := svc.Update(ctx, "alice", note.ID, model.NoteUpdate{})
		if err != nil {
			t.Fatalf("Update() error = %v", err)
		}
		if !got.UpdatedAt.After(before.UpdatedAt) {
			t.Errorf("UpdatedAt not advanced by empty update")
		}
	})
}

func TestDeleteKeepsChildren(t *testing.T) {
	svc := setupNotesUsecaseTest(t)
	ctx := context.Background()
	parent := mustCreate(t, svc, "alice", model.NoteInput{Title: "Parent"})
	child := mustCreate(t, svc, "alice", model.NoteInput{Title: "Child", ParentID: &parent.ID})

	if err := svc.Delete(ctx, "alice", parent.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got, err := svc.GetByID(ctx, "alice", child.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.ParentID == nil || *got.ParentID != parent.ID {
		t.Errorf("child ParentID = %v, want dangling %s", got.ParentID, parent.ID)
	}

	forest, err := svc.Forest(ctx, "alice")
	if err != nil {
		t.Fatalf("Forest() error = %v", err)
	}
	if len(forest) != 0 {
		t.Errorf("Forest() has %d roots, want 0 (orphan hidden)", len(forest))
	}

	if err := svc.Delete(ctx, "alice", parent.ID); !errors.Is(err, model.ErrNoteNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNoteNotFound", err)
	}
}

func TestListAndForest(t *testing.T) {
	svc := setupNotesUsecaseTest(t)
	ctx := context.Background()
	o3, o1, o2 := 3.0, 1.0, 2.0

	root := mustCreate(t, svc, "alice", model.NoteInput{Title: "Root", Order: &o1})
	c3 := mustCreate(t, svc, "alice", model.NoteInput{Title: "three", ParentID: &root.ID, Order: &o3})
	c1 := mustCreate(t, svc, "alice", model.NoteInput{Title: "one", ParentID: &root.ID, Order: &o1})
	c2 := mustCreate(t, svc, "alice", model.NoteInput{Title: "two", ParentID: &root.ID, Order: &o2})

	notes, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(notes) != 4 {
		t.Fatalf("List() returned %d notes, want 4", len(notes))
	}
	if notes[0].ID != c2.ID || notes[3].ID != root.ID {
		t.Errorf("List() not sorted by updatedAt desc: first %s last %s", notes[0].Title, notes[3].Title)
	}

	forest, err := svc.Forest(ctx, "alice")
	if err != nil {
		t.Fatalf("Forest() error = %v", err)
	}
	if len(forest) != 1 || forest[0].ID != root.ID {
		t.Fatalf("Forest() roots = %v, want [Root]", forest)
	}
	var got []string
	for _, child := range forest[0].Children {
		got = append(got, child.ID)
	}
	want := []string{c1.ID, c2.ID, c3.ID}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("children order = %v, want %v", got, want)
	}
}

func TestTagsAndSearch(t *testing.T) {
	svc := setupNotesUsecaseTest(t)
	ctx := context.Background()

	mustCreate(t, svc, "alice", model.NoteInput{Title: "Groceries", Tags: []string{"home", "list"}})
	mustCreate(t, svc, "alice", model.NoteInput{Title: "Sprint", Content: paragraphDoc("ship the release"), Tags: []string{"work"}})
	mustCreate(t, svc, "alice", model.NoteInput{Title: "Chores", Tags: []string{"home"}})
	mustCreate(t, svc, "bob", model.NoteInput{Title: "Release party", Tags: []string{"home"}})

	tags, err := svc.Tags(ctx, "alice")
	if err != nil {
		t.Fatalf("Tags() error = %v", err)
	}
	want := []model.TagCount{{Tag: "home", Count: 2}, {Tag: "list", Count: 1}, {Tag: "work", Count: 1}}
	if len(tags) != len(want) {
		t.Fatalf("Tags() = %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("Tags()[%d] = %v, want %v", i, tags[i], want[i])
		}
	}

	tests := []struct {
		query   string
		want    []string
		wantErr bool
	}{
		{query: "RELEASE", want: []string{"Sprint"}},
		{query: "home", want: []string{"Chores", "Groceries"}},
		{query: "groc", want: []string{"Groceries"}},
		{query: "nothing here", want: []string{}},
		{query: "x", wantErr: true},
		{query: "   ", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			notes, err := svc.Search(ctx, "alice", tt.query)
			if tt.wantErr {
				if !model.IsValidation(err) {
					t.Errorf("Search(%q) error = %v, want ValidationError", tt.query, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Search(%q) error = %v", tt.query, err)
			}
			titles := make([]string, 0, len(notes))
			for _, n := range notes {
				titles = append(titles, n.Title)
			}
			if strings.Join(titles, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Search(%q) = %v, want %v", tt.query, titles, tt.want)
			}
		})
	}
}

type memoryCache struct {
	mu          sync.Mutex
	entries     map[string][]*model.Note
	gens        map[string]int64
	hits        int
	invalidated int
	staleSets   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]*model.Note), gens: make(map[string]int64)}
}

func (c *memoryCache) Get(_ context.Context, userID string) ([]*model.Note, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	notes, ok := c.entries[userID]
	if ok {
		c.hits++
	}
	return notes, ok, nil
}

func (c *memoryCache) Generation(_ context.Context, userID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[userID], nil
}

func (c *memoryCache) Set(_ context.Context, userID string, generation int64, notes []*model.Note) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[userID] != generation {
		c.staleSets++
		return nil
	}
	c.entries[userID] = notes
	return nil
}

func (c *memoryCache) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	c.gens[userID]++
	c.invalidated++
	return nil
}

// heldStore pauses the next FindByOwner after it has read the store.
type heldStore struct {
	repository.NoteStore
	mu      sync.Mutex
	read    chan struct{}
	release chan struct{}
}

func (s *heldStore) FindByOwner(ctx context.Context, ownerID string) ([]*model.Note, error) {
	notes, err := s.NoteStore.FindByOwner(ctx, ownerID)

	s.mu.Lock()
	read, release := s.read, s.release
	s.read, s.release = nil, nil
	s.mu.Unlock()

	if read != nil {
		close(read)
		<-release
	}
	return notes, err
}

func TestListUsesCache(t *testing.T) {
	cache := newMemoryCache()
	svc := usecase.NewNotesService(testutils.NewSQLStore(t), cache)
	svc.Now = testutils.NewStepClock(start).Now
	ctx := context.Background()

	mustCreate(t, svc, "alice", model.NoteInput{Title: "one"})

	if _, err := svc.List(ctx, "alice"); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if _, err := svc.List(ctx, "alice"); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if cache.hits != 1 {
		t.Errorf("cache hits = %d, want 1", cache.hits)
	}

	mustCreate(t, svc, "alice", model.NoteInput{Title: "two"})
	notes, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(notes) != 2 {
		t.Errorf("List() after create returned %d notes, want 2 (stale cache)", len(notes))
	}
	if cache.invalidated != 2 {
		t.Errorf("invalidations = %d, want 2", cache.invalidated)
	}
}

func TestListDoesNotCacheListReadBeforeWrite(t *testing.T) {
	cache := newMemoryCache()
	store := &heldStore{
		NoteStore: testutils.NewSQLStore(t),
		read:      make(chan struct{}),
		release:   make(chan struct{}),
	}
	svc := usecase.NewNotesService(store, cache)
	svc.Now = testutils.NewStepClock(start).Now
	ctx := context.Background()

	mustCreate(t, svc, "alice", model.NoteInput{Title: "one"})

	read, release := store.read, store.release
	type result struct {
		notes []*model.Note
		err   error
	}
	listed := make(chan result, 1)
	go func() {
		notes, err := svc.List(ctx, "alice")
		listed <- result{notes, err}
	}()
	<-read

	mustCreate(t, svc, "alice", model.NoteInput{Title: "two"})
	close(release)

	old := <-listed
	if old.err != nil {
		t.Fatalf("List() error = %v", old.err)
	}
	if len(old.notes) != 1 {
		t.Fatalf("held List() returned %d notes, want 1", len(old.notes))
	}
	if cache.staleSets != 1 {
		t.Errorf("stale cache writes = %d, want 1", cache.staleSets)
	}

	notes, err := svc.List(ctx, "alice")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(notes) != 2 {
		t.Errorf("List() after create returned %d notes, want 2 (stale cache)", len(notes))
	}
	if cache.hits != 0 {
		t.Errorf("cache hits = %d, want 0", cache.hits)
	}

	if _, err := svc.List(ctx, "alice"); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if cache.hits != 1 {
		t.Errorf("cache hits = %d, want 1", cache.hits)
	}
}
