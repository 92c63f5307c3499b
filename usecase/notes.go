package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dododo1295/notetree/model"
	"github.com/dododo1295/notetree/render"
	"github.com/dododo1295/notetree/repository"
	"github.com/dododo1295/notetree/tree"
	"github.com/dododo1295/notetree/utils"

	"go.uber.org/zap"
)

const (
	MaxTitleLength  = 200
	MaxTags         = 20
	MaxTagLength    = 64
	MinSearchLength = 2
)

// ListCache holds each owner's note list between writes. Invalidate bumps
// the owner's generation; Set must ignore a list read at an older one.
type ListCache interface {
	Get(ctx context.Context, userID string) ([]*model.Note, bool, error)
	Generation(ctx context.Context, userID string) (int64, error)
	Set(ctx context.Context, userID string, generation int64, notes []*model.Note) error
	Invalidate(ctx context.Context, userID string) error
}

// NotesService is the owner-scoped CRUD contract over a NoteStore. Every
// call takes the verified owner id; a note belonging to anyone else behaves
// exactly like a missing one.
type NotesService struct {
	Store repository.NoteStore
	Cache ListCache
	Now   func() time.Time
}

func NewNotesService(store repository.NoteStore, cache ListCache) *NotesService {
	return &NotesService{
		Store: store,
		Cache: cache,
		Now:   time.Now,
	}
}

func (svc *NotesService) now() time.Time {
	if svc.Now == nil {
		return time.Now().UTC()
	}
	return svc.Now().UTC()
}

// List returns all of the owner's notes, most recently updated first.
func (svc *NotesService) List(ctx context.Context, ownerID string) ([]*model.Note, error) {
	var (
		gen       int64
		cacheable bool
	)
	if svc.Cache != nil {
		notes, ok, err := svc.Cache.Get(ctx, ownerID)
		if err != nil {
			utils.Logger.Warn("notes cache read failed", zap.String("user_id", ownerID), zap.Error(err))
			utils.TrackError("cache", "notes_get_failed")
		} else if ok {
			return notes, nil
		}
		// The generation is read before the store so a write landing in
		// between invalidates this read too.
		if gen, err = svc.Cache.Generation(ctx, ownerID); err != nil {
			utils.Logger.Warn("notes cache generation read failed", zap.String("user_id", ownerID), zap.Error(err))
			utils.TrackError("cache", "notes_generation_failed")
		} else {
			cacheable = true
		}
	}

	notes, err := svc.Store.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	sortByUpdated(notes)

	if cacheable {
		if err := svc.Cache.Set(ctx, ownerID, gen, notes); err != nil {
			utils.Logger.Warn("notes cache write failed", zap.String("user_id", ownerID), zap.Error(err))
			utils.TrackError("cache", "notes_set_failed")
		}
	}
	return notes, nil
}

func (svc *NotesService) GetByID(ctx context.Context, ownerID, noteID string) (*model.Note, error) {
	if !utils.IsValidNoteID(noteID) {
		return nil, model.ErrInvalidID
	}
	return svc.Store.FindOne(ctx, ownerID, noteID)
}

func (svc *NotesService) Create(ctx context.Context, ownerID string, in model.NoteInput) (*model.Note, error) {
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	content := in.Content
	if content == nil {
		content = model.EmptyDocument()
	}
	markdown, err := derive(content)
	if err != nil {
		return nil, err
	}

	if err := svc.validateParent(ctx, ownerID, "", in.ParentID); err != nil {
		return nil, err
	}

	now := svc.now()
	order := float64(now.UnixMilli())
	if in.Order != nil {
		if err := validateOrder(*in.Order); err != nil {
			return nil, err
		}
		order = *in.Order
	}

	note := &model.Note{
		UserID:    ownerID,
		Title:     in.Title,
		Content:   content,
		Markdown:  markdown,
		Tags:      tags,
		ParentID:  in.ParentID,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := svc.Store.Insert(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	svc.invalidate(ctx, ownerID)
	utils.TrackNoteOperation("create")
	return note, nil
}

// Update applies the fields present in update. Content changes recompute
// the derived markdown; parentId may be set, or cleared to move to the root.
func (svc *NotesService) Update(ctx context.Context, ownerID, noteID string, update model.NoteUpdate) (*model.Note, error) {
	if !utils.IsValidNoteID(noteID) {
		return nil, model.ErrInvalidID
	}

	changes := repository.NoteChanges{Update: update}
	if update.Title != nil {
		if err := validateTitle(*update.Title); err != nil {
			return nil, err
		}
	}
	if update.Tags != nil {
		tags, err := normalizeTags(*update.Tags)
		if err != nil {
			return nil, err
		}
		changes.Update.Tags = &tags
	}
	if update.Content != nil {
		markdown, err := derive(update.Content)
		if err != nil {
			return nil, err
		}
		changes.Markdown = &markdown
	}
	if update.Order != nil {
		if err := validateOrder(*update.Order); err != nil {
			return nil, err
		}
	}
	if update.ParentID.Set {
		if err := svc.validateParent(ctx, ownerID, noteID, update.ParentID.Value); err != nil {
			return nil, err
		}
	}

	changes.UpdatedAt = svc.now()
	note, err := svc.Store.Update(ctx, ownerID, noteID, changes)
	if err != nil {
		return nil, err
	}

	svc.invalidate(ctx, ownerID)
	if update.ParentID.Set || update.Order != nil {
		utils.TrackNoteOperation("move")
	} else {
		utils.TrackNoteOperation("update")
	}
	return note, nil
}

// Delete removes one note. Its children keep their parentId and drop out of
// the forest.
func (svc *NotesService) Delete(ctx context.Context, ownerID, noteID string) error {
	if !utils.IsValidNoteID(noteID) {
		return model.ErrInvalidID
	}
	if err := svc.Store.Delete(ctx, ownerID, noteID); err != nil {
		return err
	}
	svc.invalidate(ctx, ownerID)
	utils.TrackNoteOperation("delete")
	return nil
}

// Forest returns the owner's notes arranged under their parents.
func (svc *NotesService) Forest(ctx context.Context, ownerID string) ([]*tree.Node, error) {
	notes, err := svc.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return tree.BuildForest(notes, nil), nil
}

// Tags counts tag usage across the owner's notes, most used first.
func (svc *NotesService) Tags(ctx context.Context, ownerID string) ([]model.TagCount, error) {
	notes, err := svc.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, n := range notes {
		for _, tag := range n.Tags {
			counts[tag]++
		}
	}

	result := make([]model.TagCount, 0, len(counts))
	for tag, count := range counts {
		result = append(result, model.TagCount{Tag: tag, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Tag < result[j].Tag
	})
	return result, nil
}

// Search matches query case-insensitively against title, derived text and
// tags.
func (svc *NotesService) Search(ctx context.Context, ownerID, query string) ([]*model.Note, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinSearchLength {
		return nil, model.NewValidationError("q", "search query must be at least %d characters", MinSearchLength)
	}

	notes, err := svc.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(query)
	matches := make([]*model.Note, 0)
	for _, n := range notes {
		if matchesQuery(n, needle) {
			matches = append(matches, n)
		}
	}
	sortByUpdated(matches)
	return matches, nil
}

func (svc *NotesService) invalidate(ctx context.Context, ownerID string) {
	if svc.Cache == nil {
		return
	}
	if err := svc.Cache.Invalidate(ctx, ownerID); err != nil {
		utils.Logger.Warn("notes cache invalidation failed", zap.String("user_id", ownerID), zap.Error(err))
		utils.TrackError("cache", "notes_invalidate_failed")
	}
}

func (svc *NotesService) validateParent(ctx context.Context, ownerID, noteID string, parentID *string) error {
	if parentID == nil {
		return nil
	}
	if !utils.IsValidNoteID(*parentID) {
		return model.NewValidationError("parentId", "invalid note ID")
	}
	if *parentID == noteID {
		return model.NewValidationError("parentId", "a note cannot be its own parent")
	}
	if _, err := svc.Store.FindOne(ctx, ownerID, *parentID); err != nil {
		if errors.Is(err, model.ErrNoteNotFound) {
			return model.NewValidationError("parentId", "parent note not found")
		}
		return fmt.Errorf("failed to check parent note: %w", err)
	}
	return nil
}

// helper functions
func validateTitle(title string) error {
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return model.NewValidationError("title", "title exceeds %d characters", MaxTitleLength)
	}
	return nil
}

func validateOrder(order float64) error {
	if math.IsNaN(order) || math.IsInf(order, 0) {
		return model.NewValidationError("order", "order must be a finite number")
	}
	return nil
}

// normalizeTags trims, drops blanks and removes duplicates, keeping first
// occurrence order.
func normalizeTags(tags []string) ([]string, error) {
	normalized := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return nil, model.NewValidationError("tags", "tag exceeds %d characters", MaxTagLength)
		}
		if !utils.ValidateTag(tag) {
			return nil, model.NewValidationError("tags", "tag %q contains a separator", tag)
		}
		seen[tag] = struct{}{}
		normalized = append(normalized, tag)
	}
	if len(normalized) > MaxTags {
		return nil, model.NewValidationError("tags", "maximum %d tags allowed", MaxTags)
	}
	return normalized, nil
}

func derive(content model.Document) (string, error) {
	markdown, err := render.Markdown(content)
	if err != nil {
		return "", model.NewValidationError("content", "%v", err)
	}
	return markdown, nil
}

func sortByUpdated(notes []*model.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		if !notes[i].UpdatedAt.Equal(notes[j].UpdatedAt) {
			return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
		}
		return notes[i].ID < notes[j].ID
	})
}

func matchesQuery(n *model.Note, needle string) bool {
	if strings.Contains(strings.ToLower(n.Title), needle) ||
		strings.Contains(strings.ToLower(n.Markdown), needle) {
		return true
	}
	for _, tag := range n.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}
