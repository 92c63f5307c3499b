package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dododo1295/notetree/model"
	"github.com/dododo1295/notetree/utils"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// noteRecord is the relational row for a note. Content and tags are stored
// as JSON text.
type noteRecord struct {
	ID        string         `gorm:"primaryKey;size:24"`
	UserID    string         `gorm:"index:idx_notes_user_parent;not null"`
	Title     string         `gorm:"not null"`
	Content   model.Document `gorm:"serializer:json"`
	Markdown  string
	Tags      []string  `gorm:"serializer:json"`
	ParentID  *string   `gorm:"index:idx_notes_user_parent"`
	Order     float64   `gorm:"column:sort_order"`
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"autoUpdateTime:false;index"`
}

func (noteRecord) TableName() string {
	return "notes"
}

func recordFromNote(n *model.Note) *noteRecord {
	return &noteRecord{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Content:   n.Content,
		Markdown:  n.Markdown,
		Tags:      n.Tags,
		ParentID:  n.ParentID,
		Order:     n.Order,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

func (r *noteRecord) toNote() *model.Note {
	n := &model.Note{
		ID:        r.ID,
		UserID:    r.UserID,
		Title:     r.Title,
		Content:   r.Content,
		Markdown:  r.Markdown,
		Tags:      r.Tags,
		ParentID:  r.ParentID,
		Order:     r.Order,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
	if n.Content == nil {
		n.Content = model.EmptyDocument()
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
	return n
}

// SQLNotesRepo is the embedded NoteStore backed by gorm and a pure Go
// SQLite driver.
type SQLNotesRepo struct {
	db *gorm.DB
}

// OpenSQLNotesRepo opens (or creates) the SQLite database at path and
// migrates the notes table. Use "file::memory:" for a throwaway store.
func OpenSQLNotesRepo(path string) (*SQLNotesRepo, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; a single connection also keeps an
	// in-memory database alive for the life of the repo.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&noteRecord{}); err != nil {
		return nil, fmt.Errorf("migrate notes: %w", err)
	}
	return &SQLNotesRepo{db: db}, nil
}

func (r *SQLNotesRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *SQLNotesRepo) Name() string {
	return "sqlite"
}

func (r *SQLNotesRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return transient("ping sqlite", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return transient("ping sqlite", err)
	}
	return nil
}

func (r *SQLNotesRepo) Insert(ctx context.Context, note *model.Note) error {
	timer := utils.TrackDBOperation("insert", notesCollection)
	defer timer.ObserveDuration()

	if note.UserID == "" {
		return errors.New("user ID is required")
	}
	if note.ID == "" {
		note.ID = NewNoteID()
	}
	if err := r.db.WithContext(ctx).Create(recordFromNote(note)).Error; err != nil {
		utils.TrackError("database", "note_insert_failed")
		return transient("insert note", err)
	}
	return nil
}

func (r *SQLNotesRepo) FindByOwner(ctx context.Context, userID string) ([]*model.Note, error) {
	timer := utils.TrackDBOperation("find", notesCollection)
	defer timer.ObserveDuration()

	var records []noteRecord
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&records).Error; err != nil {
		utils.TrackError("database", "note_find_failed")
		return nil, transient("find notes", err)
	}
	notes := make([]*model.Note, 0, len(records))
	for i := range records {
		notes = append(notes, records[i].toNote())
	}
	return notes, nil
}

func (r *SQLNotesRepo) FindOne(ctx context.Context, userID, noteID string) (*model.Note, error) {
	timer := utils.TrackDBOperation("find_one", notesCollection)
	defer timer.ObserveDuration()

	var record noteRecord
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", noteID, userID).
		Take(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNoteNotFound
		}
		return nil, transient("find note", err)
	}
	return record.toNote(), nil
}

func (r *SQLNotesRepo) Update(ctx context.Context, userID, noteID string, changes NoteChanges) (*model.Note, error) {
	timer := utils.TrackDBOperation("update", notesCollection)
	defer timer.ObserveDuration()

	record := noteRecord{UpdatedAt: changes.UpdatedAt}
	columns := []string{"updated_at"}
	u := changes.Update
	if u.Title != nil {
		record.Title = *u.Title
		columns = append(columns, "title")
	}
	if u.Content != nil {
		record.Content = u.Content
		columns = append(columns, "content")
	}
	if changes.Markdown != nil {
		record.Markdown = *changes.Markdown
		columns = append(columns, "markdown")
	}
	if u.Tags != nil {
		record.Tags = *u.Tags
		columns = append(columns, "tags")
	}
	if u.ParentID.Set {
		record.ParentID = u.ParentID.Value
		columns = append(columns, "parent_id")
	}
	if u.Order != nil {
		record.Order = *u.Order
		columns = append(columns, "sort_order")
	}

	res := r.db.WithContext(ctx).
		Model(&noteRecord{}).
		Where("id = ? AND user_id = ?", noteID, userID).
		Select(columns).
		Updates(&record)
	if res.Error != nil {
		utils.TrackError("database", "note_update_failed")
		return nil, transient("update note", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, model.ErrNoteNotFound
	}
	return r.FindOne(ctx, userID, noteID)
}

func (r *SQLNotesRepo) Delete(ctx context.Context, userID, noteID string) error {
	timer := utils.TrackDBOperation("delete", notesCollection)
	defer timer.ObserveDuration()

	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", noteID, userID).
		Delete(&noteRecord{})
	if res.Error != nil {
		utils.TrackError("database", "note_delete_failed")
		return transient("delete note", res.Error)
	}
	if res.RowsAffected == 0 {
		return model.ErrNoteNotFound
	}
	return nil
}
