package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/outstaff/outstaff/internal/db/models"
)

// NoteRepository handles database operations for notes
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create inserts a note
func (r *NoteRepository) Create(ctx context.Context, n *models.Note) error {
	now := time.Now()
	n.CreatedAt = now
	n.UpdatedAt = now
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO notes (org_id, author_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		n.OrgID, n.AuthorID, n.Content, n.CreatedAt, n.UpdatedAt,
	).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}
	return nil
}

// GetByID retrieves a note of the organization
func (r *NoteRepository) GetByID(ctx context.Context, orgID, id int64) (*models.Note, error) {
	n, err := getOne[models.Note](ctx, r.db, `
		SELECT n.id, n.org_id, n.author_id, u.name AS author_name, n.content, n.created_at, n.updated_at
		FROM notes n JOIN users u ON u.id = n.author_id
		WHERE n.id = $1 AND n.org_id = $2`, id, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return n, nil
}

// ListByOrg returns the organization's notes, newest first
func (r *NoteRepository) ListByOrg(ctx context.Context, orgID int64) ([]*models.Note, error) {
	notes := make([]*models.Note, 0)
	if err := r.db.SelectContext(ctx, &notes, `
		SELECT n.id, n.org_id, n.author_id, u.name AS author_name, n.content, n.created_at, n.updated_at
		FROM notes n JOIN users u ON u.id = n.author_id
		WHERE n.org_id = $1
		ORDER BY n.created_at DESC, n.id DESC`, orgID); err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return notes, nil
}

// Delete removes a note of the organization
func (r *NoteRepository) Delete(ctx context.Context, orgID, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1 AND org_id = $2`, id, orgID); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return nil
}
