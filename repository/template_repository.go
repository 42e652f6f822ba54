package repository

import (
	"context"
	"fmt"

	"fairway/database"
	"fairway/models"

	"github.com/jackc/pgx/v5"
)

// TemplateRepository implements the service.TemplateRepository
// interface. Templates are administrator-owned; the engine only reads.
type TemplateRepository struct {
	q queryable
}

// NewTemplateRepository creates a new template repository
func NewTemplateRepository(db *database.DB) *TemplateRepository {
	return &TemplateRepository{q: db.Pool}
}

// newTemplateRepositoryWithTx creates a repository bound to a transaction
func newTemplateRepositoryWithTx(tx queryable) *TemplateRepository {
	return &TemplateRepository{q: tx}
}

// GetByID retrieves a template by ID. Returns nil when not found.
func (r *TemplateRepository) GetByID(ctx context.Context, templateID int64) (*models.Template, error) {
	query := `
		SELECT id, name, entry_fee, rounds_covered, close_offset_minutes, created_at
		FROM templates
		WHERE id = $1
	`

	var template models.Template
	err := r.q.QueryRow(ctx, query, templateID).Scan(
		&template.ID,
		&template.Name,
		&template.EntryFee,
		&template.RoundsCovered,
		&template.CloseOffsetMinutes,
		&template.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get template %d: %w", templateID, err)
	}

	return &template, nil
}
