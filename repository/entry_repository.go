package repository

import (
	"context"
	"fmt"

	"fairway/database"
	"fairway/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const entryColumns = `
	id, instance_id, user_id, golfer_ids, captain_golfer_id, fee_paid,
	status, created_at, cancelled_at`

// EntryRepository implements the service.EntryRepository interface
type EntryRepository struct {
	q queryable
}

// NewEntryRepository creates a new entry repository
func NewEntryRepository(db *database.DB) *EntryRepository {
	return &EntryRepository{q: db.Pool}
}

// newEntryRepositoryWithTx creates a repository bound to a transaction
func newEntryRepositoryWithTx(tx queryable) *EntryRepository {
	return &EntryRepository{q: tx}
}

// Create persists a new submitted entry. The caller generates the entry
// ID up front so the wallet debit can reference it before this insert.
func (r *EntryRepository) Create(ctx context.Context, entry *models.Entry) error {
	query := `
		INSERT INTO entries
		(id, instance_id, user_id, golfer_ids, captain_golfer_id, fee_paid, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.ID,
		entry.InstanceID,
		entry.UserID,
		entry.Lineup.GolferIDs,
		entry.Lineup.CaptainGolferID,
		entry.FeePaid,
		models.EntryStatusSubmitted,
	).Scan(&entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create entry %s: %w", entry.ID, err)
	}

	entry.Status = models.EntryStatusSubmitted

	return nil
}

// GetByID retrieves an entry by ID. Returns nil when not found.
func (r *EntryRepository) GetByID(ctx context.Context, entryID uuid.UUID) (*models.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE id = $1`

	entry, err := scanEntry(r.q.QueryRow(ctx, query, entryID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry %s: %w", entryID, err)
	}

	return entry, nil
}

// GetActiveByInstance returns all non-cancelled entries for an instance,
// oldest first.
func (r *EntryRepository) GetActiveByInstance(ctx context.Context, instanceID int64) ([]*models.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE instance_id = $1 AND status != 'cancelled'
		ORDER BY created_at ASC
	`

	rows, err := r.q.Query(ctx, query, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries for instance %d: %w", instanceID, err)
	}
	defer rows.Close()

	var entries []*models.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return entries, nil
}

// GetActiveByUserAndInstance returns the user's non-cancelled entry for
// an instance, or nil when they hold none.
func (r *EntryRepository) GetActiveByUserAndInstance(ctx context.Context, userID, instanceID int64) (*models.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE instance_id = $1 AND user_id = $2 AND status != 'cancelled'
	`

	entry, err := scanEntry(r.q.QueryRow(ctx, query, instanceID, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry for user %d on instance %d: %w", userID, instanceID, err)
	}

	return entry, nil
}

// MarkCancelled flips an entry to cancelled. Idempotent: cancelling an
// already-cancelled entry reports changed=false.
func (r *EntryRepository) MarkCancelled(ctx context.Context, entryID uuid.UUID) (bool, error) {
	query := `
		UPDATE entries
		SET status = 'cancelled', cancelled_at = NOW()
		WHERE id = $1 AND status != 'cancelled'
	`

	result, err := r.q.Exec(ctx, query, entryID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel entry %s: %w", entryID, err)
	}

	return result.RowsAffected() > 0, nil
}

func scanEntry(row pgx.Row) (*models.Entry, error) {
	var entry models.Entry
	err := row.Scan(
		&entry.ID,
		&entry.InstanceID,
		&entry.UserID,
		&entry.Lineup.GolferIDs,
		&entry.Lineup.CaptainGolferID,
		&entry.FeePaid,
		&entry.Status,
		&entry.CreatedAt,
		&entry.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
