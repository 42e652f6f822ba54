package repository

import (
	"context"
	"fmt"

	"fairway/database"
	"fairway/models"

	"github.com/jackc/pgx/v5"
)

// TournamentRepository implements the service.TournamentRepository
// interface. Tournaments are catalog records; the engine only reads.
type TournamentRepository struct {
	q queryable
}

// NewTournamentRepository creates a new tournament repository
func NewTournamentRepository(db *database.DB) *TournamentRepository {
	return &TournamentRepository{q: db.Pool}
}

// newTournamentRepositoryWithTx creates a repository bound to a transaction
func newTournamentRepositoryWithTx(tx queryable) *TournamentRepository {
	return &TournamentRepository{q: tx}
}

// GetByID retrieves a tournament by ID. Returns nil when not found.
func (r *TournamentRepository) GetByID(ctx context.Context, tournamentID int64) (*models.Tournament, error) {
	query := `
		SELECT id, name, golfer_group_id, starts_at, ends_at, created_at
		FROM tournaments
		WHERE id = $1
	`

	var tournament models.Tournament
	err := r.q.QueryRow(ctx, query, tournamentID).Scan(
		&tournament.ID,
		&tournament.Name,
		&tournament.GolferGroupID,
		&tournament.StartsAt,
		&tournament.EndsAt,
		&tournament.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament %d: %w", tournamentID, err)
	}

	return &tournament, nil
}
