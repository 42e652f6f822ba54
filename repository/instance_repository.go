package repository

import (
	"context"
	"fmt"
	"time"

	"fairway/database"
	"fairway/models"

	"github.com/jackc/pgx/v5"
)

const instanceColumns = `
	id, template_id, tournament_id, created_by, status, seat_count,
	seat_capacity, registration_close_time, cancellation_reason,
	created_at, cancelled_at`

// InstanceRepository implements the service.InstanceRepository interface
type InstanceRepository struct {
	q queryable
}

// NewInstanceRepository creates a new instance repository
func NewInstanceRepository(db *database.DB) *InstanceRepository {
	return &InstanceRepository{q: db.Pool}
}

// newInstanceRepositoryWithTx creates a repository bound to a transaction
func newInstanceRepositoryWithTx(tx queryable) *InstanceRepository {
	return &InstanceRepository{q: tx}
}

// Create persists a new instance in pending status with zero seats
func (r *InstanceRepository) Create(ctx context.Context, instance *models.Instance) error {
	query := `
		INSERT INTO instances
		(template_id, tournament_id, created_by, status, seat_count, seat_capacity, registration_close_time)
		VALUES ($1, $2, $3, $4, 0, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		instance.TemplateID,
		instance.TournamentID,
		instance.CreatedBy,
		models.InstanceStatusPending,
		models.SeatCapacity,
		instance.RegistrationCloseTime,
	).Scan(&instance.ID, &instance.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create instance for template %d: %w", instance.TemplateID, err)
	}

	instance.Status = models.InstanceStatusPending
	instance.SeatCount = 0
	instance.SeatCapacity = models.SeatCapacity

	return nil
}

// GetByID retrieves an instance by ID. Returns nil when not found.
func (r *InstanceRepository) GetByID(ctx context.Context, instanceID int64) (*models.Instance, error) {
	query := `SELECT ` + instanceColumns + ` FROM instances WHERE id = $1`

	instance, err := scanInstance(r.q.QueryRow(ctx, query, instanceID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instance %d: %w", instanceID, err)
	}

	return instance, nil
}

// FindOldestJoinable returns the oldest pending/open instance for the
// template and tournament that still has a seat and an open registration
// window, or nil when none exists. Oldest-first keeps the pool from
// fragmenting into many half-filled instances.
func (r *InstanceRepository) FindOldestJoinable(ctx context.Context, templateID, tournamentID int64, now time.Time) (*models.Instance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM instances
		WHERE template_id = $1
		  AND tournament_id = $2
		  AND status IN ('pending', 'open')
		  AND seat_count < seat_capacity
		  AND registration_close_time > $3
		ORDER BY created_at ASC
		LIMIT 1
	`

	instance, err := scanInstance(r.q.QueryRow(ctx, query, templateID, tournamentID, now))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find joinable instance for template %d: %w", templateID, err)
	}

	return instance, nil
}

// ClaimSeat increments seat_count only if it still equals
// expectedSeatCount and a seat remains. The conditional write is the
// optimistic concurrency token: when another joiner got there first the
// update matches no row and nil is returned. Status moves in the same
// statement so it can never disagree with seat_count.
func (r *InstanceRepository) ClaimSeat(ctx context.Context, instanceID int64, expectedSeatCount int) (*models.Instance, error) {
	query := `
		UPDATE instances
		SET seat_count = seat_count + 1,
		    status = CASE WHEN seat_count + 1 >= seat_capacity THEN 'full' ELSE 'open' END
		WHERE id = $1
		  AND status IN ('pending', 'open')
		  AND seat_count = $2
		  AND seat_count < seat_capacity
		RETURNING ` + instanceColumns

	instance, err := scanInstance(r.q.QueryRow(ctx, query, instanceID, expectedSeatCount))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim seat on instance %d: %w", instanceID, err)
	}

	return instance, nil
}

// ReleaseSeat decrements seat_count and reverts status, compensating a
// claim whose downstream step failed or an entry withdrawal.
func (r *InstanceRepository) ReleaseSeat(ctx context.Context, instanceID int64) error {
	query := `
		UPDATE instances
		SET seat_count = seat_count - 1,
		    status = CASE WHEN seat_count - 1 = 0 THEN 'pending' ELSE 'open' END
		WHERE id = $1
		  AND seat_count > 0
		  AND status IN ('open', 'full')
	`

	result, err := r.q.Exec(ctx, query, instanceID)
	if err != nil {
		return fmt.Errorf("failed to release seat on instance %d: %w", instanceID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("instance %d has no seat to release", instanceID)
	}

	return nil
}

// TransitionToCancelled marks an instance cancelled. Idempotent: when
// the instance is already cancelled it reports changed=false with no
// side effect, which keeps overlapping sweeper runs from double
// processing.
func (r *InstanceRepository) TransitionToCancelled(ctx context.Context, instanceID int64, reason models.CancellationReason) (bool, error) {
	query := `
		UPDATE instances
		SET status = 'cancelled', cancellation_reason = $2, cancelled_at = NOW()
		WHERE id = $1 AND status != 'cancelled'
	`

	result, err := r.q.Exec(ctx, query, instanceID, reason)
	if err != nil {
		return false, fmt.Errorf("failed to cancel instance %d: %w", instanceID, err)
	}

	if result.RowsAffected() > 0 {
		return true, nil
	}

	// Distinguish already-cancelled (fine) from missing (not fine).
	existing, err := r.GetByID(ctx, instanceID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, fmt.Errorf("instance %d not found", instanceID)
	}

	return false, nil
}

// Delete removes an instance outright. Used when the sole entrant
// withdraws, so an abandoned challenge leaves no cancelled husk behind.
func (r *InstanceRepository) Delete(ctx context.Context, instanceID int64) error {
	result, err := r.q.Exec(ctx, `DELETE FROM instances WHERE id = $1`, instanceID)
	if err != nil {
		return fmt.Errorf("failed to delete instance %d: %w", instanceID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("instance %d not found", instanceID)
	}

	return nil
}

// DeleteAbandonedPending removes pending instances with no seats claimed
// that were created before the cutoff. These are lineup-builder sessions
// the user never completed; no money ever moved for them.
func (r *InstanceRepository) DeleteAbandonedPending(ctx context.Context, createdBefore time.Time) (int, error) {
	query := `
		DELETE FROM instances
		WHERE status = 'pending'
		  AND seat_count = 0
		  AND created_at < $1
	`

	result, err := r.q.Exec(ctx, query, createdBefore)
	if err != nil {
		return 0, fmt.Errorf("failed to delete abandoned pending instances: %w", err)
	}

	return int(result.RowsAffected()), nil
}

// GetOpenPastRegistrationClose returns open instances whose registration
// window has passed without filling both seats.
func (r *InstanceRepository) GetOpenPastRegistrationClose(ctx context.Context, now time.Time) ([]*models.Instance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM instances
		WHERE status = 'open'
		  AND seat_count < seat_capacity
		  AND registration_close_time < $1
		ORDER BY registration_close_time ASC
	`

	return r.queryInstances(ctx, query, now)
}

// GetLiveWithEndedTournament returns pending/open instances whose parent
// tournament has fully ended. Safety net for instances with a missed or
// never-set registration close time.
func (r *InstanceRepository) GetLiveWithEndedTournament(ctx context.Context, now time.Time) ([]*models.Instance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM instances i
		WHERE i.status IN ('pending', 'open')
		  AND EXISTS (
			SELECT 1 FROM tournaments t
			WHERE t.id = i.tournament_id AND t.ends_at < $1
		  )
		ORDER BY i.created_at ASC
	`

	return r.queryInstances(ctx, query, now)
}

func (r *InstanceRepository) queryInstances(ctx context.Context, query string, args ...any) ([]*models.Instance, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}
	defer rows.Close()

	var instances []*models.Instance
	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		instances = append(instances, instance)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate instances: %w", err)
	}

	return instances, nil
}

func scanInstance(row pgx.Row) (*models.Instance, error) {
	var instance models.Instance
	err := row.Scan(
		&instance.ID,
		&instance.TemplateID,
		&instance.TournamentID,
		&instance.CreatedBy,
		&instance.Status,
		&instance.SeatCount,
		&instance.SeatCapacity,
		&instance.RegistrationCloseTime,
		&instance.CancellationReason,
		&instance.CreatedAt,
		&instance.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return &instance, nil
}
