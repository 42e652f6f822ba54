package repository

import (
	"context"
	"fmt"

	"fairway/database"
	"fairway/models"

	"github.com/jackc/pgx/v5"
)

// UserRepository implements the service.UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository bound to a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

// GetByID retrieves a user and their wallet balance. Returns nil when
// the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	query := `
		SELECT id, username, balance, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user models.User
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&user.ID,
		&user.Username,
		&user.Balance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", userID, err)
	}

	return &user, nil
}

// Create provisions a wallet row for a platform user with the initial
// balance. The ID comes from the platform, not a sequence.
func (r *UserRepository) Create(ctx context.Context, userID int64, username string, initialBalance int64) (*models.User, error) {
	query := `
		INSERT INTO users (id, username, balance)
		VALUES ($1, $2, $3)
		RETURNING id, username, balance, created_at, updated_at
	`

	var user models.User
	err := r.q.QueryRow(ctx, query, userID, username, initialBalance).Scan(
		&user.ID,
		&user.Username,
		&user.Balance,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create user %d: %w", userID, err)
	}

	return &user, nil
}

// AddBalance adds to a user's balance atomically and returns the
// post-update balance, so ledger rows record what the update actually
// produced rather than an earlier read.
func (r *UserRepository) AddBalance(ctx context.Context, userID int64, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE users
		SET balance = balance + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING balance
	`

	var balance int64
	err := r.q.QueryRow(ctx, query, amount, userID).Scan(&balance)
	if err == pgx.ErrNoRows {
		return 0, fmt.Errorf("user %d not found", userID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add balance for user %d: %w", userID, err)
	}

	return balance, nil
}

// DeductBalance deducts from a user's balance as a single conditional
// read-modify-write and returns the post-update balance. Returns false
// when the user is missing or the balance would go negative; the caller
// decides what that means.
func (r *UserRepository) DeductBalance(ctx context.Context, userID int64, amount int64) (int64, bool, error) {
	if amount <= 0 {
		return 0, false, fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE users
		SET balance = balance - $1, updated_at = NOW()
		WHERE id = $2 AND balance >= $1
		RETURNING balance
	`

	var balance int64
	err := r.q.QueryRow(ctx, query, amount, userID).Scan(&balance)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to deduct balance for user %d: %w", userID, err)
	}

	return balance, true, nil
}
