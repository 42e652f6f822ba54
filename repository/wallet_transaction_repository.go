package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"fairway/database"
	"fairway/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletTransactionRepository implements the service.WalletTransactionRepository interface
type WalletTransactionRepository struct {
	q queryable
}

// NewWalletTransactionRepository creates a new wallet transaction repository
func NewWalletTransactionRepository(db *database.DB) *WalletTransactionRepository {
	return &WalletTransactionRepository{q: db.Pool}
}

// newWalletTransactionRepositoryWithTx creates a repository bound to a transaction
func newWalletTransactionRepositoryWithTx(tx queryable) *WalletTransactionRepository {
	return &WalletTransactionRepository{q: tx}
}

// Record appends a new transaction to the ledger
func (r *WalletTransactionRepository) Record(ctx context.Context, txn *models.WalletTransaction) error {
	metadataJSON, err := json.Marshal(txn.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	query := `
		INSERT INTO wallet_transactions
		(user_id, entry_id, direction, reason, amount, balance_before, balance_after, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err = r.q.QueryRow(ctx, query,
		txn.UserID,
		txn.EntryID,
		txn.Direction,
		txn.Reason,
		txn.Amount,
		txn.BalanceBefore,
		txn.BalanceAfter,
		metadataJSON,
	).Scan(&txn.ID, &txn.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record wallet transaction for user %d: %w", txn.UserID, err)
	}

	return nil
}

// GetRefundByEntry returns the refund transaction for an entry, or nil
// when no refund has been issued. This lookup is the idempotency guard
// against double refunds.
func (r *WalletTransactionRepository) GetRefundByEntry(ctx context.Context, entryID uuid.UUID) (*models.WalletTransaction, error) {
	query := `
		SELECT id, user_id, entry_id, direction, reason, amount,
		       balance_before, balance_after, metadata, created_at
		FROM wallet_transactions
		WHERE entry_id = $1 AND reason = $2
	`

	txn, err := r.scanOne(r.q.QueryRow(ctx, query, entryID, models.ReasonRefund))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get refund for entry %s: %w", entryID, err)
	}

	return txn, nil
}

// GetByUser returns a user's most recent transactions
func (r *WalletTransactionRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.WalletTransaction, error) {
	query := `
		SELECT id, user_id, entry_id, direction, reason, amount,
		       balance_before, balance_after, metadata, created_at
		FROM wallet_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var txns []*models.WalletTransaction
	for rows.Next() {
		txn, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate wallet transactions: %w", err)
	}

	return txns, nil
}

func (r *WalletTransactionRepository) scanOne(row pgx.Row) (*models.WalletTransaction, error) {
	var txn models.WalletTransaction
	var metadataJSON []byte

	err := row.Scan(
		&txn.ID,
		&txn.UserID,
		&txn.EntryID,
		&txn.Direction,
		&txn.Reason,
		&txn.Amount,
		&txn.BalanceBefore,
		&txn.BalanceAfter,
		&metadataJSON,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &txn.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
		}
	}

	return &txn, nil
}
