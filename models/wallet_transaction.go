package models

import (
	"time"

	"github.com/google/uuid"
)

// TransactionDirection distinguishes money leaving or entering a wallet
type TransactionDirection string

const (
	DirectionDebit  TransactionDirection = "debit"
	DirectionCredit TransactionDirection = "credit"
)

// TransactionReason tags why a balance changed
type TransactionReason string

const (
	ReasonEntryFee TransactionReason = "entry_fee"
	ReasonRefund   TransactionReason = "refund"
	ReasonInitial  TransactionReason = "initial"
)

// WalletTransaction is one row of the append-only wallet ledger. EntryID
// is the idempotency reference: a refund for a given entry is recorded
// at most once.
type WalletTransaction struct {
	ID            int64                `db:"id"`
	UserID        int64                `db:"user_id"`
	EntryID       *uuid.UUID           `db:"entry_id"`
	Direction     TransactionDirection `db:"direction"`
	Reason        TransactionReason    `db:"reason"`
	Amount        int64                `db:"amount"`
	BalanceBefore int64                `db:"balance_before"`
	BalanceAfter  int64                `db:"balance_after"`
	Metadata      map[string]any       `db:"metadata"`
	CreatedAt     time.Time            `db:"created_at"`
}
