package service

import (
	"context"
	"fmt"

	"fairway/events"
	"fairway/models"

	"github.com/google/uuid"
)

// DebitForEntry charges the entry fee against the user's wallet and
// appends the matching ledger row. This is the single entry point for
// taking money at join time; it runs inside the caller's unit of work.
// Ledger balances come from the conditional update itself, so a
// concurrent debit by the same user on another instance cannot leave a
// stale snapshot in the row. Returns ErrInsufficientFunds when the
// balance does not cover the fee.
func DebitForEntry(ctx context.Context, uow UnitOfWork, userID int64, entryID uuid.UUID, instanceID int64, amount int64) error {
	newBalance, ok, err := uow.UserRepository().DeductBalance(ctx, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to deduct entry fee: %w", err)
	}
	if !ok {
		return ErrInsufficientFunds
	}

	txn := &models.WalletTransaction{
		UserID:        userID,
		EntryID:       &entryID,
		Direction:     models.DirectionDebit,
		Reason:        models.ReasonEntryFee,
		Amount:        amount,
		BalanceBefore: newBalance + amount,
		BalanceAfter:  newBalance,
		Metadata: map[string]any{
			"instance_id": instanceID,
		},
	}
	if err := uow.WalletTransactionRepository().Record(ctx, txn); err != nil {
		return fmt.Errorf("failed to record entry fee debit: %w", err)
	}

	// Emit balance change event (will be flushed after transaction commits)
	uow.EventBus().Publish(events.BalanceChangeEvent{
		UserID:       userID,
		OldBalance:   txn.BalanceBefore,
		NewBalance:   txn.BalanceAfter,
		Direction:    txn.Direction,
		Reason:       txn.Reason,
		ChangeAmount: -amount,
	})

	return nil
}

// RefundEntry credits an entry's frozen fee back to its owner, at most
// once. Returns refunded=false without touching the wallet when a
// refund row for the entry already exists, so the sweep passes and the
// withdraw path can all call it without coordinating.
func RefundEntry(ctx context.Context, uow UnitOfWork, entry *models.Entry) (bool, error) {
	existing, err := uow.WalletTransactionRepository().GetRefundByEntry(ctx, entry.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check for prior refund: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	newBalance, err := uow.UserRepository().AddBalance(ctx, entry.UserID, entry.FeePaid)
	if err != nil {
		return false, fmt.Errorf("failed to credit refund: %w", err)
	}

	txn := &models.WalletTransaction{
		UserID:        entry.UserID,
		EntryID:       &entry.ID,
		Direction:     models.DirectionCredit,
		Reason:        models.ReasonRefund,
		Amount:        entry.FeePaid,
		BalanceBefore: newBalance - entry.FeePaid,
		BalanceAfter:  newBalance,
		Metadata: map[string]any{
			"instance_id": entry.InstanceID,
		},
	}
	if err := uow.WalletTransactionRepository().Record(ctx, txn); err != nil {
		return false, fmt.Errorf("failed to record refund: %w", err)
	}

	uow.EventBus().Publish(events.BalanceChangeEvent{
		UserID:       entry.UserID,
		OldBalance:   txn.BalanceBefore,
		NewBalance:   txn.BalanceAfter,
		Direction:    txn.Direction,
		Reason:       txn.Reason,
		ChangeAmount: entry.FeePaid,
	})
	uow.EventBus().Publish(events.EntryRefundedEvent{
		EntryID:    entry.ID.String(),
		InstanceID: entry.InstanceID,
		UserID:     entry.UserID,
		Amount:     entry.FeePaid,
	})

	return true, nil
}
