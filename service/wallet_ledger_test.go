package service

import (
	"context"
	"testing"

	"fairway/events"
	"fairway/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestDebitForEntry_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	uow := new(MockUnitOfWork)
	users := new(MockUserRepository)
	walletTxns := new(MockWalletTransactionRepository)
	uow.SetRepositories(users, walletTxns, nil, nil, nil, nil, nil)

	users.On("DeductBalance", ctx, int64(1), int64(1000)).Return(int64(0), false, nil)

	err := DebitForEntry(ctx, uow, 1, uuid.New(), 5, 1000)

	assert.ErrorIs(t, err, ErrInsufficientFunds)
	walletTxns.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
	assert.Empty(t, uow.PublishedEvents())
}

func TestDebitForEntry_LedgerUsesPostUpdateBalance(t *testing.T) {
	ctx := context.Background()
	uow := new(MockUnitOfWork)
	users := new(MockUserRepository)
	walletTxns := new(MockWalletTransactionRepository)
	uow.SetRepositories(users, walletTxns, nil, nil, nil, nil, nil)

	// A concurrent debit on another instance already dropped the balance
	// below what the caller last read. The ledger row must reflect what
	// the update actually produced.
	users.On("DeductBalance", ctx, int64(1), int64(1000)).Return(int64(2500), true, nil)
	walletTxns.On("Record", ctx, mock.MatchedBy(func(txn *models.WalletTransaction) bool {
		return txn.BalanceBefore == 3500 && txn.BalanceAfter == 2500
	})).Return(nil)

	err := DebitForEntry(ctx, uow, 1, uuid.New(), 5, 1000)

	assert.NoError(t, err)
	walletTxns.AssertExpectations(t)

	var change *events.BalanceChangeEvent
	for _, ev := range uow.PublishedEvents() {
		if e, ok := ev.(events.BalanceChangeEvent); ok {
			change = &e
		}
	}
	assert.NotNil(t, change)
	assert.Equal(t, int64(3500), change.OldBalance)
	assert.Equal(t, int64(2500), change.NewBalance)
}

func TestRefundEntry_IssuesRefundOnce(t *testing.T) {
	ctx := context.Background()
	uow := new(MockUnitOfWork)
	users := new(MockUserRepository)
	walletTxns := new(MockWalletTransactionRepository)
	uow.SetRepositories(users, walletTxns, nil, nil, nil, nil, nil)

	entry := &models.Entry{ID: uuid.New(), InstanceID: 5, UserID: 1, FeePaid: 1000}

	walletTxns.On("GetRefundByEntry", ctx, entry.ID).Return(nil, nil)
	users.On("AddBalance", ctx, int64(1), int64(1000)).Return(int64(1200), nil)
	walletTxns.On("Record", ctx, mock.MatchedBy(func(txn *models.WalletTransaction) bool {
		return txn.Reason == models.ReasonRefund &&
			txn.Direction == models.DirectionCredit &&
			txn.Amount == 1000 &&
			txn.BalanceBefore == 200 &&
			txn.BalanceAfter == 1200 &&
			txn.EntryID != nil && *txn.EntryID == entry.ID
	})).Return(nil)

	refunded, err := RefundEntry(ctx, uow, entry)

	assert.NoError(t, err)
	assert.True(t, refunded)

	var sawRefundEvent bool
	for _, ev := range uow.PublishedEvents() {
		if e, ok := ev.(events.EntryRefundedEvent); ok {
			sawRefundEvent = true
			assert.Equal(t, int64(1000), e.Amount)
		}
	}
	assert.True(t, sawRefundEvent)
}

func TestRefundEntry_SecondRefundIsNoOp(t *testing.T) {
	ctx := context.Background()
	uow := new(MockUnitOfWork)
	users := new(MockUserRepository)
	walletTxns := new(MockWalletTransactionRepository)
	uow.SetRepositories(users, walletTxns, nil, nil, nil, nil, nil)

	entry := &models.Entry{ID: uuid.New(), InstanceID: 5, UserID: 1, FeePaid: 1000}
	prior := &models.WalletTransaction{ID: 42, UserID: 1, Reason: models.ReasonRefund, Amount: 1000}

	walletTxns.On("GetRefundByEntry", ctx, entry.ID).Return(prior, nil)

	refunded, err := RefundEntry(ctx, uow, entry)

	assert.NoError(t, err)
	assert.False(t, refunded)
	users.AssertNotCalled(t, "AddBalance", mock.Anything, mock.Anything, mock.Anything)
	walletTxns.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
}
