package repository_test

import (
	"context"
	"testing"
	"time"

	"fairway/models"
	"fairway/repository"
	"fairway/repository/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletTransactionRepository_RefundOncePerEntry_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	user := testutil.InsertTestUser(t, testDB.DB, 1, "alice", 100000)
	template := testutil.InsertTestTemplate(t, testDB.DB, "Weekend Head-to-Head", 1000, 60)
	tournament := testutil.InsertTestTournament(t, testDB.DB, "The Open",
		time.Now().Add(24*time.Hour), time.Now().Add(96*time.Hour))

	instanceRepo := repository.NewInstanceRepository(testDB.DB)
	entryRepo := repository.NewEntryRepository(testDB.DB)
	walletRepo := repository.NewWalletTransactionRepository(testDB.DB)

	instance := &models.Instance{
		TemplateID:            template.ID,
		TournamentID:          tournament.ID,
		CreatedBy:             user.ID,
		RegistrationCloseTime: time.Now().Add(time.Hour),
	}
	require.NoError(t, instanceRepo.Create(ctx, instance))

	entry := &models.Entry{
		ID:         uuid.New(),
		InstanceID: instance.ID,
		UserID:     user.ID,
		Lineup:     testutil.TestLineup(),
		FeePaid:    1000,
	}
	require.NoError(t, entryRepo.Create(ctx, entry))

	// No refund yet
	refund, err := walletRepo.GetRefundByEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Nil(t, refund)

	debit := &models.WalletTransaction{
		UserID:        user.ID,
		EntryID:       &entry.ID,
		Direction:     models.DirectionDebit,
		Reason:        models.ReasonEntryFee,
		Amount:        1000,
		BalanceBefore: 100000,
		BalanceAfter:  99000,
	}
	require.NoError(t, walletRepo.Record(ctx, debit))

	first := &models.WalletTransaction{
		UserID:        user.ID,
		EntryID:       &entry.ID,
		Direction:     models.DirectionCredit,
		Reason:        models.ReasonRefund,
		Amount:        1000,
		BalanceBefore: 99000,
		BalanceAfter:  100000,
	}
	require.NoError(t, walletRepo.Record(ctx, first))

	refund, err = walletRepo.GetRefundByEntry(ctx, entry.ID)
	require.NoError(t, err)
	require.NotNil(t, refund)
	assert.Equal(t, first.ID, refund.ID)

	// The partial unique index rejects a second refund for the entry
	second := &models.WalletTransaction{
		UserID:        user.ID,
		EntryID:       &entry.ID,
		Direction:     models.DirectionCredit,
		Reason:        models.ReasonRefund,
		Amount:        1000,
		BalanceBefore: 100000,
		BalanceAfter:  101000,
	}
	assert.Error(t, walletRepo.Record(ctx, second))

	// The user's history holds the debit and the one refund
	history, err := walletRepo.GetByUser(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)

	reasons := []models.TransactionReason{history[0].Reason, history[1].Reason}
	assert.Contains(t, reasons, models.ReasonEntryFee)
	assert.Contains(t, reasons, models.ReasonRefund)

	limited, err := walletRepo.GetByUser(ctx, user.ID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestEntryRepository_OneActiveEntryPerUser_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	user := testutil.InsertTestUser(t, testDB.DB, 2, "bob", 100000)
	template := testutil.InsertTestTemplate(t, testDB.DB, "Weekend Head-to-Head", 1000, 60)
	tournament := testutil.InsertTestTournament(t, testDB.DB, "The Open",
		time.Now().Add(24*time.Hour), time.Now().Add(96*time.Hour))

	instanceRepo := repository.NewInstanceRepository(testDB.DB)
	entryRepo := repository.NewEntryRepository(testDB.DB)

	instance := &models.Instance{
		TemplateID:            template.ID,
		TournamentID:          tournament.ID,
		CreatedBy:             user.ID,
		RegistrationCloseTime: time.Now().Add(time.Hour),
	}
	require.NoError(t, instanceRepo.Create(ctx, instance))

	entry := &models.Entry{
		ID:         uuid.New(),
		InstanceID: instance.ID,
		UserID:     user.ID,
		Lineup:     testutil.TestLineup(),
		FeePaid:    1000,
	}
	require.NoError(t, entryRepo.Create(ctx, entry))

	// A second active entry for the same user is rejected at the DB level
	duplicate := &models.Entry{
		ID:         uuid.New(),
		InstanceID: instance.ID,
		UserID:     user.ID,
		Lineup:     testutil.TestLineup(),
		FeePaid:    1000,
	}
	assert.Error(t, entryRepo.Create(ctx, duplicate))

	// After cancellation a fresh entry is allowed again
	changed, err := entryRepo.MarkCancelled(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	rejoin := &models.Entry{
		ID:         uuid.New(),
		InstanceID: instance.ID,
		UserID:     user.ID,
		Lineup:     testutil.TestLineup(),
		FeePaid:    1000,
	}
	assert.NoError(t, entryRepo.Create(ctx, rejoin))

	active, err := entryRepo.GetActiveByUserAndInstance(ctx, user.ID, instance.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, rejoin.ID, active.ID)
}
