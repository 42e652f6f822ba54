package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fairway/events"
	"fairway/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type matchmakingMocks struct {
	factory     *MockUnitOfWorkFactory
	uow         *MockUnitOfWork
	users       *MockUserRepository
	walletTxns  *MockWalletTransactionRepository
	templates   *MockTemplateRepository
	tournaments *MockTournamentRepository
	instances   *MockInstanceRepository
	entries     *MockEntryRepository
	validator   *MockLineupValidator
}

func newMatchmakingMocks() *matchmakingMocks {
	m := &matchmakingMocks{
		factory:     new(MockUnitOfWorkFactory),
		uow:         new(MockUnitOfWork),
		users:       new(MockUserRepository),
		walletTxns:  new(MockWalletTransactionRepository),
		templates:   new(MockTemplateRepository),
		tournaments: new(MockTournamentRepository),
		instances:   new(MockInstanceRepository),
		entries:     new(MockEntryRepository),
		validator:   new(MockLineupValidator),
	}
	m.uow.SetRepositories(m.users, m.walletTxns, m.templates, m.tournaments, m.instances, m.entries, new(MockSweepRunRepository))
	m.factory.On("Create").Return(m.uow)
	return m
}

func (m *matchmakingMocks) service() MatchmakingService {
	return NewMatchmakingService(m.factory, m.validator, 100000)
}

func testLineup() models.Lineup {
	return models.Lineup{GolferIDs: []int64{10, 11, 12, 13}, CaptainGolferID: 11}
}

func groupID(id int64) *int64 {
	return &id
}

func TestMatchmakingService_Join_CreatesNewInstance(t *testing.T) {
	ctx := context.Background()
	m := newMatchmakingMocks()

	user := &models.User{ID: 1, Username: "alice", Balance: 5000}
	template := &models.Template{ID: 2, EntryFee: 1000, CloseOffsetMinutes: 60}
	tournament := &models.Tournament{
		ID:            3,
		GolferGroupID: groupID(9),
		StartsAt:      time.Now().Add(24 * time.Hour),
		EndsAt:        time.Now().Add(96 * time.Hour),
	}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)

	m.users.On("GetByID", ctx, int64(1)).Return(user, nil)
	m.templates.On("GetByID", ctx, int64(2)).Return(template, nil)
	m.tournaments.On("GetByID", ctx, int64(3)).Return(tournament, nil)

	// Empty pool forces a fresh instance
	m.instances.On("FindOldestJoinable", ctx, int64(2), int64(3), mock.AnythingOfType("time.Time")).Return(nil, nil)
	m.instances.On("Create", ctx, mock.MatchedBy(func(i *models.Instance) bool {
		return i.TemplateID == 2 && i.TournamentID == 3 && i.CreatedBy == 1
	})).Return(nil).Run(func(args mock.Arguments) {
		instance := args.Get(1).(*models.Instance)
		instance.ID = 77
		instance.Status = models.InstanceStatusPending
		instance.SeatCapacity = models.SeatCapacity
	})

	m.entries.On("GetActiveByUserAndInstance", ctx, int64(1), int64(77)).Return(nil, nil)
	m.validator.On("Validate", ctx, int64(3), testLineup()).Return(&LineupValidation{Valid: true}, nil)

	m.instances.On("ClaimSeat", ctx, int64(77), 0).Return(&models.Instance{
		ID:           77,
		TemplateID:   2,
		TournamentID: 3,
		CreatedBy:    1,
		Status:       models.InstanceStatusOpen,
		SeatCount:    1,
		SeatCapacity: models.SeatCapacity,
	}, nil)

	m.users.On("DeductBalance", ctx, int64(1), int64(1000)).Return(int64(4000), true, nil)
	m.walletTxns.On("Record", ctx, mock.MatchedBy(func(txn *models.WalletTransaction) bool {
		return txn.UserID == 1 &&
			txn.Direction == models.DirectionDebit &&
			txn.Reason == models.ReasonEntryFee &&
			txn.Amount == 1000 &&
			txn.BalanceBefore == 5000 &&
			txn.BalanceAfter == 4000
	})).Return(nil)

	m.entries.On("Create", ctx, mock.MatchedBy(func(e *models.Entry) bool {
		return e.InstanceID == 77 && e.UserID == 1 && e.FeePaid == 1000 && e.ID != uuid.Nil
	})).Return(nil)

	result, err := m.service().Join(ctx, JoinRequest{
		UserID:       1,
		TemplateID:   2,
		TournamentID: 3,
		Lineup:       testLineup(),
	})

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.False(t, result.Matched)
	assert.Equal(t, int64(77), result.Instance.ID)
	assert.Equal(t, int64(1000), result.Entry.FeePaid)

	m.factory.AssertExpectations(t)
	m.uow.AssertExpectations(t)
	m.users.AssertExpectations(t)
	m.instances.AssertExpectations(t)
	m.entries.AssertExpectations(t)
	m.walletTxns.AssertExpectations(t)
}

func TestMatchmakingService_Join_FillsSecondSeat(t *testing.T) {
	ctx := context.Background()
	m := newMatchmakingMocks()

	user := &models.User{ID: 2, Username: "bob", Balance: 3000}
	template := &models.Template{ID: 2, EntryFee: 1000, CloseOffsetMinutes: 60}
	tournament := &models.Tournament{ID: 3, GolferGroupID: groupID(9), StartsAt: time.Now().Add(24 * time.Hour)}
	waiting := &models.Instance{
		ID:                    5,
		TemplateID:            2,
		TournamentID:          3,
		CreatedBy:             1,
		Status:                models.InstanceStatusOpen,
		SeatCount:             1,
		SeatCapacity:          models.SeatCapacity,
		RegistrationCloseTime: time.Now().Add(time.Hour),
	}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)

	m.users.On("GetByID", ctx, int64(2)).Return(user, nil)
	m.templates.On("GetByID", ctx, int64(2)).Return(template, nil)
	m.tournaments.On("GetByID", ctx, int64(3)).Return(tournament, nil)
	m.instances.On("FindOldestJoinable", ctx, int64(2), int64(3), mock.AnythingOfType("time.Time")).Return(waiting, nil)
	m.entries.On("GetActiveByUserAndInstance", ctx, int64(2), int64(5)).Return(nil, nil)
	m.validator.On("Validate", ctx, int64(3), testLineup()).Return(&LineupValidation{Valid: true}, nil)

	full := &models.Instance{
		ID:           5,
		TemplateID:   2,
		TournamentID: 3,
		CreatedBy:    1,
		Status:       models.InstanceStatusFull,
		SeatCount:    2,
		SeatCapacity: models.SeatCapacity,
	}
	m.instances.On("ClaimSeat", ctx, int64(5), 1).Return(full, nil)

	m.users.On("DeductBalance", ctx, int64(2), int64(1000)).Return(int64(2000), true, nil)
	m.walletTxns.On("Record", ctx, mock.AnythingOfType("*models.WalletTransaction")).Return(nil)
	m.entries.On("Create", ctx, mock.AnythingOfType("*models.Entry")).Return(nil)
	m.entries.On("GetActiveByInstance", ctx, int64(5)).Return([]*models.Entry{
		{ID: uuid.New(), UserID: 1},
		{ID: uuid.New(), UserID: 2},
	}, nil)

	result, err := m.service().Join(ctx, JoinRequest{
		UserID:       2,
		TemplateID:   2,
		TournamentID: 3,
		Lineup:       testLineup(),
	})

	assert.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, models.InstanceStatusFull, result.Instance.Status)

	var filled *events.InstanceFilledEvent
	for _, ev := range m.uow.PublishedEvents() {
		if e, ok := ev.(events.InstanceFilledEvent); ok {
			filled = &e
		}
	}
	assert.NotNil(t, filled)
	assert.Equal(t, [2]int64{1, 2}, filled.UserIDs)

	m.uow.AssertExpectations(t)
	m.instances.AssertExpectations(t)
}

func TestMatchmakingService_Join_ProvisionsFirstTimeUser(t *testing.T) {
	ctx := context.Background()
	m := newMatchmakingMocks()

	template := &models.Template{ID: 2, EntryFee: 1000, CloseOffsetMinutes: 60}
	tournament := &models.Tournament{ID: 3, GolferGroupID: groupID(9), StartsAt: time.Now().Add(24 * time.Hour)}
	waiting := &models.Instance{
		ID:                    5,
		TemplateID:            2,
		TournamentID:          3,
		CreatedBy:             1,
		Status:                models.InstanceStatusOpen,
		SeatCount:             1,
		SeatCapacity:          models.SeatCapacity,
		RegistrationCloseTime: time.Now().Add(time.Hour),
	}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)

	// No wallet row yet for this platform user
	m.users.On("GetByID", ctx, int64(7)).Return(nil, nil)
	m.users.On("Create", ctx, int64(7), "newbie", int64(100000)).
		Return(&models.User{ID: 7, Username: "newbie", Balance: 100000}, nil)

	m.templates.On("GetByID", ctx, int64(2)).Return(template, nil)
	m.tournaments.On("GetByID", ctx, int64(3)).Return(tournament, nil)
	m.instances.On("FindOldestJoinable", ctx, int64(2), int64(3), mock.AnythingOfType("time.Time")).Return(waiting, nil)
	m.entries.On("GetActiveByUserAndInstance", ctx, int64(7), int64(5)).Return(nil, nil)
	m.validator.On("Validate", ctx, int64(3), testLineup()).Return(&LineupValidation{Valid: true}, nil)

	m.instances.On("ClaimSeat", ctx, int64(5), 1).Return(&models.Instance{
		ID: 5, TemplateID: 2, TournamentID: 3, Status: models.InstanceStatusFull,
		SeatCount: 2, SeatCapacity: models.SeatCapacity,
	}, nil)
	m.users.On("DeductBalance", ctx, int64(7), int64(1000)).Return(int64(99000), true, nil)
	m.walletTxns.On("Record", ctx, mock.MatchedBy(func(txn *models.WalletTransaction) bool {
		return txn.UserID == 7 && txn.BalanceBefore == 100000 && txn.BalanceAfter == 99000
	})).Return(nil)
	m.entries.On("Create", ctx, mock.AnythingOfType("*models.Entry")).Return(nil)
	m.entries.On("GetActiveByInstance", ctx, int64(5)).Return([]*models.Entry{
		{ID: uuid.New(), UserID: 1},
		{ID: uuid.New(), UserID: 7},
	}, nil)

	result, err := m.service().Join(ctx, JoinRequest{
		UserID:       7,
		Username:     "newbie",
		TemplateID:   2,
		TournamentID: 3,
		Lineup:       testLineup(),
	})

	assert.NoError(t, err)
	assert.True(t, result.Matched)
	m.users.AssertExpectations(t)
	m.walletTxns.AssertExpectations(t)
}

func TestMatchmakingService_Join_CannotAcceptOwnChallenge(t *testing.T) {
	ctx := context.Background()
	m := newMatchmakingMocks()

	user := &models.User{ID: 1, Balance: 5000}
	template := &models.Template{ID: 2, EntryFee: 1000}
	tournament := &models.Tournament{ID: 3, GolferGroupID: groupID(9), StartsAt: time.Now().Add(24 * time.Hour)}
	ownChallenge := &models.Instance{
		ID:                    5,
		TemplateID:            2,
		TournamentID:          3,
		CreatedBy:             1,
		Status:                models.InstanceStatusOpen,
		SeatCount:             1,
		SeatCapacity:          models.SeatCapacity,
		RegistrationCloseTime: time.Now().Add(time.Hour),
	}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)

	m.validator.On("Validate", ctx, int64(3), testLineup()).Return(&LineupValidation{Valid: true}, nil)
	m.users.On("GetByID", ctx, int64(1)).Return(user, nil)
	m.templates.On("GetByID", ctx, int64(2)).Return(template, nil)
	m.tournaments.On("GetByID", ctx, int64(3)).Return(tournament, nil)
	m.instances.On("FindOldestJoinable", ctx, int64(2), int64(3), mock.AnythingOfType("time.Time")).Return(ownChallenge, nil)
	m.entries.On("GetActiveByUserAndInstance", ctx, int64(1), int64(5)).Return(nil, nil)

	result, err := m.service().Join(ctx, JoinRequest{
		UserID:       1,
		TemplateID:   2,
		TournamentID: 3,
		Lineup:       testLineup(),
	})

	assert.ErrorIs(t, err, ErrCannotAcceptOwnChallenge)
	assert.Nil(t, result)
	m.instances.AssertNotCalled(t, "ClaimSeat", mock.Anything, mock.Anything, mock.Anything)
}

func TestMatchmakingService_Join_AlreadyJoined(t *testing.T) {
	ctx := context.Background()
	m := newMatchmakingMocks()

	user := &models.User{ID: 1, Balance: 5000}
	template := &models.Template{ID: 2, EntryFee: 1000}
	tournament := &models.Tournament{ID: 3, GolferGroupID: groupID(9), StartsAt: time.Now().Add(24 * time.Hour)}
	instance := &models.Instance{
		ID:                    5,
		TemplateID:            2,
		TournamentID:          3,
		CreatedBy:             9,
		Status:                models.InstanceStatusOpen,
		SeatCount:             1,
		SeatCapacity:          models.SeatCapacity,
		RegistrationCloseTime: time.Now().Add(time.Hour),
	}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)

	m.validator.On("Validate", ctx, int64(3), testLineup()).Return(&LineupValidation{Valid: true}, nil)
	m.users.On("GetByID", ctx, int64(1)).Return(user, nil)
	m.templates.On("GetByID", ctx, int64(2)).Return(template, nil)
	m.tournaments.On("GetByID", ctx, int64(3)).Return(tournament, nil)
	m.instances.On("FindOldestJoinable", ctx, int64(2), int64(3), mock.AnythingOfType("time.Time")).Return(instance, nil)
	m.entries.On("GetActiveByUserAndInstance", ctx, int64(1), int64(5)).Return(&models.Entry{ID: uuid.New(), UserID: 1}, nil)

	_, err := m.service().Join(ctx, JoinRequest{UserID: 1, TemplateID: 2, TournamentID: 3, Lineup: testLineup()})

	assert.ErrorIs(t, err, ErrAlreadyJoined)
}

func TestMatchmakingService_Join_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	m := newMatchmakingMocks()

	user := &models.User{ID: 1, Balance: 500}
	template := &models.Template{ID: 2, EntryFee: 1000}
	tournament := &models.Tournament{ID: 3, GolferGroupID: groupID(9), StartsAt: time.Now().Add(24 * time.Hour)}
	instance := &models.Instance{
		ID:                    5,
		TemplateID:            2,
		TournamentID:          3,
		CreatedBy:             9,
		Status:                models.InstanceStatusOpen,
		SeatCount:             1,
		SeatCapacity:          models.SeatCapacity,
		RegistrationCloseTime: time.Now().Add(time.Hour),
	}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)

	m.users.On("GetByID", ctx, int64(1)).Return(user, nil)
	m.templates.On("GetByID", ctx, int64(2)).Return(template, nil)
	m.tournaments.On("GetByID", ctx, int64(3)).Return(tournament, nil)
	m.instances.On("FindOldestJoinable", ctx, int64(2), int64(3), mock.AnythingOfType("time.Time")).Return(instance, nil)
	m.entries.On("GetActiveByUserAndInstance", ctx, int64(1), int64(5)).Return(nil, nil)
	m.validator.On("Validate", ctx, int64(3), testLineup()).Return(&LineupValidation{Valid: true}, nil)

	_, err := m.service().Join(ctx, JoinRequest{UserID: 1, TemplateID: 2, TournamentID: 3, Lineup: testLineup()})

	assert.ErrorIs(t, err, ErrInsufficientFunds)
	m.instances.AssertNotCalled(t, "ClaimSeat", mock.Anything, mock.Anything, mock.Anything)
}

func TestMatchmakingService_Join_RegistrationClosedForNewInstance(t *testing.T) {
	ctx := context.Background()
	m := newMatchmakingMocks()

	user := &models.User{ID: 1, Balance: 5000}
	// Tournament starts in 30 minutes but registration closes an hour
	// before the start, so the window is already shut.
	template := &models.Template{ID: 2, EntryFee: 1000, CloseOffsetMinutes: 60}
	tournament := &models.Tournament{ID: 3, GolferGroupID: groupID(9), StartsAt: time.Now().Add(30 * time.Minute)}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)

	m.validator.On("Validate", ctx, int64(3), testLineup()).Return(&LineupValidation{Valid: true}, nil)
	m.users.On("GetByID", ctx, int64(1)).Return(user, nil)
	m.templates.On("GetByID", ctx, int64(2)).Return(template, nil)
	m.tournaments.On("GetByID", ctx, int64(3)).Return(tournament, nil)
	m.instances.On("FindOldestJoinable", ctx, int64(2), int64(3), mock.AnythingOfType("time.Time")).Return(nil, nil)

	_, err := m.service().Join(ctx, JoinRequest{UserID: 1, TemplateID: 2, TournamentID: 3, Lineup: testLineup()})

	assert.ErrorIs(t, err, ErrRegistrationClosed)
	m.instances.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestMatchmakingService_Join_InvalidLineupRejectedByValidator(t *testing.T) {
	ctx := context.Background()
	m := newMatchmakingMocks()

	m.validator.On("Validate", ctx, int64(3), testLineup()).Return(&LineupValidation{
		Valid:   false,
		Reasons: []string{"golfer 13 is not in the tournament field"},
	}, nil)

	_, err := m.service().Join(ctx, JoinRequest{UserID: 1, TemplateID: 2, TournamentID: 3, Lineup: testLineup()})

	var lineupErr *InvalidLineupError
	assert.ErrorAs(t, err, &lineupErr)
	assert.Contains(t, lineupErr.Reasons, "golfer 13 is not in the tournament field")

	// The validator verdict arrives before any transaction is opened
	m.factory.AssertNotCalled(t, "Create")
	m.uow.AssertNotCalled(t, "Begin", mock.Anything)
}

func TestMatchmakingService_Join_CaptainMustBeInLineup(t *testing.T) {
	ctx := context.Background()
	m := newMatchmakingMocks()

	_, err := m.service().Join(ctx, JoinRequest{
		UserID:       1,
		TemplateID:   2,
		TournamentID: 3,
		Lineup:       models.Lineup{GolferIDs: []int64{10, 11}, CaptainGolferID: 99},
	})

	var lineupErr *InvalidLineupError
	assert.ErrorAs(t, err, &lineupErr)
	m.factory.AssertNotCalled(t, "Create")
}

func TestMatchmakingService_Join_SeatConflictRetriesThenFull(t *testing.T) {
	ctx := context.Background()
	m := newMatchmakingMocks()

	user := &models.User{ID: 1, Balance: 5000}
	template := &models.Template{ID: 2, EntryFee: 1000}
	tournament := &models.Tournament{ID: 3, GolferGroupID: groupID(9), StartsAt: time.Now().Add(24 * time.Hour)}
	contested := &models.Instance{
		ID:                    5,
		TemplateID:            2,
		TournamentID:          3,
		CreatedBy:             9,
		Status:                models.InstanceStatusOpen,
		SeatCount:             1,
		SeatCapacity:          models.SeatCapacity,
		RegistrationCloseTime: time.Now().Add(time.Hour),
	}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)

	m.users.On("GetByID", ctx, int64(1)).Return(user, nil)
	m.templates.On("GetByID", ctx, int64(2)).Return(template, nil)
	m.tournaments.On("GetByID", ctx, int64(3)).Return(tournament, nil)
	m.instances.On("FindOldestJoinable", ctx, int64(2), int64(3), mock.AnythingOfType("time.Time")).Return(contested, nil)
	m.entries.On("GetActiveByUserAndInstance", ctx, int64(1), int64(5)).Return(nil, nil)
	m.validator.On("Validate", ctx, int64(3), testLineup()).Return(&LineupValidation{Valid: true}, nil)

	// Another joiner wins the seat on both attempts
	m.instances.On("ClaimSeat", ctx, int64(5), 1).Return(nil, nil).Twice()

	_, err := m.service().Join(ctx, JoinRequest{UserID: 1, TemplateID: 2, TournamentID: 3, Lineup: testLineup()})

	assert.ErrorIs(t, err, ErrInstanceFull)
	m.instances.AssertExpectations(t)
	m.uow.AssertNotCalled(t, "Commit")
}

func TestMatchmakingService_Join_SettlementInconsistencyOnFailedRollback(t *testing.T) {
	ctx := context.Background()
	m := newMatchmakingMocks()

	user := &models.User{ID: 1, Balance: 5000}
	template := &models.Template{ID: 2, EntryFee: 1000}
	tournament := &models.Tournament{ID: 3, GolferGroupID: groupID(9), StartsAt: time.Now().Add(24 * time.Hour)}
	instance := &models.Instance{
		ID:                    5,
		TemplateID:            2,
		TournamentID:          3,
		CreatedBy:             9,
		Status:                models.InstanceStatusOpen,
		SeatCount:             1,
		SeatCapacity:          models.SeatCapacity,
		RegistrationCloseTime: time.Now().Add(time.Hour),
	}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(errors.New("connection lost"))

	m.users.On("GetByID", ctx, int64(1)).Return(user, nil)
	m.templates.On("GetByID", ctx, int64(2)).Return(template, nil)
	m.tournaments.On("GetByID", ctx, int64(3)).Return(tournament, nil)
	m.instances.On("FindOldestJoinable", ctx, int64(2), int64(3), mock.AnythingOfType("time.Time")).Return(instance, nil)
	m.entries.On("GetActiveByUserAndInstance", ctx, int64(1), int64(5)).Return(nil, nil)
	m.validator.On("Validate", ctx, int64(3), testLineup()).Return(&LineupValidation{Valid: true}, nil)
	m.instances.On("ClaimSeat", ctx, int64(5), 1).Return(&models.Instance{
		ID: 5, Status: models.InstanceStatusFull, SeatCount: 2, SeatCapacity: models.SeatCapacity,
	}, nil)
	m.users.On("DeductBalance", ctx, int64(1), int64(1000)).Return(int64(4000), true, nil)
	m.walletTxns.On("Record", ctx, mock.AnythingOfType("*models.WalletTransaction")).Return(nil)
	m.entries.On("Create", ctx, mock.AnythingOfType("*models.Entry")).Return(errors.New("constraint violation"))

	_, err := m.service().Join(ctx, JoinRequest{UserID: 1, TemplateID: 2, TournamentID: 3, Lineup: testLineup()})

	assert.ErrorIs(t, err, ErrSettlementInconsistency)
}

func TestMatchmakingService_Withdraw_RefundsAndRemovesEmptyInstance(t *testing.T) {
	ctx := context.Background()
	m := newMatchmakingMocks()

	entryID := uuid.New()
	entry := &models.Entry{
		ID:         entryID,
		InstanceID: 5,
		UserID:     1,
		FeePaid:    1000,
		Status:     models.EntryStatusSubmitted,
	}
	instance := &models.Instance{
		ID:           5,
		Status:       models.InstanceStatusOpen,
		SeatCount:    1,
		SeatCapacity: models.SeatCapacity,
	}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Commit").Return(nil)
	m.uow.On("Rollback").Return(nil)

	m.entries.On("GetByID", ctx, entryID).Return(entry, nil)
	m.instances.On("GetByID", ctx, int64(5)).Return(instance, nil)
	m.walletTxns.On("GetRefundByEntry", ctx, entryID).Return(nil, nil)
	m.users.On("AddBalance", ctx, int64(1), int64(1000)).Return(int64(5000), nil)
	m.walletTxns.On("Record", ctx, mock.MatchedBy(func(txn *models.WalletTransaction) bool {
		return txn.Direction == models.DirectionCredit &&
			txn.Reason == models.ReasonRefund &&
			txn.Amount == 1000 &&
			txn.BalanceBefore == 4000 &&
			txn.BalanceAfter == 5000
	})).Return(nil)
	m.entries.On("MarkCancelled", ctx, entryID).Return(true, nil)
	m.instances.On("Delete", ctx, int64(5)).Return(nil)

	err := m.service().Withdraw(ctx, 1, entryID)

	assert.NoError(t, err)
	m.uow.AssertExpectations(t)
	m.instances.AssertExpectations(t)
	m.walletTxns.AssertExpectations(t)

	var cancelled bool
	for _, ev := range m.uow.PublishedEvents() {
		if _, ok := ev.(events.InstanceCancelledEvent); ok {
			cancelled = true
		}
	}
	assert.True(t, cancelled)
}

func TestMatchmakingService_Withdraw_FullInstanceRejected(t *testing.T) {
	ctx := context.Background()
	m := newMatchmakingMocks()

	entryID := uuid.New()
	entry := &models.Entry{ID: entryID, InstanceID: 5, UserID: 1, FeePaid: 1000, Status: models.EntryStatusSubmitted}
	full := &models.Instance{ID: 5, Status: models.InstanceStatusFull, SeatCount: 2, SeatCapacity: models.SeatCapacity}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)

	m.entries.On("GetByID", ctx, entryID).Return(entry, nil)
	m.instances.On("GetByID", ctx, int64(5)).Return(full, nil)

	err := m.service().Withdraw(ctx, 1, entryID)

	assert.ErrorIs(t, err, ErrWithdrawNotAllowed)
	m.users.AssertNotCalled(t, "AddBalance", mock.Anything, mock.Anything, mock.Anything)
}

func TestMatchmakingService_Withdraw_NotOwner(t *testing.T) {
	ctx := context.Background()
	m := newMatchmakingMocks()

	entryID := uuid.New()
	entry := &models.Entry{ID: entryID, InstanceID: 5, UserID: 1, Status: models.EntryStatusSubmitted}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.entries.On("GetByID", ctx, entryID).Return(entry, nil)

	err := m.service().Withdraw(ctx, 2, entryID)

	assert.ErrorIs(t, err, ErrNotEntryOwner)
}

func TestMatchmakingService_Withdraw_AlreadyCancelledIsNoOp(t *testing.T) {
	ctx := context.Background()
	m := newMatchmakingMocks()

	entryID := uuid.New()
	entry := &models.Entry{ID: entryID, InstanceID: 5, UserID: 1, Status: models.EntryStatusCancelled}

	m.uow.On("Begin", ctx).Return(nil)
	m.uow.On("Rollback").Return(nil)
	m.entries.On("GetByID", ctx, entryID).Return(entry, nil)

	err := m.service().Withdraw(ctx, 1, entryID)

	assert.NoError(t, err)
	m.users.AssertNotCalled(t, "AddBalance", mock.Anything, mock.Anything, mock.Anything)
	m.entries.AssertNotCalled(t, "MarkCancelled", mock.Anything, mock.Anything)
}
