package service

import (
	"context"
	"time"

	"fairway/events"
	"fairway/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, userID int64, username string, initialBalance int64) (*models.User, error) {
	args := m.Called(ctx, userID, username, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) AddBalance(ctx context.Context, userID int64, amount int64) (int64, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) DeductBalance(ctx context.Context, userID int64, amount int64) (int64, bool, error) {
	args := m.Called(ctx, userID, amount)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

// MockWalletTransactionRepository is a mock implementation of WalletTransactionRepository
type MockWalletTransactionRepository struct {
	mock.Mock
}

func (m *MockWalletTransactionRepository) Record(ctx context.Context, txn *models.WalletTransaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockWalletTransactionRepository) GetRefundByEntry(ctx context.Context, entryID uuid.UUID) (*models.WalletTransaction, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WalletTransaction), args.Error(1)
}

func (m *MockWalletTransactionRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.WalletTransaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.WalletTransaction), args.Error(1)
}

// MockTemplateRepository is a mock implementation of TemplateRepository
type MockTemplateRepository struct {
	mock.Mock
}

func (m *MockTemplateRepository) GetByID(ctx context.Context, templateID int64) (*models.Template, error) {
	args := m.Called(ctx, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Template), args.Error(1)
}

// MockTournamentRepository is a mock implementation of TournamentRepository
type MockTournamentRepository struct {
	mock.Mock
}

func (m *MockTournamentRepository) GetByID(ctx context.Context, tournamentID int64) (*models.Tournament, error) {
	args := m.Called(ctx, tournamentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tournament), args.Error(1)
}

// MockInstanceRepository is a mock implementation of InstanceRepository
type MockInstanceRepository struct {
	mock.Mock
}

func (m *MockInstanceRepository) Create(ctx context.Context, instance *models.Instance) error {
	args := m.Called(ctx, instance)
	return args.Error(0)
}

func (m *MockInstanceRepository) GetByID(ctx context.Context, instanceID int64) (*models.Instance, error) {
	args := m.Called(ctx, instanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Instance), args.Error(1)
}

func (m *MockInstanceRepository) FindOldestJoinable(ctx context.Context, templateID, tournamentID int64, now time.Time) (*models.Instance, error) {
	args := m.Called(ctx, templateID, tournamentID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Instance), args.Error(1)
}

func (m *MockInstanceRepository) ClaimSeat(ctx context.Context, instanceID int64, expectedSeatCount int) (*models.Instance, error) {
	args := m.Called(ctx, instanceID, expectedSeatCount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Instance), args.Error(1)
}

func (m *MockInstanceRepository) ReleaseSeat(ctx context.Context, instanceID int64) error {
	args := m.Called(ctx, instanceID)
	return args.Error(0)
}

func (m *MockInstanceRepository) TransitionToCancelled(ctx context.Context, instanceID int64, reason models.CancellationReason) (bool, error) {
	args := m.Called(ctx, instanceID, reason)
	return args.Bool(0), args.Error(1)
}

func (m *MockInstanceRepository) Delete(ctx context.Context, instanceID int64) error {
	args := m.Called(ctx, instanceID)
	return args.Error(0)
}

func (m *MockInstanceRepository) DeleteAbandonedPending(ctx context.Context, createdBefore time.Time) (int, error) {
	args := m.Called(ctx, createdBefore)
	return args.Int(0), args.Error(1)
}

func (m *MockInstanceRepository) GetOpenPastRegistrationClose(ctx context.Context, now time.Time) ([]*models.Instance, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Instance), args.Error(1)
}

func (m *MockInstanceRepository) GetLiveWithEndedTournament(ctx context.Context, now time.Time) ([]*models.Instance, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Instance), args.Error(1)
}

// MockEntryRepository is a mock implementation of EntryRepository
type MockEntryRepository struct {
	mock.Mock
}

func (m *MockEntryRepository) Create(ctx context.Context, entry *models.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockEntryRepository) GetByID(ctx context.Context, entryID uuid.UUID) (*models.Entry, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entry), args.Error(1)
}

func (m *MockEntryRepository) GetActiveByInstance(ctx context.Context, instanceID int64) ([]*models.Entry, error) {
	args := m.Called(ctx, instanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Entry), args.Error(1)
}

func (m *MockEntryRepository) GetActiveByUserAndInstance(ctx context.Context, userID, instanceID int64) (*models.Entry, error) {
	args := m.Called(ctx, userID, instanceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Entry), args.Error(1)
}

func (m *MockEntryRepository) MarkCancelled(ctx context.Context, entryID uuid.UUID) (bool, error) {
	args := m.Called(ctx, entryID)
	return args.Bool(0), args.Error(1)
}

// MockSweepRunRepository is a mock implementation of SweepRunRepository
type MockSweepRunRepository struct {
	mock.Mock
}

func (m *MockSweepRunRepository) Create(ctx context.Context, run *models.SweepRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockSweepRunRepository) GetLatest(ctx context.Context) (*models.SweepRun, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SweepRun), args.Error(1)
}

// MockLineupValidator is a mock implementation of LineupValidator
type MockLineupValidator struct {
	mock.Mock
}

func (m *MockLineupValidator) Validate(ctx context.Context, tournamentID int64, lineup models.Lineup) (*LineupValidation, error) {
	args := m.Called(ctx, tournamentID, lineup)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LineupValidation), args.Error(1)
}

// RecordingPublisher collects published events for assertions
type RecordingPublisher struct {
	Events []events.Event
}

func (p *RecordingPublisher) Publish(event events.Event) {
	p.Events = append(p.Events, event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories
// are injected with SetRepositories; Begin/Commit/Rollback go through
// the usual expectation machinery.
type MockUnitOfWork struct {
	mock.Mock

	userRepo       UserRepository
	walletTxRepo   WalletTransactionRepository
	templateRepo   TemplateRepository
	tournamentRepo TournamentRepository
	instanceRepo   InstanceRepository
	entryRepo      EntryRepository
	sweepRunRepo   SweepRunRepository
	eventBus       *RecordingPublisher
}

// SetRepositories wires the mock repositories this unit of work hands out
func (m *MockUnitOfWork) SetRepositories(
	userRepo UserRepository,
	walletTxRepo WalletTransactionRepository,
	templateRepo TemplateRepository,
	tournamentRepo TournamentRepository,
	instanceRepo InstanceRepository,
	entryRepo EntryRepository,
	sweepRunRepo SweepRunRepository,
) {
	m.userRepo = userRepo
	m.walletTxRepo = walletTxRepo
	m.templateRepo = templateRepo
	m.tournamentRepo = tournamentRepo
	m.instanceRepo = instanceRepo
	m.entryRepo = entryRepo
	m.sweepRunRepo = sweepRunRepo
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository {
	return m.userRepo
}

func (m *MockUnitOfWork) WalletTransactionRepository() WalletTransactionRepository {
	return m.walletTxRepo
}

func (m *MockUnitOfWork) TemplateRepository() TemplateRepository {
	return m.templateRepo
}

func (m *MockUnitOfWork) TournamentRepository() TournamentRepository {
	return m.tournamentRepo
}

func (m *MockUnitOfWork) InstanceRepository() InstanceRepository {
	return m.instanceRepo
}

func (m *MockUnitOfWork) EntryRepository() EntryRepository {
	return m.entryRepo
}

func (m *MockUnitOfWork) SweepRunRepository() SweepRunRepository {
	return m.sweepRunRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	if m.eventBus == nil {
		m.eventBus = &RecordingPublisher{}
	}
	return m.eventBus
}

// PublishedEvents returns the events published through this unit of work
func (m *MockUnitOfWork) PublishedEvents() []events.Event {
	if m.eventBus == nil {
		return nil
	}
	return m.eventBus.Events
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
