package service

import (
	"context"
	"time"

	"fairway/events"
	"fairway/models"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// GetByID retrieves a user by ID, nil when not found
	GetByID(ctx context.Context, userID int64) (*models.User, error)

	// Create provisions a wallet for a platform user with the initial
	// balance
	Create(ctx context.Context, userID int64, username string, initialBalance int64) (*models.User, error)

	// AddBalance adds to a user's balance atomically and returns the
	// post-update balance
	AddBalance(ctx context.Context, userID int64, amount int64) (int64, error)

	// DeductBalance deducts from a user's balance atomically and
	// returns the post-update balance. ok is false when the user is
	// missing or the balance would go negative.
	DeductBalance(ctx context.Context, userID int64, amount int64) (balance int64, ok bool, err error)
}

// WalletTransactionRepository defines the interface for ledger access
type WalletTransactionRepository interface {
	// Record appends a new transaction to the ledger
	Record(ctx context.Context, txn *models.WalletTransaction) error

	// GetRefundByEntry returns the refund transaction for an entry,
	// nil when none has been issued
	GetRefundByEntry(ctx context.Context, entryID uuid.UUID) (*models.WalletTransaction, error)

	// GetByUser returns a user's most recent transactions
	GetByUser(ctx context.Context, userID int64, limit int) ([]*models.WalletTransaction, error)
}

// TemplateRepository defines the interface for template data access
type TemplateRepository interface {
	// GetByID retrieves a template by ID, nil when not found
	GetByID(ctx context.Context, templateID int64) (*models.Template, error)
}

// TournamentRepository defines the interface for tournament data access
type TournamentRepository interface {
	// GetByID retrieves a tournament by ID, nil when not found
	GetByID(ctx context.Context, tournamentID int64) (*models.Tournament, error)
}

// InstanceRepository defines the interface for match instance data access
type InstanceRepository interface {
	// Create persists a new instance in pending status with zero seats
	Create(ctx context.Context, instance *models.Instance) error

	// GetByID retrieves an instance by ID, nil when not found
	GetByID(ctx context.Context, instanceID int64) (*models.Instance, error)

	// FindOldestJoinable returns the oldest instance for the template
	// and tournament with a free seat and an open registration window,
	// nil when none exists
	FindOldestJoinable(ctx context.Context, templateID, tournamentID int64, now time.Time) (*models.Instance, error)

	// ClaimSeat increments seat_count only if it still equals
	// expectedSeatCount. Returns nil when another joiner won the race.
	ClaimSeat(ctx context.Context, instanceID int64, expectedSeatCount int) (*models.Instance, error)

	// ReleaseSeat decrements seat_count and reverts status
	ReleaseSeat(ctx context.Context, instanceID int64) error

	// TransitionToCancelled marks an instance cancelled. Returns false
	// with no side effect when it is already cancelled.
	TransitionToCancelled(ctx context.Context, instanceID int64, reason models.CancellationReason) (bool, error)

	// Delete removes an instance outright
	Delete(ctx context.Context, instanceID int64) error

	// DeleteAbandonedPending removes zero-seat pending instances created
	// before the cutoff and returns how many were removed
	DeleteAbandonedPending(ctx context.Context, createdBefore time.Time) (int, error)

	// GetOpenPastRegistrationClose returns open instances whose
	// registration window has passed
	GetOpenPastRegistrationClose(ctx context.Context, now time.Time) ([]*models.Instance, error)

	// GetLiveWithEndedTournament returns pending/open instances whose
	// tournament has fully ended
	GetLiveWithEndedTournament(ctx context.Context, now time.Time) ([]*models.Instance, error)
}

// EntryRepository defines the interface for entry data access
type EntryRepository interface {
	// Create persists a new submitted entry
	Create(ctx context.Context, entry *models.Entry) error

	// GetByID retrieves an entry by ID, nil when not found
	GetByID(ctx context.Context, entryID uuid.UUID) (*models.Entry, error)

	// GetActiveByInstance returns all non-cancelled entries for an
	// instance, oldest first
	GetActiveByInstance(ctx context.Context, instanceID int64) ([]*models.Entry, error)

	// GetActiveByUserAndInstance returns the user's non-cancelled entry
	// for an instance, nil when they hold none
	GetActiveByUserAndInstance(ctx context.Context, userID, instanceID int64) (*models.Entry, error)

	// MarkCancelled flips an entry to cancelled. Returns false when it
	// was already cancelled.
	MarkCancelled(ctx context.Context, entryID uuid.UUID) (bool, error)
}

// SweepRunRepository defines the interface for sweep run bookkeeping
type SweepRunRepository interface {
	// Create records the outcome of one sweep
	Create(ctx context.Context, run *models.SweepRun) error

	// GetLatest returns the most recent sweep run, nil when none exist
	GetLatest(ctx context.Context) (*models.SweepRun, error)
}

// JoinRequest carries everything needed to enter a user into a match
type JoinRequest struct {
	UserID       int64
	TemplateID   int64
	TournamentID int64
	Lineup       models.Lineup

	// Username is stored when the user's wallet is provisioned on
	// their first join. Optional for returning users.
	Username string

	// InstanceID targets a specific challenge. Zero means pick the
	// oldest joinable instance or create a fresh one.
	InstanceID int64
}

// JoinResult reports the committed outcome of a join
type JoinResult struct {
	Entry    *models.Entry
	Instance *models.Instance

	// Matched is true when this join filled the second seat
	Matched bool
}

// MatchmakingService defines the interface for match entry operations
type MatchmakingService interface {
	// Join enters a user into a match. The whole sequence of checks,
	// seat claim, fee debit and entry insert commits or fails as one.
	Join(ctx context.Context, req JoinRequest) (*JoinResult, error)

	// Withdraw cancels a user's entry and refunds the fee while the
	// match is still waiting for an opponent
	Withdraw(ctx context.Context, userID int64, entryID uuid.UUID) error
}

// SweepResult aggregates the per-pass counters of one reconciliation run
type SweepResult struct {
	DeletedPending      int
	CancelledByRegClose int
	RefundedByRegClose  int
	CancelledSafetyNet  int
	RefundedSafetyNet   int
}

// SweeperService defines the interface for the reconciliation sweep
type SweeperService interface {
	// Run executes all reconciliation passes once and records the run
	Run(ctx context.Context) (*SweepResult, error)

	// LastRun returns the most recent recorded sweep, nil when no
	// sweep has run yet
	LastRun(ctx context.Context) (*models.SweepRun, error)
}

// LineupValidation is the validator's verdict on a proposed lineup
type LineupValidation struct {
	Valid   bool
	Reasons []string
}

// LineupValidator checks a lineup against the tournament's golfer group
// and roster rules
type LineupValidator interface {
	Validate(ctx context.Context, tournamentID int64, lineup models.Lineup) (*LineupValidation, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	WalletTransactionRepository() WalletTransactionRepository
	TemplateRepository() TemplateRepository
	TournamentRepository() TournamentRepository
	InstanceRepository() InstanceRepository
	EntryRepository() EntryRepository
	SweepRunRepository() SweepRunRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork instance
	Create() UnitOfWork
}
