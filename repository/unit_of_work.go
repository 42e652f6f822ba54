package repository

import (
	"context"
	"fmt"

	"fairway/database"
	"fairway/events"
	"fairway/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	userRepo         service.UserRepository
	walletTxRepo     service.WalletTransactionRepository
	templateRepo     service.TemplateRepository
	tournamentRepo   service.TournamentRepository
	instanceRepo     service.InstanceRepository
	entryRepo        service.EntryRepository
	sweepRunRepo     service.SweepRunRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.userRepo = newUserRepositoryWithTx(tx)
	u.walletTxRepo = newWalletTransactionRepositoryWithTx(tx)
	u.templateRepo = newTemplateRepositoryWithTx(tx)
	u.tournamentRepo = newTournamentRepositoryWithTx(tx)
	u.instanceRepo = newInstanceRepositoryWithTx(tx)
	u.entryRepo = newEntryRepositoryWithTx(tx)
	u.sweepRunRepo = newSweepRunRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

// UserRepository returns the user repository for this unit of work
func (u *unitOfWork) UserRepository() service.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.userRepo
}

// WalletTransactionRepository returns the wallet transaction repository for this unit of work
func (u *unitOfWork) WalletTransactionRepository() service.WalletTransactionRepository {
	if u.walletTxRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.walletTxRepo
}

// TemplateRepository returns the template repository for this unit of work
func (u *unitOfWork) TemplateRepository() service.TemplateRepository {
	if u.templateRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.templateRepo
}

// TournamentRepository returns the tournament repository for this unit of work
func (u *unitOfWork) TournamentRepository() service.TournamentRepository {
	if u.tournamentRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.tournamentRepo
}

// InstanceRepository returns the instance repository for this unit of work
func (u *unitOfWork) InstanceRepository() service.InstanceRepository {
	if u.instanceRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.instanceRepo
}

// EntryRepository returns the entry repository for this unit of work
func (u *unitOfWork) EntryRepository() service.EntryRepository {
	if u.entryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.entryRepo
}

// SweepRunRepository returns the sweep run repository for this unit of work
func (u *unitOfWork) SweepRunRepository() service.SweepRunRepository {
	if u.sweepRunRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.sweepRunRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
