package service

import (
	"context"
	"fmt"
	"time"

	"fairway/events"
	"fairway/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type matchmakingService struct {
	uowFactory      UnitOfWorkFactory
	validator       LineupValidator
	startingBalance int64
}

// NewMatchmakingService creates a new matchmaking service.
// startingBalance funds the wallet provisioned for a user's first join.
func NewMatchmakingService(uowFactory UnitOfWorkFactory, validator LineupValidator, startingBalance int64) MatchmakingService {
	return &matchmakingService{
		uowFactory:      uowFactory,
		validator:       validator,
		startingBalance: startingBalance,
	}
}

// Join enters a user into a match. Every check, the seat claim, the fee
// debit and the entry insert run inside one transaction, so a failure
// at any step leaves no partial state behind. A seat lost to a
// concurrent joiner triggers exactly one fresh attempt.
func (s *matchmakingService) Join(ctx context.Context, req JoinRequest) (*JoinResult, error) {
	if len(req.Lineup.GolferIDs) == 0 {
		return nil, &InvalidLineupError{Reasons: []string{"lineup must contain at least one golfer"}}
	}
	if !req.Lineup.ContainsCaptain() {
		return nil, &InvalidLineupError{Reasons: []string{"captain must be one of the picked golfers"}}
	}

	// The validator round trip happens before any transaction opens so
	// its network latency never pins a pool connection. The verdict
	// holds across the retry because the lineup cannot change mid-call.
	validation, err := s.validator.Validate(ctx, req.TournamentID, req.Lineup)
	if err != nil {
		return nil, fmt.Errorf("failed to validate lineup: %w", err)
	}
	if !validation.Valid {
		return nil, &InvalidLineupError{Reasons: validation.Reasons}
	}

	result, err := s.attemptJoin(ctx, req)
	if err == ErrSeatConflict {
		log.WithFields(log.Fields{
			"userID":     req.UserID,
			"templateID": req.TemplateID,
		}).Info("Seat claimed concurrently, retrying join once")
		result, err = s.attemptJoin(ctx, req)
		if err == ErrSeatConflict {
			return nil, ErrInstanceFull
		}
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"userID":     req.UserID,
		"instanceID": result.Instance.ID,
		"entryID":    result.Entry.ID,
		"matched":    result.Matched,
	}).Info("User joined match")

	return result, nil
}

// attemptJoin runs one full join attempt in its own transaction
func (s *matchmakingService) attemptJoin(ctx context.Context, req JoinRequest) (*JoinResult, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	now := time.Now()

	user, err := uow.UserRepository().GetByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		// First join for this platform user, provision their wallet
		user, err = uow.UserRepository().Create(ctx, req.UserID, req.Username, s.startingBalance)
		if err != nil {
			return nil, fmt.Errorf("failed to provision user wallet: %w", err)
		}
		log.WithFields(log.Fields{
			"userID":          user.ID,
			"startingBalance": user.Balance,
		}).Info("Provisioned wallet for first-time user")
	}

	template, err := uow.TemplateRepository().GetByID(ctx, req.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	if template == nil {
		return nil, ErrInvalidTemplate
	}

	tournament, err := uow.TournamentRepository().GetByID(ctx, req.TournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	if tournament == nil || tournament.GolferGroupID == nil {
		return nil, ErrInvalidTemplate
	}

	instance, created, err := s.resolveInstance(ctx, uow, req, template, tournament, now)
	if err != nil {
		return nil, err
	}

	if instance.RegistrationClosed(now) {
		return nil, ErrRegistrationClosed
	}
	if instance.Status == models.InstanceStatusFull || instance.Status == models.InstanceStatusCancelled || !instance.HasOpenSeat() {
		return nil, ErrInstanceFull
	}

	existing, err := uow.EntryRepository().GetActiveByUserAndInstance(ctx, req.UserID, instance.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing entry: %w", err)
	}
	if existing != nil {
		return nil, ErrAlreadyJoined
	}
	if instance.SeatCount == 1 && instance.CreatedBy == req.UserID {
		return nil, ErrCannotAcceptOwnChallenge
	}

	if user.Balance < template.EntryFee {
		return nil, ErrInsufficientFunds
	}

	claimed, err := uow.InstanceRepository().ClaimSeat(ctx, instance.ID, instance.SeatCount)
	if err != nil {
		return nil, fmt.Errorf("failed to claim seat: %w", err)
	}
	if claimed == nil {
		// A newly created instance is invisible to others until commit,
		// so a lost claim always means a concurrent joiner on an
		// existing instance.
		return nil, ErrSeatConflict
	}

	entry := &models.Entry{
		ID:         uuid.New(),
		InstanceID: claimed.ID,
		UserID:     req.UserID,
		Lineup:     req.Lineup,
		FeePaid:    template.EntryFee,
	}

	if err := DebitForEntry(ctx, uow, user.ID, entry.ID, claimed.ID, template.EntryFee); err != nil {
		return nil, s.compensate(uow, err)
	}

	if err := uow.EntryRepository().Create(ctx, entry); err != nil {
		return nil, s.compensate(uow, fmt.Errorf("failed to create entry: %w", err))
	}

	matched := claimed.Status == models.InstanceStatusFull
	if matched {
		entrants, err := uow.EntryRepository().GetActiveByInstance(ctx, claimed.ID)
		if err != nil {
			return nil, s.compensate(uow, fmt.Errorf("failed to load entrants: %w", err))
		}
		if len(entrants) != models.SeatCapacity {
			return nil, s.compensate(uow, fmt.Errorf("full instance %d has %d active entries", claimed.ID, len(entrants)))
		}
		uow.EventBus().Publish(events.InstanceFilledEvent{
			InstanceID:   claimed.ID,
			TemplateID:   claimed.TemplateID,
			TournamentID: claimed.TournamentID,
			UserIDs:      [2]int64{entrants[0].UserID, entrants[1].UserID},
		})
	}

	if err := uow.Commit(); err != nil {
		return nil, s.compensate(uow, fmt.Errorf("failed to commit join: %w", err))
	}

	if created {
		log.WithFields(log.Fields{
			"instanceID":   claimed.ID,
			"templateID":   claimed.TemplateID,
			"tournamentID": claimed.TournamentID,
			"createdBy":    req.UserID,
		}).Info("Created new match instance")
	}

	return &JoinResult{Entry: entry, Instance: claimed, Matched: matched}, nil
}

// resolveInstance picks the instance a join targets. An explicit
// InstanceID must exist and belong to the requested template and
// tournament. Otherwise the oldest joinable instance wins, and when the
// pool is empty a fresh pending instance is created on the spot.
func (s *matchmakingService) resolveInstance(ctx context.Context, uow UnitOfWork, req JoinRequest, template *models.Template, tournament *models.Tournament, now time.Time) (*models.Instance, bool, error) {
	if req.InstanceID != 0 {
		instance, err := uow.InstanceRepository().GetByID(ctx, req.InstanceID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to get instance: %w", err)
		}
		if instance == nil {
			return nil, false, ErrInstanceNotFound
		}
		if instance.TemplateID != req.TemplateID || instance.TournamentID != req.TournamentID {
			return nil, false, ErrInvalidTemplate
		}
		return instance, false, nil
	}

	instance, err := uow.InstanceRepository().FindOldestJoinable(ctx, req.TemplateID, req.TournamentID, now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to find joinable instance: %w", err)
	}
	if instance != nil {
		return instance, false, nil
	}

	closeTime := template.RegistrationCloseFor(tournament.StartsAt)
	if !now.Before(closeTime) {
		return nil, false, ErrRegistrationClosed
	}

	instance = &models.Instance{
		TemplateID:            req.TemplateID,
		TournamentID:          req.TournamentID,
		CreatedBy:             req.UserID,
		RegistrationCloseTime: closeTime,
	}
	if err := uow.InstanceRepository().Create(ctx, instance); err != nil {
		return nil, false, fmt.Errorf("failed to create instance: %w", err)
	}

	return instance, true, nil
}

// compensate rolls the attempt back after a post-claim failure. If even
// the rollback fails, money state can no longer be trusted and the
// error escalates for operator attention.
func (s *matchmakingService) compensate(uow UnitOfWork, cause error) error {
	if rbErr := uow.Rollback(); rbErr != nil {
		log.WithFields(log.Fields{
			"cause":         cause,
			"rollbackError": rbErr,
		}).Error("Rollback failed after join failure")
		return fmt.Errorf("%w: %v (rollback: %v)", ErrSettlementInconsistency, cause, rbErr)
	}
	return cause
}

// Withdraw cancels a user's entry and refunds the frozen fee while the
// match still waits for an opponent. Withdrawing an already cancelled
// entry is a no-op. When the sole entrant leaves, the instance itself
// is removed rather than left behind empty.
func (s *matchmakingService) Withdraw(ctx context.Context, userID int64, entryID uuid.UUID) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entry, err := uow.EntryRepository().GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}
	if entry == nil {
		return ErrEntryNotFound
	}
	if entry.UserID != userID {
		return ErrNotEntryOwner
	}
	if !entry.IsActive() {
		return nil
	}

	instance, err := uow.InstanceRepository().GetByID(ctx, entry.InstanceID)
	if err != nil {
		return fmt.Errorf("failed to get instance: %w", err)
	}
	if instance == nil {
		return fmt.Errorf("instance %d for entry %s not found", entry.InstanceID, entry.ID)
	}
	if instance.Status == models.InstanceStatusFull {
		return ErrWithdrawNotAllowed
	}

	if _, err := RefundEntry(ctx, uow, entry); err != nil {
		return fmt.Errorf("failed to refund entry: %w", err)
	}

	if _, err := uow.EntryRepository().MarkCancelled(ctx, entry.ID); err != nil {
		return fmt.Errorf("failed to cancel entry: %w", err)
	}

	if instance.Status == models.InstanceStatusPending || instance.Status == models.InstanceStatusOpen {
		if instance.SeatCount <= 1 {
			// Last entrant out, remove the instance entirely rather
			// than leaving an empty shell in the pool.
			if err := uow.InstanceRepository().Delete(ctx, instance.ID); err != nil {
				return fmt.Errorf("failed to delete emptied instance: %w", err)
			}
			uow.EventBus().Publish(events.InstanceCancelledEvent{
				InstanceID: instance.ID,
				Reason:     models.CancelReasonNoEntrants,
			})
		} else if err := uow.InstanceRepository().ReleaseSeat(ctx, instance.ID); err != nil {
			return fmt.Errorf("failed to release seat: %w", err)
		}
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit withdrawal: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":     userID,
		"entryID":    entryID,
		"instanceID": entry.InstanceID,
		"refunded":   entry.FeePaid,
	}).Info("User withdrew from match")

	return nil
}
