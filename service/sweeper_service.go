package service

import (
	"context"
	"fmt"
	"time"

	"fairway/events"
	"fairway/models"

	log "github.com/sirupsen/logrus"
)

type sweeperService struct {
	uowFactory  UnitOfWorkFactory
	gracePeriod time.Duration
}

// NewSweeperService creates a new reconciliation sweeper. gracePeriod
// is how long a zero-seat pending instance may linger before the sweep
// removes it.
func NewSweeperService(uowFactory UnitOfWorkFactory, gracePeriod time.Duration) SweeperService {
	return &sweeperService{
		uowFactory:  uowFactory,
		gracePeriod: gracePeriod,
	}
}

// Run executes the three reconciliation passes once. Every pass is
// idempotent: cancelled instances drop out of the scans and refunds are
// issued at most once per entry, so overlapping or repeated runs cause
// no double processing. Each instance is handled in its own
// transaction, so one bad instance cannot halt the rest of the sweep.
func (s *sweeperService) Run(ctx context.Context) (*SweepResult, error) {
	startedAt := time.Now()
	result := &SweepResult{}

	deleted, err := s.deleteAbandonedPending(ctx, startedAt)
	if err != nil {
		return nil, fmt.Errorf("abandoned pending pass failed: %w", err)
	}
	result.DeletedPending = deleted

	cancelled, refunded, err := s.cancelPastRegistrationClose(ctx, startedAt)
	if err != nil {
		return nil, fmt.Errorf("registration close pass failed: %w", err)
	}
	result.CancelledByRegClose = cancelled
	result.RefundedByRegClose = refunded

	cancelled, refunded, err = s.cancelEndedTournaments(ctx, startedAt)
	if err != nil {
		return nil, fmt.Errorf("ended tournament pass failed: %w", err)
	}
	result.CancelledSafetyNet = cancelled
	result.RefundedSafetyNet = refunded

	if err := s.recordRun(ctx, startedAt, result); err != nil {
		return nil, fmt.Errorf("failed to record sweep run: %w", err)
	}

	log.WithFields(log.Fields{
		"deletedPending":      result.DeletedPending,
		"cancelledByRegClose": result.CancelledByRegClose,
		"refundedByRegClose":  result.RefundedByRegClose,
		"cancelledSafetyNet":  result.CancelledSafetyNet,
		"refundedSafetyNet":   result.RefundedSafetyNet,
		"duration":            time.Since(startedAt),
	}).Info("Reconciliation sweep completed")

	return result, nil
}

// LastRun returns the most recent recorded sweep, nil when no sweep has
// run yet.
func (s *sweeperService) LastRun(ctx context.Context) (*models.SweepRun, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return uow.SweepRunRepository().GetLatest(ctx)
}

// deleteAbandonedPending removes zero-seat pending instances older than
// the grace period. No money ever moved for these, so deletion is the
// whole cleanup.
func (s *sweeperService) deleteAbandonedPending(ctx context.Context, now time.Time) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	deleted, err := uow.InstanceRepository().DeleteAbandonedPending(ctx, now.Add(-s.gracePeriod))
	if err != nil {
		return 0, err
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return deleted, nil
}

// cancelPastRegistrationClose cancels open instances that never found a
// second entrant before their registration window closed, refunding the
// lone entry.
func (s *sweeperService) cancelPastRegistrationClose(ctx context.Context, now time.Time) (int, int, error) {
	instances, err := s.listInstances(ctx, func(ctx context.Context, uow UnitOfWork) ([]*models.Instance, error) {
		return uow.InstanceRepository().GetOpenPastRegistrationClose(ctx, now)
	})
	if err != nil {
		return 0, 0, err
	}

	return s.cancelAll(ctx, instances, models.CancelReasonNoOpponent)
}

// cancelEndedTournaments is the safety net: any instance still pending
// or open after its tournament has fully ended gets cancelled and
// refunded, whatever state the earlier passes left it in.
func (s *sweeperService) cancelEndedTournaments(ctx context.Context, now time.Time) (int, int, error) {
	instances, err := s.listInstances(ctx, func(ctx context.Context, uow UnitOfWork) ([]*models.Instance, error) {
		return uow.InstanceRepository().GetLiveWithEndedTournament(ctx, now)
	})
	if err != nil {
		return 0, 0, err
	}

	return s.cancelAll(ctx, instances, models.CancelReasonTournamentEnded)
}

func (s *sweeperService) listInstances(ctx context.Context, list func(context.Context, UnitOfWork) ([]*models.Instance, error)) ([]*models.Instance, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	return list(ctx, uow)
}

// cancelAll cancels each instance in its own transaction and tallies
// cancellations and refunds. A failure on one instance is logged and
// skipped; the next sweep will pick it up again.
func (s *sweeperService) cancelAll(ctx context.Context, instances []*models.Instance, reason models.CancellationReason) (int, int, error) {
	var cancelled, refunded int

	for _, instance := range instances {
		changed, refunds, err := s.cancelWithRefunds(ctx, instance.ID, reason)
		if err != nil {
			log.WithFields(log.Fields{
				"instanceID": instance.ID,
				"reason":     reason,
				"error":      err,
			}).Error("Failed to cancel instance during sweep")
			continue
		}
		if changed {
			cancelled++
		}
		refunded += refunds
	}

	return cancelled, refunded, nil
}

// cancelWithRefunds transitions one instance to cancelled and refunds
// its active entries, all in one transaction. When the instance is
// already cancelled nothing happens and changed=false is reported.
func (s *sweeperService) cancelWithRefunds(ctx context.Context, instanceID int64, reason models.CancellationReason) (bool, int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return false, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	changed, err := uow.InstanceRepository().TransitionToCancelled(ctx, instanceID, reason)
	if err != nil {
		return false, 0, err
	}
	if !changed {
		return false, 0, nil
	}

	entries, err := uow.EntryRepository().GetActiveByInstance(ctx, instanceID)
	if err != nil {
		return false, 0, fmt.Errorf("failed to load entries: %w", err)
	}

	var refunds int
	for _, entry := range entries {
		didRefund, err := RefundEntry(ctx, uow, entry)
		if err != nil {
			return false, 0, fmt.Errorf("failed to refund entry %s: %w", entry.ID, err)
		}
		if didRefund {
			refunds++
		}
		if _, err := uow.EntryRepository().MarkCancelled(ctx, entry.ID); err != nil {
			return false, 0, fmt.Errorf("failed to cancel entry %s: %w", entry.ID, err)
		}
	}

	uow.EventBus().Publish(events.InstanceCancelledEvent{
		InstanceID: instanceID,
		Reason:     reason,
	})

	if err := uow.Commit(); err != nil {
		return false, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, refunds, nil
}

// recordRun persists the run's counters for operational visibility
func (s *sweeperService) recordRun(ctx context.Context, startedAt time.Time, result *SweepResult) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	run := &models.SweepRun{
		StartedAt:           startedAt,
		DeletedPending:      result.DeletedPending,
		CancelledByRegClose: result.CancelledByRegClose,
		RefundedByRegClose:  result.RefundedByRegClose,
		CancelledSafetyNet:  result.CancelledSafetyNet,
		RefundedSafetyNet:   result.RefundedSafetyNet,
		ExecutionSummary: map[string]any{
			"duration_ms": time.Since(startedAt).Milliseconds(),
		},
	}

	if err := uow.SweepRunRepository().Create(ctx, run); err != nil {
		return err
	}

	return uow.Commit()
}
