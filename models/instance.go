package models

import (
	"time"
)

// InstanceStatus represents the lifecycle state of a match instance
type InstanceStatus string

const (
	InstanceStatusPending   InstanceStatus = "pending"
	InstanceStatusOpen      InstanceStatus = "open"
	InstanceStatusFull      InstanceStatus = "full"
	InstanceStatusCancelled InstanceStatus = "cancelled"
)

// CancellationReason records why the sweeper or a withdrawal cancelled an instance
type CancellationReason string

const (
	// NoEntrants is only produced when the sole entrant withdraws and
	// the instance is deleted. The sweeper never records it: its scans
	// match only instances that still hold at least one active entry.
	CancelReasonNoEntrants      CancellationReason = "no_entrants"
	CancelReasonNoOpponent      CancellationReason = "no_opponent"
	CancelReasonTournamentEnded CancellationReason = "tournament_ended"
)

// SeatCapacity is fixed at two for head-to-head instances.
const SeatCapacity = 2

// Instance represents one concrete two-player match derived from a
// template and a tournament. Status and seat count move together:
// "full" iff seat_count == seat_capacity, "pending"/"open" imply an
// open seat remains.
type Instance struct {
	ID                    int64               `db:"id"`
	TemplateID            int64               `db:"template_id"`
	TournamentID          int64               `db:"tournament_id"`
	CreatedBy             int64               `db:"created_by"`
	Status                InstanceStatus      `db:"status"`
	SeatCount             int                 `db:"seat_count"`
	SeatCapacity          int                 `db:"seat_capacity"`
	RegistrationCloseTime time.Time           `db:"registration_close_time"`
	CancellationReason    *CancellationReason `db:"cancellation_reason"`
	CreatedAt             time.Time           `db:"created_at"`
	CancelledAt           *time.Time          `db:"cancelled_at"`
}

// HasOpenSeat reports whether another entrant can still claim a seat.
func (i *Instance) HasOpenSeat() bool {
	return i.SeatCount < i.SeatCapacity
}

// IsJoinable reports whether the instance accepts new entries at the
// given time. Full and cancelled instances are terminal for matchmaking.
func (i *Instance) IsJoinable(now time.Time) bool {
	if i.Status != InstanceStatusPending && i.Status != InstanceStatusOpen {
		return false
	}
	return i.HasOpenSeat() && now.Before(i.RegistrationCloseTime)
}

// RegistrationClosed reports whether the registration window has passed.
func (i *Instance) RegistrationClosed(now time.Time) bool {
	return !now.Before(i.RegistrationCloseTime)
}
