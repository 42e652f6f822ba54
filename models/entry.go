package models

import (
	"time"

	"github.com/google/uuid"
)

// EntryStatus represents the state of a user's participation
type EntryStatus string

const (
	EntryStatusSubmitted EntryStatus = "submitted"
	EntryStatusCancelled EntryStatus = "cancelled"
)

// Lineup is an ordered set of golfer picks with one designated captain.
type Lineup struct {
	GolferIDs       []int64 `json:"golfer_ids"`
	CaptainGolferID int64   `json:"captain_golfer_id"`
}

// ContainsCaptain reports whether the designated captain is one of the
// picked golfers.
func (l Lineup) ContainsCaptain() bool {
	for _, id := range l.GolferIDs {
		if id == l.CaptainGolferID {
			return true
		}
	}
	return false
}

// Entry is a single user's paid, validated participation in one
// instance. FeePaid is frozen at join time; refunds always reference
// this stored value, never the template's current fee.
type Entry struct {
	ID          uuid.UUID   `db:"id"`
	InstanceID  int64       `db:"instance_id"`
	UserID      int64       `db:"user_id"`
	Lineup      Lineup      `db:"lineup"`
	FeePaid     int64       `db:"fee_paid"`
	Status      EntryStatus `db:"status"`
	CreatedAt   time.Time   `db:"created_at"`
	CancelledAt *time.Time  `db:"cancelled_at"`
}

// IsActive reports whether the entry still occupies a seat.
func (e *Entry) IsActive() bool {
	return e.Status == EntryStatusSubmitted
}
