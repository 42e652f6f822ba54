package models

import (
	"time"
)

// Tournament is a read-only catalog record describing one real-world
// event instances can be attached to.
type Tournament struct {
	ID            int64     `db:"id"`
	Name          string    `db:"name"`
	GolferGroupID *int64    `db:"golfer_group_id"`
	StartsAt      time.Time `db:"starts_at"`
	EndsAt        time.Time `db:"ends_at"`
	CreatedAt     time.Time `db:"created_at"`
}

// HasEnded reports whether the tournament's final round has fully passed.
func (t *Tournament) HasEnded(now time.Time) bool {
	return t.EndsAt.Before(now)
}
