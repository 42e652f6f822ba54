package models

import (
	"time"
)

// Template is an administrator-defined ruleset from which match instances
// are spawned. Templates are read-only to the matchmaking engine.
type Template struct {
	ID                 int64     `db:"id"`
	Name               string    `db:"name"`
	EntryFee           int64     `db:"entry_fee"` // pennies
	RoundsCovered      string    `db:"rounds_covered"`
	CloseOffsetMinutes int       `db:"close_offset_minutes"`
	CreatedAt          time.Time `db:"created_at"`
}

// RegistrationCloseFor computes when registration closes for an instance
// of this template in the given tournament, relative to the first round.
func (t *Template) RegistrationCloseFor(tournamentStart time.Time) time.Time {
	return tournamentStart.Add(-time.Duration(t.CloseOffsetMinutes) * time.Minute)
}
