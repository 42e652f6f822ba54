package models

import (
	"time"
)

// User represents a platform user's wallet. Balance is stored in pennies
// and must always equal the sum of the user's wallet transactions.
type User struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	Balance   int64     `db:"balance"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
