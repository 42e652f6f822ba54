package service

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the matchmaking and sweeper services.
// Callers branch on these with errors.Is to pick a response.
var (
	// ErrInvalidTemplate indicates the template or tournament is missing,
	// or the tournament has no golfer group configured
	ErrInvalidTemplate = errors.New("invalid template or tournament")

	// ErrRegistrationClosed indicates the registration window has passed
	ErrRegistrationClosed = errors.New("registration is closed")

	// ErrAlreadyJoined indicates the user already holds an active entry
	// on the instance
	ErrAlreadyJoined = errors.New("user already joined this match")

	// ErrCannotAcceptOwnChallenge indicates a user tried to take the
	// second seat of an instance they created
	ErrCannotAcceptOwnChallenge = errors.New("cannot accept your own challenge")

	// ErrInsufficientFunds indicates the wallet balance does not cover
	// the entry fee
	ErrInsufficientFunds = errors.New("insufficient funds for entry fee")

	// ErrSeatConflict indicates a concurrent joiner claimed the seat first
	ErrSeatConflict = errors.New("seat was claimed concurrently")

	// ErrInstanceFull indicates no seat could be secured after retrying
	ErrInstanceFull = errors.New("match is full")

	// ErrEntryNotFound indicates the entry does not exist
	ErrEntryNotFound = errors.New("entry not found")

	// ErrInstanceNotFound indicates the instance does not exist
	ErrInstanceNotFound = errors.New("match instance not found")

	// ErrWithdrawNotAllowed indicates the entry can no longer be
	// withdrawn, either because the match is full or already settled
	ErrWithdrawNotAllowed = errors.New("entry can no longer be withdrawn")

	// ErrNotEntryOwner indicates a user tried to withdraw someone
	// else's entry
	ErrNotEntryOwner = errors.New("entry belongs to another user")

	// ErrSettlementInconsistency indicates money state could not be
	// restored after a failed join. Requires operator attention.
	ErrSettlementInconsistency = errors.New("settlement state is inconsistent")
)

// InvalidLineupError carries the validator's rejection reasons so the
// caller can surface them verbatim.
type InvalidLineupError struct {
	Reasons []string
}

func (e *InvalidLineupError) Error() string {
	if len(e.Reasons) == 0 {
		return "lineup is invalid"
	}
	return fmt.Sprintf("lineup is invalid: %s", strings.Join(e.Reasons, "; "))
}
