package models

import (
	"time"
)

// SweepRun records the outcome of one reconciliation sweep for
// observability. The counters mirror the run-sweep response payload.
type SweepRun struct {
	ID                  int64          `db:"id"`
	StartedAt           time.Time      `db:"started_at"`
	DeletedPending      int            `db:"deleted_pending"`
	CancelledByRegClose int            `db:"cancelled_reg_close"`
	RefundedByRegClose  int            `db:"refunded_reg_close"`
	CancelledSafetyNet  int            `db:"cancelled_safety_net"`
	RefundedSafetyNet   int            `db:"refunded_safety_net"`
	ExecutionSummary    map[string]any `db:"execution_summary"`
	CreatedAt           time.Time      `db:"created_at"`
}
