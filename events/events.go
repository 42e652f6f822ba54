package events

import (
	"context"
	"sync"

	"fairway/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange     EventType = "balance_change"
	EventTypeInstanceFilled    EventType = "instance_filled"
	EventTypeInstanceCancelled EventType = "instance_cancelled"
	EventTypeEntryRefunded     EventType = "entry_refunded"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a wallet balance change that occurred
type BalanceChangeEvent struct {
	UserID       int64
	OldBalance   int64
	NewBalance   int64
	Direction    models.TransactionDirection
	Reason       models.TransactionReason
	ChangeAmount int64
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// InstanceFilledEvent fires when the second entrant commits and the
// instance becomes full.
type InstanceFilledEvent struct {
	InstanceID   int64
	TemplateID   int64
	TournamentID int64
	UserIDs      [2]int64
}

func (e InstanceFilledEvent) Type() EventType {
	return EventTypeInstanceFilled
}

// InstanceCancelledEvent fires when an instance is cancelled by the
// sweeper or by the sole entrant withdrawing.
type InstanceCancelledEvent struct {
	InstanceID int64
	Reason     models.CancellationReason
}

func (e InstanceCancelledEvent) Type() EventType {
	return EventTypeInstanceCancelled
}

// EntryRefundedEvent fires when an entry's fee has been credited back.
type EntryRefundedEvent struct {
	EntryID    string
	InstanceID int64
	UserID     int64
	Amount     int64
}

func (e EntryRefundedEvent) Type() EventType {
	return EventTypeEntryRefunded
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Handlers run asynchronously so a slow subscriber cannot block a
	// join or a sweep.
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus stashes events raised inside a unit of work and
// flushes them to the underlying bus only after the transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush is called after a successful DB commit.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Events are emitted on a background context: their lifecycle is
	// independent of the (possibly expired) transaction context.
	eventCtx := context.Background()

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard is called after a rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
