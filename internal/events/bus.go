// Package events is a lightweight in-process publish/subscribe bus. It
// replaces the legacy clients' process-wide mutable "refresh" callback:
// instead of one screen poking an ambient function pointer to make another
// reload, interested parties subscribe here for the application's
// lifetime and are notified on record changes.
package events

import (
	"context"
	"sync"

	"fleetledger/internal/core"
)

// RecordChanged is emitted after a record is created or deleted.
type RecordChanged struct {
	RecordID string
	Kind     core.RecordKind
	OwnerID  string
	// OccurredOn is the record's canonical date, used by subscribers to
	// invalidate the right summary windows.
	OccurredOn string
	Deleted    bool
}

// StatementCreated is emitted after a statement has been persisted.
type StatementCreated struct {
	StatementID string
	OwnerID     string
}

type Handler[E any] func(context.Context, E)

// Bus fans events out to subscribers synchronously, in subscription
// order. Handlers must be fast; anything slow belongs on a goroutine the
// handler owns.
type Bus struct {
	mu                sync.RWMutex
	recordHandlers    []Handler[RecordChanged]
	statementHandlers []Handler[StatementCreated]
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) SubscribeRecordChanged(h Handler[RecordChanged]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recordHandlers = append(b.recordHandlers, h)
}

func (b *Bus) PublishRecordChanged(ctx context.Context, e RecordChanged) {
	b.mu.RLock()
	handlers := append([]Handler[RecordChanged](nil), b.recordHandlers...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if h != nil {
			h(ctx, e)
		}
	}
}

func (b *Bus) SubscribeStatementCreated(h Handler[StatementCreated]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statementHandlers = append(b.statementHandlers, h)
}

func (b *Bus) PublishStatementCreated(ctx context.Context, e StatementCreated) {
	b.mu.RLock()
	handlers := append([]Handler[StatementCreated](nil), b.statementHandlers...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if h != nil {
			h(ctx, e)
		}
	}
}
