// Package events carries the two domain events out of the ingestion flow.
// Publication is fire-and-forget: the triggering write is already durable
// when Publish is called, and listener failures never unwind it.
package events

import (
	"context"

	"github.com/ddmitrov/fincore/internal/domain"
)

// Event names double as AMQP routing metadata.
const (
	NameTransactionCreated   = "transaction.created"
	NameSavingsGoalCompleted = "savings_goal.completed"
)

// Event is a named, JSON-serializable payload.
type Event interface {
	Name() string
}

// TransactionCreated is published exactly once per persisted transaction,
// strictly after the insert committed. Listeners may assume the transaction
// is readable.
type TransactionCreated struct {
	Transaction domain.Transaction `json:"transaction"`
}

// Name implements Event.
func (TransactionCreated) Name() string { return NameTransactionCreated }

// SavingsGoalCompleted is published exactly once per goal, on the
// not-completed -> completed transition. The store's completion guard
// prevents re-firing when progress crosses the target again.
type SavingsGoalCompleted struct {
	Goal domain.SavingsGoal `json:"goal"`
}

// Name implements Event.
func (SavingsGoalCompleted) Name() string { return NameSavingsGoalCompleted }

// Publisher delivers events to listeners, in process or over a broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}
