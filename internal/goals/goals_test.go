package goals

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ddmitrov/fincore/internal/domain"
	"github.com/ddmitrov/fincore/internal/events"
	"github.com/ddmitrov/fincore/internal/money"
)

type mockStore struct {
	goals    map[string]*domain.SavingsGoal
	balances map[string]int64 // accountID -> minor units
}

func newMockStore() *mockStore {
	return &mockStore{
		goals:    make(map[string]*domain.SavingsGoal),
		balances: make(map[string]int64),
	}
}

func (m *mockStore) ListActiveGoalsByAccount(ctx context.Context, userID, accountID string) ([]domain.SavingsGoal, error) {
	var out []domain.SavingsGoal
	for _, g := range m.goals {
		if g.UserID == userID && g.AccountID == accountID && !g.Completed() {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m *mockStore) GetGoal(ctx context.Context, id string) (*domain.SavingsGoal, error) {
	g, ok := m.goals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m *mockStore) SetGoalProgress(ctx context.Context, id string, progressMinor int64) error {
	g := m.goals[id]
	g.Progress = money.MustNew(progressMinor, g.Target.Currency())
	return nil
}

func (m *mockStore) MarkGoalCompleted(ctx context.Context, id string) (bool, error) {
	g := m.goals[id]
	if g.Completed() || g.Progress.Minor() < g.Target.Minor() {
		return false, nil
	}
	now := time.Now().UTC()
	g.CompletedAt = &now
	return true, nil
}

func (m *mockStore) AccountBalance(ctx context.Context, userID, accountID, currencyCode string) (int64, error) {
	return m.balances[accountID], nil
}

type mockPublisher struct {
	published []events.Event
}

func (m *mockPublisher) Publish(ctx context.Context, e events.Event) error {
	m.published = append(m.published, e)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func testGoal(target int64) *domain.SavingsGoal {
	return &domain.SavingsGoal{
		ID:        "g1",
		UserID:    "u1",
		AccountID: "acc-1",
		Name:      "Vacation",
		Target:    money.MustNew(target, "USD"),
		Progress:  money.MustNew(0, "USD"),
	}
}

func testTx() *domain.Transaction {
	return &domain.Transaction{
		ID:        "t1",
		UserID:    "u1",
		AccountID: "acc-1",
		Amount:    money.MustNew(1000, "USD"),
		Type:      domain.TypeIncome,
	}
}

func TestProgressBelowTargetDoesNotComplete(t *testing.T) {
	store := newMockStore()
	store.goals["g1"] = testGoal(10000)
	store.balances["acc-1"] = 4000
	pub := &mockPublisher{}
	ev := NewEvaluator(store, pub, zerolog.Nop())

	if err := ev.OnTransactionCreated(context.Background(), testTx()); err != nil {
		t.Fatalf("OnTransactionCreated failed: %v", err)
	}
	if got := store.goals["g1"].Progress.Minor(); got != 4000 {
		t.Errorf("progress = %d, want 4000", got)
	}
	if store.goals["g1"].Completed() {
		t.Error("goal completed below target")
	}
	if len(pub.published) != 0 {
		t.Errorf("published %d events, want 0", len(pub.published))
	}
}

func TestCrossingTargetFiresOnce(t *testing.T) {
	store := newMockStore()
	store.goals["g1"] = testGoal(10000)
	store.balances["acc-1"] = 12000
	pub := &mockPublisher{}
	ev := NewEvaluator(store, pub, zerolog.Nop())

	if err := ev.OnTransactionCreated(context.Background(), testTx()); err != nil {
		t.Fatalf("OnTransactionCreated failed: %v", err)
	}
	if !store.goals["g1"].Completed() {
		t.Fatal("goal not completed at target")
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.published))
	}
	completed, ok := pub.published[0].(events.SavingsGoalCompleted)
	if !ok {
		t.Fatalf("event is %T, want SavingsGoalCompleted", pub.published[0])
	}
	if completed.Goal.CompletedAt == nil {
		t.Error("published goal has no completion timestamp")
	}

	// A later transaction on the same account must not re-fire: the goal
	// no longer appears in the active list.
	if err := ev.OnTransactionCreated(context.Background(), testTx()); err != nil {
		t.Fatalf("second OnTransactionCreated failed: %v", err)
	}
	if len(pub.published) != 1 {
		t.Errorf("published %d events after re-evaluation, want 1", len(pub.published))
	}
}

func TestDipAndRecrossDoesNotRefire(t *testing.T) {
	store := newMockStore()
	store.goals["g1"] = testGoal(10000)
	store.balances["acc-1"] = 12000
	pub := &mockPublisher{}
	ev := NewEvaluator(store, pub, zerolog.Nop())

	if err := ev.OnTransactionCreated(context.Background(), testTx()); err != nil {
		t.Fatalf("OnTransactionCreated failed: %v", err)
	}

	// Balance dips below target, then crosses again.
	store.balances["acc-1"] = 8000
	if err := ev.OnTransactionCreated(context.Background(), testTx()); err != nil {
		t.Fatalf("dip evaluation failed: %v", err)
	}
	store.balances["acc-1"] = 15000
	if err := ev.OnTransactionCreated(context.Background(), testTx()); err != nil {
		t.Fatalf("recross evaluation failed: %v", err)
	}

	if len(pub.published) != 1 {
		t.Errorf("published %d events, want exactly 1", len(pub.published))
	}
	if !store.goals["g1"].Completed() {
		t.Error("completion was not sticky")
	}
}

func TestNegativeBalanceClampsToZero(t *testing.T) {
	store := newMockStore()
	store.goals["g1"] = testGoal(10000)
	store.balances["acc-1"] = -500
	pub := &mockPublisher{}
	ev := NewEvaluator(store, pub, zerolog.Nop())

	if err := ev.OnTransactionCreated(context.Background(), testTx()); err != nil {
		t.Fatalf("OnTransactionCreated failed: %v", err)
	}
	if got := store.goals["g1"].Progress.Minor(); got != 0 {
		t.Errorf("progress = %d, want 0", got)
	}
}

func TestGoalsOnOtherAccountsUntouched(t *testing.T) {
	store := newMockStore()
	store.goals["g1"] = testGoal(10000)
	other := testGoal(5000)
	other.ID = "g2"
	other.AccountID = "acc-other"
	store.goals["g2"] = other
	store.balances["acc-1"] = 12000
	store.balances["acc-other"] = 9000
	pub := &mockPublisher{}
	ev := NewEvaluator(store, pub, zerolog.Nop())

	if err := ev.OnTransactionCreated(context.Background(), testTx()); err != nil {
		t.Fatalf("OnTransactionCreated failed: %v", err)
	}
	if store.goals["g2"].Completed() {
		t.Error("goal on an unrelated account was completed")
	}
	if got := store.goals["g2"].Progress.Minor(); got != 0 {
		t.Errorf("unrelated goal progress = %d, want 0", got)
	}
}
