package match_test

import (
	"context"
	"testing"

	"github.com/ddmitrov/fincore/internal/domain"
	"github.com/ddmitrov/fincore/internal/match"
)

// fakeSource is an in-memory CategorySource/AccountSource. It enforces the
// same user scoping the real store does.
type fakeSource struct {
	categories []domain.Category
	accounts   []domain.Account
	listCalls  int
}

func (f *fakeSource) ListCategories(ctx context.Context, userID string, t domain.TransactionType) ([]domain.Category, error) {
	f.listCalls++
	var out []domain.Category
	for _, c := range f.categories {
		if c.UserID == userID && c.Type == t {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeSource) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	f.listCalls++
	var out []domain.Account
	for _, a := range f.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func newFixture() (*match.Matcher, *fakeSource) {
	src := &fakeSource{
		categories: []domain.Category{
			{ID: "a-groceries", UserID: "alice", Name: "Groceries", Type: domain.TypeExpense},
			{ID: "a-eating-out", UserID: "alice", Name: "Eating Out", Type: domain.TypeExpense},
			{ID: "a-salary", UserID: "alice", Name: "Salary", Type: domain.TypeIncome},
			// Bob owns a category with the same name as Alice's.
			{ID: "b-groceries", UserID: "bob", Name: "Groceries", Type: domain.TypeExpense},
		},
		accounts: []domain.Account{
			{ID: "a-checking", UserID: "alice", Name: "Checking", Currency: "USD"},
			{ID: "a-savings", UserID: "alice", Name: "Savings", Currency: "USD"},
			{ID: "b-checking", UserID: "bob", Name: "Checking", Currency: "USD"},
		},
	}
	return match.New(src, src), src
}

func TestMatchCategoryExact(t *testing.T) {
	m, _ := newFixture()
	got, err := m.MatchCategory(context.Background(), "groceries", "alice", domain.TypeExpense)
	if err != nil {
		t.Fatalf("MatchCategory failed: %v", err)
	}
	if got == nil || got.ID != "a-groceries" {
		t.Fatalf("got %+v, want alice's Groceries", got)
	}
}

func TestMatchCategoryNeverCrossesUsers(t *testing.T) {
	m, _ := newFixture()
	ctx := context.Background()

	hints := []string{"groceries", "Groceries", "grocery", "grceries", "GROCERIES "}
	for _, hint := range hints {
		got, err := m.MatchCategory(ctx, hint, "alice", domain.TypeExpense)
		if err != nil {
			t.Fatalf("MatchCategory(%q) failed: %v", hint, err)
		}
		if got != nil && got.UserID != "alice" {
			t.Fatalf("MatchCategory(%q) returned category owned by %s", hint, got.UserID)
		}
	}

	// A user with no categories gets nil even though another user has an
	// exact-name match.
	got, err := m.MatchCategory(ctx, "groceries", "carol", domain.TypeExpense)
	if err != nil {
		t.Fatalf("MatchCategory failed: %v", err)
	}
	if got != nil {
		t.Fatalf("got %+v for user with no categories, want nil", got)
	}
}

func TestMatchCategoryTypeScoped(t *testing.T) {
	m, _ := newFixture()
	got, err := m.MatchCategory(context.Background(), "salary", "alice", domain.TypeExpense)
	if err != nil {
		t.Fatalf("MatchCategory failed: %v", err)
	}
	if got != nil {
		t.Fatalf("income category matched for expense lookup: %+v", got)
	}
}

func TestMatchCategoryFuzzy(t *testing.T) {
	m, _ := newFixture()
	ctx := context.Background()

	cases := []struct {
		hint   string
		wantID string // "" means no match
	}{
		{"grocery", "a-groceries"},   // close variant
		{"grceries", "a-groceries"},  // one deletion
		{"eating out", "a-eating-out"},
		{"eatin out", "a-eating-out"},
		{"xyzzy", ""},                // nothing close enough
		{"", ""},                     // empty hint is a no-op
	}
	for _, tc := range cases {
		got, err := m.MatchCategory(ctx, tc.hint, "alice", domain.TypeExpense)
		if err != nil {
			t.Fatalf("MatchCategory(%q) failed: %v", tc.hint, err)
		}
		if tc.wantID == "" {
			if got != nil {
				t.Errorf("MatchCategory(%q) = %+v, want nil", tc.hint, got)
			}
			continue
		}
		if got == nil || got.ID != tc.wantID {
			t.Errorf("MatchCategory(%q) = %+v, want id %s", tc.hint, got, tc.wantID)
		}
	}
}

func TestMatchAccount(t *testing.T) {
	m, _ := newFixture()
	ctx := context.Background()

	got, err := m.MatchAccount(ctx, "checking", "alice")
	if err != nil {
		t.Fatalf("MatchAccount failed: %v", err)
	}
	if got == nil || got.ID != "a-checking" {
		t.Fatalf("got %+v, want alice's Checking", got)
	}

	got, err = m.MatchAccount(ctx, "checking", "carol")
	if err != nil {
		t.Fatalf("MatchAccount failed: %v", err)
	}
	if got != nil {
		t.Fatalf("got %+v for user with no accounts, want nil", got)
	}
}

func TestMatcherCachesPerUser(t *testing.T) {
	m, src := newFixture()
	ctx := context.Background()

	if _, err := m.MatchCategory(ctx, "groceries", "alice", domain.TypeExpense); err != nil {
		t.Fatal(err)
	}
	calls := src.listCalls
	if _, err := m.MatchCategory(ctx, "eating out", "alice", domain.TypeExpense); err != nil {
		t.Fatal(err)
	}
	if src.listCalls != calls {
		t.Errorf("second lookup reloaded candidates: %d calls, want %d", src.listCalls, calls)
	}

	// A different user misses the cache.
	if _, err := m.MatchCategory(ctx, "groceries", "bob", domain.TypeExpense); err != nil {
		t.Fatal(err)
	}
	if src.listCalls != calls+1 {
		t.Errorf("bob's lookup did not load his own candidates")
	}

	// Invalidation forces a reload.
	m.Invalidate("alice")
	if _, err := m.MatchCategory(ctx, "groceries", "alice", domain.TypeExpense); err != nil {
		t.Fatal(err)
	}
	if src.listCalls != calls+2 {
		t.Errorf("lookup after Invalidate served stale cache")
	}
}
