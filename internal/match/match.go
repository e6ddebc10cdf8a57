// Package match resolves free-text hints from the parser to the acting
// user's existing category and account records. Matching never crosses user
// boundaries: candidates are loaded with the supplied user id and nothing
// else.
//
// Policy: exact case-insensitive name match first, then substring
// containment, then Levenshtein similarity with a minimum of 0.6. When no
// candidate clears the bar the matcher returns nil rather than fabricating
// a default.
package match

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	gocache "github.com/patrickmn/go-cache"

	"github.com/ddmitrov/fincore/internal/domain"
)

// minSimilarity is the confidence floor for fuzzy matches. Similarity is
// 1 - distance/max(len), computed on normalized names.
const minSimilarity = 0.6

// minSubstringLen stops two-letter hints from substring-matching half the
// taxonomy.
const minSubstringLen = 3

// CategorySource lists a user's categories of one type.
type CategorySource interface {
	ListCategories(ctx context.Context, userID string, t domain.TransactionType) ([]domain.Category, error)
}

// AccountSource lists a user's accounts.
type AccountSource interface {
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)
}

// Matcher performs read-only hint resolution. Candidate lists are cached
// briefly under user-scoped keys; a user's hints can never be served from
// another user's cache entry.
type Matcher struct {
	categories CategorySource
	accounts   AccountSource
	cache      *gocache.Cache
}

// New creates a Matcher over the given sources.
func New(categories CategorySource, accounts AccountSource) *Matcher {
	return &Matcher{
		categories: categories,
		accounts:   accounts,
		cache:      gocache.New(30*time.Second, time.Minute),
	}
}

// MatchCategory resolves hint to one of the user's categories of the given
// type, or nil when nothing clears the confidence floor. Never returns a
// category owned by a different user.
func (m *Matcher) MatchCategory(ctx context.Context, hint, userID string, t domain.TransactionType) (*domain.Category, error) {
	hint = domain.NormalizeName(hint)
	if hint == "" {
		return nil, nil
	}

	candidates, err := m.loadCategories(ctx, userID, t)
	if err != nil {
		return nil, fmt.Errorf("match category: %w", err)
	}

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = domain.NormalizeName(c.Name)
	}
	idx := bestMatch(hint, names)
	if idx < 0 {
		return nil, nil
	}
	c := candidates[idx]
	return &c, nil
}

// MatchAccount resolves hint to one of the user's accounts, with the same
// scoping and null-on-no-match discipline as MatchCategory.
func (m *Matcher) MatchAccount(ctx context.Context, hint, userID string) (*domain.Account, error) {
	hint = domain.NormalizeName(hint)
	if hint == "" {
		return nil, nil
	}

	candidates, err := m.loadAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("match account: %w", err)
	}

	names := make([]string, len(candidates))
	for i, a := range candidates {
		names[i] = domain.NormalizeName(a.Name)
	}
	idx := bestMatch(hint, names)
	if idx < 0 {
		return nil, nil
	}
	a := candidates[idx]
	return &a, nil
}

// Invalidate drops the user's cached candidate lists. Call after category or
// account writes.
func (m *Matcher) Invalidate(userID string) {
	m.cache.Delete(categoryKey(userID, domain.TypeExpense))
	m.cache.Delete(categoryKey(userID, domain.TypeIncome))
	m.cache.Delete(accountKey(userID))
}

func (m *Matcher) loadCategories(ctx context.Context, userID string, t domain.TransactionType) ([]domain.Category, error) {
	key := categoryKey(userID, t)
	if cached, ok := m.cache.Get(key); ok {
		return cached.([]domain.Category), nil
	}
	candidates, err := m.categories.ListCategories(ctx, userID, t)
	if err != nil {
		return nil, err
	}
	m.cache.Set(key, candidates, gocache.DefaultExpiration)
	return candidates, nil
}

func (m *Matcher) loadAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	key := accountKey(userID)
	if cached, ok := m.cache.Get(key); ok {
		return cached.([]domain.Account), nil
	}
	candidates, err := m.accounts.ListAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	m.cache.Set(key, candidates, gocache.DefaultExpiration)
	return candidates, nil
}

func categoryKey(userID string, t domain.TransactionType) string {
	return "categories:" + userID + ":" + string(t)
}

func accountKey(userID string) string {
	return "accounts:" + userID
}

// bestMatch returns the index of the best candidate for hint, or -1. Inputs
// are already normalized.
func bestMatch(hint string, names []string) int {
	// Pass 1: exact.
	for i, name := range names {
		if name == hint {
			return i
		}
	}

	// Pass 2: substring containment, preferring the shortest candidate so
	// "food" picks "food" over "food delivery".
	if len(hint) >= minSubstringLen {
		best := -1
		for i, name := range names {
			if len(name) < minSubstringLen {
				continue
			}
			if strings.Contains(name, hint) || strings.Contains(hint, name) {
				if best < 0 || len(name) < len(names[best]) {
					best = i
				}
			}
		}
		if best >= 0 {
			return best
		}
	}

	// Pass 3: Levenshtein similarity. Ties keep the first candidate, which
	// is stable because sources list in a deterministic order.
	best := -1
	bestScore := 0.0
	for i, name := range names {
		score := similarity(hint, name)
		if score >= minSimilarity && score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
