package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ddmitrov/fincore/internal/domain"
	"github.com/ddmitrov/fincore/internal/events"
	"github.com/ddmitrov/fincore/internal/money"
)

type mockParser struct {
	draft *domain.TransactionDraft
	err   error
}

func (m *mockParser) ParseVoice(ctx context.Context, audio []byte, language string) (*domain.TransactionDraft, error) {
	return m.draft, m.err
}

func (m *mockParser) ParseReceipt(ctx context.Context, image []byte, language string) (*domain.TransactionDraft, error) {
	return m.draft, m.err
}

func (m *mockParser) ParseText(ctx context.Context, text, language string) (*domain.TransactionDraft, error) {
	return m.draft, m.err
}

func (m *mockParser) ParseTextWithImage(ctx context.Context, text string, image []byte, mimeType, language string) (*domain.TransactionDraft, error) {
	return m.draft, m.err
}

type mockMatcher struct {
	category *domain.Category
	account  *domain.Account
}

func (m *mockMatcher) MatchCategory(ctx context.Context, hint, userID string, t domain.TransactionType) (*domain.Category, error) {
	return m.category, nil
}

func (m *mockMatcher) MatchAccount(ctx context.Context, hint, userID string) (*domain.Account, error) {
	return m.account, nil
}

type mockStore struct {
	accounts   []domain.Account
	inserted   []*domain.Transaction
	runs       int
	finishes   []error
	rawOutputs []string
	insertErr  error
}

func (m *mockStore) InsertTransaction(ctx context.Context, t *domain.Transaction) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, t)
	return nil
}

func (m *mockStore) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	return m.accounts, nil
}

func (m *mockStore) StartParsingRun(ctx context.Context, userID string, modality domain.Modality) (string, error) {
	m.runs++
	return "run-1", nil
}

func (m *mockStore) FinishParsingRun(ctx context.Context, runID string, rawOutput string, runErr error) error {
	m.finishes = append(m.finishes, runErr)
	m.rawOutputs = append(m.rawOutputs, rawOutput)
	return nil
}

type mockPublisher struct {
	published []events.Event
	err       error
}

func (m *mockPublisher) Publish(ctx context.Context, e events.Event) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, e)
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func coffeeDraft() *domain.TransactionDraft {
	return &domain.TransactionDraft{
		Amount:       money.MustNew(2550, "USD"),
		Type:         domain.TypeExpense,
		OccurredAt:   time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		CategoryHint: "coffee",
		AccountHint:  "checking",
		Description:  "Coffee at Blue Bottle",
		Source:       domain.ModalityText,
	}
}

func newTestIngestor(parser DraftParser, matcher HintMatcher, store *mockStore, pub *mockPublisher) *Ingestor {
	return NewIngestor(parser, matcher, store, pub, nil, zerolog.Nop())
}

func TestIngestTextCommitsAndPublishes(t *testing.T) {
	category := &domain.Category{ID: "cat-1", UserID: "u1", Name: "coffee", Type: domain.TypeExpense}
	account := &domain.Account{ID: "acc-1", UserID: "u1", Name: "checking"}
	store := &mockStore{}
	pub := &mockPublisher{}

	in := newTestIngestor(
		&mockParser{draft: coffeeDraft()},
		&mockMatcher{category: category, account: account},
		store, pub,
	)

	tx, err := in.IngestText(context.Background(), "u1", "Spent 25.50 on coffee", "en")
	if err != nil {
		t.Fatalf("IngestText failed: %v", err)
	}
	if tx.UserID != "u1" || tx.AccountID != "acc-1" || tx.CategoryID != "cat-1" {
		t.Errorf("transaction wiring = user %q account %q category %q", tx.UserID, tx.AccountID, tx.CategoryID)
	}
	if got := tx.Amount.Minor(); got != 2550 {
		t.Errorf("amount minor = %d, want 2550", got)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d transactions, want 1", len(store.inserted))
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.published))
	}
	created, ok := pub.published[0].(events.TransactionCreated)
	if !ok {
		t.Fatalf("published event is %T, want TransactionCreated", pub.published[0])
	}
	if created.Transaction.ID != tx.ID {
		t.Errorf("event transaction ID = %q, want %q", created.Transaction.ID, tx.ID)
	}
	if store.runs != 1 {
		t.Errorf("parsing runs = %d, want 1", store.runs)
	}
	if len(store.finishes) != 1 || store.finishes[0] != nil {
		t.Errorf("run finished with %v, want nil", store.finishes)
	}
}

func TestIngestUncategorizedWhenNoMatch(t *testing.T) {
	account := &domain.Account{ID: "acc-1", UserID: "u1"}
	store := &mockStore{}
	pub := &mockPublisher{}

	in := newTestIngestor(
		&mockParser{draft: coffeeDraft()},
		&mockMatcher{category: nil, account: account},
		store, pub,
	)

	tx, err := in.IngestText(context.Background(), "u1", "Spent 25.50 on something odd", "en")
	if err != nil {
		t.Fatalf("IngestText failed: %v", err)
	}
	if tx.CategoryID != "" {
		t.Errorf("category ID = %q, want empty (uncategorized)", tx.CategoryID)
	}
}

func TestIngestFallsBackToFirstAccount(t *testing.T) {
	store := &mockStore{accounts: []domain.Account{
		{ID: "acc-first", UserID: "u1"},
		{ID: "acc-second", UserID: "u1"},
	}}
	pub := &mockPublisher{}

	in := newTestIngestor(
		&mockParser{draft: coffeeDraft()},
		&mockMatcher{},
		store, pub,
	)

	tx, err := in.IngestText(context.Background(), "u1", "Spent 25.50 on coffee", "en")
	if err != nil {
		t.Fatalf("IngestText failed: %v", err)
	}
	if tx.AccountID != "acc-first" {
		t.Errorf("account ID = %q, want fallback acc-first", tx.AccountID)
	}
}

func TestIngestFailsWithoutAnyAccount(t *testing.T) {
	store := &mockStore{}
	pub := &mockPublisher{}

	in := newTestIngestor(
		&mockParser{draft: coffeeDraft()},
		&mockMatcher{},
		store, pub,
	)

	_, err := in.IngestText(context.Background(), "u1", "Spent 25.50 on coffee", "en")
	if !errors.Is(err, domain.ErrNoAccount) {
		t.Fatalf("error = %v, want ErrNoAccount", err)
	}
	if len(pub.published) != 0 {
		t.Errorf("published %d events on failed ingest, want 0", len(pub.published))
	}
}

func TestIngestParseFailureRecordsRun(t *testing.T) {
	store := &mockStore{}
	pub := &mockPublisher{}

	in := newTestIngestor(
		&mockParser{err: domain.ErrNoTransactionFound},
		&mockMatcher{},
		store, pub,
	)

	_, err := in.IngestText(context.Background(), "u1", "hello there", "en")
	if !errors.Is(err, domain.ErrNoTransactionFound) {
		t.Fatalf("error = %v, want ErrNoTransactionFound", err)
	}
	if len(store.inserted) != 0 {
		t.Errorf("inserted %d transactions on parse failure, want 0", len(store.inserted))
	}
	if len(store.finishes) != 1 || !errors.Is(store.finishes[0], domain.ErrNoTransactionFound) {
		t.Errorf("run finish error = %v, want ErrNoTransactionFound", store.finishes)
	}
	if len(pub.published) != 0 {
		t.Errorf("published %d events on parse failure, want 0", len(pub.published))
	}
}

func TestIngestPublishFailureDoesNotFailIngest(t *testing.T) {
	account := &domain.Account{ID: "acc-1", UserID: "u1"}
	store := &mockStore{}
	pub := &mockPublisher{err: errors.New("broker down")}

	in := newTestIngestor(
		&mockParser{draft: coffeeDraft()},
		&mockMatcher{account: account},
		store, pub,
	)

	tx, err := in.IngestText(context.Background(), "u1", "Spent 25.50 on coffee", "en")
	if err != nil {
		t.Fatalf("IngestText failed: %v", err)
	}
	if tx == nil || len(store.inserted) != 1 {
		t.Fatalf("transaction not committed despite publish failure")
	}
}

func TestIngestVoiceRejectsUnknownAudio(t *testing.T) {
	store := &mockStore{}
	pub := &mockPublisher{}

	parser := NewGeminiParser("", "USD")
	in := newTestIngestor(parser, &mockMatcher{}, store, pub)

	_, err := in.IngestVoice(context.Background(), "u1", []byte("definitely not audio"), "en")
	if !errors.Is(err, domain.ErrUnsupportedAudioFormat) {
		t.Fatalf("error = %v, want ErrUnsupportedAudioFormat", err)
	}
	if len(store.inserted) != 0 {
		t.Errorf("inserted %d transactions, want 0", len(store.inserted))
	}
}

func TestIngestReceiptRejectsUnknownImage(t *testing.T) {
	store := &mockStore{}
	pub := &mockPublisher{}

	parser := NewGeminiParser("", "USD")
	in := newTestIngestor(parser, &mockMatcher{}, store, pub)

	_, err := in.IngestReceipt(context.Background(), "u1", []byte("plain text"), "en")
	if !errors.Is(err, domain.ErrUnsupportedImageFormat) {
		t.Fatalf("error = %v, want ErrUnsupportedImageFormat", err)
	}
}

func TestIngestRunRetainsModelOutput(t *testing.T) {
	account := &domain.Account{ID: "acc-1", UserID: "u1"}
	store := &mockStore{}
	pub := &mockPublisher{}

	draft := coffeeDraft()
	draft.RawModelOutput = `{"found": true, "amount": "25.50", "currency": "USD"}`

	in := newTestIngestor(
		&mockParser{draft: draft},
		&mockMatcher{account: account},
		store, pub,
	)

	if _, err := in.IngestText(context.Background(), "u1", "Spent 25.50 on coffee", "en"); err != nil {
		t.Fatalf("IngestText failed: %v", err)
	}
	if len(store.rawOutputs) != 1 || store.rawOutputs[0] != draft.RawModelOutput {
		t.Errorf("run raw output = %q, want the verbatim model response", store.rawOutputs)
	}
}
