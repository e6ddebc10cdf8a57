package ingest

import (
	"context"

	"github.com/ddmitrov/fincore/internal/domain"
)

// DraftParser normalizes raw input into a transaction draft without touching
// persistent state. Implementations must be idempotent: the same input
// yields the same draft. The production implementation is GeminiParser;
// tests substitute canned drafts.
type DraftParser interface {
	// ParseVoice extracts a draft from an audio recording. Fails with
	// domain.ErrUnsupportedAudioFormat, domain.ErrTranscriptionFailed, or
	// domain.ErrNoTransactionFound.
	ParseVoice(ctx context.Context, audio []byte, language string) (*domain.TransactionDraft, error)

	// ParseReceipt extracts a draft from a receipt image. Fails with
	// domain.ErrUnsupportedImageFormat or domain.ErrNoTransactionFound.
	ParseReceipt(ctx context.Context, image []byte, language string) (*domain.TransactionDraft, error)

	// ParseText extracts a draft from free text. Fails with
	// domain.ErrNoTransactionFound when the text contains no recognizable
	// monetary statement.
	ParseText(ctx context.Context, text, language string) (*domain.TransactionDraft, error)

	// ParseTextWithImage combines both signals. When they disagree on the
	// amount, the text signal wins.
	ParseTextWithImage(ctx context.Context, text string, image []byte, mimeType, language string) (*domain.TransactionDraft, error)
}

// HintMatcher resolves draft hints to the user's own records.
type HintMatcher interface {
	MatchCategory(ctx context.Context, hint, userID string, t domain.TransactionType) (*domain.Category, error)
	MatchAccount(ctx context.Context, hint, userID string) (*domain.Account, error)
}

// Store is the slice of persistence the ingestion flow needs.
type Store interface {
	InsertTransaction(ctx context.Context, t *domain.Transaction) error
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)
	StartParsingRun(ctx context.Context, userID string, modality domain.Modality) (string, error)
	FinishParsingRun(ctx context.Context, runID string, rawOutput string, runErr error) error
}
