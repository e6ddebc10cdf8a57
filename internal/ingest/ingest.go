// Package ingest turns raw user input (voice notes, receipt images, free
// text) into persisted transactions. Parsing and committing are separate
// phases: the parser produces a transient draft, and the ingestor resolves
// the draft's hints against the user's own categories and accounts before
// inserting the transaction and publishing its creation event.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ddmitrov/fincore/internal/domain"
	"github.com/ddmitrov/fincore/internal/events"
)

// BlobStore archives the raw media of a parse for auditing. Optional:
// a nil store disables archiving.
type BlobStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// Ingestor drives the parse-then-commit flow for all four input modalities.
type Ingestor struct {
	parser  DraftParser
	matcher HintMatcher
	store   Store
	events  events.Publisher
	blobs   BlobStore
	logger  zerolog.Logger
}

// NewIngestor wires the ingestion flow. blobs may be nil.
func NewIngestor(parser DraftParser, matcher HintMatcher, store Store, pub events.Publisher, blobs BlobStore, logger zerolog.Logger) *Ingestor {
	return &Ingestor{
		parser:  parser,
		matcher: matcher,
		store:   store,
		events:  pub,
		blobs:   blobs,
		logger:  logger.With().Str("component", "ingest").Logger(),
	}
}

// IngestVoice parses a voice recording and commits the resulting
// transaction for userID.
func (in *Ingestor) IngestVoice(ctx context.Context, userID string, audio []byte, language string) (*domain.Transaction, error) {
	in.archive(ctx, userID, domain.ModalityVoice, detectAudioMIME(audio), audio)
	return in.run(ctx, userID, domain.ModalityVoice, func(ctx context.Context) (*domain.TransactionDraft, error) {
		return in.parser.ParseVoice(ctx, audio, language)
	})
}

// IngestReceipt parses a receipt image and commits the resulting
// transaction for userID.
func (in *Ingestor) IngestReceipt(ctx context.Context, userID string, image []byte, language string) (*domain.Transaction, error) {
	in.archive(ctx, userID, domain.ModalityReceipt, detectImageMIME(image), image)
	return in.run(ctx, userID, domain.ModalityReceipt, func(ctx context.Context) (*domain.TransactionDraft, error) {
		return in.parser.ParseReceipt(ctx, image, language)
	})
}

// IngestText parses a free-text message and commits the resulting
// transaction for userID.
func (in *Ingestor) IngestText(ctx context.Context, userID, text, language string) (*domain.Transaction, error) {
	return in.run(ctx, userID, domain.ModalityText, func(ctx context.Context) (*domain.TransactionDraft, error) {
		return in.parser.ParseText(ctx, text, language)
	})
}

// IngestTextWithImage parses a text message with a supporting image and
// commits the resulting transaction for userID. The text signal takes
// precedence when the two disagree.
func (in *Ingestor) IngestTextWithImage(ctx context.Context, userID, text string, image []byte, mimeType, language string) (*domain.Transaction, error) {
	in.archive(ctx, userID, domain.ModalityTextImage, detectImageMIME(image), image)
	return in.run(ctx, userID, domain.ModalityTextImage, func(ctx context.Context) (*domain.TransactionDraft, error) {
		return in.parser.ParseTextWithImage(ctx, text, image, mimeType, language)
	})
}

type parseFunc func(ctx context.Context) (*domain.TransactionDraft, error)

// run records a parsing run around the parse call, then commits the draft.
// The run row survives even when parsing fails, which is what makes failed
// uploads debuggable after the fact.
func (in *Ingestor) run(ctx context.Context, userID string, modality domain.Modality, parse parseFunc) (*domain.Transaction, error) {
	runID, err := in.store.StartParsingRun(ctx, userID, modality)
	if err != nil {
		return nil, fmt.Errorf("ingest: start parsing run: %w", err)
	}

	draft, err := parse(ctx)
	if err != nil {
		in.finishRun(ctx, runID, "", err)
		return nil, err
	}

	tx, err := in.commit(ctx, userID, draft)
	if err != nil {
		in.finishRun(ctx, runID, rawRunOutput(draft), err)
		return nil, err
	}

	in.finishRun(ctx, runID, rawRunOutput(draft), nil)

	if err := in.events.Publish(ctx, events.TransactionCreated{Transaction: *tx}); err != nil {
		// The transaction is already committed; a lost event must not
		// surface as an ingestion failure.
		in.logger.Error().Err(err).Str("transaction_id", tx.ID).Msg("publish transaction.created failed")
	}

	return tx, nil
}

// commit resolves the draft's hints and inserts the transaction. A hint
// that matches nothing leaves the transaction uncategorized rather than
// failing the ingest; an unresolved account falls back to the user's first
// account.
func (in *Ingestor) commit(ctx context.Context, userID string, draft *domain.TransactionDraft) (*domain.Transaction, error) {
	category, err := in.matcher.MatchCategory(ctx, draft.CategoryHint, userID, draft.Type)
	if err != nil {
		return nil, fmt.Errorf("ingest: match category: %w", err)
	}

	account, err := in.matcher.MatchAccount(ctx, draft.AccountHint, userID)
	if err != nil {
		return nil, fmt.Errorf("ingest: match account: %w", err)
	}
	if account == nil {
		accounts, err := in.store.ListAccounts(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("ingest: list accounts: %w", err)
		}
		if len(accounts) == 0 {
			return nil, domain.ErrNoAccount
		}
		account = &accounts[0]
	}

	tx := &domain.Transaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		AccountID:   account.ID,
		Amount:      draft.Amount,
		Type:        draft.Type,
		OccurredAt:  draft.OccurredAt,
		Description: draft.Description,
		CreatedAt:   time.Now().UTC(),
	}
	if category != nil {
		tx.CategoryID = category.ID
	}

	if err := in.store.InsertTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("ingest: insert transaction: %w", err)
	}
	return tx, nil
}

func (in *Ingestor) finishRun(ctx context.Context, runID, rawOutput string, runErr error) {
	if err := in.store.FinishParsingRun(ctx, runID, rawOutput, runErr); err != nil {
		in.logger.Error().Err(err).Str("run_id", runID).Msg("finish parsing run failed")
	}
}

// archive stores the raw media alongside the parse for later inspection.
// Failures are logged, never fatal.
func (in *Ingestor) archive(ctx context.Context, userID string, modality domain.Modality, contentType string, data []byte) {
	if in.blobs == nil || len(data) == 0 || contentType == "" {
		return
	}
	name := fmt.Sprintf("uploads/%s/%s/%s-%s", userID, time.Now().UTC().Format("2006/01/02"), uuid.NewString(), modality)
	uri, err := in.blobs.Put(ctx, name, contentType, data)
	if err != nil {
		in.logger.Warn().Err(err).Str("user_id", userID).Msg("archive upload failed")
		return
	}
	in.logger.Debug().Str("uri", uri).Msg("archived upload")
}

// rawRunOutput prefers the verbatim model response for the run record;
// parsers that carry none fall back to the marshaled draft.
func rawRunOutput(draft *domain.TransactionDraft) string {
	if draft.RawModelOutput != "" {
		return draft.RawModelOutput
	}
	b, err := json.Marshal(draft)
	if err != nil {
		return ""
	}
	return string(b)
}
