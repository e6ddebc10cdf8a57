package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ddmitrov/fincore/internal/api/middleware"
	"github.com/ddmitrov/fincore/internal/authz"
	"github.com/ddmitrov/fincore/internal/domain"
	"github.com/ddmitrov/fincore/internal/events"
	"github.com/ddmitrov/fincore/internal/money"
	"github.com/ddmitrov/fincore/internal/store"
)

// TransactionsHandler handles transaction CRUD.
type TransactionsHandler struct {
	store    store.TransactionStore
	accounts store.AccountStore
	events   events.Publisher
	log      zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(txStore store.TransactionStore, accStore store.AccountStore, pub events.Publisher, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		store:    txStore,
		accounts: accStore,
		events:   pub,
		log:      log,
	}
}

type transactionRequest struct {
	AccountID   string `json:"account_id"`
	CategoryID  string `json:"category_id"`
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`
	Type        string `json:"type"`
	OccurredAt  string `json:"occurred_at"`
	Description string `json:"description"`
}

// List handles GET /api/transactions
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	transactions, err := h.store.ListTransactions(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}
	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}

// Get handles GET /api/transactions/{id}
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	userID := middleware.UserID(r.Context())

	tx, err := h.load(w, r, id)
	if tx == nil {
		return
	}
	if err = authz.Check("view", userID, tx); err != nil {
		middleware.WriteError(w, http.StatusForbidden, err.Error())
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// Create handles POST /api/transactions
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if !authz.CanCreate(userID) {
		middleware.WriteError(w, http.StatusForbidden, "Not permitted")
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.fromRequest(&req, userID)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.checkAccount(w, r, userID, tx.AccountID) {
		return
	}

	if err := h.store.InsertTransaction(r.Context(), tx); err != nil {
		h.log.Error().Err(err).Msg("Failed to insert transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create transaction")
		return
	}

	// Manual creates feed goal evaluation the same way ingested ones do.
	// The insert is already committed; a lost event is logged, not fatal.
	if err := h.events.Publish(r.Context(), events.TransactionCreated{Transaction: *tx}); err != nil {
		h.log.Error().Err(err).Str("transaction_id", tx.ID).Msg("publish transaction.created failed")
	}

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// Update handles PUT /api/transactions/{id}
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	userID := middleware.UserID(r.Context())

	existing, err := h.load(w, r, id)
	if existing == nil {
		return
	}
	if err = authz.Check("update", userID, existing); err != nil {
		middleware.WriteError(w, http.StatusForbidden, err.Error())
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.fromRequest(&req, userID)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !h.checkAccount(w, r, userID, updated.AccountID) {
		return
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt

	if err := h.store.UpdateTransaction(r.Context(), updated); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.log.Error().Err(err).Msg("Failed to update transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	userID := middleware.UserID(r.Context())

	existing, err := h.load(w, r, id)
	if existing == nil {
		return
	}
	if err = authz.Check("delete", userID, existing); err != nil {
		middleware.WriteError(w, http.StatusForbidden, err.Error())
		return
	}

	if err := h.store.DeleteTransaction(r.Context(), id); err != nil {
		h.log.Error().Err(err).Msg("Failed to delete transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to delete transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusNoContent, nil)
}

func (h *TransactionsHandler) load(w http.ResponseWriter, r *http.Request, id string) (*domain.Transaction, error) {
	tx, err := h.store.GetTransaction(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		return nil, err
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get transaction")
		return nil, err
	}
	return tx, nil
}

// checkAccount verifies the referenced account exists and belongs to
// userID, writing the error response itself when it does not. A foreign
// account ID gets the same response as a nonexistent one.
func (h *TransactionsHandler) checkAccount(w http.ResponseWriter, r *http.Request, userID, accountID string) bool {
	owned, err := ownsAccount(r.Context(), h.accounts, userID, accountID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to look up account")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to verify account")
		return false
	}
	if !owned {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown account")
		return false
	}
	return true
}

func (h *TransactionsHandler) fromRequest(req *transactionRequest, userID string) (*domain.Transaction, error) {
	if req.AmountMinor <= 0 {
		return nil, errors.New("amount_minor must be positive")
	}
	amount, err := money.New(req.AmountMinor, req.Currency)
	if err != nil {
		return nil, err
	}
	txType := domain.TransactionType(req.Type)
	if !txType.Valid() {
		return nil, domain.ErrInvalidTransactionType
	}
	occurredAt, err := time.Parse("2006-01-02", req.OccurredAt)
	if err != nil {
		return nil, errors.New("occurred_at must be YYYY-MM-DD")
	}
	if req.AccountID == "" {
		return nil, errors.New("account_id is required")
	}

	return &domain.Transaction{
		ID:          newID(),
		UserID:      userID,
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Amount:      amount,
		Type:        txType,
		OccurredAt:  occurredAt,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
