package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ddmitrov/fincore/internal/api/middleware"
	"github.com/ddmitrov/fincore/internal/authz"
	"github.com/ddmitrov/fincore/internal/domain"
	"github.com/ddmitrov/fincore/internal/match"
	"github.com/ddmitrov/fincore/internal/money"
	"github.com/ddmitrov/fincore/internal/store"
)

func newID() string { return uuid.NewString() }

// ownsAccount reports whether accountID exists and belongs to userID.
func ownsAccount(ctx context.Context, accounts store.AccountStore, userID, accountID string) (bool, error) {
	account, err := accounts.GetAccount(ctx, accountID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return account.UserID == userID, nil
}

// AccountsHandler handles account endpoints.
type AccountsHandler struct {
	store   store.AccountStore
	matcher *match.Matcher
	log     zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler. matcher may be nil;
// when set, its per-user cache is invalidated on writes.
func NewAccountsHandler(accStore store.AccountStore, matcher *match.Matcher, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{
		store:   accStore,
		matcher: matcher,
		log:     log,
	}
}

// List handles GET /api/accounts
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	accounts, err := h.store.ListAccounts(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list accounts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list accounts")
		return
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	middleware.WriteJSON(w, http.StatusOK, accounts)
}

// Create handles POST /api/accounts
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if !authz.CanCreate(userID) {
		middleware.WriteError(w, http.StatusForbidden, "Not permitted")
		return
	}

	var req struct {
		Name     string `json:"name"`
		Type     string `json:"type"`
		Currency string `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.Currency != "" {
		if _, err := money.New(0, req.Currency); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid currency")
			return
		}
	}

	account := &domain.Account{
		ID:        newID(),
		UserID:    userID,
		Name:      strings.TrimSpace(req.Name),
		Type:      req.Type,
		Currency:  strings.ToUpper(req.Currency),
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.InsertAccount(r.Context(), account); err != nil {
		h.log.Error().Err(err).Msg("Failed to insert account")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}
	if h.matcher != nil {
		h.matcher.Invalidate(userID)
	}
	middleware.WriteJSON(w, http.StatusCreated, account)
}

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	store   store.CategoryStore
	matcher *match.Matcher
	log     zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(catStore store.CategoryStore, matcher *match.Matcher, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{
		store:   catStore,
		matcher: matcher,
		log:     log,
	}
}

// List handles GET /api/categories. The optional type query parameter
// filters to income or expense categories.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	t := domain.TransactionType(r.URL.Query().Get("type"))
	if t != "" && !t.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid category type")
		return
	}

	categories, err := h.store.ListCategories(r.Context(), userID, t)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list categories")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	middleware.WriteJSON(w, http.StatusOK, categories)
}

// Create handles POST /api/categories
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if !authz.CanCreate(userID) {
		middleware.WriteError(w, http.StatusForbidden, "Not permitted")
		return
	}

	var req struct {
		Name string `json:"name"`
		Type string `json:"type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Name is required")
		return
	}
	catType := domain.TransactionType(req.Type)
	if !catType.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "Type must be income or expense")
		return
	}

	category := &domain.Category{
		ID:        newID(),
		UserID:    userID,
		Name:      strings.TrimSpace(req.Name),
		Type:      catType,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.InsertCategory(r.Context(), category); err != nil {
		h.log.Error().Err(err).Msg("Failed to insert category")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create category")
		return
	}
	if h.matcher != nil {
		h.matcher.Invalidate(userID)
	}
	middleware.WriteJSON(w, http.StatusCreated, category)
}

// GoalsHandler handles savings goal endpoints.
type GoalsHandler struct {
	store    store.GoalStore
	accounts store.AccountStore
	log      zerolog.Logger
}

// NewGoalsHandler creates a new goals handler.
func NewGoalsHandler(goalStore store.GoalStore, accStore store.AccountStore, log zerolog.Logger) *GoalsHandler {
	return &GoalsHandler{
		store:    goalStore,
		accounts: accStore,
		log:      log,
	}
}

// List handles GET /api/goals
func (h *GoalsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	goals, err := h.store.ListGoals(r.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list goals")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list goals")
		return
	}
	if goals == nil {
		goals = []domain.SavingsGoal{}
	}
	middleware.WriteJSON(w, http.StatusOK, goals)
}

// Get handles GET /api/goals/{id}
func (h *GoalsHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	userID := middleware.UserID(r.Context())

	goal, err := h.store.GetGoal(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Goal not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get goal")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get goal")
		return
	}
	if err := authz.Check("view", userID, goal); err != nil {
		middleware.WriteError(w, http.StatusForbidden, err.Error())
		return
	}
	middleware.WriteJSON(w, http.StatusOK, goal)
}

// Create handles POST /api/goals
func (h *GoalsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if !authz.CanCreate(userID) {
		middleware.WriteError(w, http.StatusForbidden, "Not permitted")
		return
	}

	var req struct {
		AccountID   string `json:"account_id"`
		Name        string `json:"name"`
		TargetMinor int64  `json:"target_minor"`
		Currency    string `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.AccountID == "" || strings.TrimSpace(req.Name) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "account_id and name are required")
		return
	}
	if req.TargetMinor <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "target_minor must be positive")
		return
	}
	target, err := money.New(req.TargetMinor, req.Currency)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid currency")
		return
	}
	owned, err := ownsAccount(r.Context(), h.accounts, userID, req.AccountID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to look up account")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to verify account")
		return
	}
	if !owned {
		middleware.WriteError(w, http.StatusBadRequest, "Unknown account")
		return
	}
	progress, _ := money.New(0, req.Currency)

	goal := &domain.SavingsGoal{
		ID:        newID(),
		UserID:    userID,
		AccountID: req.AccountID,
		Name:      strings.TrimSpace(req.Name),
		Target:    target,
		Progress:  progress,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.InsertGoal(r.Context(), goal); err != nil {
		h.log.Error().Err(err).Msg("Failed to insert goal")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create goal")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, goal)
}
