package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ddmitrov/fincore/internal/api/middleware"
	"github.com/ddmitrov/fincore/internal/auth"
	"github.com/ddmitrov/fincore/internal/domain"
	"github.com/ddmitrov/fincore/internal/store"
)

// AuthHandler handles registration and login.
type AuthHandler struct {
	users store.UserStore
	auth  *auth.Service
	log   zerolog.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(users store.UserStore, authService *auth.Service, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		users: users,
		auth:  authService,
		log:   log,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Username and password are required")
		return
	}
	if len(req.Password) < 8 {
		middleware.WriteError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	ctx := r.Context()

	if _, err := h.users.GetUserByUsername(ctx, req.Username); err == nil {
		middleware.WriteError(w, http.StatusConflict, "Username already taken")
		return
	} else if !errors.Is(err, domain.ErrNotFound) {
		h.log.Error().Err(err).Msg("Failed to check username")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	hash, err := h.auth.HashPassword(req.Password)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to hash password")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.users.CreateUser(ctx, user); err != nil {
		h.log.Error().Err(err).Msg("Failed to create user")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	token, err := h.auth.GenerateToken(user.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to generate token")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.users.GetUserByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		// Same response for unknown user and bad password.
		middleware.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err := h.auth.CompareHashAndPassword(user.PasswordHash, req.Password); err != nil {
		middleware.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.auth.GenerateToken(user.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to generate token")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":  user,
		"token": token,
	})
}
