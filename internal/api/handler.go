package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/superset-studio/einvoice-vault/internal/auth"
	"github.com/superset-studio/einvoice-vault/internal/models"
	"github.com/superset-studio/einvoice-vault/internal/receipts"
	"github.com/superset-studio/einvoice-vault/internal/storage"
	"github.com/superset-studio/einvoice-vault/internal/vault"
)

// Handler provides the REST API used by the e-invoice web client.
type Handler struct {
	users    storage.UserStorage
	vault    *vault.Service
	receipts *receipts.Service
	jwt      *auth.JWTService
	hasher   *auth.PasswordHasher
}

// NewHandler creates a new API handler.
func NewHandler(users storage.UserStorage, vaultSvc *vault.Service, receiptSvc *receipts.Service, jwtSvc *auth.JWTService, hasher *auth.PasswordHasher) *Handler {
	return &Handler{
		users:    users,
		vault:    vaultSvc,
		receipts: receiptSvc,
		jwt:      jwtSvc,
		hasher:   hasher,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

// --- Register / Login ---

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register handles POST /api/v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validate.Struct(req); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	user, err := h.users.CreateUser(r.Context(), &models.CreateUserInput{
		Email:        req.Email,
		PasswordHash: hash,
	})
	if errors.Is(err, storage.ErrEmailTaken) {
		http.Error(w, "email already registered", http.StatusConflict)
		return
	}
	if err != nil {
		slog.Error("failed to create user", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.Info("user registered", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

// Login handles POST /api/v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validate.Struct(req); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		slog.Error("failed to get user", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if user == nil || !user.IsActive {
		h.hasher.CompareNoUser(req.Password)
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := h.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

// --- Me ---

// Me handles GET /api/v1/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := GetUserInfo(r.Context())
	if claims == nil {
		unauthorized(w)
		return
	}

	user, err := h.users.GetUserByID(r.Context(), claims.UserID)
	if errors.Is(err, storage.ErrUserNotFound) {
		unauthorized(w)
		return
	}
	if err != nil {
		slog.Error("failed to get user", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,password"`
}

// ChangePassword handles PUT /api/v1/me/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := GetUserInfo(r.Context())
	if claims == nil {
		unauthorized(w)
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validate.Struct(req); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	user, err := h.users.GetUserByID(r.Context(), claims.UserID)
	if errors.Is(err, storage.ErrUserNotFound) {
		unauthorized(w)
		return
	}
	if err != nil {
		slog.Error("failed to get user", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := h.hasher.Compare(user.PasswordHash, req.CurrentPassword); err != nil {
		http.Error(w, "current password is incorrect", http.StatusBadRequest)
		return
	}

	newHash, err := h.hasher.Hash(req.NewPassword)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if err := h.users.UpdateUserPassword(r.Context(), claims.UserID, newHash); err != nil {
		slog.Error("failed to update password", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- E-invoice account ---

type linkEInvoiceRequest struct {
	Username string `json:"einvoice_username" validate:"required,max=100"`
	Password string `json:"einvoice_password" validate:"required,max=256"`
}

type einvoiceStatusResponse struct {
	Linked   bool       `json:"linked"`
	Username string     `json:"einvoice_username,omitempty"`
	LinkedAt *time.Time `json:"linked_at,omitempty"`
}

func statusFor(account *models.EInvoiceAccount) einvoiceStatusResponse {
	linkedAt := account.UpdatedAt
	return einvoiceStatusResponse{
		Linked:   true,
		Username: account.Username,
		LinkedAt: &linkedAt,
	}
}

// LinkEInvoice handles PUT /api/v1/einvoice
func (h *Handler) LinkEInvoice(w http.ResponseWriter, r *http.Request) {
	claims := GetUserInfo(r.Context())
	if claims == nil {
		unauthorized(w)
		return
	}

	var req linkEInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validate.Struct(req); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	account, err := h.vault.Link(r.Context(), claims.UserID, req.Username, req.Password)
	if errors.Is(err, vault.ErrUsernameRequired) || errors.Is(err, vault.ErrPasswordRequired) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("failed to link e-invoice account", "error", err, "user_id", claims.UserID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.Info("e-invoice account linked", "user_id", claims.UserID, "account_id", account.ID)
	writeJSON(w, http.StatusOK, statusFor(account))
}

// EInvoiceStatus handles GET /api/v1/einvoice
func (h *Handler) EInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	claims := GetUserInfo(r.Context())
	if claims == nil {
		unauthorized(w)
		return
	}

	account, err := h.vault.Account(r.Context(), claims.UserID)
	if errors.Is(err, vault.ErrNotLinked) {
		writeJSON(w, http.StatusOK, einvoiceStatusResponse{Linked: false})
		return
	}
	if err != nil {
		slog.Error("failed to get e-invoice account", "error", err, "user_id", claims.UserID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, statusFor(account))
}

// EInvoiceCredentials handles GET /api/v1/einvoice/credentials
func (h *Handler) EInvoiceCredentials(w http.ResponseWriter, r *http.Request) {
	claims := GetUserInfo(r.Context())
	if claims == nil {
		unauthorized(w)
		return
	}

	creds, err := h.vault.Credentials(r.Context(), claims.UserID)
	switch {
	case errors.Is(err, vault.ErrNotLinked):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, vault.ErrCredentialsUnreadable):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		slog.Error("failed to read e-invoice credentials", "error", err, "user_id", claims.UserID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, creds)
}

// UnlinkEInvoice handles DELETE /api/v1/einvoice
func (h *Handler) UnlinkEInvoice(w http.ResponseWriter, r *http.Request) {
	claims := GetUserInfo(r.Context())
	if claims == nil {
		unauthorized(w)
		return
	}

	err := h.vault.Unlink(r.Context(), claims.UserID)
	if errors.Is(err, vault.ErrNotLinked) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to unlink e-invoice account", "error", err, "user_id", claims.UserID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	slog.Info("e-invoice account unlinked", "user_id", claims.UserID)
	w.WriteHeader(http.StatusNoContent)
}
