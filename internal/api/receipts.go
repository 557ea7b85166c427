package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/superset-studio/einvoice-vault/internal/receipts"
)

type receiptRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Amount      float64 `json:"amount" validate:"gt=0,lte=999999999"`
	Currency    string  `json:"currency" validate:"omitempty,len=3,alpha"`
	ReceiptDate string  `json:"receipt_date" validate:"required,datetime=2006-01-02"`
}

func (req receiptRequest) draft() receipts.Draft {
	return receipts.Draft{
		Title:    req.Title,
		Amount:   req.Amount,
		Currency: req.Currency,
		Date:     req.ReceiptDate,
	}
}

// decodeReceipt reads and validates a receipt body, writing the 400 itself.
func decodeReceipt(w http.ResponseWriter, r *http.Request) (receipts.Draft, bool) {
	var req receiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return receipts.Draft{}, false
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return receipts.Draft{}, false
	}
	return req.draft(), true
}

func receiptID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid receipt id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func isReceiptInputError(err error) bool {
	return errors.Is(err, receipts.ErrTitleRequired) ||
		errors.Is(err, receipts.ErrInvalidAmount) ||
		errors.Is(err, receipts.ErrInvalidCurrency) ||
		errors.Is(err, receipts.ErrInvalidDate)
}

// ListReceipts handles GET /api/v1/receipts
func (h *Handler) ListReceipts(w http.ResponseWriter, r *http.Request) {
	claims := GetUserInfo(r.Context())
	if claims == nil {
		unauthorized(w)
		return
	}

	list, err := h.receipts.List(r.Context(), claims.UserID)
	if err != nil {
		slog.Error("failed to list receipts", "error", err, "user_id", claims.UserID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// CreateReceipt handles POST /api/v1/receipts
func (h *Handler) CreateReceipt(w http.ResponseWriter, r *http.Request) {
	claims := GetUserInfo(r.Context())
	if claims == nil {
		unauthorized(w)
		return
	}

	draft, ok := decodeReceipt(w, r)
	if !ok {
		return
	}

	receipt, err := h.receipts.Create(r.Context(), claims.UserID, draft)
	if isReceiptInputError(err) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		slog.Error("failed to create receipt", "error", err, "user_id", claims.UserID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

// GetReceipt handles GET /api/v1/receipts/{id}
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	claims := GetUserInfo(r.Context())
	if claims == nil {
		unauthorized(w)
		return
	}

	id, ok := receiptID(w, r)
	if !ok {
		return
	}

	receipt, err := h.receipts.Get(r.Context(), claims.UserID, id)
	if errors.Is(err, receipts.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to get receipt", "error", err, "user_id", claims.UserID, "receipt_id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

// UpdateReceipt handles PUT /api/v1/receipts/{id}
func (h *Handler) UpdateReceipt(w http.ResponseWriter, r *http.Request) {
	claims := GetUserInfo(r.Context())
	if claims == nil {
		unauthorized(w)
		return
	}

	id, ok := receiptID(w, r)
	if !ok {
		return
	}

	draft, ok := decodeReceipt(w, r)
	if !ok {
		return
	}

	receipt, err := h.receipts.Update(r.Context(), claims.UserID, id, draft)
	switch {
	case isReceiptInputError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, receipts.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		slog.Error("failed to update receipt", "error", err, "user_id", claims.UserID, "receipt_id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

// DeleteReceipt handles DELETE /api/v1/receipts/{id}
func (h *Handler) DeleteReceipt(w http.ResponseWriter, r *http.Request) {
	claims := GetUserInfo(r.Context())
	if claims == nil {
		unauthorized(w)
		return
	}

	id, ok := receiptID(w, r)
	if !ok {
		return
	}

	err := h.receipts.Delete(r.Context(), claims.UserID, id)
	if errors.Is(err, receipts.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to delete receipt", "error", err, "user_id", claims.UserID, "receipt_id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReceiptSummary handles GET /api/v1/receipts/summary?month=YYYY-MM
// (current month when month is omitted).
func (h *Handler) ReceiptSummary(w http.ResponseWriter, r *http.Request) {
	claims := GetUserInfo(r.Context())
	if claims == nil {
		unauthorized(w)
		return
	}

	month, err := h.receipts.ParseMonth(r.URL.Query().Get("month"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := h.receipts.MonthlySummary(r.Context(), claims.UserID, month)
	if err != nil {
		slog.Error("failed to sum receipts", "error", err, "user_id", claims.UserID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
