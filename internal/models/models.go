package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type CreateUserInput struct {
	Email        string
	PasswordHash string
}

// EInvoiceAccount links a user to their e-invoice portal login.
// EncryptedPassword holds a Fernet token and is never serialized.
type EInvoiceAccount struct {
	ID                uuid.UUID `json:"id" db:"id"`
	UserID            uuid.UUID `json:"user_id" db:"user_id"`
	Username          string    `json:"einvoice_username" db:"einvoice_username"`
	EncryptedPassword string    `json:"-" db:"encrypted_password"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

// EInvoiceCredentials is a decrypted portal login.
type EInvoiceCredentials struct {
	Username string `json:"einvoice_username"`
	Password string `json:"einvoice_password"`
}

// DefaultCurrency applies when a receipt is saved without one.
const DefaultCurrency = "TWD"

// Receipt is a manually entered expense. ReceiptDate carries a calendar day only.
type Receipt struct {
	ID          uuid.UUID `json:"id" db:"id"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Title       string    `json:"title" db:"title"`
	Amount      float64   `json:"amount" db:"amount"`
	Currency    string    `json:"currency" db:"currency"`
	ReceiptDate time.Time `json:"receipt_date" db:"receipt_date"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

type ReceiptInput struct {
	Title       string
	Amount      float64
	Currency    string
	ReceiptDate time.Time
}

// CurrencyTotal sums receipts of one currency.
type CurrencyTotal struct {
	Currency string  `json:"currency" db:"currency"`
	Total    float64 `json:"total" db:"total"`
	Count    int     `json:"count" db:"count"`
}

// MonthlySummary is the per-currency spend for one calendar month.
type MonthlySummary struct {
	Month  string          `json:"month"` // YYYY-MM
	Totals []CurrencyTotal `json:"totals"`
}
