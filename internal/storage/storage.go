package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/superset-studio/einvoice-vault/internal/models"
)

type UserStorage interface {
	CreateUser(ctx context.Context, input *models.CreateUserInput) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// AccountStorage persists e-invoice account links. Passwords arrive already encrypted.
type AccountStorage interface {
	UpsertEInvoiceAccount(ctx context.Context, userID uuid.UUID, username, encryptedPassword string) (*models.EInvoiceAccount, error)
	GetEInvoiceAccount(ctx context.Context, userID uuid.UUID) (*models.EInvoiceAccount, error)
	DeleteEInvoiceAccount(ctx context.Context, userID uuid.UUID) error
}

// ReceiptStorage persists receipts. Every call is scoped to the owning user.
type ReceiptStorage interface {
	CreateReceipt(ctx context.Context, userID uuid.UUID, input *models.ReceiptInput) (*models.Receipt, error)
	ListReceipts(ctx context.Context, userID uuid.UUID) ([]*models.Receipt, error)
	GetReceipt(ctx context.Context, userID, id uuid.UUID) (*models.Receipt, error)
	UpdateReceipt(ctx context.Context, userID, id uuid.UUID, input *models.ReceiptInput) (*models.Receipt, error)
	DeleteReceipt(ctx context.Context, userID, id uuid.UUID) error
	// SumReceipts totals receipts dated in [from, to) per currency.
	SumReceipts(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.CurrencyTotal, error)
}

type Storage interface {
	UserStorage
	AccountStorage
	ReceiptStorage
	Ping(ctx context.Context) error
	Close() error
}
