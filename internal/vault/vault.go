package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/superset-studio/einvoice-vault/internal/models"
	"github.com/superset-studio/einvoice-vault/internal/secrets"
	"github.com/superset-studio/einvoice-vault/internal/storage"
)

var (
	ErrNotLinked             = errors.New("e-invoice account not linked")
	ErrUsernameRequired      = errors.New("einvoice_username is required")
	ErrPasswordRequired      = errors.New("einvoice_password is required")
	ErrCredentialsUnreadable = errors.New("stored e-invoice password cannot be decrypted, relink the account")
)

// Service keeps users' e-invoice portal logins, storing passwords only as tokens.
type Service struct {
	accounts storage.AccountStorage
	cipher   secrets.PasswordCipher
}

// NewService creates a new Service.
func NewService(accounts storage.AccountStorage, cipher secrets.PasswordCipher) *Service {
	return &Service{
		accounts: accounts,
		cipher:   cipher,
	}
}

// Link encrypts password and stores it for the user, replacing any previous link.
func (s *Service) Link(ctx context.Context, userID uuid.UUID, username, password string) (*models.EInvoiceAccount, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	token, err := s.cipher.EncryptPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt e-invoice password: %w", err)
	}

	account, err := s.accounts.UpsertEInvoiceAccount(ctx, userID, username, token.String())
	if err != nil {
		return nil, fmt.Errorf("failed to store e-invoice account: %w", err)
	}

	return account, nil
}

// Account returns the user's link without decrypting anything.
func (s *Service) Account(ctx context.Context, userID uuid.UUID) (*models.EInvoiceAccount, error) {
	account, err := s.accounts.GetEInvoiceAccount(ctx, userID)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return nil, ErrNotLinked
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up e-invoice account: %w", err)
	}
	return account, nil
}

// Credentials returns the user's decrypted portal login.
func (s *Service) Credentials(ctx context.Context, userID uuid.UUID) (*models.EInvoiceCredentials, error) {
	account, err := s.Account(ctx, userID)
	if err != nil {
		return nil, err
	}

	password, err := s.cipher.DecryptPassword(secrets.ParseToken(account.EncryptedPassword))
	if errors.Is(err, secrets.ErrInvalidToken) {
		slog.Warn("stored e-invoice password failed verification", "user_id", userID, "account_id", account.ID)
		return nil, ErrCredentialsUnreadable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt e-invoice password: %w", err)
	}

	return &models.EInvoiceCredentials{
		Username: account.Username,
		Password: password,
	}, nil
}

// Unlink removes the user's e-invoice account.
func (s *Service) Unlink(ctx context.Context, userID uuid.UUID) error {
	err := s.accounts.DeleteEInvoiceAccount(ctx, userID)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return ErrNotLinked
	}
	if err != nil {
		return fmt.Errorf("failed to delete e-invoice account: %w", err)
	}
	return nil
}
