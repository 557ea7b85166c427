package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/superset-studio/einvoice-vault/internal/models"
)

var ErrAccountNotFound = errors.New("e-invoice account not linked")

// UpsertEInvoiceAccount links or relinks the user's e-invoice account.
func (s *PostgresStorage) UpsertEInvoiceAccount(ctx context.Context, userID uuid.UUID, username, encryptedPassword string) (*models.EInvoiceAccount, error) {
	query := `
		INSERT INTO einvoice_accounts (user_id, einvoice_username, encrypted_password)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET einvoice_username = EXCLUDED.einvoice_username,
		    encrypted_password = EXCLUDED.encrypted_password,
		    updated_at = now()
		RETURNING id, user_id, einvoice_username, encrypted_password, created_at, updated_at`

	var account models.EInvoiceAccount
	err := s.db.QueryRowxContext(ctx, query, userID, username, encryptedPassword).StructScan(&account)
	if err != nil {
		return nil, err
	}

	return &account, nil
}

// GetEInvoiceAccount retrieves the linked account for a user
func (s *PostgresStorage) GetEInvoiceAccount(ctx context.Context, userID uuid.UUID) (*models.EInvoiceAccount, error) {
	query := `
		SELECT id, user_id, einvoice_username, encrypted_password, created_at, updated_at
		FROM einvoice_accounts
		WHERE user_id = $1`

	var account models.EInvoiceAccount
	err := s.db.GetContext(ctx, &account, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	return &account, nil
}

// DeleteEInvoiceAccount unlinks the user's e-invoice account
func (s *PostgresStorage) DeleteEInvoiceAccount(ctx context.Context, userID uuid.UUID) error {
	query := `
		DELETE FROM einvoice_accounts
		WHERE user_id = $1`

	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}
