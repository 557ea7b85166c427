package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/superset-studio/einvoice-vault/internal/models"
)

var ErrReceiptNotFound = errors.New("receipt not found")

const receiptColumns = `id, user_id, title, amount::float8 AS amount, currency, receipt_date, created_at, updated_at`

// CreateReceipt stores a new receipt for the user.
func (s *PostgresStorage) CreateReceipt(ctx context.Context, userID uuid.UUID, input *models.ReceiptInput) (*models.Receipt, error) {
	query := `
		INSERT INTO receipts (user_id, title, amount, currency, receipt_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + receiptColumns

	var receipt models.Receipt
	err := s.db.QueryRowxContext(ctx, query, userID, input.Title, input.Amount, input.Currency, input.ReceiptDate).StructScan(&receipt)
	if err != nil {
		return nil, err
	}

	return &receipt, nil
}

// ListReceipts returns the user's receipts, newest first.
func (s *PostgresStorage) ListReceipts(ctx context.Context, userID uuid.UUID) ([]*models.Receipt, error) {
	query := `
		SELECT ` + receiptColumns + `
		FROM receipts
		WHERE user_id = $1
		ORDER BY receipt_date DESC, created_at DESC`

	receipts := []*models.Receipt{}
	if err := s.db.SelectContext(ctx, &receipts, query, userID); err != nil {
		return nil, err
	}

	return receipts, nil
}

func (s *PostgresStorage) GetReceipt(ctx context.Context, userID, id uuid.UUID) (*models.Receipt, error) {
	query := `
		SELECT ` + receiptColumns + `
		FROM receipts
		WHERE id = $1 AND user_id = $2`

	var receipt models.Receipt
	err := s.db.GetContext(ctx, &receipt, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReceiptNotFound
	}
	if err != nil {
		return nil, err
	}

	return &receipt, nil
}

// UpdateReceipt replaces every editable field of a receipt the user owns.
func (s *PostgresStorage) UpdateReceipt(ctx context.Context, userID, id uuid.UUID, input *models.ReceiptInput) (*models.Receipt, error) {
	query := `
		UPDATE receipts
		SET title = $3, amount = $4, currency = $5, receipt_date = $6, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + receiptColumns

	var receipt models.Receipt
	err := s.db.QueryRowxContext(ctx, query, id, userID, input.Title, input.Amount, input.Currency, input.ReceiptDate).StructScan(&receipt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReceiptNotFound
	}
	if err != nil {
		return nil, err
	}

	return &receipt, nil
}

func (s *PostgresStorage) DeleteReceipt(ctx context.Context, userID, id uuid.UUID) error {
	query := `
		DELETE FROM receipts
		WHERE id = $1 AND user_id = $2`

	result, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrReceiptNotFound
	}

	return nil
}

// SumReceipts totals the user's receipts dated in [from, to) per currency.
func (s *PostgresStorage) SumReceipts(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.CurrencyTotal, error) {
	query := `
		SELECT currency, SUM(amount)::float8 AS total, COUNT(*) AS count
		FROM receipts
		WHERE user_id = $1 AND receipt_date >= $2 AND receipt_date < $3
		GROUP BY currency
		ORDER BY currency`

	totals := []models.CurrencyTotal{}
	if err := s.db.SelectContext(ctx, &totals, query, userID, from, to); err != nil {
		return nil, err
	}

	return totals, nil
}
