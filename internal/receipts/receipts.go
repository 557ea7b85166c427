package receipts

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/superset-studio/einvoice-vault/internal/models"
	"github.com/superset-studio/einvoice-vault/internal/storage"
)

const (
	// MaxAmount is the largest amount a single receipt may carry.
	MaxAmount = 999999999

	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

var (
	ErrNotFound        = errors.New("receipt not found")
	ErrTitleRequired   = errors.New("title is required")
	ErrInvalidAmount   = errors.New("amount must be greater than 0 and at most 999999999")
	ErrInvalidCurrency = errors.New("currency must be a 3-letter code")
	ErrInvalidDate     = errors.New("receipt_date must be a date in YYYY-MM-DD format")
	ErrInvalidMonth    = errors.New("month must be in YYYY-MM format")
)

// Draft is a receipt as entered by the user, before normalization.
type Draft struct {
	Title    string
	Amount   float64
	Currency string
	Date     string // YYYY-MM-DD
}

// Service manages a user's manually entered receipts.
type Service struct {
	store storage.ReceiptStorage
	now   func() time.Time
}

func NewService(store storage.ReceiptStorage) *Service {
	return &Service{
		store: store,
		now:   time.Now,
	}
}

// normalize trims and checks a draft. Amounts are rounded to cents.
func normalize(d Draft) (*models.ReceiptInput, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	if math.IsNaN(d.Amount) || math.IsInf(d.Amount, 0) {
		return nil, ErrInvalidAmount
	}
	amount := math.Round(d.Amount*100) / 100
	if amount <= 0 || amount > MaxAmount {
		return nil, ErrInvalidAmount
	}

	currency := strings.ToUpper(strings.TrimSpace(d.Currency))
	if currency == "" {
		currency = models.DefaultCurrency
	}
	if len(currency) != 3 || strings.IndexFunc(currency, func(r rune) bool { return r < 'A' || r > 'Z' }) >= 0 {
		return nil, ErrInvalidCurrency
	}

	date, err := time.Parse(DateLayout, strings.TrimSpace(d.Date))
	if err != nil {
		return nil, ErrInvalidDate
	}

	return &models.ReceiptInput{
		Title:       title,
		Amount:      amount,
		Currency:    currency,
		ReceiptDate: date,
	}, nil
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, d Draft) (*models.Receipt, error) {
	input, err := normalize(d)
	if err != nil {
		return nil, err
	}

	receipt, err := s.store.CreateReceipt(ctx, userID, input)
	if err != nil {
		return nil, fmt.Errorf("failed to store receipt: %w", err)
	}
	return receipt, nil
}

// List returns the user's receipts, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*models.Receipt, error) {
	receipts, err := s.store.ListReceipts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list receipts: %w", err)
	}
	return receipts, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*models.Receipt, error) {
	receipt, err := s.store.GetReceipt(ctx, userID, id)
	if errors.Is(err, storage.ErrReceiptNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	return receipt, nil
}

// Update replaces a receipt's fields. Receipts of other users are reported as not found.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, d Draft) (*models.Receipt, error) {
	input, err := normalize(d)
	if err != nil {
		return nil, err
	}

	receipt, err := s.store.UpdateReceipt(ctx, userID, id, input)
	if errors.Is(err, storage.ErrReceiptNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update receipt: %w", err)
	}
	return receipt, nil
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	err := s.store.DeleteReceipt(ctx, userID, id)
	if errors.Is(err, storage.ErrReceiptNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	return nil
}

// ParseMonth parses YYYY-MM. An empty string selects the current month.
func (s *Service) ParseMonth(month string) (time.Time, error) {
	month = strings.TrimSpace(month)
	if month == "" {
		now := s.now()
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	m, err := time.Parse(MonthLayout, month)
	if err != nil {
		return time.Time{}, ErrInvalidMonth
	}
	return m, nil
}

// MonthlySummary totals the user's receipts dated in the calendar month of month,
// one entry per currency.
func (s *Service) MonthlySummary(ctx context.Context, userID uuid.UUID, month time.Time) (*models.MonthlySummary, error) {
	from := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	totals, err := s.store.SumReceipts(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to sum receipts: %w", err)
	}
	if totals == nil {
		totals = []models.CurrencyTotal{}
	}

	return &models.MonthlySummary{
		Month:  from.Format(MonthLayout),
		Totals: totals,
	}, nil
}
