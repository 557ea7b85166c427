package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/superset-studio/einvoice-vault/internal/auth"
	"github.com/superset-studio/einvoice-vault/internal/models"
	"github.com/superset-studio/einvoice-vault/internal/receipts"
	"github.com/superset-studio/einvoice-vault/internal/secrets"
	"github.com/superset-studio/einvoice-vault/internal/storage"
	"github.com/superset-studio/einvoice-vault/internal/vault"
	"golang.org/x/crypto/bcrypt"
)

// mockStorage implements the user, account and receipt storage interfaces for testing
type mockStorage struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*models.User
	accounts map[uuid.UUID]*models.EInvoiceAccount // user_id → account
	receipts map[uuid.UUID]*models.Receipt
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		users:    make(map[uuid.UUID]*models.User),
		accounts: make(map[uuid.UUID]*models.EInvoiceAccount),
		receipts: make(map[uuid.UUID]*models.Receipt),
	}
}

func (m *mockStorage) CreateUser(_ context.Context, input *models.CreateUserInput) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(input.Email)
	for _, u := range m.users {
		if u.Email == email {
			return nil, storage.ErrEmailTaken
		}
	}
	u := &models.User{ID: uuid.New(), Email: email, PasswordHash: input.PasswordHash, IsActive: true, CreatedAt: time.Now()}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockStorage) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	return u, nil
}

func (m *mockStorage) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockStorage) ListUsers(_ context.Context) ([]*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.User
	for _, u := range m.users {
		result = append(result, u)
	}
	return result, nil
}

func (m *mockStorage) UpdateUserPassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return storage.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (m *mockStorage) UpsertEInvoiceAccount(_ context.Context, userID uuid.UUID, username, encryptedPassword string) (*models.EInvoiceAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		a = &models.EInvoiceAccount{ID: uuid.New(), UserID: userID, CreatedAt: time.Now()}
		m.accounts[userID] = a
	}
	a.Username = username
	a.EncryptedPassword = encryptedPassword
	a.UpdatedAt = time.Now()
	cp := *a
	return &cp, nil
}

func (m *mockStorage) GetEInvoiceAccount(_ context.Context, userID uuid.UUID) (*models.EInvoiceAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[userID]
	if !ok {
		return nil, storage.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockStorage) DeleteEInvoiceAccount(_ context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[userID]; !ok {
		return storage.ErrAccountNotFound
	}
	delete(m.accounts, userID)
	return nil
}

func (m *mockStorage) CreateReceipt(_ context.Context, userID uuid.UUID, input *models.ReceiptInput) (*models.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	r := &models.Receipt{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       input.Title,
		Amount:      input.Amount,
		Currency:    input.Currency,
		ReceiptDate: input.ReceiptDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.receipts[r.ID] = r
	cp := *r
	return &cp, nil
}

func (m *mockStorage) ListReceipts(_ context.Context, userID uuid.UUID) ([]*models.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*models.Receipt{}
	for _, r := range m.receipts {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceiptDate.After(out[j].ReceiptDate) })
	return out, nil
}

func (m *mockStorage) GetReceipt(_ context.Context, userID, id uuid.UUID) (*models.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.receipts[id]
	if !ok || r.UserID != userID {
		return nil, storage.ErrReceiptNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockStorage) UpdateReceipt(_ context.Context, userID, id uuid.UUID, input *models.ReceiptInput) (*models.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.receipts[id]
	if !ok || r.UserID != userID {
		return nil, storage.ErrReceiptNotFound
	}
	r.Title, r.Amount, r.Currency, r.ReceiptDate = input.Title, input.Amount, input.Currency, input.ReceiptDate
	r.UpdatedAt = time.Now()
	cp := *r
	return &cp, nil
}

func (m *mockStorage) DeleteReceipt(_ context.Context, userID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.receipts[id]
	if !ok || r.UserID != userID {
		return storage.ErrReceiptNotFound
	}
	delete(m.receipts, id)
	return nil
}

func (m *mockStorage) SumReceipts(_ context.Context, userID uuid.UUID, from, to time.Time) ([]models.CurrencyTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := make(map[string]int)
	out := []models.CurrencyTotal{}
	for _, r := range m.receipts {
		if r.UserID != userID || r.ReceiptDate.Before(from) || !r.ReceiptDate.Before(to) {
			continue
		}
		i, ok := idx[r.Currency]
		if !ok {
			i = len(out)
			idx[r.Currency] = i
			out = append(out, models.CurrencyTotal{Currency: r.Currency})
		}
		out[i].Total += r.Amount
		out[i].Count++
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Currency < out[j].Currency })
	return out, nil
}

type testEnv struct {
	store  *mockStorage
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, newMockStorage())
}

func newTestEnvWithStore(t *testing.T, store *mockStorage) *testEnv {
	t.Helper()

	key, err := secrets.GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	cipher, err := secrets.NewFernetCipher(key)
	if err != nil {
		t.Fatalf("failed to create cipher: %v", err)
	}

	jwtSvc := auth.NewJWTService("test-secret", time.Hour)
	h := NewHandler(store, vault.NewService(store, cipher), receipts.NewService(store), jwtSvc, auth.NewPasswordHasher(bcrypt.MinCost))

	r := chi.NewRouter()
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Group(func(r chi.Router) {
		r.Use(RequireUser(jwtSvc))
		r.Get("/me", h.Me)
		r.Put("/me/password", h.ChangePassword)
		r.Put("/einvoice", h.LinkEInvoice)
		r.Get("/einvoice", h.EInvoiceStatus)
		r.Get("/einvoice/credentials", h.EInvoiceCredentials)
		r.Delete("/einvoice", h.UnlinkEInvoice)
		r.Get("/receipts", h.ListReceipts)
		r.Post("/receipts", h.CreateReceipt)
		r.Get("/receipts/summary", h.ReceiptSummary)
		r.Get("/receipts/{id}", h.GetReceipt)
		r.Put("/receipts/{id}", h.UpdateReceipt)
		r.Delete("/receipts/{id}", h.DeleteReceipt)
	})

	return &testEnv{store: store, router: r}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(t *testing.T, email, password string) string {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": email, "password": password})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp authResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected token in register response")
	}
	return resp.Token
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Ada@Example.com", "Passw0rd")

	rec := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.com", "password": "Passw0rd"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password_hash") {
		t.Fatal("password hash leaked in response")
	}

	rec = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.com", "password": "Wrong123"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "nobody@example.com", "password": "Passw0rd"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user: expected 401, got %d", rec.Code)
	}
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	testCases := []struct {
		email    string
		password string
		message  string
	}{
		{"", "Passw0rd", "email is required"},
		{"not-an-email", "Passw0rd", "email must be a valid email address"},
		{"ada@example.com", "short", auth.ErrPasswordTooShort.Error()},
		{"ada@example.com", "password1", auth.ErrPasswordNoUpper.Error()},
		{"ada@example.com", "Password", auth.ErrPasswordNoDigit.Error()},
	}

	for _, tc := range testCases {
		rec := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": tc.email, "password": tc.password})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%q/%q: expected 400, got %d", tc.email, tc.password, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), tc.message) {
			t.Fatalf("%q/%q: expected message %q, got %q", tc.email, tc.password, tc.message, rec.Body.String())
		}
	}
}

func TestRegister_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ada@example.com", "Passw0rd")

	rec := env.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "ada@example.com", "password": "Passw0rd"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	for _, token := range []string{"", "garbage"} {
		rec := env.do(t, http.MethodGet, "/me", token, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("token %q: expected 401, got %d", token, rec.Code)
		}
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "ada@example.com", "Passw0rd")

	rec := env.do(t, http.MethodPut, "/me/password", token, map[string]string{"current_password": "Wrong123", "new_password": "N3wPassword"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("wrong current password: expected 400, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/me/password", token, map[string]string{"current_password": "Passw0rd", "new_password": "weak"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("weak new password: expected 400, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/me/password", token, map[string]string{"current_password": "Passw0rd", "new_password": "N3wPassword"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.com", "password": "N3wPassword"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login with new password: expected 200, got %d", rec.Code)
	}
}

func TestEInvoiceFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "ada@example.com", "Passw0rd")

	rec := env.do(t, http.MethodGet, "/einvoice", token, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"linked":false`) {
		t.Fatalf("status before link: got %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/einvoice/credentials", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("credentials before link: expected 404, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/einvoice", token, map[string]string{"einvoice_username": "1234567890", "einvoice_password": "hunter2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("link: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "hunter2") {
		t.Fatal("plaintext password leaked in link response")
	}

	for _, a := range env.store.accounts {
		if a.EncryptedPassword == "hunter2" || a.EncryptedPassword == "" {
			t.Fatalf("expected stored password to be a token, got %q", a.EncryptedPassword)
		}
	}

	rec = env.do(t, http.MethodGet, "/einvoice", token, nil)
	var status einvoiceStatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if !status.Linked || status.Username != "1234567890" || status.LinkedAt == nil {
		t.Fatalf("unexpected status %+v", status)
	}

	rec = env.do(t, http.MethodGet, "/einvoice/credentials", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("credentials: expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("expected Cache-Control no-store, got %q", rec.Header().Get("Cache-Control"))
	}
	var creds models.EInvoiceCredentials
	if err := json.NewDecoder(rec.Body).Decode(&creds); err != nil {
		t.Fatalf("failed to decode credentials: %v", err)
	}
	if creds.Username != "1234567890" || creds.Password != "hunter2" {
		t.Fatalf("unexpected credentials %+v", creds)
	}

	rec = env.do(t, http.MethodDelete, "/einvoice", token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("unlink: expected 204, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodDelete, "/einvoice", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second unlink: expected 404, got %d", rec.Code)
	}
}

func TestEInvoiceLink_Validation(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "ada@example.com", "Passw0rd")

	rec := env.do(t, http.MethodPut, "/einvoice", token, map[string]string{"einvoice_username": "user"})
	if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), "einvoice_password is required") {
		t.Fatalf("expected 400 for missing password, got %d %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPut, "/einvoice", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad JSON, got %d", rr.Code)
	}
}

func TestEInvoiceCredentials_KeyChanged(t *testing.T) {
	store := newMockStorage()
	env := newTestEnvWithStore(t, store)
	token := env.register(t, "ada@example.com", "Passw0rd")

	rec := env.do(t, http.MethodPut, "/einvoice", token, map[string]string{"einvoice_username": "user", "einvoice_password": "hunter2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("link: expected 200, got %d", rec.Code)
	}

	// Same data, new process secret key. The JWT secret is shared so the token still works.
	restarted := newTestEnvWithStore(t, store)
	rec = restarted.do(t, http.MethodGet, "/einvoice/credentials", token, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for undecryptable credentials, got %d", rec.Code)
	}
}

func TestLogin_InactiveUser(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "ada@example.com", "Passw0rd")

	for _, u := range env.store.users {
		u.IsActive = false
	}

	rec := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "ada@example.com", "password": "Passw0rd"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("inactive user: expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "invalid credentials") {
		t.Fatalf("expected the same message as a bad password, got %q", rec.Body.String())
	}
}

func TestChangePassword_DeletedUser(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "ada@example.com", "Passw0rd")

	env.store.mu.Lock()
	for id := range env.store.users {
		delete(env.store.users, id)
	}
	env.store.mu.Unlock()

	rec := env.do(t, http.MethodPut, "/me/password", token, map[string]string{"current_password": "Passw0rd", "new_password": "N3wPassword"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("deleted user: expected 401, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/me", token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("deleted user on /me: expected 401, got %d", rec.Code)
	}
}

func decodeReceiptBody(t *testing.T, rec *httptest.ResponseRecorder) models.Receipt {
	t.Helper()
	var r models.Receipt
	if err := json.NewDecoder(rec.Body).Decode(&r); err != nil {
		t.Fatalf("failed to decode receipt: %v", err)
	}
	return r
}

func TestReceiptsFlow(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "ada@example.com", "Passw0rd")

	rec := env.do(t, http.MethodGet, "/receipts", token, nil)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("empty list: got %d %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/receipts", token, map[string]any{"title": "Lunch", "amount": 120.5, "receipt_date": "2026-01-05"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	lunch := decodeReceiptBody(t, rec)
	if lunch.Currency != "TWD" || lunch.Amount != 120.5 || lunch.Title != "Lunch" {
		t.Fatalf("unexpected receipt %+v", lunch)
	}

	rec = env.do(t, http.MethodPost, "/receipts", token, map[string]any{"title": "Book", "amount": 15, "currency": "USD", "receipt_date": "2026-01-20"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodPost, "/receipts", token, map[string]any{"title": "Old", "amount": 999, "receipt_date": "2025-12-31"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/receipts", token, nil)
	var list []models.Receipt
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("failed to decode list: %v", err)
	}
	if len(list) != 3 || list[0].Title != "Book" {
		t.Fatalf("expected 3 receipts newest first, got %+v", list)
	}

	rec = env.do(t, http.MethodPut, "/receipts/"+lunch.ID.String(), token, map[string]any{"title": "Dinner", "amount": 80, "currency": "twd", "receipt_date": "2026-01-06"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decodeReceiptBody(t, rec); got.Title != "Dinner" || got.Amount != 80 || got.Currency != "TWD" {
		t.Fatalf("unexpected updated receipt %+v", got)
	}

	rec = env.do(t, http.MethodGet, "/receipts/summary?month=2026-01", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var summary models.MonthlySummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	want := []models.CurrencyTotal{{Currency: "TWD", Total: 80, Count: 1}, {Currency: "USD", Total: 15, Count: 1}}
	if summary.Month != "2026-01" || len(summary.Totals) != len(want) || summary.Totals[0] != want[0] || summary.Totals[1] != want[1] {
		t.Fatalf("expected %v for 2026-01, got %+v", want, summary)
	}

	rec = env.do(t, http.MethodDelete, "/receipts/"+lunch.ID.String(), token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/receipts/"+lunch.ID.String(), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", rec.Code)
	}
}

func TestReceiptSummary_CurrentMonth(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "ada@example.com", "Passw0rd")

	today := time.Now().Format("2006-01-02")
	rec := env.do(t, http.MethodPost, "/receipts", token, map[string]any{"title": "Coffee", "amount": 65, "receipt_date": today})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/receipts/summary", token, nil)
	var summary models.MonthlySummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if summary.Month != today[:7] {
		t.Fatalf("expected month %s, got %s", today[:7], summary.Month)
	}
	if len(summary.Totals) != 1 || summary.Totals[0].Total != 65 {
		t.Fatalf("expected total 65, got %+v", summary.Totals)
	}

	rec = env.do(t, http.MethodGet, "/receipts/summary?month=2026-13", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad month: expected 400, got %d", rec.Code)
	}
}

func TestReceipts_Validation(t *testing.T) {
	env := newTestEnv(t)
	token := env.register(t, "ada@example.com", "Passw0rd")

	testCases := []struct {
		body    map[string]any
		message string
	}{
		{map[string]any{"amount": 10, "receipt_date": "2026-01-05"}, "title is required"},
		{map[string]any{"title": "x", "amount": 0, "receipt_date": "2026-01-05"}, "amount must be greater than 0"},
		{map[string]any{"title": "x", "amount": -3, "receipt_date": "2026-01-05"}, "amount must be greater than 0"},
		{map[string]any{"title": "x", "amount": 1000000000, "receipt_date": "2026-01-05"}, "amount must be at most 999999999"},
		{map[string]any{"title": "x", "amount": 10, "receipt_date": "05/01/2026"}, "receipt_date must be a date in YYYY-MM-DD format"},
		{map[string]any{"title": "x", "amount": 10, "receipt_date": "2026-02-30"}, "receipt_date must be a date in YYYY-MM-DD format"},
		{map[string]any{"title": "x", "amount": 10}, "receipt_date is required"},
		{map[string]any{"title": "x", "amount": 10, "currency": "NT", "receipt_date": "2026-01-05"}, "currency must be a 3-letter code"},
		{map[string]any{"title": "   ", "amount": 10, "receipt_date": "2026-01-05"}, "title is required"},
	}

	for _, tc := range testCases {
		rec := env.do(t, http.MethodPost, "/receipts", token, tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%v: expected 400, got %d", tc.body, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), tc.message) {
			t.Fatalf("%v: expected message %q, got %q", tc.body, tc.message, rec.Body.String())
		}
	}

	if len(env.store.receipts) != 0 {
		t.Fatalf("expected no receipts stored, got %d", len(env.store.receipts))
	}

	rec := env.do(t, http.MethodGet, "/receipts/not-a-uuid", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: expected 400, got %d", rec.Code)
	}
}

func TestReceipts_OtherUsersAreHidden(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "ada@example.com", "Passw0rd")
	other := env.register(t, "bob@example.com", "Passw0rd")

	rec := env.do(t, http.MethodPost, "/receipts", owner, map[string]any{"title": "Lunch", "amount": 100, "receipt_date": "2026-01-05"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", rec.Code)
	}
	id := decodeReceiptBody(t, rec).ID.String()

	for _, tc := range []struct {
		method string
		body   any
	}{
		{http.MethodGet, nil},
		{http.MethodPut, map[string]any{"title": "Mine", "amount": 1, "receipt_date": "2026-01-05"}},
		{http.MethodDelete, nil},
	} {
		rec := env.do(t, tc.method, "/receipts/"+id, other, tc.body)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s by another user: expected 404, got %d", tc.method, rec.Code)
		}
	}

	rec = env.do(t, http.MethodGet, "/receipts", other, nil)
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected other user to see no receipts, got %s", rec.Body.String())
	}
}
