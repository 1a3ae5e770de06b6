package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpHandler "virtual-wallet/internal/adapter/http/handler"
	redisStorage "virtual-wallet/internal/adapter/storage/redis"
	"virtual-wallet/internal/core/domain"
	"virtual-wallet/internal/core/ports"
	"virtual-wallet/internal/service"
	"virtual-wallet/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp builds the full application stack on in-memory storage: miniredis
// behind the Redis stores and map-backed postgres repos. It exercises the
// real HTTP layer, middleware, handlers and services end-to-end.

type testApp struct {
	server *httptest.Server
	redis  *miniredis.Miniredis

	users      *inMemoryUserRepo
	cards      *inMemoryCardRepo
	categories *inMemoryCategoryRepo

	tokenSvc     ports.TokenService
	recurringSvc ports.RecurringService
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	log := logger.New("debug", false)

	// In-memory repos
	userRepo := newInMemoryUserRepo()
	walletRepo := newInMemoryWalletRepo()
	cardRepo := newInMemoryCardRepo()
	categoryRepo := newInMemoryCategoryRepo()
	txRepo := newInMemoryTransactionRepo(userRepo, cardRepo, categoryRepo)
	recurringRepo := newInMemoryRecurringRepo()
	auditRepo := newInMemoryAuditRepo()
	transactor := newInMemoryTransactor()

	// Services
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", 24*time.Hour, "test-issuer")
	auditSvc := service.NewAuditService(auditRepo, log)
	walletSvc := service.NewWalletService(walletRepo, userRepo, transactor, auditSvc, log)
	txSvc := service.NewTransactionService(
		txRepo, walletRepo, userRepo, cardRepo, categoryRepo, transactor, auditSvc, log)
	recurringSvc := service.NewRecurringService(
		recurringRepo, txRepo, walletRepo, userRepo, cardRepo, categoryRepo, transactor, auditSvc, log)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		WalletSvc:      walletSvc,
		TransactionSvc: txSvc,
		RecurringSvc:   recurringSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: redisStorage.NewRateLimitStore(rdb),
		Logger:         log,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testApp{
		server:       server,
		redis:        mr,
		users:        userRepo,
		cards:        cardRepo,
		categories:   categoryRepo,
		tokenSvc:     tokenSvc,
		recurringSvc: recurringSvc,
	}
}

// seedUser registers a verified, unblocked user and returns it with a token.
func (a *testApp) seedUser(t *testing.T, email string, isAdmin bool) (*domain.User, string) {
	t.Helper()
	u := &domain.User{
		ID:              uuid.New(),
		Email:           email,
		IsAdmin:         isAdmin,
		IsPhoneVerified: true,
		CreatedAt:       time.Now().UTC(),
	}
	a.users.seed(u)
	token, _, err := a.tokenSvc.Generate(u.ID, isAdmin)
	require.NoError(t, err)
	return u, token
}

func (a *testApp) seedCard(t *testing.T, userID uuid.UUID, number string) *domain.Card {
	t.Helper()
	c := &domain.Card{ID: uuid.New(), UserID: userID, Number: number, CreatedAt: time.Now().UTC()}
	a.cards.seed(c)
	return c
}

func (a *testApp) seedCategory(t *testing.T, name string) *domain.Category {
	t.Helper()
	c := &domain.Category{ID: uuid.New(), Name: name}
	a.categories.seed(c)
	return c
}

// doJSON performs an authenticated JSON request and decodes the envelope.
func (a *testApp) doJSON(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, a.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp.StatusCode, envelope
}

func data(t *testing.T, envelope map[string]any) map[string]any {
	t.Helper()
	d, ok := envelope["data"].(map[string]any)
	require.True(t, ok, "expected data object in envelope: %v", envelope)
	return d
}

// --- Integration Tests ---

func TestIntegration_HealthCheck(t *testing.T) {
	app := newTestApp(t)

	resp, err := http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestIntegration_MissingToken(t *testing.T) {
	app := newTestApp(t)

	code, envelope := app.doJSON(t, http.MethodGet, "/api/v1/wallets", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "AUTH_001", envelope["error_code"])
}

func TestIntegration_WalletLifecycle(t *testing.T) {
	app := newTestApp(t)
	_, token := app.seedUser(t, "alice@example.com", false)

	// Open a wallet
	code, envelope := app.doJSON(t, http.MethodPost, "/api/v1/wallets", token, map[string]any{"currency": "EUR"})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "0", data(t, envelope)["balance"])

	// Duplicate wallet is rejected
	code, envelope = app.doJSON(t, http.MethodPost, "/api/v1/wallets", token, map[string]any{"currency": "EUR"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "WLT_001", envelope["error_code"])

	// Deposit
	code, envelope = app.doJSON(t, http.MethodPost, "/api/v1/wallets/deposit", token,
		map[string]any{"currency": "EUR", "amount": "250.50"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "250.5", data(t, envelope)["balance"])

	// Withdraw
	code, envelope = app.doJSON(t, http.MethodPost, "/api/v1/wallets/withdraw", token,
		map[string]any{"currency": "EUR", "amount": "50.50"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "200", data(t, envelope)["balance"])

	// Overdraw is rejected
	code, envelope = app.doJSON(t, http.MethodPost, "/api/v1/wallets/withdraw", token,
		map[string]any{"currency": "EUR", "amount": "1000"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "WLT_002", envelope["error_code"])

	// Balances
	code, envelope = app.doJSON(t, http.MethodGet, "/api/v1/wallets", token, nil)
	require.Equal(t, http.StatusOK, code)
	items, ok := envelope["data"].([]any)
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestIntegration_TransferHappyPath(t *testing.T) {
	app := newTestApp(t)
	sender, senderToken := app.seedUser(t, "alice@example.com", false)
	_, recipientToken := app.seedUser(t, "bob@example.com", false)
	app.seedCard(t, sender.ID, "4111111111111111")
	app.seedCategory(t, "Rent")

	// Both parties hold EUR wallets; the sender funds theirs.
	code, _ := app.doJSON(t, http.MethodPost, "/api/v1/wallets", senderToken, map[string]any{"currency": "EUR"})
	require.Equal(t, http.StatusCreated, code)
	code, _ = app.doJSON(t, http.MethodPost, "/api/v1/wallets", recipientToken, map[string]any{"currency": "EUR"})
	require.Equal(t, http.StatusCreated, code)
	code, _ = app.doJSON(t, http.MethodPost, "/api/v1/wallets/deposit", senderToken,
		map[string]any{"currency": "EUR", "amount": "200"})
	require.Equal(t, http.StatusOK, code)

	// Create the transfer: pending, no funds move yet.
	code, envelope := app.doJSON(t, http.MethodPost, "/api/v1/transactions", senderToken, map[string]any{
		"amount":          "80",
		"currency":        "EUR",
		"card_number":     "4111111111111111",
		"recipient_email": "bob@example.com",
		"category":        "Rent",
	})
	require.Equal(t, http.StatusCreated, code)
	txnID := data(t, envelope)["id"].(string)
	assert.Equal(t, "pending", data(t, envelope)["status"])

	// Recipient cannot approve before the sender confirms.
	code, envelope = app.doJSON(t, http.MethodPut, "/api/v1/transactions/"+txnID+"/approve", recipientToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "TXN_003", envelope["error_code"])

	// Sender confirms: awaiting.
	code, envelope = app.doJSON(t, http.MethodPut, "/api/v1/transactions/"+txnID+"/confirm", senderToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "awaiting", data(t, envelope)["status"])

	// Recipient approves: confirmed, funds move.
	code, envelope = app.doJSON(t, http.MethodPut, "/api/v1/transactions/"+txnID+"/approve", recipientToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "confirmed", data(t, envelope)["status"])

	// Approving again fails: the transaction is terminal.
	code, envelope = app.doJSON(t, http.MethodPut, "/api/v1/transactions/"+txnID+"/approve", recipientToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "TXN_003", envelope["error_code"])

	// Final balances: 200 - 80 = 120 for the sender, 80 for the recipient.
	code, envelope = app.doJSON(t, http.MethodGet, "/api/v1/wallets", senderToken, nil)
	require.Equal(t, http.StatusOK, code)
	senderWallets := envelope["data"].([]any)
	assert.Equal(t, "120", senderWallets[0].(map[string]any)["balance"])

	code, envelope = app.doJSON(t, http.MethodGet, "/api/v1/wallets", recipientToken, nil)
	require.Equal(t, http.StatusOK, code)
	recipientWallets := envelope["data"].([]any)
	assert.Equal(t, "80", recipientWallets[0].(map[string]any)["balance"])

	// Both parties see the transfer in their histories.
	code, envelope = app.doJSON(t, http.MethodGet, "/api/v1/transactions?direction=incoming", recipientToken, nil)
	require.Equal(t, http.StatusOK, code)
	list := data(t, envelope)
	assert.Equal(t, float64(1), list["total"])
	items := list["items"].([]any)
	first := items[0].(map[string]any)
	assert.Equal(t, "bob@example.com", first["recipient_email"])
	assert.Equal(t, "Rent", first["category_name"])
}

func TestIntegration_InsufficientFundsAtApproval(t *testing.T) {
	app := newTestApp(t)
	sender, senderToken := app.seedUser(t, "alice@example.com", false)
	_, recipientToken := app.seedUser(t, "bob@example.com", false)
	app.seedCard(t, sender.ID, "4111111111111111")
	app.seedCategory(t, "Rent")

	code, _ := app.doJSON(t, http.MethodPost, "/api/v1/wallets", senderToken, map[string]any{"currency": "EUR"})
	require.Equal(t, http.StatusCreated, code)
	code, _ = app.doJSON(t, http.MethodPost, "/api/v1/wallets", recipientToken, map[string]any{"currency": "EUR"})
	require.Equal(t, http.StatusCreated, code)
	code, _ = app.doJSON(t, http.MethodPost, "/api/v1/wallets/deposit", senderToken,
		map[string]any{"currency": "EUR", "amount": "100"})
	require.Equal(t, http.StatusOK, code)

	code, envelope := app.doJSON(t, http.MethodPost, "/api/v1/transactions", senderToken, map[string]any{
		"amount":          "80",
		"currency":        "EUR",
		"card_number":     "4111111111111111",
		"recipient_email": "bob@example.com",
		"category":        "Rent",
	})
	require.Equal(t, http.StatusCreated, code)
	txnID := data(t, envelope)["id"].(string)

	code, _ = app.doJSON(t, http.MethodPut, "/api/v1/transactions/"+txnID+"/confirm", senderToken, nil)
	require.Equal(t, http.StatusOK, code)

	// Funds drain between confirmation and approval.
	code, _ = app.doJSON(t, http.MethodPost, "/api/v1/wallets/withdraw", senderToken,
		map[string]any{"currency": "EUR", "amount": "50"})
	require.Equal(t, http.StatusOK, code)

	// Approval fails and the transaction stays awaiting.
	code, envelope = app.doJSON(t, http.MethodPut, "/api/v1/transactions/"+txnID+"/approve", recipientToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "WLT_002", envelope["error_code"])

	code, envelope = app.doJSON(t, http.MethodGet, "/api/v1/transactions", senderToken, nil)
	require.Equal(t, http.StatusOK, code)
	items := data(t, envelope)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "awaiting", items[0].(map[string]any)["status"])
}

func TestIntegration_AdminDeny(t *testing.T) {
	app := newTestApp(t)
	sender, senderToken := app.seedUser(t, "alice@example.com", false)
	_, recipientToken := app.seedUser(t, "bob@example.com", false)
	_, adminToken := app.seedUser(t, "admin@example.com", true)
	app.seedCard(t, sender.ID, "4111111111111111")
	app.seedCategory(t, "Rent")

	code, _ := app.doJSON(t, http.MethodPost, "/api/v1/wallets", senderToken, map[string]any{"currency": "EUR"})
	require.Equal(t, http.StatusCreated, code)
	code, _ = app.doJSON(t, http.MethodPost, "/api/v1/wallets", recipientToken, map[string]any{"currency": "EUR"})
	require.Equal(t, http.StatusCreated, code)
	code, _ = app.doJSON(t, http.MethodPost, "/api/v1/wallets/deposit", senderToken,
		map[string]any{"currency": "EUR", "amount": "100"})
	require.Equal(t, http.StatusOK, code)

	code, envelope := app.doJSON(t, http.MethodPost, "/api/v1/transactions", senderToken, map[string]any{
		"amount":          "40",
		"currency":        "EUR",
		"card_number":     "4111111111111111",
		"recipient_email": "bob@example.com",
		"category":        "Rent",
	})
	require.Equal(t, http.StatusCreated, code)
	txnID := data(t, envelope)["id"].(string)

	// A regular user cannot deny.
	code, envelope = app.doJSON(t, http.MethodPut, "/api/v1/transactions/"+txnID+"/deny", senderToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "TXN_002", envelope["error_code"])

	// The admin denies the pending transaction outright.
	code, envelope = app.doJSON(t, http.MethodPut, "/api/v1/transactions/"+txnID+"/deny", adminToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "declined", data(t, envelope)["status"])

	// Denying a terminal transaction fails.
	code, envelope = app.doJSON(t, http.MethodPut, "/api/v1/transactions/"+txnID+"/deny", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "TXN_003", envelope["error_code"])

	// No funds moved.
	code, envelope = app.doJSON(t, http.MethodGet, "/api/v1/wallets", senderToken, nil)
	require.Equal(t, http.StatusOK, code)
	wallets := envelope["data"].([]any)
	assert.Equal(t, "100", wallets[0].(map[string]any)["balance"])
}

func TestIntegration_RecurringSweep(t *testing.T) {
	app := newTestApp(t)
	owner, ownerToken := app.seedUser(t, "alice@example.com", false)
	recipient, recipientToken := app.seedUser(t, "bob@example.com", false)
	card := app.seedCard(t, owner.ID, "4111111111111111")
	category := app.seedCategory(t, "Subscriptions")

	code, _ := app.doJSON(t, http.MethodPost, "/api/v1/wallets", ownerToken, map[string]any{"currency": "USD"})
	require.Equal(t, http.StatusCreated, code)
	code, _ = app.doJSON(t, http.MethodPost, "/api/v1/wallets", recipientToken, map[string]any{"currency": "USD"})
	require.Equal(t, http.StatusCreated, code)
	code, _ = app.doJSON(t, http.MethodPost, "/api/v1/wallets/deposit", ownerToken,
		map[string]any{"currency": "USD", "amount": "100"})
	require.Equal(t, http.StatusOK, code)

	next := time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)
	code, envelope := app.doJSON(t, http.MethodPost, "/api/v1/recurring-transactions", ownerToken, map[string]any{
		"card_id":             card.ID.String(),
		"recipient_id":        recipient.ID.String(),
		"category_id":         category.ID.String(),
		"amount":              "15",
		"currency":            "USD",
		"interval":            1,
		"interval_type":       "monthly",
		"next_execution_date": next.Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, code)

	// Sweep at a time past the due date materializes one pending transaction.
	now := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)
	result, err := app.recurringSvc.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, ports.SweepResult{Due: 1, Executed: 1}, result)

	code, envelope = app.doJSON(t, http.MethodGet, "/api/v1/transactions", ownerToken, nil)
	require.Equal(t, http.StatusOK, code)
	items := data(t, envelope)["items"].([]any)
	require.Len(t, items, 1)
	created := items[0].(map[string]any)
	assert.Equal(t, "pending", created["status"])
	assert.Equal(t, "15", created["amount"])

	// The next execution date clamps Jan 31 to Feb 28.
	code, envelope = app.doJSON(t, http.MethodGet, "/api/v1/recurring-transactions", ownerToken, nil)
	require.Equal(t, http.StatusOK, code)
	recs := envelope["data"].([]any)
	require.Len(t, recs, 1)
	assert.Equal(t, "2025-02-28T09:00:00Z", recs[0].(map[string]any)["next_execution_date"])

	// A second sweep at the same instant finds nothing due.
	result, err = app.recurringSvc.Sweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, ports.SweepResult{}, result)
}

func TestIntegration_RecurringCancel(t *testing.T) {
	app := newTestApp(t)
	owner, ownerToken := app.seedUser(t, "alice@example.com", false)
	recipient, recipientToken := app.seedUser(t, "bob@example.com", false)
	card := app.seedCard(t, owner.ID, "4111111111111111")
	category := app.seedCategory(t, "Subscriptions")

	code, _ := app.doJSON(t, http.MethodPost, "/api/v1/wallets", ownerToken, map[string]any{"currency": "USD"})
	require.Equal(t, http.StatusCreated, code)
	code, _ = app.doJSON(t, http.MethodPost, "/api/v1/wallets", recipientToken, map[string]any{"currency": "USD"})
	require.Equal(t, http.StatusCreated, code)

	code, envelope := app.doJSON(t, http.MethodPost, "/api/v1/recurring-transactions", ownerToken, map[string]any{
		"card_id":             card.ID.String(),
		"recipient_id":        recipient.ID.String(),
		"category_id":         category.ID.String(),
		"amount":              "15",
		"currency":            "USD",
		"interval":            1,
		"interval_type":       "weekly",
		"next_execution_date": time.Now().UTC().Add(24 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, code)
	recID := data(t, envelope)["id"].(string)

	// Another user cannot cancel it.
	code, envelope = app.doJSON(t, http.MethodDelete, "/api/v1/recurring-transactions/"+recID, recipientToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "TXN_002", envelope["error_code"])

	// The owner can.
	code, _ = app.doJSON(t, http.MethodDelete, "/api/v1/recurring-transactions/"+recID, ownerToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, envelope = app.doJSON(t, http.MethodGet, "/api/v1/recurring-transactions", ownerToken, nil)
	require.Equal(t, http.StatusOK, code)
	recs := envelope["data"].([]any)
	assert.Len(t, recs, 0)
}

func TestIntegration_RateLimitExceeded(t *testing.T) {
	app := newTestApp(t)
	_, token := app.seedUser(t, "alice@example.com", false)

	var last int
	var lastEnvelope map[string]any
	for i := 0; i < 31; i++ {
		last, lastEnvelope = app.doJSON(t, http.MethodGet, "/api/v1/wallets", token, nil)
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
	assert.Equal(t, "RATE_001", lastEnvelope["error_code"])
}
