package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"virtual-wallet/internal/core/domain"
	"virtual-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// --- In-Memory User Repo (read-only, seeded by tests) ---

type inMemoryUserRepo struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

func newInMemoryUserRepo() *inMemoryUserRepo {
	return &inMemoryUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *inMemoryUserRepo) seed(u *domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
}

func (r *inMemoryUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (r *inMemoryUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[uuid.UUID]*domain.Wallet
}

func newInMemoryWalletRepo() *inMemoryWalletRepo {
	return &inMemoryWalletRepo{wallets: make(map[uuid.UUID]*domain.Wallet)}
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wallets[w.ID] = w
	return nil
}

func (r *inMemoryWalletRepo) GetByUser(ctx context.Context, userID uuid.UUID, currency domain.Currency) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, w := range r.wallets {
		if w.UserID == userID && w.Currency == currency {
			return w, nil
		}
	}
	return nil, nil
}

func (r *inMemoryWalletRepo) GetByUserForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency domain.Currency) (*domain.Wallet, error) {
	return r.GetByUser(ctx, userID, currency)
}

func (r *inMemoryWalletRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Wallet
	for _, w := range r.wallets {
		if w.UserID == userID {
			result = append(result, *w)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Currency < result[j].Currency })
	return result, nil
}

func (r *inMemoryWalletRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	w.Balance = balance
	return nil
}

// --- In-Memory Card Repo (read-only, seeded by tests) ---

type inMemoryCardRepo struct {
	mu    sync.RWMutex
	cards map[uuid.UUID]*domain.Card
}

func newInMemoryCardRepo() *inMemoryCardRepo {
	return &inMemoryCardRepo{cards: make(map[uuid.UUID]*domain.Card)}
}

func (r *inMemoryCardRepo) seed(c *domain.Card) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cards[c.ID] = c
}

func (r *inMemoryCardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cards[id]
	if !ok {
		return nil, nil
	}
	return c, nil
}

func (r *inMemoryCardRepo) GetByNumber(ctx context.Context, userID uuid.UUID, number string) (*domain.Card, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.cards {
		if c.UserID == userID && c.Number == number {
			return c, nil
		}
	}
	return nil, nil
}

// --- In-Memory Category Repo (read-only, seeded by tests) ---

type inMemoryCategoryRepo struct {
	mu         sync.RWMutex
	categories map[uuid.UUID]*domain.Category
}

func newInMemoryCategoryRepo() *inMemoryCategoryRepo {
	return &inMemoryCategoryRepo{categories: make(map[uuid.UUID]*domain.Category)}
}

func (r *inMemoryCategoryRepo) seed(c *domain.Category) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.categories[c.ID] = c
}

func (r *inMemoryCategoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.categories[id]
	if !ok {
		return nil, nil
	}
	return c, nil
}

func (r *inMemoryCategoryRepo) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.categories {
		if c.Name == name {
			return c, nil
		}
	}
	return nil, nil
}

// --- In-Memory Transaction Repo ---

// inMemoryTransactionRepo joins against the user, card and category repos
// to build the display views List returns.
type inMemoryTransactionRepo struct {
	mu           sync.RWMutex
	transactions map[uuid.UUID]*domain.Transaction
	users        *inMemoryUserRepo
	cards        *inMemoryCardRepo
	categories   *inMemoryCategoryRepo
}

func newInMemoryTransactionRepo(users *inMemoryUserRepo, cards *inMemoryCardRepo, categories *inMemoryCategoryRepo) *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{
		transactions: make(map[uuid.UUID]*domain.Transaction),
		users:        users,
		cards:        cards,
		categories:   categories,
	}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.transactions[t.ID] = &cp
	return nil
}

func (r *inMemoryTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transactions[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *inMemoryTransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transaction, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryTransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transactions[id]
	if !ok {
		return fmt.Errorf("transaction not found")
	}
	t.Status = status
	return nil
}

func (r *inMemoryTransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]ports.TransactionView, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []domain.Transaction
	for _, t := range r.transactions {
		if !params.IsAdmin && t.SenderID != params.CallerID && t.RecipientID != params.CallerID {
			continue
		}
		switch params.Direction {
		case "incoming":
			if t.RecipientID != params.CallerID {
				continue
			}
		case "outgoing":
			if t.SenderID != params.CallerID {
				continue
			}
		}
		if params.StartDate != nil && t.Timestamp.Before(*params.StartDate) {
			continue
		}
		if params.EndDate != nil && t.Timestamp.After(*params.EndDate) {
			continue
		}
		if params.SenderID != nil && t.SenderID != *params.SenderID {
			continue
		}
		if params.RecipientID != nil && t.RecipientID != *params.RecipientID {
			continue
		}
		matched = append(matched, *t)
	}

	if params.SortBy == "amount" {
		sort.Slice(matched, func(i, j int) bool { return matched[i].Amount.GreaterThan(matched[j].Amount) })
	} else {
		sort.Slice(matched, func(i, j int) bool { return matched[i].Timestamp.After(matched[j].Timestamp) })
	}

	total := int64(len(matched))
	start := params.Skip
	if start > len(matched) {
		start = len(matched)
	}
	end := start + params.Limit
	if end > len(matched) {
		end = len(matched)
	}
	matched = matched[start:end]

	views := make([]ports.TransactionView, 0, len(matched))
	for _, t := range matched {
		v := ports.TransactionView{Transaction: t}
		if card, _ := r.cards.GetByID(ctx, t.CardID); card != nil {
			v.CardNumber = card.Number
		}
		if recipient, _ := r.users.GetByID(ctx, t.RecipientID); recipient != nil {
			v.RecipientEmail = recipient.Email
		}
		if cat, _ := r.categories.GetByID(ctx, t.CategoryID); cat != nil {
			v.CategoryName = cat.Name
		}
		views = append(views, v)
	}
	return views, total, nil
}

// --- In-Memory Recurring Repo ---

type inMemoryRecurringRepo struct {
	mu        sync.RWMutex
	templates map[uuid.UUID]*domain.RecurringTransaction
}

func newInMemoryRecurringRepo() *inMemoryRecurringRepo {
	return &inMemoryRecurringRepo{templates: make(map[uuid.UUID]*domain.RecurringTransaction)}
}

func (r *inMemoryRecurringRepo) Create(ctx context.Context, rec *domain.RecurringTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.templates[rec.ID] = &cp
	return nil
}

func (r *inMemoryRecurringRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.RecurringTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.templates[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *inMemoryRecurringRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.RecurringTransaction, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryRecurringRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.RecurringTransaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.RecurringTransaction
	for _, rec := range r.templates {
		if rec.UserID == userID {
			result = append(result, *rec)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].NextExecutionDate.Before(result[j].NextExecutionDate)
	})
	return result, nil
}

func (r *inMemoryRecurringRepo) ListDueIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var due []uuid.UUID
	for _, rec := range r.templates {
		if !rec.NextExecutionDate.After(now) {
			due = append(due, rec.ID)
		}
	}
	return due, nil
}

func (r *inMemoryRecurringRepo) UpdateNextExecution(ctx context.Context, tx pgx.Tx, id uuid.UUID, next time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.templates[id]
	if !ok {
		return fmt.Errorf("recurring transaction not found")
	}
	rec.NextExecutionDate = next
	return nil
}

func (r *inMemoryRecurringRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[id]; !ok {
		return fmt.Errorf("recurring transaction not found")
	}
	delete(r.templates, id)
	return nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, log *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *log)
	return nil
}

// --- In-Memory Transactor (no-op tx) ---

type inMemoryTransactor struct{}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &noopTx{}, nil
}

// noopTx is a no-op pgx.Tx implementation for in-memory testing.
type noopTx struct{}

func (t *noopTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *noopTx) Commit(ctx context.Context) error          { return nil }
func (t *noopTx) Rollback(ctx context.Context) error        { return nil }
func (t *noopTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *noopTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *noopTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *noopTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *noopTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *noopTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *noopTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *noopTx) Conn() *pgx.Conn { return nil }
