package ports

import (
	"context"
	"time"

	"virtual-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// UserRepository reads identity records. Users are owned by the excluded
// auth module; this engine never mutates them.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for
// pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByUser(ctx context.Context, userID uuid.UUID, currency domain.Currency) (*domain.Wallet, error)
	GetByUserForUpdate(ctx context.Context, tx pgx.Tx, userID uuid.UUID, currency domain.Currency) (*domain.Wallet, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error
}

// CardRepository reads payment instrument references.
type CardRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error)
	GetByNumber(ctx context.Context, userID uuid.UUID, number string) (*domain.Card, error)
}

// CategoryRepository reads transaction categories.
type CategoryRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	GetByName(ctx context.Context, name string) (*domain.Category, error)
}

// TransactionRepository defines persistence operations for transactions.
type TransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, transaction *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// GetByIDForUpdate locks the transaction row so concurrent state
	// transitions serialize. Must be called within a transaction.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transaction, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.Status) error
	List(ctx context.Context, params TransactionListParams) ([]TransactionView, int64, error)
}

// TransactionListParams holds visibility, filter and pagination inputs
// for listing transactions. Non-admin callers only ever see transactions
// they sent or received; Direction is interpreted relative to the caller.
type TransactionListParams struct {
	CallerID    uuid.UUID
	IsAdmin     bool
	StartDate   *time.Time
	EndDate     *time.Time
	SenderID    *uuid.UUID
	RecipientID *uuid.UUID
	Direction   string // "incoming", "outgoing" or empty
	SortBy      string // "amount", "date" or empty
	Skip        int
	Limit       int
}

// TransactionView is a transaction joined with its display references.
type TransactionView struct {
	domain.Transaction
	CardNumber     string `json:"card_number"`
	RecipientEmail string `json:"recipient_email"`
	CategoryName   string `json:"category_name"`
}

// RecurringTransactionRepository defines persistence for recurring
// transaction templates.
type RecurringTransactionRepository interface {
	Create(ctx context.Context, rec *domain.RecurringTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RecurringTransaction, error)
	// GetByIDForUpdate locks a due template row for the duration of its
	// sweep unit of work. Rows locked by a concurrent sweep are skipped.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.RecurringTransaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.RecurringTransaction, error)
	ListDueIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	UpdateNextExecution(ctx context.Context, tx pgx.Tx, id uuid.UUID, next time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
