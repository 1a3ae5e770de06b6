package ports

import (
	"context"
	"time"

	"virtual-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Identity is the authenticated caller supplied by the identity
// collaborator. The engine trusts it without re-authenticating.
type Identity struct {
	UserID  uuid.UUID
	IsAdmin bool
}

// TokenService handles JWT token operations at the identity boundary.
type TokenService interface {
	Generate(userID uuid.UUID, isAdmin bool) (string, time.Time, error)
	Validate(tokenString string) (*Identity, error)
}

// HealthChecker reports the health of an external dependency.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}

// AuditService records audited actions (fire-and-forget).
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// --- Service Ports (Business Logic) ---

// WalletService is the wallet ledger: creation and atomic balance
// mutation of the caller's own wallets.
type WalletService interface {
	Create(ctx context.Context, userID uuid.UUID, currency domain.Currency) (*domain.Wallet, error)
	Deposit(ctx context.Context, userID uuid.UUID, currency domain.Currency, amount decimal.Decimal) (*domain.Wallet, error)
	Withdraw(ctx context.Context, userID uuid.UUID, currency domain.Currency, amount decimal.Decimal) (*domain.Wallet, error)
	Balances(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error)
}

// TransferRequest holds validated input for creating a transaction.
type TransferRequest struct {
	SenderID       uuid.UUID
	Amount         decimal.Decimal
	Currency       domain.Currency
	CardNumber     string
	RecipientEmail string
	Category       string
}

// TransactionService drives the transaction state machine:
// pending -> awaiting -> confirmed/declined, plus the admin deny.
type TransactionService interface {
	Create(ctx context.Context, req TransferRequest) (*domain.Transaction, error)
	Confirm(ctx context.Context, transactionID uuid.UUID, caller Identity) (*domain.Transaction, error)
	Approve(ctx context.Context, transactionID uuid.UUID, caller Identity) (*domain.Transaction, error)
	Reject(ctx context.Context, transactionID uuid.UUID, caller Identity) (*domain.Transaction, error)
	Deny(ctx context.Context, transactionID uuid.UUID, caller Identity) (*domain.Transaction, error)
	List(ctx context.Context, params TransactionListParams) ([]TransactionView, int64, error)
}

// RecurringRequest holds validated input for a recurring template.
// The initial next-execution date is caller-supplied, not computed.
type RecurringRequest struct {
	OwnerID           uuid.UUID
	CardID            uuid.UUID
	RecipientID       uuid.UUID
	CategoryID        uuid.UUID
	Amount            decimal.Decimal
	Currency          domain.Currency
	Interval          int
	IntervalType      domain.IntervalType
	NextExecutionDate time.Time
}

// SweepResult summarizes one sweep pass over due templates.
type SweepResult struct {
	Due      int
	Executed int
	Failed   int
	Skipped  int // locked by a concurrent sweep
}

// RecurringService stores recurring templates and materializes the due
// ones into concrete transactions on each sweep tick.
type RecurringService interface {
	Create(ctx context.Context, req RecurringRequest) (*domain.RecurringTransaction, error)
	Sweep(ctx context.Context, now time.Time) (SweepResult, error)
	Cancel(ctx context.Context, recurringID uuid.UUID, caller Identity) error
	List(ctx context.Context, ownerID uuid.UUID) ([]domain.RecurringTransaction, error)
}
