package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"virtual-wallet/internal/core/domain"
	"virtual-wallet/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new TransactionRepo.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

// Create inserts a new transaction within a database transaction.
func (r *TransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.Transaction) error {
	query := `INSERT INTO transactions (id, amount, currency, timestamp, card_id, sender_id, recipient_id, category_id, wallet_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.Amount, t.Currency, t.Timestamp,
		t.CardID, t.SenderID, t.RecipientID, t.CategoryID, t.WalletID, t.Status,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by UUID.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT id, amount, currency, timestamp, card_id, sender_id, recipient_id, category_id, wallet_id, status
		FROM transactions WHERE id = $1`

	return r.scanTransaction(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a transaction by UUID with pessimistic locking
// so concurrent state transitions serialize. This MUST be called within a
// transaction.
func (r *TransactionRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT id, amount, currency, timestamp, card_id, sender_id, recipient_id, category_id, wallet_id, status
		FROM transactions WHERE id = $1 FOR UPDATE`

	return r.scanTransaction(tx.QueryRow(ctx, query, id))
}

// UpdateStatus updates a transaction's status within a database transaction.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.Status) error {
	query := `UPDATE transactions SET status = $1 WHERE id = $2`

	tag, err := tx.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction not found: %s", id)
	}
	return nil
}

// List fetches transactions visible to the caller with filtering,
// sorting and pagination. Non-admin callers only see transactions they
// sent or received.
func (r *TransactionRepo) List(ctx context.Context, params ports.TransactionListParams) ([]ports.TransactionView, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	addArg := func(cond string, value any) {
		conditions = append(conditions, fmt.Sprintf(cond, argIdx))
		args = append(args, value)
		argIdx++
	}

	if !params.IsAdmin {
		addArg("(t.sender_id = $%[1]d OR t.recipient_id = $%[1]d)", params.CallerID)
	}

	switch params.Direction {
	case "incoming":
		addArg("t.recipient_id = $%d", params.CallerID)
	case "outgoing":
		addArg("t.sender_id = $%d", params.CallerID)
	}

	if params.StartDate != nil {
		addArg("t.timestamp >= $%d", *params.StartDate)
	}
	if params.EndDate != nil {
		addArg("t.timestamp <= $%d", *params.EndDate)
	}
	if params.SenderID != nil {
		addArg("t.sender_id = $%d", *params.SenderID)
	}
	if params.RecipientID != nil {
		addArg("t.recipient_id = $%d", *params.RecipientID)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM transactions t %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	orderBy := "t.timestamp DESC"
	if params.SortBy == "amount" {
		orderBy = "t.amount DESC"
	}

	dataQuery := fmt.Sprintf(`SELECT t.id, t.amount, t.currency, t.timestamp,
		t.card_id, t.sender_id, t.recipient_id, t.category_id, t.wallet_id, t.status,
		c.number, u.email, cat.name
		FROM transactions t
		JOIN cards c ON c.id = t.card_id
		JOIN users u ON u.id = t.recipient_id
		JOIN categories cat ON cat.id = t.category_id
		%s ORDER BY %s LIMIT $%d OFFSET $%d`, where, orderBy, argIdx, argIdx+1)
	args = append(args, params.Limit, params.Skip)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var views []ports.TransactionView
	for rows.Next() {
		v := ports.TransactionView{}
		err := rows.Scan(
			&v.ID, &v.Amount, &v.Currency, &v.Timestamp,
			&v.CardID, &v.SenderID, &v.RecipientID, &v.CategoryID, &v.WalletID, &v.Status,
			&v.CardNumber, &v.RecipientEmail, &v.CategoryName,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction row: %w", err)
		}
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return views, total, nil
}

func (r *TransactionRepo) scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	t := &domain.Transaction{}
	err := row.Scan(
		&t.ID, &t.Amount, &t.Currency, &t.Timestamp,
		&t.CardID, &t.SenderID, &t.RecipientID, &t.CategoryID, &t.WalletID, &t.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}
