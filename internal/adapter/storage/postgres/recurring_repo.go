package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"virtual-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RecurringRepo implements ports.RecurringTransactionRepository.
type RecurringRepo struct {
	pool Pool
}

// NewRecurringRepo creates a new RecurringRepo.
func NewRecurringRepo(pool Pool) *RecurringRepo {
	return &RecurringRepo{pool: pool}
}

// Create inserts a new recurring transaction template.
func (r *RecurringRepo) Create(ctx context.Context, rec *domain.RecurringTransaction) error {
	query := `INSERT INTO recurring_transactions (id, user_id, card_id, recipient_id, category_id, amount, currency, interval, interval_type, next_execution_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.UserID, rec.CardID, rec.RecipientID, rec.CategoryID,
		rec.Amount, rec.Currency, rec.Interval, rec.IntervalType, rec.NextExecutionDate,
	)
	if err != nil {
		return fmt.Errorf("insert recurring transaction: %w", err)
	}
	return nil
}

// GetByID fetches a recurring template by UUID.
func (r *RecurringRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.RecurringTransaction, error) {
	query := `SELECT id, user_id, card_id, recipient_id, category_id, amount, currency, interval, interval_type, next_execution_date
		FROM recurring_transactions WHERE id = $1`

	return r.scanRecurring(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate fetches a due template row and locks it for the
// duration of its sweep unit of work. SKIP LOCKED makes rows claimed by
// a concurrent sweep come back as not found instead of blocking.
func (r *RecurringRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.RecurringTransaction, error) {
	query := `SELECT id, user_id, card_id, recipient_id, category_id, amount, currency, interval, interval_type, next_execution_date
		FROM recurring_transactions WHERE id = $1 FOR UPDATE SKIP LOCKED`

	return r.scanRecurring(tx.QueryRow(ctx, query, id))
}

// ListByUser fetches all recurring templates owned by a user.
func (r *RecurringRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.RecurringTransaction, error) {
	query := `SELECT id, user_id, card_id, recipient_id, category_id, amount, currency, interval, interval_type, next_execution_date
		FROM recurring_transactions WHERE user_id = $1 ORDER BY next_execution_date`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list recurring transactions: %w", err)
	}
	defer rows.Close()

	var recs []domain.RecurringTransaction
	for rows.Next() {
		rec := domain.RecurringTransaction{}
		err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.CardID, &rec.RecipientID, &rec.CategoryID,
			&rec.Amount, &rec.Currency, &rec.Interval, &rec.IntervalType, &rec.NextExecutionDate,
		)
		if err != nil {
			return nil, fmt.Errorf("scan recurring row: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recurring rows: %w", err)
	}
	return recs, nil
}

// ListDueIDs returns the IDs of templates whose next execution date has
// passed. IDs only; each row is re-read under lock inside its own unit
// of work.
func (r *RecurringRepo) ListDueIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `SELECT id FROM recurring_transactions WHERE next_execution_date <= $1 ORDER BY next_execution_date`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("list due recurring ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan due id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due ids: %w", err)
	}
	return ids, nil
}

// UpdateNextExecution advances a template's next execution date within a
// database transaction.
func (r *RecurringRepo) UpdateNextExecution(ctx context.Context, tx pgx.Tx, id uuid.UUID, next time.Time) error {
	query := `UPDATE recurring_transactions SET next_execution_date = $1 WHERE id = $2`

	tag, err := tx.Exec(ctx, query, next, id)
	if err != nil {
		return fmt.Errorf("update next execution: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("recurring transaction not found: %s", id)
	}
	return nil
}

// Delete removes a recurring template.
func (r *RecurringRepo) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM recurring_transactions WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete recurring transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("recurring transaction not found: %s", id)
	}
	return nil
}

func (r *RecurringRepo) scanRecurring(row pgx.Row) (*domain.RecurringTransaction, error) {
	rec := &domain.RecurringTransaction{}
	err := row.Scan(
		&rec.ID, &rec.UserID, &rec.CardID, &rec.RecipientID, &rec.CategoryID,
		&rec.Amount, &rec.Currency, &rec.Interval, &rec.IntervalType, &rec.NextExecutionDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan recurring transaction: %w", err)
	}
	return rec, nil
}
