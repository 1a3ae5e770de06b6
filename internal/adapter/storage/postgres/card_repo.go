package postgres

import (
	"context"
	"errors"
	"fmt"

	"virtual-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CardRepo implements ports.CardRepository.
type CardRepo struct {
	pool Pool
}

// NewCardRepo creates a new CardRepo.
func NewCardRepo(pool Pool) *CardRepo {
	return &CardRepo{pool: pool}
}

// GetByID fetches a card by UUID.
func (r *CardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	query := `SELECT id, user_id, number, created_at FROM cards WHERE id = $1`

	return r.scanCard(r.pool.QueryRow(ctx, query, id))
}

// GetByNumber fetches a card by its number, scoped to the owning user.
func (r *CardRepo) GetByNumber(ctx context.Context, userID uuid.UUID, number string) (*domain.Card, error) {
	query := `SELECT id, user_id, number, created_at FROM cards WHERE user_id = $1 AND number = $2`

	return r.scanCard(r.pool.QueryRow(ctx, query, userID, number))
}

func (r *CardRepo) scanCard(row pgx.Row) (*domain.Card, error) {
	c := &domain.Card{}
	err := row.Scan(&c.ID, &c.UserID, &c.Number, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan card: %w", err)
	}
	return c, nil
}
