package postgres

import (
	"context"
	"errors"
	"fmt"

	"virtual-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CategoryRepo implements ports.CategoryRepository.
type CategoryRepo struct {
	pool Pool
}

// NewCategoryRepo creates a new CategoryRepo.
func NewCategoryRepo(pool Pool) *CategoryRepo {
	return &CategoryRepo{pool: pool}
}

// GetByID fetches a category by UUID.
func (r *CategoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	query := `SELECT id, name FROM categories WHERE id = $1`

	return r.scanCategory(r.pool.QueryRow(ctx, query, id))
}

// GetByName fetches a category by its unique name.
func (r *CategoryRepo) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	query := `SELECT id, name FROM categories WHERE name = $1`

	return r.scanCategory(r.pool.QueryRow(ctx, query, name))
}

func (r *CategoryRepo) scanCategory(row pgx.Row) (*domain.Category, error) {
	c := &domain.Category{}
	err := row.Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan category: %w", err)
	}
	return c, nil
}
