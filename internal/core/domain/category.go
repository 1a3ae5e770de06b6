package domain

import "github.com/google/uuid"

// Category labels a transaction for reporting (e.g. "rent", "groceries").
type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
