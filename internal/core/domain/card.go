package domain

import (
	"time"

	"github.com/google/uuid"
)

// Card is a payment instrument reference owned by a user. Card lifecycle
// is managed by the excluded card module; transactions only record which
// card funded them.
type Card struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Number    string    `json:"number"`
	CreatedAt time.Time `json:"created_at"`
}
