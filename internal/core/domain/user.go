package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity record supplied by the excluded auth collaborator.
// This engine never writes users; it only reads the flags that gate
// money movement.
type User struct {
	ID              uuid.UUID `json:"id"`
	Email           string    `json:"email"`
	PhoneNumber     string    `json:"phone_number,omitempty"`
	IsAdmin         bool      `json:"is_admin"`
	IsBlocked       bool      `json:"is_blocked"`
	IsPhoneVerified bool      `json:"is_phone_verified"`
	CreatedAt       time.Time `json:"created_at"`
}
