package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a transaction.
//
// The canonical path is pending -> awaiting -> confirmed|declined.
// An admin deny moves pending or awaiting directly to declined.
type Status string

const (
	StatusPending   Status = "pending"   // created, waiting for the sender to confirm
	StatusAwaiting  Status = "awaiting"  // confirmed by the sender, waiting for the recipient
	StatusConfirmed Status = "confirmed" // approved by the recipient, funds moved
	StatusDeclined  Status = "declined"  // rejected or denied, no funds moved
)

// IsTerminal reports whether the status is final.
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusDeclined
}

// Transaction is a single proposed or completed transfer between two
// wallets. Once terminal it is immutable.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    Currency        `json:"currency"`
	Timestamp   time.Time       `json:"timestamp"`
	CardID      uuid.UUID       `json:"card_id"`
	SenderID    uuid.UUID       `json:"sender_id"`
	RecipientID uuid.UUID       `json:"recipient_id"`
	CategoryID  uuid.UUID       `json:"category_id"`
	WalletID    uuid.UUID       `json:"wallet_id"` // sender's wallet at creation time
	Status      Status          `json:"status"`
}

// IsTerminal reports whether the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status.IsTerminal()
}
