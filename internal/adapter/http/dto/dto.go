package dto

import (
	"time"

	"virtual-wallet/internal/core/domain"
	"virtual-wallet/internal/core/ports"

	"github.com/shopspring/decimal"
)

// CreateWalletRequest is the request body for opening a wallet.
type CreateWalletRequest struct {
	Currency string `json:"currency" binding:"required,min=3,max=4"`
}

// AmountRequest is the request body for deposits and withdrawals.
type AmountRequest struct {
	Currency string          `json:"currency" binding:"required,min=3,max=4"`
	Amount   decimal.Decimal `json:"amount" binding:"required"`
}

// WalletResponse is the response body for wallet results.
type WalletResponse struct {
	ID        string `json:"id"`
	Currency  string `json:"currency"`
	Balance   string `json:"balance"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// CreateTransactionRequest is the request body for creating a transfer.
type CreateTransactionRequest struct {
	Amount         decimal.Decimal `json:"amount" binding:"required"`
	Currency       string          `json:"currency" binding:"required,min=3,max=4"`
	CardNumber     string          `json:"card_number" binding:"required,min=8,max=19"`
	RecipientEmail string          `json:"recipient_email" binding:"required,email"`
	Category       string          `json:"category" binding:"required,min=1,max=100"`
}

// TransactionResponse is the response body for transaction results.
type TransactionResponse struct {
	ID             string `json:"id"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Timestamp      string `json:"timestamp"`
	SenderID       string `json:"sender_id"`
	RecipientID    string `json:"recipient_id"`
	Status         string `json:"status"`
	CardNumber     string `json:"card_number,omitempty"`
	RecipientEmail string `json:"recipient_email,omitempty"`
	CategoryName   string `json:"category_name,omitempty"`
}

// TransactionListResponse wraps a paginated transaction list.
type TransactionListResponse struct {
	Items []TransactionResponse `json:"items"`
	Total int64                 `json:"total"`
	Skip  int                   `json:"skip"`
	Limit int                   `json:"limit"`
}

// CreateRecurringRequest is the request body for a recurring template.
type CreateRecurringRequest struct {
	CardID            string          `json:"card_id" binding:"required,uuid"`
	RecipientID       string          `json:"recipient_id" binding:"required,uuid"`
	CategoryID        string          `json:"category_id" binding:"required,uuid"`
	Amount            decimal.Decimal `json:"amount" binding:"required"`
	Currency          string          `json:"currency" binding:"required,min=3,max=4"`
	Interval          int             `json:"interval" binding:"required,gte=1"`
	IntervalType      string          `json:"interval_type" binding:"required,oneof=daily weekly monthly"`
	NextExecutionDate time.Time       `json:"next_execution_date" binding:"required"`
}

// RecurringResponse is the response body for recurring template results.
type RecurringResponse struct {
	ID                string `json:"id"`
	CardID            string `json:"card_id"`
	RecipientID       string `json:"recipient_id"`
	CategoryID        string `json:"category_id"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	Interval          int    `json:"interval"`
	IntervalType      string `json:"interval_type"`
	NextExecutionDate string `json:"next_execution_date"`
}

// FromWallet maps a domain wallet to its response shape.
func FromWallet(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		ID:        w.ID.String(),
		Currency:  string(w.Currency),
		Balance:   w.Balance.String(),
		CreatedAt: w.CreatedAt.Format(time.RFC3339),
		UpdatedAt: w.UpdatedAt.Format(time.RFC3339),
	}
}

// FromTransaction maps a domain transaction to its response shape.
func FromTransaction(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          t.ID.String(),
		Amount:      t.Amount.String(),
		Currency:    string(t.Currency),
		Timestamp:   t.Timestamp.Format(time.RFC3339),
		SenderID:    t.SenderID.String(),
		RecipientID: t.RecipientID.String(),
		Status:      string(t.Status),
	}
}

// FromTransactionView maps a joined transaction view to its response shape.
func FromTransactionView(v ports.TransactionView) TransactionResponse {
	resp := FromTransaction(&v.Transaction)
	resp.CardNumber = v.CardNumber
	resp.RecipientEmail = v.RecipientEmail
	resp.CategoryName = v.CategoryName
	return resp
}

// FromRecurring maps a domain recurring template to its response shape.
func FromRecurring(r *domain.RecurringTransaction) RecurringResponse {
	return RecurringResponse{
		ID:                r.ID.String(),
		CardID:            r.CardID.String(),
		RecipientID:       r.RecipientID.String(),
		CategoryID:        r.CategoryID.String(),
		Amount:            r.Amount.String(),
		Currency:          string(r.Currency),
		Interval:          r.Interval,
		IntervalType:      string(r.IntervalType),
		NextExecutionDate: r.NextExecutionDate.Format(time.RFC3339),
	}
}
