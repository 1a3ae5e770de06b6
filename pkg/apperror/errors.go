package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Wallet Ledger (WLT) ----

func ErrWalletExists() *AppError {
	return New("WLT_001", "Wallet already exists for this user and currency", http.StatusBadRequest)
}

func ErrInsufficientFunds() *AppError {
	return New("WLT_002", "Insufficient funds", http.StatusBadRequest)
}

func ErrCurrencyMismatch() *AppError {
	return New("WLT_003", "Sender's and recipient's wallets must be in the same currency", http.StatusBadRequest)
}

func ErrPhoneNotVerified() *AppError {
	return New("WLT_004", "A verified phone number is required to open a wallet", http.StatusForbidden)
}

// ---- Transaction Engine (TXN) ----

func ErrNotFound(entity string) *AppError {
	return New("TXN_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

func ErrForbidden(message string) *AppError {
	return New("TXN_002", message, http.StatusForbidden)
}

func ErrInvalidState(message string) *AppError {
	return New("TXN_003", message, http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("TXN_004", "Amount must be positive", http.StatusBadRequest)
}

func ErrSenderBlocked() *AppError {
	return New("TXN_005", "Sender is blocked", http.StatusForbidden)
}

// ---- Authentication boundary (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a TXN_004-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("TXN_004", message, http.StatusBadRequest)
}
