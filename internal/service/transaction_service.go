package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"virtual-wallet/internal/core/domain"
	"virtual-wallet/internal/core/ports"
	"virtual-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// TransactionServiceImpl implements ports.TransactionService.
type TransactionServiceImpl struct {
	txRepo       ports.TransactionRepository
	walletRepo   ports.WalletRepository
	userRepo     ports.UserRepository
	cardRepo     ports.CardRepository
	categoryRepo ports.CategoryRepository
	transactor   ports.DBTransactor
	audit        ports.AuditService
	log          zerolog.Logger
}

// NewTransactionService creates a new TransactionServiceImpl.
func NewTransactionService(
	txRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
	userRepo ports.UserRepository,
	cardRepo ports.CardRepository,
	categoryRepo ports.CategoryRepository,
	transactor ports.DBTransactor,
	audit ports.AuditService,
	log zerolog.Logger,
) *TransactionServiceImpl {
	return &TransactionServiceImpl{
		txRepo:       txRepo,
		walletRepo:   walletRepo,
		userRepo:     userRepo,
		cardRepo:     cardRepo,
		categoryRepo: categoryRepo,
		transactor:   transactor,
		audit:        audit,
		log:          log,
	}
}

// Create validates a transfer request and records a pending transaction.
// No funds move until the transaction is approved.
func (s *TransactionServiceImpl) Create(ctx context.Context, req ports.TransferRequest) (*domain.Transaction, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.ErrInvalidAmount()
	}
	if !req.Currency.IsValid() {
		return nil, apperror.Validation(fmt.Sprintf("unsupported currency: %s", req.Currency))
	}

	sender, err := s.userRepo.GetByID(ctx, req.SenderID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get sender: %w", err))
	}
	if sender == nil {
		return nil, apperror.ErrNotFound("sender")
	}
	if sender.IsBlocked {
		return nil, apperror.ErrSenderBlocked()
	}

	senderWallet, err := s.walletRepo.GetByUser(ctx, sender.ID, req.Currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get sender wallet: %w", err))
	}
	if senderWallet == nil {
		return nil, apperror.ErrNotFound("sender wallet")
	}
	if !senderWallet.CanCover(req.Amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	card, err := s.cardRepo.GetByNumber(ctx, sender.ID, req.CardNumber)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get card: %w", err))
	}
	if card == nil {
		return nil, apperror.ErrNotFound("card")
	}

	recipient, err := s.userRepo.GetByEmail(ctx, req.RecipientEmail)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get recipient: %w", err))
	}
	if recipient == nil {
		return nil, apperror.ErrNotFound("recipient")
	}

	category, err := s.categoryRepo.GetByName(ctx, req.Category)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get category: %w", err))
	}
	if category == nil {
		return nil, apperror.ErrNotFound("category")
	}

	recipientWallet, err := s.walletRepo.GetByUser(ctx, recipient.ID, req.Currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get recipient wallet: %w", err))
	}
	if recipientWallet == nil {
		return nil, apperror.ErrNotFound("recipient wallet")
	}
	if recipientWallet.Currency != senderWallet.Currency {
		return nil, apperror.ErrCurrencyMismatch()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn := &domain.Transaction{
		ID:          uuid.New(),
		Amount:      req.Amount,
		Currency:    req.Currency,
		Timestamp:   time.Now().UTC(),
		CardID:      card.ID,
		SenderID:    sender.ID,
		RecipientID: recipient.ID,
		CategoryID:  category.ID,
		WalletID:    senderWallet.ID,
		Status:      domain.StatusPending,
	}

	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.auditTransition(ctx, &sender.ID, domain.AuditActionCreate, txn)

	s.log.Info().
		Str("transaction_id", txn.ID.String()).
		Str("sender_id", sender.ID.String()).
		Str("recipient_id", recipient.ID.String()).
		Str("amount", txn.Amount.String()).
		Str("currency", string(txn.Currency)).
		Msg("transaction created")

	return txn, nil
}

// Confirm moves a pending transaction to awaiting. Only the sender may
// confirm.
func (s *TransactionServiceImpl) Confirm(ctx context.Context, transactionID uuid.UUID, caller ports.Identity) (*domain.Transaction, error) {
	return s.transition(ctx, transactionID, caller, domain.AuditActionConfirm,
		func(txn *domain.Transaction) error {
			if txn.SenderID != caller.UserID {
				return apperror.ErrForbidden("only the sender can confirm a transaction")
			}
			if txn.Status != domain.StatusPending {
				return apperror.ErrInvalidState(fmt.Sprintf("cannot confirm a %s transaction", txn.Status))
			}
			txn.Status = domain.StatusAwaiting
			return nil
		}, nil)
}

// Approve moves an awaiting transaction to confirmed and transfers the
// funds. Only the recipient may approve. The sender's balance is
// re-checked under lock; if it no longer covers the amount the
// transaction stays awaiting.
func (s *TransactionServiceImpl) Approve(ctx context.Context, transactionID uuid.UUID, caller ports.Identity) (*domain.Transaction, error) {
	return s.transition(ctx, transactionID, caller, domain.AuditActionApprove,
		func(txn *domain.Transaction) error {
			if txn.RecipientID != caller.UserID {
				return apperror.ErrForbidden("only the recipient can approve a transaction")
			}
			if txn.Status != domain.StatusAwaiting {
				return apperror.ErrInvalidState(fmt.Sprintf("cannot approve a %s transaction", txn.Status))
			}
			txn.Status = domain.StatusConfirmed
			return nil
		},
		s.moveFunds)
}

// Reject moves an awaiting transaction to declined without moving funds.
// Only the recipient may reject.
func (s *TransactionServiceImpl) Reject(ctx context.Context, transactionID uuid.UUID, caller ports.Identity) (*domain.Transaction, error) {
	return s.transition(ctx, transactionID, caller, domain.AuditActionReject,
		func(txn *domain.Transaction) error {
			if txn.RecipientID != caller.UserID {
				return apperror.ErrForbidden("only the recipient can reject a transaction")
			}
			if txn.Status != domain.StatusAwaiting {
				return apperror.ErrInvalidState(fmt.Sprintf("cannot reject a %s transaction", txn.Status))
			}
			txn.Status = domain.StatusDeclined
			return nil
		}, nil)
}

// Deny declines a transaction from any non-terminal state. Admin only;
// denying an already settled transaction fails.
func (s *TransactionServiceImpl) Deny(ctx context.Context, transactionID uuid.UUID, caller ports.Identity) (*domain.Transaction, error) {
	if !caller.IsAdmin {
		return nil, apperror.ErrForbidden("admin privileges required")
	}
	return s.transition(ctx, transactionID, caller, domain.AuditActionDeny,
		func(txn *domain.Transaction) error {
			if txn.IsTerminal() {
				return apperror.ErrInvalidState(fmt.Sprintf("cannot deny a %s transaction", txn.Status))
			}
			txn.Status = domain.StatusDeclined
			return nil
		}, nil)
}

// List returns the transactions visible to the caller with filters,
// sorting and pagination applied.
func (s *TransactionServiceImpl) List(ctx context.Context, params ports.TransactionListParams) ([]ports.TransactionView, int64, error) {
	switch params.Direction {
	case "", "incoming", "outgoing":
	default:
		return nil, 0, apperror.Validation(fmt.Sprintf("invalid direction: %s", params.Direction))
	}
	switch params.SortBy {
	case "", "date", "amount":
	default:
		return nil, 0, apperror.Validation(fmt.Sprintf("invalid sort field: %s", params.SortBy))
	}
	if params.Skip < 0 {
		params.Skip = 0
	}
	if params.Limit <= 0 {
		params.Limit = defaultPageSize
	}
	if params.Limit > maxPageSize {
		params.Limit = maxPageSize
	}

	views, total, err := s.txRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return views, total, nil
}

// transition runs a state change under a locked transaction row. The
// check callback validates authorization and sets the new status; the
// optional move callback runs afterwards inside the same database
// transaction.
func (s *TransactionServiceImpl) transition(
	ctx context.Context,
	transactionID uuid.UUID,
	caller ports.Identity,
	action domain.AuditAction,
	check func(*domain.Transaction) error,
	move func(ctx context.Context, dbTx pgx.Tx, txn *domain.Transaction) error,
) (*domain.Transaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.txRepo.GetByIDForUpdate(ctx, dbTx, transactionID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("transaction")
	}

	if err := check(txn); err != nil {
		return nil, err
	}

	if move != nil {
		if err := move(ctx, dbTx, txn); err != nil {
			return nil, err
		}
	}

	if err := s.txRepo.UpdateStatus(ctx, dbTx, txn.ID, txn.Status); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update status: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.auditTransition(ctx, &caller.UserID, action, txn)

	s.log.Info().
		Str("transaction_id", txn.ID.String()).
		Str("status", string(txn.Status)).
		Str("caller_id", caller.UserID.String()).
		Msg("transaction state changed")

	return txn, nil
}

// moveFunds debits the sender and credits the recipient atomically.
// Both wallets are locked for the duration, always in ascending user id
// order so opposing approvals cannot deadlock on each other's rows.
func (s *TransactionServiceImpl) moveFunds(ctx context.Context, dbTx pgx.Tx, txn *domain.Transaction) error {
	lockWallet := func(userID uuid.UUID, role string) (*domain.Wallet, error) {
		w, err := s.walletRepo.GetByUserForUpdate(ctx, dbTx, userID, txn.Currency)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock %s wallet: %w", role, err))
		}
		if w == nil {
			return nil, apperror.ErrNotFound(role + " wallet")
		}
		return w, nil
	}

	var senderWallet, recipientWallet *domain.Wallet
	var err error
	if bytes.Compare(txn.SenderID[:], txn.RecipientID[:]) <= 0 {
		if senderWallet, err = lockWallet(txn.SenderID, "sender"); err != nil {
			return err
		}
		if recipientWallet, err = lockWallet(txn.RecipientID, "recipient"); err != nil {
			return err
		}
	} else {
		if recipientWallet, err = lockWallet(txn.RecipientID, "recipient"); err != nil {
			return err
		}
		if senderWallet, err = lockWallet(txn.SenderID, "sender"); err != nil {
			return err
		}
	}

	if !senderWallet.CanCover(txn.Amount) {
		return apperror.ErrInsufficientFunds()
	}

	if err := s.walletRepo.UpdateBalance(ctx, dbTx, senderWallet.ID, senderWallet.Balance.Sub(txn.Amount)); err != nil {
		return apperror.InternalError(fmt.Errorf("debit sender: %w", err))
	}
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, recipientWallet.ID, recipientWallet.Balance.Add(txn.Amount)); err != nil {
		return apperror.InternalError(fmt.Errorf("credit recipient: %w", err))
	}
	return nil
}

func (s *TransactionServiceImpl) auditTransition(ctx context.Context, actorID *uuid.UUID, action domain.AuditAction, txn *domain.Transaction) {
	s.audit.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		ActorID:      actorID,
		Action:       action,
		ResourceType: "transaction",
		ResourceID:   txn.ID.String(),
		Details:      fmt.Sprintf(`{"status":"%s","amount":"%s","currency":"%s"}`, txn.Status, txn.Amount, txn.Currency),
		CreatedAt:    time.Now().UTC(),
	})
}
