package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"virtual-wallet/internal/core/domain"
	"virtual-wallet/internal/core/ports"
	"virtual-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// errTemplateSkipped marks a due template claimed by a concurrent sweep.
var errTemplateSkipped = errors.New("template locked by another sweep")

// RecurringServiceImpl implements ports.RecurringService.
type RecurringServiceImpl struct {
	recurringRepo ports.RecurringTransactionRepository
	txRepo        ports.TransactionRepository
	walletRepo    ports.WalletRepository
	userRepo      ports.UserRepository
	cardRepo      ports.CardRepository
	categoryRepo  ports.CategoryRepository
	transactor    ports.DBTransactor
	audit         ports.AuditService
	log           zerolog.Logger
}

// NewRecurringService creates a new RecurringServiceImpl.
func NewRecurringService(
	recurringRepo ports.RecurringTransactionRepository,
	txRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
	userRepo ports.UserRepository,
	cardRepo ports.CardRepository,
	categoryRepo ports.CategoryRepository,
	transactor ports.DBTransactor,
	audit ports.AuditService,
	log zerolog.Logger,
) *RecurringServiceImpl {
	return &RecurringServiceImpl{
		recurringRepo: recurringRepo,
		txRepo:        txRepo,
		walletRepo:    walletRepo,
		userRepo:      userRepo,
		cardRepo:      cardRepo,
		categoryRepo:  categoryRepo,
		transactor:    transactor,
		audit:         audit,
		log:           log,
	}
}

// Create validates and stores a recurring transaction template.
func (s *RecurringServiceImpl) Create(ctx context.Context, req ports.RecurringRequest) (*domain.RecurringTransaction, error) {
	if req.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.ErrInvalidAmount()
	}
	if !req.Currency.IsValid() {
		return nil, apperror.Validation(fmt.Sprintf("unsupported currency: %s", req.Currency))
	}
	if !req.IntervalType.IsValid() {
		return nil, apperror.Validation(fmt.Sprintf("invalid interval type: %s", req.IntervalType))
	}
	if req.Interval < 1 {
		return nil, apperror.Validation("interval must be at least 1")
	}
	if req.NextExecutionDate.IsZero() {
		return nil, apperror.Validation("next execution date is required")
	}

	owner, err := s.userRepo.GetByID(ctx, req.OwnerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get owner: %w", err))
	}
	if owner == nil {
		return nil, apperror.ErrNotFound("user")
	}
	if owner.IsBlocked {
		return nil, apperror.ErrSenderBlocked()
	}

	card, err := s.cardRepo.GetByID(ctx, req.CardID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get card: %w", err))
	}
	if card == nil || card.UserID != owner.ID {
		return nil, apperror.ErrNotFound("card")
	}

	recipient, err := s.userRepo.GetByID(ctx, req.RecipientID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get recipient: %w", err))
	}
	if recipient == nil {
		return nil, apperror.ErrNotFound("recipient")
	}

	category, err := s.categoryRepo.GetByID(ctx, req.CategoryID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get category: %w", err))
	}
	if category == nil {
		return nil, apperror.ErrNotFound("category")
	}

	ownerWallet, err := s.walletRepo.GetByUser(ctx, owner.ID, req.Currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get owner wallet: %w", err))
	}
	if ownerWallet == nil {
		return nil, apperror.ErrNotFound("sender wallet")
	}

	recipientWallet, err := s.walletRepo.GetByUser(ctx, recipient.ID, req.Currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get recipient wallet: %w", err))
	}
	if recipientWallet == nil {
		return nil, apperror.ErrNotFound("recipient wallet")
	}

	rec := &domain.RecurringTransaction{
		ID:                uuid.New(),
		UserID:            owner.ID,
		CardID:            card.ID,
		RecipientID:       recipient.ID,
		CategoryID:        category.ID,
		Amount:            req.Amount,
		Currency:          req.Currency,
		Interval:          req.Interval,
		IntervalType:      req.IntervalType,
		NextExecutionDate: req.NextExecutionDate,
	}

	if err := s.recurringRepo.Create(ctx, rec); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create recurring transaction: %w", err))
	}

	s.log.Info().
		Str("recurring_id", rec.ID.String()).
		Str("user_id", owner.ID.String()).
		Str("interval_type", string(rec.IntervalType)).
		Time("next_execution", rec.NextExecutionDate).
		Msg("recurring transaction created")

	return rec, nil
}

// Sweep materializes every due template into a pending transaction and
// advances its schedule. Each template runs in its own database
// transaction; a failing row is recorded and the sweep continues.
func (s *RecurringServiceImpl) Sweep(ctx context.Context, now time.Time) (ports.SweepResult, error) {
	var result ports.SweepResult

	ids, err := s.recurringRepo.ListDueIDs(ctx, now)
	if err != nil {
		return result, apperror.InternalError(fmt.Errorf("list due templates: %w", err))
	}
	result.Due = len(ids)

	var errs []error
	for _, id := range ids {
		if err := s.executeTemplate(ctx, id, now); err != nil {
			if errors.Is(err, errTemplateSkipped) {
				result.Skipped++
				continue
			}
			result.Failed++
			errs = append(errs, fmt.Errorf("template %s: %w", id, err))
			s.log.Warn().Err(err).Str("recurring_id", id.String()).Msg("recurring execution failed")
			continue
		}
		result.Executed++
	}

	if result.Due > 0 {
		s.audit.Log(ctx, &domain.AuditLog{
			ID:           uuid.New(),
			Action:       domain.AuditActionSweep,
			ResourceType: "recurring_transaction",
			Details: fmt.Sprintf(`{"due":%d,"executed":%d,"failed":%d,"skipped":%d}`,
				result.Due, result.Executed, result.Failed, result.Skipped),
			CreatedAt: time.Now().UTC(),
		})
	}

	return result, errors.Join(errs...)
}

// executeTemplate runs one due template in its own unit of work: lock
// the row, run the same validation chain a direct transfer gets, create
// the pending transaction, advance the schedule. A validation failure
// rolls the row back unadvanced so it retries on the next sweep.
func (s *RecurringServiceImpl) executeTemplate(ctx context.Context, id uuid.UUID, now time.Time) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	rec, err := s.recurringRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return fmt.Errorf("lock template: %w", err)
	}
	if rec == nil {
		return errTemplateSkipped
	}
	if rec.NextExecutionDate.After(now) {
		// Already advanced by a sweep that ran between listing and locking.
		return errTemplateSkipped
	}

	owner, err := s.userRepo.GetByID(ctx, rec.UserID)
	if err != nil {
		return fmt.Errorf("get owner: %w", err)
	}
	if owner == nil {
		return apperror.ErrNotFound("sender")
	}
	if owner.IsBlocked {
		return apperror.ErrSenderBlocked()
	}

	wallet, err := s.walletRepo.GetByUser(ctx, rec.UserID, rec.Currency)
	if err != nil {
		return fmt.Errorf("get sender wallet: %w", err)
	}
	if wallet == nil {
		return apperror.ErrNotFound("sender wallet")
	}
	if !wallet.CanCover(rec.Amount) {
		return apperror.ErrInsufficientFunds()
	}

	card, err := s.cardRepo.GetByID(ctx, rec.CardID)
	if err != nil {
		return fmt.Errorf("get card: %w", err)
	}
	if card == nil || card.UserID != rec.UserID {
		return apperror.ErrNotFound("card")
	}

	recipient, err := s.userRepo.GetByID(ctx, rec.RecipientID)
	if err != nil {
		return fmt.Errorf("get recipient: %w", err)
	}
	if recipient == nil {
		return apperror.ErrNotFound("recipient")
	}

	category, err := s.categoryRepo.GetByID(ctx, rec.CategoryID)
	if err != nil {
		return fmt.Errorf("get category: %w", err)
	}
	if category == nil {
		return apperror.ErrNotFound("category")
	}

	recipientWallet, err := s.walletRepo.GetByUser(ctx, rec.RecipientID, rec.Currency)
	if err != nil {
		return fmt.Errorf("get recipient wallet: %w", err)
	}
	if recipientWallet == nil {
		return apperror.ErrNotFound("recipient wallet")
	}
	if recipientWallet.Currency != wallet.Currency {
		return apperror.ErrCurrencyMismatch()
	}

	txn := &domain.Transaction{
		ID:          uuid.New(),
		Amount:      rec.Amount,
		Currency:    rec.Currency,
		Timestamp:   time.Now().UTC(),
		CardID:      rec.CardID,
		SenderID:    rec.UserID,
		RecipientID: rec.RecipientID,
		CategoryID:  rec.CategoryID,
		WalletID:    wallet.ID,
		Status:      domain.StatusPending,
	}

	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}

	if err := s.recurringRepo.UpdateNextExecution(ctx, dbTx, rec.ID, rec.NextExecution()); err != nil {
		return fmt.Errorf("advance schedule: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	s.log.Info().
		Str("recurring_id", rec.ID.String()).
		Str("transaction_id", txn.ID.String()).
		Time("next_execution", rec.NextExecution()).
		Msg("recurring transaction materialized")

	return nil
}

// Cancel removes a recurring template. Only the owner or an admin may
// cancel.
func (s *RecurringServiceImpl) Cancel(ctx context.Context, recurringID uuid.UUID, caller ports.Identity) error {
	rec, err := s.recurringRepo.GetByID(ctx, recurringID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get recurring transaction: %w", err))
	}
	if rec == nil {
		return apperror.ErrNotFound("recurring transaction")
	}
	if rec.UserID != caller.UserID && !caller.IsAdmin {
		return apperror.ErrForbidden("only the owner can cancel a recurring transaction")
	}

	if err := s.recurringRepo.Delete(ctx, recurringID); err != nil {
		return apperror.InternalError(fmt.Errorf("delete recurring transaction: %w", err))
	}

	s.log.Info().
		Str("recurring_id", recurringID.String()).
		Str("caller_id", caller.UserID.String()).
		Msg("recurring transaction cancelled")

	return nil
}

// List returns all recurring templates owned by the user.
func (s *RecurringServiceImpl) List(ctx context.Context, ownerID uuid.UUID) ([]domain.RecurringTransaction, error) {
	recs, err := s.recurringRepo.ListByUser(ctx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list recurring transactions: %w", err))
	}
	return recs, nil
}
