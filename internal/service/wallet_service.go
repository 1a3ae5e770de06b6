package service

import (
	"context"
	"fmt"
	"time"

	"virtual-wallet/internal/core/domain"
	"virtual-wallet/internal/core/ports"
	"virtual-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	userRepo   ports.UserRepository
	transactor ports.DBTransactor
	audit      ports.AuditService
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	userRepo ports.UserRepository,
	transactor ports.DBTransactor,
	audit ports.AuditService,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		userRepo:   userRepo,
		transactor: transactor,
		audit:      audit,
		log:        log,
	}
}

// Create opens a new wallet for the user in the given currency. A user
// holds at most one wallet per currency and must have a verified phone
// number.
func (s *WalletServiceImpl) Create(ctx context.Context, userID uuid.UUID, currency domain.Currency) (*domain.Wallet, error) {
	if !currency.IsValid() {
		return nil, apperror.Validation(fmt.Sprintf("unsupported currency: %s", currency))
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrNotFound("user")
	}
	if !user.IsPhoneVerified {
		return nil, apperror.ErrPhoneNotVerified()
	}

	existing, err := s.walletRepo.GetByUser(ctx, userID, currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check existing wallet: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrWalletExists()
	}

	now := time.Now().UTC()
	wallet := &domain.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Currency:  currency,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("user_id", userID.String()).
		Str("currency", string(currency)).
		Msg("wallet created")

	return wallet, nil
}

// Deposit adds funds to the caller's wallet in the given currency.
func (s *WalletServiceImpl) Deposit(ctx context.Context, userID uuid.UUID, currency domain.Currency, amount decimal.Decimal) (*domain.Wallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByUserForUpdate(ctx, dbTx, userID, currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	wallet.Balance = wallet.Balance.Add(amount)
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, wallet.Balance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.audit.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		ActorID:      &userID,
		Action:       domain.AuditActionDeposit,
		ResourceType: "wallet",
		ResourceID:   wallet.ID.String(),
		Details:      fmt.Sprintf(`{"amount":"%s","currency":"%s"}`, amount, currency),
		CreatedAt:    time.Now().UTC(),
	})

	return wallet, nil
}

// Withdraw removes funds from the caller's wallet in the given currency.
func (s *WalletServiceImpl) Withdraw(ctx context.Context, userID uuid.UUID, currency domain.Currency, amount decimal.Decimal) (*domain.Wallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperror.ErrInvalidAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	wallet, err := s.walletRepo.GetByUserForUpdate(ctx, dbTx, userID, currency)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	if !wallet.CanCover(amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	wallet.Balance = wallet.Balance.Sub(amount)
	if err := s.walletRepo.UpdateBalance(ctx, dbTx, wallet.ID, wallet.Balance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.audit.Log(ctx, &domain.AuditLog{
		ID:           uuid.New(),
		ActorID:      &userID,
		Action:       domain.AuditActionWithdraw,
		ResourceType: "wallet",
		ResourceID:   wallet.ID.String(),
		Details:      fmt.Sprintf(`{"amount":"%s","currency":"%s"}`, amount, currency),
		CreatedAt:    time.Now().UTC(),
	})

	return wallet, nil
}

// Balances returns all wallets owned by the user.
func (s *WalletServiceImpl) Balances(ctx context.Context, userID uuid.UUID) ([]domain.Wallet, error) {
	wallets, err := s.walletRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list wallets: %w", err))
	}
	if len(wallets) == 0 {
		return nil, apperror.ErrNotFound("wallet")
	}
	return wallets, nil
}
