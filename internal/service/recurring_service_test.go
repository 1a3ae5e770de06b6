package service

import (
	"context"
	"testing"
	"time"

	"virtual-wallet/internal/core/domain"
	"virtual-wallet/internal/core/ports"
	"virtual-wallet/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type recurringTestDeps struct {
	svc           *RecurringServiceImpl
	recurringRepo *mocks.MockRecurringTransactionRepository
	txRepo        *mocks.MockTransactionRepository
	walletRepo    *mocks.MockWalletRepository
	userRepo      *mocks.MockUserRepository
	cardRepo      *mocks.MockCardRepository
	categoryRepo  *mocks.MockCategoryRepository
	transactor    *mocks.MockDBTransactor
	audit         *mocks.MockAuditService
	ctrl          *gomock.Controller
}

func setupRecurringService(t *testing.T) *recurringTestDeps {
	ctrl := gomock.NewController(t)
	d := &recurringTestDeps{
		recurringRepo: mocks.NewMockRecurringTransactionRepository(ctrl),
		txRepo:        mocks.NewMockTransactionRepository(ctrl),
		walletRepo:    mocks.NewMockWalletRepository(ctrl),
		userRepo:      mocks.NewMockUserRepository(ctrl),
		cardRepo:      mocks.NewMockCardRepository(ctrl),
		categoryRepo:  mocks.NewMockCategoryRepository(ctrl),
		transactor:    mocks.NewMockDBTransactor(ctrl),
		audit:         mocks.NewMockAuditService(ctrl),
		ctrl:          ctrl,
	}
	d.audit.EXPECT().Log(gomock.Any(), gomock.Any()).AnyTimes()
	d.svc = NewRecurringService(
		d.recurringRepo, d.txRepo, d.walletRepo, d.userRepo, d.cardRepo,
		d.categoryRepo, d.transactor, d.audit, zerolog.Nop(),
	)
	return d
}

func validRecurringRequest(ownerID uuid.UUID) ports.RecurringRequest {
	return ports.RecurringRequest{
		OwnerID:           ownerID,
		CardID:            uuid.New(),
		RecipientID:       uuid.New(),
		CategoryID:        uuid.New(),
		Amount:            decimal.NewFromInt(15),
		Currency:          domain.CurrencyEUR,
		Interval:          1,
		IntervalType:      domain.IntervalMonthly,
		NextExecutionDate: time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestRecurringService_Create_Success(t *testing.T) {
	d := setupRecurringService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ownerID := uuid.New()
	req := validRecurringRequest(ownerID)

	d.userRepo.EXPECT().GetByID(ctx, ownerID).Return(&domain.User{ID: ownerID}, nil)
	d.cardRepo.EXPECT().GetByID(ctx, req.CardID).Return(&domain.Card{ID: req.CardID, UserID: ownerID}, nil)
	d.userRepo.EXPECT().GetByID(ctx, req.RecipientID).Return(&domain.User{ID: req.RecipientID}, nil)
	d.categoryRepo.EXPECT().GetByID(ctx, req.CategoryID).Return(&domain.Category{ID: req.CategoryID}, nil)
	d.walletRepo.EXPECT().GetByUser(ctx, ownerID, domain.CurrencyEUR).Return(
		&domain.Wallet{ID: uuid.New(), UserID: ownerID, Currency: domain.CurrencyEUR}, nil)
	d.walletRepo.EXPECT().GetByUser(ctx, req.RecipientID, domain.CurrencyEUR).Return(
		&domain.Wallet{ID: uuid.New(), UserID: req.RecipientID, Currency: domain.CurrencyEUR}, nil)
	d.recurringRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	rec, err := d.svc.Create(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, ownerID, rec.UserID)
	assert.Equal(t, domain.IntervalMonthly, rec.IntervalType)
	assert.Equal(t, req.NextExecutionDate, rec.NextExecutionDate)
}

func TestRecurringService_Create_InvalidIntervalType(t *testing.T) {
	d := setupRecurringService(t)
	defer d.ctrl.Finish()

	req := validRecurringRequest(uuid.New())
	req.IntervalType = domain.IntervalType("hourly")

	rec, err := d.svc.Create(context.Background(), req)
	assert.Nil(t, rec)
	assertAppError(t, err, "TXN_004")
}

func TestRecurringService_Create_CardNotOwned(t *testing.T) {
	d := setupRecurringService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	ownerID := uuid.New()
	req := validRecurringRequest(ownerID)

	d.userRepo.EXPECT().GetByID(ctx, ownerID).Return(&domain.User{ID: ownerID}, nil)
	// Card belongs to a different user.
	d.cardRepo.EXPECT().GetByID(ctx, req.CardID).Return(&domain.Card{ID: req.CardID, UserID: uuid.New()}, nil)

	rec, err := d.svc.Create(ctx, req)
	assert.Nil(t, rec)
	assertAppError(t, err, "TXN_001")
}

func TestRecurringService_Sweep_ExecutesDueTemplate(t *testing.T) {
	d := setupRecurringService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	tx := &mockTx{}

	rec := &domain.RecurringTransaction{
		ID:                uuid.New(),
		UserID:            uuid.New(),
		CardID:            uuid.New(),
		RecipientID:       uuid.New(),
		CategoryID:        uuid.New(),
		Amount:            decimal.NewFromInt(15),
		Currency:          domain.CurrencyEUR,
		Interval:          1,
		IntervalType:      domain.IntervalDaily,
		NextExecutionDate: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}
	wallet := &domain.Wallet{
		ID: uuid.New(), UserID: rec.UserID,
		Currency: domain.CurrencyEUR, Balance: decimal.NewFromInt(100),
	}

	d.recurringRepo.EXPECT().ListDueIDs(ctx, now).Return([]uuid.UUID{rec.ID}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.recurringRepo.EXPECT().GetByIDForUpdate(ctx, tx, rec.ID).Return(rec, nil)
	d.userRepo.EXPECT().GetByID(ctx, rec.UserID).Return(&domain.User{ID: rec.UserID}, nil)
	d.walletRepo.EXPECT().GetByUser(ctx, rec.UserID, domain.CurrencyEUR).Return(wallet, nil)
	d.cardRepo.EXPECT().GetByID(ctx, rec.CardID).Return(&domain.Card{ID: rec.CardID, UserID: rec.UserID}, nil)
	d.userRepo.EXPECT().GetByID(ctx, rec.RecipientID).Return(&domain.User{ID: rec.RecipientID}, nil)
	d.categoryRepo.EXPECT().GetByID(ctx, rec.CategoryID).Return(&domain.Category{ID: rec.CategoryID}, nil)
	d.walletRepo.EXPECT().GetByUser(ctx, rec.RecipientID, domain.CurrencyEUR).Return(
		&domain.Wallet{ID: uuid.New(), UserID: rec.RecipientID, Currency: domain.CurrencyEUR}, nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ any, txn *domain.Transaction) error {
			assert.Equal(t, domain.StatusPending, txn.Status)
			assert.Equal(t, rec.UserID, txn.SenderID)
			assert.Equal(t, rec.RecipientID, txn.RecipientID)
			assert.Equal(t, wallet.ID, txn.WalletID)
			assert.True(t, txn.Amount.Equal(rec.Amount))
			return nil
		})
	d.recurringRepo.EXPECT().UpdateNextExecution(ctx, tx, rec.ID,
		time.Date(2024, 6, 2, 8, 0, 0, 0, time.UTC)).Return(nil)

	result, err := d.svc.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, ports.SweepResult{Due: 1, Executed: 1}, result)
}

func TestRecurringService_Sweep_SkipsLockedTemplate(t *testing.T) {
	d := setupRecurringService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	now := time.Now().UTC()
	tx := &mockTx{}
	id := uuid.New()

	d.recurringRepo.EXPECT().ListDueIDs(ctx, now).Return([]uuid.UUID{id}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	// Row claimed by a concurrent sweep.
	d.recurringRepo.EXPECT().GetByIDForUpdate(ctx, tx, id).Return(nil, nil)

	result, err := d.svc.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, ports.SweepResult{Due: 1, Skipped: 1}, result)
}

func TestRecurringService_Sweep_ContinuesAfterFailure(t *testing.T) {
	d := setupRecurringService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	now := time.Now().UTC()
	tx := &mockTx{}

	failing := &domain.RecurringTransaction{
		ID:                uuid.New(),
		UserID:            uuid.New(),
		Currency:          domain.CurrencyEUR,
		Amount:            decimal.NewFromInt(5),
		IntervalType:      domain.IntervalDaily,
		NextExecutionDate: now.Add(-time.Hour),
	}
	healthy := &domain.RecurringTransaction{
		ID:                uuid.New(),
		UserID:            uuid.New(),
		CardID:            uuid.New(),
		RecipientID:       uuid.New(),
		CategoryID:        uuid.New(),
		Currency:          domain.CurrencyEUR,
		Amount:            decimal.NewFromInt(5),
		IntervalType:      domain.IntervalDaily,
		NextExecutionDate: now.Add(-time.Hour),
	}

	d.recurringRepo.EXPECT().ListDueIDs(ctx, now).Return([]uuid.UUID{failing.ID, healthy.ID}, nil)

	// First template: owner has no wallet in the template currency.
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.recurringRepo.EXPECT().GetByIDForUpdate(ctx, tx, failing.ID).Return(failing, nil)
	d.userRepo.EXPECT().GetByID(ctx, failing.UserID).Return(&domain.User{ID: failing.UserID}, nil)
	d.walletRepo.EXPECT().GetByUser(ctx, failing.UserID, domain.CurrencyEUR).Return(nil, nil)

	// Second template still executes.
	wallet := &domain.Wallet{
		ID: uuid.New(), UserID: healthy.UserID,
		Currency: domain.CurrencyEUR, Balance: decimal.NewFromInt(50),
	}
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.recurringRepo.EXPECT().GetByIDForUpdate(ctx, tx, healthy.ID).Return(healthy, nil)
	d.userRepo.EXPECT().GetByID(ctx, healthy.UserID).Return(&domain.User{ID: healthy.UserID}, nil)
	d.walletRepo.EXPECT().GetByUser(ctx, healthy.UserID, domain.CurrencyEUR).Return(wallet, nil)
	d.cardRepo.EXPECT().GetByID(ctx, healthy.CardID).Return(&domain.Card{ID: healthy.CardID, UserID: healthy.UserID}, nil)
	d.userRepo.EXPECT().GetByID(ctx, healthy.RecipientID).Return(&domain.User{ID: healthy.RecipientID}, nil)
	d.categoryRepo.EXPECT().GetByID(ctx, healthy.CategoryID).Return(&domain.Category{ID: healthy.CategoryID}, nil)
	d.walletRepo.EXPECT().GetByUser(ctx, healthy.RecipientID, domain.CurrencyEUR).Return(
		&domain.Wallet{ID: uuid.New(), UserID: healthy.RecipientID, Currency: domain.CurrencyEUR}, nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.recurringRepo.EXPECT().UpdateNextExecution(ctx, tx, healthy.ID, gomock.Any()).Return(nil)

	result, err := d.svc.Sweep(ctx, now)
	require.Error(t, err)
	assert.Equal(t, ports.SweepResult{Due: 2, Executed: 1, Failed: 1}, result)
}

func TestRecurringService_Sweep_InsufficientFundsFailsRow(t *testing.T) {
	d := setupRecurringService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	now := time.Now().UTC()
	tx := &mockTx{}

	rec := &domain.RecurringTransaction{
		ID:                uuid.New(),
		UserID:            uuid.New(),
		Currency:          domain.CurrencyEUR,
		Amount:            decimal.NewFromInt(50),
		IntervalType:      domain.IntervalDaily,
		NextExecutionDate: now.Add(-time.Hour),
	}

	d.recurringRepo.EXPECT().ListDueIDs(ctx, now).Return([]uuid.UUID{rec.ID}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.recurringRepo.EXPECT().GetByIDForUpdate(ctx, tx, rec.ID).Return(rec, nil)
	d.userRepo.EXPECT().GetByID(ctx, rec.UserID).Return(&domain.User{ID: rec.UserID}, nil)
	// Balance does not cover the template amount; no transaction may be
	// created and the schedule must stay put for the next sweep.
	d.walletRepo.EXPECT().GetByUser(ctx, rec.UserID, domain.CurrencyEUR).Return(
		&domain.Wallet{ID: uuid.New(), UserID: rec.UserID, Currency: domain.CurrencyEUR, Balance: decimal.NewFromInt(10)}, nil)

	result, err := d.svc.Sweep(ctx, now)
	assert.Equal(t, ports.SweepResult{Due: 1, Failed: 1}, result)
	assertAppError(t, err, "WLT_002")
}

func TestRecurringService_Sweep_BlockedOwnerFailsRow(t *testing.T) {
	d := setupRecurringService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	now := time.Now().UTC()
	tx := &mockTx{}

	rec := &domain.RecurringTransaction{
		ID:                uuid.New(),
		UserID:            uuid.New(),
		Currency:          domain.CurrencyEUR,
		Amount:            decimal.NewFromInt(5),
		IntervalType:      domain.IntervalDaily,
		NextExecutionDate: now.Add(-time.Hour),
	}

	d.recurringRepo.EXPECT().ListDueIDs(ctx, now).Return([]uuid.UUID{rec.ID}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.recurringRepo.EXPECT().GetByIDForUpdate(ctx, tx, rec.ID).Return(rec, nil)
	d.userRepo.EXPECT().GetByID(ctx, rec.UserID).Return(
		&domain.User{ID: rec.UserID, IsBlocked: true}, nil)

	result, err := d.svc.Sweep(ctx, now)
	assert.Equal(t, ports.SweepResult{Due: 1, Failed: 1}, result)
	assertAppError(t, err, "TXN_005")
}

func TestRecurringService_Cancel_NotOwner(t *testing.T) {
	d := setupRecurringService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	recID := uuid.New()

	d.recurringRepo.EXPECT().GetByID(ctx, recID).Return(
		&domain.RecurringTransaction{ID: recID, UserID: uuid.New()}, nil)

	err := d.svc.Cancel(ctx, recID, ports.Identity{UserID: uuid.New()})
	assertAppError(t, err, "TXN_002")
}

func TestRecurringService_Cancel_AdminOverride(t *testing.T) {
	d := setupRecurringService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	recID := uuid.New()

	d.recurringRepo.EXPECT().GetByID(ctx, recID).Return(
		&domain.RecurringTransaction{ID: recID, UserID: uuid.New()}, nil)
	d.recurringRepo.EXPECT().Delete(ctx, recID).Return(nil)

	err := d.svc.Cancel(ctx, recID, ports.Identity{UserID: uuid.New(), IsAdmin: true})
	assert.NoError(t, err)
}
