package handler

import (
	"context"
	"strconv"
	"time"

	"virtual-wallet/internal/adapter/http/dto"
	"virtual-wallet/internal/adapter/http/middleware"
	"virtual-wallet/internal/core/domain"
	"virtual-wallet/internal/core/ports"
	"virtual-wallet/pkg/apperror"
	"virtual-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransactionHandler handles transaction lifecycle endpoints.
type TransactionHandler struct {
	txSvc ports.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(txSvc ports.TransactionService) *TransactionHandler {
	return &TransactionHandler{txSvc: txSvc}
}

// Create handles POST /api/v1/transactions.
func (h *TransactionHandler) Create(c *gin.Context) {
	identity, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	txn, err := h.txSvc.Create(c.Request.Context(), ports.TransferRequest{
		SenderID:       identity.UserID,
		Amount:         req.Amount,
		Currency:       domain.Currency(req.Currency),
		CardNumber:     req.CardNumber,
		RecipientEmail: req.RecipientEmail,
		Category:       req.Category,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromTransaction(txn))
}

// Confirm handles PUT /api/v1/transactions/:id/confirm.
func (h *TransactionHandler) Confirm(c *gin.Context) {
	h.transition(c, h.txSvc.Confirm)
}

// Approve handles PUT /api/v1/transactions/:id/approve.
func (h *TransactionHandler) Approve(c *gin.Context) {
	h.transition(c, h.txSvc.Approve)
}

// Reject handles PUT /api/v1/transactions/:id/reject.
func (h *TransactionHandler) Reject(c *gin.Context) {
	h.transition(c, h.txSvc.Reject)
}

// Deny handles PUT /api/v1/transactions/:id/deny (admin only).
func (h *TransactionHandler) Deny(c *gin.Context) {
	h.transition(c, h.txSvc.Deny)
}

// List handles GET /api/v1/transactions.
func (h *TransactionHandler) List(c *gin.Context) {
	identity, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	params := ports.TransactionListParams{
		CallerID:  identity.UserID,
		IsAdmin:   identity.IsAdmin,
		Direction: c.Query("direction"),
		SortBy:    c.Query("sort_by"),
	}

	if v := c.Query("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(c, apperror.Validation("invalid start_date, expected RFC3339"))
			return
		}
		params.StartDate = &t
	}
	if v := c.Query("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(c, apperror.Validation("invalid end_date, expected RFC3339"))
			return
		}
		params.EndDate = &t
	}
	if v := c.Query("sender_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.Error(c, apperror.Validation("invalid sender_id"))
			return
		}
		params.SenderID = &id
	}
	if v := c.Query("recipient_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.Error(c, apperror.Validation("invalid recipient_id"))
			return
		}
		params.RecipientID = &id
	}
	if v := c.Query("skip"); v != "" {
		params.Skip, _ = strconv.Atoi(v)
	}
	if v := c.Query("limit"); v != "" {
		params.Limit, _ = strconv.Atoi(v)
	}

	views, total, err := h.txSvc.List(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(views))
	for _, v := range views {
		items = append(items, dto.FromTransactionView(v))
	}
	response.OK(c, dto.TransactionListResponse{
		Items: items,
		Total: total,
		Skip:  params.Skip,
		Limit: params.Limit,
	})
}

func (h *TransactionHandler) transition(
	c *gin.Context,
	op func(ctx context.Context, id uuid.UUID, caller ports.Identity) (*domain.Transaction, error),
) {
	identity, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid transaction id"))
		return
	}

	txn, err := op(c.Request.Context(), id, identity)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromTransaction(txn))
}
