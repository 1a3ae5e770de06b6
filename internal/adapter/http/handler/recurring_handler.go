package handler

import (
	"virtual-wallet/internal/adapter/http/dto"
	"virtual-wallet/internal/adapter/http/middleware"
	"virtual-wallet/internal/core/domain"
	"virtual-wallet/internal/core/ports"
	"virtual-wallet/pkg/apperror"
	"virtual-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RecurringHandler handles recurring transaction endpoints.
type RecurringHandler struct {
	recurringSvc ports.RecurringService
}

// NewRecurringHandler creates a new RecurringHandler.
func NewRecurringHandler(recurringSvc ports.RecurringService) *RecurringHandler {
	return &RecurringHandler{recurringSvc: recurringSvc}
}

// Create handles POST /api/v1/recurring-transactions.
func (h *RecurringHandler) Create(c *gin.Context) {
	identity, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateRecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	cardID, _ := uuid.Parse(req.CardID)
	recipientID, _ := uuid.Parse(req.RecipientID)
	categoryID, _ := uuid.Parse(req.CategoryID)

	rec, err := h.recurringSvc.Create(c.Request.Context(), ports.RecurringRequest{
		OwnerID:           identity.UserID,
		CardID:            cardID,
		RecipientID:       recipientID,
		CategoryID:        categoryID,
		Amount:            req.Amount,
		Currency:          domain.Currency(req.Currency),
		Interval:          req.Interval,
		IntervalType:      domain.IntervalType(req.IntervalType),
		NextExecutionDate: req.NextExecutionDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromRecurring(rec))
}

// List handles GET /api/v1/recurring-transactions.
func (h *RecurringHandler) List(c *gin.Context) {
	identity, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	recs, err := h.recurringSvc.List(c.Request.Context(), identity.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.RecurringResponse, 0, len(recs))
	for i := range recs {
		items = append(items, dto.FromRecurring(&recs[i]))
	}
	response.OK(c, items)
}

// Cancel handles DELETE /api/v1/recurring-transactions/:id.
func (h *RecurringHandler) Cancel(c *gin.Context) {
	identity, ok := middleware.Identity(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid recurring transaction id"))
		return
	}

	if err := h.recurringSvc.Cancel(c.Request.Context(), id, identity); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"cancelled": true})
}
