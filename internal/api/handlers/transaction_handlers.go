package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	"github.com/settlepay/settlement_service/pkg/logger"
)

// TransactionService ingests observed blockchain transactions
type TransactionService interface {
	Create(ctx context.Context, cmd *entities.CreateTransactionCommand) (*entities.PaymentRequestTransaction, error)
	Update(ctx context.Context, cmd *entities.UpdateTransactionCommand) (*entities.PaymentRequestTransaction, error)
	ReportTransfer(ctx context.Context, cmd *entities.TransferReportCommand) (*entities.PaymentRequestTransaction, error)
}

// TransactionHandlers receives transaction observations from chain watchers
type TransactionHandlers struct {
	service   TransactionService
	validator *validator.Validate
	logger    *logger.Logger
}

// NewTransactionHandlers creates transaction handlers
func NewTransactionHandlers(service TransactionService, logger *logger.Logger) *TransactionHandlers {
	return &TransactionHandlers{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// CreateTransaction handles POST /transactions
// @Summary Ingest a transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Success 200 {object} entities.PaymentRequestTransaction
// @Failure 400 {object} entities.ErrorResponse
// @Router /api/v1/transactions [post]
func (h *TransactionHandlers) CreateTransaction(c *gin.Context) {
	var cmd entities.CreateTransactionCommand
	if !bindJSON(c, &cmd) || !validateRequest(c, h.validator, &cmd) {
		return
	}

	tx, err := h.service.Create(c.Request.Context(), &cmd)
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}
	SendSuccess(c, tx)
}

// UpdateTransaction handles PUT /transactions
func (h *TransactionHandlers) UpdateTransaction(c *gin.Context) {
	var cmd entities.UpdateTransactionCommand
	if !bindJSON(c, &cmd) || !validateRequest(c, h.validator, &cmd) {
		return
	}

	tx, err := h.service.Update(c.Request.Context(), &cmd)
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}
	SendSuccess(c, tx)
}

// UpdateTransferStatus handles POST /transfer/updateStatus, attaching the chain
// hash to a transfer the node accepted under an operation id
func (h *TransactionHandlers) UpdateTransferStatus(c *gin.Context) {
	var cmd entities.TransferReportCommand
	if !bindJSON(c, &cmd) || !validateRequest(c, h.validator, &cmd) {
		return
	}

	tx, err := h.service.ReportTransfer(c.Request.Context(), &cmd)
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}
	SendSuccess(c, tx)
}
