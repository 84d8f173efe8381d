package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	"github.com/settlepay/settlement_service/pkg/logger"
)

// RefundService returns received payments to payers
type RefundService interface {
	Execute(ctx context.Context, req *entities.RefundRequest) (*entities.RefundResult, error)
	GetRefund(ctx context.Context, merchantID string, id uuid.UUID) (*entities.RefundRecord, error)
	GetRefundInfo(ctx context.Context, walletAddress string) (*entities.RefundInfo, error)
}

// RefundHandlers serves merchant refunds
type RefundHandlers struct {
	service   RefundService
	validator *validator.Validate
	logger    *logger.Logger
}

// NewRefundHandlers creates refund handlers
func NewRefundHandlers(service RefundService, logger *logger.Logger) *RefundHandlers {
	return &RefundHandlers{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// CreateRefund handles POST /merchants/:merchantId/refunds
// @Summary Refund a payment
// @Description Sends the payment received on source_address back to destination_address
// @Tags refunds
// @Accept json
// @Produce json
// @Param merchantId path string true "Merchant ID"
// @Success 202 {object} entities.RefundResult
// @Failure 400 {object} entities.ErrorResponse
// @Failure 422 {object} entities.ErrorResponse
// @Router /api/v1/merchants/{merchantId}/refunds [post]
func (h *RefundHandlers) CreateRefund(c *gin.Context) {
	var req entities.RefundRequest
	if !bindJSON(c, &req) {
		return
	}
	req.MerchantID = c.Param("merchantId")
	if !validateRequest(c, h.validator, &req) {
		return
	}

	log := requestLogger(c, h.logger)
	result, err := h.service.Execute(c.Request.Context(), &req)
	if err != nil {
		SendDomainError(c, log, err)
		return
	}

	log.Info("Refund accepted",
		"refund_id", result.RefundID,
		"payment_request_id", result.PaymentRequestID,
		"amount", result.Amount.String())
	c.JSON(http.StatusAccepted, result)
}

// GetRefund handles GET /merchants/:merchantId/refunds/:id
func (h *RefundHandlers) GetRefund(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		SendBadRequest(c, ErrCodeInvalidID, err.Error())
		return
	}

	record, err := h.service.GetRefund(c.Request.Context(), c.Param("merchantId"), id)
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}

	SendSuccess(c, record)
}

// GetRefundInfo handles GET /wallets/:address/refund
func (h *RefundHandlers) GetRefundInfo(c *gin.Context) {
	info, err := h.service.GetRefundInfo(c.Request.Context(), c.Param("address"))
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}

	SendSuccess(c, info)
}
