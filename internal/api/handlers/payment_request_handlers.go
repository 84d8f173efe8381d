package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	"github.com/settlepay/settlement_service/internal/domain/services/paymentrequest"
	"github.com/settlepay/settlement_service/pkg/logger"
)

// PaymentRequestService is the payment request lifecycle used by the API
type PaymentRequestService interface {
	Create(ctx context.Context, cmd *entities.CreatePaymentRequestCommand) (*entities.PaymentRequest, error)
	Get(ctx context.Context, merchantID string, id uuid.UUID) (*entities.PaymentRequest, error)
	GetByMerchant(ctx context.Context, merchantID string) ([]*entities.PaymentRequest, error)
	FindByWallet(ctx context.Context, walletAddress string) (*entities.PaymentRequest, error)
	Checkout(ctx context.Context, merchantID string, id uuid.UUID, force bool) (*paymentrequest.CheckoutResult, error)
	UpdateStatus(ctx context.Context, walletAddress string, explicit *entities.StatusInfo) error
	HandleExpired(ctx context.Context) (*paymentrequest.SweepResult, error)
	Cancel(ctx context.Context, merchantID string, id uuid.UUID) (*entities.PaymentRequest, error)
	GetOrder(ctx context.Context, merchantID string, id, orderID uuid.UUID) (*entities.Order, error)
	GetNotExpiredWallets(ctx context.Context) ([]*entities.WalletState, error)
}

// PaymentRequestHandlers serves merchant payment requests and checkout
type PaymentRequestHandlers struct {
	service   PaymentRequestService
	validator *validator.Validate
	logger    *logger.Logger
}

// NewPaymentRequestHandlers creates payment request handlers
func NewPaymentRequestHandlers(service PaymentRequestService, logger *logger.Logger) *PaymentRequestHandlers {
	return &PaymentRequestHandlers{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// CreatePaymentRequest handles POST /merchants/:merchantId/paymentrequests
// @Summary Create payment request
// @Tags paymentrequests
// @Accept json
// @Produce json
// @Param merchantId path string true "Merchant ID"
// @Success 201 {object} entities.PaymentRequest
// @Failure 400 {object} entities.ErrorResponse
// @Router /api/v1/merchants/{merchantId}/paymentrequests [post]
func (h *PaymentRequestHandlers) CreatePaymentRequest(c *gin.Context) {
	var cmd entities.CreatePaymentRequestCommand
	if !bindJSON(c, &cmd) {
		return
	}
	cmd.MerchantID = c.Param("merchantId")
	if !validateRequest(c, h.validator, &cmd) {
		return
	}

	pr, err := h.service.Create(c.Request.Context(), &cmd)
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}

	SendCreated(c, pr)
}

// ListPaymentRequests handles GET /merchants/:merchantId/paymentrequests
func (h *PaymentRequestHandlers) ListPaymentRequests(c *gin.Context) {
	prs, err := h.service.GetByMerchant(c.Request.Context(), c.Param("merchantId"))
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}
	if prs == nil {
		prs = []*entities.PaymentRequest{}
	}

	SendSuccess(c, prs)
}

// GetPaymentRequest handles GET /merchants/:merchantId/paymentrequests/:id
func (h *PaymentRequestHandlers) GetPaymentRequest(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		SendBadRequest(c, ErrCodeInvalidID, err.Error())
		return
	}

	pr, err := h.service.Get(c.Request.Context(), c.Param("merchantId"), id)
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}

	SendSuccess(c, pr)
}

// Checkout handles POST /merchants/:merchantId/paymentrequests/:id/checkout
// @Summary Checkout payment request
// @Description Binds a wallet and a rate-locked order. force=true prices a new order.
// @Tags paymentrequests
// @Produce json
// @Param merchantId path string true "Merchant ID"
// @Param id path string true "Payment request ID"
// @Param force query bool false "Force a new order"
// @Success 200 {object} entities.CheckoutResponse
// @Failure 404 {object} entities.ErrorResponse
// @Failure 409 {object} entities.ErrorResponse
// @Router /api/v1/merchants/{merchantId}/paymentrequests/{id}/checkout [post]
func (h *PaymentRequestHandlers) Checkout(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		SendBadRequest(c, ErrCodeInvalidID, err.Error())
		return
	}
	force := parseBoolParam(c, "force", false)

	result, err := h.service.Checkout(c.Request.Context(), c.Param("merchantId"), id, force)
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}

	SendSuccess(c, entities.CheckoutResponse{
		PaymentRequest: result.PaymentRequest,
		Order:          result.Order,
	})
}

// Cancel handles POST /merchants/:merchantId/paymentrequests/:id/cancel.
// Requests that already received a payment cannot be cancelled.
func (h *PaymentRequestHandlers) Cancel(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		SendBadRequest(c, ErrCodeInvalidID, err.Error())
		return
	}

	pr, err := h.service.Cancel(c.Request.Context(), c.Param("merchantId"), id)
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}

	SendSuccess(c, pr)
}

// GetOrder handles GET /merchants/:merchantId/paymentrequests/:id/orders/:orderId
func (h *PaymentRequestHandlers) GetOrder(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		SendBadRequest(c, ErrCodeInvalidID, err.Error())
		return
	}
	orderID, err := parseUUIDParam(c, "orderId")
	if err != nil {
		SendBadRequest(c, ErrCodeInvalidID, err.Error())
		return
	}

	order, err := h.service.GetOrder(c.Request.Context(), c.Param("merchantId"), id, orderID)
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}

	SendSuccess(c, order)
}

// NotExpiredWallets handles GET /wallets/not-expired
func (h *PaymentRequestHandlers) NotExpiredWallets(c *gin.Context) {
	wallets, err := h.service.GetNotExpiredWallets(c.Request.Context())
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}
	if wallets == nil {
		wallets = []*entities.WalletState{}
	}

	SendSuccess(c, wallets)
}

// GetByWallet handles GET /wallets/:address/paymentrequest
func (h *PaymentRequestHandlers) GetByWallet(c *gin.Context) {
	pr, err := h.service.FindByWallet(c.Request.Context(), c.Param("address"))
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}

	SendSuccess(c, pr)
}

// RefreshStatus handles POST /wallets/:address/status, recomputing the status
// of the request bound to the wallet from its transactions
func (h *PaymentRequestHandlers) RefreshStatus(c *gin.Context) {
	address := c.Param("address")
	if err := h.service.UpdateStatus(c.Request.Context(), address, nil); err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}

	pr, err := h.service.FindByWallet(c.Request.Context(), address)
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}

	SendSuccess(c, pr)
}

// SweepExpired handles POST /maintenance/expired and runs one expiration sweep
func (h *PaymentRequestHandlers) SweepExpired(c *gin.Context) {
	result, err := h.service.HandleExpired(c.Request.Context())
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}

	SendSuccess(c, entities.SweepResponse{
		Expired:  result.Expired,
		Released: result.Released,
		Failed:   result.Failed,
	})
}
