package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	"github.com/settlepay/settlement_service/pkg/logger"
)

// WalletService manages wallet leases on behalf of callers outside the request lifecycle
type WalletService interface {
	SetExpired(ctx context.Context, address string, blockchain entities.BlockchainType) error
}

// WalletHandlers serves wallet maintenance endpoints
type WalletHandlers struct {
	service   WalletService
	validator *validator.Validate
	logger    *logger.Logger
}

// NewWalletHandlers creates wallet handlers
func NewWalletHandlers(service WalletService, logger *logger.Logger) *WalletHandlers {
	return &WalletHandlers{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// SetExpired handles POST /wallets/expired and releases the wallet lease
func (h *WalletHandlers) SetExpired(c *gin.Context) {
	var req entities.ExpiredWalletRequest
	if !bindJSON(c, &req) || !validateRequest(c, h.validator, &req) {
		return
	}

	if err := h.service.SetExpired(c.Request.Context(), req.WalletAddress, req.Blockchain); err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}

	SendNoContent(c)
}
