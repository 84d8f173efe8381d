package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	"github.com/settlepay/settlement_service/pkg/logger"
)

// AssetAvailabilityService decides which assets merchants may pay and settle in
type AssetAvailabilityService interface {
	ResolveSettlement(ctx context.Context, merchantID string) ([]string, error)
	ResolvePayment(ctx context.Context, merchantID, settlementAssetID string) ([]string, error)
	GetGeneral(ctx context.Context, t entities.AssetAvailabilityType) ([]*entities.AssetAvailability, error)
	SetGeneral(ctx context.Context, cmd *entities.SetGeneralAvailabilityCommand) (*entities.AssetAvailability, error)
	GetPersonal(ctx context.Context, merchantID string) (*entities.AssetAvailabilityByMerchant, error)
	SetPersonal(ctx context.Context, merchantID string, cmd *entities.SetPersonalAvailabilityCommand) (*entities.AssetAvailabilityByMerchant, error)
}

// AssetAvailabilityHandlers serves asset availability settings
type AssetAvailabilityHandlers struct {
	service   AssetAvailabilityService
	validator *validator.Validate
	logger    *logger.Logger
}

// NewAssetAvailabilityHandlers creates asset availability handlers
func NewAssetAvailabilityHandlers(service AssetAvailabilityService, logger *logger.Logger) *AssetAvailabilityHandlers {
	return &AssetAvailabilityHandlers{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// GetGeneral handles GET /assets/availability?type=Payment
func (h *AssetAvailabilityHandlers) GetGeneral(c *gin.Context) {
	t := entities.AssetAvailabilityType(c.Query("type"))
	list, err := h.service.GetGeneral(c.Request.Context(), t)
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}
	if list == nil {
		list = []*entities.AssetAvailability{}
	}

	SendSuccess(c, list)
}

// SetGeneral handles PUT /assets/availability
func (h *AssetAvailabilityHandlers) SetGeneral(c *gin.Context) {
	var cmd entities.SetGeneralAvailabilityCommand
	if !bindJSON(c, &cmd) || !validateRequest(c, h.validator, &cmd) {
		return
	}

	availability, err := h.service.SetGeneral(c.Request.Context(), &cmd)
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}

	SendSuccess(c, availability)
}

// GetPersonal handles GET /merchants/:merchantId/assets/availability
func (h *AssetAvailabilityHandlers) GetPersonal(c *gin.Context) {
	personal, err := h.service.GetPersonal(c.Request.Context(), c.Param("merchantId"))
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}
	SendSuccess(c, personal)
}

// SetPersonal handles PUT /merchants/:merchantId/assets/availability
func (h *AssetAvailabilityHandlers) SetPersonal(c *gin.Context) {
	var cmd entities.SetPersonalAvailabilityCommand
	if !bindJSON(c, &cmd) || !validateRequest(c, h.validator, &cmd) {
		return
	}

	personal, err := h.service.SetPersonal(c.Request.Context(), c.Param("merchantId"), &cmd)
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}

	SendSuccess(c, personal)
}

// ResolveSettlement handles GET /merchants/:merchantId/assets/settlement
func (h *AssetAvailabilityHandlers) ResolveSettlement(c *gin.Context) {
	assets, err := h.service.ResolveSettlement(c.Request.Context(), c.Param("merchantId"))
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}

	SendSuccess(c, entities.AvailableAssetsResponse{Assets: assets})
}

// ResolvePayment handles GET /merchants/:merchantId/assets/payment?settlementAssetId=CHF
func (h *AssetAvailabilityHandlers) ResolvePayment(c *gin.Context) {
	settlementAssetID := c.Query("settlementAssetId")
	if settlementAssetID == "" {
		SendBadRequest(c, ErrCodeValidationError, "settlementAssetId is required")
		return
	}

	assets, err := h.service.ResolvePayment(c.Request.Context(), c.Param("merchantId"), settlementAssetID)
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}

	SendSuccess(c, entities.AvailableAssetsResponse{Assets: assets})
}
