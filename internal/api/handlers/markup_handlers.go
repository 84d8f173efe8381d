package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/settlepay/settlement_service/internal/domain/entities"
	"github.com/settlepay/settlement_service/pkg/logger"
)

// MarkupService stores and resolves merchant markups
type MarkupService interface {
	Resolve(ctx context.Context, merchantID, assetPairID string) (*entities.Markup, error)
	Set(ctx context.Context, markup *entities.Markup) error
}

// MarkupHandlers serves merchant markup settings
type MarkupHandlers struct {
	service   MarkupService
	validator *validator.Validate
	logger    *logger.Logger
}

// NewMarkupHandlers creates markup handlers
func NewMarkupHandlers(service MarkupService, logger *logger.Logger) *MarkupHandlers {
	return &MarkupHandlers{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// SetMarkup handles PUT /merchants/:merchantId/markups/:assetPairId.
// The merchant id "default" sets the fallback markup for the pair.
func (h *MarkupHandlers) SetMarkup(c *gin.Context) {
	var req entities.SetMarkupRequest
	if !bindJSON(c, &req) || !validateRequest(c, h.validator, &req) {
		return
	}

	markup := &entities.Markup{
		MerchantID:       c.Param("merchantId"),
		AssetPairID:      c.Param("assetPairId"),
		DeltaSpread:      req.DeltaSpread,
		Percent:          req.Percent,
		Pips:             req.Pips,
		FixedFee:         req.FixedFee,
		PriceAssetPairID: req.PriceAssetPairID,
		PriceMethod:      req.PriceMethod,
	}
	if err := h.service.Set(c.Request.Context(), markup); err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}

	SendSuccess(c, markup)
}

// GetMarkup handles GET /merchants/:merchantId/markups/:assetPairId and
// returns the markup that pricing would apply
func (h *MarkupHandlers) GetMarkup(c *gin.Context) {
	markup, err := h.service.Resolve(c.Request.Context(), c.Param("merchantId"), c.Param("assetPairId"))
	if err != nil {
		SendDomainError(c, requestLogger(c, h.logger), err)
		return
	}

	SendSuccess(c, markup)
}
