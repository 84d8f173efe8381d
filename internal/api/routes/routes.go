package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/settlepay/settlement_service/internal/api/handlers"
	"github.com/settlepay/settlement_service/internal/api/middleware"
	"github.com/settlepay/settlement_service/internal/infrastructure/database"
	"github.com/settlepay/settlement_service/internal/infrastructure/di"
	"github.com/settlepay/settlement_service/pkg/idempotency"
)

const serviceName = "settlement-service"

// SetupRoutes configures all application routes
func SetupRoutes(container *di.Container, version string) *gin.Engine {
	router := gin.New()

	// Global middleware - order matters
	router.Use(middleware.RequestID())
	router.Use(middleware.Tracing(serviceName))
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestSizeLimit())
	router.Use(middleware.InputValidation())
	router.Use(middleware.Logger(container.Logger))
	router.Use(middleware.Recovery(container.Logger))
	router.Use(middleware.CORS(container.Config.Server.AllowedOrigins))
	router.Use(middleware.SecurityHeaders())

	checks := map[string]handlers.HealthCheck{
		"database": func(ctx context.Context) error {
			database.RecordPoolStats(container.DB)
			return database.HealthCheck(ctx, container.DB)
		},
	}
	if container.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return container.Redis.Ping(ctx).Err()
		}
	}
	healthHandler := handlers.NewHealthHandler(checks, container.ZapLog, version)

	router.GET("/health/liveness", healthHandler.Liveness)
	router.GET("/health/readiness", healthHandler.Readiness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	paymentRequestHandlers := handlers.NewPaymentRequestHandlers(container.PaymentRequestService, container.Logger)
	transactionHandlers := handlers.NewTransactionHandlers(container.TransactionService, container.Logger)
	refundHandlers := handlers.NewRefundHandlers(container.RefundService, container.Logger)
	walletHandlers := handlers.NewWalletHandlers(container.WalletService, container.Logger)
	markupHandlers := handlers.NewMarkupHandlers(container.MarkupService, container.Logger)
	availabilityHandlers := handlers.NewAssetAvailabilityHandlers(container.AvailabilityService, container.Logger)

	// retried creates must not open a second request or send a second refund
	var idempotent gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if container.Redis != nil {
		idempotent = idempotency.Middleware(idempotency.NewRedisStore(container.Redis), idempotency.DefaultTTL, container.ZapLog)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimit(container.Config.Server.RateLimitPerMin))
	{
		merchants := v1.Group("/merchants/:merchantId")
		{
			merchants.POST("/paymentrequests", idempotent, paymentRequestHandlers.CreatePaymentRequest)
			merchants.GET("/paymentrequests", paymentRequestHandlers.ListPaymentRequests)
			merchants.GET("/paymentrequests/:id", paymentRequestHandlers.GetPaymentRequest)
			merchants.POST("/paymentrequests/:id/checkout", paymentRequestHandlers.Checkout)
			merchants.POST("/paymentrequests/:id/cancel", paymentRequestHandlers.Cancel)
			merchants.GET("/paymentrequests/:id/orders/:orderId", paymentRequestHandlers.GetOrder)

			merchants.POST("/refunds", idempotent, refundHandlers.CreateRefund)
			merchants.GET("/refunds/:id", refundHandlers.GetRefund)

			merchants.PUT("/markups/:assetPairId", markupHandlers.SetMarkup)
			merchants.GET("/markups/:assetPairId", markupHandlers.GetMarkup)

			merchants.GET("/assets/availability", availabilityHandlers.GetPersonal)
			merchants.PUT("/assets/availability", availabilityHandlers.SetPersonal)
			merchants.GET("/assets/settlement", availabilityHandlers.ResolveSettlement)
			merchants.GET("/assets/payment", availabilityHandlers.ResolvePayment)
		}

		v1.GET("/assets/availability", availabilityHandlers.GetGeneral)
		v1.PUT("/assets/availability", availabilityHandlers.SetGeneral)

		// chain watchers
		v1.POST("/transactions", transactionHandlers.CreateTransaction)
		v1.PUT("/transactions", transactionHandlers.UpdateTransaction)
		v1.POST("/transfer/updateStatus", transactionHandlers.UpdateTransferStatus)

		wallets := v1.Group("/wallets")
		{
			wallets.POST("/expired", walletHandlers.SetExpired)
			wallets.GET("/not-expired", paymentRequestHandlers.NotExpiredWallets)
			wallets.GET("/:address/refund", refundHandlers.GetRefundInfo)
			wallets.GET("/:address/paymentrequest", paymentRequestHandlers.GetByWallet)
			wallets.POST("/:address/status", paymentRequestHandlers.RefreshStatus)
		}

		v1.POST("/maintenance/expired", paymentRequestHandlers.SweepExpired)
	}

	return router
}
