// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"clinicstock/internal/domain/costing"
	"clinicstock/internal/domain/finance"
	"clinicstock/internal/domain/settings"
	"clinicstock/internal/infrastructure/http/v1/dto"
	"clinicstock/internal/infrastructure/http/v1/handlers"
	"clinicstock/internal/infrastructure/http/v1/middleware"
	"clinicstock/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Costing  *costing.Engine
	Finance  *finance.Engine
	Settings *settings.Service

	// Logger for request logging
	Logger *logger.Logger

	// HealthChecks are pinged by /health/ready, keyed by name.
	HealthChecks map[string]handlers.Pinger

	// Debug keeps gin in debug mode.
	Debug bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	dto.SetupValidator()

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.UserContext())

	base := handlers.NewBaseHandler()
	registerStockRoutes(api, base, cfg)
	registerSaleRoutes(api, base, cfg)
	registerSettingsRoutes(api, base, cfg)

	return router
}

// registerStockRoutes registers receipts, write-offs, material reads and
// reconciliation.
func registerStockRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	receipts := handlers.NewReceiptHandler(base, cfg.Costing)
	rg.POST("/receipts", receipts.Create)

	writeOffs := handlers.NewWriteOffHandler(base, cfg.Costing)
	wo := rg.Group("/write-offs")
	{
		wo.POST("", writeOffs.Create)
		wo.GET("/:id", writeOffs.Get)
		wo.POST("/:id/reverse", writeOffs.Reverse)
	}

	materials := handlers.NewMaterialHandler(base, cfg.Costing)
	mat := rg.Group("/materials/:id")
	{
		mat.GET("/position", materials.Position)
		mat.GET("/movements", materials.Movements)
		mat.GET("/lots", materials.Lots)
	}

	reconciliation := handlers.NewReconciliationHandler(base, cfg.Costing)
	rg.GET("/reconciliation/lots", reconciliation.Lots)
}

// registerSaleRoutes registers service sale endpoints.
func registerSaleRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	sales := handlers.NewSaleHandler(base, cfg.Finance)
	g := rg.Group("/sales")
	{
		g.POST("", sales.Create)
		g.GET("/:id", sales.Get)
		g.PATCH("/:id", sales.Update)
		g.DELETE("/:id", sales.Delete)
		g.POST("/:id/reverse", sales.Reverse)
		g.POST("/:id/deductions", sales.Deduct)
	}
}

// registerSettingsRoutes registers the inventory policy endpoints.
func registerSettingsRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, cfg RouterConfig) {
	h := handlers.NewSettingsHandler(base, cfg.Settings)
	rg.GET("/settings", h.Get)
	rg.PUT("/settings", h.Update)
}
