package router

import (
	"time"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"stockroom/internal/config"
	"stockroom/internal/handler"
	"stockroom/internal/middleware"
	"stockroom/internal/repository"
	"stockroom/internal/service"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	productRepo := repository.NewProductRepository(db)
	historyRepo := repository.NewInventoryHistoryRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(cfg)
	productSvc := service.NewProductService(productRepo, historyRepo, rdb)
	transferSvc := service.NewTransferService(productRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	productsH := handler.NewProductsHandler(productSvc)
	transferH := handler.NewTransferHandler(transferSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))
	r.POST("/api/auth/login", middleware.LoginRateLimiter(), authH.Login)

	// Product routes sit behind the admin token gate.
	products := r.Group("/api/products", middleware.JWTAuth(cfg.JWTSecret))
	{
		products.GET("", productsH.List)
		products.POST("", productsH.Create)
		products.GET("/categories/list", productsH.Categories)
		products.POST("/bulk", transferH.BulkImport)
		products.POST("/import", transferH.ImportCSV)
		products.GET("/export", transferH.ExportCSV)
		products.GET("/:id", productsH.GetByID)
		products.PUT("/:id", productsH.Update)
		products.DELETE("/:id", productsH.Delete)
		products.GET("/:id/history", productsH.History)
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
