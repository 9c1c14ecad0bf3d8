package main

import (
	"context"
	"net/http"
	"time"

	"github.com/freelancehub/marketplace-api/config"
	"github.com/freelancehub/marketplace-api/controllers"
	"github.com/freelancehub/marketplace-api/logger"
	"github.com/freelancehub/marketplace-api/metrics"
	"github.com/freelancehub/marketplace-api/middleware"
	"github.com/freelancehub/marketplace-api/models"
	"github.com/freelancehub/marketplace-api/services"
	"github.com/freelancehub/marketplace-api/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	log := logger.NewForEnvironment(cfg.GoEnv, cfg.LogLevel)
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	log.Info("Starting FreelanceHub API server...", zap.String("env", cfg.GoEnv))

	if err := config.ConnectDatabase(cfg.DatabaseURL); err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	db := config.GetDB()
	if err := db.AutoMigrate(models.All()...); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database migration completed successfully")

	ctx := context.Background()

	opts := services.IdentityOptions{
		SMS:      services.NewLogSMSSender(log),
		Verifier: services.NewGoogleService(cfg),
	}
	if cfg.RedisURL != "" {
		store, err := services.NewRedisCodeStoreFromURL(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() { _ = store.Close() }()
		opts.Codes = store
		log.Info("Verification codes stored in Redis")
	} else {
		log.Warn("REDIS_URL not set, verification codes are kept in memory")
	}
	services.InitIdentityService(db, opts)
	services.InitTokenService(cfg)

	if cfg.HasS3() {
		s3Service, err := services.NewS3Service(ctx, cfg)
		if err != nil {
			log.Fatal("Failed to initialize S3 service", zap.Error(err))
		}
		services.InitImageService(services.NewS3ImageService(s3Service))
		log.Info("Avatar storage: S3", zap.String("bucket", cfg.AWSS3Bucket))
	} else {
		services.InitImageService(services.NewLocalImageService(utils.UploadDir))
		log.Info("Avatar storage: local directory", zap.String("dir", utils.UploadDir))
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(cfg, log)

	addr := ":" + cfg.Port
	log.Info("Server is running", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}

// newRouter wires middleware and every API route
func newRouter(cfg *config.Config, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		logger.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.CORS(),
		metrics.Middleware(),
	)

	auth := middleware.EnsureValidToken(cfg)
	authLimiter := utils.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/database/status", databaseStatus)
		v1.GET("/metrics", gin.WrapH(metrics.Handler()))
		v1.GET("/uploads/:filename", controllers.GetUploadedImage)

		v1.POST("/auth", middleware.RateLimit(authLimiter), controllers.Auth)
		v1.GET("/auth/me", auth, controllers.Me)

		v1.GET("/orders", controllers.ListOrders)
		v1.GET("/orders/:id", controllers.GetOrder)
		v1.POST("/orders", auth, controllers.CreateOrder)
		v1.PUT("/orders", auth, controllers.UpdateOrder)
		v1.PUT("/orders/:id", auth, controllers.UpdateOrder)
		v1.DELETE("/orders", auth, controllers.DeleteOrder)
		v1.DELETE("/orders/:id", auth, controllers.DeleteOrder)

		v1.GET("/responses", auth, controllers.ListResponses)
		v1.POST("/responses", auth, controllers.CreateResponse)
		v1.PUT("/responses", auth, controllers.UpdateResponse)

		v1.GET("/chats", auth, controllers.GetChats)
		v1.POST("/chats", auth, controllers.PostChats)

		v1.GET("/wallet", auth, controllers.GetWallet)
		v1.POST("/wallet", auth, controllers.PostWallet)

		v1.GET("/freelancers", controllers.GetFreelancers)
		v1.POST("/freelancers", auth, controllers.UpsertFreelancer)
		v1.POST("/freelancers/avatar", auth, controllers.UploadAvatar)
		v1.POST("/reviews", auth, controllers.CreateReview)
	}

	return router
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "FreelanceHub API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		logger.FromContext(c).Error("database ping failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := listTables(db.WithContext(ctx))
	if err != nil {
		logger.FromContext(c).Error("table listing failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}

func listTables(db *gorm.DB) ([]string, error) {
	query := "SELECT tablename FROM pg_tables WHERE schemaname = 'public'"
	if db.Dialector.Name() == "sqlite" {
		query = "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'"
	}

	var tables []string
	if err := db.Raw(query).Scan(&tables).Error; err != nil {
		return nil, err
	}
	return tables, nil
}
