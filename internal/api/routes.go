package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"craftcv/internal/api/middleware"
	"craftcv/internal/auth"
	"craftcv/internal/catalog"
	"craftcv/internal/config"
	"craftcv/internal/storage"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient *storage.Client,
) {
	catalogService := catalog.NewService(db, logger)

	authHandler := NewAuthHandler(db, authService, redisClient, logger,
		cfg.API.LoginRatePerHr, cfg.API.LoginLockAfter, cfg.API.LoginLockTTL(), cfg.API.CookieDomain)
	resumeHandler := NewResumeHandler(db, asynqClient, storageClient, cfg.API.MaxResumes)
	sectionHandler := NewSectionHandler(db, catalogService)
	catalogHandler := NewCatalogHandler(catalogService)
	printHandler := NewPrintHandler(db, catalogService, storageClient)
	assetHandler := NewAssetHandler(db, storageClient, logger,
		cfg.Upload.ClamdAddr, cfg.Upload.MaxBytes, redisClient,
		cfg.Upload.MaxAssetsPerUser, cfg.Upload.MaxUploadsPerDay)
	wsHandler := NewWsHandler(redisClient, authService, logger, cfg.API.AllowedOrigins)

	authMiddleware := middleware.AuthMiddleware(authService)
	passwordGate := middleware.RequirePasswordChangeCompletedMiddleware()

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
			authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
		}

		catalogGroup := v1.Group("/catalog")
		catalogGroup.Use(authMiddleware)
		{
			catalogGroup.GET("/blueprints", catalogHandler.ListBlueprints)
			catalogGroup.GET("/blueprints/:id", catalogHandler.GetBlueprint)
			catalogGroup.GET("/templates", catalogHandler.ListTemplates)
			catalogGroup.GET("/templates/:id", catalogHandler.GetTemplate)
		}

		resumeGroup := v1.Group("/resumes")
		resumeGroup.Use(authMiddleware, passwordGate)
		{
			resumeGroup.GET("", resumeHandler.ListResumes)
			resumeGroup.POST("", resumeHandler.CreateResume)
			resumeGroup.GET("/latest", resumeHandler.GetLatestResume)
			resumeGroup.GET("/:id", resumeHandler.GetResume)
			resumeGroup.PUT("/:id", resumeHandler.UpdateResume)
			resumeGroup.DELETE("/:id", resumeHandler.DeleteResume)
			resumeGroup.POST("/:id/export", resumeHandler.ExportResume)
			resumeGroup.GET("/:id/download-link", resumeHandler.GetDownloadLink)

			// 分区编辑：每个写操作都返回最新的解析视图。
			resumeGroup.GET("/:id/sections", sectionHandler.GetSections)
			resumeGroup.POST("/:id/sections", sectionHandler.AddSection)
			resumeGroup.POST("/:id/sections/remove", sectionHandler.RemoveSection)
			resumeGroup.POST("/:id/sections/toggle", sectionHandler.ToggleSection)
			resumeGroup.POST("/:id/sections/rename", sectionHandler.RenameSection)
			resumeGroup.POST("/:id/sections/reorder", sectionHandler.ReorderSections)
			resumeGroup.POST("/:id/sections/custom", sectionHandler.AddCustomSection)
			resumeGroup.PUT("/:id/template", sectionHandler.SetTemplate)
			resumeGroup.PUT("/:id/blueprint", sectionHandler.SetBlueprint)
		}

		assetGroup := v1.Group("/assets")
		assetGroup.Use(authMiddleware, passwordGate)
		{
			assetGroup.POST("/upload", assetHandler.UploadAsset)
			assetGroup.GET("", assetHandler.ListAssets)
			assetGroup.GET("/view", assetHandler.GetAssetURL)
			assetGroup.DELETE("", assetHandler.DeleteAsset)
		}

		internalGroup := v1.Group("/internal")
		internalGroup.Use(middleware.InternalSecretMiddleware(cfg.API.InternalSecret))
		{
			internalGroup.GET("/resumes/:id/print-data", printHandler.GetPrintResumeData)
		}
	}
}
