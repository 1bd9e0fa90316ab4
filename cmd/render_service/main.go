package main

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/internal/render/api/handlers"
	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/internal/render/api/router"
	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/internal/render/app"
	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/internal/render/domain"
	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/internal/render/repository"
	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/pkg/config"
	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/pkg/database"
	"github.com/jacoboliverbusiness-stack/endless-ai-render-service/pkg/logger"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.RenderService, config.EnvConfig.RenderServiceLogPath)

	cfg := config.LoadConfig[config.Render](config.EnvConfig.RenderService, config.EnvConfig.RenderServiceYAMLPath)

	// 1. object storage, bucket ensured up front
	minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
		Endpoint:   fmt.Sprintf("%s:%d", cfg.MinIO.Host, cfg.MinIO.Port),
		User:       cfg.MinIO.User,
		Password:   cfg.MinIO.Password,
		BucketName: cfg.MinIO.BucketName,
		UseSSL:     cfg.MinIO.UseSSL,

		RetryCount:    cfg.MinIO.RetryCount,
		RetryInterval: cfg.MinIO.RetryInterval,
	})
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to minio after retries",
			zap.String("address", fmt.Sprintf("[%s:%d]", cfg.MinIO.Host, cfg.MinIO.Port)),
			zap.Error(err),
		)
	}

	// 2. pipeline collaborators
	workspaces := app.NewWorkspaceManager(cfg.ScratchDir)
	backends := map[domain.EngineType]app.RenderBackend{
		domain.EngineComposition: app.NewCompositionBackend(app.NewExecCompositionEngine(cfg.RendererCLI)),
		domain.EngineCapture:     app.NewCaptureBackend(app.NewChromedpBrowser(cfg.ChromePath)),
	}
	encoder := app.NewFFmpegEncoder(cfg.FFmpegPath)
	artifacts := repository.NewArtifactRepo(minioClient)

	usecase := app.NewRenderUseCase(workspaces, backends, encoder, artifacts, cfg.MaxConcurrentJobs)

	// 3. HTTP surface
	r := fiber.New()
	renderHandler := &handlers.RenderHandler{Usecase: usecase}
	router.RegisterRoutes(r, renderHandler, cfg.AuthToken)

	logger.Log.Info(fmt.Sprintf("RenderService listening on : %s", cfg.Port))
	if err := r.Listen(cfg.IP + ":" + cfg.Port); err != nil {
		logger.Log.Fatal("Server failed to start", zap.Error(err))
	}
}
