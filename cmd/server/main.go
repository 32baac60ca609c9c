package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"ocrgate/internal/auditlog/noop"
	"ocrgate/internal/config"
	"ocrgate/internal/engine/runner"
	"ocrgate/internal/grounding"
	"ocrgate/internal/handler"
	"ocrgate/internal/port"
	"ocrgate/internal/repository/postgres"
	"ocrgate/internal/router"
	"ocrgate/internal/service"
	s3storage "ocrgate/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// .env is optional; real deployments configure through systemd.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Audit log sink: PostgreSQL when configured, process log otherwise.
	auditRepo := noop.NewSink()
	if cfg.DB.Enabled() {
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to audit database: %w", err)
		}
		defer db.Close()
		auditRepo = postgres.NewInferenceLogRepo(db)
	}

	// Artifact store: S3 when a bucket is configured.
	var storage port.ObjectStorage
	if cfg.S3.Enabled() {
		storage, err = s3storage.NewS3Client(&cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
	}

	// Model access: one manager per process, injected everywhere.
	engine := runner.NewEngine(&cfg.Runner)
	manager := service.NewModelManager(engine, service.ModelManagerConfig{
		MaxBacklog:  cfg.Pipeline.MaxBacklog,
		LoadTimeout: cfg.Runner.LoadTimeout,
	})

	// Pipeline
	translator := service.NewTranslator(cfg.Pipeline)
	executor := service.NewExecutor(manager)
	ocrSvc := service.NewOcrService(
		translator,
		executor,
		grounding.NewRegexParser(),
		storage,
		auditRepo,
		cfg.S3,
		cfg.Runner.ModelName,
	)

	// Handlers
	chatH := handler.NewChatHandler(ocrSvc)
	modelsH := handler.NewModelsHandler(cfg.Runner.ModelName)
	healthH := handler.NewHealthHandler(manager)

	r := router.Setup(chatH, modelsH, healthH, cfg.CORS.AllowedOrigins)

	// Warm the model in the background so the first request does not pay
	// the load penalty. Failures are cached and surface on request.
	if cfg.Runner.Preload {
		go func() {
			if err := manager.EnsureLoaded(context.Background()); err != nil {
				log.Printf("server: model preload failed, requests will fail until restart: %v", err)
			}
		}()
	}

	log.Printf("Server starting on %s (runner %s, model %s)", cfg.Server.Port, cfg.Runner.Endpoint, cfg.Runner.ModelName)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
