package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/disputeflow-backend/internal/classification"
	"github.com/yungbote/disputeflow-backend/internal/config"
	"github.com/yungbote/disputeflow-backend/internal/data/db"
	"github.com/yungbote/disputeflow-backend/internal/data/repos"
	"github.com/yungbote/disputeflow-backend/internal/disputes"
	"github.com/yungbote/disputeflow-backend/internal/handlers"
	"github.com/yungbote/disputeflow-backend/internal/ingestion"
	"github.com/yungbote/disputeflow-backend/internal/observability"
	"github.com/yungbote/disputeflow-backend/internal/pipeline"
	"github.com/yungbote/disputeflow-backend/internal/platform/embedcache"
	"github.com/yungbote/disputeflow-backend/internal/platform/gmailapi"
	"github.com/yungbote/disputeflow-backend/internal/platform/logger"
	"github.com/yungbote/disputeflow-backend/internal/platform/openai"
	"github.com/yungbote/disputeflow-backend/internal/retrieval"
	"github.com/yungbote/disputeflow-backend/internal/server"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// Config
	cfg, err := config.Load()
	if err != nil {
		log.Error("Could not load config", "error", err)
		os.Exit(1)
	}

	// Tracing
	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "disputeflow-backend",
		Environment: os.Getenv("APP_ENV"),
		Version:     os.Getenv("APP_VERSION"),
	})
	if shutdownOTel != nil {
		defer func() { _ = shutdownOTel(context.Background()) }()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	supplierRepo := repos.NewSupplierRepo(thePG, log)
	emailRepo := repos.NewEmailRepo(thePG, log)
	disputeRepo := repos.NewCanonicalDisputeRepo(thePG, log)
	linkRepo := repos.NewDisputeEmailLinkRepo(thePG, log)
	documentRepo := repos.NewDisputeDocumentRepo(thePG, log)
	embeddingRepo := repos.NewDisputeEmbeddingRepo(thePG, log)

	// Platform clients
	log.Info("Setting up platform clients from main...")
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}
	embedder, err := embedcache.New(log, openaiClient)
	if err != nil {
		log.Error("Could not init embedding cache", "error", err)
		os.Exit(1)
	}
	gmailClient, err := gmailapi.NewClient(ctx, log)
	if err != nil {
		log.Error("Could not init GmailClient", "error", err)
		os.Exit(1)
	}

	// Services
	log.Info("Setting up Services from main...")
	engine := disputes.NewEngine(
		thePG,
		log,
		cfg.EngineConfig(),
		embedder,
		supplierRepo,
		emailRepo,
		disputeRepo,
		linkRepo,
		documentRepo,
		embeddingRepo,
	)
	ingestionService := ingestion.NewService(thePG, log, gmailClient, emailRepo)
	classifier := classification.NewClassifier(thePG, log, openaiClient, emailRepo, engine)
	pipelineService := pipeline.NewService(thePG, log, ingestionService, classifier, emailRepo, engine)
	retrievalService := retrieval.NewService(thePG, log, embedder, embeddingRepo, disputeRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	pipelineHandler := handlers.NewPipelineHandler(log, pipelineService, cfg.PipelineParams())
	disputeHandler := handlers.NewDisputeHandler(log, retrievalService, disputeRepo, linkRepo, documentRepo, emailRepo)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		ServiceName:     "disputeflow-backend",
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		PipelineHandler: pipelineHandler,
		DisputeHandler:  disputeHandler,
	})

	port := cfg.Server.Port
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
