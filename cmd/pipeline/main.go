package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/yungbote/disputeflow-backend/internal/classification"
	"github.com/yungbote/disputeflow-backend/internal/config"
	"github.com/yungbote/disputeflow-backend/internal/data/db"
	"github.com/yungbote/disputeflow-backend/internal/data/repos"
	"github.com/yungbote/disputeflow-backend/internal/disputes"
	"github.com/yungbote/disputeflow-backend/internal/ingestion"
	"github.com/yungbote/disputeflow-backend/internal/pipeline"
	"github.com/yungbote/disputeflow-backend/internal/platform/embedcache"
	"github.com/yungbote/disputeflow-backend/internal/platform/gmailapi"
	"github.com/yungbote/disputeflow-backend/internal/platform/logger"
	"github.com/yungbote/disputeflow-backend/internal/platform/openai"
)

// One-shot pipeline runner: ingest, classify, backfill, print a report, exit.
// Meant for cron and local runs; the HTTP server exposes the same flow at
// POST /api/pipeline/run.
func main() {
	days := flag.Int("days", 0, "how many days back to ingest (0 = configured default)")
	maxResults := flag.Int("max-results", 0, "max gmail messages to ingest (0 = configured default)")
	classifyLimit := flag.Int("classify-limit", 0, "max pending emails to classify (0 = all)")
	flag.Parse()

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

	cfg, err := config.Load()
	if err != nil {
		log.Error("Could not load config", "error", err)
		os.Exit(1)
	}

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

	supplierRepo := repos.NewSupplierRepo(thePG, log)
	emailRepo := repos.NewEmailRepo(thePG, log)
	disputeRepo := repos.NewCanonicalDisputeRepo(thePG, log)
	linkRepo := repos.NewDisputeEmailLinkRepo(thePG, log)
	documentRepo := repos.NewDisputeDocumentRepo(thePG, log)
	embeddingRepo := repos.NewDisputeEmbeddingRepo(thePG, log)

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

	params := cfg.PipelineParams()
	if *days > 0 {
		params.Days = *days
	}
	if *maxResults > 0 {
		params.MaxResults = *maxResults
	}
	if *classifyLimit > 0 {
		params.ClassifyLimit = *classifyLimit
	}

	report, err := pipelineService.Run(ctx, params)
	if err != nil {
		log.Error("Pipeline run failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("ingested=%d classified=%d backfilled=%d\n", report.Ingested, report.Classified, report.Backfilled)
}
