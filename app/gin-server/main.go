package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/daonlab/talkreport/config"
	"github.com/daonlab/talkreport/internal/api/handlers"
	"github.com/daonlab/talkreport/internal/api/middleware"
	"github.com/daonlab/talkreport/internal/api/routes"
	"github.com/daonlab/talkreport/internal/logger"
	"github.com/daonlab/talkreport/internal/media"
	"github.com/daonlab/talkreport/internal/providers/design"
	"github.com/daonlab/talkreport/internal/providers/llm"
	"github.com/daonlab/talkreport/internal/providers/stt"
	pgrepo "github.com/daonlab/talkreport/internal/repositories/postgres"
	"github.com/daonlab/talkreport/internal/services"
	"github.com/daonlab/talkreport/internal/storage"
	"github.com/daonlab/talkreport/internal/workers"
)

func main() {
	_ = godotenv.Load()

	l := logger.New()
	ctx := context.Background()

	// Init PostgreSQL
	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	l.Info("PostgreSQL connected")

	// Init Redis (optional; live status events only)
	redisOK, err := config.InitRedis()
	if err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	var events workers.Publisher = workers.NewNopPublisher()
	if redisOK {
		events = workers.NewRedisPublisher(config.RedisClient, l)
		l.Info("Redis connected")
	} else {
		l.Warn("Redis not configured; live status updates disabled")
	}

	// Object storage
	gcs, err := storage.NewGCSClient(ctx, os.Getenv("GCS_BUCKET"))
	if err != nil {
		log.Fatalf("GCS init error: %v", err)
	}

	// Vendors
	sttClient, err := stt.NewReturnZero(os.Getenv("RETURNZERO_CLIENT_ID"), os.Getenv("RETURNZERO_CLIENT_SECRET"), l)
	if err != nil {
		log.Fatalf("STT init error: %v", err)
	}
	llmClient, err := llm.NewVertexGemini(ctx, os.Getenv("VERTEX_PROJECT_ID"), os.Getenv("VERTEX_LOCATION"))
	if err != nil {
		log.Fatalf("Vertex init error: %v", err)
	}
	defer llmClient.Close()
	designClient, err := design.NewCanva(os.Getenv("CANVA_API_KEY"), os.Getenv("CANVA_TEMPLATE_ID"), l)
	if err != nil {
		log.Fatalf("Canva init error: %v", err)
	}

	// Repositories
	db := config.PostgresDB
	reportRepo := pgrepo.NewReportRepo(db)
	audioRepo := pgrepo.NewAudioFileRepo(db)
	transcriptRepo := pgrepo.NewTranscriptRepo(db)
	sttConfigRepo := pgrepo.NewSTTConfigRepo(db)
	promptRepo := pgrepo.NewPromptRepo(db)
	reportDataRepo := pgrepo.NewReportDataRepo(db)
	publishedRepo := pgrepo.NewPublishedReportRepo(db)

	runner := workers.NewRunner(l)
	prober := media.NewFFProbe(l)

	// Services
	reportSvc := services.NewReportService(reportRepo, publishedRepo)
	audioSvc := services.NewAudioService(reportRepo, audioRepo, transcriptRepo, sttConfigRepo,
		gcs, sttClient, prober, runner, events, l)
	transcriptSvc := services.NewTranscriptService(audioRepo, transcriptRepo)
	sttConfigSvc := services.NewSTTConfigService(audioRepo, sttConfigRepo)
	promptSvc := services.NewPromptService(promptRepo)
	analysisSvc := services.NewAnalysisService(reportRepo, audioRepo, transcriptRepo,
		promptRepo, reportDataRepo, llmClient, runner, events, l)
	publishSvc := services.NewPublishService(reportRepo, reportDataRepo, publishedRepo,
		designClient, runner, events, l)

	// HTTP
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(l))

	routes.RegisterRoutes(r, routes.Deps{
		Report: handlers.NewReportHandler(reportSvc, analysisSvc, publishSvc),
		Audio:  handlers.NewAudioHandler(audioSvc, transcriptSvc, sttConfigSvc),
		Prompt: handlers.NewPromptHandler(promptSvc),
		WS:     handlers.NewWSHandler(reportSvc, config.RedisClient),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
	runner.Wait()
}
