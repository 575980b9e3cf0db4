package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/interview-partner/adapters"
	"github.com/satriahrh/interview-partner/adapters/storage"
	"github.com/satriahrh/interview-partner/internal/api"
	"github.com/satriahrh/interview-partner/internal/auth"
	"github.com/satriahrh/interview-partner/internal/prompts"
	"github.com/satriahrh/interview-partner/internal/websocket"
	"github.com/satriahrh/interview-partner/usecase"
)

const defaultCollaboratorTimeout = 60 * time.Second

func main() {
	// .env is optional, the environment wins
	_ = godotenv.Load()

	// Initialize logger
	logger := newLogger()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize adapters
	llmService, err := newLanguageModel(ctx, logger)
	if err != nil {
		logger.Fatal("Failed to initialize language model", zap.Error(err))
	}

	speechToText, closeSTT, err := newSpeechToText(ctx, logger)
	if err != nil {
		logger.Fatal("Failed to initialize speech-to-text", zap.Error(err))
	}
	defer closeSTT()

	textToSpeech, err := newTextToSpeech(logger)
	if err != nil {
		logger.Fatal("Failed to initialize text-to-speech", zap.Error(err))
	}

	catalog, err := prompts.Load(os.Getenv("PROMPTS_FILE"))
	if err != nil {
		logger.Fatal("Failed to load prompt catalog", zap.Error(err))
	}

	audioStore, err := storage.NewTempAudioStore(os.Getenv("AUDIO_TEMP_DIR"), logger)
	if err != nil {
		logger.Fatal("Failed to initialize audio store", zap.Error(err))
	}

	sessionRepo := adapters.NewMemorySessionRepository(envDuration("SESSION_IDLE_TIMEOUT", 0, logger), logger)

	tokens, err := auth.NewTokenIssuer(auth.NewTokenConfigFromEnv(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize token issuer", zap.Error(err))
	}

	// Initialize usecase services
	interviewService := usecase.NewInterviewService(
		usecase.NewDialogueGenerator(llmService, catalog, logger),
		usecase.NewTranscriber(speechToText, audioStore, os.Getenv("STT_LANGUAGE"), logger),
		usecase.NewSpeechSynthesizer(textToSpeech, logger),
		usecase.InterviewConfig{
			TerminationPhrases:  catalog.TerminationPhrases,
			CollaboratorTimeout: envDuration("COLLABORATOR_TIMEOUT", defaultCollaboratorTimeout, logger),
		},
		logger,
	)

	// Initialize WebSocket hub with interview service
	hub := websocket.NewHub(interviewService, sessionRepo, logger)
	go hub.Run(ctx)

	cleanupService := websocket.NewSessionCleanupService(sessionRepo, envDuration("SESSION_CLEANUP_INTERVAL", 0, logger), logger)
	cleanupService.Start()
	defer cleanupService.Stop()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.BodyLimit("12M"))

	// Initialize API routes
	api.InitRoutes(e, hub, api.NewHandler(interviewService, sessionRepo, tokens, hub, logger), logger)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		logger.Info("Using default port", zap.String("port", port))
	}

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Interview partner server started", zap.String("port", port))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newLogger() *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if os.Getenv("APP_ENV") == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

// envDuration parses a duration such as "90s" from the environment
func envDuration(key string, fallback time.Duration, logger *zap.Logger) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		logger.Warn("Ignoring invalid duration",
			zap.String("key", key),
			zap.String("value", value),
			zap.Duration("default", fallback))
		return fallback
	}
	return d
}
