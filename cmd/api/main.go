package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/imaginai/adventure-engine/internal/config"
	"github.com/imaginai/adventure-engine/internal/engine"
	"github.com/imaginai/adventure-engine/internal/handlers"
	"github.com/imaginai/adventure-engine/internal/logger"
	"github.com/imaginai/adventure-engine/internal/middleware"
	"github.com/imaginai/adventure-engine/internal/services"
	"github.com/imaginai/adventure-engine/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Adventure Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName)

	var gateway services.CompletionGateway
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		gateway = services.NewAnthropicGateway(cfg.AnthropicAPIKey, "", log)
		log.Info("Using Anthropic completion provider")
	case config.ProviderOpenAI:
		gateway = services.NewOpenAIGateway(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, log)
		log.Info("Using OpenAI-compatible completion provider", "base_url", cfg.OpenAIBaseURL)
	default:
		log.Error("Invalid LLM provider specified", "provider", cfg.LLMProvider, "supported", []string{config.ProviderAnthropic, config.ProviderOpenAI})
		os.Exit(1)
	}

	store := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}

	eng := engine.New(store, gateway, log, engine.Options{
		Model:        cfg.ModelName,
		MaxTokens:    cfg.MaxOutputTokens,
		HistoryLimit: cfg.HistoryLimit,
	})

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	mux.Handle("/health", healthHandler)

	adventureHandler := handlers.NewAdventureHandler(eng, log)
	streamHandler := handlers.NewStreamHandler(eng, log)
	mux.Handle("/v1/adventures", adventureHandler)
	mux.Handle("/v1/adventures/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/stream") {
			streamHandler.ServeHTTP(w, r)
			return
		}
		adventureHandler.ServeHTTP(w, r)
	}))

	scenarioHandler := handlers.NewScenarioHandler(log, store)
	mux.Handle("/v1/scenarios", scenarioHandler)
	mux.Handle("/v1/scenarios/", scenarioHandler)

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout removed to enable streaming - streaming endpoints handle their own timeouts
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
