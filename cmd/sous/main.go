// sous is the conversational recipe-assistant server: it loads
// configuration, wires the LLM, retrieval, and web-search gateways, and
// serves the dialog protocol over WebSocket.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sousline/sous/pkg/classifier"
	"github.com/sousline/sous/pkg/config"
	"github.com/sousline/sous/pkg/dialog"
	"github.com/sousline/sous/pkg/extractor"
	"github.com/sousline/sous/pkg/llmgateway"
	"github.com/sousline/sous/pkg/pipeline"
	"github.com/sousline/sous/pkg/retrieval"
	"github.com/sousline/sous/pkg/store"
	"github.com/sousline/sous/pkg/transport"
	"github.com/sousline/sous/pkg/websearch"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("could not load %s: %v (continuing with existing environment)", envPath, err)
	}

	ctx := context.Background()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	storeClient, err := store.NewClient(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to the relational store: %v", err)
	}
	defer func() {
		if err := storeClient.Close(); err != nil {
			slog.Warn("error closing store connection", "error", err)
		}
	}()
	slog.Info("connected to relational store")

	llmGateway, err := llmgateway.New(os.Getenv(cfg.LLM.APIKeyEnv), cfg.LLM)
	if err != nil {
		log.Fatalf("failed to build LLM gateway: %v", err)
	}

	retrievalGateway, err := retrieval.New(cfg.Retrieval, os.Getenv(cfg.Retrieval.APIKeyEnv))
	if err != nil {
		log.Fatalf("failed to build retrieval gateway: %v", err)
	}

	webSearchGateway, err := websearch.New(cfg.WebSearch, os.Getenv(cfg.WebSearch.APIKeyEnv))
	if err != nil {
		log.Fatalf("failed to build web search gateway: %v", err)
	}

	cl := classifier.New(llmGateway, cfg.LLM.ClassifierModel)
	decl := classifier.NewDeclarationDetector(llmGateway, cfg.LLM.ClassifierModel)
	ext := extractor.New(llmGateway)
	executor := pipeline.New(llmGateway, retrievalGateway, webSearchGateway, cfg.Pipeline)

	controller := dialog.New(llmGateway, cl, decl, ext, executor, storeClient, cfg.Pipeline)

	server := transport.New(controller, getEnv("GIN_MODE", "debug"))

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Server.HTTPPort
	if err := server.ListenAndServe(shutdownCtx, addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
	slog.Info("server stopped")
}
