// @title           Cloud Companion API
// @version         0.1.0
// @description     Multi-tenant AI assistant backend for cloud infrastructure, backed by a Neo4j property graph and Weaviate semantic search.
// @basePath        /
// @schemes         http https
// @securityDefinitions.apiKey  APIKey
// @in                          header
// @name                        X-API-Key
//
// @tag.name         System
// @tag.description  Health and version endpoints.
//
// @tag.name         Observability
// @tag.description  Prometheus metrics are served on a dedicated side-channel port (default: 9090), separate from the main API server, so the scrape path stays off the public ingress and outside the auth middleware. Configure the port with CC_TELEMETRY_METRICS_PORT. The endpoint path is always GET /metrics.

// Package main is the entry point for the Cloud Companion server binary. It
// dispatches two subcommands, serve and version, via a simple switch on
// os.Args so the binary's full CLI surface is readable in one place without
// requiring a cobra dependency. Tenant administration lives in the separate
// companionctl binary.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cloud-companion/cloud-companion/internal/api"
	"github.com/cloud-companion/cloud-companion/internal/config"
	"github.com/cloud-companion/cloud-companion/internal/graph"
	"github.com/cloud-companion/cloud-companion/internal/llm"
	"github.com/cloud-companion/cloud-companion/internal/telemetry"
	"github.com/cloud-companion/cloud-companion/internal/vector"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch command {
	case "serve":
		return serve(cfg)
	case "version":
		fmt.Printf("Cloud Companion v%s\n", api.Version)
		return nil
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, version", command)
	}
}

func serve(cfg *config.Config) error {
	// Initialise structured logging as early as possible so all subsequent
	// output uses the configured format and level.
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to the graph store. This is the authoritative store; failing
	// to reach it is fatal at startup.
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelConnect()

	graphSvc, err := graph.New(connectCtx, graph.Config{
		URI:      cfg.Graph.URI,
		Username: cfg.Graph.Username,
		Password: cfg.Graph.Password,
		Database: cfg.Graph.Database,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to graph store: %w", err)
	}
	defer func() {
		closeCtx, cancelClose := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelClose()
		if err := graphSvc.Close(closeCtx); err != nil {
			slog.Warn("Failed to close graph driver", "error", err)
		}
	}()

	// The vector and model gateways are lazy; a down dependency degrades
	// chat grounding rather than blocking startup.
	vectorSvc, err := vector.New(vector.Config{
		URL:         cfg.Vector.URL,
		ClassName:   cfg.Vector.ClassName,
		SearchLimit: cfg.Vector.SearchLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to create vector gateway: %w", err)
	}

	llmClient, err := llm.New(llm.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Temperature:    cfg.LLM.Temperature,
		MaxTokens:      cfg.LLM.MaxTokens,
		Timeout:        time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to create model gateway: %w", err)
	}

	// Prometheus metrics on a dedicated port, off the public ingress path.
	if cfg.Telemetry.MetricsEnabled {
		metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.MetricsPort)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			slog.Info("starting Prometheus metrics server", "addr", metricsAddr)
			srv := &http.Server{
				Addr:         metricsAddr,
				Handler:      mux,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	router, bgServices := api.NewRouter(cfg, graphSvc, vectorSvc, llmClient)

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Starting server on %s", cfg.Server.GetAddress())
		log.Printf("Graph store: %s", cfg.Graph.URI)
		log.Printf("Vector store: %s", cfg.Vector.URL)
		log.Printf("Model: %s", cfg.LLM.Model)
		log.Println("Server is ready to accept connections")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	bgServices.Shutdown()

	log.Println("Server stopped gracefully")
	return nil
}
