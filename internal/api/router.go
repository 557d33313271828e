// Package api wires the HTTP surface: the middleware chain, the public
// health and version endpoints, and the authenticated /api/v1 route groups.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	adminapi "github.com/cloud-companion/cloud-companion/internal/api/admin"
	chatapi "github.com/cloud-companion/cloud-companion/internal/api/chat"
	resourcesapi "github.com/cloud-companion/cloud-companion/internal/api/resources"
	"github.com/cloud-companion/cloud-companion/internal/chat"
	"github.com/cloud-companion/cloud-companion/internal/config"
	"github.com/cloud-companion/cloud-companion/internal/graph"
	"github.com/cloud-companion/cloud-companion/internal/jobs"
	"github.com/cloud-companion/cloud-companion/internal/llm"
	"github.com/cloud-companion/cloud-companion/internal/middleware"
	"github.com/cloud-companion/cloud-companion/internal/repositories"
	"github.com/cloud-companion/cloud-companion/internal/safego"
	"github.com/cloud-companion/cloud-companion/internal/vector"
)

// Version is the reported application version.
const Version = "0.1.0"

// HealthProber answers a liveness probe for one dependency.
type HealthProber interface {
	Healthy(ctx context.Context) bool
}

// BackgroundServices holds background jobs and resources that must be
// stopped during graceful shutdown. cmd/server calls Shutdown() after the
// HTTP server has drained.
type BackgroundServices struct {
	expirySweeper *jobs.KeyExpirySweeper
	rateLimiters  []*middleware.RateLimiter
}

// Shutdown stops all background goroutines.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.expirySweeper != nil {
		bg.expirySweeper.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router and starts the background
// jobs. The graph service backs every repository; the vector and model
// gateways feed the chat engine.
func NewRouter(cfg *config.Config, graphSvc *graph.Service, vectorSvc *vector.Service, llmClient *llm.Client) (*gin.Engine, *BackgroundServices) {
	router := gin.New()
	bg := &BackgroundServices{}

	// Repositories share the one graph gateway.
	orgRepo := repositories.NewOrganizationRepository(graphSvc)
	apiKeyRepo := repositories.NewAPIKeyRepository(graphSvc)
	accountRepo := repositories.NewCloudAccountRepository(graphSvc)
	resourceRepo := repositories.NewResourceRepository(graphSvc)
	conversationRepo := repositories.NewConversationRepository(graphSvc)

	engine := chat.NewService(conversationRepo, resourceRepo, llmClient, vectorSvc)

	chatHandlers := chatapi.New(engine, conversationRepo)
	resourceHandlers := resourcesapi.New(resourceRepo)
	adminHandlers := adminapi.New(cfg, orgRepo, apiKeyRepo, accountRepo)

	// Global middleware chain.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Public endpoints.
	router.GET("/health", healthCheckHandler(graphSvc, vectorSvc))
	router.GET("/version", versionHandler())

	// Authenticated API. Rate limiting sits after auth so limits key on the
	// API key id rather than the caller IP.
	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(cfg, apiKeyRepo))
	if cfg.Security.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: cfg.Security.RequestsPerMinute,
			BurstSize:         cfg.Security.BurstSize,
			CleanupInterval:   5 * time.Minute,
		})
		bg.rateLimiters = append(bg.rateLimiters, limiter)
		v1.Use(middleware.RateLimitMiddleware(limiter))
	}

	chatGroup := v1.Group("/chat")
	{
		chatGroup.POST("/start", chatHandlers.StartConversation)
		chatGroup.POST("/message", chatHandlers.SendMessage)
		chatGroup.GET("/conversations", chatHandlers.ListConversations)
		chatGroup.GET("/conversations/:id/messages", chatHandlers.GetMessages)
	}

	resourceGroup := v1.Group("/resources")
	{
		resourceGroup.GET("", resourceHandlers.List)
		resourceGroup.GET("/:id", resourceHandlers.Get)
	}

	adminGroup := v1.Group("/admin")
	{
		adminGroup.GET("/organization", adminHandlers.GetOrganization)
		adminGroup.GET("/keys", adminHandlers.ListKeys)
		adminGroup.POST("/keys", adminHandlers.CreateKey)
		adminGroup.DELETE("/keys/:id", adminHandlers.RevokeKey)
	}

	// Background jobs.
	bg.expirySweeper = jobs.NewKeyExpirySweeper(apiKeyRepo, &cfg.Jobs)
	safego.Go(func() { bg.expirySweeper.Start(context.Background()) })

	return router, bg
}

// healthCheckHandler probes every dependency and reports per-component
// booleans. The endpoint itself always answers 200; "degraded" status with
// a false component is the signal, so a flapping dependency does not knock
// the service out of load balancer rotation.
func healthCheckHandler(graphProber, vectorProber HealthProber) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		components := map[string]bool{
			"graph":  graphProber.Healthy(ctx),
			"vector": vectorProber.Healthy(ctx),
		}

		status := "healthy"
		for _, healthy := range components {
			if !healthy {
				status = "degraded"
				break
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":     status,
			"version":    Version,
			"components": components,
		})
	}
}

func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware emits one structured log record per request.
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		requestID, _ := c.Get(middleware.RequestIDKey)
		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", fmt.Sprintf("%v", requestID)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range cfg.Security.CORSAllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
