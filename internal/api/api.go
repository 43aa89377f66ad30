package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	api_utils "github.com/ethanbaker/api/pkg/utils"
	"github.com/ethanbaker/receptionist/internal/metrics"
	"github.com/ethanbaker/receptionist/internal/orchestrator"
	"github.com/ethanbaker/receptionist/pkg/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	call_module "github.com/ethanbaker/receptionist/internal/api/modules/call"
	health_module "github.com/ethanbaker/receptionist/internal/api/modules/health"
	webhooks_module "github.com/ethanbaker/receptionist/internal/api/modules/webhooks"
)

// Deps are the services the API modules are initialised with
type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Metrics      *metrics.Recorder
	Logger       *zap.Logger
}

// NewEngine builds the gin engine with every module registered
func NewEngine(cfg *utils.Config, deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// Add app level settings/routes
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(logger.Named("http")), deps.Metrics.Middleware())
	engine.NoRoute(api_utils.NoRouteHandler)

	// Add trusted proxies
	engine.SetTrustedProxies(nil)

	// Add CORS using gin-contrib/cors (https://github.com/gin-contrib/cors for documentation)
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.GetWithDefault("CORS_ALLOWED_ORIGINS", "*"), ","),
		AllowMethods:     []string{"OPTIONS", "GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	engine.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	// Base group '/api' for all API routes
	baseGroup := engine.Group("/api")

	// Adding custom modules
	health_module.RegisterRoutes(baseGroup)

	call_module.Init(deps.Orchestrator, logger)
	call_module.RegisterRoutes(baseGroup)

	webhooks_module.Init(deps.Orchestrator, logger)
	webhooks_module.RegisterRoutes(baseGroup)

	return engine
}

// Start serves the API until ctx is cancelled, then drains in-flight requests
func Start(ctx context.Context, cfg *utils.Config, deps Deps) error {
	port := cfg.GetWithDefault("API_PORT", "8080")

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           NewEngine(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- server.ListenAndServe()
	}()

	if deps.Logger != nil {
		deps.Logger.Info("API listening", zap.String("port", port))
	}

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

// requestLogger logs one line per request
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}
