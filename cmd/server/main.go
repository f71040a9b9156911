package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Skufu/symptomdx/internal/config"
	"github.com/Skufu/symptomdx/internal/diagnostics"
	"github.com/Skufu/symptomdx/internal/explain"
	"github.com/Skufu/symptomdx/internal/metrics"
	"github.com/Skufu/symptomdx/internal/store"
	"github.com/Skufu/symptomdx/pkg/errors"
	"github.com/Skufu/symptomdx/pkg/errors/sentry"
	"github.com/Skufu/symptomdx/pkg/logger"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// server holds what the handlers need. store may be nil when the audit log
// is disabled.
type server struct {
	models    *diagnostics.Handle
	store     store.Store
	explainer *explain.Generator
	loadModel func() (*diagnostics.Model, error)
	maxBody   int64
	log       *logger.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}
	gin.SetMode(cfg.App.GinMode)

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		logger.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Sentry.DSN != "" {
		tracker, err := sentry.New(cfg.Sentry.DSN, cfg.App.Env)
		if err != nil {
			logger.Warnf("sentry disabled: %v", err)
		} else {
			logger.SetErrorTracker(tracker)
			defer func() { _ = tracker.Flush(context.Background()) }()
		}
	}

	log := logger.Get().With("component", "server")
	metrics.Init()

	ctx := context.Background()
	srv := &server{
		models:  diagnostics.NewHandle(nil),
		maxBody: cfg.App.MaxBodyBytes,
		log:     log,
		loadModel: func() (*diagnostics.Model, error) {
			return diagnostics.Load(cfg.Model.ModelPath, cfg.Model.LabelsPath)
		},
	}

	model, err := srv.loadModel()
	metrics.RecordModelLoad(err)
	switch {
	case err == nil:
		srv.models.Replace(model)
		log.Infow("model loaded", "path", cfg.Model.ModelPath, "labels", len(model.Labels()))
	case errors.Is(err, errors.ErrNotFound):
		log.Warnw("no trained model, run cmd/train first", "path", cfg.Model.ModelPath)
	default:
		log.Errorw("model load failed", "path", cfg.Model.ModelPath, "error", err)
	}

	if cfg.Database.Enabled {
		srv.store, err = store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN())
		if err != nil {
			logger.Fatalf("database connection failed: %v", err)
		}
		defer srv.store.Close()
		log.Infow("prediction audit log enabled", "driver", cfg.Database.Driver)
	}

	srv.explainer = newExplainer(ctx, cfg, log)

	staticRoot := detectStaticRoot()
	router := setupRouter(srv, staticRoot)
	httpServer := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.AI.Timeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	log.Infof("server listening on :%s", cfg.App.Port)
	waitForShutdown(httpServer)
}

// newExplainer builds the explanation generator. Without an API key it is
// disabled; without Redis it runs uncached.
func newExplainer(ctx context.Context, cfg *config.Config, log *logger.Logger) *explain.Generator {
	genCfg := explain.Config{
		Model:      cfg.AI.Model,
		Timeout:    cfg.AI.Timeout,
		RatePerMin: float64(cfg.AI.RatePerMin),
		CacheTTL:   cfg.AI.CacheTTL,
	}
	if !cfg.AI.Enabled() {
		log.Info("AI explanations disabled")
		return explain.NewGenerator(nil, nil, genCfg, log)
	}

	client, err := explain.NewOpenAIClient(cfg.AI.APIKey, cfg.AI.Endpoint, cfg.AI.Model)
	if err != nil {
		log.Warnw("AI explanations disabled", "error", err)
		return explain.NewGenerator(nil, nil, genCfg, log)
	}

	var cache explain.Cache
	if cfg.Redis.Addr != "" {
		rc, err := explain.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warnw("explanation cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			cache = rc
		}
	}
	return explain.NewGenerator(client, cache, genCfg, log)
}

func setupRouter(s *server, staticRoot string) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Logger(),
		gin.Recovery(),
		limitBodySize(s.maxBody),
		cors.New(cors.Config{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}),
	)

	// Serve a static frontend when one ships next to the binary.
	if fileExists(filepath.Join(staticRoot, "index.html")) {
		router.Static("/static", staticRoot)
		router.StaticFile("/", filepath.Join(staticRoot, "index.html"))
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/readyz", s.readyz)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	api.POST("/diagnose", s.diagnose)
	api.GET("/predictions", s.predictions)
	api.POST("/model/reload", s.reloadModel)

	return router
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = 1 << 20
	}
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func waitForShutdown(server *http.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
	logger.Info("server stopped")
}

func detectStaticRoot() string {
	startDir, err := os.Getwd()
	if err != nil {
		return "."
	}

	candidates := []string{
		startDir,
		filepath.Join(startDir, "web"),
		filepath.Dir(startDir),
		filepath.Dir(filepath.Dir(startDir)),
	}

	for _, dir := range candidates {
		if fileExists(filepath.Join(dir, "index.html")) {
			return dir
		}
	}

	return startDir
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
