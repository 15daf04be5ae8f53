package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx as database/sql driver
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/courtside-ai/backstop/internal/api"
	"github.com/courtside-ai/backstop/internal/auth"
	"github.com/courtside-ai/backstop/internal/config"
	"github.com/courtside-ai/backstop/internal/engine"
	"github.com/courtside-ai/backstop/internal/outfilter"
	"github.com/courtside-ai/backstop/internal/ratelimit"
	"github.com/courtside-ai/backstop/internal/storage"
	"github.com/courtside-ai/backstop/internal/validator"
)

func main() {
	cfg, err := config.Load(os.Getenv("BACKSTOP_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := mustBuildLogger(cfg.LogLevel)
	defer logger.Sync() //nolint:errcheck // best-effort flush

	logger.Info("starting backstop server",
		zap.String("listen_addr", cfg.ListenAddr),
		zap.Int("limit_per_minute", cfg.RateLimits.PerMinute),
		zap.Int("limit_per_hour", cfg.RateLimits.PerHour),
		zap.Int("limit_per_day", cfg.RateLimits.PerDay),
		zap.Duration("agent_timeout", cfg.AgentTimeout),
	)

	// Decision audit — ClickHouse or LogWriter fallback
	var writer storage.EventWriter
	if cfg.ClickHouseDSN != "" {
		chWriter, err := storage.NewClickHouseWriter(cfg.ClickHouseDSN, logger)
		if err != nil {
			logger.Warn("clickhouse connection failed, falling back to log writer",
				zap.Error(err),
			)
			writer = storage.NewLogWriter(logger)
		} else {
			writer = chWriter
			logger.Info("clickhouse writer connected")
		}
	} else {
		writer = storage.NewLogWriter(logger)
		logger.Info("no CLICKHOUSE_DSN set, using log writer")
	}
	defer writer.Close()

	// Admin authorizer — Postgres token table when configured, otherwise the
	// injected static hash (empty hash disables admin operations)
	var authorizer auth.Authorizer
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("failed to open postgres", zap.Error(err))
		}
		defer func() { _ = db.Close() }()
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(context.Background()); err != nil {
			logger.Fatal("failed to ping postgres", zap.Error(err))
		}
		authorizer = auth.NewPostgresAuthorizer(auth.PostgresAuthorizerConfig{
			DB:       db,
			CacheTTL: cfg.AuthCacheTTL,
			Logger:   logger,
		})
		logger.Info("postgres admin token store connected")
	} else {
		authorizer = auth.NewStaticAuthorizer(cfg.AdminTokenHash)
		if cfg.AdminTokenHash == "" {
			logger.Info("no admin token hash configured, admin operations disabled")
		}
	}

	// Security pipeline
	limiter := ratelimit.NewLimiter(cfg.RateLimits, logger)
	registry := engine.NewRegistry(engine.RegistryConfig{
		Validator:    validator.New(logger),
		Filter:       outfilter.New(logger),
		Limiter:      limiter,
		Writer:       writer,
		Logger:       logger,
		AgentTimeout: cfg.AgentTimeout,
	})

	// Built-in canned agent so the pipeline can be exercised before a real
	// model backend is registered.
	registry.Register(&draftAssistant{})

	// Periodic eviction of idle per-user limiter state
	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				limiter.Sweep()
			case <-sweepDone:
				return
			}
		}
	}()

	httpServer := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: api.NewRouter(&api.Dependencies{
			Registry:   registry,
			Authorizer: authorizer,
			Logger:     logger,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// Block until shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", zap.String("signal", sig.String()))

	close(sweepDone)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", zap.Error(err))
	}

	logger.Info("backstop server stopped")
}

// draftAssistant is a canned-response stand-in for the fantasy assistant
// model backend. It answers every query with generic roster advice.
type draftAssistant struct{}

func (a *draftAssistant) Name() string { return "draft-assistant" }

func (a *draftAssistant) Process(_ context.Context, message string, _ map[string]any) (*engine.AgentResponse, error) {
	content := "Check recent usage rates and upcoming schedule before making a move."
	if strings.Contains(strings.ToLower(message), "waiver") {
		content = "Target players with rising minutes; streaming guards on four-game weeks usually pays off."
	}
	return &engine.AgentResponse{
		Content:    content,
		Confidence: 0.5,
		ToolsUsed:  []string{"canned_advice"},
	}, nil
}

func mustBuildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	return logger
}
