package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/polyglotd/polyglotd/pkg/auth"
	"github.com/polyglotd/polyglotd/pkg/config"
	"github.com/polyglotd/polyglotd/pkg/telemetry"
	"github.com/polyglotd/polyglotd/pkg/translate"
	"github.com/polyglotd/polyglotd/pkg/validate"
	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var (
	configPath = flag.String("config", "polyglotd.yaml", "Config file path")
	listen     = flag.String("listen", "", "Listen address (overrides config)")
	Version    = "dev"
)

const rateLimitWindow = time.Minute

// Server holds the wired request-handling dependencies.
type Server struct {
	logger       zerolog.Logger
	db           *gorm.DB
	history      *HistoryStore
	rateLimiter  *RateLimiter
	keyring      *auth.Keyring
	translator   *translate.Service
	maxPerMinute int
	environment  string
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	logger.Info().Str("version", Version).Str("environment", cfg.Server.Environment).Msg("Polyglotd starting")

	provider, err := telemetry.Setup(context.Background(), telemetry.Options{
		ServiceName:    "polyglotd",
		ServiceVersion: Version,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
		LogSpans:       cfg.Tracing.LogSpans,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to set up tracing")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
	}()

	db, err := gorm.Open(sqlite.Open(cfg.Database.Path), &gorm.Config{})
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("Failed to open database")
	}
	if err := db.AutoMigrate(&TranslationHistory{}); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate schema")
	}

	validator := validate.New(cfg.Translation.MaxTextLength, cfg.Translation.SupportedLanguages)
	backend := translate.NewHTTPBackend(cfg.Backend.URL, time.Duration(cfg.Backend.RequestTimeout)*time.Second)
	history := NewHistoryStore(db)

	srv := &Server{
		logger:       logger,
		db:           db,
		history:      history,
		rateLimiter:  NewRateLimiter(cfg.RateLimit.RequestsPerMinute, rateLimitWindow),
		keyring:      auth.NewKeyring(cfg.Auth.APIKeys, []byte(cfg.Auth.LogEncryptKey)),
		translator:   translate.NewService(backend, validator, history, logger),
		maxPerMinute: cfg.RateLimit.RequestsPerMinute,
		environment:  cfg.Server.Environment,
	}

	go srv.pruneLoop()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(withRequestContext(logger), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "X-API-Key", "X-Request-ID"},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/health", srv.handleHealth)
	r.GET("/", srv.handleRoot)
	srv.registerAPIRoutes(r)

	addr := *listen
	if addr == "" {
		addr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	logger.Info().Str("addr", addr).Msg("Listening")
	if err := r.Run(addr); err != nil {
		logger.Fatal().Err(err).Msg("Server exited")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":      "ok",
		"version":     Version,
		"environment": s.environment,
	})
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(200, gin.H{
		"message":     "Welcome to Polyglotd",
		"version":     Version,
		"environment": s.environment,
		"endpoints": gin.H{
			"health":    "/health",
			"translate": "/api/v1/translate",
			"detect":    "/api/v1/detect",
			"history":   "/api/v1/history",
		},
		"authentication": "API key required in X-API-Key header",
		"rate_limit":     fmt.Sprintf("%d requests per minute", s.maxPerMinute),
	})
}

// pruneLoop evicts identifiers whose requests have all aged out, so the
// rate-limit map does not grow with every key ever seen.
func (s *Server) pruneLoop() {
	ticker := time.NewTicker(rateLimitWindow)
	defer ticker.Stop()
	for range ticker.C {
		s.rateLimiter.Prune()
		s.logger.Debug().Int("identifiers", s.rateLimiter.Stats().Identifiers).Msg("rate limiter pruned")
	}
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.DurationFieldUnit = time.Millisecond

	level := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level))); err == nil && cfg.Level != "" {
		level = parsed
	}

	var out io.Writer = os.Stdout
	if cfg.Path != "" {
		if f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			out = f
		}
	}
	if !cfg.JSON && cfg.Path == "" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).With().Timestamp().Logger().Level(level)
}
