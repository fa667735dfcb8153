package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/adcopysurge/backend/internal/analysis"
	"github.com/adcopysurge/backend/internal/config"
	"github.com/adcopysurge/backend/internal/credits"
	"github.com/adcopysurge/backend/internal/db"
	"github.com/adcopysurge/backend/internal/generator"
	internalhttp "github.com/adcopysurge/backend/internal/http/api/admin"
	"github.com/adcopysurge/backend/internal/http/api/front"
	"github.com/adcopysurge/backend/internal/ratelimit"
	"github.com/adcopysurge/backend/internal/scoring"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg config.AppConfig) error {
	conn, _, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	return db.Migrate(conn.WithContext(ctx))
}

// ResetCredits runs one monthly reset pass over every due account.
func ResetCredits(ctx context.Context, cfg config.AppConfig) (int, error) {
	conn, _, err := openDatabase(cfg)
	if err != nil {
		return 0, err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return 0, errMigrate
	}
	ledger := credits.NewLedger(conn, credits.ProfileTierLookup(conn))
	return ledger.ResetDue(ctx, time.Now().UTC())
}

// RunServer boots the HTTP API with database-backed components.
// A positive port overrides the configured one.
func RunServer(ctx context.Context, cfg config.AppConfig, port int) error {
	conn, appCfg, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if port > 0 {
		appCfg.Port = port
	}

	deps := buildComponents(conn, appCfg)
	defer func() {
		if errClose := deps.limiter.Close(); errClose != nil {
			log.WithError(errClose).Warn("rate limiter close failed")
		}
	}()
	if resetter := credits.NewResetter(deps.ledger, appCfg.Credits.ResetInterval); resetter != nil {
		resetter.Start(ctx)
	}

	engine := newEngine(conn, appCfg, deps)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", appCfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("server shutdown error: %v", errShutdown)
		}
	}()

	log.Infof("starting server on %s with config=%s", srv.Addr, cfg.ConfigPath)
	if errListen := srv.ListenAndServe(); errListen != nil && !errors.Is(errListen, http.ErrServerClosed) {
		return errListen
	}
	return nil
}

type components struct {
	ledger   *credits.Ledger
	service  *analysis.Service
	limiter  *ratelimit.Manager
	resolver *ratelimit.Resolver
}

// buildComponents wires the ledger, scorer, generator and rate limiter.
func buildComponents(conn *gorm.DB, cfg config.Config) components {
	tierOf := credits.ProfileTierLookup(conn)
	ledger := credits.NewLedger(conn, tierOf)

	var gen generator.Generator
	if openAI := generator.NewOpenAIGenerator(cfg.OpenAI); openAI != nil {
		gen = openAI
		log.Infof("alternative generation enabled with model %s", openAI.Model())
	} else {
		log.Info("openai api key not configured, alternative generation disabled")
	}

	rateCfg := cfg.RateLimit
	provider := func() ratelimit.SettingsConfig { return rateCfg }
	return components{
		ledger:   ledger,
		service:  analysis.NewService(conn, ledger, scoring.NewCalibrator(cfg.Scoring), gen),
		limiter:  ratelimit.NewManager(provider, nil, nil),
		resolver: ratelimit.NewResolver(provider, tierOf),
	}
}

func newEngine(conn *gorm.DB, cfg config.Config, c components) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	internalhttp.RegisterAdminRoutes(engine, conn, c.ledger, cfg.AdminToken)
	front.RegisterFrontRoutes(engine, front.Deps{
		Credits:  c.ledger,
		Analyzer: c.service,
		Limiter:  c.limiter,
		Resolver: c.resolver,
	})
	engine.NoRoute(func(ctx *gin.Context) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return engine
}

// openDatabase loads the config file and opens the configured database.
func openDatabase(cfg config.AppConfig) (*gorm.DB, config.Config, error) {
	configPath := config.ResolveConfigPath(cfg.ConfigPath)
	appCfg, err := config.Load(configPath)
	if err != nil {
		return nil, config.Config{}, err
	}
	log.SetLevel(config.ParseLogLevel(appCfg.LogLevel))
	dsn := appCfg.DSN()
	if dsn == "" {
		return nil, config.Config{}, config.ErrMissingDatabaseDSN
	}
	conn, err := db.Open(dsn)
	if err != nil {
		return nil, config.Config{}, err
	}
	return conn, appCfg, nil
}

// corsMiddleware enables permissive CORS for browser clients.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, "+front.HeaderUserID)
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
