package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/smartify-home/auth-service/internal/config"
	handler "github.com/smartify-home/auth-service/internal/handler/http"
	"github.com/smartify-home/auth-service/internal/infrastructure/database"
	"github.com/smartify-home/auth-service/internal/infrastructure/database/postgres"
	"github.com/smartify-home/auth-service/internal/infrastructure/redis"
	"github.com/smartify-home/auth-service/internal/infrastructure/security"
	"github.com/smartify-home/auth-service/internal/service"
)

// App wires the auth service together and owns the lifecycle of its
// long-lived resources.
type App struct {
	cfg    *config.Config
	logger *zap.Logger

	dbPool      *pgxpool.Pool
	redisClient *goredis.Client
	server      *http.Server
}

// New builds the full dependency graph. Everything that can fail at startup
// fails here, before the listener opens.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg.Database.AutoMigrate {
		if err := postgres.RunMigrations(cfg.Database, cfg.Database.MigrationsPath, logger); err != nil {
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
	}

	dbPool, err := postgres.NewDBPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("postgres init failed: %w", err)
	}

	redisClient, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("redis init failed: %w", err)
	}

	encryptor, err := security.NewAESGCMEncryptionService(cfg.Auth.EncryptionKeyHex)
	if err != nil {
		dbPool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("encryption init failed: %w", err)
	}

	userRepo := database.NewPgxUserRepository(dbPool)
	generationRepo := database.NewPgxGenerationRepository(dbPool)
	revocationRepo := database.NewPgxRevocationRepository(dbPool)
	revocationCache := redis.NewRevocationCache(redisClient)
	sessionStore := redis.NewSRPSessionCache(redisClient, cfg.Auth.SRPSessionTTL)

	revocationStore := service.NewRevocationStore(
		generationRepo, revocationRepo, revocationCache,
		cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL, logger,
	)
	codec := service.NewTokenCodec(cfg.Auth.SigningSecret, encryptor)
	tokenService := service.NewTokenService(codec, userRepo, revocationStore, cfg.Auth, logger)
	authService := service.NewAuthService(
		security.NewSRPService(),
		security.NewTOTPService(cfg.MFA.TOTPIssuerName),
		userRepo, sessionStore, tokenService, logger,
	)

	router := handler.NewRouter(logger, authService, tokenService, cfg.Auth)

	return &App{
		cfg:         cfg,
		logger:      logger,
		dbPool:      dbPool,
		redisClient: redisClient,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}, nil
}

// Run serves until SIGINT/SIGTERM, then drains within the configured
// shutdown window.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		a.close()
		return err
	case sig := <-quit:
		a.logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("http server shutdown error", zap.Error(err))
	}

	a.close()
	return nil
}

func (a *App) close() {
	if err := a.redisClient.Close(); err != nil {
		a.logger.Warn("redis close error", zap.Error(err))
	}
	a.dbPool.Close()
}
