package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/smartify-home/auth-service/internal/app"
	"github.com/smartify-home/auth-service/internal/config"
	"github.com/smartify-home/auth-service/internal/utils/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	application, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("failed to start", zap.Error(err))
	}

	if err := application.Run(); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
