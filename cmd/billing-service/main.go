package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/scaffre/billing-service/internal/auth"
	"github.com/scaffre/billing-service/internal/config"
	"github.com/scaffre/billing-service/internal/db"
	"github.com/scaffre/billing-service/internal/excel"
	httphandler "github.com/scaffre/billing-service/internal/http"
	"github.com/scaffre/billing-service/internal/http/middleware"
	"github.com/scaffre/billing-service/internal/logger"
	"github.com/scaffre/billing-service/internal/pdf"
	"github.com/scaffre/billing-service/internal/repository"
	"github.com/scaffre/billing-service/internal/service"
	"github.com/scaffre/billing-service/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment)

	database, err := db.New(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}

	proofStore, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init proof storage")
	}
	bootCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := proofStore.EnsureBucket(bootCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure proof bucket")
	}

	chargeRepo := repository.NewChargeRepository(database)
	closureRepo := repository.NewClosureRepository(database)

	chargeService := service.NewChargeService(chargeRepo, proofStore, excel.NewGenerator(), pdf.NewGenerator(), cfg)
	closureService := service.NewClosureService(closureRepo, cfg)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)
	handler := httphandler.NewHandler(chargeService, closureService, log)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment, cfg.HTTP.AllowedOrigins)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	log.Info().Str("addr", addr).Msg("starting billing service")

	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}
