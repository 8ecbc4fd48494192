package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/garyjia/gstr1-reconciler/internal/application/service"
	"github.com/garyjia/gstr1-reconciler/internal/config"
	"github.com/garyjia/gstr1-reconciler/internal/gateway"
	httpapi "github.com/garyjia/gstr1-reconciler/internal/interfaces/http"
	"github.com/garyjia/gstr1-reconciler/internal/processor"
	"github.com/garyjia/gstr1-reconciler/internal/repository"
	"github.com/garyjia/gstr1-reconciler/internal/schema"
	"github.com/garyjia/gstr1-reconciler/internal/storage"
	"github.com/garyjia/gstr1-reconciler/internal/workbook"
	"github.com/garyjia/gstr1-reconciler/pkg/database"
	"github.com/garyjia/gstr1-reconciler/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting GSTR-1 reconciliation server",
		zap.String("template_version", workbook.TemplateVersion),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Verification gateway
	verifier, err := gateway.New(gateway.Options{
		URL:      cfg.Gateway.URL,
		Timeout:  cfg.Gateway.Timeout,
		Simulate: cfg.Gateway.Simulate,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize verification gateway", zap.Error(err))
	}

	dialect, err := schema.ParseDialect(cfg.Compliance.Dialect)
	if err != nil {
		logger.Fatal("Invalid default dialect", zap.Error(err))
	}

	// Services
	store := repository.NewSQLiteStore(db.DB, logger)
	artifacts := storage.NewArtifactStore(cfg.Storage.OutputDir, logger)
	runner := processor.NewProcessor(verifier, processor.Config{
		VerifyConcurrency: cfg.Compliance.VerifyConcurrency,
		CacheVerdicts:     cfg.Compliance.CacheVerdicts,
	}, logger)

	partyService := service.NewPartyService(store, artifacts, logger)
	complianceService := service.NewComplianceService(store, runner, artifacts, service.Defaults{
		ProductName: cfg.Compliance.ProductName,
		Dialect:     dialect,
	}, logger)

	server := httpapi.NewServer(httpapi.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Mode:         cfg.Server.Mode,
	}, partyService, complianceService, logger)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Server exited")
}
