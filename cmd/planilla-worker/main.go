package main

import (
	"context"
	"errors"
	"os"

	"planilla/internal/amqp"
	"planilla/internal/backend"
	"planilla/internal/cli"
	"planilla/internal/log"
	"planilla/internal/services"
	"planilla/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	svc := services.NewPayrollService(repo, nil, cfg.SupervisorPlaceholder)
	defer svc.Close()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid payout backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	publisher, err := backend.NewPublisher(ctx, backendCfg, logger.Logger)
	if err != nil {
		logger.Error("Failed to initialize payout backend", log.FieldError, err, "backend", backendCfg.Type)
		os.Exit(1)
	}
	exporter := worker.NewExportWorker(svc, publisher)

	// Re-export recent closed weeks that may have missed their event
	if err := exporter.StartupSyncCheck(ctx, cfg.StartupSyncWeeks); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	if !cfg.AMQPEnabled() {
		logger.Info("AMQP_URL not set, nothing to consume")
		return
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	logger.Info("Consuming week closed events", "queue", cfg.AMQPQueue)
	if err := client.ConsumeWeekClosed(ctx, exporter.HandleWeekClosed); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
