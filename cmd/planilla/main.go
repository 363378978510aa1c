package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"planilla/internal/amqp"
	"planilla/internal/cli"
	apphttp "planilla/internal/http"
	"planilla/internal/log"
	"planilla/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)

	// Week events are optional; without a broker closes are only logged
	var publisher services.WeekEventPublisher
	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, week events disabled", log.FieldError, err)
		} else {
			defer client.Close()
			publisher = client
			logger.Info("AMQP publisher ready", "exchange", cfg.AMQPExchange)
		}
	}

	svc := services.NewPayrollService(repo, publisher, cfg.SupervisorPlaceholder)
	defer svc.Close()

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:          logger.WithComponent(log.ComponentHTTP),
		SummaryCacheTTL: cfg.SummaryCacheTTL,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting planilla server", "port", cfg.Port, log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		srv.Background(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
