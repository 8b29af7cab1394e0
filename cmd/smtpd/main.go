package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/infodancer/mailsrv/internal/config"
	"github.com/infodancer/mailsrv/internal/logging"
	"github.com/infodancer/mailsrv/internal/memstore"
	"github.com/infodancer/mailsrv/internal/metrics"
	"github.com/infodancer/mailsrv/internal/server"
	"github.com/infodancer/mailsrv/internal/smtp"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "Invalid arguments. Expected: %s <port>\n", os.Args[0])
		os.Exit(1)
	}
	port := os.Args[1]

	cfg, err := config.Load(os.Getenv("MAILSRV_CONFIG"), config.SectionSmtpd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.LogLevel)

	var collector metrics.Collector = &metrics.NoopCollector{}
	if cfg.Metrics.Enabled {
		collector = metrics.NewPrometheusCollector(prometheus.DefaultRegisterer)
		metricsServer := metrics.NewPrometheusServer(cfg.Metrics.Address, cfg.Metrics.Path)
		go func() {
			if err := metricsServer.Start(context.Background()); err != nil {
				logger.Error("metrics server error", "error", err.Error())
			}
		}()
		logger.Info("metrics server started", "address", cfg.Metrics.Address, "path", cfg.Metrics.Path)
	}

	// memstore is a deterministic reference backend; a production
	// deployment points pop3d and smtpd at a shared external UserStore
	// instead (the backing store is out of scope here).
	users := memstore.New()

	srv := server.New(server.Opts{
		Cfg:     &cfg,
		Logger:  logger,
		Handler: smtp.Handler(cfg.Hostname, users, collector),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = logging.WithLogger(ctx, logger)

	logger.Info("starting smtpd", "hostname", cfg.Hostname, "port", port)

	if err := srv.Run(ctx, ":"+port); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}

	logger.Info("smtpd stopped")
}
