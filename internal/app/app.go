package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mgrimsby/property-ops/config"
	"github.com/mgrimsby/property-ops/internal/controller/restapi"
	worker "github.com/mgrimsby/property-ops/internal/controller/worker/outbox"
	infrakafka "github.com/mgrimsby/property-ops/internal/infrastructure/kafka"
	"github.com/mgrimsby/property-ops/internal/infrastructure/visma"
	"github.com/mgrimsby/property-ops/internal/repo/persistent"
	"github.com/mgrimsby/property-ops/internal/usecase/export"
	"github.com/mgrimsby/property-ops/internal/usecase/outbox"
	"github.com/mgrimsby/property-ops/pkg/httpserver"
	"github.com/mgrimsby/property-ops/pkg/kafka/producer"
	"github.com/mgrimsby/property-ops/pkg/logger"
	"github.com/mgrimsby/property-ops/pkg/postgres"
	"github.com/mgrimsby/property-ops/pkg/s3client"
)

func Run(cfg *config.Config) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Logger
	l := logger.New(cfg.Log.Level)

	// Repository

	// s3
	s3Ctx, s3Cancel := context.WithTimeout(ctx, cfg.S3.CfgLoadTimeout)
	defer s3Cancel()
	s3c, err := s3client.New(s3Ctx, cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - s3client.New: %w", err))
	}

	// postgres
	pg, err := postgres.New(cfg.PG.URL, postgres.MaxPoolSize(cfg.PG.PoolMax))
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - postgres.New: %w", err))
	}
	defer pg.Close()

	invoiceRepo := persistent.NewInvoiceRepo(pg)
	exportRepo := persistent.NewExportRecordRepo(pg)
	outboxRepo := persistent.NewOutboxRepo(pg)
	auditRepo := persistent.NewAuditRepo(pg)
	archiveRepo := persistent.NewArchiveRepo(s3c, cfg.S3.Bucket)

	// Gateway
	vismaGateway := visma.New(visma.SubmitDelay(cfg.Visma.SubmitDelay))

	// Use-Case

	// outbox use-case
	outboxUseCase := outbox.New(outboxRepo, auditRepo, l)

	// export use-case
	exportUseCase := export.New(
		invoiceRepo,
		exportRepo,
		auditRepo,
		outboxUseCase,
		vismaGateway,
		pg,
		l,
	)

	// Kafka Producer
	kafkaProducer, err := producer.New(ctx, cfg.Kafka.Brokers)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - producer.New: %w", err))
	}
	eventPublisher := infrakafka.NewEventPublisher(kafkaProducer, cfg.Kafka.Topic)

	// Outbox Processor Worker
	outboxProcessor := worker.New(
		outboxUseCase,
		l,
		cfg.Outbox.PollInterval,
		cfg.Outbox.TickTimeout,
		cfg.Outbox.HandlerTimeout,
		cfg.Outbox.BatchSize,
		cfg.Outbox.MaxRetries,
		worker.NewExportHandler(exportUseCase, vismaGateway, archiveRepo, l),
		worker.NewPublishHandler(eventPublisher),
	)

	// HTTP Server
	httpServer := httpserver.New(l, httpserver.Port(cfg.HTTP.Port), httpserver.Prefork(cfg.HTTP.UsePreforkMode))
	restapi.NewRouter(httpServer.App, cfg, exportUseCase, l)

	// Start Components
	err = outboxProcessor.Start(ctx)
	if err != nil {
		l.Fatal(fmt.Errorf("app - Run - outboxProcessor.Start: %w", err))
	}
	httpServer.Start()

	// Waiting Signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-interrupt:
		l.Info("app - Run - signal: %s", s.String())
	case err = <-httpServer.Notify():
		l.Error(fmt.Errorf("app - Run - httpServer.Notify: %w", err))
	}

	// Shutdown
	err = httpServer.Shutdown()
	if err != nil {
		l.Error(fmt.Errorf("app - Run - httpServer.Shutdown: %w", err))
	}

	opShutdownCtx, opShutdownCancel := context.WithTimeout(ctx, cfg.Outbox.ShutdownTimeout)
	defer opShutdownCancel()
	err = outboxProcessor.Shutdown(opShutdownCtx)
	if err != nil {
		l.Error(fmt.Errorf("app - Run - outboxProcessor.Shutdown: %w", err))
	}

	err = eventPublisher.Close()
	if err != nil {
		l.Error(fmt.Errorf("app - Run - eventPublisher.Close: %w", err))
	}
}
