package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/contracts-analyzer/internal/app"
	"github.com/joseph-ayodele/contracts-analyzer/internal/async"
	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/ingest"
	"github.com/joseph-ayodele/contracts-analyzer/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (defaults to $CONFIG_FILE)")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := app.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := app.NewService(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start services", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	if err := svc.DB.HealthCheck(ctx, 5*time.Second); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	// gRPC: health and reflection only
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	go func() {
		logger.Info("grpc health listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	httpServer := &http.Server{
		Addr: cfg.Server.HTTPAddr,
		Handler: server.NewRouter(server.Deps{
			Reports:  svc.Reports,
			Detector: svc.Pipeline.Detector,
			Health:   svc.DB,
			Metrics:  svc.Metrics,
			Gatherer: svc.Registry,
			Config:   cfg.Server,
			Logger:   logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("contracts-analyzer listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	var queue *async.ProcessorQueue
	var inbox sync.WaitGroup
	if cfg.Inbox.Dir != "" {
		queue = async.NewProcessorQueue(svc.Reports, logger,
			async.WithWorkers(cfg.Inbox.Workers),
			async.WithQueueSize(cfg.Inbox.QueueSize),
			async.WithProcessTimeout(cfg.Inbox.ProcessTimeout),
			async.WithMetrics(svc.Metrics),
		)
		if err := startInbox(ctx, &inbox, cfg.Inbox, queue, logger); err != nil {
			logger.Error("failed to watch inbox", "dir", cfg.Inbox.Dir, "error", err)
			os.Exit(1)
		}
	}

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	inbox.Wait()
	if queue != nil {
		queue.Shutdown(shutdownCtx)
	}
	grpcServer.GracefulStop()
	logger.Info("stopped")
}

// startInbox feeds files dropped into the inbox to the queue until ctx is done.
func startInbox(ctx context.Context, wg *sync.WaitGroup, cfg common.InboxConfig, queue async.Queue, logger *slog.Logger) error {
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{cfg.Dir},
		InitialScan: true,
		Debounce:    cfg.Debounce,
		SkipHidden:  true,
	}, logger)
	if err != nil {
		return err
	}
	logger.Info("watching inbox", "dir", cfg.Dir)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case path, ok := <-events:
				if !ok {
					return
				}
				job := async.Job{Path: path, SubmittedAt: time.Now(), RequestID: uuid.NewString()}
				if err := queue.Enqueue(ctx, job); err != nil {
					logger.Warn("inbox file not queued", "path", path, "error", err)
				}
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				logger.Warn("inbox watcher error", "error", err)
			}
		}
	}()
	return nil
}
