// Package app wires configuration into the running components shared by the
// daemon and the CLI.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/joseph-ayodele/contracts-analyzer/internal/analyzer"
	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/core/document"
	"github.com/joseph-ayodele/contracts-analyzer/internal/core/extract"
	"github.com/joseph-ayodele/contracts-analyzer/internal/core/failover"
	"github.com/joseph-ayodele/contracts-analyzer/internal/core/imaging"
	"github.com/joseph-ayodele/contracts-analyzer/internal/core/ocr"
	"github.com/joseph-ayodele/contracts-analyzer/internal/core/pipeline"
	"github.com/joseph-ayodele/contracts-analyzer/internal/export"
	"github.com/joseph-ayodele/contracts-analyzer/internal/jurisdiction"
	"github.com/joseph-ayodele/contracts-analyzer/internal/llm"
	"github.com/joseph-ayodele/contracts-analyzer/internal/llm/openai"
	"github.com/joseph-ayodele/contracts-analyzer/internal/metrics"
	"github.com/joseph-ayodele/contracts-analyzer/internal/reports"
	"github.com/joseph-ayodele/contracts-analyzer/internal/repository"
	"github.com/joseph-ayodele/contracts-analyzer/internal/throttle"
)

// NewLogger builds the JSON logger used by the binaries.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// ParseLevel maps debug|info|warn|error to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Pipeline is the document processor plus the pieces callers use on their own.
type Pipeline struct {
	Processor *pipeline.Processor
	Detector  *jurisdiction.Detector
	redis     *redis.Client
}

// Close releases the cooldown store connection, if any.
func (p *Pipeline) Close() {
	if p.redis != nil {
		_ = p.redis.Close()
	}
}

// NewPipeline builds the processor from cfg. Without text providers the
// processor can still extract and detect, but Run fails with a config error.
func NewPipeline(ctx context.Context, cfg *common.Config, m *metrics.Metrics, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	store, rdb := CooldownStore(ctx, cfg.Redis, logger)

	ocrEngine := ocr.NewExtractor(ocr.ConfigFrom(cfg.OCR), logger)
	loader := document.NewLoader(ocrEngine, cfg.OCR.MaxPages, logger)

	var vision extract.Transcriber
	if models := VisionModels(cfg.Vision, logger); len(models) > 0 {
		vision = extract.NewVisionTranscriber(models, failover.Options{
			Capability: "vision",
			Timeout:    cfg.Vision.Timeout,
			Cooldown:   cfg.Extraction.Cooldown,
			Store:      store,
			Metrics:    m,
			Logger:     logger,
		}, cfg.Vision.DefaultConfidence, logger)
	} else {
		logger.Warn("no vision providers configured, pages are read by OCR only")
	}
	router := extract.NewRouter(
		imaging.NewAssessor(cfg.Quality, logger),
		imaging.NewPreprocessor(cfg.Quality, logger),
		vision,
		extract.NewOCRTranscriber(ocrEngine, logger),
		cfg.Extraction,
		m,
		logger,
	)

	detector := jurisdiction.NewDetector(cfg.Jurisdiction, logger)

	var an pipeline.Analyzer
	if models := TextModels(cfg.LLM, logger); len(models) > 0 {
		a, err := analyzer.New(models, analyzer.DefaultBenchmarks(), cfg.Analyzer, cfg.LLM, failover.Options{
			Capability: "text",
			Cooldown:   cfg.Extraction.Cooldown,
			Store:      store,
			Metrics:    m,
			Logger:     logger,
		}, logger)
		if err != nil {
			if rdb != nil {
				_ = rdb.Close()
			}
			return nil, err
		}
		an = a
	}

	return &Pipeline{
		Processor: pipeline.NewProcessor(loader, router, detector, an, m, logger),
		Detector:  detector,
		redis:     rdb,
	}, nil
}

// TextModels builds one client per configured text credential, in order.
func TextModels(cfg common.LLMConfig, logger *slog.Logger) []llm.TextModel {
	out := make([]llm.TextModel, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		out = append(out, openai.NewClient(openai.Config{
			Name:        p.Name,
			APIKey:      p.APIKey,
			BaseURL:     p.BaseURL,
			Model:       p.Model,
			Temperature: float32(cfg.Temperature),
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
		}, logger))
	}
	return out
}

// VisionModels builds one client per configured vision credential, in order.
func VisionModels(cfg common.VisionConfig, logger *slog.Logger) []llm.VisionModel {
	out := make([]llm.VisionModel, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		out = append(out, openai.NewClient(openai.Config{
			Name:      p.Name,
			APIKey:    p.APIKey,
			BaseURL:   p.BaseURL,
			Model:     p.Model,
			MaxTokens: cfg.MaxTokens,
			Timeout:   cfg.Timeout,
		}, logger))
	}
	return out
}

// CooldownStore returns the Redis store when Redis is configured and
// reachable, otherwise an in-process store. The client is nil for the latter.
func CooldownStore(ctx context.Context, cfg common.RedisConfig, logger *slog.Logger) (throttle.Store, *redis.Client) {
	if cfg.Addr == "" {
		return throttle.NewMemoryStore(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	store := throttle.NewRedisStore(client, cfg.KeyPrefix)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		logger.Warn("redis unavailable, using in-process cooldowns", "addr", cfg.Addr, "error", err)
		_ = client.Close()
		return throttle.NewMemoryStore(), nil
	}
	logger.Info("redis cooldown store connected", "addr", cfg.Addr)
	return store, client
}

// Service is the full daemon stack: pipeline, report store, archive and metrics.
type Service struct {
	Pipeline *Pipeline
	DB       *repository.DB
	Reports  *reports.Service
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	logger   *slog.Logger
}

// NewService opens the database and archive and wires the report service.
func NewService(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	p, err := NewPipeline(ctx, cfg, m, logger)
	if err != nil {
		return nil, err
	}
	db, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	archive, err := export.NewArchive(ctx, cfg.Storage, logger)
	if err != nil {
		p.Close()
		db.Close(logger)
		return nil, fmt.Errorf("open archive: %w", err)
	}

	var archiver reports.Archiver
	if archive != nil {
		archiver = archive
	}
	svc := reports.NewService(
		p.Processor,
		repository.NewReportRepository(db, logger),
		archiver,
		export.NewWriter(logger),
		cfg.Server.MaxUploadBytes,
		logger,
	)
	return &Service{
		Pipeline: p,
		DB:       db,
		Reports:  svc,
		Metrics:  m,
		Registry: reg,
		logger:   logger,
	}, nil
}

// Close releases the database and cooldown store.
func (s *Service) Close() {
	s.Pipeline.Close()
	s.DB.Close(s.logger)
}
