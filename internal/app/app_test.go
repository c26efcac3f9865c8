package app

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/joseph-ayodele/contracts-analyzer/constants"
	"github.com/joseph-ayodele/contracts-analyzer/internal/common"
	"github.com/joseph-ayodele/contracts-analyzer/internal/entity"
	"github.com/joseph-ayodele/contracts-analyzer/internal/throttle"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" INFO ", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestModelsKeepProviderOrder(t *testing.T) {
	providers := []common.ProviderConfig{
		{Name: "openai", APIKey: "k1", Model: "gpt-4o-mini"},
		{Name: "gemini", APIKey: "k2", Model: "gemini-2.0-flash", BaseURL: "https://example.invalid/v1"},
	}
	text := TextModels(common.LLMConfig{Providers: providers}, nil)
	vision := VisionModels(common.VisionConfig{Providers: providers}, nil)
	if len(text) != 2 || len(vision) != 2 {
		t.Fatalf("got %d text and %d vision models", len(text), len(vision))
	}
	for i, p := range providers {
		if text[i].Name() != p.Name || vision[i].Name() != p.Name {
			t.Errorf("model %d = %s/%s, want %s", i, text[i].Name(), vision[i].Name(), p.Name)
		}
	}
}

func TestCooldownStoreWithoutRedisIsInProcess(t *testing.T) {
	store, client := CooldownStore(context.Background(), common.RedisConfig{}, slog.Default())
	if client != nil {
		t.Error("expected no redis client")
	}
	if _, ok := store.(*throttle.MemoryStore); !ok {
		t.Errorf("store = %T, want *throttle.MemoryStore", store)
	}
}

func testConfig() *common.Config {
	cfg := common.DefaultConfig()
	cfg.Database = common.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}
	cfg.LLM.Providers = nil
	cfg.Vision.Providers = nil
	return cfg
}

func TestPipelineWithoutTextModelFailsRunWithConfigError(t *testing.T) {
	p, err := NewPipeline(context.Background(), testConfig(), nil, nil)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	defer p.Close()

	_, err = p.Processor.Run(context.Background(), entity.DocumentInput{Name: "a.pdf", Data: []byte("%PDF-1.4")})
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != common.CodeConfig {
		t.Fatalf("err = %v, want %s", err, common.CodeConfig)
	}
	if common.StageOf(err) != constants.StageAnalysis {
		t.Errorf("stage = %q", common.StageOf(err))
	}

	label := p.Detector.Detect("Governed by the laws of the State of Delaware. Fee: $5,000.")
	if label.Jurisdiction != constants.JurisdictionUSADelaware {
		t.Errorf("jurisdiction = %s", label.Jurisdiction)
	}
}

func TestNewServiceWiresStore(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.Providers = []common.ProviderConfig{{Name: "openai", APIKey: "k", Model: "gpt-4o-mini"}}

	svc, err := NewService(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	defer svc.Close()

	if err := svc.DB.HealthCheck(context.Background(), 0); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
	list, err := svc.Reports.List(context.Background(), 10)
	if err != nil || len(list) != 0 {
		t.Errorf("List = %v, %v", list, err)
	}
	families, err := svc.Registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var sawGo bool
	for _, f := range families {
		if f.GetName() == "go_goroutines" {
			sawGo = true
		}
	}
	if !sawGo {
		t.Error("go collector not registered")
	}
}
