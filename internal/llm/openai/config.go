package openai

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	openai "github.com/sashabaranov/go-openai"

	"github.com/joseph-ayodele/contracts-analyzer/internal/llm"
)

// Config for one OpenAI-compatible credential. Gemini and Groq are reached
// through their OpenAI-compatible endpoints by setting BaseURL.
type Config struct {
	Name        string        // credential label used in logs, metrics and cooldowns
	APIKey      string        // if empty, falls back to env OPENAI_API_KEY
	BaseURL     string        // default https://api.openai.com/v1
	Model       string        // e.g., "gpt-4o-mini"
	Temperature float32       // 0..2, ignored by reasoning models
	MaxTokens   int           // default completion budget
	Timeout     time.Duration // http client timeout
}

type Client struct {
	cfg           Config
	api           *openai.Client
	logger        *slog.Logger
	transcription *jsonschema.Schema
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Client{
		cfg:           cfg,
		api:           openai.NewClientWithConfig(oc),
		logger:        logger.With("provider", cfg.Name),
		transcription: llm.MustCompileSchema(llm.TranscriptionSchema()),
	}
}

// Name identifies the credential, not just the vendor.
func (c *Client) Name() string {
	return c.cfg.Name
}

// reasoning models take max_completion_tokens and reject custom temperatures
func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}
