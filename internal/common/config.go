package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	LogLevel     string             `yaml:"log_level"`
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Storage      StorageConfig      `yaml:"storage"`
	OCR          OCRConfig          `yaml:"ocr"`
	Vision       VisionConfig       `yaml:"vision"`
	LLM          LLMConfig          `yaml:"llm"`
	Quality      QualityConfig      `yaml:"quality"`
	Extraction   ExtractionConfig   `yaml:"extraction"`
	Jurisdiction JurisdictionConfig `yaml:"jurisdiction"`
	Analyzer     AnalyzerConfig     `yaml:"analyzer"`
	Inbox        InboxConfig        `yaml:"inbox"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"` // sqlite | postgres
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// RedisConfig enables the shared credential cooldown store when Addr is set.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// StorageConfig enables report archiving to an S3-compatible bucket when Endpoint is set.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// OCRConfig holds OCR and rasterization configuration
type OCRConfig struct {
	Tesseract   string        `yaml:"tesseract"`
	Pdftoppm    string        `yaml:"pdftoppm"`
	Language    string        `yaml:"language"`
	TessdataDir string        `yaml:"tessdata_dir"`
	DPI         int           `yaml:"dpi"`
	MaxPages    int           `yaml:"max_pages"`
	PSM         int           `yaml:"psm"`
	OEM         int           `yaml:"oem"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ProviderConfig is one credential on an OpenAI-compatible endpoint.
// Two entries with the same BaseURL and different keys are two credentials.
type ProviderConfig struct {
	Name      string `yaml:"name"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// VisionConfig holds the ordered vision transcription providers.
type VisionConfig struct {
	Providers         []ProviderConfig `yaml:"providers"`
	DefaultConfidence float64          `yaml:"default_confidence"`
	Timeout           time.Duration    `yaml:"timeout"`
	MaxTokens         int              `yaml:"max_tokens"`
}

// LLMConfig holds the ordered text-model providers used by the analyzer.
type LLMConfig struct {
	Providers    []ProviderConfig `yaml:"providers"`
	Temperature  float64          `yaml:"temperature"`
	Timeout      time.Duration    `yaml:"timeout"`
	MaxRetries   int              `yaml:"max_retries"`
	RetryBackoff time.Duration    `yaml:"retry_backoff"`
	MaxTokens    int              `yaml:"max_tokens"`
}

// QualityConfig holds the page quality tier thresholds.
type QualityConfig struct {
	CleanMaxSkewDegrees float64 `yaml:"clean_max_skew_degrees"`
	CleanMaxNoise       float64 `yaml:"clean_max_noise"`
	CleanMinContrast    float64 `yaml:"clean_min_contrast"`
	PoorSkewDegrees     float64 `yaml:"poor_skew_degrees"`
	PoorNoise           float64 `yaml:"poor_noise"`
	PoorContrast        float64 `yaml:"poor_contrast"`
	UnreadableNoise     float64 `yaml:"unreadable_noise"`
	MaxSkewSearch       float64 `yaml:"max_skew_search_degrees"`
	MinDeskewDegrees    float64 `yaml:"min_deskew_degrees"`
	AnalysisMaxDim      int     `yaml:"analysis_max_dim"`
}

// ExtractionConfig holds router thresholds and concurrency.
type ExtractionConfig struct {
	LowConfidenceThreshold float64       `yaml:"low_confidence_threshold"`
	MinDocumentConfidence  float64       `yaml:"min_document_confidence"`
	PageConcurrency        int           `yaml:"page_concurrency"`
	Cooldown               time.Duration `yaml:"cooldown"`
}

// JurisdictionConfig holds signal weights for the detector.
type JurisdictionConfig struct {
	LocationWeight  float64 `yaml:"location_weight"`
	LegalWeight     float64 `yaml:"legal_weight"`
	CurrencyWeight  float64 `yaml:"currency_weight"`
	NegativeWeight  float64 `yaml:"negative_weight"`
	MinScore        float64 `yaml:"min_score"`
	SaturationScore float64 `yaml:"saturation_score"`
}

// AnalyzerConfig bounds the contract analysis steps.
type AnalyzerConfig struct {
	MaxTextChars          int `yaml:"max_text_chars"`
	ScoringConcurrency    int `yaml:"scoring_concurrency"`
	SummaryTopFindings    int `yaml:"summary_top_findings"`
	SummaryMaxChars       int `yaml:"summary_max_chars"`
	KeyConcernLimit       int `yaml:"key_concern_limit"`
	NegotiationPointLimit int `yaml:"negotiation_point_limit"`
}

// InboxConfig configures the watched drop folder of the daemon.
type InboxConfig struct {
	Dir            string        `yaml:"dir"`
	Debounce       time.Duration `yaml:"debounce"`
	Workers        int           `yaml:"workers"`
	QueueSize      int           `yaml:"queue_size"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
}

const (
	groqBaseURL   = "https://api.groq.com/openai/v1"
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
)

// DefaultConfig returns the built-in defaults, before file and env overrides.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			GRPCAddr:        ":9090",
			MaxUploadBytes:  32 << 20,
			RequestTimeout:  5 * time.Minute,
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "file:contracts.db?_pragma=busy_timeout(5000)",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Redis: RedisConfig{
			KeyPrefix: "contracts:cooldown:",
		},
		Storage: StorageConfig{
			Bucket: "contract-reports",
		},
		OCR: OCRConfig{
			Tesseract: "tesseract",
			Pdftoppm:  "pdftoppm",
			Language:  "eng",
			DPI:       300,
			MaxPages:  50,
			PSM:       3,
			OEM:       1,
			Timeout:   90 * time.Second,
		},
		Vision: VisionConfig{
			DefaultConfidence: 0.85,
			Timeout:           60 * time.Second,
			MaxTokens:         4096,
		},
		LLM: LLMConfig{
			Temperature:  0.1,
			Timeout:      90 * time.Second,
			MaxRetries:   2,
			RetryBackoff: time.Second,
			MaxTokens:    4096,
		},
		Quality: QualityConfig{
			CleanMaxSkewDegrees: 1.0,
			CleanMaxNoise:       5,
			CleanMinContrast:    0.6,
			PoorSkewDegrees:     5.0,
			PoorNoise:           15,
			PoorContrast:        0.3,
			UnreadableNoise:     40,
			MaxSkewSearch:       15,
			MinDeskewDegrees:    0.5,
			AnalysisMaxDim:      1200,
		},
		Extraction: ExtractionConfig{
			LowConfidenceThreshold: 0.6,
			MinDocumentConfidence:  0.5,
			PageConcurrency:        4,
			Cooldown:               60 * time.Second,
		},
		Jurisdiction: JurisdictionConfig{
			LocationWeight:  10,
			LegalWeight:     15,
			CurrencyWeight:  5,
			NegativeWeight:  20,
			MinScore:        10,
			SaturationScore: 40,
		},
		Analyzer: AnalyzerConfig{
			MaxTextChars:          12000,
			ScoringConcurrency:    4,
			SummaryTopFindings:    5,
			SummaryMaxChars:       1200,
			KeyConcernLimit:       10,
			NegotiationPointLimit: 5,
		},
		Inbox: InboxConfig{
			Debounce:       750 * time.Millisecond,
			Workers:        2,
			QueueSize:      64,
			ProcessTimeout: 10 * time.Minute,
		},
	}
}

// LoadConfig builds the configuration from defaults, an optional YAML file and
// environment variables, in that order of precedence (env wins). When path is
// empty, CONFIG_FILE is consulted.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, NewAppError(CodeConfig, "read config file", err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, NewAppError(CodeConfig, fmt.Sprintf("parse config file %s", path), err)
		}
	}

	cfg.applyEnv()
	cfg.resolveProviderKeys()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)

	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)

	c.Storage.Endpoint = getEnv("S3_ENDPOINT", c.Storage.Endpoint)
	c.Storage.AccessKey = getEnv("S3_ACCESS_KEY", c.Storage.AccessKey)
	c.Storage.SecretKey = getEnv("S3_SECRET_KEY", c.Storage.SecretKey)
	c.Storage.Bucket = getEnv("S3_BUCKET", c.Storage.Bucket)
	c.Storage.UseSSL = getEnvAsBool("S3_USE_SSL", c.Storage.UseSSL)

	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.Pdftoppm = getEnv("PDFTOPPM_BIN", c.OCR.Pdftoppm)
	c.OCR.Language = getEnv("TESSERACT_LANG", c.OCR.Language)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.DPI = getEnvAsInt("OCR_DPI", c.OCR.DPI)
	c.OCR.MaxPages = getEnvAsInt("OCR_MAX_PAGES", c.OCR.MaxPages)

	c.LLM.Temperature = getEnvAsFloat64("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)
	c.LLM.MaxRetries = getEnvAsInt("LLM_MAX_RETRIES", c.LLM.MaxRetries)
	c.Vision.Timeout = getEnvAsDuration("VISION_TIMEOUT", c.Vision.Timeout)

	c.Extraction.PageConcurrency = getEnvAsInt("PAGE_CONCURRENCY", c.Extraction.PageConcurrency)
	c.Extraction.Cooldown = getEnvAsDuration("PROVIDER_COOLDOWN", c.Extraction.Cooldown)

	c.Inbox.Dir = getEnv("INBOX_DIR", c.Inbox.Dir)

	// Provider lists come from the file when present, otherwise from well-known keys.
	if len(c.LLM.Providers) == 0 {
		c.LLM.Providers = envProviders(false)
	}
	if len(c.Vision.Providers) == 0 {
		c.Vision.Providers = envProviders(true)
	}
}

// envProviders returns the providers whose API key is present in the environment,
// ordered primary credential first.
func envProviders(vision bool) []ProviderConfig {
	openAIModel := getEnv("OPENAI_MODEL", "gpt-4o-mini")
	groqModel := getEnv("GROQ_MODEL", "llama-3.3-70b-versatile")
	geminiModel := getEnv("GEMINI_MODEL", "gemini-2.0-flash")
	if vision {
		openAIModel = getEnv("OPENAI_VISION_MODEL", "gpt-4o")
		groqModel = getEnv("GROQ_VISION_MODEL", "meta-llama/llama-4-scout-17b-16e-instruct")
	}

	candidates := []ProviderConfig{
		{Name: "openai", APIKeyEnv: "OPENAI_API_KEY", BaseURL: getEnv("OPENAI_BASE_URL", ""), Model: openAIModel},
		{Name: "openai-alt", APIKeyEnv: "OPENAI_API_KEY_ALT", BaseURL: getEnv("OPENAI_BASE_URL", ""), Model: openAIModel},
		{Name: "gemini", APIKeyEnv: "GEMINI_API_KEY", BaseURL: geminiBaseURL, Model: geminiModel},
		{Name: "groq", APIKeyEnv: "GROQ_API_KEY", BaseURL: groqBaseURL, Model: groqModel},
	}
	out := make([]ProviderConfig, 0, len(candidates))
	for _, p := range candidates {
		if key := os.Getenv(p.APIKeyEnv); key != "" {
			p.APIKey = key
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) resolveProviderKeys() {
	resolve := func(ps []ProviderConfig) {
		for i := range ps {
			if ps[i].APIKeyEnv != "" {
				if key := os.Getenv(ps[i].APIKeyEnv); key != "" {
					ps[i].APIKey = key
				}
			}
		}
	}
	resolve(c.LLM.Providers)
	resolve(c.Vision.Providers)
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks everything a full analysis run needs, including at least one text provider.
func (c *Config) Validate() error {
	v := c.validator()
	v.Check(len(c.LLM.Providers) > 0, "llm.providers", len(c.LLM.Providers), "at least one text provider is required (set OPENAI_API_KEY, GEMINI_API_KEY or GROQ_API_KEY)")
	return c.configError(v)
}

// ValidatePipeline checks thresholds and providers without requiring a text model.
// Extraction-only and detection-only tools use it.
func (c *Config) ValidatePipeline() error {
	return c.configError(c.validator())
}

func (c *Config) configError(v *Validator) error {
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

func (c *Config) validator() *Validator {
	v := NewValidator()

	v.Field("log_level", strings.ToLower(c.LogLevel), OneOf("debug", "info", "warn", "error"))
	v.Field("database.driver", c.Database.Driver, OneOf("sqlite", "postgres"))
	v.Field("database.dsn", c.Database.DSN, Required)

	validateProviders(v, "llm.providers", c.LLM.Providers)
	validateProviders(v, "vision.providers", c.Vision.Providers)
	v.Field("vision.default_confidence", c.Vision.DefaultConfidence, Between(0, 1))
	v.Field("vision.timeout", c.Vision.Timeout, Positive)
	v.Field("llm.timeout", c.LLM.Timeout, Positive)
	v.Field("llm.max_retries", c.LLM.MaxRetries, NonNegative)
	v.Field("llm.retry_backoff", c.LLM.RetryBackoff, NonNegative)
	v.Field("llm.temperature", c.LLM.Temperature, Between(0, 2))

	v.Field("ocr.dpi", c.OCR.DPI, Positive)
	v.Field("ocr.max_pages", c.OCR.MaxPages, Positive)
	v.Field("ocr.timeout", c.OCR.Timeout, Positive)

	q := c.Quality
	v.Field("quality.clean_min_contrast", q.CleanMinContrast, Between(0, 1))
	v.Field("quality.poor_contrast", q.PoorContrast, Between(0, 1))
	v.Field("quality.clean_max_skew_degrees", q.CleanMaxSkewDegrees, NonNegative)
	v.Field("quality.clean_max_noise", q.CleanMaxNoise, NonNegative)
	v.Field("quality.max_skew_search_degrees", q.MaxSkewSearch, Positive)
	v.Field("quality.analysis_max_dim", q.AnalysisMaxDim, Positive)
	v.Check(q.CleanMaxSkewDegrees <= q.PoorSkewDegrees, "quality.poor_skew_degrees", q.PoorSkewDegrees, "must not be below clean_max_skew_degrees")
	v.Check(q.CleanMaxNoise <= q.PoorNoise, "quality.poor_noise", q.PoorNoise, "must not be below clean_max_noise")
	v.Check(q.PoorNoise < q.UnreadableNoise, "quality.unreadable_noise", q.UnreadableNoise, "must be above poor_noise")
	v.Check(q.PoorContrast <= q.CleanMinContrast, "quality.poor_contrast", q.PoorContrast, "must not be above clean_min_contrast")

	e := c.Extraction
	v.Field("extraction.low_confidence_threshold", e.LowConfidenceThreshold, Between(0, 1))
	v.Field("extraction.min_document_confidence", e.MinDocumentConfidence, Between(0, 1))
	v.Field("extraction.page_concurrency", e.PageConcurrency, Positive)
	v.Field("extraction.cooldown", e.Cooldown, Positive)

	j := c.Jurisdiction
	v.Field("jurisdiction.location_weight", j.LocationWeight, Positive)
	v.Field("jurisdiction.legal_weight", j.LegalWeight, Positive)
	v.Field("jurisdiction.currency_weight", j.CurrencyWeight, Positive)
	v.Field("jurisdiction.negative_weight", j.NegativeWeight, NonNegative)
	v.Field("jurisdiction.min_score", j.MinScore, Positive)
	v.Field("jurisdiction.saturation_score", j.SaturationScore, Positive)

	a := c.Analyzer
	v.Field("analyzer.max_text_chars", a.MaxTextChars, Positive)
	v.Field("analyzer.scoring_concurrency", a.ScoringConcurrency, Positive)
	v.Field("analyzer.summary_top_findings", a.SummaryTopFindings, Positive)
	v.Field("analyzer.summary_max_chars", a.SummaryMaxChars, Positive)
	v.Field("analyzer.key_concern_limit", a.KeyConcernLimit, NonNegative)
	v.Field("analyzer.negotiation_point_limit", a.NegotiationPointLimit, NonNegative)

	v.Field("inbox.workers", c.Inbox.Workers, Positive)
	v.Field("inbox.queue_size", c.Inbox.QueueSize, Positive)

	return v
}

// validateProviders checks each provider and rejects repeated names, which
// would share one cooldown entry.
func validateProviders(v *Validator, field string, ps []ProviderConfig) {
	seen := make(map[string]int, len(ps))
	for i, p := range ps {
		prefix := fmt.Sprintf("%s[%d]", field, i)
		v.Field(prefix+".name", p.Name, Required)
		v.Field(prefix+".model", p.Model, Required)
		v.Field(prefix+".api_key", p.APIKey, Required)
		if p.Name == "" {
			continue
		}
		first, dup := seen[p.Name]
		v.Check(!dup, prefix+".name", p.Name, fmt.Sprintf("duplicates %s[%d].name", field, first))
		if !dup {
			seen[p.Name] = i
		}
	}
}
