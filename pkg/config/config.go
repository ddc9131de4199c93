package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Storage   StorageConfig
	HubSpot   HubSpotConfig
	Assembly  AssemblyAIConfig
	LLM       LLMConfig
	Groq      GroqConfig
	Anthropic AnthropicConfig
	Pipeline  PipelineConfig
	Secrets   SecretsConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string   `envconfig:"PORT" default:"8080"`
	Host            string   `envconfig:"HOST" default:"0.0.0.0"`
	Environment     string   `envconfig:"ENVIRONMENT" default:"development"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`
	ShutdownTimeout int      `envconfig:"SHUTDOWN_TIMEOUT" default:"10"`
	// RequestTimeout bounds a single trigger request; the scheduler kills runs past its own ceiling.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"300s"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host        string `envconfig:"DB_HOST" default:"localhost"`
	Port        string `envconfig:"DB_PORT" default:"5432"`
	User        string `envconfig:"DB_USER" default:"postgres"`
	Password    string `envconfig:"DB_PASSWORD" default:"postgres"`
	Name        string `envconfig:"DB_NAME" default:"call_coach"`
	SSLMode     string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns    int    `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns    int    `envconfig:"DB_MIN_CONNS" default:"2"`
	AutoMigrate bool   `envconfig:"DB_AUTO_MIGRATE" default:"false"`
}

// RedisConfig holds Redis configuration. Stage locks are disabled when Host is empty.
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     string `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// StorageConfig holds object storage configuration for run archives
type StorageConfig struct {
	Enabled         bool   `envconfig:"STORAGE_ENABLED" default:"false"`
	Endpoint        string `envconfig:"STORAGE_ENDPOINT" default:"localhost:9000"`
	AccessKeyID     string `envconfig:"STORAGE_ACCESS_KEY" default:"minioadmin"`
	SecretAccessKey string `envconfig:"STORAGE_SECRET_KEY" default:"minioadmin"`
	BucketName      string `envconfig:"STORAGE_BUCKET" default:"call-coach-runs"`
	UseSSL          bool   `envconfig:"STORAGE_USE_SSL" default:"false"`
}

// HubSpotConfig holds CRM configuration
type HubSpotConfig struct {
	AccessToken  string        `envconfig:"HUBSPOT_ACCESS_TOKEN"`
	BaseURL      string        `envconfig:"HUBSPOT_BASE_URL" default:"https://api.hubapi.com"`
	RateLimit    float64       `envconfig:"HUBSPOT_RATE_LIMIT" default:"8"`
	Timeout      time.Duration `envconfig:"HUBSPOT_TIMEOUT" default:"20s"`
	NameCacheTTL time.Duration `envconfig:"HUBSPOT_NAME_CACHE_TTL" default:"1h"`
}

// AssemblyAIConfig holds speech-to-text configuration
type AssemblyAIConfig struct {
	APIKey       string `envconfig:"ASSEMBLYAI_API_KEY"`
	LanguageCode string `envconfig:"ASSEMBLYAI_LANGUAGE_CODE" default:"en_us"`
}

// LLMConfig selects the completion provider
type LLMConfig struct {
	Provider    string  `envconfig:"LLM_PROVIDER" default:"groq"`
	Temperature float64 `envconfig:"LLM_TEMPERATURE" default:"0.2"`
	MaxTokens   int     `envconfig:"LLM_MAX_TOKENS" default:"4000"`
}

// GroqConfig holds Groq API configuration
type GroqConfig struct {
	APIKey  string        `envconfig:"GROQ_API_KEY"`
	BaseURL string        `envconfig:"GROQ_API_URL" default:"https://api.groq.com"`
	Model   string        `envconfig:"GROQ_MODEL" default:"llama-3.3-70b-versatile"`
	Timeout time.Duration `envconfig:"GROQ_TIMEOUT" default:"60s"`
}

// AnthropicConfig holds Anthropic API configuration
type AnthropicConfig struct {
	APIKey string `envconfig:"ANTHROPIC_API_KEY"`
	Model  string `envconfig:"ANTHROPIC_MODEL" default:"claude-sonnet-4-5-20250929"`
}

// PipelineConfig holds per-stage limits. The batch limits are the load-shedding knobs.
type PipelineConfig struct {
	LookbackDays          int           `envconfig:"ENRICH_LOOKBACK_DAYS" default:"2"`
	TranscribeBatchLimit  int           `envconfig:"TRANSCRIBE_BATCH_LIMIT" default:"10"`
	ScoreBatchLimit       int           `envconfig:"SCORE_BATCH_LIMIT" default:"10"`
	RepairBatchLimit      int           `envconfig:"REPAIR_BATCH_LIMIT" default:"25"`
	MinTranscribeDuration time.Duration `envconfig:"MIN_TRANSCRIBE_DURATION" default:"30s"`
	StageTimeout          time.Duration `envconfig:"STAGE_TIMEOUT" default:"120s"`
	CRMPageSize           int           `envconfig:"CRM_PAGE_SIZE" default:"200"`
}

// SecretsConfig holds the shared secrets guarding the trigger and ingestion endpoints
type SecretsConfig struct {
	CronSecret    string `envconfig:"CRON_SECRET"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks settings every process needs. Stage credentials are checked when a stage runs.
func (c *Config) Validate() error {
	if c.Database.Host == "" || c.Database.Name == "" {
		return fmt.Errorf("DB_HOST and DB_NAME are required")
	}
	if c.Pipeline.TranscribeBatchLimit <= 0 || c.Pipeline.ScoreBatchLimit <= 0 {
		return fmt.Errorf("batch limits must be positive")
	}
	if c.Pipeline.LookbackDays < 0 {
		return fmt.Errorf("ENRICH_LOOKBACK_DAYS must not be negative")
	}
	switch c.LLM.Provider {
	case "groq", "anthropic":
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLM.Provider)
	}
	return nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}
