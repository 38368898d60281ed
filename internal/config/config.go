package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/lead-enricher/internal/provider"
)

// Config is the top-level configuration.
type Config struct {
	Chat       ChatConfig         `yaml:"chat" mapstructure:"chat"`
	Models     provider.Requested `yaml:"models" mapstructure:"models"`
	Scoring    ScoringConfig      `yaml:"scoring" mapstructure:"scoring"`
	Anthropic  AnthropicConfig    `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini     GeminiConfig       `yaml:"gemini" mapstructure:"gemini"`
	Enrichment EnrichmentConfig   `yaml:"enrichment" mapstructure:"enrichment"`
	Store      StoreConfig        `yaml:"store" mapstructure:"store"`
	Salesforce SalesforceConfig   `yaml:"salesforce" mapstructure:"salesforce"`
	Notion     NotionConfig       `yaml:"notion" mapstructure:"notion"`
	Server     ServerConfig       `yaml:"server" mapstructure:"server"`
	Log        LogConfig          `yaml:"log" mapstructure:"log"`
}

// ChatConfig configures the streaming chat backend.
type ChatConfig struct {
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimitRPS     float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	FocusMode        string  `yaml:"focus_mode" mapstructure:"focus_mode"`
	OptimizationMode string  `yaml:"optimization_mode" mapstructure:"optimization_mode"`
	MaxRecordBytes   int     `yaml:"max_record_bytes" mapstructure:"max_record_bytes"`
	RetryAttempts    int     `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	RetryBackoffMs   int     `yaml:"retry_backoff_ms" mapstructure:"retry_backoff_ms"`
}

// Scoring model providers.
const (
	ScoringChat      = "chat"
	ScoringAnthropic = "anthropic"
	ScoringGemini    = "gemini"
)

// ScoringConfig selects the model used by the scorer and the field extractor.
type ScoringConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// EnrichmentConfig paces and shapes a batch.
type EnrichmentConfig struct {
	QuestionDelayMs  int    `yaml:"question_delay_ms" mapstructure:"question_delay_ms"`
	LeadDelayMs      int    `yaml:"lead_delay_ms" mapstructure:"lead_delay_ms"`
	MaxBatchSize     int    `yaml:"max_batch_size" mapstructure:"max_batch_size"`
	ParallelEvidence bool   `yaml:"parallel_evidence" mapstructure:"parallel_evidence"`
	QuestionsFile    string `yaml:"questions_file" mapstructure:"questions_file"`
	PhoneRegion      string `yaml:"phone_region" mapstructure:"phone_region"`
	BreakerThreshold int    `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
}

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// StoreConfig configures run history.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// SalesforceConfig holds Salesforce JWT bearer settings.
type SalesforceConfig struct {
	Enabled      bool    `yaml:"enabled" mapstructure:"enabled"`
	ClientID     string  `yaml:"client_id" mapstructure:"client_id"`
	Username     string  `yaml:"username" mapstructure:"username"`
	KeyPath      string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL     string  `yaml:"login_url" mapstructure:"login_url"`
	RateLimitRPS float64 `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	ScoreField   string  `yaml:"score_field" mapstructure:"score_field"`
}

// NotionConfig holds Notion API settings.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
}

// ServerConfig configures the HTTP entry point.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml in the working directory and
// ENRICH_* environment variables. Environment wins over the file.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ENRICH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Every key gets one so AutomaticEnv can bind it on Unmarshal.
	v.SetDefault("chat.base_url", "http://localhost:3000")
	v.SetDefault("chat.timeout_secs", 300)
	v.SetDefault("chat.rate_limit_rps", 0)
	v.SetDefault("chat.focus_mode", "webSearch")
	v.SetDefault("chat.optimization_mode", "speed")
	v.SetDefault("chat.max_record_bytes", 1<<20)
	v.SetDefault("chat.retry_attempts", 3)
	v.SetDefault("chat.retry_backoff_ms", 500)
	v.SetDefault("models.chat_provider", "")
	v.SetDefault("models.chat_model", "")
	v.SetDefault("models.embedding_provider", "")
	v.SetDefault("models.embedding_model", "")
	v.SetDefault("scoring.provider", ScoringChat)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("gemini.key", "")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("gemini.base_url", "")
	v.SetDefault("enrichment.question_delay_ms", 2000)
	v.SetDefault("enrichment.lead_delay_ms", 3000)
	v.SetDefault("enrichment.max_batch_size", 50)
	v.SetDefault("enrichment.parallel_evidence", false)
	v.SetDefault("enrichment.questions_file", "")
	v.SetDefault("enrichment.phone_region", "US")
	v.SetDefault("enrichment.breaker_threshold", 0)
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.database_url", "lead-enricher.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("salesforce.enabled", false)
	v.SetDefault("salesforce.client_id", "")
	v.SetDefault("salesforce.username", "")
	v.SetDefault("salesforce.key_path", "")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.rate_limit_rps", 5)
	v.SetDefault("salesforce.score_field", "Lead_Score__c")
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.lead_db", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes: enrich,
// serve, notion, runs.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "enrich", "serve", "notion":
		errs = append(errs, c.validatePipeline()...)
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if mode == "notion" {
			if c.Notion.Token == "" {
				errs = append(errs, "notion.token is required")
			}
			if c.Notion.LeadDB == "" {
				errs = append(errs, "notion.lead_db is required")
			}
		}
	case "runs":
		if c.Store.Driver == DriverNone {
			errs = append(errs, "store.driver must not be none")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}
	errs = append(errs, c.validateStore()...)

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validatePipeline() []string {
	var errs []string
	if c.Chat.BaseURL == "" {
		errs = append(errs, "chat.base_url is required")
	}
	if c.Chat.RateLimitRPS < 0 {
		errs = append(errs, "chat.rate_limit_rps must be >= 0")
	}
	if c.Enrichment.QuestionDelayMs < 0 || c.Enrichment.LeadDelayMs < 0 {
		errs = append(errs, "enrichment delays must be >= 0")
	}
	if c.Enrichment.MaxBatchSize < 1 || c.Enrichment.MaxBatchSize > 500 {
		errs = append(errs, "enrichment.max_batch_size must be between 1 and 500")
	}

	switch c.Scoring.Provider {
	case ScoringChat:
	case ScoringAnthropic:
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
	case ScoringGemini:
		if c.Gemini.Key == "" {
			errs = append(errs, "gemini.key is required")
		}
	default:
		errs = append(errs, "scoring.provider must be one of chat, anthropic, gemini")
	}

	if c.Salesforce.Enabled {
		if c.Salesforce.ClientID == "" {
			errs = append(errs, "salesforce.client_id is required")
		}
		if c.Salesforce.Username == "" {
			errs = append(errs, "salesforce.username is required")
		}
		if c.Salesforce.KeyPath == "" {
			errs = append(errs, "salesforce.key_path is required")
		}
	}
	return errs
}

func (c *Config) validateStore() []string {
	switch c.Store.Driver {
	case DriverNone:
		return nil
	case DriverSQLite, DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return []string{"store.database_url is required"}
		}
		return nil
	default:
		return []string{"store.driver must be one of sqlite, postgres, none"}
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
