package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.Chat.BaseURL)
	assert.Equal(t, 300, cfg.Chat.TimeoutSecs)
	assert.Equal(t, "webSearch", cfg.Chat.FocusMode)
	assert.Equal(t, "speed", cfg.Chat.OptimizationMode)
	assert.Equal(t, 1<<20, cfg.Chat.MaxRecordBytes)
	assert.Equal(t, 3, cfg.Chat.RetryAttempts)
	assert.Empty(t, cfg.Models.ChatProvider)
	assert.Equal(t, ScoringChat, cfg.Scoring.Provider)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, int64(1024), cfg.Anthropic.MaxTokens)
	assert.Equal(t, 2000, cfg.Enrichment.QuestionDelayMs)
	assert.Equal(t, 3000, cfg.Enrichment.LeadDelayMs)
	assert.Equal(t, 50, cfg.Enrichment.MaxBatchSize)
	assert.False(t, cfg.Enrichment.ParallelEvidence)
	assert.Equal(t, "US", cfg.Enrichment.PhoneRegion)
	assert.Zero(t, cfg.Enrichment.BreakerThreshold)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "lead-enricher.db", cfg.Store.DatabaseURL)
	assert.False(t, cfg.Salesforce.Enabled)
	assert.Equal(t, "https://login.salesforce.com", cfg.Salesforce.LoginURL)
	assert.Equal(t, "Lead_Score__c", cfg.Salesforce.ScoreField)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
chat:
  base_url: http://perplexica:3001
models:
  chat_provider: openai
  chat_model: gpt-4o-mini
store:
  driver: postgres
  database_url: postgres://localhost/leads
log:
  level: debug
  format: console
enrichment:
  lead_delay_ms: 0
  parallel_evidence: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://perplexica:3001", cfg.Chat.BaseURL)
	assert.Equal(t, "openai", cfg.Models.ChatProvider)
	assert.Equal(t, "gpt-4o-mini", cfg.Models.ChatModel)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/leads", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 0, cfg.Enrichment.LeadDelayMs)
	assert.True(t, cfg.Enrichment.ParallelEvidence)
	// Defaults still apply for unset values
	assert.Equal(t, 2000, cfg.Enrichment.QuestionDelayMs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("ENRICH_STORE_DRIVER", "none")
	t.Setenv("ENRICH_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, DriverNone, cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("ENRICH_SERVER_PORT", "3000")
	t.Setenv("ENRICH_MODELS_EMBEDDING_MODEL", "text-embedding-3-small")
	t.Setenv("ENRICH_ANTHROPIC_KEY", "sk-ant-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "text-embedding-3-small", cfg.Models.EmbeddingModel)
	assert.Equal(t, "sk-ant-key", cfg.Anthropic.Key)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("chat: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Chat.BaseURL = "http://localhost:3000"
	cfg.Scoring.Provider = ScoringChat
	cfg.Enrichment.MaxBatchSize = 50
	cfg.Store.Driver = DriverSQLite
	cfg.Store.DatabaseURL = "lead-enricher.db"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateEnrich_Defaults(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("enrich"))
}

func TestValidateEnrich_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Chat.BaseURL = ""
	cfg.Scoring.Provider = ScoringAnthropic
	cfg.Salesforce.Enabled = true

	err := cfg.Validate("enrich")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat.base_url is required")
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.Contains(t, err.Error(), "salesforce.client_id is required")
	assert.Contains(t, err.Error(), "salesforce.username is required")
	assert.Contains(t, err.Error(), "salesforce.key_path is required")
}

func TestValidateScoringProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		setup    func(*Config)
		wantErr  string
	}{
		{name: "chat", provider: ScoringChat},
		{name: "anthropic with key", provider: ScoringAnthropic, setup: func(c *Config) { c.Anthropic.Key = "k" }},
		{name: "gemini without key", provider: ScoringGemini, wantErr: "gemini.key is required"},
		{name: "gemini with key", provider: ScoringGemini, setup: func(c *Config) { c.Gemini.Key = "k" }},
		{name: "unknown", provider: "openai", wantErr: "scoring.provider must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			cfg.Scoring.Provider = tt.provider
			if tt.setup != nil {
				tt.setup(cfg)
			}
			err := cfg.Validate("enrich")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateBatchSizeBounds(t *testing.T) {
	cfg := validDefaults()

	cfg.Enrichment.MaxBatchSize = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_batch_size must be between 1 and 500")

	cfg.Enrichment.MaxBatchSize = 501
	assert.Error(t, cfg.Validate("serve"))

	cfg.Enrichment.MaxBatchSize = 500
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateNegativeDelays(t *testing.T) {
	cfg := validDefaults()
	cfg.Enrichment.LeadDelayMs = -1

	err := cfg.Validate("enrich")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delays must be >= 0")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateNotion(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("notion")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion.token is required")
	assert.Contains(t, err.Error(), "notion.lead_db is required")

	cfg.Notion.Token = "ntn_token"
	cfg.Notion.LeadDB = "lead-db-id"
	assert.NoError(t, cfg.Validate("notion"))
}

func TestValidateRuns(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("runs"))

	cfg.Store.Driver = DriverNone
	err := cfg.Validate("runs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must not be none")
}

func TestValidateStore(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = DriverPostgres
	cfg.Store.DatabaseURL = ""

	err := cfg.Validate("enrich")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.Driver = "mysql"
	err = cfg.Validate("enrich")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be one of")

	cfg.Store.Driver = DriverNone
	assert.NoError(t, cfg.Validate("enrich"))
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
