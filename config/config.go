package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the answer engine
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Search    SearchConfig    `mapstructure:"search"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Research  ResearchConfig  `mapstructure:"research"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	JWTSecret    string        `mapstructure:"jwt_secret"`
	AllowOrigins []string      `mapstructure:"allow_origins"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LLMConfig selects the generation backend and maps model tiers to concrete models.
type LLMConfig struct {
	Provider      string        `mapstructure:"provider"` // openai, gemini, ollama
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Models        LLMModels     `mapstructure:"models"`
	Temperature   float64       `mapstructure:"temperature"`
	MaxTokens     int           `mapstructure:"max_tokens"`
	Timeout       time.Duration `mapstructure:"timeout"`
	StreamTimeout time.Duration `mapstructure:"stream_timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryBackoff  time.Duration `mapstructure:"retry_backoff"`
}

// LLMModels maps tiers to provider model names.
type LLMModels struct {
	Fast     string `mapstructure:"fast"`
	Powerful string `mapstructure:"powerful"`
	Hyper    string `mapstructure:"hyper"`
}

// Normalize fills unset tiers. hyper falls back to fast.
func (c LLMConfig) Normalize() LLMConfig {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.Models.Fast == "" {
		c.Models.Fast = "gpt-4o-mini"
	}
	if c.Models.Powerful == "" {
		c.Models.Powerful = "gpt-4o"
	}
	if c.Models.Hyper == "" {
		c.Models.Hyper = c.Models.Fast
	}
	if c.Timeout <= 0 {
		c.Timeout = time.Minute
	}
	if c.StreamTimeout <= 0 {
		c.StreamTimeout = 3 * time.Minute
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	return c
}

func (c LLMConfig) Validate() error {
	switch c.Provider {
	case "openai", "gemini", "ollama":
	default:
		return fmt.Errorf("llm.provider %q is not supported", c.Provider)
	}
	if c.Provider != "ollama" && strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("llm.api_key required for provider %s", c.Provider)
	}
	return nil
}

// SearchConfig contains retrieval provider settings
type SearchConfig struct {
	Providers    []string      `mapstructure:"providers"` // tried in order
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxImages    int           `mapstructure:"max_images"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

func (c SearchConfig) Normalize() SearchConfig {
	var providers []string
	seen := make(map[string]struct{}, len(c.Providers))
	for _, p := range c.Providers {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		providers = append(providers, p)
	}
	if len(providers) == 0 {
		providers = []string{"serper", "brave", "duckduckgo"}
	}
	c.Providers = providers
	if c.Timeout <= 0 {
		c.Timeout = 8 * time.Second
	}
	if c.MaxImages <= 0 {
		c.MaxImages = 6
	}
	return c
}

// FetchConfig configures the page fetch collaborator.
type FetchConfig struct {
	Type     string            `mapstructure:"type"` // readability, chromedp
	Timeout  time.Duration     `mapstructure:"timeout"`
	MaxChars int               `mapstructure:"max_chars"`
	Policy   FetchPolicyConfig `mapstructure:"policy"`
}

func (c FetchConfig) Normalize() FetchConfig {
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	if c.Type == "" {
		c.Type = "readability"
	}
	if c.Timeout <= 0 {
		c.Timeout = 4 * time.Second
	}
	if c.MaxChars <= 0 {
		c.MaxChars = 4000
	}
	c.Policy = c.Policy.Normalize()
	return c
}

// ResearchConfig bounds the planned and deep research strategies.
type ResearchConfig struct {
	PlanMaxSteps     int `mapstructure:"plan_max_steps"`
	QueriesPerStep   int `mapstructure:"queries_per_step"`
	ResultsPerQuery  int `mapstructure:"results_per_query"`
	BasicResults     int `mapstructure:"basic_results"`
	RelatedQuestions int `mapstructure:"related_questions"`
	DeepPages        int `mapstructure:"deep_pages"`
	DeepChunks       int `mapstructure:"deep_chunks"`
}

func (c ResearchConfig) Normalize() ResearchConfig {
	if c.PlanMaxSteps <= 0 {
		c.PlanMaxSteps = 4
	}
	if c.QueriesPerStep <= 0 {
		c.QueriesPerStep = 4
	}
	if c.ResultsPerQuery <= 0 {
		c.ResultsPerQuery = 4
	}
	if c.BasicResults <= 0 {
		c.BasicResults = 7
	}
	if c.RelatedQuestions <= 0 {
		c.RelatedQuestions = 3
	}
	if c.DeepPages <= 0 {
		c.DeepPages = 4
	}
	if c.DeepChunks <= 0 {
		c.DeepChunks = 8
	}
	return c
}

// AgentConfig bounds the autonomous loop.
type AgentConfig struct {
	MaxSteps             int           `mapstructure:"max_steps"`
	StepInterval         time.Duration `mapstructure:"step_interval"`
	ThinkRetries         int           `mapstructure:"think_retries"`
	VisitMaxChars        int           `mapstructure:"visit_max_chars"`
	BlockRepeatedActions bool          `mapstructure:"block_repeated_actions"`
}

func (c AgentConfig) Normalize() AgentConfig {
	if c.MaxSteps <= 0 {
		c.MaxSteps = 10
	}
	if c.StepInterval < 0 {
		c.StepInterval = 0
	}
	if c.ThinkRetries < 0 {
		c.ThinkRetries = 0
	}
	if c.VisitMaxChars <= 0 {
		c.VisitMaxChars = 1000
	}
	return c
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings. Persistence is disabled when
// neither url nor host is set.
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether any connection target is configured.
func (p PostgresConfig) Enabled() bool {
	return strings.TrimSpace(p.URL) != "" || strings.TrimSpace(p.Host) != ""
}

func (p PostgresConfig) Validate() error {
	if !p.Enabled() || strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a connection string from the configured fields.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// RedisConfig contains Redis connection settings. Redis is optional.
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Host) != "" }

func (r RedisConfig) Validate() error {
	if !r.Enabled() {
		return nil
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// Addr returns host:port.
func (r RedisConfig) Addr() string { return r.Host + ":" + r.Port }

// LimitsConfig contains request quotas.
type LimitsConfig struct {
	GuestDailyQueries int `mapstructure:"guest_daily_queries"` // 0 disables
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

func (t TelemetryConfig) Normalize() TelemetryConfig {
	if strings.TrimSpace(t.ServiceName) == "" {
		t.ServiceName = "axiom"
	}
	return t
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")
	v.SetDefault("server.address", ":10001")
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.models.fast", "gpt-4o-mini")
	v.SetDefault("llm.models.powerful", "gpt-4o")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.timeout", time.Minute)
	v.SetDefault("llm.stream_timeout", 3*time.Minute)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("search.providers", []string{"serper", "brave", "duckduckgo"})
	v.SetDefault("search.timeout", 8*time.Second)
	v.SetDefault("search.max_images", 6)
	v.SetDefault("search.cache_ttl", 10*time.Minute)
	v.SetDefault("fetch.type", "readability")
	v.SetDefault("fetch.timeout", 4*time.Second)
	v.SetDefault("fetch.max_chars", 4000)
	v.SetDefault("research.plan_max_steps", 4)
	v.SetDefault("research.queries_per_step", 4)
	v.SetDefault("research.results_per_query", 4)
	v.SetDefault("research.basic_results", 7)
	v.SetDefault("research.related_questions", 3)
	v.SetDefault("research.deep_pages", 4)
	v.SetDefault("research.deep_chunks", 8)
	v.SetDefault("agent.max_steps", 10)
	v.SetDefault("agent.step_interval", 2*time.Second)
	v.SetDefault("agent.think_retries", 2)
	v.SetDefault("agent.visit_max_chars", 1000)
	v.SetDefault("agent.block_repeated_actions", false)
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.timeout", 5*time.Second)
	v.SetDefault("storage.postgres.timeout", 5*time.Second)
	v.SetDefault("telemetry.service_name", "axiom")
}

// LoadConfig loads config from the given file, or searches the usual locations when path is
// empty. A missing config file is not an error; environment variables (AXIOM_*) and defaults
// still apply.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("config")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("AXIOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize applies defaults to every section in place.
func (c *Config) Normalize() {
	c.LLM = c.LLM.Normalize()
	c.Search = c.Search.Normalize()
	c.Fetch = c.Fetch.Normalize()
	c.Research = c.Research.Normalize()
	c.Agent = c.Agent.Normalize()
	c.Telemetry = c.Telemetry.Normalize()
	if c.Limits.GuestDailyQueries < 0 {
		c.Limits.GuestDailyQueries = 0
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Fetch.Policy.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Postgres.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Redis.Validate(); err != nil {
		return err
	}
	if c.Limits.GuestDailyQueries > 0 && !c.Storage.Redis.Enabled() {
		return fmt.Errorf("limits.guest_daily_queries requires storage.redis")
	}
	return nil
}
