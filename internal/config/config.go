package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs" mapstructure:"elevenlabs"`
	Crawl      CrawlConfig      `yaml:"crawl" mapstructure:"crawl"`
	Generate   GenerateConfig   `yaml:"generate" mapstructure:"generate"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Model      string `yaml:"model" mapstructure:"model"`
	MaxRetries int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// ElevenLabsConfig holds ElevenLabs API settings.
type ElevenLabsConfig struct {
	Key              string `yaml:"key" mapstructure:"key"`
	BaseURL          string `yaml:"base_url" mapstructure:"base_url"`
	WidgetURL        string `yaml:"widget_url" mapstructure:"widget_url"`
	LLM              string `yaml:"llm" mapstructure:"llm"`
	VoiceCacheTTLMin int    `yaml:"voice_cache_ttl_mins" mapstructure:"voice_cache_ttl_mins"`
}

// VoiceCacheTTL returns the voice list cache lifetime.
func (c ElevenLabsConfig) VoiceCacheTTL() time.Duration {
	return time.Duration(c.VoiceCacheTTLMin) * time.Minute
}

// CrawlConfig configures the website crawler.
type CrawlConfig struct {
	DefaultMaxPages int    `yaml:"default_max_pages" mapstructure:"default_max_pages"`
	MaxPagesLimit   int    `yaml:"max_pages_limit" mapstructure:"max_pages_limit"`
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	UserAgent       string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes    int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// Timeout returns the per-request fetch timeout.
func (c CrawlConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// GenerateConfig configures agent configuration generation.
type GenerateConfig struct {
	PromptMaxTokens     int64 `yaml:"prompt_max_tokens" mapstructure:"prompt_max_tokens"`
	GreetingMaxTokens   int64 `yaml:"greeting_max_tokens" mapstructure:"greeting_max_tokens"`
	PromptCorpusChars   int   `yaml:"prompt_corpus_chars" mapstructure:"prompt_corpus_chars"`
	GreetingCorpusChars int   `yaml:"greeting_corpus_chars" mapstructure:"greeting_corpus_chars"`

	// Temperatures in [0, 1]; a negative value keeps the provider default.
	PromptTemperature   float64 `yaml:"prompt_temperature" mapstructure:"prompt_temperature"`
	GreetingTemperature float64 `yaml:"greeting_temperature" mapstructure:"greeting_temperature"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RunTimeoutMins int      `yaml:"run_timeout_mins" mapstructure:"run_timeout_mins"`
	// AgentsPerMinute caps POST /v1/agents; 0 disables the cap.
	AgentsPerMinute int `yaml:"agents_per_minute" mapstructure:"agents_per_minute"`
	AgentsBurst     int `yaml:"agents_burst" mapstructure:"agents_burst"`
}

// RunTimeout bounds one asynchronous run started through the API.
func (c ServerConfig) RunTimeout() time.Duration {
	return time.Duration(c.RunTimeoutMins) * time.Minute
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VOICEBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "voicebot.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.run_timeout_mins", 10)
	v.SetDefault("server.agents_per_minute", 30)
	v.SetDefault("server.agents_burst", 5)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_retries", 2)
	v.SetDefault("elevenlabs.key", "")
	v.SetDefault("elevenlabs.base_url", "https://api.elevenlabs.io/v1")
	v.SetDefault("elevenlabs.widget_url", "https://elevenlabs.io/app/talk-to")
	v.SetDefault("elevenlabs.llm", "gpt-4o")
	v.SetDefault("elevenlabs.voice_cache_ttl_mins", 60)
	v.SetDefault("crawl.default_max_pages", 10)
	v.SetDefault("crawl.max_pages_limit", 100)
	v.SetDefault("crawl.timeout_secs", 10)
	v.SetDefault("crawl.user_agent", "Mozilla/5.0 (compatible; VoicebotCrawler/1.0)")
	v.SetDefault("crawl.max_body_bytes", 5<<20)
	v.SetDefault("generate.prompt_max_tokens", 2048)
	v.SetDefault("generate.greeting_max_tokens", 256)
	v.SetDefault("generate.prompt_corpus_chars", 15000)
	v.SetDefault("generate.greeting_corpus_chars", 5000)
	v.SetDefault("generate.prompt_temperature", 0.3)
	v.SetDefault("generate.greeting_temperature", 0.7)

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

// Validate checks the settings a command mode depends on and reports all
// problems at once. Modes: run, dry-run, crawl, voices, runs, serve.
func (c *Config) Validate(mode string) error {
	var errs []string

	needStore := func() {
		switch c.Store.Driver {
		case "sqlite":
			if c.Store.SQLitePath == "" {
				errs = append(errs, "store.sqlite_path is required")
			}
		case "postgres":
			if c.Store.DatabaseURL == "" {
				errs = append(errs, "store.database_url is required")
			}
		default:
			errs = append(errs, fmt.Sprintf("store.driver must be sqlite or postgres, got %q", c.Store.Driver))
		}
	}
	needCrawl := func() {
		if c.Crawl.MaxPagesLimit < 1 {
			errs = append(errs, "crawl.max_pages_limit must be > 0")
		}
		if c.Crawl.DefaultMaxPages < 1 || c.Crawl.DefaultMaxPages > c.Crawl.MaxPagesLimit {
			errs = append(errs, "crawl.default_max_pages must be between 1 and crawl.max_pages_limit")
		}
		if c.Crawl.TimeoutSecs < 1 {
			errs = append(errs, "crawl.timeout_secs must be > 0")
		}
		if c.Crawl.MaxBodyBytes < 1 {
			errs = append(errs, "crawl.max_body_bytes must be > 0")
		}
	}
	needGenerate := func() {
		if c.Anthropic.Key == "" {
			errs = append(errs, "anthropic.key is required")
		}
		if c.Generate.PromptCorpusChars < 1 || c.Generate.GreetingCorpusChars < 1 {
			errs = append(errs, "generate corpus limits must be > 0")
		}
		if c.Generate.PromptMaxTokens < 1 || c.Generate.GreetingMaxTokens < 1 {
			errs = append(errs, "generate max tokens must be > 0")
		}
		if c.Generate.PromptTemperature > 1 || c.Generate.GreetingTemperature > 1 {
			errs = append(errs, "generate temperatures must be <= 1")
		}
	}
	needElevenLabs := func() {
		if c.ElevenLabs.Key == "" {
			errs = append(errs, "elevenlabs.key is required")
		}
	}

	switch mode {
	case "run":
		needStore()
		needCrawl()
		needGenerate()
		needElevenLabs()
	case "dry-run":
		needStore()
		needCrawl()
		needGenerate()
	case "crawl":
		needCrawl()
	case "voices":
		needElevenLabs()
	case "runs":
		needStore()
	case "serve":
		needStore()
		needCrawl()
		needGenerate()
		needElevenLabs()
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RunTimeoutMins < 1 {
			errs = append(errs, "server.run_timeout_mins must be > 0")
		}
		if c.Server.AgentsPerMinute < 0 {
			errs = append(errs, "server.agents_per_minute must be >= 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
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
