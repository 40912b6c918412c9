package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Auth        AuthConfig        `yaml:"auth"`
	Backend     BackendConfig     `yaml:"backend"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Translation TranslationConfig `yaml:"translation"`
	Database    DatabaseConfig    `yaml:"database"`
	Logging     LoggingConfig     `yaml:"logging"`
	Tracing     TracingConfig     `yaml:"tracing"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Environment string `yaml:"environment"`
}

type AuthConfig struct {
	APIKeys       []string `yaml:"api_keys"`
	LogEncryptKey string   `yaml:"log_encrypt_key"`
}

type BackendConfig struct {
	URL            string `yaml:"url"`
	RequestTimeout int    `yaml:"request_timeout_s"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

type TranslationConfig struct {
	MaxTextLength      int      `yaml:"max_text_length"`
	SupportedLanguages []string `yaml:"supported_languages"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
	Path  string `yaml:"path"`
}

type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
	LogSpans    bool    `yaml:"log_spans"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			Environment: "development",
		},
		Backend: BackendConfig{
			URL:            "http://localhost:5000",
			RequestTimeout: 10,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 100,
		},
		Translation: TranslationConfig{
			MaxTextLength: 5000,
			SupportedLanguages: []string{
				"en", "es", "fr", "de", "it", "pt",
				"nl", "ru", "zh", "ja", "ko", "ar",
			},
		},
		Database: DatabaseConfig{
			Path: "polyglotd.db",
		},
		Logging: LoggingConfig{
			Level: "info",
			JSON:  false,
		},
		Tracing: TracingConfig{
			SampleRatio: 1,
		},
	}
}

// Load reads config from file with env var overrides
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}

	if keys := os.Getenv("POLYGLOTD_API_KEYS"); keys != "" {
		cfg.Auth.APIKeys = splitList(keys)
	}
	if key := os.Getenv("POLYGLOTD_LOG_ENCRYPT_KEY"); key != "" {
		cfg.Auth.LogEncryptKey = key
	}
	if url := os.Getenv("POLYGLOTD_BACKEND_URL"); url != "" {
		cfg.Backend.URL = url
	}
	if dbPath := os.Getenv("POLYGLOTD_DATABASE_URL"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if env := os.Getenv("POLYGLOTD_ENVIRONMENT"); env != "" {
		cfg.Server.Environment = env
	}
	if host := os.Getenv("POLYGLOTD_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("POLYGLOTD_PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = parsed
		}
	}
	if rpm := os.Getenv("POLYGLOTD_RATE_LIMIT_PER_MINUTE"); rpm != "" {
		if parsed, err := strconv.Atoi(rpm); err == nil {
			cfg.RateLimit.RequestsPerMinute = parsed
		}
	}
	if langs := os.Getenv("POLYGLOTD_SUPPORTED_LANGUAGES"); langs != "" {
		cfg.Translation.SupportedLanguages = splitList(langs)
	}
	if level := os.Getenv("POLYGLOTD_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	return cfg, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (c *Config) Validate() error {
	if len(c.Auth.APIKeys) == 0 {
		return ErrMissingAPIKeys
	}
	if c.Backend.URL == "" {
		return ErrMissingBackendURL
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &Error{"server port must be in 1..65535"}
	}
	if c.Backend.RequestTimeout <= 0 {
		c.Backend.RequestTimeout = 10
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		c.RateLimit.RequestsPerMinute = 100
	}
	if c.Translation.MaxTextLength <= 0 {
		c.Translation.MaxTextLength = 5000
	}
	if len(c.Translation.SupportedLanguages) == 0 {
		c.Translation.SupportedLanguages = DefaultConfig().Translation.SupportedLanguages
	}
	if c.Tracing.SampleRatio <= 0 || c.Tracing.SampleRatio > 1 {
		c.Tracing.SampleRatio = 1
	}
	return nil
}

var (
	ErrMissingAPIKeys    = &Error{"at least one API key is required"}
	ErrMissingBackendURL = &Error{"backend URL is required"}
)

type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
