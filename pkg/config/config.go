// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Analyzer, etc.).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Analyzer AnalyzerConfig `yaml:"analyzer"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	RateLimit       int           `yaml:"rateLimit"` // per client per minute, 0 disables
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// PostgresConfig holds PostgreSQL connection parameters. An empty Host
// disables report persistence.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. No brokers disables
// asynchronous analysis and refresh broadcasts.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	AnalysisRequests  string `yaml:"analysisRequests"`
	AnalysisResults   string `yaml:"analysisResults"`
	DictionaryRefresh string `yaml:"dictionaryRefresh"`
}

// RedisConfig holds Redis connection and caching parameters. An empty Addr
// selects the in-process cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// AnalyzerConfig names the dictionary sources and the analysis limits.
type AnalyzerConfig struct {
	Dictionaries     []string      `yaml:"dictionaries"`
	StopWords        []string      `yaml:"stopWords"`
	SensitiveWords   []string      `yaml:"sensitiveWords"`
	RedundantWords   []string      `yaml:"redundantWords"`
	TopN             int           `yaml:"topN"`
	RichnessExponent float64       `yaml:"richnessExponent"`
	MaxSections      int           `yaml:"maxSections"`
	SingleCharTerms  bool          `yaml:"singleCharTerms"`
	MaxDocumentBytes int64         `yaml:"maxDocumentBytes"`
	MaxReportBytes   int           `yaml:"maxReportBytes"`
	ReloadInterval   time.Duration `yaml:"reloadInterval"`
	ExtractTimeout   time.Duration `yaml:"extractTimeout"`
	FoldWidth        bool          `yaml:"foldWidth"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the analyzer cannot run with.
func (c *Config) Validate() error {
	var errs []error
	a := c.Analyzer
	if a.TopN <= 0 {
		errs = append(errs, fmt.Errorf("analyzer.topN must be positive, got %d", a.TopN))
	}
	if a.RichnessExponent <= 0 || a.RichnessExponent > 1 {
		errs = append(errs, fmt.Errorf("analyzer.richnessExponent must be in (0, 1], got %v", a.RichnessExponent))
	}
	if a.MaxSections < 1 || a.MaxSections > 100 {
		errs = append(errs, fmt.Errorf("analyzer.maxSections must be in [1, 100], got %d", a.MaxSections))
	}
	if a.MaxDocumentBytes <= 0 {
		errs = append(errs, fmt.Errorf("analyzer.maxDocumentBytes must be positive, got %d", a.MaxDocumentBytes))
	}
	if a.MaxReportBytes <= 0 {
		errs = append(errs, fmt.Errorf("analyzer.maxReportBytes must be positive, got %d", a.MaxReportBytes))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rateLimit must not be negative, got %d", c.Server.RateLimit))
	}
	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be positive, got %d", c.Server.Port))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  20 * time.Second,
			RateLimit:       120,
		},
		Postgres: PostgresConfig{
			Port:            5432,
			Database:        "textanalysis",
			User:            "textanalysis",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "textanalysis-group",
			Topics: KafkaTopics{
				AnalysisRequests:  "analysis-requests",
				AnalysisResults:   "analysis-results",
				DictionaryRefresh: "dictionary-refresh",
			},
		},
		Redis: RedisConfig{
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Analyzer: AnalyzerConfig{
			Dictionaries:     []string{"dict/dict.txt"},
			StopWords:        []string{"dict/stop_words_cn.txt", "dict/stop_words_en.txt"},
			SensitiveWords:   []string{"dict/sensitive_words_cn.txt", "dict/sensitive_words_en.txt"},
			TopN:             10,
			RichnessExponent: 0.5,
			MaxSections:      100,
			MaxDocumentBytes: 8 << 20,
			MaxReportBytes:   1 << 20,
			ReloadInterval:   30 * time.Second,
			ExtractTimeout:   10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads TA_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TA_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TA_SERVER_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RateLimit = n
		}
	}
	if v := os.Getenv("TA_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("TA_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("TA_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("TA_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("TA_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("TA_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("TA_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TA_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TA_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TA_ANALYZER_DICTIONARIES"); v != "" {
		cfg.Analyzer.Dictionaries = strings.Split(v, ",")
	}
	if v := os.Getenv("TA_ANALYZER_TOP_N"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analyzer.TopN = n
		}
	}
	if v := os.Getenv("TA_ANALYZER_RICHNESS_EXPONENT"); v != "" {
		if p, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Analyzer.RichnessExponent = p
		}
	}
	if v := os.Getenv("TA_ANALYZER_RELOAD_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Analyzer.ReloadInterval = d
		}
	}
	if v := os.Getenv("TA_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TA_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
