// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, RPC, Postgres, Kafka, Redis, Model, Training, Inference,
// etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/symptom-checker/pkg/errors"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	RPC       RPCConfig       `yaml:"rpc"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Model     ModelConfig     `yaml:"model"`
	Training  TrainingConfig  `yaml:"training"`
	Inference InferenceConfig `yaml:"inference"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// RPCConfig controls the internal JSON-over-TCP RPC listener.
type RPCConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// PostgresConfig holds PostgreSQL connection parameters.
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

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	ModelUpdates     string `yaml:"modelUpdates"`
	PredictionEvents string `yaml:"predictionEvents"`
	CorpusIngest     string `yaml:"corpusIngest"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"poolSize"`
	CacheTTL  time.Duration `yaml:"cacheTTL"`
	KeyPrefix string        `yaml:"keyPrefix"`
}

// ModelConfig says where the fitted artifact lives and how the predictor
// follows updates to it.
type ModelConfig struct {
	// Store is "file" or "postgres".
	Store       string        `yaml:"store"`
	Location    string        `yaml:"location"`
	WatchFile   bool          `yaml:"watchFile"`
	LoadTimeout time.Duration `yaml:"loadTimeout"`
}

// TrainingConfig holds the corpus source and every fitting constant. Nothing
// here falls back to a hidden library default.
type TrainingConfig struct {
	// CorpusSource is "csv" or "postgres".
	CorpusSource string  `yaml:"corpusSource"`
	CorpusPath   string  `yaml:"corpusPath"`
	TextColumn   string  `yaml:"textColumn"`
	LabelColumn  string  `yaml:"labelColumn"`
	MaxFeatures  int     `yaml:"maxFeatures"`
	NgramMin     int     `yaml:"ngramMin"`
	NgramMax     int     `yaml:"ngramMax"`
	StopWords    bool    `yaml:"stopWords"`
	StripAccents bool    `yaml:"stripAccents"`
	Norm         string  `yaml:"norm"`
	Alpha        float64 `yaml:"alpha"`
	TestRatio    float64 `yaml:"testRatio"`
	Seed         int64   `yaml:"seed"`
	NotifyUpdate bool    `yaml:"notifyUpdate"`
}

// InferenceConfig controls the prediction boundary.
type InferenceConfig struct {
	TopK             int           `yaml:"topK"`
	MaxSymptomLength int           `yaml:"maxSymptomLength"`
	LocalCacheSize   int           `yaml:"localCacheSize"`
	EventBufferSize  int           `yaml:"eventBufferSize"`
	RequestTimeout   time.Duration `yaml:"requestTimeout"`
}

// AnalyticsConfig controls the prediction analytics aggregator.
type AnalyticsConfig struct {
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
	TopN             int           `yaml:"topN"`
	LowConfidence    float64       `yaml:"lowConfidence"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls span logging for the training stages.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`
	SampleRate float64 `yaml:"sampleRate"`
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

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

// Validate rejects settings that would make training or serving degenerate.
func (c *Config) Validate() error {
	t := c.Training
	switch {
	case t.Alpha <= 0:
		return fmt.Errorf("%w: training.alpha must be positive, got %v", apperrors.ErrConfiguration, t.Alpha)
	case t.MaxFeatures < 0:
		return fmt.Errorf("%w: training.maxFeatures must not be negative", apperrors.ErrConfiguration)
	case t.NgramMin < 1 || t.NgramMax < t.NgramMin:
		return fmt.Errorf("%w: invalid n-gram range [%d, %d]", apperrors.ErrConfiguration, t.NgramMin, t.NgramMax)
	case t.TestRatio <= 0 || t.TestRatio >= 1:
		return fmt.Errorf("%w: training.testRatio must be in (0, 1), got %v", apperrors.ErrConfiguration, t.TestRatio)
	case t.Norm != "l2" && t.Norm != "none":
		return fmt.Errorf("%w: training.norm must be l2 or none, got %q", apperrors.ErrConfiguration, t.Norm)
	case t.CorpusSource != "csv" && t.CorpusSource != "postgres":
		return fmt.Errorf("%w: unknown corpus source %q", apperrors.ErrConfiguration, t.CorpusSource)
	}
	if c.Model.Store != "file" && c.Model.Store != "postgres" {
		return fmt.Errorf("%w: unknown model store %q", apperrors.ErrConfiguration, c.Model.Store)
	}
	if c.Model.Location == "" {
		return fmt.Errorf("%w: model.location is required", apperrors.ErrConfiguration)
	}
	if c.Inference.TopK < 1 {
		return fmt.Errorf("%w: inference.topK must be at least 1", apperrors.ErrConfiguration)
	}
	return nil
}

// defaultConfig returns a Config with the training constants of the original
// model and local-development endpoints.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		RPC: RPCConfig{
			Enabled: true,
			Addr:    ":9100",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "symptomchecker",
			User:            "symptomchecker",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "symptomchecker-group",
			Topics: KafkaTopics{
				ModelUpdates:     "model-updates",
				PredictionEvents: "prediction-events",
				CorpusIngest:     "corpus-ingest",
			},
		},
		Redis: RedisConfig{
			Enabled:   false,
			Addr:      "localhost:6379",
			Password:  "",
			DB:        0,
			PoolSize:  10,
			CacheTTL:  10 * time.Minute,
			KeyPrefix: "predict:",
		},
		Model: ModelConfig{
			Store:       "file",
			Location:    "model/symptom_model.scma",
			WatchFile:   true,
			LoadTimeout: 30 * time.Second,
		},
		Training: TrainingConfig{
			CorpusSource: "csv",
			CorpusPath:   "data/symptoms_dataset.csv",
			TextColumn:   "symptoms",
			LabelColumn:  "disease",
			MaxFeatures:  5000,
			NgramMin:     1,
			NgramMax:     2,
			StopWords:    true,
			StripAccents: true,
			Norm:         "l2",
			Alpha:        0.1,
			TestRatio:    0.2,
			Seed:         43,
			NotifyUpdate: true,
		},
		Inference: InferenceConfig{
			TopK:             3,
			MaxSymptomLength: 10000,
			LocalCacheSize:   4096,
			EventBufferSize:  10000,
			RequestTimeout:   5 * time.Second,
		},
		Analytics: AnalyticsConfig{
			SnapshotInterval: time.Minute,
			TopN:             10,
			LowConfidence:    0.5,
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

// applyEnvOverrides reads SC_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SC_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SC_RPC_ADDR"); v != "" {
		cfg.RPC.Addr = v
	}
	if v := os.Getenv("SC_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SC_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SC_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SC_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SC_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SC_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("SC_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("SC_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SC_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("SC_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SC_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SC_MODEL_STORE"); v != "" {
		cfg.Model.Store = v
	}
	if v := os.Getenv("SC_MODEL_LOCATION"); v != "" {
		cfg.Model.Location = v
	}
	if v := os.Getenv("SC_TRAINING_CORPUS_SOURCE"); v != "" {
		cfg.Training.CorpusSource = v
	}
	if v := os.Getenv("SC_TRAINING_CORPUS_PATH"); v != "" {
		cfg.Training.CorpusPath = v
	}
	if v := os.Getenv("SC_TRAINING_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Training.Seed = seed
		}
	}
	if v := os.Getenv("SC_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SC_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SC_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
