package domain

import "time"

// Config holds the complete Propvest configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines which backends are used
	Tier Tier `json:"tier"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Scoring settings
	Scoring ScoringConfig `json:"scoring"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Metrics MetricsConfig `json:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds

	// RateLimit is the sustained requests per second allowed across the API.
	// Zero disables rate limiting.
	RateLimit float64 `json:"rateLimit"`
	RateBurst int     `json:"rateBurst"`
}

// ScoringConfig locates the optional tuning and screening files and bounds
// recommendation responses.
type ScoringConfig struct {
	TuningPath string `json:"tuningPath"`

	// ScreeningPath is a JSON file of standing screening rules.
	ScreeningPath string `json:"screeningPath"`

	DefaultTopN  int `json:"defaultTopN"`
	MaxTopN      int `json:"maxTopN"`
	HistoryLimit int `json:"historyLimit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Env   string `json:"env"`   // dev switches to console output
	Level string `json:"level"` // debug, info, warn, error
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	// Addr serves /metrics on a separate listener when set.
	Addr string `json:"addr"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite + channels + in-memory cache
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
			RateLimit:    50,
			RateBurst:    100,
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:      "sqlite",
			SQLitePath:  "./propvest.db",
			SeedSamples: true,
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
			ResultTTL:    5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Scoring: ScoringConfig{
			DefaultTopN:  5,
			MaxTopN:      50,
			HistoryLimit: 20,
		},
		Logging: LoggingConfig{
			Env:   "prod",
			Level: "info",
		},
		Metrics: MetricsConfig{
			Addr: ":9100",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "propvest",
		SeedSamples:  true,
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       time.Minute,
		ResultTTL:      10 * time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	return cfg
}
