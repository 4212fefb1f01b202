// Package config assembles the service configuration from an optional .env
// file and PROPVEST_* environment variables.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"

	"github.com/opensource-finance/propvest/internal/domain"
)

// Load reads the given .env files (".env" when none are named) into the
// process environment, then builds the configuration. Missing files are
// skipped; variables already set in the environment win over file values.
func Load(files ...string) (*domain.Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(err, "load %s", f)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds the configuration from getenv. PROPVEST_TIER selects the
// base defaults and every other variable overrides one field.
func FromEnv(getenv func(string) string) (*domain.Config, error) {
	e := envReader{getenv: getenv}

	var cfg *domain.Config
	switch tier := strings.ToLower(e.str("PROPVEST_TIER", string(domain.TierCommunity))); tier {
	case string(domain.TierCommunity):
		cfg = domain.DefaultConfig()
	case string(domain.TierPro):
		cfg = domain.ProConfig()
	default:
		return nil, eris.Errorf("unknown PROPVEST_TIER %q", tier)
	}

	s := &cfg.Server
	s.Host = e.str("PROPVEST_HOST", s.Host)
	s.Port = e.int("PROPVEST_PORT", s.Port)
	s.ReadTimeout = e.int("PROPVEST_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = e.int("PROPVEST_WRITE_TIMEOUT", s.WriteTimeout)
	s.RateLimit = e.float("PROPVEST_RATE_LIMIT", s.RateLimit)
	s.RateBurst = e.int("PROPVEST_RATE_BURST", s.RateBurst)

	r := &cfg.Repository
	r.Driver = e.str("PROPVEST_DB_DRIVER", r.Driver)
	r.SQLitePath = e.str("PROPVEST_SQLITE_PATH", r.SQLitePath)
	r.PostgresHost = e.str("PROPVEST_POSTGRES_HOST", r.PostgresHost)
	r.PostgresPort = e.int("PROPVEST_POSTGRES_PORT", r.PostgresPort)
	r.PostgresUser = e.str("PROPVEST_POSTGRES_USER", r.PostgresUser)
	r.PostgresPassword = e.str("PROPVEST_POSTGRES_PASSWORD", r.PostgresPassword)
	r.PostgresDB = e.str("PROPVEST_POSTGRES_DB", r.PostgresDB)
	r.PostgresSSLMode = e.str("PROPVEST_POSTGRES_SSLMODE", r.PostgresSSLMode)
	r.MySQLDSN = e.str("PROPVEST_MYSQL_DSN", r.MySQLDSN)
	r.SeedSamples = e.bool("PROPVEST_SEED_SAMPLES", r.SeedSamples)
	r.MaxOpenConns = e.int("PROPVEST_DB_MAX_OPEN_CONNS", r.MaxOpenConns)
	r.MaxIdleConns = e.int("PROPVEST_DB_MAX_IDLE_CONNS", r.MaxIdleConns)
	r.ConnMaxLifetime = e.duration("PROPVEST_DB_CONN_MAX_LIFETIME", r.ConnMaxLifetime)

	c := &cfg.Cache
	c.Type = e.str("PROPVEST_CACHE", c.Type)
	c.LocalMaxSize = e.int("PROPVEST_CACHE_LOCAL_SIZE", c.LocalMaxSize)
	c.LocalTTL = e.duration("PROPVEST_CACHE_LOCAL_TTL", c.LocalTTL)
	c.RedisAddr = e.str("PROPVEST_REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = e.str("PROPVEST_REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = e.int("PROPVEST_REDIS_DB", c.RedisDB)
	c.EnableTwoPhase = e.bool("PROPVEST_CACHE_TWO_PHASE", c.EnableTwoPhase)
	c.ResultTTL = e.duration("PROPVEST_RESULT_TTL", c.ResultTTL)

	b := &cfg.EventBus
	b.Type = e.str("PROPVEST_BUS", b.Type)
	b.ChannelBufferSize = e.int("PROPVEST_BUS_BUFFER", b.ChannelBufferSize)
	b.NATSUrl = e.str("PROPVEST_NATS_URL", b.NATSUrl)
	b.NATSToken = e.str("PROPVEST_NATS_TOKEN", b.NATSToken)
	b.NATSMaxReconnects = e.int("PROPVEST_NATS_MAX_RECONNECTS", b.NATSMaxReconnects)
	b.NATSReconnectWait = e.int("PROPVEST_NATS_RECONNECT_WAIT", b.NATSReconnectWait)

	sc := &cfg.Scoring
	sc.TuningPath = e.str("PROPVEST_TUNING_PATH", sc.TuningPath)
	sc.ScreeningPath = e.str("PROPVEST_SCREENING_PATH", sc.ScreeningPath)
	sc.DefaultTopN = e.int("PROPVEST_DEFAULT_TOP_N", sc.DefaultTopN)
	sc.MaxTopN = e.int("PROPVEST_MAX_TOP_N", sc.MaxTopN)
	sc.HistoryLimit = e.int("PROPVEST_HISTORY_LIMIT", sc.HistoryLimit)

	cfg.Logging.Env = e.str("PROPVEST_ENV", cfg.Logging.Env)
	cfg.Logging.Level = e.str("PROPVEST_LOG_LEVEL", cfg.Logging.Level)
	cfg.Metrics.Addr = e.str("PROPVEST_METRICS_ADDR", cfg.Metrics.Addr)

	if e.err != nil {
		return nil, e.err
	}
	return cfg, nil
}

// envReader records the first malformed value instead of silently ignoring it.
type envReader struct {
	getenv func(string) string
	err    error
}

func (e *envReader) lookup(k string) (string, bool) {
	v := strings.TrimSpace(e.getenv(k))
	return v, v != ""
}

func (e *envReader) fail(k, v string) {
	if e.err == nil {
		e.err = eris.Errorf("invalid value %q for %s", v, k)
	}
}

func (e *envReader) str(k, def string) string {
	if v, ok := e.lookup(k); ok {
		return v
	}
	return def
}

func (e *envReader) int(k string, def int) int {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(k, v)
		return def
	}
	return n
}

func (e *envReader) float(k string, def float64) float64 {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(k, v)
		return def
	}
	return f
}

func (e *envReader) bool(k string, def bool) bool {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(k, v)
		return def
	}
	return b
}

// duration accepts Go durations ("90s") or bare seconds ("90").
func (e *envReader) duration(k string, def time.Duration) time.Duration {
	v, ok := e.lookup(k)
	if !ok {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(k, v)
		return def
	}
	return d
}
