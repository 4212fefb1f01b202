// Package domain defines the core types and interfaces for Propvest.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for catalog and history persistence.
// The scoring engine never touches it; the advisor feeds the engine from it.
type Repository interface {
	// Property catalog
	SaveProperty(ctx context.Context, p *Property) error
	GetProperty(ctx context.Context, id string) (*Property, error)
	ListProperties(ctx context.Context) ([]Property, error)
	CountProperties(ctx context.Context) (int, error)

	// Saved custom investor profiles
	SaveProfile(ctx context.Context, p *InvestorProfile) error
	GetProfile(ctx context.Context, id string) (*InvestorProfile, error)
	ListProfiles(ctx context.Context) ([]InvestorProfile, error)

	// Recommendation history
	SaveRecommendationRun(ctx context.Context, run *RecommendationRun) error
	ListRecommendationRuns(ctx context.Context, limit int) ([]RecommendationRun, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite", "postgres" or "mysql"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// MySQL specific
	MySQLDSN string

	// SeedSamples inserts the sample catalog when the properties table is empty.
	SeedSamples bool

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
