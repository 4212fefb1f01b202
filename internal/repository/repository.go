// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"github.com/opensource-finance/propvest/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with SQLite, PostgreSQL and MySQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (*SQLRepository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	case "mysql":
		db, err = openMySQL(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return open(db, cfg.Driver, cfg.SeedSamples)
}

// open migrates and optionally seeds an already connected database.
func open(db *sql.DB, driver string, seed bool) (*SQLRepository, error) {
	repo := &SQLRepository{
		db:     db,
		driver: driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if seed {
		n, err := repo.seed(context.Background())
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to seed catalog: %w", err)
		}
		if n > 0 {
			log.Info().Int("properties", n).Str("driver", driver).Msg("seeded sample catalog")
		}
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, stmt := range SchemasFor(r.driver) {
		if _, err := r.db.Exec(stmt); err != nil {
			return eris.Wrapf(err, "migrate %s", r.driver)
		}
	}
	return nil
}

// seed inserts the sample catalog when no property exists yet.
func (r *SQLRepository) seed(ctx context.Context) (int, error) {
	count, err := r.CountProperties(ctx)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	samples := SampleProperties()
	base := time.Now().UTC()
	for i := range samples {
		samples[i].CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
		if err := r.SaveProperty(ctx, &samples[i]); err != nil {
			return 0, err
		}
	}
	return len(samples), nil
}

// SaveProperty stores a new property. Empty IDs and timestamps are filled in.
func (r *SQLRepository) SaveProperty(ctx context.Context, p *domain.Property) error {
	if p == nil {
		return fmt.Errorf("%w: property is required", ErrInvalidInput)
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	var year sql.NullInt64
	if p.YearBuilt != nil {
		year = sql.NullInt64{Int64: int64(*p.YearBuilt), Valid: true}
	}

	query := `
		INSERT INTO properties (
			id, name, location, price, size, annual_rental_income,
			maintenance_cost, risk_level, property_type, year_built,
			description, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		p.ID, p.Name, p.Location,
		p.Price, p.Size, p.AnnualRentalIncome,
		p.MaintenanceCost, string(p.RiskLevel), p.PropertyType, year,
		p.Description, p.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "insert property %s", p.ID)
	}
	return nil
}

const propertyColumns = `id, name, location, price, size, annual_rental_income,
	maintenance_cost, risk_level, property_type, year_built, description, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProperty(row scanner) (domain.Property, error) {
	var p domain.Property
	var risk string
	var year sql.NullInt64

	err := row.Scan(
		&p.ID, &p.Name, &p.Location,
		&p.Price, &p.Size, &p.AnnualRentalIncome,
		&p.MaintenanceCost, &risk, &p.PropertyType, &year,
		&p.Description, &p.CreatedAt,
	)
	if err != nil {
		return p, err
	}

	p.RiskLevel = domain.RiskLevel(risk)
	if year.Valid {
		y := int(year.Int64)
		p.YearBuilt = &y
	}
	return p, nil
}

// GetProperty retrieves a property by ID.
func (r *SQLRepository) GetProperty(ctx context.Context, id string) (*domain.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE id = ?`

	p, err := scanProperty(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "get property %s", id)
	}
	return &p, nil
}

// ListProperties returns the whole catalog in insertion order.
func (r *SQLRepository) ListProperties(ctx context.Context) ([]domain.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "list properties")
	}
	defer rows.Close()

	properties := []domain.Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, eris.Wrap(err, "scan property")
		}
		properties = append(properties, p)
	}

	return properties, rows.Err()
}

// CountProperties returns the catalog size.
func (r *SQLRepository) CountProperties(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM properties`).Scan(&n); err != nil {
		return 0, eris.Wrap(err, "count properties")
	}
	return n, nil
}

// SaveProfile stores a new custom investor profile.
func (r *SQLRepository) SaveProfile(ctx context.Context, p *domain.InvestorProfile) error {
	if p == nil {
		return fmt.Errorf("%w: profile is required", ErrInvalidInput)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: profile name is required", ErrInvalidInput)
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	locations, err := json.Marshal(nonNil(p.PreferredLocations))
	if err != nil {
		return eris.Wrap(err, "encode preferred locations")
	}

	query := `
		INSERT INTO investor_profiles (
			id, name, budget_min, budget_max, risk_tolerance,
			investment_horizon, min_rental_yield, min_roi,
			preferred_locations, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		p.ID, p.Name, p.BudgetMin, p.BudgetMax, string(p.RiskTolerance),
		p.InvestmentHorizon, p.MinRentalYield, p.MinROI,
		string(locations), p.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "insert profile %s", p.ID)
	}
	return nil
}

const profileColumns = `id, name, budget_min, budget_max, risk_tolerance,
	investment_horizon, min_rental_yield, min_roi, preferred_locations, created_at`

func scanProfile(row scanner) (domain.InvestorProfile, error) {
	var p domain.InvestorProfile
	var risk, locations string

	err := row.Scan(
		&p.ID, &p.Name, &p.BudgetMin, &p.BudgetMax, &risk,
		&p.InvestmentHorizon, &p.MinRentalYield, &p.MinROI,
		&locations, &p.CreatedAt,
	)
	if err != nil {
		return p, err
	}

	p.RiskTolerance = domain.RiskLevel(risk)
	p.PreferredLocations = []string{}
	if locations != "" {
		if err := json.Unmarshal([]byte(locations), &p.PreferredLocations); err != nil {
			return p, eris.Wrapf(err, "decode preferred locations of profile %s", p.ID)
		}
	}
	return p, nil
}

// GetProfile retrieves a saved profile by ID.
func (r *SQLRepository) GetProfile(ctx context.Context, id string) (*domain.InvestorProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM investor_profiles WHERE id = ?`

	p, err := scanProfile(r.db.QueryRowContext(ctx, r.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "get profile %s", id)
	}
	return &p, nil
}

// ListProfiles returns saved profiles ordered by name.
func (r *SQLRepository) ListProfiles(ctx context.Context) ([]domain.InvestorProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM investor_profiles ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "list profiles")
	}
	defer rows.Close()

	profiles := []domain.InvestorProfile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}

// SaveRecommendationRun records one recommendation response in history.
func (r *SQLRepository) SaveRecommendationRun(ctx context.Context, run *domain.RecommendationRun) error {
	if run == nil {
		return fmt.Errorf("%w: run is required", ErrInvalidInput)
	}
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	profile, err := json.Marshal(run.Profile)
	if err != nil {
		return eris.Wrap(err, "encode run profile")
	}
	recs, err := json.Marshal(run.Recommendations)
	if err != nil {
		return eris.Wrap(err, "encode run recommendations")
	}

	query := `
		INSERT INTO recommendation_runs (
			id, profile, screen_filter, total_analyzed, screened_out,
			recommendations, trace_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		run.ID, string(profile), run.Filter, run.TotalAnalyzed, run.ScreenedOut,
		string(recs), run.TraceID, run.CreatedAt,
	)
	if err != nil {
		return eris.Wrapf(err, "insert recommendation run %s", run.ID)
	}
	return nil
}

// ListRecommendationRuns returns the most recent runs first.
func (r *SQLRepository) ListRecommendationRuns(ctx context.Context, limit int) ([]domain.RecommendationRun, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidInput)
	}

	// LIMIT is inlined: MySQL rejects a placeholder there under some drivers.
	query := `
		SELECT id, profile, screen_filter, total_analyzed, screened_out,
			   recommendations, trace_id, created_at
		FROM recommendation_runs
		ORDER BY created_at DESC, id
		LIMIT ` + strconv.Itoa(limit)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "list recommendation runs")
	}
	defer rows.Close()

	runs := []domain.RecommendationRun{}
	for rows.Next() {
		var run domain.RecommendationRun
		var profile, recs string

		if err := rows.Scan(
			&run.ID, &profile, &run.Filter, &run.TotalAnalyzed, &run.ScreenedOut,
			&recs, &run.TraceID, &run.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "scan recommendation run")
		}

		if err := json.Unmarshal([]byte(profile), &run.Profile); err != nil {
			return nil, eris.Wrapf(err, "decode profile of run %s", run.ID)
		}
		if err := json.Unmarshal([]byte(recs), &run.Recommendations); err != nil {
			return nil, eris.Wrapf(err, "decode recommendations of run %s", run.ID)
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
