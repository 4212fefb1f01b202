package repository

// Schema definitions for the Propvest database. SQLite and PostgreSQL share
// one dialect; MySQL needs bounded key columns and inline indexes. Each entry
// is a single statement so drivers without multi-statement support work.

const schemaProperties = `
CREATE TABLE IF NOT EXISTS properties (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    location TEXT NOT NULL,
    price DOUBLE PRECISION NOT NULL,
    size DOUBLE PRECISION NOT NULL,
    annual_rental_income DOUBLE PRECISION NOT NULL,
    maintenance_cost DOUBLE PRECISION NOT NULL,
    risk_level TEXT NOT NULL,
    property_type TEXT NOT NULL,
    year_built INTEGER,
    description TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
)`

const indexPropertiesCreated = `CREATE INDEX IF NOT EXISTS idx_properties_created ON properties(created_at)`

const schemaProfiles = `
CREATE TABLE IF NOT EXISTS investor_profiles (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    budget_min DOUBLE PRECISION NOT NULL,
    budget_max DOUBLE PRECISION NOT NULL,
    risk_tolerance TEXT NOT NULL,
    investment_horizon TEXT NOT NULL DEFAULT '',
    min_rental_yield DOUBLE PRECISION NOT NULL,
    min_roi DOUBLE PRECISION NOT NULL,
    preferred_locations TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
)`

const schemaRuns = `
CREATE TABLE IF NOT EXISTS recommendation_runs (
    id TEXT PRIMARY KEY,
    profile TEXT NOT NULL,
    screen_filter TEXT NOT NULL DEFAULT '',
    total_analyzed INTEGER NOT NULL,
    screened_out INTEGER NOT NULL DEFAULT 0,
    recommendations TEXT NOT NULL,
    trace_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMP NOT NULL
)`

const indexRunsCreated = `CREATE INDEX IF NOT EXISTS idx_recommendation_runs_created ON recommendation_runs(created_at)`

// MySQL variants. TEXT columns cannot carry defaults or keys there.

const mysqlProperties = `
CREATE TABLE IF NOT EXISTS properties (
    id VARCHAR(64) NOT NULL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    location VARCHAR(255) NOT NULL,
    price DOUBLE NOT NULL,
    size DOUBLE NOT NULL,
    annual_rental_income DOUBLE NOT NULL,
    maintenance_cost DOUBLE NOT NULL,
    risk_level VARCHAR(16) NOT NULL,
    property_type VARCHAR(64) NOT NULL,
    year_built INT NULL,
    description VARCHAR(2048) NOT NULL DEFAULT '',
    created_at DATETIME(6) NOT NULL,
    INDEX idx_properties_created (created_at)
)`

const mysqlProfiles = `
CREATE TABLE IF NOT EXISTS investor_profiles (
    id VARCHAR(64) NOT NULL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    budget_min DOUBLE NOT NULL,
    budget_max DOUBLE NOT NULL,
    risk_tolerance VARCHAR(16) NOT NULL,
    investment_horizon VARCHAR(64) NOT NULL DEFAULT '',
    min_rental_yield DOUBLE NOT NULL,
    min_roi DOUBLE NOT NULL,
    preferred_locations TEXT NOT NULL,
    created_at DATETIME(6) NOT NULL
)`

const mysqlRuns = `
CREATE TABLE IF NOT EXISTS recommendation_runs (
    id VARCHAR(64) NOT NULL PRIMARY KEY,
    profile TEXT NOT NULL,
    screen_filter VARCHAR(1024) NOT NULL DEFAULT '',
    total_analyzed INT NOT NULL,
    screened_out INT NOT NULL DEFAULT 0,
    recommendations MEDIUMTEXT NOT NULL,
    trace_id VARCHAR(64) NOT NULL DEFAULT '',
    created_at DATETIME(6) NOT NULL,
    INDEX idx_recommendation_runs_created (created_at)
)`

// SchemasFor returns the schema statements for a driver, in order.
func SchemasFor(driver string) []string {
	if driver == "mysql" {
		return []string{mysqlProperties, mysqlProfiles, mysqlRuns}
	}
	return []string{
		schemaProperties,
		indexPropertiesCreated,
		schemaProfiles,
		schemaRuns,
		indexRunsCreated,
	}
}
