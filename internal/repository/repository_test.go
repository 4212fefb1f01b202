package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/propvest/internal/domain"
)

func newSQLiteRepo(t *testing.T, seed bool) *SQLRepository {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "propvest-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() {
		os.Remove(tmpPath)
		os.Remove(tmpPath + "-wal")
		os.Remove(tmpPath + "-shm")
	})

	repo, err := New(domain.RepositoryConfig{
		Driver:      "sqlite",
		SQLitePath:  tmpPath,
		SeedSamples: seed,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func TestSQLiteRepository(t *testing.T) {
	repo := newSQLiteRepo(t, false)
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetProperty", func(t *testing.T) {
		year := 2019
		p := &domain.Property{
			Name:               "Mid-Rise Condo",
			Location:           "Metro Center",
			Price:              380000,
			Size:               1100,
			AnnualRentalIncome: 38000,
			MaintenanceCost:    5700,
			RiskLevel:          domain.RiskLow,
			PropertyType:       "Condo",
			YearBuilt:          &year,
			Description:        "Well-maintained condo with metro access",
		}

		if err := repo.SaveProperty(ctx, p); err != nil {
			t.Fatalf("SaveProperty failed: %v", err)
		}
		if p.ID == "" {
			t.Fatal("expected generated ID")
		}

		got, err := repo.GetProperty(ctx, p.ID)
		if err != nil {
			t.Fatalf("GetProperty failed: %v", err)
		}
		if got.Name != p.Name || got.Price != p.Price || got.RiskLevel != domain.RiskLow {
			t.Errorf("unexpected property: %+v", got)
		}
		if got.YearBuilt == nil || *got.YearBuilt != 2019 {
			t.Errorf("expected year built 2019, got %v", got.YearBuilt)
		}
	})

	t.Run("PropertyWithoutYear", func(t *testing.T) {
		p := &domain.Property{
			ID: "no-year", Name: "Plot", Location: "Industrial Zone",
			Price: 90000, Size: 400, RiskLevel: domain.RiskHigh, PropertyType: "Land",
		}
		if err := repo.SaveProperty(ctx, p); err != nil {
			t.Fatalf("SaveProperty failed: %v", err)
		}
		got, err := repo.GetProperty(ctx, "no-year")
		if err != nil {
			t.Fatalf("GetProperty failed: %v", err)
		}
		if got.YearBuilt != nil {
			t.Errorf("expected nil year built, got %d", *got.YearBuilt)
		}
	})

	t.Run("PropertyNotFound", func(t *testing.T) {
		_, err := repo.GetProperty(ctx, "missing")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListAndCount", func(t *testing.T) {
		list, err := repo.ListProperties(ctx)
		if err != nil {
			t.Fatalf("ListProperties failed: %v", err)
		}
		n, err := repo.CountProperties(ctx)
		if err != nil {
			t.Fatalf("CountProperties failed: %v", err)
		}
		if len(list) != 2 || n != 2 {
			t.Errorf("expected 2 properties, got list=%d count=%d", len(list), n)
		}
	})

	t.Run("SaveAndGetProfile", func(t *testing.T) {
		p := &domain.InvestorProfile{
			Name:               "Weekend Landlord",
			BudgetMin:          150000,
			BudgetMax:          400000,
			RiskTolerance:      domain.RiskMedium,
			InvestmentHorizon:  "Medium-term (5-10 years)",
			MinRentalYield:     6.5,
			MinROI:             4,
			PreferredLocations: []string{"Metro Center", "University District"},
		}
		if err := repo.SaveProfile(ctx, p); err != nil {
			t.Fatalf("SaveProfile failed: %v", err)
		}

		got, err := repo.GetProfile(ctx, p.ID)
		if err != nil {
			t.Fatalf("GetProfile failed: %v", err)
		}
		if got.MinRentalYield != 6.5 || got.RiskTolerance != domain.RiskMedium {
			t.Errorf("unexpected profile: %+v", got)
		}
		if len(got.PreferredLocations) != 2 || got.PreferredLocations[1] != "University District" {
			t.Errorf("unexpected locations: %v", got.PreferredLocations)
		}
	})

	t.Run("ProfileWithoutLocations", func(t *testing.T) {
		p := &domain.InvestorProfile{Name: "Anywhere", BudgetMax: 100000, RiskTolerance: domain.RiskHigh}
		if err := repo.SaveProfile(ctx, p); err != nil {
			t.Fatalf("SaveProfile failed: %v", err)
		}
		got, err := repo.GetProfile(ctx, p.ID)
		if err != nil {
			t.Fatalf("GetProfile failed: %v", err)
		}
		if got.PreferredLocations == nil || len(got.PreferredLocations) != 0 {
			t.Errorf("expected empty non-nil locations, got %v", got.PreferredLocations)
		}
	})

	t.Run("ProfileRequiresName", func(t *testing.T) {
		err := repo.SaveProfile(ctx, &domain.InvestorProfile{BudgetMax: 1})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("ListProfilesByName", func(t *testing.T) {
		profiles, err := repo.ListProfiles(ctx)
		if err != nil {
			t.Fatalf("ListProfiles failed: %v", err)
		}
		if len(profiles) != 2 || profiles[0].Name != "Anywhere" {
			t.Errorf("unexpected profiles: %+v", profiles)
		}
	})

	t.Run("RecommendationRuns", func(t *testing.T) {
		base := time.Now().UTC()
		for i, id := range []string{"run-old", "run-new"} {
			run := &domain.RecommendationRun{
				ID:            id,
				Profile:       domain.InvestorProfile{Name: "Snapshot", BudgetMax: 500000, RiskTolerance: domain.RiskLow},
				Filter:        "rental_yield > 5.0",
				TotalAnalyzed: 10,
				ScreenedOut:   3,
				Recommendations: []domain.ScoredRecommendation{
					{Property: domain.Property{ID: "p1", Name: "Flat"}, Score: 81.5, Reasoning: []string{"ok"}},
				},
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			}
			if err := repo.SaveRecommendationRun(ctx, run); err != nil {
				t.Fatalf("SaveRecommendationRun failed: %v", err)
			}
		}

		runs, err := repo.ListRecommendationRuns(ctx, 10)
		if err != nil {
			t.Fatalf("ListRecommendationRuns failed: %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}
		if runs[0].ID != "run-new" {
			t.Errorf("expected newest run first, got %s", runs[0].ID)
		}
		if runs[0].ScreenedOut != 3 || runs[0].Filter != "rental_yield > 5.0" {
			t.Errorf("unexpected run: %+v", runs[0])
		}
		if len(runs[0].Recommendations) != 1 || runs[0].Recommendations[0].Score != 81.5 {
			t.Errorf("unexpected recommendations: %+v", runs[0].Recommendations)
		}

		limited, err := repo.ListRecommendationRuns(ctx, 1)
		if err != nil {
			t.Fatalf("ListRecommendationRuns failed: %v", err)
		}
		if len(limited) != 1 {
			t.Errorf("expected 1 run, got %d", len(limited))
		}

		if _, err := repo.ListRecommendationRuns(ctx, 0); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for zero limit, got %v", err)
		}
	})
}

func TestSeed(t *testing.T) {
	repo := newSQLiteRepo(t, true)
	ctx := context.Background()

	list, err := repo.ListProperties(ctx)
	if err != nil {
		t.Fatalf("ListProperties failed: %v", err)
	}
	if len(list) != len(SampleProperties()) {
		t.Fatalf("expected %d seeded properties, got %d", len(SampleProperties()), len(list))
	}
	if list[0].Name != "Downtown Luxury Apartment" {
		t.Errorf("expected seed order kept, first is %s", list[0].Name)
	}

	t.Run("Idempotent", func(t *testing.T) {
		n, err := repo.seed(ctx)
		if err != nil {
			t.Fatalf("seed failed: %v", err)
		}
		if n != 0 {
			t.Errorf("expected no rows seeded into a non-empty catalog, got %d", n)
		}
	})

	t.Run("StableIDs", func(t *testing.T) {
		a, b := SampleProperties(), SampleProperties()
		for i := range a {
			if a[i].ID != b[i].ID {
				t.Errorf("sample %d id changed: %s vs %s", i, a[i].ID, b[i].ID)
			}
			if err := a[i].Validate(); err != nil {
				t.Errorf("sample %s invalid: %v", a[i].Name, err)
			}
		}
	})
}

func TestRebind(t *testing.T) {
	pg := &SQLRepository{driver: "postgres"}
	if got := pg.rebind("SELECT * FROM t WHERE a = ? AND b = ?"); got != "SELECT * FROM t WHERE a = $1 AND b = $2" {
		t.Errorf("unexpected rebind: %s", got)
	}

	lite := &SQLRepository{driver: "sqlite"}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("expected sqlite query untouched, got %s", got)
	}
}

func TestSchemasFor(t *testing.T) {
	if n := len(SchemasFor("mysql")); n != 3 {
		t.Errorf("expected 3 mysql statements, got %d", n)
	}
	if n := len(SchemasFor("sqlite")); n != 5 {
		t.Errorf("expected 5 sqlite statements, got %d", n)
	}
}

func TestPostgresDSN(t *testing.T) {
	dsn := postgresDSN(domain.RepositoryConfig{PostgresUser: "app", PostgresPassword: "secret"})
	want := "host=localhost port=5432 user=app password=secret dbname=propvest sslmode=disable"
	if dsn != want {
		t.Errorf("got %q, want %q", dsn, want)
	}
}

func TestUnsupportedDriver(t *testing.T) {
	if _, err := New(domain.RepositoryConfig{Driver: "oracle"}); err == nil {
		t.Error("expected error for unsupported driver")
	}
}
