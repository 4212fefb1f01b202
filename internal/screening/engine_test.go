package screening

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/opensource-finance/propvest/internal/domain"
	"github.com/opensource-finance/propvest/internal/financials"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return engine
}

func listings() []domain.Property {
	year := 1995
	return []domain.Property{
		{ID: "p1", Name: "Studio", Location: "University District", Price: 180000, Size: 600, AnnualRentalIncome: 18000, MaintenanceCost: 2700, RiskLevel: domain.RiskMedium, PropertyType: "Studio"},
		{ID: "p2", Name: "Duplex", Location: "Emerging Neighborhood", Price: 220000, Size: 1800, AnnualRentalIncome: 21600, MaintenanceCost: 8800, RiskLevel: domain.RiskHigh, PropertyType: "Duplex", YearBuilt: &year},
		{ID: "p3", Name: "Villa", Location: "Hillside Estates", Price: 1200000, Size: 4500, AnnualRentalIncome: 84000, MaintenanceCost: 18000, RiskLevel: domain.RiskLow, PropertyType: "Villa"},
		{ID: "p4", Name: "Vacant", Location: "Industrial Zone", Price: 90000, Size: 400, MaintenanceCost: 1500, RiskLevel: domain.RiskHigh, PropertyType: "House"},
	}
}

func TestCompile(t *testing.T) {
	engine := newTestEngine(t)

	t.Run("Valid", func(t *testing.T) {
		f, err := engine.Compile(`price < 500000.0 && risk_level != "High"`)
		if err != nil {
			t.Fatalf("Compile failed: %v", err)
		}
		if f.Expression() == "" {
			t.Error("expected expression to be kept")
		}
	})

	t.Run("SyntaxError", func(t *testing.T) {
		_, err := engine.Compile("this is not valid CEL !!!")
		var invalid *domain.ValidationError
		if !errors.As(err, &invalid) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if invalid.Field != "filter" {
			t.Errorf("expected field 'filter', got '%s'", invalid.Field)
		}
	})

	t.Run("NonBoolResult", func(t *testing.T) {
		_, err := engine.Compile("price * 2.0")
		if err == nil {
			t.Fatal("expected error for non-bool expression")
		}
	})

	t.Run("UnknownVariable", func(t *testing.T) {
		if _, err := engine.Compile("amount > 1.0"); err == nil {
			t.Fatal("expected error for undeclared variable")
		}
	})
}

func TestFilterMatch(t *testing.T) {
	engine := newTestEngine(t)
	props := listings()

	cases := []struct {
		name string
		expr string
		want []bool
	}{
		{"YieldFloor", "rental_yield >= 9.5", []bool{true, true, false, false}},
		{"RiskAndType", `risk_level == "High" && property_type == "Duplex"`, []bool{false, true, false, false}},
		{"UndefinedRatio", "maintenance_ratio < 0.0", []bool{false, false, false, true}},
		{"YearBuilt", "year_built > 0 && year_built < 2000", []bool{false, true, false, false}},
		{"LocationContains", `location.contains("District")`, []bool{true, false, false, false}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f, err := engine.Compile(c.expr)
			if err != nil {
				t.Fatalf("Compile failed: %v", err)
			}
			for i, p := range props {
				m, err := financials.ComputeMetrics(p)
				if err != nil {
					t.Fatalf("ComputeMetrics failed: %v", err)
				}
				got, err := f.Match(p, m)
				if err != nil {
					t.Fatalf("Match failed: %v", err)
				}
				if got != c.want[i] {
					t.Errorf("%s: expected %v, got %v", p.ID, c.want[i], got)
				}
			}
		})
	}
}

func TestRules(t *testing.T) {
	t.Run("LoadAndList", func(t *testing.T) {
		engine := newTestEngine(t)
		for _, r := range []Rule{
			{ID: "b-budget", Expression: "price <= 1000000.0", Enabled: true},
			{ID: "a-income", Expression: "annual_rental_income > 0.0", Enabled: true},
		} {
			if err := engine.LoadRule(r); err != nil {
				t.Fatalf("LoadRule failed: %v", err)
			}
		}
		rules := engine.Rules()
		if len(rules) != 2 || rules[0].ID != "a-income" {
			t.Errorf("expected rules ordered by id, got %+v", rules)
		}

		engine.RemoveRule("a-income")
		if engine.RulesCount() != 1 {
			t.Errorf("expected 1 rule after removal, got %d", engine.RulesCount())
		}
	})

	t.Run("RejectsInvalidRule", func(t *testing.T) {
		engine := newTestEngine(t)
		if err := engine.LoadRule(Rule{Expression: "price > 0.0"}); err == nil {
			t.Error("expected error for missing id")
		}
		if err := engine.LoadRule(Rule{ID: "bad", Expression: "price +"}); err == nil {
			t.Error("expected error for invalid expression")
		}
		if engine.RulesCount() != 0 {
			t.Errorf("expected no rules loaded, got %d", engine.RulesCount())
		}
	})

	t.Run("Apply", func(t *testing.T) {
		engine := newTestEngine(t)
		engine.LoadRule(Rule{ID: "income", Expression: "annual_rental_income > 0.0", Reason: "No rental income", Enabled: true})
		engine.LoadRule(Rule{ID: "ticket", Expression: "price <= 1000000.0", Reason: "Above ticket size", Enabled: true})
		engine.LoadRule(Rule{ID: "off", Expression: "false", Enabled: false})

		kept, rejected, err := engine.Apply(listings())
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		if len(kept) != 2 || kept[0].ID != "p1" || kept[1].ID != "p2" {
			t.Errorf("unexpected kept set: %+v", kept)
		}
		if len(rejected) != 2 {
			t.Fatalf("expected 2 rejections, got %d", len(rejected))
		}
		if rejected[0].Property.ID != "p3" || rejected[0].Reason != "Above ticket size" {
			t.Errorf("unexpected first rejection: %+v", rejected[0])
		}
		if rejected[1].Property.ID != "p4" || rejected[1].RuleID != "income" {
			t.Errorf("unexpected second rejection: %+v", rejected[1])
		}
	})

	t.Run("ApplyWithoutRules", func(t *testing.T) {
		engine := newTestEngine(t)
		kept, rejected, err := engine.Apply(listings())
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		if len(kept) != 4 || len(rejected) != 0 {
			t.Errorf("expected all kept, got %d kept and %d rejected", len(kept), len(rejected))
		}
	})

	t.Run("LoadFromFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rules.json")
		body := `[{"id": "yield", "expression": "rental_yield >= 5.0", "reason": "Yield below 5%", "enabled": true}]`
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		engine := newTestEngine(t)
		if err := engine.LoadRulesFromFile(path); err != nil {
			t.Fatalf("LoadRulesFromFile failed: %v", err)
		}
		if engine.RulesCount() != 1 {
			t.Errorf("expected 1 rule, got %d", engine.RulesCount())
		}
	})
}
