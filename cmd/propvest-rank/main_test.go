package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opensource-finance/propvest/internal/domain"
)

const sampleCSV = `id,name,location,price,size,annual_rental_income,maintenance_cost,risk_level,property_type,year_built
a,Harbor Loft,Downtown City Center,300000,900,30000,3000,Medium,Apartment,2015
b,Quiet Cottage,Green Valley Suburbs,250000,1400,15000,2500,low,House,
,Old Mill,Industrial Zone,180000,3000,25000,5000,High,Warehouse,1972
`

func TestReadProperties(t *testing.T) {
	t.Run("ParsesRows", func(t *testing.T) {
		props, err := readProperties(strings.NewReader(sampleCSV))
		if err != nil {
			t.Fatalf("readProperties failed: %v", err)
		}
		if len(props) != 3 {
			t.Fatalf("expected 3 properties, got %d", len(props))
		}
		if props[0].ID != "a" || props[0].AnnualRentalIncome != 30000 {
			t.Errorf("unexpected first row: %+v", props[0])
		}
		if props[0].YearBuilt == nil || *props[0].YearBuilt != 2015 {
			t.Errorf("expected year built 2015, got %v", props[0].YearBuilt)
		}
		if props[1].RiskLevel != domain.RiskLow {
			t.Errorf("expected risk level Low, got %s", props[1].RiskLevel)
		}
		if props[1].YearBuilt != nil {
			t.Errorf("expected nil year built, got %d", *props[1].YearBuilt)
		}
		if props[2].ID != "row-3" {
			t.Errorf("expected generated id row-3, got %q", props[2].ID)
		}
	})

	t.Run("MissingColumn", func(t *testing.T) {
		_, err := readProperties(strings.NewReader("name,location\nx,y\n"))
		if err == nil {
			t.Fatal("expected error for missing columns")
		}
	})

	t.Run("BadNumber", func(t *testing.T) {
		bad := strings.Replace(sampleCSV, "300000", "lots", 1)
		_, err := readProperties(strings.NewReader(bad))
		if err == nil || !strings.Contains(err.Error(), "line 2") {
			t.Fatalf("expected line 2 error, got %v", err)
		}
	})

	t.Run("NonFiniteNumbers", func(t *testing.T) {
		for _, v := range []string{"NaN", "Inf", "-Inf"} {
			bad := strings.Replace(sampleCSV, "300000", v, 1)
			_, err := readProperties(strings.NewReader(bad))
			if err == nil || !strings.Contains(err.Error(), "price") {
				t.Errorf("%s: expected price error, got %v", v, err)
			}
		}
	})

	t.Run("UnknownRisk", func(t *testing.T) {
		bad := strings.Replace(sampleCSV, "Medium", "Extreme", 1)
		if _, err := readProperties(strings.NewReader(bad)); err == nil {
			t.Fatal("expected error for unknown risk level")
		}
	})
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "props.csv")
	if err := os.WriteFile(csvPath, []byte(sampleCSV), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("Preset", func(t *testing.T) {
		var out bytes.Buffer
		if err := run(&out, csvPath, "balanced-rental-investor", "", "", 2, true); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		text := out.String()
		if !strings.Contains(text, "Balanced Rental Investor") {
			t.Errorf("expected profile name in output:\n%s", text)
		}
		if !strings.Contains(text, "Analyzed: 3 properties") {
			t.Errorf("expected analyzed count in output:\n%s", text)
		}
		rows := 0
		for _, line := range strings.Split(text, "\n") {
			if strings.HasPrefix(line, "1 ") || strings.HasPrefix(line, "2 ") || strings.HasPrefix(line, "3 ") {
				rows++
			}
		}
		if rows != 2 {
			t.Errorf("expected 2 ranked rows, got %d:\n%s", rows, text)
		}
	})

	t.Run("ProfileFile", func(t *testing.T) {
		profilePath := filepath.Join(dir, "profile.json")
		profile := `{"budgetMin":100000,"budgetMax":400000,"riskTolerance":"High","preferredLocations":["Industrial Zone"]}`
		if err := os.WriteFile(profilePath, []byte(profile), 0o644); err != nil {
			t.Fatal(err)
		}
		var out bytes.Buffer
		if err := run(&out, csvPath, "", profilePath, "", 0, false); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if !strings.Contains(out.String(), "Custom Profile") {
			t.Errorf("expected default custom profile name:\n%s", out.String())
		}
	})

	t.Run("UnknownPreset", func(t *testing.T) {
		var out bytes.Buffer
		if err := run(&out, csvPath, "day-trader", "", "", 5, false); err == nil {
			t.Fatal("expected error for unknown preset")
		}
	})

	t.Run("InvalidProfile", func(t *testing.T) {
		profilePath := filepath.Join(dir, "bad.json")
		_ = os.WriteFile(profilePath, []byte(`{"budgetMin":5,"budgetMax":1,"riskTolerance":"Low"}`), 0o644)
		var out bytes.Buffer
		if err := run(&out, csvPath, "", profilePath, "", 5, false); err == nil {
			t.Fatal("expected validation error")
		}
	})
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected unchanged, got %q", got)
	}
	if got := truncate("a very long property name", 8); got != "a very ~" {
		t.Errorf("unexpected truncation %q", got)
	}
	if got := truncate("Château Lumière", 8); got != "Château~" {
		t.Errorf("unexpected multi-byte truncation %q", got)
	}
	if got := truncate("Château", 7); got != "Château" {
		t.Errorf("expected name of exactly 7 runes unchanged, got %q", got)
	}
}
