package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/opensource-finance/propvest/internal/domain"
)

// requiredColumns must appear in the CSV header. Matching ignores case and
// underscores so both annual_rental_income and annualRentalIncome work.
var requiredColumns = []string{
	"name", "location", "price", "size",
	"annualrentalincome", "maintenancecost", "risklevel", "propertytype",
}

func normalizeColumn(col string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(col)), "_", "")
}

// readProperties parses a property catalog. Rows without an id column value
// are numbered row-1, row-2 and so on.
func readProperties(r io.Reader) ([]domain.Property, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[normalizeColumn(col)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var properties []domain.Property
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		p, err := parseRow(record, colIndex, line-1)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		properties = append(properties, p)
	}
	return properties, nil
}

func parseRow(record []string, colIndex map[string]int, row int) (domain.Property, error) {
	field := func(name string) string {
		i, ok := colIndex[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	number := func(name string) (float64, error) {
		v, err := strconv.ParseFloat(field(name), 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	}

	p := domain.Property{
		ID:           field("id"),
		Name:         field("name"),
		Location:     field("location"),
		PropertyType: field("propertytype"),
		Description:  field("description"),
	}
	if p.ID == "" {
		p.ID = fmt.Sprintf("row-%d", row)
	}

	var err error
	if p.Price, err = number("price"); err != nil {
		return p, err
	}
	if p.Size, err = number("size"); err != nil {
		return p, err
	}
	if p.AnnualRentalIncome, err = number("annualrentalincome"); err != nil {
		return p, err
	}
	if p.MaintenanceCost, err = number("maintenancecost"); err != nil {
		return p, err
	}

	risk, ok := domain.ParseRiskLevel(field("risklevel"))
	if !ok {
		return p, fmt.Errorf("risklevel: unknown value %q", field("risklevel"))
	}
	p.RiskLevel = risk

	if y := field("yearbuilt"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			return p, fmt.Errorf("yearbuilt: %w", err)
		}
		p.YearBuilt = &year
	}

	return p, p.Validate()
}

func readProfileFile(path string) (domain.InvestorProfile, error) {
	var profile domain.InvestorProfile
	data, err := os.ReadFile(path)
	if err != nil {
		return profile, err
	}
	if err := json.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("parse profile: %w", err)
	}
	if profile.Name == "" {
		profile.Name = "Custom Profile"
	}
	return profile, nil
}
