// Offline ranker for a Propvest property catalog.
//
// Usage:
//   go run ./cmd/propvest-rank -csv properties.csv -preset balanced-rental-investor -top 10
//   go run ./cmd/propvest-rank -csv properties.csv -profile my-profile.json
//
// This tool reads properties from CSV, scores them with the same engine the
// server uses and prints a ranked table. No server or database is needed.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/opensource-finance/propvest/internal/domain"
	"github.com/opensource-finance/propvest/internal/scoring"
)

func main() {
	csvPath := flag.String("csv", "", "Path to property CSV file")
	preset := flag.String("preset", "", "Preset profile key or name")
	profilePath := flag.String("profile", "", "Path to a JSON investor profile")
	tuningPath := flag.String("tuning", "", "Optional scoring tuning JSON file")
	top := flag.Int("top", 5, "Number of properties to print (0 = all)")
	verbose := flag.Bool("verbose", false, "Print reasoning under each row")
	flag.Parse()

	if *csvPath == "" || (*preset == "") == (*profilePath == "") {
		fmt.Println("Usage: propvest-rank -csv properties.csv (-preset KEY | -profile FILE)")
		fmt.Println("\nPresets:")
		for _, p := range scoring.Presets() {
			fmt.Printf("  %-22s %s\n", p.ID, p.Name)
		}
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(2)
	}

	if err := run(os.Stdout, *csvPath, *preset, *profilePath, *tuningPath, *top, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(w io.Writer, csvPath, preset, profilePath, tuningPath string, top int, verbose bool) error {
	var profile domain.InvestorProfile
	if preset != "" {
		p, ok := scoring.Preset(preset)
		if !ok {
			return fmt.Errorf("unknown preset %q", preset)
		}
		profile = p
	} else {
		p, err := readProfileFile(profilePath)
		if err != nil {
			return err
		}
		profile = p
	}

	tuning := scoring.DefaultTuning()
	if tuningPath != "" {
		t, err := scoring.LoadTuningFromFile(tuningPath)
		if err != nil {
			return err
		}
		tuning = t
	}

	file, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer file.Close()

	properties, err := readProperties(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", csvPath, err)
	}

	ranked, err := scoring.NewScorer(tuning).Rank(properties, profile)
	if err != nil {
		return err
	}
	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}

	printTable(w, profile, len(properties), ranked, verbose)
	return nil
}

func printTable(w io.Writer, profile domain.InvestorProfile, analyzed int, ranked []domain.ScoredRecommendation, verbose bool) {
	fmt.Fprintf(w, "Profile:  %s (%s risk, $%.0f - $%.0f)\n",
		profile.Name, profile.RiskTolerance, profile.BudgetMin, profile.BudgetMax)
	fmt.Fprintf(w, "Analyzed: %d properties\n\n", analyzed)

	fmt.Fprintf(w, "%-4s %-28s %-16s %12s %7s %7s %-6s %6s\n",
		"#", "NAME", "LOCATION", "PRICE", "YIELD", "ROI", "RISK", "SCORE")
	fmt.Fprintln(w, strings.Repeat("-", 92))

	for i, r := range ranked {
		fmt.Fprintf(w, "%-4d %-28s %-16s %12.0f %6.2f%% %6.2f%% %-6s %6.2f\n",
			i+1,
			truncate(r.Property.Name, 28),
			truncate(r.Property.Location, 16),
			r.Property.Price,
			r.Metrics.RentalYield,
			r.Metrics.NetROI,
			r.Property.RiskLevel,
			r.Score,
		)
		if verbose {
			for _, reason := range r.Reasoning {
				fmt.Fprintf(w, "       - %s\n", reason)
			}
		}
	}
}

// truncate shortens s to n runes, marking the cut with a tilde.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "~"
}
