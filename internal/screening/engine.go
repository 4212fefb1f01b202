// Package screening provides CEL-based property screening.
//
// A screen is a boolean CEL expression over one property and its derived
// metrics. Properties for which it evaluates to false are screened out
// before ranking.
package screening

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/propvest/internal/domain"
	"github.com/opensource-finance/propvest/internal/financials"
)

// Rule is a named, standing screen applied to every recommendation.
type Rule struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Expression  string `json:"expression"`

	// Reason is reported for each property the rule screens out.
	Reason  string `json:"reason"`
	Enabled bool   `json:"enabled"`
}

// Rejection records why a property was screened out.
type Rejection struct {
	Property domain.Property `json:"property"`
	RuleID   string          `json:"ruleId"`
	Reason   string          `json:"reason"`
}

// Engine compiles screening expressions and holds the standing rule set.
type Engine struct {
	mu    sync.RWMutex
	env   *cel.Env
	rules map[string]*compiledRule
}

type compiledRule struct {
	rule   Rule
	filter *Filter
}

// Filter is a compiled screening expression. It is safe for concurrent use.
type Filter struct {
	expr    string
	program cel.Program
}

// NewEngine creates a screening engine with the property variables declared.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("price", cel.DoubleType),
		cel.Variable("size", cel.DoubleType),
		cel.Variable("annual_rental_income", cel.DoubleType),
		cel.Variable("maintenance_cost", cel.DoubleType),
		cel.Variable("rental_yield", cel.DoubleType),
		cel.Variable("net_roi", cel.DoubleType),
		cel.Variable("price_per_area", cel.DoubleType),
		cel.Variable("maintenance_ratio", cel.DoubleType),
		cel.Variable("risk_level", cel.StringType),
		cel.Variable("property_type", cel.StringType),
		cel.Variable("location", cel.StringType),
		cel.Variable("year_built", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:   env,
		rules: make(map[string]*compiledRule),
	}, nil
}

// Compile checks that expr is valid CEL returning bool.
func (e *Engine) Compile(expr string) (*Filter, error) {
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, &domain.ValidationError{Field: "filter", Reason: issues.Err().Error()}
	}

	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, &domain.ValidationError{
			Field:  "filter",
			Reason: fmt.Sprintf("expression must return bool, got %s", ast.OutputType()),
		}
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program: %w", err)
	}

	return &Filter{expr: expr, program: program}, nil
}

// Expression returns the source text of the filter.
func (f *Filter) Expression() string {
	return f.expr
}

// Match evaluates the filter against one property.
func (f *Filter) Match(p domain.Property, m domain.DerivedMetrics) (bool, error) {
	out, _, err := f.program.Eval(activation(p, m))
	if err != nil {
		return false, fmt.Errorf("evaluate filter: %w", err)
	}

	b, ok := out.(types.Bool)
	if !ok {
		return false, fmt.Errorf("filter returned %v, want bool", out.Type())
	}
	return bool(b), nil
}

// LoadRule compiles a rule and adds it to the standing set, replacing any
// rule with the same ID. Disabled rules are compiled but never applied.
func (e *Engine) LoadRule(r Rule) error {
	if r.ID == "" {
		return &domain.ValidationError{Field: "id", Reason: "is required"}
	}

	f, err := e.Compile(r.Expression)
	if err != nil {
		return fmt.Errorf("rule %s: %w", r.ID, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules[r.ID] = &compiledRule{rule: r, filter: f}

	return nil
}

// LoadRulesFromFile loads a JSON array of rules.
func (e *Engine) LoadRulesFromFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read screening rules: %w", err)
	}

	var rules []Rule
	if err := json.Unmarshal(b, &rules); err != nil {
		return fmt.Errorf("unmarshal screening rules: %w", err)
	}

	for _, r := range rules {
		if err := e.LoadRule(r); err != nil {
			return err
		}
	}
	return nil
}

// RemoveRule drops a rule from the standing set.
func (e *Engine) RemoveRule(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.rules, id)
}

// Rules returns the standing rules ordered by ID.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]Rule, 0, len(e.rules))
	for _, c := range e.rules {
		out = append(out, c.rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// Apply runs every enabled rule against each property in rule ID order.
// A property is rejected by the first rule it fails. Input order is kept in
// both results. A property whose metrics are undefined aborts the run.
func (e *Engine) Apply(properties []domain.Property) ([]domain.Property, []Rejection, error) {
	e.mu.RLock()
	active := make([]*compiledRule, 0, len(e.rules))
	for _, c := range e.rules {
		if c.rule.Enabled {
			active = append(active, c)
		}
	}
	e.mu.RUnlock()

	sort.Slice(active, func(i, j int) bool { return active[i].rule.ID < active[j].rule.ID })

	kept := make([]domain.Property, 0, len(properties))
	var rejected []Rejection

	for _, p := range properties {
		if len(active) == 0 {
			kept = append(kept, p)
			continue
		}

		m, err := financials.ComputeMetrics(p)
		if err != nil {
			return nil, nil, err
		}

		rejection, err := firstFailure(active, p, m)
		if err != nil {
			return nil, nil, err
		}
		if rejection != nil {
			rejected = append(rejected, *rejection)
			continue
		}
		kept = append(kept, p)
	}

	return kept, rejected, nil
}

func firstFailure(rules []*compiledRule, p domain.Property, m domain.DerivedMetrics) (*Rejection, error) {
	for _, c := range rules {
		ok, err := c.filter.Match(p, m)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", c.rule.ID, err)
		}
		if !ok {
			reason := c.rule.Reason
			if reason == "" {
				reason = fmt.Sprintf("failed screen %s", c.rule.ID)
			}
			return &Rejection{Property: p, RuleID: c.rule.ID, Reason: reason}, nil
		}
	}
	return nil, nil
}

// activation exposes one property to CEL. An undefined maintenance ratio is
// -1 and an unknown build year is 0.
func activation(p domain.Property, m domain.DerivedMetrics) map[string]any {
	ratio := -1.0
	if m.MaintenanceRatio != nil {
		ratio = *m.MaintenanceRatio
	}
	var year int64
	if p.YearBuilt != nil {
		year = int64(*p.YearBuilt)
	}

	return map[string]any{
		"price":                p.Price,
		"size":                 p.Size,
		"annual_rental_income": p.AnnualRentalIncome,
		"maintenance_cost":     p.MaintenanceCost,
		"rental_yield":         m.RentalYield,
		"net_roi":              m.NetROI,
		"price_per_area":       m.PricePerArea,
		"maintenance_ratio":    ratio,
		"risk_level":           string(p.RiskLevel),
		"property_type":        p.PropertyType,
		"location":             p.Location,
		"year_built":           year,
	}
}
