package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Policy is an optional standalone budget policy file. When supplied it
// overrides the SSM budget amount and the configured thresholds, so a team
// can pin its alerting policy in version control.
type Policy struct {
	BudgetAmount        string    `yaml:"budget_amount"`
	Thresholds          []float64 `yaml:"thresholds"`
	AnomalyThresholdPct float64   `yaml:"anomaly_threshold_pct"`
}

// LoadPolicy reads a YAML policy file.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file %s: %w", path, err)
	}
	return ParsePolicy(data, path)
}

// ParsePolicy parses YAML policy data from raw bytes.
func ParsePolicy(data []byte, path string) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	if p.BudgetAmount != "" {
		amount, err := decimal.NewFromString(p.BudgetAmount)
		if err != nil {
			return nil, fmt.Errorf("policy file %s: budget_amount is not a number", path)
		}
		if !amount.IsPositive() {
			return nil, fmt.Errorf("policy file %s: budget_amount must be positive", path)
		}
	}
	return &p, nil
}

// Budget returns the policy's budget amount, absent when not set.
func (p *Policy) Budget() (decimal.Decimal, bool) {
	if p == nil || p.BudgetAmount == "" {
		return decimal.Decimal{}, false
	}
	amount, err := decimal.NewFromString(p.BudgetAmount)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return amount, true
}
