package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"quote/internal/core"
	"quote/internal/services"
)

// seedFile is the YAML shape of the category seed catalog:
//
//	categories:
//	  - kind: income
//	    name: annual fee
//	    scope: household
//	    default_amount_cents: 25000
type seedFile struct {
	Categories []seedCategory `yaml:"categories"`
}

type seedCategory struct {
	Kind               string `yaml:"kind"`
	Name               string `yaml:"name"`
	Scope              string `yaml:"scope"`
	DefaultAmountCents int64  `yaml:"default_amount_cents"`
	BudgetCeilingCents int64  `yaml:"budget_ceiling_cents"`
}

// LoadCategorySeed parses a seed catalog from a YAML file.
func LoadCategorySeed(path string) ([]services.CategorySeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	seeds := make([]services.CategorySeed, 0, len(f.Categories))
	for i, c := range f.Categories {
		if c.Name == "" {
			return nil, fmt.Errorf("seed entry %d: name is required", i)
		}
		kind := core.TransactionKind(c.Kind)
		if !kind.Valid() {
			return nil, fmt.Errorf("seed entry %q: invalid kind %q", c.Name, c.Kind)
		}
		seeds = append(seeds, services.CategorySeed{
			Kind:          kind,
			Name:          c.Name,
			Scope:         core.CategoryScope(c.Scope),
			DefaultAmount: c.DefaultAmountCents,
			BudgetCeiling: c.BudgetCeilingCents,
		})
	}
	return seeds, nil
}
