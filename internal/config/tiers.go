package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Simplici0/printshop/internal/pricing"
)

type tiersFile struct {
	Tiers pricing.Tiers `yaml:"tiers"`
}

// LoadTiers reads margin tiers from a YAML file of the form
//
//	tiers:
//	  - name: standard
//	    margin: 40
//
// An empty path yields pricing.DefaultTiers.
func LoadTiers(path string) (pricing.Tiers, error) {
	if path == "" {
		return pricing.DefaultTiers(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tiers file: %w", err)
	}

	var f tiersFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse tiers file: %w", err)
	}
	if err := f.Tiers.Validate(); err != nil {
		return nil, fmt.Errorf("tiers file %s: %w", path, err)
	}
	return f.Tiers.Normalize(), nil
}
