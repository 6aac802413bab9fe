package pricing

import (
	"fmt"
	"strings"
)

// CustomTier is the name under which the request's customMargin is reported.
const CustomTier = "custom"

// Tier is a named markup percentage applied to the buffered cost.
type Tier struct {
	Name   string  `json:"name" yaml:"name"`
	Margin float64 `json:"margin" yaml:"margin"`
}

// Tiers is an ordered set of margin tiers.
type Tiers []Tier

// DefaultTiers returns the tiers used when none are configured.
func DefaultTiers() Tiers {
	return Tiers{
		{Name: "competitive", Margin: 25},
		{Name: "standard", Margin: 40},
		{Name: "premium", Margin: 60},
	}
}

// Validate rejects empty, duplicate and reserved tier names.
func (t Tiers) Validate() error {
	if len(t) == 0 {
		return invalidInput("at least one margin tier is required")
	}
	seen := make(map[string]struct{}, len(t))
	for _, tier := range t {
		name := strings.TrimSpace(tier.Name)
		if name == "" {
			return invalidInput("tier name is required")
		}
		if name == CustomTier {
			return invalidInput(fmt.Sprintf("tier name %q is reserved", CustomTier))
		}
		if _, ok := seen[name]; ok {
			return invalidInput(fmt.Sprintf("duplicate tier %q", name))
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Normalize returns a copy with surrounding whitespace trimmed from every name.
func (t Tiers) Normalize() Tiers {
	out := t.clone()
	for i := range out {
		out[i].Name = strings.TrimSpace(out[i].Name)
	}
	return out
}

func (t Tiers) clone() Tiers {
	out := make(Tiers, len(t))
	copy(out, t)
	return out
}
