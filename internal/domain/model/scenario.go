package model

import (
	"errors"
	"fmt"
)

// MaxShrinkage caps effective shrinkage so scheduled headcount stays finite.
const MaxShrinkage = 0.95

// BaselineName is the name of the identity scenario.
const BaselineName = "baseline"

// ErrInvalidScenario is returned for scenario parameters out of range.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario is a named what-if perturbation of the baseline inputs.
type Scenario struct {
	Name              string  `koanf:"name"`
	Label             string  `koanf:"label"`
	DemandMultiplier  float64 `koanf:"demand_multiplier"`
	ShrinkageDelta    float64 `koanf:"shrinkage_delta"`
	WageMultiplier    float64 `koanf:"wage_multiplier"`
	StaffingBufferPct float64 `koanf:"staffing_buffer_pct"`
}

// Baseline returns the identity scenario (1, 0, 1, 0).
func Baseline() Scenario {
	return Scenario{Name: BaselineName, Label: "Baseline", DemandMultiplier: 1, WageMultiplier: 1}
}

// IsIdentity reports whether applying s leaves inputs unchanged.
func (s Scenario) IsIdentity() bool {
	return s.DemandMultiplier == 1 && s.ShrinkageDelta == 0 && s.WageMultiplier == 1 && s.StaffingBufferPct == 0
}

// Validate checks parameter ranges.
func (s Scenario) Validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidScenario)
	case !(s.DemandMultiplier > 0):
		return fmt.Errorf("%w: %s: demand_multiplier must be > 0", ErrInvalidScenario, s.Name)
	case !(s.WageMultiplier > 0):
		return fmt.Errorf("%w: %s: wage_multiplier must be > 0", ErrInvalidScenario, s.Name)
	case !(s.StaffingBufferPct >= 0):
		return fmt.Errorf("%w: %s: staffing_buffer_pct must be >= 0", ErrInvalidScenario, s.Name)
	case !(s.ShrinkageDelta > -1 && s.ShrinkageDelta < 1):
		return fmt.Errorf("%w: %s: shrinkage_delta must be in (-1,1)", ErrInvalidScenario, s.Name)
	}
	return nil
}

// EffectiveShrinkage clamps base+delta into [0, MaxShrinkage].
func (s Scenario) EffectiveShrinkage(base float64) float64 {
	v := base + s.ShrinkageDelta
	if v < 0 {
		return 0
	}
	if v > MaxShrinkage {
		return MaxShrinkage
	}
	return v
}

// ScenarioSet is an ordered, name-unique collection of scenarios that always
// contains the baseline.
type ScenarioSet []Scenario

// NewScenarioSet validates scenarios, rejects duplicate names, and prepends
// the baseline when none named "baseline" was supplied.
func NewScenarioSet(scenarios []Scenario) (ScenarioSet, error) {
	seen := make(map[string]struct{}, len(scenarios)+1)
	out := make(ScenarioSet, 0, len(scenarios)+1)
	hasBaseline := false
	for _, s := range scenarios {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidScenario, s.Name)
		}
		seen[s.Name] = struct{}{}
		if s.Name == BaselineName {
			if !s.IsIdentity() {
				return nil, fmt.Errorf("%w: %q must be the identity (1, 0, 1, 0)", ErrInvalidScenario, BaselineName)
			}
			hasBaseline = true
		}
		out = append(out, s)
	}
	if !hasBaseline {
		out = append(ScenarioSet{Baseline()}, out...)
	}
	return out, nil
}

// DefaultScenarios returns the stock what-if set.
func DefaultScenarios() []Scenario {
	return []Scenario{
		Baseline(),
		{Name: "hi_demand", Label: "High demand (+10%)", DemandMultiplier: 1.10, WageMultiplier: 1, StaffingBufferPct: 0.08},
		{Name: "lo_demand", Label: "Low demand (-10%)", DemandMultiplier: 0.90, WageMultiplier: 1, StaffingBufferPct: 0.08},
		{Name: "hi_shrink", Label: "Shrinkage up (+5pp)", DemandMultiplier: 1, ShrinkageDelta: 0.05, WageMultiplier: 1, StaffingBufferPct: 0.08},
		{Name: "lo_shrink", Label: "Shrinkage down (-5pp)", DemandMultiplier: 1, ShrinkageDelta: -0.05, WageMultiplier: 1, StaffingBufferPct: 0.08},
		{Name: "wage_up", Label: "Wage up (+10%)", DemandMultiplier: 1, WageMultiplier: 1.10, StaffingBufferPct: 0.08},
		{Name: "aggressive", Label: "Aggressive service (buffer 20%)", DemandMultiplier: 1, WageMultiplier: 1, StaffingBufferPct: 0.20},
	}
}
