package memory

import "fmt"

// Default retention policy: start at 95, relax by 5 after two consecutive
// confirmations, never below 85 or above 95.
const (
	DefaultInitial       = 95.0
	DefaultFloor         = 85.0
	DefaultCeiling       = 95.0
	DefaultStep          = 5.0
	DefaultConfirmations = 2
)

// Policy is the explicit threshold-adjustment rule.
type Policy struct {
	// Initial is the threshold of a fresh manager.
	Initial float64 `koanf:"initial" yaml:"initial"`

	// Floor is the lowest value relaxation may reach.
	Floor float64 `koanf:"floor" yaml:"floor"`

	// Ceiling is the highest value tightening may reach.
	Ceiling float64 `koanf:"ceiling" yaml:"ceiling"`

	// Step is the amount moved by one relaxation or tightening.
	Step float64 `koanf:"step" yaml:"step"`

	// Confirmations is the number of consecutive confirming outcomes
	// needed before the threshold relaxes by one step.
	Confirmations int `koanf:"confirmations" yaml:"confirmations"`
}

// DefaultPolicy returns the documented default trajectory 95 -> 90 -> 85.
func DefaultPolicy() Policy {
	return Policy{
		Initial:       DefaultInitial,
		Floor:         DefaultFloor,
		Ceiling:       DefaultCeiling,
		Step:          DefaultStep,
		Confirmations: DefaultConfirmations,
	}
}

// Validate checks 0 <= floor <= initial <= ceiling <= 100, step > 0 and
// confirmations >= 1.
func (p Policy) Validate() error {
	if p.Floor < 0 || p.Ceiling > 100 {
		return fmt.Errorf("memory policy: floor %v and ceiling %v must lie in [0,100]", p.Floor, p.Ceiling)
	}
	if p.Floor > p.Ceiling {
		return fmt.Errorf("memory policy: floor %v above ceiling %v", p.Floor, p.Ceiling)
	}
	if p.Initial < p.Floor || p.Initial > p.Ceiling {
		return fmt.Errorf("memory policy: initial %v outside [%v,%v]", p.Initial, p.Floor, p.Ceiling)
	}
	if p.Step <= 0 {
		return fmt.Errorf("memory policy: step must be positive, got %v", p.Step)
	}
	if p.Confirmations < 1 {
		return fmt.Errorf("memory policy: confirmations must be at least 1, got %d", p.Confirmations)
	}
	return nil
}
