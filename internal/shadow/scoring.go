package shadow

import (
	"fmt"

	"github.com/ppiankov/wisdomgate/internal/model"
)

// Scoring holds the tunable constants of severity and readiness.
type Scoring struct {
	BaseReadiness float64 `yaml:"base_readiness" env:"BASE_READINESS"`
	HelpSeeking   float64 `yaml:"help_seeking" env:"HELP_SEEKING"`
	Curiosity     float64 `yaml:"curiosity" env:"CURIOSITY"`
	Resistance    float64 `yaml:"resistance" env:"RESISTANCE"`
	MinReadiness  float64 `yaml:"min_readiness" env:"MIN_READINESS"`
	MaxReadiness  float64 `yaml:"max_readiness" env:"MAX_READINESS"`
	ModerateAt    int     `yaml:"moderate_at" env:"MODERATE_AT"`
	SevereAt      int     `yaml:"severe_at" env:"SEVERE_AT"`
	ComplexAt     int     `yaml:"complex_at" env:"COMPLEX_AT"`
}

// DefaultScoring returns 1 trigger mild, 2 moderate, 3 severe, 4+ complex,
// and readiness 0.5 ±adjustments clamped to [0.1, 1.0].
func DefaultScoring() Scoring {
	return Scoring{
		BaseReadiness: 0.5,
		HelpSeeking:   0.3,
		Curiosity:     0.2,
		Resistance:    0.2,
		MinReadiness:  0.1,
		MaxReadiness:  1.0,
		ModerateAt:    2,
		SevereAt:      3,
		ComplexAt:     4,
	}
}

// Validate rejects settings that would break monotonic severity or
// push readiness outside [0, 1].
func (s Scoring) Validate() error {
	if s.HelpSeeking < 0 || s.Curiosity < 0 || s.Resistance < 0 {
		return fmt.Errorf("readiness adjustments must be non-negative")
	}
	if s.MinReadiness < 0 || s.MaxReadiness > 1 || s.MinReadiness > s.MaxReadiness {
		return fmt.Errorf("readiness bounds must satisfy 0 <= min <= max <= 1, got [%v, %v]", s.MinReadiness, s.MaxReadiness)
	}
	if s.ModerateAt < 1 || s.SevereAt < s.ModerateAt || s.ComplexAt < s.SevereAt {
		return fmt.Errorf("severity thresholds must satisfy 1 <= moderate <= severe <= complex, got %d/%d/%d",
			s.ModerateAt, s.SevereAt, s.ComplexAt)
	}
	return nil
}

// SeverityFor maps a trigger count (>= 1) to a severity.
func (s Scoring) SeverityFor(count int) model.Severity {
	switch {
	case count >= s.ComplexAt:
		return model.SeverityComplex
	case count >= s.SevereAt:
		return model.SeveritySevere
	case count >= s.ModerateAt:
		return model.SeverityModerate
	default:
		return model.SeverityMild
	}
}

func (s Scoring) clamp(v float64) float64 {
	if v < s.MinReadiness {
		return s.MinReadiness
	}
	if v > s.MaxReadiness {
		return s.MaxReadiness
	}
	return v
}
