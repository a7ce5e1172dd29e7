// Package evaluate scores a finished installation run into a tiered
// readiness level.
package evaluate

// Level is the tiered readiness classification of an installation
type Level string

const (
	// LevelFull means the machine is demo-ready with acceleration (score >= 90)
	LevelFull Level = "Full"
	// LevelStandard means the demo runs with minor capabilities missing (score >= 70)
	LevelStandard Level = "Standard"
	// LevelMinimal means a degraded but functional setup (score >= 50)
	LevelMinimal Level = "Minimal"
	// LevelFailed means the machine is not usable for the demo (score < 50)
	LevelFailed Level = "Failed"
)

// Component names scored by the default weighting
const (
	ComponentRuntime      = "runtime"
	ComponentEnvironment  = "environment"
	ComponentAcceleration = "acceleration"
	ComponentModels       = "models"
	ComponentPackages     = "packages"
	ComponentPerfTest     = "perftest"
)

// DefaultWeights returns the standard component weighting. Weights sum
// to 100 so the score reads as a percentage.
func DefaultWeights() map[string]int {
	return map[string]int{
		ComponentRuntime:      20,
		ComponentEnvironment:  15,
		ComponentAcceleration: 20,
		ComponentModels:       25,
		ComponentPackages:     15,
		ComponentPerfTest:     5,
	}
}

// Result is the outcome of scoring a run. It is computed once at
// pipeline end and never mutated afterwards.
type Result struct {
	Score      int             `json:"score"`
	Level      Level           `json:"level"`
	Components map[string]bool `json:"components"`
}

// Evaluate computes the weighted score of the passing components and
// classifies it. Pure function; the caller persists the result.
func Evaluate(checks map[string]bool, weights map[string]int) Result {
	score := 0
	components := make(map[string]bool, len(checks))
	for name, passed := range checks {
		components[name] = passed
		if passed {
			score += weights[name]
		}
	}

	return Result{
		Score:      score,
		Level:      classify(score),
		Components: components,
	}
}

func classify(score int) Level {
	switch {
	case score >= 90:
		return LevelFull
	case score >= 70:
		return LevelStandard
	case score >= 50:
		return LevelMinimal
	default:
		return LevelFailed
	}
}
