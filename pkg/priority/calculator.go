// Package priority computes explainable 0-100 urgency scores for commitments
package priority

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Factor names, also the keys of PriorityResult.FactorScores
const (
	FactorTimePressure   = "time_pressure"
	FactorSeverity       = "severity"
	FactorAmount         = "amount"
	FactorEffort         = "effort"
	FactorDependency     = "dependency"
	FactorUserPreference = "user_preference"
)

// factorOrder fixes the order factor explanations are joined in
var factorOrder = []string{
	FactorTimePressure,
	FactorSeverity,
	FactorAmount,
	FactorEffort,
	FactorDependency,
	FactorUserPreference,
}

// ErrInvalidWeights is returned when the configured weights do not sum to 1.0
var ErrInvalidWeights = errors.New("priority factor weights must sum to 1.0")

const weightEpsilon = 1e-6

// Weights are the relative contributions of each factor. They must sum to 1.0.
type Weights struct {
	TimePressure   float64 `json:"time_pressure"`
	Severity       float64 `json:"severity"`
	Amount         float64 `json:"amount"`
	Effort         float64 `json:"effort"`
	Dependency     float64 `json:"dependency"`
	UserPreference float64 `json:"user_preference"`
}

// DefaultWeights returns the documented default weight table
func DefaultWeights() Weights {
	return Weights{
		TimePressure:   0.30,
		Severity:       0.25,
		Amount:         0.15,
		Effort:         0.15,
		Dependency:     0.10,
		UserPreference: 0.05,
	}
}

// Validate checks the weights sum to 1.0 within a small epsilon
func (w Weights) Validate() error {
	sum := w.TimePressure + w.Severity + w.Amount + w.Effort + w.Dependency + w.UserPreference
	if math.Abs(sum-1.0) > weightEpsilon {
		return fmt.Errorf("%w: got %.4f", ErrInvalidWeights, sum)
	}
	return nil
}

func (w Weights) byFactor() map[string]float64 {
	return map[string]float64{
		FactorTimePressure:   w.TimePressure,
		FactorSeverity:       w.Severity,
		FactorAmount:         w.Amount,
		FactorEffort:         w.Effort,
		FactorDependency:     w.Dependency,
		FactorUserPreference: w.UserPreference,
	}
}

// Input carries the heterogeneous signals for one commitment. Optional
// signals are pointers; absent signals score zero rather than erroring.
type Input struct {
	DueDate       *time.Time
	Amount        *float64
	Severity      *float64
	Domain        string
	EffortHours   *float64
	IsBlocked     bool
	BlocksCount   int
	UserBoost     bool
	ReferenceDate *time.Time
}

// PriorityResult is the combined score with its per-factor breakdown
type PriorityResult struct {
	Score        int                `json:"score"`
	Reason       string             `json:"reason"`
	FactorScores map[string]float64 `json:"factor_scores"`
	Metadata     map[string]any     `json:"metadata,omitempty"`
}

// Calculator combines the six factor scores using configured weights. It is
// pure and safe for concurrent use.
type Calculator struct {
	weights Weights
}

// NewCalculator creates a Calculator, validating the weight table
func NewCalculator(weights Weights) (*Calculator, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{weights: weights}, nil
}

// Calculate computes the weighted priority score. It always succeeds: missing
// signals contribute zero or neutral scores.
func (c *Calculator) Calculate(input Input) *PriorityResult {
	reference := time.Now().UTC()
	if input.ReferenceDate != nil {
		reference = *input.ReferenceDate
	}

	factors := map[string]FactorResult{
		FactorTimePressure:   timePressureFactor(input.DueDate, reference),
		FactorSeverity:       severityFactor(input.Severity, input.Domain),
		FactorAmount:         amountFactor(input.Amount),
		FactorEffort:         effortFactor(input.EffortHours),
		FactorDependency:     dependencyFactor(input.IsBlocked, input.BlocksCount),
		FactorUserPreference: userPreferenceFactor(input.UserBoost),
	}

	weights := c.weights.byFactor()

	var total float64
	scores := make(map[string]float64, len(factors))
	metadata := make(map[string]any)
	reasons := make([]string, 0, len(factorOrder))

	for _, name := range factorOrder {
		factor := factors[name]
		total += factor.Score * weights[name]
		scores[name] = factor.Score
		if factor.Explanation != "" {
			reasons = append(reasons, factor.Explanation)
		}
		if len(factor.Metadata) > 0 {
			metadata[name] = factor.Metadata
		}
	}

	reason := strings.Join(reasons, ", ")
	if reason == "" {
		reason = "No priority factors"
	}

	score := int(math.Round(total))
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return &PriorityResult{
		Score:        score,
		Reason:       reason,
		FactorScores: scores,
		Metadata:     metadata,
	}
}

// Weights returns the configured weight table
func (c *Calculator) Weights() Weights {
	return c.weights
}
