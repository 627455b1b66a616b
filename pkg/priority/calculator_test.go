package priority

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func mustCalculator(t *testing.T) *Calculator {
	t.Helper()
	calc, err := NewCalculator(DefaultWeights())
	require.NoError(t, err)
	return calc
}

func TestWeights_Validate(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, DefaultWeights().Validate())
	})

	t.Run("weights not summing to one", func(t *testing.T) {
		w := DefaultWeights()
		w.TimePressure = 0.50
		err := w.Validate()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidWeights)
	})

	t.Run("zero weights", func(t *testing.T) {
		assert.ErrorIs(t, Weights{}.Validate(), ErrInvalidWeights)
	})
}

func TestNewCalculator(t *testing.T) {
	_, err := NewCalculator(Weights{TimePressure: 1.0})
	assert.NoError(t, err)

	_, err = NewCalculator(Weights{TimePressure: 0.9})
	assert.ErrorIs(t, err, ErrInvalidWeights)
}

func TestCalculate_NoInputs(t *testing.T) {
	calc := mustCalculator(t)

	result := calc.Calculate(Input{})

	// only the default-severity factor contributes: 50 * 0.25 = 12.5
	assert.Equal(t, 13, result.Score)
	assert.Equal(t, "default severity", result.Reason)
	assert.Equal(t, 50.0, result.FactorScores[FactorSeverity])
	assert.Equal(t, 0.0, result.FactorScores[FactorTimePressure])
	assert.Equal(t, 0.0, result.FactorScores[FactorAmount])
	assert.Equal(t, 0.0, result.FactorScores[FactorEffort])
	assert.Equal(t, 0.0, result.FactorScores[FactorDependency])
	assert.Equal(t, 0.0, result.FactorScores[FactorUserPreference])
}

func TestCalculate_InvoiceDueSoon(t *testing.T) {
	calc := mustCalculator(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	result := calc.Calculate(Input{
		DueDate:       timePtr(now.Add(48 * time.Hour)),
		Amount:        floatPtr(12419.83),
		Domain:        "finance",
		EffortHours:   floatPtr(0.5),
		ReferenceDate: timePtr(now),
	})

	assert.GreaterOrEqual(t, result.Score, 70)
	assert.Contains(t, result.Reason, "due in 2 days")
	assert.Contains(t, result.Reason, "$12,419.83")
	assert.Contains(t, result.Reason, "finance domain severity")

	// sub-hour effort is a quick win and pins at 100
	assert.Equal(t, 100.0, result.FactorScores[FactorEffort])
}

func TestCalculate_ScoreBounds(t *testing.T) {
	calc := mustCalculator(t)
	now := time.Now().UTC()

	t.Run("everything maxed stays at 100", func(t *testing.T) {
		result := calc.Calculate(Input{
			DueDate:       timePtr(now.Add(-30 * 24 * time.Hour)),
			Amount:        floatPtr(10_000_000),
			Severity:      floatPtr(500),
			EffortHours:   floatPtr(0.1),
			BlocksCount:   4,
			UserBoost:     true,
			ReferenceDate: timePtr(now),
		})
		assert.Equal(t, 100, result.Score)
	})

	t.Run("nothing scores below zero", func(t *testing.T) {
		result := calc.Calculate(Input{
			Severity:      floatPtr(-50),
			Amount:        floatPtr(-100),
			IsBlocked:     true,
			ReferenceDate: timePtr(now),
		})
		assert.GreaterOrEqual(t, result.Score, 0)
	})
}

func TestCalculate_TimePressure(t *testing.T) {
	calc := mustCalculator(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	at := func(days int) *PriorityResult {
		return calc.Calculate(Input{
			DueDate:       timePtr(now.Add(time.Duration(days) * 24 * time.Hour)),
			ReferenceDate: timePtr(now),
		})
	}

	t.Run("closer deadlines never score lower", func(t *testing.T) {
		prev := at(90)
		for _, days := range []int{60, 30, 14, 7, 2, 1, 0} {
			cur := at(days)
			assert.GreaterOrEqual(t, cur.FactorScores[FactorTimePressure], prev.FactorScores[FactorTimePressure],
				"due in %d days should not rank below a later deadline", days)
			prev = cur
		}
	})

	t.Run("overdue pins at 100", func(t *testing.T) {
		result := calc.Calculate(Input{
			DueDate:       timePtr(now.Add(-5 * 24 * time.Hour)),
			ReferenceDate: timePtr(now),
		})
		assert.Equal(t, 100.0, result.FactorScores[FactorTimePressure])
		assert.Contains(t, result.Reason, "overdue by 5 days")
	})

	t.Run("relative-date phrasing", func(t *testing.T) {
		assert.Contains(t, at(0).Reason, "due today")
		assert.Contains(t, at(1).Reason, "due in 1 day")
		assert.Contains(t, at(14).Reason, "due in 14 days")
	})
}

func TestCalculate_Severity(t *testing.T) {
	calc := mustCalculator(t)

	t.Run("manual severity overrides domain", func(t *testing.T) {
		result := calc.Calculate(Input{Severity: floatPtr(95), Domain: "personal"})
		assert.Equal(t, 95.0, result.FactorScores[FactorSeverity])
		assert.Contains(t, result.Reason, "severity 95")
	})

	t.Run("domain severity table", func(t *testing.T) {
		tests := []struct {
			domain   string
			expected float64
		}{
			{"legal", 100},
			{"compliance", 100},
			{"health", 90},
			{"finance", 80},
			{"personal", 10},
		}
		for _, tt := range tests {
			result := calc.Calculate(Input{Domain: tt.domain})
			assert.Equal(t, tt.expected, result.FactorScores[FactorSeverity], "domain %s", tt.domain)
		}
	})

	t.Run("domain lookup is case-insensitive", func(t *testing.T) {
		result := calc.Calculate(Input{Domain: "Legal"})
		assert.Equal(t, 100.0, result.FactorScores[FactorSeverity])
	})

	t.Run("unknown domain falls back to default", func(t *testing.T) {
		result := calc.Calculate(Input{Domain: "astrology"})
		assert.Equal(t, 50.0, result.FactorScores[FactorSeverity])
		assert.Contains(t, result.Reason, "default severity")
	})
}

func TestCalculate_Amount(t *testing.T) {
	calc := mustCalculator(t)

	t.Run("log scale", func(t *testing.T) {
		small := calc.Calculate(Input{Amount: floatPtr(10)})
		medium := calc.Calculate(Input{Amount: floatPtr(1000)})
		large := calc.Calculate(Input{Amount: floatPtr(100000)})

		assert.InDelta(t, 20, small.FactorScores[FactorAmount], 0.01)
		assert.InDelta(t, 60, medium.FactorScores[FactorAmount], 0.01)
		assert.InDelta(t, 100, large.FactorScores[FactorAmount], 0.01)
	})

	t.Run("zero and negative amounts are ignored", func(t *testing.T) {
		assert.Equal(t, 0.0, calc.Calculate(Input{Amount: floatPtr(0)}).FactorScores[FactorAmount])
		assert.Equal(t, 0.0, calc.Calculate(Input{Amount: floatPtr(-5)}).FactorScores[FactorAmount])
	})

	t.Run("formatted with separators", func(t *testing.T) {
		result := calc.Calculate(Input{Amount: floatPtr(1234567.5)})
		assert.Contains(t, result.Reason, "$1,234,567.50")
	})
}

func TestCalculate_Effort(t *testing.T) {
	calc := mustCalculator(t)

	t.Run("quick wins outrank long slogs", func(t *testing.T) {
		quick := calc.Calculate(Input{EffortHours: floatPtr(0.5)})
		slog := calc.Calculate(Input{EffortHours: floatPtr(40)})
		assert.Greater(t, quick.FactorScores[FactorEffort], slog.FactorScores[FactorEffort])
	})

	t.Run("one hour is the midpoint boundary", func(t *testing.T) {
		result := calc.Calculate(Input{EffortHours: floatPtr(1)})
		assert.InDelta(t, 100, result.FactorScores[FactorEffort], 0.01)
		assert.Contains(t, result.Reason, "estimated effort 1h")
	})

	t.Run("zero hours is treated as unknown", func(t *testing.T) {
		result := calc.Calculate(Input{EffortHours: floatPtr(0)})
		assert.Equal(t, 50.0, result.FactorScores[FactorEffort])
		assert.Contains(t, result.Reason, "effort unknown")
	})
}

func TestCalculate_Dependency(t *testing.T) {
	calc := mustCalculator(t)

	t.Run("blocking work scores 100", func(t *testing.T) {
		result := calc.Calculate(Input{BlocksCount: 3})
		assert.Equal(t, 100.0, result.FactorScores[FactorDependency])
		assert.Contains(t, result.Reason, "blocks 3 other commitments")
	})

	t.Run("singular phrasing", func(t *testing.T) {
		result := calc.Calculate(Input{BlocksCount: 1})
		assert.Contains(t, result.Reason, "blocks 1 other commitment")
	})

	t.Run("blocked work scores 0", func(t *testing.T) {
		result := calc.Calculate(Input{IsBlocked: true})
		assert.Equal(t, 0.0, result.FactorScores[FactorDependency])
		assert.Contains(t, result.Reason, "blocked by another commitment")
	})

	t.Run("blocking outranks blocked when both are set", func(t *testing.T) {
		result := calc.Calculate(Input{IsBlocked: true, BlocksCount: 2})
		assert.Equal(t, 100.0, result.FactorScores[FactorDependency])
	})
}

func TestCalculate_UserBoost(t *testing.T) {
	calc := mustCalculator(t)

	boosted := calc.Calculate(Input{UserBoost: true})
	plain := calc.Calculate(Input{})

	assert.Equal(t, 100.0, boosted.FactorScores[FactorUserPreference])
	assert.Contains(t, boosted.Reason, "boosted by user")
	assert.Greater(t, boosted.Score, plain.Score)
}

func TestCalculate_ReasonOrdering(t *testing.T) {
	calc := mustCalculator(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	result := calc.Calculate(Input{
		DueDate:       timePtr(now.Add(24 * time.Hour)),
		Amount:        floatPtr(100),
		Domain:        "finance",
		UserBoost:     true,
		ReferenceDate: timePtr(now),
	})

	// explanations join in fixed factor order
	assert.Equal(t, "due in 1 day, finance domain severity, amount $100.00, boosted by user", result.Reason)
}
