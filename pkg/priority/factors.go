package priority

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// FactorResult is one independently-computed priority signal. Explanation may
// be empty when the factor does not apply.
type FactorResult struct {
	Score       float64        `json:"score"`
	Explanation string         `json:"explanation"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// domainSeverity maps commitment domains to a default severity score
var domainSeverity = map[string]float64{
	"legal":       100,
	"compliance":  100,
	"health":      90,
	"finance":     80,
	"customer":    60,
	"internal":    50,
	"maintenance": 40,
	"enhancement": 30,
	"research":    20,
	"personal":    10,
}

const defaultSeverity = 50.0

// timePressureFactor scores deadline urgency with exponential decay: due now
// scores 100, 30 days out scores ~37, overdue pins at 100.
func timePressureFactor(dueDate *time.Time, reference time.Time) FactorResult {
	if dueDate == nil {
		return FactorResult{}
	}

	days := dueDate.Sub(reference).Hours() / 24
	if days < 0 {
		overdue := int(math.Ceil(-days))
		return FactorResult{
			Score:       100,
			Explanation: fmt.Sprintf("overdue by %d days", overdue),
			Metadata:    map[string]any{"days_until_due": days},
		}
	}

	score := clamp(100 * math.Exp(-days/30))

	wholeDays := int(math.Round(days))
	var explanation string
	switch {
	case wholeDays == 0:
		explanation = "due today"
	case wholeDays == 1:
		explanation = "due in 1 day"
	default:
		explanation = fmt.Sprintf("due in %d days", wholeDays)
	}

	return FactorResult{
		Score:       score,
		Explanation: explanation,
		Metadata:    map[string]any{"days_until_due": days},
	}
}

// severityFactor prefers a manual severity, falls back to the domain table,
// and defaults to neutral 50
func severityFactor(severity *float64, domain string) FactorResult {
	if severity != nil {
		score := clamp(*severity)
		return FactorResult{
			Score:       score,
			Explanation: fmt.Sprintf("severity %d", int(math.Round(score))),
		}
	}

	if domain != "" {
		if score, ok := domainSeverity[strings.ToLower(domain)]; ok {
			return FactorResult{
				Score:       score,
				Explanation: fmt.Sprintf("%s domain severity", strings.ToLower(domain)),
				Metadata:    map[string]any{"domain": strings.ToLower(domain)},
			}
		}
	}

	return FactorResult{
		Score:       defaultSeverity,
		Explanation: "default severity",
	}
}

// amountFactor scores monetary stakes on a log scale: $10 ~ 20, $1,000 ~ 60,
// $100,000 pins at 100
func amountFactor(amount *float64) FactorResult {
	if amount == nil || *amount <= 0 {
		return FactorResult{}
	}

	score := clamp(100 * math.Log10(*amount) / 5)
	return FactorResult{
		Score:       score,
		Explanation: fmt.Sprintf("amount %s", formatMoney(*amount)),
		Metadata:    map[string]any{"amount": *amount},
	}
}

// effortFactor scores inverse effort: quick wins rank higher. Hours at or
// below zero are treated as unknown and score neutral.
func effortFactor(effortHours *float64) FactorResult {
	if effortHours == nil {
		return FactorResult{}
	}
	if *effortHours <= 0 {
		return FactorResult{
			Score:       50,
			Explanation: "effort unknown",
		}
	}

	hours := math.Max(*effortHours, 0.1)
	score := clamp(100 * (1 - math.Log10(hours)/2))
	return FactorResult{
		Score:       score,
		Explanation: fmt.Sprintf("estimated effort %sh", trimFloat(*effortHours)),
		Metadata:    map[string]any{"effort_hours": *effortHours},
	}
}

// dependencyFactor gives unblocking work precedence: a commitment that blocks
// others outranks one that is itself blocked
func dependencyFactor(isBlocked bool, blocksCount int) FactorResult {
	if blocksCount > 0 {
		noun := "commitments"
		if blocksCount == 1 {
			noun = "commitment"
		}
		return FactorResult{
			Score:       100,
			Explanation: fmt.Sprintf("blocks %d other %s", blocksCount, noun),
			Metadata:    map[string]any{"blocks_count": blocksCount},
		}
	}
	if isBlocked {
		return FactorResult{
			Score:       0,
			Explanation: "blocked by another commitment",
		}
	}
	return FactorResult{}
}

// userPreferenceFactor reflects an explicit user boost
func userPreferenceFactor(boosted bool) FactorResult {
	if boosted {
		return FactorResult{
			Score:       100,
			Explanation: "boosted by user",
		}
	}
	return FactorResult{}
}

func clamp(score float64) float64 {
	return math.Min(100, math.Max(0, score))
}

// formatMoney renders a dollar amount with thousands separators, e.g.
// "$12,419.83"
func formatMoney(amount float64) string {
	s := fmt.Sprintf("%.2f", amount)

	parts := strings.SplitN(s, ".", 2)
	intPart := parts[0]

	negative := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var grouped strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("%s$%s.%s", sign, grouped.String(), parts[1])
}

// trimFloat renders hours without trailing zeros: 0.5 -> "0.5", 2 -> "2"
func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
