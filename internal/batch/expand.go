// Package batch expands jobs into tasks and runs them in bounded chunks.
package batch

import "studio/internal/domain"

// DefaultAxisValue stands in for an axis with no selections so that zero
// selections still yield one task.
const DefaultAxisValue = "default"

// Expand returns the cartesian product of axes. The rightmost axis varies
// fastest and ordinals follow that order.
func Expand(axes []domain.Axis) []domain.Combination {
	values := make([][]string, len(axes))
	total := 1
	for i, axis := range axes {
		values[i] = axis.Values
		if len(values[i]) == 0 {
			values[i] = []string{DefaultAxisValue}
		}
		total *= len(values[i])
	}

	out := make([]domain.Combination, total)
	for ordinal := range out {
		combo := domain.Combination{Ordinal: ordinal, Values: make(map[string]string, len(axes))}
		rest := ordinal
		for i := len(axes) - 1; i >= 0; i-- {
			n := len(values[i])
			combo.Values[axes[i].Name] = values[i][rest%n]
			rest /= n
		}
		out[ordinal] = combo
	}
	return out
}
