package answer

import (
	"math"

	"github.com/hybriq/hybriq/pkg/models"
)

// Confidence computes the heuristic confidence score for a completed
// workflow: start at 0.5, add 0.3 for a successful execution with rows,
// add the average retrieval score weighted by 0.2, subtract 0.1 per repair
// attempt, clamp to [0, 1] and round to two decimals.
//
// This is a heuristic signal, not a calibrated probability. The formula
// has no tested accuracy basis; it is preserved for behavioral
// compatibility with the original scoring.
func Confidence(state *models.WorkflowState) float64 {
	confidence := 0.5

	if state.SQLResults.HasRows() {
		confidence += 0.3
	}

	if len(state.Retrieved) > 0 {
		total := 0.0
		for _, doc := range state.Retrieved {
			total += doc.Score
		}

		confidence += total / float64(len(state.Retrieved)) * 0.2
	}

	confidence -= 0.1 * float64(state.RepairCount)

	confidence = math.Max(0, math.Min(1, confidence))

	return math.Round(confidence*100) / 100
}
