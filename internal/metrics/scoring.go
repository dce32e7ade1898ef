package metrics

import (
	"fmt"
	"strconv"

	"attblink/internal/geometry"
)

// Score compares each response with the target in the same slot. Response 1 is only
// ever checked against T1 and response 2 against T2.
func Score(targets [2]int, responses [2]string) [2]bool {
	var outcomes [2]bool
	for i := range targets {
		outcomes[i] = responses[i] == strconv.Itoa(targets[i])
	}
	return outcomes
}

// Distance returns how far apart the two target positions were, in polygon steps and
// in screen units taken from the trial's distance table. Positions off the polygon or
// a table too short for the step count are an error.
func Distance(indexT1, indexT2, positionCount int, table []float64) (int, float64, error) {
	for _, idx := range [2]int{indexT1, indexT2} {
		if idx < 0 || idx >= positionCount {
			return 0, 0, fmt.Errorf("target position %d outside polygon of %d sides", idx, positionCount)
		}
	}
	steps := geometry.CircularDistance(indexT1, indexT2, positionCount)
	if steps >= len(table) {
		return steps, 0, fmt.Errorf("distance table has %d entries, need step %d", len(table), steps)
	}
	return steps, table[steps], nil
}

// TimeGap converts a frame lag into seconds.
func TimeGap(diffFrame, intervalMs int) float64 {
	return float64(diffFrame*intervalMs) / 1000
}

// Outcome is the stored form of a correctness flag.
func Outcome(correct bool) int {
	if correct {
		return 1
	}
	return 0
}
