package stimulus

import (
	"math/rand/v2"
	"slices"
)

// DistractorStream produces the distractor symbols for each frame of a trial.
type DistractorStream struct {
	rng      *rand.Rand
	alphabet []string
	history  [][]string // history[frame][position]
}

// NewDistractorStream returns a stream drawing from the distinct symbols of alphabet.
func NewDistractorStream(rng *rand.Rand, alphabet []string) *DistractorStream {
	return &DistractorStream{rng: rng, alphabet: distinctStrings(alphabet)}
}

// NextFrame draws one symbol per position. Symbols within a frame are distinct, and a
// position never shows the symbol it showed in the previous frame.
func (d *DistractorStream) NextFrame(positionCount int) ([]string, error) {
	if positionCount > len(d.alphabet) {
		return nil, &PoolExhaustedError{Positions: positionCount, Available: len(d.alphabet), Position: -1}
	}

	var previous []string
	if n := len(d.history); n > 0 {
		previous = d.history[n-1]
	}

	pool := slices.Clone(d.alphabet)
	frame := make([]string, positionCount)
	eligible := make([]int, 0, len(pool))
	for i := range frame {
		eligible = eligible[:0]
		for j, s := range pool {
			if i < len(previous) && s == previous[i] {
				continue
			}
			eligible = append(eligible, j)
		}
		if len(eligible) == 0 {
			return nil, &PoolExhaustedError{Positions: positionCount, Available: len(d.alphabet), Position: i}
		}

		j := eligible[d.rng.IntN(len(eligible))]
		frame[i] = pool[j]
		pool = slices.Delete(pool, j, j+1)
	}

	d.history = append(d.history, frame)
	return slices.Clone(frame), nil
}

// Reset forgets all previous frames.
func (d *DistractorStream) Reset() {
	d.history = d.history[:0]
}

// Frames is the number of frames drawn since the last reset.
func (d *DistractorStream) Frames() int { return len(d.history) }

// Shown returns the distractor drawn for a position in a frame (0-based).
func (d *DistractorStream) Shown(frame, position int) (string, bool) {
	if frame < 0 || frame >= len(d.history) || position < 0 || position >= len(d.history[frame]) {
		return "", false
	}
	return d.history[frame][position], true
}

// AlphabetSize is the number of distinct symbols available.
func (d *DistractorStream) AlphabetSize() int { return len(d.alphabet) }

func distinctStrings(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
