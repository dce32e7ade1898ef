// Package stimulus draws the targets, target frames, target positions and distractor
// symbols for attentional blink trials.
package stimulus

import (
	"fmt"
	"math/rand/v2"
	"slices"
)

// maxFrameRedraws caps how often PickFrames redraws a lag that is already in the
// history. Past the cap the history is dropped and the current draw accepted.
const maxFrameRedraws = 1000

// FrameWindow bounds where the two targets may appear in the stream.
type FrameWindow struct {
	FirstMin int // earliest frame for T1
	FirstMax int // latest frame for T1
	Last     int // T2 is clamped to this frame
	LagMin   int
	LagMax   int
}

// DefaultFrameWindow is T1 in frames 10-24, a lag of 1-6 frames and T2 no later than 25.
var DefaultFrameWindow = FrameWindow{FirstMin: 10, FirstMax: 24, Last: 25, LagMin: 1, LagMax: 6}

// Validate checks the window is usable with a stream of framesMax frames.
func (w FrameWindow) Validate(framesMax int) error {
	switch {
	case w.FirstMin < 1:
		return fmt.Errorf("first target frame must be at least 1, got %d", w.FirstMin)
	case w.FirstMax < w.FirstMin:
		return fmt.Errorf("first target window [%d,%d] is empty", w.FirstMin, w.FirstMax)
	case w.LagMin < 1 || w.LagMax < w.LagMin:
		return fmt.Errorf("lag range [%d,%d] is invalid", w.LagMin, w.LagMax)
	case w.Last <= w.FirstMax:
		return fmt.Errorf("last target frame %d leaves no room after first window end %d", w.Last, w.FirstMax)
	case w.Last > framesMax:
		return fmt.Errorf("last target frame %d is beyond the %d frames of a trial", w.Last, framesMax)
	}
	return nil
}

// FramePair is where the two targets appear. Lag is the recorded frame difference,
// which is smaller than DrawnLag when T2 was clamped to the last target frame.
type FramePair struct {
	FrameT1  int
	FrameT2  int
	Lag      int
	DrawnLag int
}

// ResolveFrames places T2 lag frames after T1, clamped to last.
func ResolveFrames(frameT1, lag, last int) FramePair {
	frameT2 := min(frameT1+lag, last)
	return FramePair{
		FrameT1:  frameT1,
		FrameT2:  frameT2,
		Lag:      frameT2 - frameT1,
		DrawnLag: lag,
	}
}

// TargetPicker chooses targets, their frames and the T2 position offset. The lag and
// offset histories persist across trials.
type TargetPicker struct {
	rng     *rand.Rand
	window  FrameWindow
	lags    *History
	offsets *History
}

// NewTargetPicker returns a picker drawing from rng. The lag history holds one slot per
// possible lag.
func NewTargetPicker(rng *rand.Rand, window FrameWindow) *TargetPicker {
	return &TargetPicker{
		rng:     rng,
		window:  window,
		lags:    NewHistory(window.LagMax - window.LagMin + 1),
		offsets: NewHistory(0),
	}
}

// PickTargets draws two different values from pool.
func (p *TargetPicker) PickTargets(pool []int) (int, int, error) {
	remaining := distinctInts(pool)
	if len(remaining) < 2 {
		return 0, 0, &InsufficientPoolError{Pool: "target", Size: len(remaining), Need: 2}
	}

	i := p.rng.IntN(len(remaining))
	t1 := remaining[i]
	remaining = slices.Delete(remaining, i, i+1)
	t2 := remaining[p.rng.IntN(len(remaining))]
	return t1, t2, nil
}

// PickFrames draws the frames for T1 and T2. A recorded lag already in the history is
// redrawn, so lags cycle through all values before one repeats.
func (p *TargetPicker) PickFrames() FramePair {
	if p.lags.Full() {
		p.lags.Reset()
	}

	w := p.window
	for attempt := 0; ; attempt++ {
		frameT1 := w.FirstMin + p.rng.IntN(w.FirstMax-w.FirstMin+1)
		lag := w.LagMin + p.rng.IntN(w.LagMax-w.LagMin+1)
		pair := ResolveFrames(frameT1, lag, w.Last)

		if p.lags.Contains(pair.Lag) {
			if attempt < maxFrameRedraws {
				continue
			}
			// Only lags already seen are reachable in this window.
			p.lags.Reset()
		}
		p.lags.Add(pair.Lag)
		return pair
	}
}

// PickPositionOffset draws how many positions T2 sits after T1. The draw covers
// [0, numPositions] inclusive and repeats are allowed; the history only records offsets.
func (p *TargetPicker) PickPositionOffset(numPositions int) int {
	if p.offsets.Capacity() != numPositions {
		p.offsets = NewHistory(numPositions)
	}
	if p.offsets.Full() {
		p.offsets.Reset()
	}

	offset := p.rng.IntN(numPositions + 1)
	p.offsets.Add(offset)
	return offset
}

// ResetOffsets forgets the recorded position offsets.
func (p *TargetPicker) ResetOffsets() {
	p.offsets.Reset()
}

// LagHistory returns the lags recorded since the history was last cleared.
func (p *TargetPicker) LagHistory() []int { return p.lags.Values() }

// OffsetHistory returns the offsets recorded since the history was last cleared.
func (p *TargetPicker) OffsetHistory() []int { return p.offsets.Values() }

func distinctInts(pool []int) []int {
	out := make([]int, 0, len(pool))
	for _, v := range pool {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
