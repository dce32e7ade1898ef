package stimulus

import "fmt"

// InsufficientPoolError reports a target or distractor pool that cannot supply the
// distinct draws a trial needs.
type InsufficientPoolError struct {
	Pool string
	Size int
	Need int
}

func (e *InsufficientPoolError) Error() string {
	return fmt.Sprintf("%s pool has %d distinct values, need at least %d", e.Pool, e.Size, e.Need)
}

// PoolExhaustedError reports a frame whose positions could not all receive a distinct,
// non-repeating symbol.
type PoolExhaustedError struct {
	Positions int
	Available int
	Position  int
}

func (e *PoolExhaustedError) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("no eligible distractor left for position %d of %d (alphabet size %d)",
			e.Position, e.Positions, e.Available)
	}
	return fmt.Sprintf("frame needs %d distinct distractors but the alphabet has %d", e.Positions, e.Available)
}

// CheckPools verifies the target pool allows two distinct targets and the distractor
// alphabet has one symbol more than there are streams, which is what guarantees a
// frame can always avoid repeating the previous frame at every position.
func CheckPools(targets []int, distractors []string, streams int) error {
	if n := len(distinctInts(targets)); n < 2 {
		return &InsufficientPoolError{Pool: "target", Size: n, Need: 2}
	}
	if n, need := len(distinctStrings(distractors)), streams+1; n < need {
		return &InsufficientPoolError{Pool: "distractor", Size: n, Need: need}
	}
	return nil
}
