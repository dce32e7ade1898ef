package stimulus

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func TestPickTargets(t *testing.T) {
	p := NewTargetPicker(newRand(1), DefaultFrameWindow)
	pool := []int{2, 3, 4, 5, 6, 7, 8, 9}

	for i := 0; i < 500; i++ {
		t1, t2, err := p.PickTargets(pool)
		require.NoError(t, err)
		assert.NotEqual(t, t1, t2)
		assert.Contains(t, pool, t1)
		assert.Contains(t, pool, t2)
	}
	assert.Equal(t, []int{2, 3, 4, 5, 6, 7, 8, 9}, pool, "pool must not be modified")
}

func TestPickTargetsInsufficientPool(t *testing.T) {
	p := NewTargetPicker(newRand(1), DefaultFrameWindow)

	for _, pool := range [][]int{nil, {4}, {4, 4, 4}} {
		_, _, err := p.PickTargets(pool)
		var poolErr *InsufficientPoolError
		require.True(t, errors.As(err, &poolErr), "pool %v", pool)
		assert.Equal(t, 2, poolErr.Need)
		assert.Equal(t, "target", poolErr.Pool)
	}
}

func TestResolveFrames(t *testing.T) {
	t.Run("within window", func(t *testing.T) {
		pair := ResolveFrames(13, 4, 25)
		assert.Equal(t, FramePair{FrameT1: 13, FrameT2: 17, Lag: 4, DrawnLag: 4}, pair)
	})

	t.Run("clamped to last frame", func(t *testing.T) {
		pair := ResolveFrames(22, 6, 25)
		assert.Equal(t, 25, pair.FrameT2)
		assert.Equal(t, 3, pair.Lag)
		assert.Equal(t, 6, pair.DrawnLag)
	})
}

func TestPickFramesBounds(t *testing.T) {
	p := NewTargetPicker(newRand(7), DefaultFrameWindow)
	for i := 0; i < 1000; i++ {
		pair := p.PickFrames()
		assert.GreaterOrEqual(t, pair.FrameT1, 10)
		assert.LessOrEqual(t, pair.FrameT1, 24)
		assert.LessOrEqual(t, pair.FrameT2, 25)
		assert.Equal(t, pair.FrameT2-pair.FrameT1, pair.Lag)
		assert.GreaterOrEqual(t, pair.Lag, 1)
		assert.LessOrEqual(t, pair.Lag, 6)
		assert.Equal(t, min(pair.FrameT1+pair.DrawnLag, 25), pair.FrameT2)
	}
}

func TestPickFramesLagCycle(t *testing.T) {
	p := NewTargetPicker(newRand(42), DefaultFrameWindow)

	seen := map[int]bool{}
	cycles := 0
	for i := 0; i < 1000; i++ {
		if len(seen) == 6 {
			seen = map[int]bool{}
			cycles++
		}
		pair := p.PickFrames()
		require.False(t, seen[pair.Lag], "lag %d repeated before history cleared (draw %d)", pair.Lag, i)
		seen[pair.Lag] = true
		assert.LessOrEqual(t, len(p.LagHistory()), 6)
	}
	assert.Greater(t, cycles, 100)
}

func TestPickFramesTerminatesOnDegenerateWindow(t *testing.T) {
	// T1 fixed at 24 with T2 clamped to 25 leaves lag 1 as the only outcome.
	window := FrameWindow{FirstMin: 24, FirstMax: 24, Last: 25, LagMin: 1, LagMax: 6}
	p := NewTargetPicker(newRand(3), window)

	for i := 0; i < 5; i++ {
		pair := p.PickFrames()
		assert.Equal(t, 1, pair.Lag)
		assert.Equal(t, []int{1}, p.LagHistory())
	}
}

func TestPickPositionOffset(t *testing.T) {
	p := NewTargetPicker(newRand(9), DefaultFrameWindow)

	seen := map[int]bool{}
	for i := 0; i < 2000; i++ {
		offset := p.PickPositionOffset(7)
		assert.GreaterOrEqual(t, offset, 0)
		assert.LessOrEqual(t, offset, 7)
		seen[offset] = true
		assert.LessOrEqual(t, len(p.OffsetHistory()), 7)
	}
	// The inclusive upper bound gives eight outcomes for seven positions.
	assert.Len(t, seen, 8)

	p.ResetOffsets()
	assert.Empty(t, p.OffsetHistory())
}

func TestPickPositionOffsetAllowsRepeats(t *testing.T) {
	p := NewTargetPicker(newRand(11), DefaultFrameWindow)

	repeated := false
	prev := -1
	for i := 0; i < 500 && !repeated; i++ {
		offset := p.PickPositionOffset(3)
		repeated = offset == prev
		prev = offset
	}
	assert.True(t, repeated)
}

func TestFrameWindowValidate(t *testing.T) {
	assert.NoError(t, DefaultFrameWindow.Validate(30))
	assert.Error(t, DefaultFrameWindow.Validate(20))
	assert.Error(t, FrameWindow{FirstMin: 0, FirstMax: 4, Last: 6, LagMin: 1, LagMax: 2}.Validate(30))
	assert.Error(t, FrameWindow{FirstMin: 5, FirstMax: 4, Last: 6, LagMin: 1, LagMax: 2}.Validate(30))
	assert.Error(t, FrameWindow{FirstMin: 2, FirstMax: 4, Last: 6, LagMin: 3, LagMax: 2}.Validate(30))
	assert.Error(t, FrameWindow{FirstMin: 2, FirstMax: 6, Last: 6, LagMin: 1, LagMax: 2}.Validate(30))
}

func TestHistory(t *testing.T) {
	h := NewHistory(3)
	assert.False(t, h.Full())
	h.Add(1)
	h.Add(2)
	assert.True(t, h.Contains(2))
	assert.False(t, h.Contains(3))
	h.Add(3)
	assert.True(t, h.Full())
	assert.Equal(t, []int{1, 2, 3}, h.Values())
	h.Reset()
	assert.Equal(t, 0, h.Len())
	assert.False(t, h.Contains(1))
}
