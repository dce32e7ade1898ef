// Package trial runs the frame-by-frame state machine of a single attentional blink
// trial. The engine never sleeps; a caller ticks it once per frame interval and renders
// the frames it returns.
package trial

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"attblink/internal/geometry"
	"attblink/internal/stimulus"
)

var (
	ErrTrialActive = errors.New("a trial is already running")
	ErrNotRunning  = errors.New("no trial is running")
)

// State is the phase of the current trial.
type State int

const (
	Idle State = iota
	Running
	Complete
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Complete:
		return "complete"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Config fixes the shape of every trial the engine runs.
type Config struct {
	Streams     int
	Radius      float64
	FramesMax   int
	Targets     []int
	Distractors []string
	Window      stimulus.FrameWindow
}

// Plan is what Start decided for a trial.
type Plan struct {
	Shift    float64
	Vertices []geometry.Vertex
	Lengths  []float64
	T1       int
	T2       int
	Frames   stimulus.FramePair
}

// Symbol is one stream position's content in a frame.
type Symbol struct {
	Text     string
	Position int
	Vertex   geometry.Vertex
	Target   bool
}

// Frame is everything the presenter needs for one tick. Completion is set on the
// last frame only.
type Frame struct {
	Number     int
	Symbols    []Symbol
	Completion *Completion
}

// Completion describes where the targets ended up once the stream is over.
type Completion struct {
	IndexT1   int
	IndexT2   int
	FrameT1   int
	FrameT2   int
	DiffFrame int
	Offset    int
}

// Engine owns all state of the running experiment: the sampling histories that
// persist across trials and the per-trial plan and frame counter.
type Engine struct {
	cfg    Config
	rng    *rand.Rand
	picker *stimulus.TargetPicker
	stream *stimulus.DistractorStream

	state      State
	frameCount int
	plan       Plan
	indexT1    int
	indexT2    int
	offset     int
}

// NewEngine checks the pools against the configuration and returns an idle engine.
func NewEngine(cfg Config, rng *rand.Rand) (*Engine, error) {
	if cfg.Streams <= 0 {
		return nil, fmt.Errorf("streams must be positive, got %d", cfg.Streams)
	}
	if err := cfg.Window.Validate(cfg.FramesMax); err != nil {
		return nil, fmt.Errorf("invalid target frame window: %w", err)
	}

	if err := stimulus.CheckPools(cfg.Targets, cfg.Distractors, cfg.Streams); err != nil {
		return nil, err
	}

	return &Engine{
		cfg:     cfg,
		rng:     rng,
		picker:  stimulus.NewTargetPicker(rng, cfg.Window),
		stream:  stimulus.NewDistractorStream(rng, cfg.Distractors),
		state:   Idle,
		indexT1: -1,
		indexT2: -1,
	}, nil
}

// Start prepares a new trial: a fresh rotation, geometry, target pair and frame pair.
func (e *Engine) Start() (Plan, error) {
	if e.state == Running {
		return Plan{}, ErrTrialActive
	}

	e.picker.ResetOffsets()
	shift := float64(e.rng.IntN(361))
	vertices, err := geometry.BuildPolygon(e.cfg.Streams, e.cfg.Radius, shift)
	if err != nil {
		return Plan{}, err
	}
	t1, t2, err := e.picker.PickTargets(e.cfg.Targets)
	if err != nil {
		return Plan{}, err
	}

	e.plan = Plan{
		Shift:    shift,
		Vertices: vertices,
		Lengths:  geometry.DistanceTable(vertices),
		T1:       t1,
		T2:       t2,
		Frames:   e.picker.PickFrames(),
	}
	e.stream.Reset()
	e.frameCount = 0
	e.indexT1, e.indexT2, e.offset = -1, -1, 0
	e.state = Running
	return e.plan, nil
}

// Tick advances the stream by one frame.
func (e *Engine) Tick() (Frame, error) {
	if e.state != Running {
		return Frame{}, ErrNotRunning
	}

	e.frameCount++
	n := e.cfg.Streams
	letters, err := e.stream.NextFrame(n)
	if err != nil {
		e.state = Cancelled
		return Frame{}, fmt.Errorf("frame %d: %w", e.frameCount, err)
	}

	frame := Frame{Number: e.frameCount, Symbols: make([]Symbol, n)}
	for i, s := range letters {
		frame.Symbols[i] = Symbol{Text: s, Position: i, Vertex: e.plan.Vertices[i]}
	}

	switch e.frameCount {
	case e.plan.Frames.FrameT1:
		e.indexT1 = e.rng.IntN(n)
		e.overlay(&frame, e.indexT1, e.plan.T1)
	case e.plan.Frames.FrameT2:
		e.offset = e.picker.PickPositionOffset(n)
		e.indexT2 = WrapPosition(e.indexT1, e.offset, n)
		e.overlay(&frame, e.indexT2, e.plan.T2)
	}

	if e.frameCount >= e.cfg.FramesMax {
		e.state = Complete
		frame.Completion = &Completion{
			IndexT1:   e.indexT1,
			IndexT2:   e.indexT2,
			FrameT1:   e.plan.Frames.FrameT1,
			FrameT2:   e.plan.Frames.FrameT2,
			DiffFrame: e.plan.Frames.Lag,
			Offset:    e.offset,
		}
	}
	return frame, nil
}

func (e *Engine) overlay(frame *Frame, position, target int) {
	frame.Symbols[position].Text = fmt.Sprint(target)
	frame.Symbols[position].Target = true
}

// Cancel abandons a running trial. Nothing about it is kept for scoring.
func (e *Engine) Cancel() {
	if e.state == Running {
		e.state = Cancelled
	}
}

func (e *Engine) State() State      { return e.state }
func (e *Engine) FrameCount() int   { return e.frameCount }
func (e *Engine) Plan() Plan        { return e.plan }
func (e *Engine) Config() Config    { return e.cfg }
func (e *Engine) LagHistory() []int { return e.picker.LagHistory() }

// WrapPosition places T2 offset positions after T1. A sum past the last position is
// brought back by positions-1 rather than positions; the rare sum that is still out of
// range after that wraps modulo positions.
func WrapPosition(indexT1, offset, positions int) int {
	index := indexT1 + offset
	if index > positions-1 {
		index -= positions - 1
	}
	if index > positions-1 {
		index %= positions
	}
	return index
}
