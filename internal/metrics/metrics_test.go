package metrics

import (
	"testing"
	"time"

	"attblink/internal/geometry"
	"attblink/internal/models"
	"attblink/internal/trial"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		targets   [2]int
		responses [2]string
		want      [2]bool
	}{
		{"both correct", [2]int{5, 8}, [2]string{"5", "8"}, [2]bool{true, true}},
		{"swapped order", [2]int{5, 8}, [2]string{"8", "5"}, [2]bool{false, false}},
		{"second only", [2]int{2, 9}, [2]string{"3", "9"}, [2]bool{false, true}},
		{"not a digit string", [2]int{2, 9}, [2]string{"", "09"}, [2]bool{false, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.targets, tt.responses))
		})
	}
}

func TestDistance(t *testing.T) {
	vertices, err := geometry.BuildPolygon(7, 180, 0)
	require.NoError(t, err)
	table := geometry.DistanceTable(vertices)

	steps, units, err := Distance(1, 6, 7, table)
	require.NoError(t, err)
	assert.Equal(t, 2, steps)
	assert.Equal(t, table[2], units)

	steps, units, err = Distance(3, 3, 7, table)
	require.NoError(t, err)
	assert.Equal(t, 0, steps)
	assert.Equal(t, 0.0, units)

	// Pure: repeated calls agree.
	s1, u1, _ := Distance(0, 4, 7, table)
	s2, u2, _ := Distance(0, 4, 7, table)
	assert.Equal(t, s1, s2)
	assert.Equal(t, u1, u2)
}

func TestDistanceOutsideTable(t *testing.T) {
	vertices, err := geometry.BuildPolygon(7, 180, 0)
	require.NoError(t, err)
	table := geometry.DistanceTable(vertices)

	tests := []struct {
		name             string
		indexT1, indexT2 int
		positions        int
		table            []float64
		wantErr          string
	}{
		{"missing table", 0, 3, 7, nil, "need step 3"},
		{"short table", 0, 3, 7, table[:2], "need step 3"},
		{"index past polygon", 0, 7, 7, table, "position 7 outside"},
		{"negative index", -1, 2, 7, table, "position -1 outside"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, units, err := Distance(tt.indexT1, tt.indexT2, tt.positions, tt.table)
			assert.ErrorContains(t, err, tt.wantErr)
			assert.Equal(t, 0.0, units)
		})
	}
}

func TestTimeGap(t *testing.T) {
	assert.InDelta(t, 0.56, TimeGap(4, 140), 1e-12)
	assert.InDelta(t, 0.42, TimeGap(3, 140), 1e-12)
	assert.Equal(t, 0.0, TimeGap(0, 140))
}

func TestBuildRecord(t *testing.T) {
	vertices, err := geometry.BuildPolygon(7, 180, 0)
	require.NoError(t, err)
	plan := trial.Plan{Vertices: vertices, Lengths: geometry.DistanceTable(vertices), T1: 5, T2: 8}
	plan.Frames.FrameT1, plan.Frames.FrameT2, plan.Frames.Lag = 13, 17, 4

	done := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	p := models.Participant{Name: "Ada", Age: 29, Gender: "woman", Education: "Master", Email: "ada@example.org"}
	rec, err := BuildRecord(p, TrialOutcome{
		SessionID:   "s-1",
		TrialNumber: 2,
		Plan:        plan,
		Completion:  trial.Completion{IndexT1: 1, IndexT2: 4, FrameT1: 13, FrameT2: 17, DiffFrame: 4},
		Responses:   [2]string{"5", "3"},
		Streams:     7,
		IntervalMs:  140,
		Latency:     1500 * time.Millisecond,
		CompletedAt: done,
	})
	require.NoError(t, err)

	want := models.TrialRecord{
		SessionID:         "s-1",
		Name:              "Ada",
		Age:               29,
		Gender:            models.GenderWoman,
		Education:         "Master",
		Email:             "ada@example.org",
		TrialNumber:       2,
		TimeGap:           TimeGap(4, 140),
		IndexDistance:     3,
		UnitDistance:      plan.Lengths[3],
		Outcome1:          1,
		Outcome2:          0,
		T1:                5,
		T2:                8,
		FrameT1:           13,
		FrameT2:           17,
		IndexT1:           1,
		IndexT2:           4,
		Response1:         "5",
		Response2:         "3",
		ResponseLatencyMs: 1500,
		CreatedAt:         done,
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Errorf("BuildRecord mismatch (-want +got):\n%s", diff)
	}

	plan.Lengths = nil
	_, err = BuildRecord(p, TrialOutcome{TrialNumber: 3, Plan: plan, Completion: trial.Completion{IndexT1: 1, IndexT2: 4}, Streams: 7})
	assert.ErrorContains(t, err, "trial 3")
}

func TestSummarize(t *testing.T) {
	records := []models.TrialRecord{
		{TimeGap: 0.14, Outcome1: 1, Outcome2: 1, UnitDistance: 100},
		{TimeGap: 0.14, Outcome1: 0, Outcome2: 1, UnitDistance: 200},
		{TimeGap: 0.42, Outcome1: 1, Outcome2: 0, UnitDistance: 50},
		{TimeGap: 0.42, Outcome1: 1, Outcome2: 1, UnitDistance: 150},
		{TimeGap: 0.28, Outcome1: 0, Outcome2: 0, UnitDistance: 0},
	}

	s := Summarize(records)
	assert.Equal(t, 5, s.Trials)
	require.Len(t, s.ByTimeGap, 3)
	assert.Equal(t, []float64{0.14, 0.28, 0.42}, []float64{s.ByTimeGap[0].TimeGap, s.ByTimeGap[1].TimeGap, s.ByTimeGap[2].TimeGap})

	first := s.ByTimeGap[0]
	assert.Equal(t, 2, first.Trials)
	assert.InDelta(t, 0.5, first.T1Accuracy.Value, 1e-12)
	assert.InDelta(t, 1.0, first.T2Accuracy.Value, 1e-12)
	assert.Equal(t, MetricResult{Value: 1, Calculated: true, SampleSize: 1}, first.T2GivenT1)
	assert.InDelta(t, 150, first.MeanDistance.Value, 1e-12)

	// No correct T1 at this gap, so the conditional figure is not calculated.
	assert.False(t, s.ByTimeGap[1].T2GivenT1.Calculated)

	assert.InDelta(t, 0.5, s.ByTimeGap[2].T2GivenT1.Value, 1e-12)
	assert.InDelta(t, 0.6, s.Overall.T1Accuracy.Value, 1e-12)
	assert.Equal(t, 3, s.Overall.T2GivenT1.SampleSize)

	empty := Summarize(nil)
	assert.Equal(t, 0, empty.Trials)
	assert.Empty(t, empty.ByTimeGap)
	assert.False(t, empty.Overall.T1Accuracy.Calculated)
}
