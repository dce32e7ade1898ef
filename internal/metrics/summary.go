package metrics

import (
	"sort"

	"attblink/internal/models"

	"gonum.org/v1/gonum/stat"
)

type MetricResult struct {
	Value      float64 `json:"value"`
	Calculated bool    `json:"calculated"`
	SampleSize int     `json:"sampleSize,omitempty"`
}

// LagSummary aggregates the trials that shared one target time gap.
type LagSummary struct {
	TimeGap      float64      `json:"timeGap"`
	Trials       int          `json:"trials"`
	T1Accuracy   MetricResult `json:"t1Accuracy"`
	T2Accuracy   MetricResult `json:"t2Accuracy"`
	T2GivenT1    MetricResult `json:"t2GivenT1"`
	MeanDistance MetricResult `json:"meanDistance"`
}

// Summary is the blink curve of a set of trials plus the overall figures.
type Summary struct {
	Trials    int          `json:"trials"`
	Overall   LagSummary   `json:"overall"`
	ByTimeGap []LagSummary `json:"byTimeGap"`
}

// Summarize groups records by time gap. T2 accuracy conditional on a correct T1 is the
// figure that shows the blink.
func Summarize(records []models.TrialRecord) Summary {
	groups := make(map[float64][]models.TrialRecord)
	for _, r := range records {
		groups[r.TimeGap] = append(groups[r.TimeGap], r)
	}

	gaps := make([]float64, 0, len(groups))
	for gap := range groups {
		gaps = append(gaps, gap)
	}
	sort.Float64s(gaps)

	summary := Summary{
		Trials:    len(records),
		Overall:   summarizeGroup(0, records),
		ByTimeGap: make([]LagSummary, 0, len(gaps)),
	}
	for _, gap := range gaps {
		summary.ByTimeGap = append(summary.ByTimeGap, summarizeGroup(gap, groups[gap]))
	}
	return summary
}

func summarizeGroup(gap float64, records []models.TrialRecord) LagSummary {
	var t1, t2, t2GivenT1, distance []float64
	for _, r := range records {
		t1 = append(t1, float64(r.Outcome1))
		t2 = append(t2, float64(r.Outcome2))
		distance = append(distance, r.UnitDistance)
		if r.Outcome1 == 1 {
			t2GivenT1 = append(t2GivenT1, float64(r.Outcome2))
		}
	}

	return LagSummary{
		TimeGap:      gap,
		Trials:       len(records),
		T1Accuracy:   mean(t1),
		T2Accuracy:   mean(t2),
		T2GivenT1:    mean(t2GivenT1),
		MeanDistance: mean(distance),
	}
}

func mean(xs []float64) MetricResult {
	if len(xs) == 0 {
		return MetricResult{}
	}
	return MetricResult{Value: stat.Mean(xs, nil), Calculated: true, SampleSize: len(xs)}
}
