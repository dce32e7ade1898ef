package metrics

import (
	"fmt"
	"time"

	"attblink/internal/models"
	"attblink/internal/trial"
)

// TrialOutcome is everything scored about one finished trial.
type TrialOutcome struct {
	SessionID   string
	TrialNumber int
	Plan        trial.Plan
	Completion  trial.Completion
	Responses   [2]string
	Streams     int
	IntervalMs  int
	Latency     time.Duration
	CompletedAt time.Time
}

// BuildRecord scores a finished trial and flattens it into a record for storage.
func BuildRecord(p models.Participant, o TrialOutcome) (models.TrialRecord, error) {
	targets := [2]int{o.Plan.T1, o.Plan.T2}
	outcomes := Score(targets, o.Responses)
	steps, units, err := Distance(o.Completion.IndexT1, o.Completion.IndexT2, o.Streams, o.Plan.Lengths)
	if err != nil {
		return models.TrialRecord{}, fmt.Errorf("trial %d: %w", o.TrialNumber, err)
	}

	return models.TrialRecord{
		SessionID:     o.SessionID,
		Name:          p.Name,
		Age:           p.Age,
		Gender:        p.GenderCode(),
		Education:     p.Education,
		Email:         p.Email,
		TrialNumber:   o.TrialNumber,
		TimeGap:       TimeGap(o.Completion.DiffFrame, o.IntervalMs),
		IndexDistance: steps,
		UnitDistance:  units,
		Outcome1:      Outcome(outcomes[0]),
		Outcome2:      Outcome(outcomes[1]),

		T1:                o.Plan.T1,
		T2:                o.Plan.T2,
		FrameT1:           o.Completion.FrameT1,
		FrameT2:           o.Completion.FrameT2,
		IndexT1:           o.Completion.IndexT1,
		IndexT2:           o.Completion.IndexT2,
		Response1:         o.Responses[0],
		Response2:         o.Responses[1],
		ResponseLatencyMs: float64(o.Latency) / float64(time.Millisecond),
		CreatedAt:         o.CompletedAt,
	}, nil
}
