package repository

import (
	"context"

	"attblink/internal/models"
)

// MultiSink hands each record to every store in order and stops at the first error.
type MultiSink []TrialSink

func (m MultiSink) Append(ctx context.Context, rec models.TrialRecord) error {
	for _, s := range m {
		if err := s.Append(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Members lists the stores behind s, flattening nested fan-outs, so a caller can
// retry only the stores that failed.
func Members(s TrialSink) []TrialSink {
	m, ok := s.(MultiSink)
	if !ok {
		return []TrialSink{s}
	}
	var out []TrialSink
	for _, inner := range m {
		out = append(out, Members(inner)...)
	}
	return out
}
