// Package repository stores completed trials and the sessions they belong to.
package repository

import (
	"context"
	"errors"

	"attblink/internal/models"
)

// ErrSessionFilter is returned by readers that cannot select trials by session.
var ErrSessionFilter = errors.New("results file does not record sessions")

// TrialSink accepts one record per completed, non-practice trial.
type TrialSink interface {
	Append(ctx context.Context, rec models.TrialRecord) error
}

// TrialReader lists stored trials, oldest first. An empty session id lists all.
type TrialReader interface {
	ListTrials(ctx context.Context, sessionID string) ([]models.TrialRecord, error)
}

// SessionSink records the start and end of a session.
type SessionSink interface {
	SaveSession(ctx context.Context, s models.Session) error
}

// SessionLister lists recorded sessions, newest first.
type SessionLister interface {
	ListSessions(ctx context.Context, limit int) ([]models.Session, error)
}
