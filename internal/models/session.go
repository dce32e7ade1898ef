package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is one participant's run through the experiment.
type Session struct {
	ID              string     `gorm:"primaryKey;size:36" json:"id"`
	ParticipantName string     `json:"participantName"`
	Email           string     `json:"email"`
	PracticeTrials  int        `json:"practiceTrials"`
	PlannedTrials   int        `json:"plannedTrials"`
	CompletedTrials int        `json:"completedTrials"`
	StartedAt       time.Time  `json:"startedAt"`
	FinishedAt      *time.Time `json:"finishedAt,omitempty"`
}

// NewSession starts a session for p with a fresh identifier.
func NewSession(p Participant, practice, planned int, now time.Time) Session {
	return Session{
		ID:              uuid.NewString(),
		ParticipantName: p.Name,
		Email:           p.Email,
		PracticeTrials:  practice,
		PlannedTrials:   planned,
		StartedAt:       now,
	}
}
