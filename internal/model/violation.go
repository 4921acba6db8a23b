package model

import (
	"time"

	"github.com/google/uuid"
)

// ViolationKind distinguishes a raw hard-violation signal from the resulting elimination.
type ViolationKind string

const (
	ViolationKindHard        ViolationKind = "HARD_VIOLATION"
	ViolationKindElimination ViolationKind = "ELIMINATION"
)

// Violation is an audit entry for a proctoring incident.
type Violation struct {
	SessionID     uuid.UUID     `json:"session_id"`
	CandidateName string        `json:"candidate_name"`
	CandidateID   string        `json:"candidate_id"`
	Kind          ViolationKind `json:"kind"`
	Reason        string        `json:"reason"`
	RecordedAt    time.Time     `json:"recorded_at"`
}
