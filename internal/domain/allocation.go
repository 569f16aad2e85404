package domain

import (
	"github.com/google/uuid"
	"time"
)

// Allocation assigns a verifier to a learner within an assignment. The
// (AssignmentID, LearnerID, VerifierID) triple is the functional key; the
// allocation entry point skips duplicates rather than erroring.
type Allocation struct {
	ID           uuid.UUID
	AssignmentID uuid.UUID
	LearnerID    uuid.UUID
	VerifierID   uuid.UUID
	CustomText   *string
	CreatedAt    time.Time
	EditedAt     time.Time
}
