package domain

import (
	"github.com/google/uuid"
	"time"
)

// Component is the owning-component tag stamped on every slot this service
// creates.
const Component = "verification_service"

// VerificationSlot is one verifier's outstanding or completed check against
// one learner's grade. Exactly one slot exists per (grade, verifier) pair.
type VerificationSlot struct {
	ID           uuid.UUID
	AssignmentID uuid.UUID
	GradeID      uuid.UUID
	Status       VerificationStatus
	VerifierID   uuid.UUID
	// VerifiedBy records who last set the status to VERIFIED. It is not
	// cleared when the status later regresses; the last verifier stays
	// attributed.
	VerifiedBy    *uuid.UUID
	CustomText    *string
	CommentText   string
	CommentFormat CommentFormat
	Component     string
	CreatedAt     time.Time
	EditedAt      time.Time
}

// SlotUpdate is one verifier-submitted change to a single slot. An empty
// Status leaves the stored status alone; comment text and format are always
// overwritten.
type SlotUpdate struct {
	Status        VerificationStatus
	CommentText   string
	CommentFormat CommentFormat
}
