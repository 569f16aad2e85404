package domain

import "github.com/google/uuid"

// GradeRef identifies a learner's grade record in the host grading system.
type GradeRef struct {
	ID           uuid.UUID
	AssignmentID uuid.UUID
	LearnerID    uuid.UUID
}

// IsValid reports whether the reference carries the fields slot
// materialization needs.
func (g GradeRef) IsValid() bool {
	return g.ID != uuid.Nil && g.AssignmentID != uuid.Nil && g.LearnerID != uuid.Nil
}
