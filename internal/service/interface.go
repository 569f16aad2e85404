package service

import (
	"context"

	"github.com/google/uuid"

	"verification_service/internal/domain"
)

// GradingClient resolves grade references against the host grading system.
type GradingClient interface {
	GetGrade(ctx context.Context, learnerID, assignmentID uuid.UUID) (*domain.GradeRef, error)
	GetSubmissionGrade(ctx context.Context, submissionID uuid.UUID) (*domain.GradeRef, error)
}

// UserDirectoryClient looks up users who may act as verifiers for an
// assignment. excludeID is filtered out inside the directory query, so the
// reported total stays consistent across pages; uuid.Nil excludes nobody.
type UserDirectoryClient interface {
	SearchGraders(ctx context.Context, assignmentID uuid.UUID, query string, excludeID uuid.UUID, limit, offset int) ([]*domain.UserSummary, int, error)
}

type EventProducer interface {
	Send(ctx context.Context, topic, key string, message interface{}) error
}
