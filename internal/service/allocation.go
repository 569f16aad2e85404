package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"verification_service/internal/domain"
	"verification_service/internal/repository"
	"verification_service/pkg/ctxdata"
	"verification_service/pkg/logger"
)

// TopicAllocationCreated carries one event per newly created allocation so
// the trigger layer can materialize slots for learners who already have a
// grade record.
const TopicAllocationCreated = "verifier-allocations"

type AllocationServiceInterface interface {
	Allocate(ctx context.Context, assignmentID uuid.UUID, learnerIDs []uuid.UUID, verifierID uuid.UUID, customText *string) error
	Deallocate(ctx context.Context, assignmentID uuid.UUID, learnerIDs []uuid.UUID) error
}

type AllocationService struct {
	allocationRepo repository.AllocationRepositoryInterface
	producer       EventProducer
	logger         *logger.Logger
}

func NewAllocationService(
	allocationRepo repository.AllocationRepositoryInterface,
	producer EventProducer,
	logger *logger.Logger,
) *AllocationService {
	return &AllocationService{
		allocationRepo: allocationRepo,
		producer:       producer,
		logger:         logger,
	}
}

// Allocate assigns the verifier to each learner that does not already have an
// allocation with that exact (assignment, learner, verifier) triple.
// Duplicate triples are skipped silently. One allocation-created event is
// published per created allocation.
func (s *AllocationService) Allocate(ctx context.Context, assignmentID uuid.UUID, learnerIDs []uuid.UUID, verifierID uuid.UUID, customText *string) error {
	if err := requireGradingRole(ctx); err != nil {
		return err
	}
	if assignmentID == uuid.Nil || verifierID == uuid.Nil || len(learnerIDs) == 0 {
		return ErrInvalidArgument
	}

	text := normalizeCustomText(customText)

	for _, learnerID := range learnerIDs {
		exists, err := s.allocationRepo.ExistsTriple(ctx, assignmentID, learnerID, verifierID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		allocation := &domain.Allocation{
			AssignmentID: assignmentID,
			LearnerID:    learnerID,
			VerifierID:   verifierID,
			CustomText:   text,
		}
		if err := s.allocationRepo.Create(ctx, allocation); err != nil {
			return err
		}

		event := map[string]interface{}{
			"allocation_id": allocation.ID,
			"assignment_id": assignmentID,
			"learner_id":    learnerID,
			"verifier_id":   verifierID,
		}
		if err := s.producer.Send(ctx, TopicAllocationCreated, allocation.ID.String(), event); err != nil {
			// The next submission event re-reconciles the grade, so a lost
			// allocation event delays slot creation rather than losing it.
			s.logger.Error("failed to publish allocation event",
				zap.String("allocation_id", allocation.ID.String()),
				zap.Error(err),
			)
		}
	}

	return nil
}

// Deallocate removes every allocation for the given learners, regardless of
// verifier. Slots already materialized from those allocations are kept.
func (s *AllocationService) Deallocate(ctx context.Context, assignmentID uuid.UUID, learnerIDs []uuid.UUID) error {
	if err := requireGradingRole(ctx); err != nil {
		return err
	}
	if assignmentID == uuid.Nil || len(learnerIDs) == 0 {
		return ErrInvalidArgument
	}

	return s.allocationRepo.DeleteByLearners(ctx, assignmentID, learnerIDs)
}

func requireGradingRole(ctx context.Context) error {
	role, ok := ctxdata.GetUserRole(ctx)
	if !ok || !domain.UserRole(role).CanGrade() {
		return ErrPermissionDenied
	}
	return nil
}
