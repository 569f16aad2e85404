package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	segmentio "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"verification_service/internal/domain"
	"verification_service/internal/service"
	"verification_service/pkg/kafka"
	"verification_service/pkg/logger"
)

// Topics the host grading system publishes submission lifecycle events on.
const (
	TopicSubmissionCreated = "submission-created"
	TopicSubmissionUpdated = "submission-updated"
)

type Reconciler interface {
	ReconcileSlots(ctx context.Context, grade domain.GradeRef) ([]*domain.VerificationSlot, error)
}

type AllocationLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Allocation, error)
}

// Consumer reacts to submission-changed and allocation-created events by
// reconciling the affected grade's slot set. It holds no state of its own;
// reconciliation is idempotent, so redelivered events are harmless.
type Consumer struct {
	consumer    *kafka.Consumer
	grading     service.GradingClient
	allocations AllocationLookup
	reconciler  Reconciler
	enabled     bool
	logger      *logger.Logger
}

func NewConsumer(
	consumer *kafka.Consumer,
	grading service.GradingClient,
	allocations AllocationLookup,
	reconciler Reconciler,
	enabled bool,
	logger *logger.Logger,
) *Consumer {
	return &Consumer{
		consumer:    consumer,
		grading:     grading,
		allocations: allocations,
		reconciler:  reconciler,
		enabled:     enabled,
		logger:      logger,
	}
}

type submissionEvent struct {
	SubmissionID uuid.UUID `json:"submission_id"`
}

type allocationEvent struct {
	AllocationID uuid.UUID `json:"allocation_id"`
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		msg, err := c.consumer.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("event consumer shutting down")
				return
			}
			c.logger.Error("failed to fetch message", zap.Error(err))
			continue
		}

		if err := c.handle(ctx, msg); err != nil {
			c.logger.Error("failed to handle event",
				zap.String("topic", msg.Topic),
				zap.ByteString("value", msg.Value),
				zap.Error(err),
			)
		}

		if err := c.consumer.Commit(ctx, msg); err != nil {
			c.logger.Error("failed to commit message", zap.Error(err))
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg segmentio.Message) error {
	if !c.enabled {
		return nil
	}

	switch msg.Topic {
	case TopicSubmissionCreated, TopicSubmissionUpdated:
		var event submissionEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("failed to unmarshal submission event: %w", err)
		}
		return c.OnSubmissionChanged(ctx, event.SubmissionID)
	case service.TopicAllocationCreated:
		var event allocationEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("failed to unmarshal allocation event: %w", err)
		}
		return c.OnAllocationCreated(ctx, event.AllocationID)
	default:
		return fmt.Errorf("%w: topic %s", service.ErrUnsupportedAction, msg.Topic)
	}
}

// OnSubmissionChanged resolves the submission's grade and reconciles its slot
// set. Also usable as a synchronous entry point by the host workflow.
func (c *Consumer) OnSubmissionChanged(ctx context.Context, submissionID uuid.UUID) error {
	if submissionID == uuid.Nil {
		return service.ErrInvalidArgument
	}

	grade, err := c.grading.GetSubmissionGrade(ctx, submissionID)
	if err != nil {
		return fmt.Errorf("failed to resolve grade for submission %s: %w", submissionID, err)
	}

	_, err = c.reconciler.ReconcileSlots(ctx, *grade)
	return err
}

// OnAllocationCreated resolves the allocated learner's grade and reconciles
// its slot set. A learner without a grade record yet is a no-op; the next
// submission event covers them.
func (c *Consumer) OnAllocationCreated(ctx context.Context, allocationID uuid.UUID) error {
	if allocationID == uuid.Nil {
		return service.ErrInvalidArgument
	}

	allocation, err := c.allocations.GetByID(ctx, allocationID)
	if err != nil {
		return fmt.Errorf("failed to load allocation %s: %w", allocationID, err)
	}

	grade, err := c.grading.GetGrade(ctx, allocation.LearnerID, allocation.AssignmentID)
	if err != nil {
		if errors.Is(err, service.ErrGradeNotFound) {
			return nil
		}
		return fmt.Errorf("failed to resolve grade for learner %s: %w", allocation.LearnerID, err)
	}

	_, err = c.reconciler.ReconcileSlots(ctx, *grade)
	return err
}
