package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"verification_service/internal/domain"
	"verification_service/internal/metrics"
	"verification_service/internal/repository"
	"verification_service/pkg/ctxdata"
	"verification_service/pkg/logger"
)

var (
	ErrInvalidGrade      = errors.New("invalid grade reference")
	ErrGradeNotFound     = errors.New("grade not found")
	ErrNoVerifications   = errors.New("no verification slots for grade")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrUnsupportedAction = errors.New("unsupported action")
	ErrInvalidArgument   = errors.New("invalid argument")
)

// SummaryCache drops cached summary views when slot state changes. Every
// path that creates or mutates slots goes through this service, so
// invalidation lives here rather than in the transport layer.
type SummaryCache interface {
	Delete(ctx context.Context, key string)
}

// SummaryCacheKey is the cache key for a grade's verification summary.
func SummaryCacheKey(gradeID uuid.UUID) string {
	return "summary:" + gradeID.String()
}

type VerificationServiceInterface interface {
	ReconcileSlots(ctx context.Context, grade domain.GradeRef) ([]*domain.VerificationSlot, error)
	Save(ctx context.Context, grade domain.GradeRef, updates map[uuid.UUID]domain.SlotUpdate) error
	IsFullyVerified(ctx context.Context, grade domain.GradeRef) (bool, error)
	IsFeedbackModified(ctx context.Context, grade domain.GradeRef, updates map[uuid.UUID]domain.SlotUpdate) (bool, error)
	Summary(ctx context.Context, grade domain.GradeRef) (*VerificationSummary, error)
	DeleteInstance(ctx context.Context, assignmentID uuid.UUID) error
}

type VerificationService struct {
	verificationRepo repository.VerificationRepositoryInterface
	allocationRepo   repository.AllocationRepositoryInterface
	cache            SummaryCache
	logger           *logger.Logger
}

func NewVerificationService(
	verificationRepo repository.VerificationRepositoryInterface,
	allocationRepo repository.AllocationRepositoryInterface,
	cache SummaryCache,
	logger *logger.Logger,
) *VerificationService {
	return &VerificationService{
		verificationRepo: verificationRepo,
		allocationRepo:   allocationRepo,
		cache:            cache,
		logger:           logger,
	}
}

// ReconcileSlots derives the complete slot set for a grade from its
// allocations. Pre-existing slots come first in store order; missing slots are
// created with default status and appended in allocation order. Safe to call
// repeatedly for the same grade: existing (grade, verifier) pairs are never
// touched, so a re-run after a partial failure simply fills in the gaps.
func (s *VerificationService) ReconcileSlots(ctx context.Context, grade domain.GradeRef) ([]*domain.VerificationSlot, error) {
	if !grade.IsValid() {
		return nil, ErrInvalidGrade
	}

	allocations, err := s.allocationRepo.ListByLearner(ctx, grade.AssignmentID, grade.LearnerID)
	if err != nil {
		metrics.ReconciliationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if len(allocations) == 0 {
		metrics.ReconciliationsTotal.WithLabelValues("noop").Inc()
		return nil, nil
	}

	slots, err := s.verificationRepo.ListByGrade(ctx, grade.ID)
	if err != nil {
		metrics.ReconciliationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	existing := make(map[uuid.UUID]struct{}, len(slots))
	for _, slot := range slots {
		existing[slot.VerifierID] = struct{}{}
	}

	materialized := false
	for _, allocation := range allocations {
		if _, ok := existing[allocation.VerifierID]; ok {
			continue
		}

		slot := &domain.VerificationSlot{
			AssignmentID:  grade.AssignmentID,
			GradeID:       grade.ID,
			Status:        domain.DefaultStatus,
			VerifierID:    allocation.VerifierID,
			CustomText:    normalizeCustomText(allocation.CustomText),
			CommentText:   "",
			CommentFormat: domain.DefaultCommentFormat,
			Component:     domain.Component,
		}

		inserted, err := s.verificationRepo.Create(ctx, slot)
		if err != nil {
			metrics.ReconciliationsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("failed to materialize slot for verifier %s: %w", allocation.VerifierID, err)
		}
		if !inserted {
			// A concurrent reconciliation won the insert; take its row.
			slot, err = s.verificationRepo.GetByGradeAndVerifier(ctx, grade.ID, allocation.VerifierID)
			if err != nil {
				metrics.ReconciliationsTotal.WithLabelValues("error").Inc()
				return nil, err
			}
		} else {
			metrics.SlotsCreatedTotal.Inc()
			s.logger.Info("verification slot created",
				zap.String("grade_id", grade.ID.String()),
				zap.String("verifier_id", allocation.VerifierID.String()),
			)
		}

		existing[allocation.VerifierID] = struct{}{}
		slots = append(slots, slot)
		materialized = true
	}

	if materialized {
		s.cache.Delete(ctx, SummaryCacheKey(grade.ID))
	}

	metrics.ReconciliationsTotal.WithLabelValues("ok").Inc()
	return slots, nil
}

// Save applies a batch of per-slot status and comment updates. Each slot is
// written independently; slots without an update entry are left untouched.
func (s *VerificationService) Save(ctx context.Context, grade domain.GradeRef, updates map[uuid.UUID]domain.SlotUpdate) error {
	if grade.ID == uuid.Nil {
		return ErrInvalidGrade
	}

	actingUser, ok := actingUserID(ctx)
	if !ok {
		return ErrPermissionDenied
	}

	slots, err := s.verificationRepo.ListByGrade(ctx, grade.ID)
	if err != nil {
		metrics.SaveOpsTotal.WithLabelValues("error").Inc()
		return err
	}
	if len(slots) == 0 {
		metrics.SaveOpsTotal.WithLabelValues("not_found").Inc()
		return ErrNoVerifications
	}

	for _, slot := range slots {
		update, ok := updates[slot.ID]
		if !ok {
			continue
		}

		if update.Status != "" {
			slot.Status = update.Status
			if update.Status == domain.StatusVerified {
				verifiedBy := actingUser
				slot.VerifiedBy = &verifiedBy
			}
		}

		slot.CommentText = update.CommentText
		if update.CommentFormat != "" {
			slot.CommentFormat = update.CommentFormat
		} else {
			slot.CommentFormat = domain.DefaultCommentFormat
		}

		if err := s.verificationRepo.Update(ctx, slot); err != nil {
			metrics.SaveOpsTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("failed to update slot %s: %w", slot.ID, err)
		}
	}

	s.cache.Delete(ctx, SummaryCacheKey(grade.ID))
	metrics.SaveOpsTotal.WithLabelValues("ok").Inc()
	return nil
}

// IsFullyVerified reports whether every slot for the grade is verified. A
// grade with no slots is never fully verified.
func (s *VerificationService) IsFullyVerified(ctx context.Context, grade domain.GradeRef) (bool, error) {
	if grade.ID == uuid.Nil {
		return false, ErrInvalidGrade
	}

	slots, err := s.verificationRepo.ListByGrade(ctx, grade.ID)
	if err != nil {
		return false, err
	}
	if len(slots) == 0 {
		return false, nil
	}

	return PendingCount(slots) == 0, nil
}

// PendingCount counts slots whose status is anything but verified.
func PendingCount(slots []*domain.VerificationSlot) int {
	pending := 0
	for _, slot := range slots {
		if slot.Status != domain.StatusVerified {
			pending++
		}
	}
	return pending
}

// IsFeedbackModified reports whether applying the updates would change any
// slot's status or comment text.
func (s *VerificationService) IsFeedbackModified(ctx context.Context, grade domain.GradeRef, updates map[uuid.UUID]domain.SlotUpdate) (bool, error) {
	if grade.ID == uuid.Nil {
		return false, ErrInvalidGrade
	}

	slots, err := s.verificationRepo.ListByGrade(ctx, grade.ID)
	if err != nil {
		return false, err
	}

	for _, slot := range slots {
		update, ok := updates[slot.ID]
		if !ok {
			continue
		}
		if update.Status != "" && update.Status != slot.Status {
			return true, nil
		}
		if update.CommentText != slot.CommentText {
			return true, nil
		}
	}

	return false, nil
}

type SlotSummary struct {
	ID         uuid.UUID  `json:"id"`
	Title      string     `json:"title"`
	Status     string     `json:"status"`
	Verified   bool       `json:"verified"`
	VerifiedBy *uuid.UUID `json:"verified_by,omitempty"`
}

type VerificationSummary struct {
	Complete bool          `json:"complete"`
	Pending  int           `json:"pending"`
	Total    int           `json:"total"`
	Slots    []SlotSummary `json:"slots"`
}

// Summary builds the learner-level view: completion flag, pending count and a
// per-slot digest with the custom label falling back to a generic title.
func (s *VerificationService) Summary(ctx context.Context, grade domain.GradeRef) (*VerificationSummary, error) {
	if grade.ID == uuid.Nil {
		return nil, ErrInvalidGrade
	}

	slots, err := s.verificationRepo.ListByGrade(ctx, grade.ID)
	if err != nil {
		return nil, err
	}

	summary := &VerificationSummary{
		Pending: PendingCount(slots),
		Total:   len(slots),
		Slots:   make([]SlotSummary, 0, len(slots)),
	}
	summary.Complete = summary.Total > 0 && summary.Pending == 0

	for _, slot := range slots {
		title := "Verification"
		if slot.CustomText != nil && strings.TrimSpace(*slot.CustomText) != "" {
			title = *slot.CustomText
		}
		summary.Slots = append(summary.Slots, SlotSummary{
			ID:         slot.ID,
			Title:      title,
			Status:     string(slot.Status),
			Verified:   slot.Status == domain.StatusVerified,
			VerifiedBy: slot.VerifiedBy,
		})
	}

	return summary, nil
}

// DeleteInstance removes all verification state for an assignment, slots and
// allocations both. Called when the host deletes the assignment instance.
func (s *VerificationService) DeleteInstance(ctx context.Context, assignmentID uuid.UUID) error {
	if assignmentID == uuid.Nil {
		return ErrInvalidArgument
	}

	if err := s.verificationRepo.DeleteByAssignment(ctx, assignmentID); err != nil {
		return err
	}
	return s.allocationRepo.DeleteByAssignment(ctx, assignmentID)
}

func actingUserID(ctx context.Context) (uuid.UUID, bool) {
	raw, ok := ctxdata.GetUserID(ctx)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func normalizeCustomText(text *string) *string {
	if text == nil || strings.TrimSpace(*text) == "" {
		return nil
	}
	copied := *text
	return &copied
}
