package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"verification_service/internal/domain"
	"verification_service/internal/repository"
	"verification_service/pkg/logger"
)

// Archive is the serialized verification state of one assignment: slot
// records grouped under their grade node. UserIDFields names the attributes
// holding user ids so an importing site can remap identities.
type Archive struct {
	AssignmentID uuid.UUID   `json:"assignment_id"`
	UserIDFields []string    `json:"user_id_fields"`
	Grades       []GradeNode `json:"grades"`
}

type GradeNode struct {
	GradeID       uuid.UUID      `json:"grade_id"`
	Verifications []ArchivedSlot `json:"verifications"`
}

type ArchivedSlot struct {
	ID            uuid.UUID  `json:"id"`
	Status        string     `json:"status"`
	VerifierID    uuid.UUID  `json:"verifier_id"`
	VerifiedBy    *uuid.UUID `json:"verified_by,omitempty"`
	CustomText    *string    `json:"custom_text,omitempty"`
	CommentText   string     `json:"comment_text"`
	CommentFormat string     `json:"comment_format"`
}

// ImportMapping carries the id translations established by the host restore
// before this service's state is imported. Grades maps archived grade ids to
// the restored grade references; Users maps archived user ids to restored
// ones (identity when absent, for same-site restores).
type ImportMapping struct {
	AssignmentID uuid.UUID
	Grades       map[uuid.UUID]domain.GradeRef
	Users        map[uuid.UUID]uuid.UUID
}

type BackupServiceInterface interface {
	Export(ctx context.Context, assignmentID uuid.UUID) (*Archive, error)
	Import(ctx context.Context, archive *Archive, mapping ImportMapping) error
}

type BackupService struct {
	verificationRepo repository.VerificationRepositoryInterface
	allocationRepo   repository.AllocationRepositoryInterface
	verifications    *VerificationService
	cache            SummaryCache
	logger           *logger.Logger
}

func NewBackupService(
	verificationRepo repository.VerificationRepositoryInterface,
	allocationRepo repository.AllocationRepositoryInterface,
	verifications *VerificationService,
	cache SummaryCache,
	logger *logger.Logger,
) *BackupService {
	return &BackupService{
		verificationRepo: verificationRepo,
		allocationRepo:   allocationRepo,
		verifications:    verifications,
		cache:            cache,
		logger:           logger,
	}
}

// Export serializes every verification slot of the assignment, one node per
// grade.
func (s *BackupService) Export(ctx context.Context, assignmentID uuid.UUID) (*Archive, error) {
	if assignmentID == uuid.Nil {
		return nil, ErrInvalidArgument
	}

	slots, err := s.verificationRepo.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	archive := &Archive{
		AssignmentID: assignmentID,
		UserIDFields: []string{"verifier_id", "verified_by"},
	}

	byGrade := make(map[uuid.UUID]int)
	for _, slot := range slots {
		idx, ok := byGrade[slot.GradeID]
		if !ok {
			archive.Grades = append(archive.Grades, GradeNode{GradeID: slot.GradeID})
			idx = len(archive.Grades) - 1
			byGrade[slot.GradeID] = idx
		}
		archive.Grades[idx].Verifications = append(archive.Grades[idx].Verifications, ArchivedSlot{
			ID:            slot.ID,
			Status:        string(slot.Status),
			VerifierID:    slot.VerifierID,
			VerifiedBy:    slot.VerifiedBy,
			CustomText:    slot.CustomText,
			CommentText:   slot.CommentText,
			CommentFormat: string(slot.CommentFormat),
		})
	}

	return archive, nil
}

// Import restores archived slots under the remapped grade ids, then rebuilds
// allocations from the distinct (assignment, learner, verifier) triples the
// imported slots imply, and finally runs one reconciliation pass per restored
// grade. Allocations are not part of the archived aggregate; they only exist
// again because the slots imply them.
func (s *BackupService) Import(ctx context.Context, archive *Archive, mapping ImportMapping) error {
	if archive == nil || mapping.AssignmentID == uuid.Nil {
		return ErrInvalidArgument
	}

	type triple struct {
		learnerID  uuid.UUID
		verifierID uuid.UUID
	}
	seen := make(map[triple]*string)
	var grades []domain.GradeRef

	for _, node := range archive.Grades {
		grade, ok := mapping.Grades[node.GradeID]
		if !ok {
			return fmt.Errorf("%w: no grade mapping for %s", ErrInvalidArgument, node.GradeID)
		}
		grades = append(grades, grade)

		for _, archived := range node.Verifications {
			verifierID := mapUserID(mapping.Users, archived.VerifierID)

			status := domain.ToVerificationStatus(archived.Status)
			if status == "" {
				status = domain.DefaultStatus
			}
			format := domain.CommentFormat(archived.CommentFormat)
			if !format.IsValid() {
				format = domain.DefaultCommentFormat
			}

			slot := &domain.VerificationSlot{
				AssignmentID:  mapping.AssignmentID,
				GradeID:       grade.ID,
				Status:        status,
				VerifierID:    verifierID,
				CustomText:    normalizeCustomText(archived.CustomText),
				CommentText:   archived.CommentText,
				CommentFormat: format,
				Component:     domain.Component,
			}
			if archived.VerifiedBy != nil {
				verifiedBy := mapUserID(mapping.Users, *archived.VerifiedBy)
				slot.VerifiedBy = &verifiedBy
			}

			if _, err := s.verificationRepo.Create(ctx, slot); err != nil {
				return fmt.Errorf("failed to import slot for grade %s: %w", grade.ID, err)
			}

			key := triple{learnerID: grade.LearnerID, verifierID: verifierID}
			if _, ok := seen[key]; !ok {
				seen[key] = slot.CustomText
			}
		}
	}

	for key, customText := range seen {
		exists, err := s.allocationRepo.ExistsTriple(ctx, mapping.AssignmentID, key.learnerID, key.verifierID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		allocation := &domain.Allocation{
			AssignmentID: mapping.AssignmentID,
			LearnerID:    key.learnerID,
			VerifierID:   key.verifierID,
			CustomText:   customText,
		}
		if err := s.allocationRepo.Create(ctx, allocation); err != nil {
			return err
		}
	}

	for _, grade := range grades {
		if _, err := s.verifications.ReconcileSlots(ctx, grade); err != nil {
			return err
		}
		// Reconcile only invalidates when it creates slots; the rows
		// inserted above bypass it, so drop the summary explicitly.
		s.cache.Delete(ctx, SummaryCacheKey(grade.ID))
	}

	s.logger.Info("verification archive imported",
		zap.String("assignment_id", mapping.AssignmentID.String()),
		zap.Int("grades", len(grades)),
	)
	return nil
}

func mapUserID(users map[uuid.UUID]uuid.UUID, id uuid.UUID) uuid.UUID {
	if mapped, ok := users[id]; ok {
		return mapped
	}
	return id
}
