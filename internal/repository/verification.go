package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"verification_service/internal/domain"
)

type VerificationRepository struct {
	db *sql.DB
}

type VerificationRepositoryInterface interface {
	Create(ctx context.Context, slot *domain.VerificationSlot) (bool, error)
	GetByGradeAndVerifier(ctx context.Context, gradeID, verifierID uuid.UUID) (*domain.VerificationSlot, error)
	ListByGrade(ctx context.Context, gradeID uuid.UUID) ([]*domain.VerificationSlot, error)
	ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]*domain.VerificationSlot, error)
	Update(ctx context.Context, slot *domain.VerificationSlot) error
	DeleteByAssignment(ctx context.Context, assignmentID uuid.UUID) error
}

func NewVerificationRepository(db *sql.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

const slotColumns = `
	id, assignment_id, grade_id, status, verifier_id, verified_by,
	custom_text, comment_text, comment_format, component, created_at, edited_at
`

// Create inserts a slot and reports whether a row was actually written. Two
// reconciliations racing on the same grade can both decide a verifier has no
// slot yet; the unique index on (grade_id, verifier_id) makes the insert a
// no-op for the loser, which must then re-read the winner's row.
func (r *VerificationRepository) Create(ctx context.Context, slot *domain.VerificationSlot) (bool, error) {
	query := `
		INSERT INTO verification_slots
			(id, assignment_id, grade_id, status, verifier_id, verified_by,
			 custom_text, comment_text, comment_format, component, created_at, edited_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (grade_id, verifier_id) DO NOTHING
	`

	id, err := uuid.NewV7()
	if err != nil {
		return false, fmt.Errorf("failed to generate UUID: %w", err)
	}

	now := time.Now()
	result, err := r.db.ExecContext(ctx, query,
		id,
		slot.AssignmentID,
		slot.GradeID,
		slot.Status,
		slot.VerifierID,
		slot.VerifiedBy,
		slot.CustomText,
		slot.CommentText,
		slot.CommentFormat,
		slot.Component,
		now,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create verification slot: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return false, nil
	}

	slot.ID = id
	slot.CreatedAt = now
	slot.EditedAt = now
	return true, nil
}

func (r *VerificationRepository) GetByGradeAndVerifier(ctx context.Context, gradeID, verifierID uuid.UUID) (*domain.VerificationSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM verification_slots
		WHERE grade_id = $1 AND verifier_id = $2
	`

	var slot domain.VerificationSlot
	err := r.db.QueryRowContext(ctx, query, gradeID, verifierID).Scan(
		&slot.ID,
		&slot.AssignmentID,
		&slot.GradeID,
		&slot.Status,
		&slot.VerifierID,
		&slot.VerifiedBy,
		&slot.CustomText,
		&slot.CommentText,
		&slot.CommentFormat,
		&slot.Component,
		&slot.CreatedAt,
		&slot.EditedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get verification slot: %w", err)
	}

	return &slot, nil
}

func (r *VerificationRepository) ListByGrade(ctx context.Context, gradeID uuid.UUID) ([]*domain.VerificationSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM verification_slots
		WHERE grade_id = $1
		ORDER BY created_at, id
	`

	return r.list(ctx, query, gradeID)
}

func (r *VerificationRepository) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]*domain.VerificationSlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM verification_slots
		WHERE assignment_id = $1
		ORDER BY grade_id, created_at, id
	`

	return r.list(ctx, query, assignmentID)
}

func (r *VerificationRepository) list(ctx context.Context, query string, arg any) ([]*domain.VerificationSlot, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list verification slots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var slots []*domain.VerificationSlot
	for rows.Next() {
		var s domain.VerificationSlot
		if err := rows.Scan(
			&s.ID,
			&s.AssignmentID,
			&s.GradeID,
			&s.Status,
			&s.VerifierID,
			&s.VerifiedBy,
			&s.CustomText,
			&s.CommentText,
			&s.CommentFormat,
			&s.Component,
			&s.CreatedAt,
			&s.EditedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan verification slot: %w", err)
		}
		slots = append(slots, &s)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return slots, nil
}

func (r *VerificationRepository) Update(ctx context.Context, slot *domain.VerificationSlot) error {
	query := `
		UPDATE verification_slots
		SET status = $1, verified_by = $2, comment_text = $3, comment_format = $4, edited_at = $5
		WHERE id = $6
	`

	result, err := r.db.ExecContext(ctx, query,
		slot.Status,
		slot.VerifiedBy,
		slot.CommentText,
		slot.CommentFormat,
		time.Now(),
		slot.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update verification slot: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *VerificationRepository) DeleteByAssignment(ctx context.Context, assignmentID uuid.UUID) error {
	query := `DELETE FROM verification_slots WHERE assignment_id = $1`

	if _, err := r.db.ExecContext(ctx, query, assignmentID); err != nil {
		return fmt.Errorf("failed to delete verification slots: %w", err)
	}

	return nil
}
