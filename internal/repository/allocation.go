package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"verification_service/internal/domain"
)

var ErrNotFound = errors.New("not found")

type AllocationRepository struct {
	db *sql.DB
}

type AllocationRepositoryInterface interface {
	Create(ctx context.Context, allocation *domain.Allocation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Allocation, error)
	ExistsTriple(ctx context.Context, assignmentID, learnerID, verifierID uuid.UUID) (bool, error)
	ListByLearner(ctx context.Context, assignmentID, learnerID uuid.UUID) ([]*domain.Allocation, error)
	DeleteByLearners(ctx context.Context, assignmentID uuid.UUID, learnerIDs []uuid.UUID) error
	DeleteByAssignment(ctx context.Context, assignmentID uuid.UUID) error
}

func NewAllocationRepository(db *sql.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

func (r *AllocationRepository) Create(ctx context.Context, allocation *domain.Allocation) error {
	query := `
		INSERT INTO allocations
			(id, assignment_id, learner_id, verifier_id, custom_text, created_at, edited_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("failed to generate UUID: %w", err)
	}

	now := time.Now()
	_, err = r.db.ExecContext(ctx, query,
		id,
		allocation.AssignmentID,
		allocation.LearnerID,
		allocation.VerifierID,
		allocation.CustomText,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create allocation: %w", err)
	}

	allocation.ID = id
	allocation.CreatedAt = now
	allocation.EditedAt = now
	return nil
}

func (r *AllocationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Allocation, error) {
	query := `
		SELECT id, assignment_id, learner_id, verifier_id, custom_text, created_at, edited_at
		FROM allocations
		WHERE id = $1
	`

	var allocation domain.Allocation
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&allocation.ID,
		&allocation.AssignmentID,
		&allocation.LearnerID,
		&allocation.VerifierID,
		&allocation.CustomText,
		&allocation.CreatedAt,
		&allocation.EditedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get allocation: %w", err)
	}

	return &allocation, nil
}

func (r *AllocationRepository) ExistsTriple(ctx context.Context, assignmentID, learnerID, verifierID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM allocations
			WHERE assignment_id = $1 AND learner_id = $2 AND verifier_id = $3
		)
	`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, assignmentID, learnerID, verifierID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check allocation: %w", err)
	}

	return exists, nil
}

func (r *AllocationRepository) ListByLearner(ctx context.Context, assignmentID, learnerID uuid.UUID) ([]*domain.Allocation, error) {
	query := `
		SELECT id, assignment_id, learner_id, verifier_id, custom_text, created_at, edited_at
		FROM allocations
		WHERE assignment_id = $1 AND learner_id = $2
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, assignmentID, learnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var allocations []*domain.Allocation
	for rows.Next() {
		var a domain.Allocation
		if err := rows.Scan(
			&a.ID,
			&a.AssignmentID,
			&a.LearnerID,
			&a.VerifierID,
			&a.CustomText,
			&a.CreatedAt,
			&a.EditedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocations = append(allocations, &a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return allocations, nil
}

// DeleteByLearners removes every allocation for the given learners in one
// statement, regardless of verifier. Already-materialized slots stay in place.
func (r *AllocationRepository) DeleteByLearners(ctx context.Context, assignmentID uuid.UUID, learnerIDs []uuid.UUID) error {
	if len(learnerIDs) == 0 {
		return nil
	}

	query := `DELETE FROM allocations WHERE assignment_id = $1 AND learner_id = ANY($2)`

	ids := make([]string, len(learnerIDs))
	for i, id := range learnerIDs {
		ids[i] = id.String()
	}

	if _, err := r.db.ExecContext(ctx, query, assignmentID, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to delete allocations: %w", err)
	}

	return nil
}

func (r *AllocationRepository) DeleteByAssignment(ctx context.Context, assignmentID uuid.UUID) error {
	query := `DELETE FROM allocations WHERE assignment_id = $1`

	if _, err := r.db.ExecContext(ctx, query, assignmentID); err != nil {
		return fmt.Errorf("failed to delete allocations: %w", err)
	}

	return nil
}
