package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"verification_service/internal/domain"
)

type AllocationRepository struct {
	mock.Mock
}

func (m *AllocationRepository) Create(ctx context.Context, allocation *domain.Allocation) error {
	args := m.Called(ctx, allocation)
	return args.Error(0)
}

func (m *AllocationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Allocation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Allocation), args.Error(1)
}

func (m *AllocationRepository) ExistsTriple(ctx context.Context, assignmentID, learnerID, verifierID uuid.UUID) (bool, error) {
	args := m.Called(ctx, assignmentID, learnerID, verifierID)
	return args.Bool(0), args.Error(1)
}

func (m *AllocationRepository) ListByLearner(ctx context.Context, assignmentID, learnerID uuid.UUID) ([]*domain.Allocation, error) {
	args := m.Called(ctx, assignmentID, learnerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Allocation), args.Error(1)
}

func (m *AllocationRepository) DeleteByLearners(ctx context.Context, assignmentID uuid.UUID, learnerIDs []uuid.UUID) error {
	args := m.Called(ctx, assignmentID, learnerIDs)
	return args.Error(0)
}

func (m *AllocationRepository) DeleteByAssignment(ctx context.Context, assignmentID uuid.UUID) error {
	args := m.Called(ctx, assignmentID)
	return args.Error(0)
}

type VerificationRepository struct {
	mock.Mock
}

func (m *VerificationRepository) Create(ctx context.Context, slot *domain.VerificationSlot) (bool, error) {
	args := m.Called(ctx, slot)
	return args.Bool(0), args.Error(1)
}

func (m *VerificationRepository) GetByGradeAndVerifier(ctx context.Context, gradeID, verifierID uuid.UUID) (*domain.VerificationSlot, error) {
	args := m.Called(ctx, gradeID, verifierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerificationSlot), args.Error(1)
}

func (m *VerificationRepository) ListByGrade(ctx context.Context, gradeID uuid.UUID) ([]*domain.VerificationSlot, error) {
	args := m.Called(ctx, gradeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.VerificationSlot), args.Error(1)
}

func (m *VerificationRepository) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]*domain.VerificationSlot, error) {
	args := m.Called(ctx, assignmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.VerificationSlot), args.Error(1)
}

func (m *VerificationRepository) Update(ctx context.Context, slot *domain.VerificationSlot) error {
	args := m.Called(ctx, slot)
	return args.Error(0)
}

func (m *VerificationRepository) DeleteByAssignment(ctx context.Context, assignmentID uuid.UUID) error {
	args := m.Called(ctx, assignmentID)
	return args.Error(0)
}
