package service

import (
	"context"

	"github.com/google/uuid"

	"verification_service/internal/domain"
)

const defaultSearchLimit = 25

type SearchServiceInterface interface {
	SearchVerifiers(ctx context.Context, assignmentID uuid.UUID, query string, limit, offset int) ([]*domain.UserSummary, int, error)
}

// SearchService finds users who can be allocated as verifiers. Candidates are
// the assignment's graders per the host user directory; the acting user is
// excluded from the results.
type SearchService struct {
	users UserDirectoryClient
}

func NewSearchService(users UserDirectoryClient) *SearchService {
	return &SearchService{users: users}
}

func (s *SearchService) SearchVerifiers(ctx context.Context, assignmentID uuid.UUID, query string, limit, offset int) ([]*domain.UserSummary, int, error) {
	if assignmentID == uuid.Nil {
		return nil, 0, ErrInvalidArgument
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if offset < 0 {
		offset = 0
	}

	// Exclusion happens inside the directory query; filtering the returned
	// page here would leave the total wrong whenever the acting user sits
	// on another page.
	actingUser, _ := actingUserID(ctx)

	return s.users.SearchGraders(ctx, assignmentID, query, actingUser, limit, offset)
}
