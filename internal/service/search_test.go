package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"verification_service/internal/domain"
	"verification_service/internal/service"
	"verification_service/pkg/ctxdata"
)

type MockUserDirectoryClient struct {
	mock.Mock
}

func (m *MockUserDirectoryClient) SearchGraders(ctx context.Context, assignmentID uuid.UUID, query string, excludeID uuid.UUID, limit, offset int) ([]*domain.UserSummary, int, error) {
	args := m.Called(ctx, assignmentID, query, excludeID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.UserSummary), args.Int(1), args.Error(2)
}

func TestSearchVerifiers_InvalidAssignment(t *testing.T) {
	svc := service.NewSearchService(new(MockUserDirectoryClient))

	_, _, err := svc.SearchVerifiers(context.Background(), uuid.Nil, "", 10, 0)
	assert.ErrorIs(t, err, service.ErrInvalidArgument)
}

// The acting user is excluded inside the directory query, keeping the total
// consistent no matter which page they would have landed on.
func TestSearchVerifiers_ExcludesActingUser(t *testing.T) {
	users := new(MockUserDirectoryClient)
	svc := service.NewSearchService(users)

	assignmentID := uuid.New()
	actingUser := uuid.New()
	other := &domain.UserSummary{ID: uuid.New(), FullName: "Dana Reviewer"}

	users.On("SearchGraders", mock.Anything, assignmentID, "rev", actingUser, 10, 0).
		Return([]*domain.UserSummary{other}, 1, nil)

	ctx := ctxdata.WithUserID(context.Background(), actingUser.String())
	results, total, err := svc.SearchVerifiers(ctx, assignmentID, "rev", 10, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, total)
	require.Len(t, results, 1)
	assert.Equal(t, other.ID, results[0].ID)
	users.AssertExpectations(t)
}

func TestSearchVerifiers_DefaultsLimit(t *testing.T) {
	users := new(MockUserDirectoryClient)
	svc := service.NewSearchService(users)
	assignmentID := uuid.New()

	// No acting user in context: nobody is excluded.
	users.On("SearchGraders", mock.Anything, assignmentID, "", uuid.Nil, 25, 0).
		Return([]*domain.UserSummary{}, 0, nil)

	_, _, err := svc.SearchVerifiers(context.Background(), assignmentID, "", 0, -5)
	require.NoError(t, err)
	users.AssertExpectations(t)
}
