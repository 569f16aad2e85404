package verification_http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"verification_service/internal/domain"
	"verification_service/internal/service"
	"verification_service/pkg/logger"

	handler "verification_service/internal/server/verification_http"
)

type MockVerificationService struct {
	mock.Mock
}

func (m *MockVerificationService) ReconcileSlots(ctx context.Context, grade domain.GradeRef) ([]*domain.VerificationSlot, error) {
	args := m.Called(ctx, grade)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.VerificationSlot), args.Error(1)
}

func (m *MockVerificationService) Save(ctx context.Context, grade domain.GradeRef, updates map[uuid.UUID]domain.SlotUpdate) error {
	args := m.Called(ctx, grade, updates)
	return args.Error(0)
}

func (m *MockVerificationService) IsFullyVerified(ctx context.Context, grade domain.GradeRef) (bool, error) {
	args := m.Called(ctx, grade)
	return args.Bool(0), args.Error(1)
}

func (m *MockVerificationService) IsFeedbackModified(ctx context.Context, grade domain.GradeRef, updates map[uuid.UUID]domain.SlotUpdate) (bool, error) {
	args := m.Called(ctx, grade, updates)
	return args.Bool(0), args.Error(1)
}

func (m *MockVerificationService) Summary(ctx context.Context, grade domain.GradeRef) (*service.VerificationSummary, error) {
	args := m.Called(ctx, grade)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.VerificationSummary), args.Error(1)
}

func (m *MockVerificationService) DeleteInstance(ctx context.Context, assignmentID uuid.UUID) error {
	args := m.Called(ctx, assignmentID)
	return args.Error(0)
}

type MockAllocationService struct {
	mock.Mock
}

func (m *MockAllocationService) Allocate(ctx context.Context, assignmentID uuid.UUID, learnerIDs []uuid.UUID, verifierID uuid.UUID, customText *string) error {
	args := m.Called(ctx, assignmentID, learnerIDs, verifierID, customText)
	return args.Error(0)
}

func (m *MockAllocationService) Deallocate(ctx context.Context, assignmentID uuid.UUID, learnerIDs []uuid.UUID) error {
	args := m.Called(ctx, assignmentID, learnerIDs)
	return args.Error(0)
}

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) SearchVerifiers(ctx context.Context, assignmentID uuid.UUID, query string, limit, offset int) ([]*domain.UserSummary, int, error) {
	args := m.Called(ctx, assignmentID, query, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.UserSummary), args.Int(1), args.Error(2)
}

type MockBackupService struct {
	mock.Mock
}

func (m *MockBackupService) Export(ctx context.Context, assignmentID uuid.UUID) (*service.Archive, error) {
	args := m.Called(ctx, assignmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Archive), args.Error(1)
}

func (m *MockBackupService) Import(ctx context.Context, archive *service.Archive, mapping service.ImportMapping) error {
	args := m.Called(ctx, archive, mapping)
	return args.Error(0)
}

type fakeCache struct {
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool) {
	data, ok := c.data[key]
	return data, ok
}

func (c *fakeCache) Set(_ context.Context, key string, data []byte, _ time.Duration) {
	c.data[key] = data
}

type testEnv struct {
	router        chi.Router
	verifications *MockVerificationService
	allocations   *MockAllocationService
	search        *MockSearchService
	backup        *MockBackupService
	cache         *fakeCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		verifications: new(MockVerificationService),
		allocations:   new(MockAllocationService),
		search:        new(MockSearchService),
		backup:        new(MockBackupService),
		cache:         newFakeCache(),
	}
	h := handler.NewVerificationHandler(env.verifications, env.allocations, env.search, env.backup, env.cache, logger.NewDevelopment())
	env.router = chi.NewRouter()
	h.RegisterRoutes(env.router)
	return env
}

func (env *testEnv) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestListVerifications(t *testing.T) {
	env := newTestEnv(t)
	grade := domain.GradeRef{ID: uuid.New(), AssignmentID: uuid.New(), LearnerID: uuid.New()}

	env.verifications.On("ReconcileSlots", mock.Anything, grade).
		Return([]*domain.VerificationSlot{{
			ID:            uuid.New(),
			AssignmentID:  grade.AssignmentID,
			GradeID:       grade.ID,
			Status:        domain.StatusChangesRequested,
			VerifierID:    uuid.New(),
			CommentFormat: domain.FormatHTML,
		}}, nil)

	target := fmt.Sprintf("/grades/%s/verifications?assignment_id=%s&learner_id=%s", grade.ID, grade.AssignmentID, grade.LearnerID)
	rec := env.do(t, http.MethodGet, target, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Verifications []struct {
			ID     uuid.UUID `json:"id"`
			Status string    `json:"status"`
		} `json:"verifications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Verifications, 1)
	assert.Equal(t, "CHANGES_REQUESTED", resp.Verifications[0].Status)
}

func TestListVerifications_MissingQueryParams(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/grades/%s/verifications", uuid.New()), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env.verifications.AssertNotCalled(t, "ReconcileSlots", mock.Anything, mock.Anything)
}

func TestSaveVerifications(t *testing.T) {
	env := newTestEnv(t)
	gradeID := uuid.New()
	slotID := uuid.New()

	env.verifications.On("Save", mock.Anything, domain.GradeRef{ID: gradeID}, map[uuid.UUID]domain.SlotUpdate{
		slotID: {
			Status:      domain.StatusVerified,
			CommentText: "approved",
		},
	}).Return(nil)

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/grades/%s/verifications", gradeID), map[string]interface{}{
		"updates": map[string]interface{}{
			slotID.String(): map[string]string{
				"status":       "VERIFIED",
				"comment_text": "approved",
			},
		},
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	env.verifications.AssertExpectations(t)
}

func TestSaveVerifications_InvalidStatus(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/grades/%s/verifications", uuid.New()), map[string]interface{}{
		"updates": map[string]interface{}{
			uuid.New().String(): map[string]string{"status": "SIGNED_OFF"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env.verifications.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestSaveVerifications_InvalidFormat(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/grades/%s/verifications", uuid.New()), map[string]interface{}{
		"updates": map[string]interface{}{
			uuid.New().String(): map[string]string{
				"comment_text":   "x",
				"comment_format": "RTF",
			},
		},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env.verifications.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestSaveVerifications_NoSlots(t *testing.T) {
	env := newTestEnv(t)
	gradeID := uuid.New()

	env.verifications.On("Save", mock.Anything, mock.Anything, mock.Anything).
		Return(service.ErrNoVerifications)

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/grades/%s/verifications", gradeID), map[string]interface{}{
		"updates": map[string]interface{}{
			uuid.New().String(): map[string]string{"comment_text": "x"},
		},
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSummary_CachesResponse(t *testing.T) {
	env := newTestEnv(t)
	gradeID := uuid.New()

	env.verifications.On("Summary", mock.Anything, domain.GradeRef{ID: gradeID}).
		Return(&service.VerificationSummary{Pending: 1, Total: 2, Slots: []service.SlotSummary{}}, nil).
		Once()

	target := fmt.Sprintf("/grades/%s/verifications/summary", gradeID)

	rec := env.do(t, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Second request is served from cache; the single-use expectation above
	// would fail if the service were hit again.
	rec = env.do(t, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary service.VerificationSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 1, summary.Pending)
	assert.Equal(t, 2, summary.Total)

	env.verifications.AssertExpectations(t)
}

func TestBatchAction_Allocate(t *testing.T) {
	env := newTestEnv(t)
	assignmentID := uuid.New()
	learnerID := uuid.New()
	verifierID := uuid.New()

	env.allocations.On("Allocate", mock.Anything, assignmentID, []uuid.UUID{learnerID}, verifierID, mock.Anything).
		Return(nil)

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/assignments/%s/batch", assignmentID), map[string]interface{}{
		"action":      "allocateverifier",
		"learner_ids": []string{learnerID.String()},
		"verifier_id": verifierID.String(),
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	env.allocations.AssertExpectations(t)
}

func TestBatchAction_Deallocate(t *testing.T) {
	env := newTestEnv(t)
	assignmentID := uuid.New()
	learnerID := uuid.New()

	env.allocations.On("Deallocate", mock.Anything, assignmentID, []uuid.UUID{learnerID}).
		Return(nil)

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/assignments/%s/batch", assignmentID), map[string]interface{}{
		"action":      "removeallocatedverifiers",
		"learner_ids": []string{learnerID.String()},
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestBatchAction_UnknownAction(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/assignments/%s/batch", uuid.New()), map[string]interface{}{
		"action":      "promoteeveryone",
		"learner_ids": []string{uuid.New().String()},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env.allocations.AssertNotCalled(t, "Allocate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBatchAction_PermissionDenied(t *testing.T) {
	env := newTestEnv(t)
	assignmentID := uuid.New()

	env.allocations.On("Deallocate", mock.Anything, assignmentID, mock.Anything).
		Return(service.ErrPermissionDenied)

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/assignments/%s/batch", assignmentID), map[string]interface{}{
		"action":      "removeallocatedverifiers",
		"learner_ids": []string{uuid.New().String()},
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSearchVerifiers(t *testing.T) {
	env := newTestEnv(t)
	assignmentID := uuid.New()

	env.search.On("SearchVerifiers", mock.Anything, assignmentID, "dana", 10, 0).
		Return([]*domain.UserSummary{{ID: uuid.New(), FullName: "Dana Reviewer"}}, 1, nil)

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/assignments/%s/verifier-candidates?query=dana&limit=10", assignmentID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Users []*domain.UserSummary `json:"users"`
		Total int                   `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Users, 1)
	assert.Equal(t, "Dana Reviewer", resp.Users[0].FullName)
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	assignmentID := uuid.New()

	env.backup.On("Export", mock.Anything, assignmentID).
		Return(&service.Archive{
			AssignmentID: assignmentID,
			UserIDFields: []string{"verifier_id", "verified_by"},
		}, nil)

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/assignments/%s/export", assignmentID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var archive service.Archive
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &archive))
	assert.Equal(t, assignmentID, archive.AssignmentID)
}

func TestImport(t *testing.T) {
	env := newTestEnv(t)
	assignmentID := uuid.New()
	oldGrade := uuid.New()
	restored := domain.GradeRef{ID: uuid.New(), AssignmentID: assignmentID, LearnerID: uuid.New()}

	env.backup.On("Import", mock.Anything, mock.AnythingOfType("*service.Archive"), mock.MatchedBy(func(m service.ImportMapping) bool {
		grade, ok := m.Grades[oldGrade]
		return m.AssignmentID == assignmentID && ok && grade == restored
	})).Return(nil)

	rec := env.do(t, http.MethodPost, fmt.Sprintf("/assignments/%s/import", assignmentID), map[string]interface{}{
		"archive": map[string]interface{}{
			"assignment_id": uuid.New().String(),
			"grades":        []interface{}{},
		},
		"grades": map[string]interface{}{
			oldGrade.String(): map[string]string{
				"id":            restored.ID.String(),
				"assignment_id": restored.AssignmentID.String(),
				"learner_id":    restored.LearnerID.String(),
			},
		},
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	env.backup.AssertExpectations(t)
}

func TestDeleteInstance_HTTP(t *testing.T) {
	env := newTestEnv(t)
	assignmentID := uuid.New()

	env.verifications.On("DeleteInstance", mock.Anything, assignmentID).Return(nil)

	rec := env.do(t, http.MethodDelete, fmt.Sprintf("/assignments/%s", assignmentID), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	env.verifications.AssertExpectations(t)
}
