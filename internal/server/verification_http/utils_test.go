package verification_http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWithURLParam(t *testing.T, target, key, value string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()

	req := requestWithURLParam(t, "/grades/"+id.String(), "grade_id", id.String())
	got, err := parseUUIDParam(req, "grade_id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	req = requestWithURLParam(t, "/grades/abc", "grade_id", "abc")
	_, err = parseUUIDParam(req, "grade_id")
	assert.Error(t, err)

	req = httptest.NewRequest(http.MethodGet, "/grades", nil)
	_, err = parseUUIDParam(req, "grade_id")
	assert.Error(t, err)
}

func TestParseGradeRef(t *testing.T) {
	gradeID := uuid.New()
	assignmentID := uuid.New()
	learnerID := uuid.New()

	target := "/grades/" + gradeID.String() + "/verifications?assignment_id=" + assignmentID.String() + "&learner_id=" + learnerID.String()
	req := requestWithURLParam(t, target, "grade_id", gradeID.String())

	grade, err := parseGradeRef(req)
	require.NoError(t, err)
	assert.Equal(t, gradeID, grade.ID)
	assert.Equal(t, assignmentID, grade.AssignmentID)
	assert.Equal(t, learnerID, grade.LearnerID)
	assert.True(t, grade.IsValid())
}

func TestParseIntQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/search?limit=15&offset=bad", nil)

	assert.Equal(t, 15, parseIntQuery(req, "limit", 0))
	assert.Equal(t, 0, parseIntQuery(req, "offset", 0))
	assert.Equal(t, 25, parseIntQuery(req, "missing", 25))
}

func TestWriteErrorJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	writeErrorJSON(rec, http.StatusNotFound, "no verification slots for grade")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "no verification slots for grade", resp["error"])
}
