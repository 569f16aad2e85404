package verification_http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"verification_service/internal/domain"
)

func parsePathParam(r *http.Request, key string) (string, error) {
	val := chi.URLParam(r, key)
	if val == "" {
		return "", fmt.Errorf("missing path param: %s", key)
	}
	return val, nil
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	raw, err := parsePathParam(r, key)
	if err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return id, nil
}

// parseGradeRef builds a grade reference from the grade_id path param and the
// assignment_id/learner_id query params the host passes along.
func parseGradeRef(r *http.Request) (domain.GradeRef, error) {
	gradeID, err := parseUUIDParam(r, "grade_id")
	if err != nil {
		return domain.GradeRef{}, err
	}

	assignmentID, err := uuid.Parse(r.URL.Query().Get("assignment_id"))
	if err != nil {
		return domain.GradeRef{}, fmt.Errorf("invalid assignment_id: %w", err)
	}
	learnerID, err := uuid.Parse(r.URL.Query().Get("learner_id"))
	if err != nil {
		return domain.GradeRef{}, fmt.Errorf("invalid learner_id: %w", err)
	}

	return domain.GradeRef{ID: gradeID, AssignmentID: assignmentID, LearnerID: learnerID}, nil
}

func parseIntQuery(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return val
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "failed to serialize response")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(data)
}

func writeErrorJSON(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	resp, _ := json.Marshal(map[string]string{"error": message})
	_, _ = w.Write(resp)
}
