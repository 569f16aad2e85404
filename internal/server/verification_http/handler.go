package verification_http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"verification_service/internal/domain"
	"verification_service/internal/repository"
	"verification_service/internal/service"
	"verification_service/pkg/logger"
)

const summaryCacheTTL = 30 * time.Second

// Cache is the read side of the summary cache; invalidation happens in the
// service layer, which sees every slot mutation.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration)
}

type VerificationHandler struct {
	verifications service.VerificationServiceInterface
	allocations   service.AllocationServiceInterface
	search        service.SearchServiceInterface
	backup        service.BackupServiceInterface
	cache         Cache
	logger        *logger.Logger
	validate      *validator.Validate
}

func NewVerificationHandler(
	verifications service.VerificationServiceInterface,
	allocations service.AllocationServiceInterface,
	search service.SearchServiceInterface,
	backup service.BackupServiceInterface,
	cache Cache,
	logger *logger.Logger,
) *VerificationHandler {
	return &VerificationHandler{
		verifications: verifications,
		allocations:   allocations,
		search:        search,
		backup:        backup,
		cache:         cache,
		logger:        logger,
		validate:      validator.New(),
	}
}

func (h *VerificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/grades/{grade_id}/verifications", h.ListVerifications)
	r.Post("/grades/{grade_id}/verifications", h.SaveVerifications)
	r.Get("/grades/{grade_id}/verifications/summary", h.GetSummary)

	r.Post("/assignments/{assignment_id}/batch", h.BatchAction)
	r.Get("/assignments/{assignment_id}/verifier-candidates", h.SearchVerifiers)
	r.Get("/assignments/{assignment_id}/export", h.Export)
	r.Post("/assignments/{assignment_id}/import", h.Import)
	r.Delete("/assignments/{assignment_id}", h.DeleteInstance)
}

type slotResponse struct {
	ID            uuid.UUID  `json:"id"`
	AssignmentID  uuid.UUID  `json:"assignment_id"`
	GradeID       uuid.UUID  `json:"grade_id"`
	Status        string     `json:"status"`
	VerifierID    uuid.UUID  `json:"verifier_id"`
	VerifiedBy    *uuid.UUID `json:"verified_by,omitempty"`
	CustomText    *string    `json:"custom_text,omitempty"`
	CommentText   string     `json:"comment_text"`
	CommentFormat string     `json:"comment_format"`
}

func toSlotResponse(slot *domain.VerificationSlot) slotResponse {
	return slotResponse{
		ID:            slot.ID,
		AssignmentID:  slot.AssignmentID,
		GradeID:       slot.GradeID,
		Status:        string(slot.Status),
		VerifierID:    slot.VerifierID,
		VerifiedBy:    slot.VerifiedBy,
		CustomText:    slot.CustomText,
		CommentText:   slot.CommentText,
		CommentFormat: string(slot.CommentFormat),
	}
}

// ListVerifications reconciles the grade's slot set against its allocations
// and returns the complete list.
func (h *VerificationHandler) ListVerifications(w http.ResponseWriter, r *http.Request) {
	grade, err := parseGradeRef(r)
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	slots, err := h.verifications.ReconcileSlots(r.Context(), grade)
	if err != nil {
		h.logger.Error("failed to reconcile slots",
			zap.String("grade_id", grade.ID.String()),
			zap.Error(err),
		)
		writeServiceError(w, err)
		return
	}

	resp := make([]slotResponse, 0, len(slots))
	for _, slot := range slots {
		resp = append(resp, toSlotResponse(slot))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"verifications": resp})
}

type slotUpdateRequest struct {
	Status        string `json:"status"`
	CommentText   string `json:"comment_text"`
	CommentFormat string `json:"comment_format"`
}

type saveRequest struct {
	Updates map[string]slotUpdateRequest `json:"updates" validate:"required,min=1"`
}

func (h *VerificationHandler) SaveVerifications(w http.ResponseWriter, r *http.Request) {
	gradeID, err := parseUUIDParam(r, "grade_id")
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	updates := make(map[uuid.UUID]domain.SlotUpdate, len(req.Updates))
	for rawID, update := range req.Updates {
		slotID, err := uuid.Parse(rawID)
		if err != nil {
			writeErrorJSON(w, http.StatusBadRequest, fmt.Sprintf("invalid slot id %q", rawID))
			return
		}
		status := domain.VerificationStatus("")
		if update.Status != "" {
			status = domain.ToVerificationStatus(update.Status)
			if status == "" {
				writeErrorJSON(w, http.StatusBadRequest, fmt.Sprintf("invalid status %q", update.Status))
				return
			}
		}
		format := domain.CommentFormat("")
		if update.CommentFormat != "" {
			format = domain.CommentFormat(update.CommentFormat)
			if !format.IsValid() {
				writeErrorJSON(w, http.StatusBadRequest, fmt.Sprintf("invalid comment format %q", update.CommentFormat))
				return
			}
		}
		updates[slotID] = domain.SlotUpdate{
			Status:        status,
			CommentText:   update.CommentText,
			CommentFormat: format,
		}
	}

	grade := domain.GradeRef{ID: gradeID}
	if err := h.verifications.Save(r.Context(), grade, updates); err != nil {
		h.logger.Error("failed to save verifications",
			zap.String("grade_id", gradeID.String()),
			zap.Error(err),
		)
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *VerificationHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	gradeID, err := parseUUIDParam(r, "grade_id")
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	key := service.SummaryCacheKey(gradeID)
	if data, ok := h.cache.Get(r.Context(), key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	summary, err := h.verifications.Summary(r.Context(), domain.GradeRef{ID: gradeID})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	data, err := json.Marshal(summary)
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "failed to serialize response")
		return
	}
	h.cache.Set(r.Context(), key, data, summaryCacheTTL)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type batchActionRequest struct {
	Action     string   `json:"action" validate:"required"`
	LearnerIDs []string `json:"learner_ids" validate:"required,min=1,dive,uuid"`
	VerifierID string   `json:"verifier_id" validate:"omitempty,uuid"`
	CustomText *string  `json:"custom_text"`
}

// BatchAction routes the grading batch operations: allocate a verifier to the
// selected learners, or remove all allocated verifiers from them.
func (h *VerificationHandler) BatchAction(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := parseUUIDParam(r, "assignment_id")
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	var req batchActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	learnerIDs := make([]uuid.UUID, len(req.LearnerIDs))
	for i, raw := range req.LearnerIDs {
		learnerIDs[i] = uuid.MustParse(raw)
	}

	switch req.Action {
	case "allocateverifier":
		if req.VerifierID == "" {
			writeErrorJSON(w, http.StatusBadRequest, "verifier_id is required")
			return
		}
		err = h.allocations.Allocate(r.Context(), assignmentID, learnerIDs, uuid.MustParse(req.VerifierID), req.CustomText)
	case "removeallocatedverifiers":
		err = h.allocations.Deallocate(r.Context(), assignmentID, learnerIDs)
	default:
		writeServiceError(w, fmt.Errorf("%w: %s", service.ErrUnsupportedAction, req.Action))
		return
	}

	if err != nil {
		h.logger.Error("batch action failed",
			zap.String("action", req.Action),
			zap.String("assignment_id", assignmentID.String()),
			zap.Error(err),
		)
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *VerificationHandler) SearchVerifiers(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := parseUUIDParam(r, "assignment_id")
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	query := r.URL.Query().Get("query")
	limit := parseIntQuery(r, "limit", 0)
	offset := parseIntQuery(r, "offset", 0)

	users, total, err := h.search.SearchVerifiers(r.Context(), assignmentID, query, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users": users,
		"total": total,
	})
}

func (h *VerificationHandler) Export(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := parseUUIDParam(r, "assignment_id")
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	archive, err := h.backup.Export(r.Context(), assignmentID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, archive)
}

type importRequest struct {
	Archive *service.Archive `json:"archive" validate:"required"`
	// Grade mapping established by the host restore: archived grade id to
	// the restored grade reference.
	Grades map[string]struct {
		ID           uuid.UUID `json:"id"`
		AssignmentID uuid.UUID `json:"assignment_id"`
		LearnerID    uuid.UUID `json:"learner_id"`
	} `json:"grades" validate:"required"`
	Users map[string]uuid.UUID `json:"users"`
}

func (h *VerificationHandler) Import(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := parseUUIDParam(r, "assignment_id")
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	mapping := service.ImportMapping{
		AssignmentID: assignmentID,
		Grades:       make(map[uuid.UUID]domain.GradeRef, len(req.Grades)),
		Users:        make(map[uuid.UUID]uuid.UUID, len(req.Users)),
	}
	for raw, grade := range req.Grades {
		oldID, err := uuid.Parse(raw)
		if err != nil {
			writeErrorJSON(w, http.StatusBadRequest, fmt.Sprintf("invalid grade id %q", raw))
			return
		}
		mapping.Grades[oldID] = domain.GradeRef{
			ID:           grade.ID,
			AssignmentID: grade.AssignmentID,
			LearnerID:    grade.LearnerID,
		}
	}
	for raw, newID := range req.Users {
		oldID, err := uuid.Parse(raw)
		if err != nil {
			writeErrorJSON(w, http.StatusBadRequest, fmt.Sprintf("invalid user id %q", raw))
			return
		}
		mapping.Users[oldID] = newID
	}

	if err := h.backup.Import(r.Context(), req.Archive, mapping); err != nil {
		h.logger.Error("import failed",
			zap.String("assignment_id", assignmentID.String()),
			zap.Error(err),
		)
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *VerificationHandler) DeleteInstance(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := parseUUIDParam(r, "assignment_id")
	if err != nil {
		writeErrorJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.verifications.DeleteInstance(r.Context(), assignmentID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeErrorJSON(w, mapErr(err), err.Error())
}

func mapErr(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidGrade),
		errors.Is(err, service.ErrInvalidArgument),
		errors.Is(err, service.ErrUnsupportedAction):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNoVerifications),
		errors.Is(err, service.ErrGradeNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
