package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"verification_service/internal/domain"
	"verification_service/internal/service"
)

// GradingClient resolves grades and submissions against the host grading
// system's internal JSON API.
type GradingClient struct {
	baseURL string
	client  *http.Client
}

func NewGradingClient(baseURL string, timeout time.Duration) *GradingClient {
	return &GradingClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *GradingClient) GetGrade(ctx context.Context, learnerID, assignmentID uuid.UUID) (*domain.GradeRef, error) {
	endpoint := fmt.Sprintf("%s/grades?learner_id=%s&assignment_id=%s",
		c.baseURL, url.QueryEscape(learnerID.String()), url.QueryEscape(assignmentID.String()))
	return c.fetchGrade(ctx, endpoint)
}

func (c *GradingClient) GetSubmissionGrade(ctx context.Context, submissionID uuid.UUID) (*domain.GradeRef, error) {
	endpoint := fmt.Sprintf("%s/submissions/%s/grade", c.baseURL, submissionID)
	return c.fetchGrade(ctx, endpoint)
}

func (c *GradingClient) fetchGrade(ctx context.Context, endpoint string) (*domain.GradeRef, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build grade request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("grade request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, service.ErrGradeNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("grade request failed with status %d", resp.StatusCode)
	}

	var payload struct {
		ID           uuid.UUID `json:"id"`
		AssignmentID uuid.UUID `json:"assignment_id"`
		LearnerID    uuid.UUID `json:"learner_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode grade response: %w", err)
	}

	return &domain.GradeRef{
		ID:           payload.ID,
		AssignmentID: payload.AssignmentID,
		LearnerID:    payload.LearnerID,
	}, nil
}
