package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"verification_service/internal/domain"
)

// UserClient queries the host user directory for verifier candidates.
type UserClient struct {
	baseURL string
	client  *http.Client
}

func NewUserClient(baseURL string, timeout time.Duration) *UserClient {
	return &UserClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *UserClient) SearchGraders(ctx context.Context, assignmentID uuid.UUID, query string, excludeID uuid.UUID, limit, offset int) ([]*domain.UserSummary, int, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	if excludeID != uuid.Nil {
		params.Set("exclude_user_id", excludeID.String())
	}

	endpoint := fmt.Sprintf("%s/assignments/%s/graders?%s", c.baseURL, assignmentID, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build search request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("search request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("search request failed with status %d", resp.StatusCode)
	}

	var payload struct {
		Users []*domain.UserSummary `json:"users"`
		Total int                   `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, 0, fmt.Errorf("failed to decode search response: %w", err)
	}

	return payload.Users, payload.Total, nil
}
