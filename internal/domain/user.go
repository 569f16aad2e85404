package domain

import "github.com/google/uuid"

// UserSummary is the host user directory's view of a verifier candidate.
type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email,omitempty"`
}
