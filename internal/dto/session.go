package dto

import "time"

// SessionResponse is the public view of a session record.
type SessionResponse struct {
	ID           string     `json:"id" example:"sess_1a2b3c4d"`
	UserID       string     `json:"user_id" example:"user_42"`
	Status       string     `json:"status" example:"active"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	LastActiveAt time.Time  `json:"last_active_at"`
}

// LiveSessionResponse describes a session currently running on this node.
type LiveSessionResponse struct {
	SessionID string `json:"session_id" example:"3f1c9d2e-8a4b-4f6d-9c1e-2b7a5d8e0f13"`
	UserID    string `json:"user_id" example:"user_42"`
	State     string `json:"state" example:"streaming"`
	Muted     bool   `json:"muted" example:"false"`
	InFlight  int    `json:"in_flight" example:"2"`
}

// SessionListResponse wraps a list of session records.
type SessionListResponse struct {
	Sessions []SessionResponse `json:"sessions"`
	Count    int               `json:"count" example:"3"`
}
