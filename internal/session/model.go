package session

import "time"

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// Record is the persisted trace of one live coaching session.
type Record struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Status       Status     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	LastActiveAt time.Time  `json:"last_active_at"`

	Turns         int `json:"turns"`
	Interruptions int `json:"interruptions"`
}

func (r *Record) RedisKey() string {
	return "coach:session:" + r.ID
}
