package models

import "time"

// ActivityVisibility controls where an activity record is surfaced.
type ActivityVisibility string

const (
	ActivityPublic   ActivityVisibility = "public"
	ActivityInternal ActivityVisibility = "internal"
)

// ActivityRecord is a best-effort audit entry emitted after a successful
// chat response. Recording is fire-and-forget: a failed write never
// affects the request that produced it.
type ActivityRecord struct {
	ID         string             `json:"id"`
	ActionType string             `json:"action_type"`
	Summary    string             `json:"summary"`
	Visibility ActivityVisibility `json:"visibility"`
	Channel    ChannelType        `json:"channel,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}
