package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/hms-gateway/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventStaffProfileCreated EventType = "staff_profile_created"
	EventStaffProfileUpdated EventType = "staff_profile_updated"
	EventStaffSignedUp       EventType = "staff_signed_up"
	EventStaffSignedIn       EventType = "staff_signed_in"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	StaffID   string      `json:"staff_id"`
	ActorID   string      `json:"actor_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with an id and the current time.
func NewEvent(eventType EventType, staffID, actorID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		StaffID:   staffID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// StaffProfilePayload describes a created or updated profile.
type StaffProfilePayload struct {
	Role       domain.Role `json:"role"`
	Department string      `json:"department"`
	IsActive   bool        `json:"is_active"`
	// Source is "signup", "lazy_default" or "admin_update".
	Source string `json:"source"`
}

// StaffSignedInPayload payload.
type StaffSignedInPayload struct {
	Role domain.Role `json:"role"`
}

// StaffSignedUpPayload payload.
type StaffSignedUpPayload struct {
	Role                domain.Role `json:"role"`
	ConfirmationPending bool        `json:"confirmation_pending"`
}
