package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types published on room channels.
const (
	EventTypeMessageCreated  = "message.created"
	EventTypeMessageEdited   = "message.edited"
	EventTypeMessageDeleted  = "message.deleted"
	EventTypeReactionUpdated = "reaction.updated"
	EventTypeMemberJoined    = "member.joined"
	EventTypeMemberLeft      = "member.left"
	EventTypeRoomClosed      = "room.closed"
)

type Envelope struct {
	EventType  string          `json:"event_type"`
	RoomID     uuid.UUID       `json:"room_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload and wraps it with the event metadata.
func NewEnvelope(eventType string, roomID uuid.UUID, payload interface{}) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventType:  eventType,
		RoomID:     roomID,
		OccurredAt: time.Now(),
		Payload:    data,
	}, nil
}

// RoomChannel is the pubsub channel carrying a room's events.
func RoomChannel(roomID uuid.UUID) string {
	return fmt.Sprintf("room:%s", roomID)
}
