package room

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a watch-party room.
type Status string

const (
	StatusWaiting Status = "WAITING"
	StatusActive  Status = "ACTIVE"
	StatusFull    Status = "FULL"
	StatusClosed  Status = "CLOSED"
)

// Room represents the rooms table
type Room struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	MediaID     string    `gorm:"not null;index:idx_rooms_media"`
	OwnerID     uuid.UUID `gorm:"type:uuid;not null"`
	Capacity    int       `gorm:"not null"`
	Status      Status    `gorm:"type:varchar(16);default:'WAITING';not null;index:idx_rooms_status"`
	JoinKeyHash sql.NullString
	CreatedAt   time.Time `gorm:"default:now()"`
	ClosedAt    sql.NullTime
}

// Member represents the room_members table. Rows are never physically
// deleted; leaving sets LeftAt. At most one row per (room, user) is
// active (LeftAt null) at any time.
type Member struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	RoomID    uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_room_members_room_user,priority:1"`
	UserID    uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex:idx_room_members_room_user,priority:2"`
	ProfileID uuid.NullUUID `gorm:"type:uuid"`
	JoinedAt  time.Time     `gorm:"default:now()"`
	LeftAt    sql.NullTime
}

// RoomSequence represents the room_sequences table. LastSequence is the
// highest message seq id handed out for the room; UpdatedAt doubles as the
// room's last-activity marker for idle sweeping.
type RoomSequence struct {
	RoomID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	LastSequence int64     `gorm:"not null;default:0"`
	UpdatedAt    time.Time `gorm:"default:now()"`
}

// IsPrivate reports whether joining requires the room key.
func (r Room) IsPrivate() bool {
	return r.JoinKeyHash.Valid && r.JoinKeyHash.String != ""
}

// Joinable reports whether the room accepts joins in its current status.
// A FULL room is not joinable but is not an error state either; callers
// distinguish the two.
func (s Status) Joinable() bool {
	return s == StatusWaiting || s == StatusActive
}

// StatusAfterJoin returns the status a room must hold once a join brings
// its active member count to activeCount. ownerOnly is true while the
// owner is the sole member, which keeps a freshly created room WAITING.
func StatusAfterJoin(current Status, activeCount, capacity int, ownerOnly bool) Status {
	if current == StatusClosed {
		return StatusClosed
	}
	if activeCount >= capacity {
		return StatusFull
	}
	if ownerOnly && current == StatusWaiting {
		return StatusWaiting
	}
	return StatusActive
}

// StatusAfterLeave returns the status after a member leaves. A FULL room
// drops back to ACTIVE; other states are unchanged.
func StatusAfterLeave(current Status) Status {
	if current == StatusFull {
		return StatusActive
	}
	return current
}

func (Room) TableName() string {
	return "rooms"
}

func (Member) TableName() string {
	return "room_members"
}

func (RoomSequence) TableName() string {
	return "room_sequences"
}
