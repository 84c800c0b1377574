package chat

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Message types
const (
	TypeText     = "TEXT"
	TypeEmoji    = "EMOJI"
	TypeSystem   = "SYSTEM"
	TypeReaction = "REACTION"
)

// ValidType reports whether t is one of the four message kinds.
func ValidType(t string) bool {
	switch t {
	case TypeText, TypeEmoji, TypeSystem, TypeReaction:
		return true
	}
	return false
}

// Editable reports whether messages of type t may be edited by their
// author. SYSTEM and REACTION messages are immutable.
func Editable(t string) bool {
	return t == TypeText || t == TypeEmoji
}

// Message represents the messages table. SeqID is strictly increasing per
// room and is the pagination cursor. Deletion is a tombstone: DeletedAt is
// set and Content cleared, but the row keeps its id and parent linkage so
// replies stay addressable.
type Message struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	RoomID    uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_messages_room_seq,priority:1"`
	SeqID     int64          `gorm:"not null;uniqueIndex:idx_messages_room_seq,priority:2,sort:desc"`
	SenderID  uuid.UUID      `gorm:"type:uuid;not null"`
	ProfileID uuid.NullUUID  `gorm:"type:uuid"`
	Type      string         `gorm:"type:varchar(16);default:'TEXT';not null"`
	Content   sql.NullString `gorm:"type:text"`
	ParentID  uuid.NullUUID  `gorm:"type:uuid"`
	EditedAt  sql.NullTime
	DeletedAt sql.NullTime
	CreatedAt time.Time `gorm:"default:now()"`
	UpdatedAt time.Time `gorm:"default:now()"`
}

// MessageReaction represents the message_reactions table, one row per
// (message, user, emoji). Aggregate counts are derived from these rows,
// never stored.
type MessageReaction struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	MessageID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_message_user_emoji,priority:1"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_message_user_emoji,priority:2"`
	Emoji     string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_message_user_emoji,priority:3"`
	CreatedAt time.Time `gorm:"default:now()"`
}

// IsEdited reports whether the message has been edited.
func (m Message) IsEdited() bool {
	return m.EditedAt.Valid
}

// IsDeleted reports whether the message is a tombstone.
func (m Message) IsDeleted() bool {
	return m.DeletedAt.Valid
}

func (Message) TableName() string {
	return "messages"
}

func (MessageReaction) TableName() string {
	return "message_reactions"
}
