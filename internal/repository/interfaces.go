package repository

import (
	"context"
	"time"

	"watchparty/internal/domain/chat"
	"watchparty/internal/domain/room"

	"github.com/google/uuid"
)

// RoomRepository owns rooms, room_members and room_sequences. It is the
// only component that mutates room status and membership.
type RoomRepository interface {
	Create(ctx context.Context, r *room.Room, owner *room.Member) error
	GetByID(ctx context.Context, id uuid.UUID) (room.Room, error)
	ActiveMemberCount(ctx context.Context, roomID uuid.UUID) (int64, error)
	ListActiveMembers(ctx context.Context, roomID uuid.UUID) ([]room.Member, error)
	GetActiveMember(ctx context.Context, roomID, userID uuid.UUID) (room.Member, error)

	// AddMemberIfCapacity performs the join as a single atomic
	// test-and-increment: the room row is locked, the active member count
	// re-checked under the lock, and the membership inserted (or
	// reactivated) only if a seat remains. Returns ErrNotFound for a
	// missing or closed room and ErrRoomFull when no seat is left.
	AddMemberIfCapacity(ctx context.Context, roomID, userID uuid.UUID, profileID uuid.NullUUID) (room.Member, error)

	// MarkLeft sets LeftAt on the active membership and, when the room was
	// FULL, drops it back to ACTIVE. Reports whether a membership row was
	// actually closed; a second leave is a no-op, not an error.
	MarkLeft(ctx context.Context, roomID, userID uuid.UUID) (bool, error)

	Close(ctx context.Context, roomID uuid.UUID) error
	ListIdle(ctx context.Context, cutoff time.Time) ([]room.Room, error)
}

// ChatRepository owns messages and message_reactions.
type ChatRepository interface {
	// Create assigns the room's next seq id and inserts the message in one
	// transaction so ids are strictly increasing per room.
	Create(ctx context.Context, m *chat.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (chat.Message, error)

	// GetRoomMessages returns up to limit messages with seq id below
	// beforeSeq (0 means newest), ordered seq id descending. Tombstoned
	// rows are included so threads stay intact.
	GetRoomMessages(ctx context.Context, roomID uuid.UUID, beforeSeq int64, limit int) ([]chat.Message, error)
	ListRoomMessages(ctx context.Context, roomID uuid.UUID) ([]chat.Message, error)

	Update(ctx context.Context, m chat.Message) error
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// ToggleReaction adds the (message, user, emoji) row if absent and
	// removes it if present, reporting whether the reaction is now set.
	ToggleReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (bool, error)
	ReactionCounts(ctx context.Context, messageIDs []uuid.UUID) (map[uuid.UUID]map[string]int, error)
}
