package httpdto

import (
	"time"

	"watchparty/internal/domain/room"
)

type CreateRoomRequest struct {
	MediaID  string `json:"media_id"`
	Capacity int    `json:"capacity"`
	JoinKey  string `json:"join_key,omitempty"`
}

type JoinRoomRequest struct {
	ProfileID string `json:"profile_id,omitempty"`
	JoinKey   string `json:"join_key,omitempty"`
}

type RoomResponse struct {
	ID          string     `json:"id"`
	MediaID     string     `json:"media_id"`
	OwnerID     string     `json:"owner_id"`
	Capacity    int        `json:"capacity"`
	Status      string     `json:"status"`
	Private     bool       `json:"private"`
	MemberCount int64      `json:"member_count"`
	CreatedAt   time.Time  `json:"created_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

func FromRoom(rm room.Room, memberCount int64) RoomResponse {
	resp := RoomResponse{
		ID:          rm.ID.String(),
		MediaID:     rm.MediaID,
		OwnerID:     rm.OwnerID.String(),
		Capacity:    rm.Capacity,
		Status:      string(rm.Status),
		Private:     rm.IsPrivate(),
		MemberCount: memberCount,
		CreatedAt:   rm.CreatedAt,
	}
	if rm.ClosedAt.Valid {
		t := rm.ClosedAt.Time
		resp.ClosedAt = &t
	}
	return resp
}

type MemberResponse struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	UserID    string    `json:"user_id"`
	ProfileID string    `json:"profile_id,omitempty"`
	JoinedAt  time.Time `json:"joined_at"`
}

func FromMember(m room.Member) MemberResponse {
	resp := MemberResponse{
		ID:       m.ID.String(),
		RoomID:   m.RoomID.String(),
		UserID:   m.UserID.String(),
		JoinedAt: m.JoinedAt,
	}
	if m.ProfileID.Valid {
		resp.ProfileID = m.ProfileID.UUID.String()
	}
	return resp
}

func FromMembers(members []room.Member) []MemberResponse {
	out := make([]MemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, FromMember(m))
	}
	return out
}
