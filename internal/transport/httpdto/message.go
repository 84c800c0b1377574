package httpdto

import (
	"time"

	"watchparty/internal/domain/chat"

	"github.com/google/uuid"
)

type PostMessageRequest struct {
	Content   string `json:"content"`
	Type      string `json:"type,omitempty"`
	ParentID  string `json:"parent_id,omitempty"`
	ProfileID string `json:"profile_id,omitempty"`
}

type EditMessageRequest struct {
	Content string `json:"content"`
}

type ReactRequest struct {
	Emoji string `json:"emoji"`
}

type MessageResponse struct {
	ID        string         `json:"id"`
	RoomID    string         `json:"room_id"`
	Seq       int64          `json:"seq"`
	SenderID  string         `json:"sender_id"`
	Type      string         `json:"type"`
	Content   string         `json:"content"`
	ParentID  string         `json:"parent_id,omitempty"`
	IsEdited  bool           `json:"is_edited"`
	IsDeleted bool           `json:"is_deleted"`
	Reactions map[string]int `json:"reactions,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func FromMessage(m chat.Message, reactions map[string]int) MessageResponse {
	resp := MessageResponse{
		ID:        m.ID.String(),
		RoomID:    m.RoomID.String(),
		Seq:       m.SeqID,
		SenderID:  m.SenderID.String(),
		Type:      m.Type,
		IsEdited:  m.IsEdited(),
		IsDeleted: m.IsDeleted(),
		Reactions: reactions,
		CreatedAt: m.CreatedAt,
	}
	// Tombstones keep their slot in the log but carry no content.
	if !m.IsDeleted() && m.Content.Valid {
		resp.Content = m.Content.String
	}
	if m.ParentID.Valid {
		resp.ParentID = m.ParentID.UUID.String()
	}
	return resp
}

func FromMessages(messages []chat.Message, reactions map[uuid.UUID]map[string]int) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, FromMessage(m, reactions[m.ID]))
	}
	return out
}

type MessagePageResponse struct {
	Messages   []MessageResponse `json:"messages"`
	HasMore    bool              `json:"has_more"`
	NextCursor int64             `json:"next_cursor,omitempty"`
}

type ReactionResponse struct {
	MessageID string         `json:"message_id"`
	Reacted   bool           `json:"reacted"`
	Reactions map[string]int `json:"reactions"`
}
