package services

import (
	"context"
	"database/sql"
	"strings"
	"time"
	"unicode/utf8"

	"watchparty/internal/domain/chat"
	"watchparty/internal/domain/room"
	"watchparty/internal/events"
	"watchparty/internal/proxy"
	"watchparty/internal/repository"
	watchparty_errors "watchparty/pkg/errors"
	"watchparty/pkg/logger"

	"github.com/google/uuid"
)

const maxEmojiLength = 32

type ChatService struct {
	chatRepo  repository.ChatRepository
	roomRepo  repository.RoomRepository
	access    *proxy.AccessControl
	publisher events.Publisher
	log       *logger.Logger

	maxContentLength int
	pageSizeDefault  int
	pageSizeMax      int
}

func NewChatService(chatRepo repository.ChatRepository, roomRepo repository.RoomRepository, access *proxy.AccessControl, l *logger.Logger) *ChatService {
	return &ChatService{
		chatRepo:         chatRepo,
		roomRepo:         roomRepo,
		access:           access,
		log:              l,
		maxContentLength: 4000,
		pageSizeDefault:  50,
		pageSizeMax:      100,
	}
}

func (s *ChatService) SetPublisher(publisher events.Publisher) { s.publisher = publisher }

func (s *ChatService) SetLimits(maxContentLength, pageSizeDefault, pageSizeMax int) {
	if maxContentLength > 0 {
		s.maxContentLength = maxContentLength
	}
	if pageSizeDefault > 0 {
		s.pageSizeDefault = pageSizeDefault
	}
	if pageSizeMax > 0 {
		s.pageSizeMax = pageSizeMax
	}
}

type PostMessageInput struct {
	RoomID    uuid.UUID
	SenderID  uuid.UUID
	ProfileID uuid.NullUUID
	Content   string
	Type      string
	ParentID  uuid.NullUUID
}

func (s *ChatService) Post(ctx context.Context, in PostMessageInput) (chat.Message, error) {
	if err := s.requireOpenRoom(ctx, in.RoomID); err != nil {
		return chat.Message{}, err
	}
	if s.access != nil {
		if err := s.access.RequireMember(ctx, in.RoomID, in.SenderID); err != nil {
			return chat.Message{}, err
		}
	}

	content := strings.TrimSpace(in.Content)
	if content == "" || utf8.RuneCountInString(content) > s.maxContentLength {
		return chat.Message{}, watchparty_errors.ErrInvalidInput
	}
	if in.Type == "" {
		in.Type = chat.TypeText
	}
	if !chat.ValidType(in.Type) || in.Type == chat.TypeSystem {
		return chat.Message{}, watchparty_errors.ErrInvalidInput
	}

	if in.ParentID.Valid {
		parent, err := s.chatRepo.GetByID(ctx, in.ParentID.UUID)
		if err != nil {
			return chat.Message{}, watchparty_errors.ErrInvalidInput
		}
		if parent.RoomID != in.RoomID {
			return chat.Message{}, watchparty_errors.ErrInvalidInput
		}
		// Threads are one level deep: replying to a reply is rejected. A
		// tombstoned parent is still a valid anchor.
		if parent.ParentID.Valid {
			return chat.Message{}, watchparty_errors.ErrInvalidInput
		}
	}

	msg := chat.Message{
		ID:        uuid.New(),
		RoomID:    in.RoomID,
		SenderID:  in.SenderID,
		ProfileID: in.ProfileID,
		Type:      in.Type,
		Content:   sql.NullString{String: content, Valid: true},
		ParentID:  in.ParentID,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.chatRepo.Create(ctx, &msg); err != nil {
		return chat.Message{}, err
	}

	s.publish(ctx, events.EventTypeMessageCreated, msg.RoomID, msg)
	return msg, nil
}

// PostSystem appends a SYSTEM notice on behalf of the service itself,
// bypassing membership checks.
func (s *ChatService) PostSystem(ctx context.Context, roomID uuid.UUID, content string) error {
	if err := s.requireOpenRoom(ctx, roomID); err != nil {
		return err
	}
	msg := chat.Message{
		ID:        uuid.New(),
		RoomID:    roomID,
		SenderID:  uuid.Nil,
		Type:      chat.TypeSystem,
		Content:   sql.NullString{String: content, Valid: true},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.chatRepo.Create(ctx, &msg); err != nil {
		return err
	}
	s.publish(ctx, events.EventTypeMessageCreated, roomID, msg)
	return nil
}

// Edit rewrites a message's content. Author-only, TEXT and EMOJI only.
func (s *ChatService) Edit(ctx context.Context, messageID, userID uuid.UUID, newContent string) (chat.Message, error) {
	msg, err := s.chatRepo.GetByID(ctx, messageID)
	if err != nil {
		return chat.Message{}, err
	}
	if msg.IsDeleted() {
		return chat.Message{}, watchparty_errors.ErrNotFound
	}
	if err := s.requireOpenRoom(ctx, msg.RoomID); err != nil {
		return chat.Message{}, err
	}
	if msg.SenderID != userID {
		return chat.Message{}, watchparty_errors.ErrForbidden
	}
	if !chat.Editable(msg.Type) {
		return chat.Message{}, watchparty_errors.ErrInvalidInput
	}

	content := strings.TrimSpace(newContent)
	if content == "" || utf8.RuneCountInString(content) > s.maxContentLength {
		return chat.Message{}, watchparty_errors.ErrInvalidInput
	}

	now := time.Now()
	msg.Content = sql.NullString{String: content, Valid: true}
	msg.EditedAt = sql.NullTime{Time: now, Valid: true}
	msg.UpdatedAt = now
	if err := s.chatRepo.Update(ctx, msg); err != nil {
		return chat.Message{}, err
	}

	s.publish(ctx, events.EventTypeMessageEdited, msg.RoomID, msg)
	return msg, nil
}

// Delete tombstones a message. The author or the room owner may delete;
// deleting an already deleted message is a no-op.
func (s *ChatService) Delete(ctx context.Context, messageID, requesterID uuid.UUID) error {
	msg, err := s.chatRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.IsDeleted() {
		return nil
	}
	if err := s.requireOpenRoom(ctx, msg.RoomID); err != nil {
		return err
	}

	if msg.SenderID != requesterID {
		owner, err := s.access.IsOwner(ctx, msg.RoomID, requesterID)
		if err != nil {
			return err
		}
		if !owner {
			return watchparty_errors.ErrForbidden
		}
	}

	if err := s.chatRepo.SoftDelete(ctx, messageID); err != nil {
		return err
	}

	s.publish(ctx, events.EventTypeMessageDeleted, msg.RoomID, map[string]string{
		"message_id": messageID.String(),
	})
	return nil
}

type ReactionResult struct {
	MessageID uuid.UUID
	Reacted   bool
	Counts    map[string]int
}

// React toggles the caller's emoji reaction on a message.
func (s *ChatService) React(ctx context.Context, messageID, userID uuid.UUID, emoji string) (ReactionResult, error) {
	if emoji == "" || utf8.RuneCountInString(emoji) > maxEmojiLength {
		return ReactionResult{}, watchparty_errors.ErrInvalidInput
	}

	msg, err := s.chatRepo.GetByID(ctx, messageID)
	if err != nil {
		return ReactionResult{}, err
	}
	if msg.IsDeleted() {
		return ReactionResult{}, watchparty_errors.ErrNotFound
	}
	if err := s.requireOpenRoom(ctx, msg.RoomID); err != nil {
		return ReactionResult{}, err
	}
	if s.access != nil {
		if err := s.access.RequireMember(ctx, msg.RoomID, userID); err != nil {
			return ReactionResult{}, err
		}
	}

	reacted, err := s.chatRepo.ToggleReaction(ctx, messageID, userID, emoji)
	if err != nil {
		return ReactionResult{}, err
	}

	counts, err := s.chatRepo.ReactionCounts(ctx, []uuid.UUID{messageID})
	if err != nil {
		return ReactionResult{}, err
	}

	result := ReactionResult{
		MessageID: messageID,
		Reacted:   reacted,
		Counts:    counts[messageID],
	}
	if result.Counts == nil {
		result.Counts = map[string]int{}
	}

	s.publish(ctx, events.EventTypeReactionUpdated, msg.RoomID, result)
	return result, nil
}

type MessagePage struct {
	Messages   []chat.Message
	Reactions  map[uuid.UUID]map[string]int
	HasMore    bool
	NextCursor int64
}

// GetRoomMessages pages through a room's history newest-first. cursor is
// the seq id of the last message of the previous page (0 for the first
// page) and bounds the next page exclusively, so pages already handed out
// never shift as new messages arrive. Closed rooms stay readable.
func (s *ChatService) GetRoomMessages(ctx context.Context, roomID uuid.UUID, limit int, cursor int64) (MessagePage, error) {
	if _, err := s.roomRepo.GetByID(ctx, roomID); err != nil {
		return MessagePage{}, err
	}

	if limit <= 0 {
		limit = s.pageSizeDefault
	}
	if limit > s.pageSizeMax {
		limit = s.pageSizeMax
	}

	// Fetch one extra row to learn whether another page exists.
	messages, err := s.chatRepo.GetRoomMessages(ctx, roomID, cursor, limit+1)
	if err != nil {
		return MessagePage{}, err
	}

	page := MessagePage{HasMore: len(messages) > limit}
	if page.HasMore {
		messages = messages[:limit]
	}
	page.Messages = messages
	if page.HasMore && len(messages) > 0 {
		page.NextCursor = messages[len(messages)-1].SeqID
	}

	ids := make([]uuid.UUID, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}
	reactions, err := s.chatRepo.ReactionCounts(ctx, ids)
	if err != nil {
		return MessagePage{}, err
	}
	page.Reactions = reactions
	return page, nil
}

// GetByID returns a single message; tombstones are returned as-is so
// callers can render the thread skeleton.
func (s *ChatService) GetByID(ctx context.Context, messageID uuid.UUID) (chat.Message, error) {
	return s.chatRepo.GetByID(ctx, messageID)
}

// requireOpenRoom rejects mutations against missing or CLOSED rooms. A
// closed room behaves as not-found for writers while staying readable.
func (s *ChatService) requireOpenRoom(ctx context.Context, roomID uuid.UUID) error {
	rm, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if rm.Status == room.StatusClosed {
		return watchparty_errors.ErrNotFound
	}
	return nil
}

func (s *ChatService) publish(ctx context.Context, eventType string, roomID uuid.UUID, payload interface{}) {
	if s.publisher == nil {
		return
	}
	env, err := events.NewEnvelope(eventType, roomID, payload)
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, env); err != nil && s.log != nil {
		s.log.Warnf("publish %s for room %s failed: %v", eventType, roomID, err)
	}
}
