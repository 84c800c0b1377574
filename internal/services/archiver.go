package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"watchparty/internal/domain/room"
	"watchparty/internal/repository"
	"watchparty/internal/storage"
	"watchparty/pkg/logger"
)

// TranscriptArchiver serializes a closed room's full message history and
// uploads it to object storage. Archiving is best effort; closing a room
// never fails because the archive did.
type TranscriptArchiver struct {
	chatRepo repository.ChatRepository
	store    *storage.Client
	log      *logger.Logger
}

func NewTranscriptArchiver(chatRepo repository.ChatRepository, store *storage.Client, l *logger.Logger) *TranscriptArchiver {
	return &TranscriptArchiver{chatRepo: chatRepo, store: store, log: l}
}

type transcript struct {
	RoomID     string            `json:"room_id"`
	MediaID    string            `json:"media_id"`
	OwnerID    string            `json:"owner_id"`
	ArchivedAt time.Time         `json:"archived_at"`
	Messages   []transcriptEntry `json:"messages"`
}

type transcriptEntry struct {
	Seq      int64     `json:"seq"`
	SenderID string    `json:"sender_id"`
	Type     string    `json:"type"`
	Content  string    `json:"content,omitempty"`
	Deleted  bool      `json:"deleted,omitempty"`
	SentAt   time.Time `json:"sent_at"`
}

func (a *TranscriptArchiver) Archive(ctx context.Context, rm room.Room) error {
	if a.store == nil {
		return nil
	}

	messages, err := a.chatRepo.ListRoomMessages(ctx, rm.ID)
	if err != nil {
		return err
	}

	t := transcript{
		RoomID:     rm.ID.String(),
		MediaID:    rm.MediaID,
		OwnerID:    rm.OwnerID.String(),
		ArchivedAt: time.Now(),
		Messages:   make([]transcriptEntry, 0, len(messages)),
	}
	for _, m := range messages {
		entry := transcriptEntry{
			Seq:      m.SeqID,
			SenderID: m.SenderID.String(),
			Type:     m.Type,
			SentAt:   m.CreatedAt,
		}
		if m.IsDeleted() {
			entry.Deleted = true
		} else {
			entry.Content = m.Content.String
		}
		t.Messages = append(t.Messages, entry)
	}

	data, err := json.Marshal(t)
	if err != nil {
		return err
	}

	key := fmt.Sprintf("transcripts/%s.json", rm.ID)
	if err := a.store.Put(ctx, key, "application/json", data); err != nil {
		return err
	}
	if a.log != nil {
		a.log.Infof("archived transcript for room %s (%d messages)", rm.ID, len(t.Messages))
	}
	return nil
}
