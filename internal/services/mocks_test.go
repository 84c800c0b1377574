package services_test

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"watchparty/internal/domain/chat"
	"watchparty/internal/domain/room"
	"watchparty/internal/events"
	watchparty_errors "watchparty/pkg/errors"

	"github.com/google/uuid"
)

// fakeRoomRepo is an in-memory RoomRepository. AddMemberIfCapacity holds
// the mutex for the whole check-and-insert, mirroring the row lock the
// real repository takes.
type fakeRoomRepo struct {
	mu      sync.Mutex
	rooms   map[uuid.UUID]*room.Room
	members map[uuid.UUID][]*room.Member
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{
		rooms:   make(map[uuid.UUID]*room.Room),
		members: make(map[uuid.UUID][]*room.Member),
	}
}

func (f *fakeRoomRepo) Create(ctx context.Context, r *room.Room, owner *room.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.rooms[r.ID] = &cp
	oc := *owner
	f.members[r.ID] = append(f.members[r.ID], &oc)
	return nil
}

func (f *fakeRoomRepo) GetByID(ctx context.Context, id uuid.UUID) (room.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rm, ok := f.rooms[id]
	if !ok {
		return room.Room{}, watchparty_errors.ErrNotFound
	}
	return *rm, nil
}

func (f *fakeRoomRepo) ActiveMemberCount(ctx context.Context, roomID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeCountLocked(roomID), nil
}

func (f *fakeRoomRepo) activeCountLocked(roomID uuid.UUID) int64 {
	var n int64
	for _, m := range f.members[roomID] {
		if !m.LeftAt.Valid {
			n++
		}
	}
	return n
}

func (f *fakeRoomRepo) ListActiveMembers(ctx context.Context, roomID uuid.UUID) ([]room.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []room.Member
	for _, m := range f.members[roomID] {
		if !m.LeftAt.Valid {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeRoomRepo) GetActiveMember(ctx context.Context, roomID, userID uuid.UUID) (room.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members[roomID] {
		if m.UserID == userID && !m.LeftAt.Valid {
			return *m, nil
		}
	}
	return room.Member{}, watchparty_errors.ErrNotFound
}

func (f *fakeRoomRepo) AddMemberIfCapacity(ctx context.Context, roomID, userID uuid.UUID, profileID uuid.NullUUID) (room.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rm, ok := f.rooms[roomID]
	if !ok || rm.Status == room.StatusClosed {
		return room.Member{}, watchparty_errors.ErrNotFound
	}

	var prior *room.Member
	for _, m := range f.members[roomID] {
		if m.UserID == userID {
			if !m.LeftAt.Valid {
				return *m, nil
			}
			prior = m
		}
	}

	if f.activeCountLocked(roomID) >= int64(rm.Capacity) {
		return room.Member{}, watchparty_errors.ErrRoomFull
	}

	var member *room.Member
	if prior != nil {
		prior.LeftAt = sql.NullTime{}
		prior.JoinedAt = time.Now()
		member = prior
	} else {
		member = &room.Member{
			ID:        uuid.New(),
			RoomID:    roomID,
			UserID:    userID,
			ProfileID: profileID,
			JoinedAt:  time.Now(),
		}
		f.members[roomID] = append(f.members[roomID], member)
	}

	count := int(f.activeCountLocked(roomID))
	ownerOnly := count == 1 && userID == rm.OwnerID
	rm.Status = room.StatusAfterJoin(rm.Status, count, rm.Capacity, ownerOnly)
	return *member, nil
}

func (f *fakeRoomRepo) MarkLeft(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rm, ok := f.rooms[roomID]
	if !ok {
		return false, watchparty_errors.ErrNotFound
	}
	for _, m := range f.members[roomID] {
		if m.UserID == userID && !m.LeftAt.Valid {
			m.LeftAt = sql.NullTime{Time: time.Now(), Valid: true}
			rm.Status = room.StatusAfterLeave(rm.Status)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRoomRepo) Close(ctx context.Context, roomID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rm, ok := f.rooms[roomID]
	if !ok || rm.Status == room.StatusClosed {
		return watchparty_errors.ErrNotFound
	}
	rm.Status = room.StatusClosed
	rm.ClosedAt = sql.NullTime{Time: time.Now(), Valid: true}
	return nil
}

func (f *fakeRoomRepo) ListIdle(ctx context.Context, cutoff time.Time) ([]room.Room, error) {
	return nil, nil
}

type reactionKey struct {
	messageID uuid.UUID
	userID    uuid.UUID
	emoji     string
}

// fakeChatRepo is an in-memory ChatRepository with a per-room sequence
// counter.
type fakeChatRepo struct {
	mu        sync.Mutex
	messages  map[uuid.UUID]*chat.Message
	seq       map[uuid.UUID]int64
	reactions map[reactionKey]struct{}
}

func newFakeChatRepo() *fakeChatRepo {
	return &fakeChatRepo{
		messages:  make(map[uuid.UUID]*chat.Message),
		seq:       make(map[uuid.UUID]int64),
		reactions: make(map[reactionKey]struct{}),
	}
}

func (f *fakeChatRepo) Create(ctx context.Context, m *chat.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq[m.RoomID]++
	m.SeqID = f.seq[m.RoomID]
	cp := *m
	f.messages[m.ID] = &cp
	return nil
}

func (f *fakeChatRepo) GetByID(ctx context.Context, id uuid.UUID) (chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok {
		return chat.Message{}, watchparty_errors.ErrNotFound
	}
	return *m, nil
}

func (f *fakeChatRepo) GetRoomMessages(ctx context.Context, roomID uuid.UUID, beforeSeq int64, limit int) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.Message
	for _, m := range f.messages {
		if m.RoomID != roomID {
			continue
		}
		if beforeSeq > 0 && m.SeqID >= beforeSeq {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeqID > out[j].SeqID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeChatRepo) ListRoomMessages(ctx context.Context, roomID uuid.UUID) ([]chat.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.Message
	for _, m := range f.messages {
		if m.RoomID == roomID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeqID < out[j].SeqID })
	return out, nil
}

func (f *fakeChatRepo) Update(ctx context.Context, m chat.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.messages[m.ID]; !ok {
		return watchparty_errors.ErrNotFound
	}
	cp := m
	f.messages[m.ID] = &cp
	return nil
}

func (f *fakeChatRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[id]
	if !ok || m.DeletedAt.Valid {
		return watchparty_errors.ErrNotFound
	}
	m.DeletedAt = sql.NullTime{Time: time.Now(), Valid: true}
	m.Content = sql.NullString{}
	m.UpdatedAt = time.Now()
	return nil
}

func (f *fakeChatRepo) ToggleReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := reactionKey{messageID, userID, emoji}
	if _, ok := f.reactions[key]; ok {
		delete(f.reactions, key)
		return false, nil
	}
	f.reactions[key] = struct{}{}
	return true, nil
}

func (f *fakeChatRepo) ReactionCounts(ctx context.Context, messageIDs []uuid.UUID) (map[uuid.UUID]map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(messageIDs))
	for _, id := range messageIDs {
		wanted[id] = true
	}
	out := make(map[uuid.UUID]map[string]int)
	for key := range f.reactions {
		if !wanted[key.messageID] {
			continue
		}
		if out[key.messageID] == nil {
			out[key.messageID] = make(map[string]int)
		}
		out[key.messageID][key.emoji]++
	}
	return out, nil
}

// stubMedia and stubIdentity always answer the same way.
type stubMedia struct{ exists bool }

func (s stubMedia) Exists(ctx context.Context, mediaID string) (bool, error) {
	return s.exists, nil
}

type stubIdentity struct{ exists bool }

func (s stubIdentity) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.exists, nil
}

// recordingPublisher captures published envelopes.
type recordingPublisher struct {
	mu        sync.Mutex
	envelopes []events.Envelope
}

func (p *recordingPublisher) Publish(ctx context.Context, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelopes = append(p.envelopes, env)
	return nil
}

func (p *recordingPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.envelopes))
	for _, env := range p.envelopes {
		out = append(out, env.EventType)
	}
	return out
}
