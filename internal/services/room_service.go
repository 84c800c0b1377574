package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"watchparty/internal/domain/room"
	"watchparty/internal/events"
	"watchparty/internal/gateway"
	"watchparty/internal/proxy"
	"watchparty/internal/repository"
	watchparty_errors "watchparty/pkg/errors"
	"watchparty/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// SystemAnnouncer posts SYSTEM notices into a room's chat log. Implemented
// by ChatService; kept as an interface so the registry does not depend on
// the chat log package.
type SystemAnnouncer interface {
	PostSystem(ctx context.Context, roomID uuid.UUID, content string) error
}

// Archiver persists a closed room's transcript to long-term storage.
type Archiver interface {
	Archive(ctx context.Context, rm room.Room) error
}

// RoomSnapshotCache caches a room with its member count.
type RoomSnapshotCache interface {
	Get(ctx context.Context, roomID uuid.UUID) (room.Room, int64, bool)
	Set(ctx context.Context, rm room.Room, memberCount int64)
	Invalidate(ctx context.Context, roomID uuid.UUID)
}

type RoomService struct {
	roomRepo  repository.RoomRepository
	media     gateway.Media
	identity  gateway.Identity
	access    *proxy.AccessControl
	cache     RoomSnapshotCache
	publisher events.Publisher
	announcer SystemAnnouncer
	archiver  Archiver
	log       *logger.Logger
}

func NewRoomService(roomRepo repository.RoomRepository, media gateway.Media, identity gateway.Identity, access *proxy.AccessControl, l *logger.Logger) *RoomService {
	return &RoomService{
		roomRepo: roomRepo,
		media:    media,
		identity: identity,
		access:   access,
		log:      l,
	}
}

func (s *RoomService) SetCache(cache RoomSnapshotCache)        { s.cache = cache }
func (s *RoomService) SetPublisher(publisher events.Publisher) { s.publisher = publisher }
func (s *RoomService) SetAnnouncer(announcer SystemAnnouncer)  { s.announcer = announcer }
func (s *RoomService) SetArchiver(archiver Archiver)           { s.archiver = archiver }

type CreateRoomInput struct {
	MediaID  string
	OwnerID  uuid.UUID
	Capacity int
	JoinKey  string
}

func (s *RoomService) Create(ctx context.Context, in CreateRoomInput) (room.Room, error) {
	if in.Capacity <= 0 || in.MediaID == "" {
		return room.Room{}, watchparty_errors.ErrInvalidInput
	}

	ok, err := s.media.Exists(ctx, in.MediaID)
	if err != nil {
		return room.Room{}, err
	}
	if !ok {
		return room.Room{}, watchparty_errors.ErrInvalidInput
	}

	ok, err = s.identity.UserExists(ctx, in.OwnerID)
	if err != nil {
		return room.Room{}, err
	}
	if !ok {
		return room.Room{}, watchparty_errors.ErrInvalidInput
	}

	rm := room.Room{
		ID:        uuid.New(),
		MediaID:   in.MediaID,
		OwnerID:   in.OwnerID,
		Capacity:  in.Capacity,
		Status:    room.StatusWaiting,
		CreatedAt: time.Now(),
	}
	// The owner seat is taken at creation; a capacity-1 room is born FULL.
	if in.Capacity == 1 {
		rm.Status = room.StatusFull
	}

	if in.JoinKey != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.JoinKey), bcrypt.DefaultCost)
		if err != nil {
			return room.Room{}, err
		}
		rm.JoinKeyHash = sql.NullString{String: string(hash), Valid: true}
	}

	owner := room.Member{
		ID:       uuid.New(),
		RoomID:   rm.ID,
		UserID:   in.OwnerID,
		JoinedAt: time.Now(),
	}
	if err := s.roomRepo.Create(ctx, &rm, &owner); err != nil {
		return room.Room{}, err
	}
	return rm, nil
}

// Get returns the room with its active member count.
func (s *RoomService) Get(ctx context.Context, roomID uuid.UUID) (room.Room, int64, error) {
	if s.cache != nil {
		if rm, count, ok := s.cache.Get(ctx, roomID); ok {
			return rm, count, nil
		}
	}

	rm, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return room.Room{}, 0, err
	}
	count, err := s.roomRepo.ActiveMemberCount(ctx, roomID)
	if err != nil {
		return room.Room{}, 0, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, rm, count)
	}
	return rm, count, nil
}

func (s *RoomService) Members(ctx context.Context, roomID uuid.UUID) ([]room.Member, error) {
	if _, err := s.roomRepo.GetByID(ctx, roomID); err != nil {
		return nil, err
	}
	return s.roomRepo.ListActiveMembers(ctx, roomID)
}

type JoinRoomInput struct {
	RoomID    uuid.UUID
	UserID    uuid.UUID
	ProfileID uuid.NullUUID
	JoinKey   string
}

func (s *RoomService) Join(ctx context.Context, in JoinRoomInput) (room.Member, error) {
	ok, err := s.identity.UserExists(ctx, in.UserID)
	if err != nil {
		return room.Member{}, err
	}
	if !ok {
		return room.Member{}, watchparty_errors.ErrInvalidInput
	}

	rm, err := s.roomRepo.GetByID(ctx, in.RoomID)
	if err != nil {
		return room.Member{}, err
	}
	if rm.Status == room.StatusClosed {
		return room.Member{}, watchparty_errors.ErrNotFound
	}
	if rm.IsPrivate() {
		if err := bcrypt.CompareHashAndPassword([]byte(rm.JoinKeyHash.String), []byte(in.JoinKey)); err != nil {
			return room.Member{}, watchparty_errors.ErrForbidden
		}
	}

	member, err := s.roomRepo.AddMemberIfCapacity(ctx, in.RoomID, in.UserID, in.ProfileID)
	if err != nil {
		return room.Member{}, err
	}

	s.invalidate(ctx, in.RoomID)
	s.publish(ctx, events.EventTypeMemberJoined, in.RoomID, member)
	if s.announcer != nil && in.UserID != rm.OwnerID {
		if err := s.announcer.PostSystem(ctx, in.RoomID, "a viewer joined the party"); err != nil && s.log != nil {
			s.log.Warnf("join notice for room %s failed: %v", in.RoomID, err)
		}
	}
	return member, nil
}

// Leave is idempotent: leaving a room the user already left is a no-op.
func (s *RoomService) Leave(ctx context.Context, roomID, userID uuid.UUID) error {
	left, err := s.roomRepo.MarkLeft(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !left {
		return nil
	}

	s.invalidate(ctx, roomID)
	s.publish(ctx, events.EventTypeMemberLeft, roomID, map[string]string{
		"room_id": roomID.String(),
		"user_id": userID.String(),
	})
	if s.announcer != nil {
		if err := s.announcer.PostSystem(ctx, roomID, "a viewer left the party"); err != nil && s.log != nil {
			s.log.Warnf("leave notice for room %s failed: %v", roomID, err)
		}
	}
	return nil
}

// Close ends the room. Only the owner may close; closing an already
// closed room is a no-op.
func (s *RoomService) Close(ctx context.Context, roomID, requesterID uuid.UUID) error {
	if err := s.access.RequireOwner(ctx, roomID, requesterID); err != nil {
		return err
	}
	rm, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	return s.close(ctx, rm, "the owner ended the party")
}

// CloseIdle is the sweeper's entry point; it skips the owner check.
func (s *RoomService) CloseIdle(ctx context.Context, rm room.Room) error {
	return s.close(ctx, rm, "the party went quiet and was closed")
}

func (s *RoomService) close(ctx context.Context, rm room.Room, notice string) error {
	if rm.Status == room.StatusClosed {
		return nil
	}

	// The notice must land before the status flips; a CLOSED room accepts
	// no further messages.
	if s.announcer != nil {
		if err := s.announcer.PostSystem(ctx, rm.ID, notice); err != nil && s.log != nil {
			s.log.Warnf("close notice for room %s failed: %v", rm.ID, err)
		}
	}

	if err := s.roomRepo.Close(ctx, rm.ID); err != nil {
		if errors.Is(err, watchparty_errors.ErrNotFound) {
			return nil
		}
		return err
	}

	s.invalidate(ctx, rm.ID)
	s.publish(ctx, events.EventTypeRoomClosed, rm.ID, map[string]string{"room_id": rm.ID.String()})

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, rm); err != nil && s.log != nil {
			s.log.Errorf("transcript archive for room %s failed: %v", rm.ID, err)
		}
	}
	return nil
}

func (s *RoomService) invalidate(ctx context.Context, roomID uuid.UUID) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, roomID)
	}
}

func (s *RoomService) publish(ctx context.Context, eventType string, roomID uuid.UUID, payload interface{}) {
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
