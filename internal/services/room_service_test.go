package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"watchparty/internal/domain/room"
	"watchparty/internal/proxy"
	"watchparty/internal/services"
	watchparty_errors "watchparty/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRoomFixture(t *testing.T) (*services.RoomService, *services.ChatService, *fakeRoomRepo, *fakeChatRepo, *recordingPublisher) {
	t.Helper()
	roomRepo := newFakeRoomRepo()
	chatRepo := newFakeChatRepo()
	access := proxy.NewAccessControl(roomRepo)

	chatSvc := services.NewChatService(chatRepo, roomRepo, access, nil)
	roomSvc := services.NewRoomService(roomRepo, stubMedia{exists: true}, stubIdentity{exists: true}, access, nil)
	roomSvc.SetAnnouncer(chatSvc)

	pub := &recordingPublisher{}
	roomSvc.SetPublisher(pub)
	return roomSvc, chatSvc, roomRepo, chatRepo, pub
}

func createRoom(t *testing.T, svc *services.RoomService, capacity int, joinKey string) room.Room {
	t.Helper()
	rm, err := svc.Create(context.Background(), services.CreateRoomInput{
		MediaID:  "media-1",
		OwnerID:  uuid.New(),
		Capacity: capacity,
		JoinKey:  joinKey,
	})
	require.NoError(t, err)
	return rm
}

func TestCreateRoom(t *testing.T) {
	svc, _, repo, _, _ := newRoomFixture(t)

	rm := createRoom(t, svc, 4, "")
	assert.Equal(t, room.StatusWaiting, rm.Status)
	assert.False(t, rm.IsPrivate())

	count, err := repo.ActiveMemberCount(context.Background(), rm.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "owner takes a seat at creation")
}

func TestCreateRoomCapacityOneBornFull(t *testing.T) {
	svc, _, _, _, _ := newRoomFixture(t)
	rm := createRoom(t, svc, 1, "")
	assert.Equal(t, room.StatusFull, rm.Status)
}

func TestCreateRoomValidation(t *testing.T) {
	svc, _, _, _, _ := newRoomFixture(t)

	_, err := svc.Create(context.Background(), services.CreateRoomInput{MediaID: "media-1", OwnerID: uuid.New(), Capacity: 0})
	assert.ErrorIs(t, err, watchparty_errors.ErrInvalidInput)

	_, err = svc.Create(context.Background(), services.CreateRoomInput{MediaID: "", OwnerID: uuid.New(), Capacity: 4})
	assert.ErrorIs(t, err, watchparty_errors.ErrInvalidInput)
}

func TestCreateRoomUnknownMedia(t *testing.T) {
	roomRepo := newFakeRoomRepo()
	svc := services.NewRoomService(roomRepo, stubMedia{exists: false}, stubIdentity{exists: true}, proxy.NewAccessControl(roomRepo), nil)

	_, err := svc.Create(context.Background(), services.CreateRoomInput{MediaID: "missing", OwnerID: uuid.New(), Capacity: 4})
	assert.ErrorIs(t, err, watchparty_errors.ErrInvalidInput)
}

func TestJoinActivatesRoom(t *testing.T) {
	svc, _, repo, _, pub := newRoomFixture(t)
	rm := createRoom(t, svc, 4, "")

	_, err := svc.Join(context.Background(), services.JoinRoomInput{RoomID: rm.ID, UserID: uuid.New()})
	require.NoError(t, err)

	got, err := repo.GetByID(context.Background(), rm.ID)
	require.NoError(t, err)
	assert.Equal(t, room.StatusActive, got.Status)
	assert.Contains(t, pub.eventTypes(), "member.joined")
}

func TestJoinIdempotentForActiveMember(t *testing.T) {
	svc, _, repo, _, _ := newRoomFixture(t)
	rm := createRoom(t, svc, 3, "")
	userID := uuid.New()

	first, err := svc.Join(context.Background(), services.JoinRoomInput{RoomID: rm.ID, UserID: userID})
	require.NoError(t, err)
	second, err := svc.Join(context.Background(), services.JoinRoomInput{RoomID: rm.ID, UserID: userID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	count, err := repo.ActiveMemberCount(context.Background(), rm.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestJoinFullRoom(t *testing.T) {
	svc, _, repo, _, _ := newRoomFixture(t)
	rm := createRoom(t, svc, 2, "")

	_, err := svc.Join(context.Background(), services.JoinRoomInput{RoomID: rm.ID, UserID: uuid.New()})
	require.NoError(t, err)

	got, err := repo.GetByID(context.Background(), rm.ID)
	require.NoError(t, err)
	assert.Equal(t, room.StatusFull, got.Status)

	_, err = svc.Join(context.Background(), services.JoinRoomInput{RoomID: rm.ID, UserID: uuid.New()})
	assert.ErrorIs(t, err, watchparty_errors.ErrRoomFull)
}

func TestLeaveReopensFullRoom(t *testing.T) {
	svc, _, repo, _, _ := newRoomFixture(t)
	rm := createRoom(t, svc, 2, "")
	userID := uuid.New()

	_, err := svc.Join(context.Background(), services.JoinRoomInput{RoomID: rm.ID, UserID: userID})
	require.NoError(t, err)
	require.NoError(t, svc.Leave(context.Background(), rm.ID, userID))

	got, err := repo.GetByID(context.Background(), rm.ID)
	require.NoError(t, err)
	assert.Equal(t, room.StatusActive, got.Status)

	// The freed seat is usable again, including by the same user.
	_, err = svc.Join(context.Background(), services.JoinRoomInput{RoomID: rm.ID, UserID: userID})
	assert.NoError(t, err)
}

func TestLeaveIdempotent(t *testing.T) {
	svc, _, _, _, pub := newRoomFixture(t)
	rm := createRoom(t, svc, 3, "")
	userID := uuid.New()

	_, err := svc.Join(context.Background(), services.JoinRoomInput{RoomID: rm.ID, UserID: userID})
	require.NoError(t, err)

	require.NoError(t, svc.Leave(context.Background(), rm.ID, userID))
	eventsAfterFirst := len(pub.eventTypes())
	require.NoError(t, svc.Leave(context.Background(), rm.ID, userID))
	assert.Equal(t, eventsAfterFirst, len(pub.eventTypes()), "second leave publishes nothing")
}

func TestConcurrentJoinsNeverExceedCapacity(t *testing.T) {
	svc, _, repo, _, _ := newRoomFixture(t)
	rm := createRoom(t, svc, 5, "")

	const contenders = 40
	var wg sync.WaitGroup
	var mu sync.Mutex
	joined, full := 0, 0

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Join(context.Background(), services.JoinRoomInput{RoomID: rm.ID, UserID: uuid.New()})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				joined++
			case errors.Is(err, watchparty_errors.ErrRoomFull):
				full++
			default:
				t.Errorf("unexpected join error: %v", err)
			}
		}()
	}
	wg.Wait()

	// The owner holds one of the five seats.
	assert.Equal(t, 4, joined)
	assert.Equal(t, contenders-4, full)

	count, err := repo.ActiveMemberCount(context.Background(), rm.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)

	got, err := repo.GetByID(context.Background(), rm.ID)
	require.NoError(t, err)
	assert.Equal(t, room.StatusFull, got.Status)
}

func TestJoinPrivateRoom(t *testing.T) {
	svc, _, _, _, _ := newRoomFixture(t)
	rm := createRoom(t, svc, 4, "secret-key")

	_, err := svc.Join(context.Background(), services.JoinRoomInput{RoomID: rm.ID, UserID: uuid.New(), JoinKey: "wrong"})
	assert.ErrorIs(t, err, watchparty_errors.ErrForbidden)

	_, err = svc.Join(context.Background(), services.JoinRoomInput{RoomID: rm.ID, UserID: uuid.New(), JoinKey: "secret-key"})
	assert.NoError(t, err)
}

func TestCloseOwnerOnly(t *testing.T) {
	svc, _, repo, _, pub := newRoomFixture(t)
	rm := createRoom(t, svc, 4, "")

	err := svc.Close(context.Background(), rm.ID, uuid.New())
	assert.ErrorIs(t, err, watchparty_errors.ErrForbidden)

	require.NoError(t, svc.Close(context.Background(), rm.ID, rm.OwnerID))

	got, err := repo.GetByID(context.Background(), rm.ID)
	require.NoError(t, err)
	assert.Equal(t, room.StatusClosed, got.Status)
	assert.True(t, got.ClosedAt.Valid)
	assert.Contains(t, pub.eventTypes(), "room.closed")

	// A second close is a no-op.
	assert.NoError(t, svc.Close(context.Background(), rm.ID, rm.OwnerID))
}

func TestCloseWritesSystemNoticeBeforeClosing(t *testing.T) {
	svc, _, _, chatRepo, _ := newRoomFixture(t)
	rm := createRoom(t, svc, 4, "")

	require.NoError(t, svc.Close(context.Background(), rm.ID, rm.OwnerID))

	messages, err := chatRepo.ListRoomMessages(context.Background(), rm.ID)
	require.NoError(t, err)
	require.NotEmpty(t, messages)
	last := messages[len(messages)-1]
	assert.Equal(t, "SYSTEM", last.Type)
}

func TestJoinClosedRoom(t *testing.T) {
	svc, _, _, _, _ := newRoomFixture(t)
	rm := createRoom(t, svc, 4, "")
	require.NoError(t, svc.Close(context.Background(), rm.ID, rm.OwnerID))

	_, err := svc.Join(context.Background(), services.JoinRoomInput{RoomID: rm.ID, UserID: uuid.New()})
	assert.ErrorIs(t, err, watchparty_errors.ErrNotFound)
}

func TestGetUnknownRoom(t *testing.T) {
	svc, _, _, _, _ := newRoomFixture(t)
	_, _, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, watchparty_errors.ErrNotFound)
}
