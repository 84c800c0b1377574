package websocket_test

import (
	"context"
	"testing"
	"time"

	"watchparty/internal/events"
	"watchparty/internal/websocket"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestHubBroadcastToSubscribers(t *testing.T) {
	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	roomID := uuid.New()
	channel := events.RoomChannel(roomID)

	inRoom := websocket.NewClient(nil, uuid.New())
	outside := websocket.NewClient(nil, uuid.New())

	hub.Register(inRoom)
	hub.Register(outside)
	hub.Subscribe(inRoom, channel)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 2, hub.GetClientCount())
	assert.Equal(t, 1, hub.GetChannelSubscriberCount(channel))
	assert.True(t, inRoom.IsSubscribed(channel))

	hub.Broadcast(channel, []byte(`{"event_type":"message.created"}`))

	select {
	case msg := <-inRoom.Send:
		assert.Contains(t, string(msg), "message.created")
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive broadcast")
	}

	select {
	case <-outside.Send:
		t.Fatal("non-subscriber received broadcast")
	default:
	}
}

func TestHubUnregisterCleansUpSubscriptions(t *testing.T) {
	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	channel := events.RoomChannel(uuid.New())
	client := websocket.NewClient(nil, uuid.New())

	hub.Register(client)
	hub.Subscribe(client, channel)
	time.Sleep(50 * time.Millisecond)

	hub.Unregister(client)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 0, hub.GetClientCount())
	assert.Equal(t, 0, hub.GetChannelSubscriberCount(channel))
}
