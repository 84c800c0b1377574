package websocket

import (
	"context"
	"net/http"
	"time"

	"watchparty/internal/events"
	"watchparty/internal/proxy"
	"watchparty/internal/services"
	"watchparty/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type Handler struct {
	verifier *services.TokenVerifier
	access   *proxy.AccessControl
	hub      *Hub
}

func NewHandler(verifier *services.TokenVerifier, access *proxy.AccessControl, hub *Hub) *Handler {
	return &Handler{verifier: verifier, access: access, hub: hub}
}

// Connect upgrades the request and subscribes the caller to the room's
// event channel. Only active members may attach.
func (h *Handler) Connect(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid room id", "INVALID_REQUEST"))
		return
	}

	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	userID, err := h.verifier.ParseUserID(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	if err := h.access.RequireMember(c.Request.Context(), roomID, userID); err != nil {
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("not a room member", "FORBIDDEN"))
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, userID)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.hub.Register(client)
	h.hub.Subscribe(client, events.RoomChannel(roomID))
	go client.WriteLoop(ctx)

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	}

	h.hub.Unregister(client)
}
