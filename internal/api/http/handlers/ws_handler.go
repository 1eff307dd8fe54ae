package handlers

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/plantops/escalation-service/internal/auth"
	"github.com/plantops/escalation-service/internal/realtime"
	apperrors "github.com/plantops/escalation-service/pkg/util"
)

const wsActorKey = "ws_actor_id"

// WSHandler upgrades authenticated clients to the realtime notification
// stream. The stream is best effort; the inbox endpoints remain the durable
// source of truth.
type WSHandler struct {
	hub          *realtime.Hub
	writeTimeout time.Duration
	logger       *zap.Logger
}

// NewWSHandler constructs handler.
func NewWSHandler(hub *realtime.Hub, writeTimeout time.Duration, logger *zap.Logger) *WSHandler {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &WSHandler{hub: hub, writeTimeout: writeTimeout, logger: logger}
}

// Upgrade gates the websocket handshake. Runs after auth middleware so the
// actor is already resolved; the actor id crosses into the connection via
// locals because the fiber context is gone once the protocol switches.
func (h *WSHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("actor required")
	}
	c.Locals(wsActorKey, actor.ID)
	return c.Next()
}

// Serve runs the connection loop: register a hub session, pump its outbox to
// the socket, and tear down on either side closing.
func (h *WSHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		actorID, _ := conn.Locals(wsActorKey).(string)
		if actorID == "" {
			_ = conn.Close()
			return
		}

		session := h.hub.Register(actorID)
		if session == nil {
			_ = conn.Close()
			return
		}
		defer h.hub.Unregister(session)

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case payload, ok := <-session.Outbox():
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
						time.Now().Add(h.writeTimeout))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					h.logger.Debug("websocket write failed",
						zap.String("actor_id", actorID), zap.Error(err))
					return
				}
			case <-closed:
				return
			}
		}
	})
}
