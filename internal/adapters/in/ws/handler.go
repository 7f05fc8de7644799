// Package ws is the websocket transport for event fan-out.
//
// Clients connect once, then drive their subscriptions with small JSON
// control frames:
//
//	{"action": "subscribe",   "channel": "status",   "id": "<orderId>"}
//	{"action": "subscribe",   "channel": "location", "id": "<orderId>"}
//	{"action": "subscribe",   "channel": "chat",     "id": "<orderId>"}
//	{"action": "unsubscribe", "channel": "status",   "id": "<orderId>"}
//
// Event payloads arrive as text frames exactly as published on the bus.
// Liveness uses websocket ping/pong; a silent peer is disconnected and all
// of its subscriptions are released in one sweep.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"ordersync/internal/core/domain/model/kernel"
	"ordersync/internal/core/services"
)

const (
	actionSubscribe   = "subscribe"
	actionUnsubscribe = "unsubscribe"
)

// controlFrame is what clients send to manage their subscriptions.
type controlFrame struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
	ID      string `json:"id"`
}

// ackFrame is the server's reply to a control frame.
type ackFrame struct {
	Action  string `json:"action"`
	Channel string `json:"channel"`
	ID      string `json:"id"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// Handler upgrades HTTP requests to websocket connections and bridges them
// to the subscription manager.
type Handler struct {
	manager  *services.SubscriptionManager
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a websocket handler backed by the given subscription
// manager.
func NewHandler(manager *services.SubscriptionManager, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.With("component", "ws_handler"),
	}
}

// Serve handles GET /ws - upgrades the connection and starts its pumps.
func (h *Handler) Serve(ctx echo.Context) error {
	conn, err := h.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return err
	}

	c := newClient(conn, h.manager, h.logger)
	h.logger.Info("websocket connected", "connection_id", c.ID())

	go c.writePump()
	go c.readPump()
	return nil
}

// handleFrame dispatches one inbound control frame.
func (c *client) handleFrame(message []byte) {
	var frame controlFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		c.reject(frame, "malformed frame")
		return
	}

	kind, err := services.ParseChannelKind(frame.Channel)
	if err != nil {
		c.reject(frame, err.Error())
		return
	}

	id, err := kernel.UUIDFromString(frame.ID)
	if err != nil {
		c.reject(frame, "invalid id")
		return
	}

	switch frame.Action {
	case actionSubscribe:
		if err = c.manager.Subscribe(context.Background(), c, kind, id); err != nil {
			c.reject(frame, err.Error())
			return
		}
	case actionUnsubscribe:
		c.manager.Unsubscribe(c, kind, id)
	default:
		c.reject(frame, "unknown action")
		return
	}

	c.ack(frame)
}

func (c *client) ack(frame controlFrame) {
	c.reply(ackFrame{Action: frame.Action, Channel: frame.Channel, ID: frame.ID, OK: true})
}

func (c *client) reject(frame controlFrame, reason string) {
	c.reply(ackFrame{Action: frame.Action, Channel: frame.Channel, ID: frame.ID, OK: false, Error: reason})
}

func (c *client) reply(frame ackFrame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	if err = c.Send(payload); err != nil {
		c.logger.Warn("control reply dropped", "error", err)
	}
}
