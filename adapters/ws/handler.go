// Package ws is the live-channel transport: it authenticates the websocket
// handshake, decodes inbound commands (join, leave, typing) into Registry
// calls and pumps outbound events to the client. It never invokes the
// Dispatcher; broadcasts originate in backend code only.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"project-tracker/adapters/auth"
	"project-tracker/core"
	"project-tracker/pkg/res"
	"project-tracker/realtime"
)

type Handler struct {
	log      *slog.Logger
	verifier auth.Verifier
	svc      *core.Service
	reg      *realtime.Registry
	timeout  time.Duration

	upgrader websocket.Upgrader
}

func NewHandler(log *slog.Logger, verifier auth.Verifier, svc *core.Service, reg *realtime.Registry, timeout time.Duration) *Handler {
	return &Handler{
		log:      log,
		verifier: verifier,
		svc:      svc,
		reg:      reg,
		timeout:  timeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := auth.TokenFrom(r)
	if token == "" {
		res.Error(w, "missing credentials", http.StatusUnauthorized)
		return
	}
	userID, err := h.verifier.Verify(token)
	if err != nil {
		res.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "error", err)
		return
	}

	client := newClient(h.log, conn, uuid.NewString(), userID)
	h.log.Info("websocket connected", "conn_id", client.ID(), "user_id", userID)

	go client.writePump()
	h.readPump(client)
}

// readPump runs until the connection drops, graceful or not. OnDisconnect is
// unconditional on exit: the registry never depends on a leave message.
func (h *Handler) readPump(c *Client) {
	defer func() {
		h.reg.OnDisconnect(c.ID())
		c.close()
		h.log.Info("websocket disconnected", "conn_id", c.ID(), "user_id", c.UserID())
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read failed", "conn_id", c.ID(), "error", err)
			}
			return
		}

		cmd, err := parseCommand(data)
		if err != nil {
			c.reply(errorEvent(err.Error()))
			continue
		}
		h.handle(c, cmd)
	}
}

func (h *Handler) handle(c *Client, cmd command) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	switch cmd.Action {
	case actionJoinProject:
		if err := h.reg.Join(ctx, c, cmd.ProjectID); err != nil {
			c.reply(errorEvent("join rejected"))
		}

	case actionLeaveProject:
		h.reg.Leave(c.ID(), cmd.ProjectID)

	case actionTyping:
		// resolve the task's project so the indicator stays room-scoped;
		// GetTask also re-checks membership for the caller
		t, err := h.svc.GetTask(ctx, c.UserID(), cmd.TaskID)
		if err != nil {
			c.reply(errorEvent("typing rejected"))
			return
		}
		if err := h.reg.Typing(c.ID(), t.ProjectID, cmd.TaskID, cmd.IsTyping); err != nil {
			c.reply(errorEvent("typing rejected"))
		}
	}
}
