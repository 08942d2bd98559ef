package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"project-tracker/core"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBuffer     = 64
)

var errSendBufferFull = errors.New("outbound buffer full")

// Client is one live websocket session. It satisfies realtime.Conn: Send
// enqueues into a bounded buffer and fails fast when the client cannot keep
// up, so a slow consumer never blocks the dispatcher or the registry.
type Client struct {
	id     string
	userID int64

	log  *slog.Logger
	conn *websocket.Conn

	send      chan core.Event
	closeOnce sync.Once
	closed    chan struct{}
}

func newClient(log *slog.Logger, conn *websocket.Conn, id string, userID int64) *Client {
	return &Client{
		id:     id,
		userID: userID,
		log:    log,
		conn:   conn,
		send:   make(chan core.Event, sendBuffer),
		closed: make(chan struct{}),
	}
}

func (c *Client) ID() string    { return c.id }
func (c *Client) UserID() int64 { return c.userID }

func (c *Client) Send(ev core.Event) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	default:
	}
	select {
	case c.send <- ev:
		return nil
	default:
		return errSendBufferFull
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}

// command is one client-to-server message on the live channel.
type command struct {
	Action    string `json:"action"`
	ProjectID int64  `json:"project_id"`
	TaskID    int64  `json:"task_id"`
	IsTyping  bool   `json:"is_typing"`
}

const (
	actionJoinProject  = "join_project"
	actionLeaveProject = "leave_project"
	actionTyping       = "typing"
)

func parseCommand(data []byte) (command, error) {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return command{}, errors.New("invalid json")
	}
	switch cmd.Action {
	case actionJoinProject, actionLeaveProject:
		if cmd.ProjectID <= 0 {
			return command{}, errors.New("invalid project_id")
		}
	case actionTyping:
		if cmd.TaskID <= 0 {
			return command{}, errors.New("invalid task_id")
		}
	default:
		return command{}, errors.New("unknown action")
	}
	return cmd, nil
}

// errorEvent is the per-command failure reply. It reuses the event envelope
// so clients decode one shape for everything the server sends.
func errorEvent(msg string) core.Event {
	return core.Event{
		Kind:    "error",
		At:      time.Now().UTC(),
		Payload: map[string]string{"error": msg},
	}
}

func (c *Client) reply(ev core.Event) {
	if err := c.Send(ev); err != nil {
		c.log.Debug("reply dropped", "conn_id", c.id, "error", err)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.log.Debug("write failed", "conn_id", c.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}
