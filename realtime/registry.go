// Package realtime holds the live-collaboration plumbing: the Registry tracks
// which connections are subscribed to which project room and handles the
// client-invokable commands (join, leave, typing), while the Dispatcher is the
// outbound path that backend services use to fan a committed change out to a
// room. A client message can never reach the Dispatcher.
package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"project-tracker/core"
)

// Conn is one live client session. Send must not block indefinitely; the
// websocket adapter backs it with a bounded outbound buffer and fails fast
// when the client cannot keep up.
type Conn interface {
	ID() string
	UserID() int64
	Send(ev core.Event) error
}

// Registry is the concurrency-safe connection-to-room index. One instance per
// process, constructed in main and injected wherever room state is needed.
type Registry struct {
	log *slog.Logger
	dir core.Directory

	mu    sync.RWMutex
	rooms map[int64]map[string]Conn // projectID -> connID -> conn
	conns map[string]*connState     // connID -> conn + joined rooms
}

type connState struct {
	conn  Conn
	rooms map[int64]struct{}
}

func NewRegistry(log *slog.Logger, dir core.Directory) *Registry {
	return &Registry{
		log:   log,
		dir:   dir,
		rooms: make(map[int64]map[string]Conn),
		conns: make(map[string]*connState),
	}
}

// Join subscribes the connection to a project room after a fail-closed
// membership check. A forbidden join leaves no trace in the registry.
// Joining a room the connection is already in is idempotent and sends no
// second presence event.
func (r *Registry) Join(ctx context.Context, c Conn, projectID int64) error {
	if projectID <= 0 {
		return core.ErrInvalidArgs
	}
	if !r.dir.IsMember(ctx, projectID, c.UserID()) {
		return core.ErrForbidden
	}

	r.mu.Lock()
	st, ok := r.conns[c.ID()]
	if !ok {
		st = &connState{conn: c, rooms: make(map[int64]struct{})}
		r.conns[c.ID()] = st
	}
	if _, already := st.rooms[projectID]; already {
		r.mu.Unlock()
		return nil
	}
	st.rooms[projectID] = struct{}{}

	room := r.rooms[projectID]
	if room == nil {
		room = make(map[string]Conn)
		r.rooms[projectID] = room
	}
	others := othersOf(room, c.ID())
	room[c.ID()] = c
	r.mu.Unlock()

	r.log.Debug("connection joined room", "conn_id", c.ID(), "user_id", c.UserID(), "project_id", projectID)
	r.present(others, projectID, core.EventUserConnected, c.UserID())
	return nil
}

// Leave removes the connection from one room. Leaving a room the connection
// never joined is a no-op, not an error.
func (r *Registry) Leave(connID string, projectID int64) {
	r.mu.Lock()
	st, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	if _, in := st.rooms[projectID]; !in {
		r.mu.Unlock()
		return
	}
	delete(st.rooms, projectID)
	userID := st.conn.UserID()

	remaining := r.dropFromRoom(projectID, connID)
	r.mu.Unlock()

	r.log.Debug("connection left room", "conn_id", connID, "project_id", projectID)
	r.present(remaining, projectID, core.EventUserDisconnected, userID)
}

// OnDisconnect removes the connection from every room it belonged to in one
// pass. The transport layer calls it on every connection teardown, graceful
// or not, and it is safe to call for an unknown connection.
func (r *Registry) OnDisconnect(connID string) {
	r.mu.Lock()
	st, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, connID)

	userID := st.conn.UserID()
	left := make(map[int64][]Conn, len(st.rooms))
	for projectID := range st.rooms {
		left[projectID] = r.dropFromRoom(projectID, connID)
	}
	r.mu.Unlock()

	r.log.Debug("connection disconnected", "conn_id", connID, "user_id", userID, "rooms", len(left))
	for projectID, remaining := range left {
		r.present(remaining, projectID, core.EventUserDisconnected, userID)
	}
}

// MembersOf returns a snapshot of the room's connections. The snapshot is
// safe to iterate while joins and leaves proceed concurrently.
func (r *Registry) MembersOf(projectID int64) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[projectID]
	out := make([]Conn, 0, len(room))
	for _, c := range room {
		out = append(out, c)
	}
	return out
}

// Typing relays a typing indicator to the project room. The connection must
// currently be in that room; this is what scopes the indicator instead of
// fanning it out globally.
func (r *Registry) Typing(connID string, projectID, taskID int64, isTyping bool) error {
	r.mu.RLock()
	st, ok := r.conns[connID]
	if !ok {
		r.mu.RUnlock()
		return core.ErrForbidden
	}
	if _, in := st.rooms[projectID]; !in {
		r.mu.RUnlock()
		return core.ErrForbidden
	}
	userID := st.conn.UserID()
	targets := othersOf(r.rooms[projectID], connID)
	r.mu.RUnlock()

	ev := core.Event{
		Kind:      core.EventUserTyping,
		ProjectID: projectID,
		ActorID:   userID,
		At:        time.Now().UTC(),
		Payload:   core.TypingPayload{TaskID: taskID, IsTyping: isTyping},
	}
	for _, c := range targets {
		if err := c.Send(ev); err != nil {
			r.log.Debug("typing send failed", "conn_id", c.ID(), "error", err)
		}
	}
	return nil
}

// dropFromRoom removes connID from the room and returns the remaining
// occupants. Caller holds r.mu. Empty rooms are deleted so the index does
// not accumulate dead project keys.
func (r *Registry) dropFromRoom(projectID int64, connID string) []Conn {
	room := r.rooms[projectID]
	if room == nil {
		return nil
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(r.rooms, projectID)
		return nil
	}
	return othersOf(room, connID)
}

func othersOf(room map[string]Conn, exceptID string) []Conn {
	out := make([]Conn, 0, len(room))
	for id, c := range room {
		if id == exceptID {
			continue
		}
		out = append(out, c)
	}
	return out
}

// present pushes a presence event to a set of connections, best-effort.
func (r *Registry) present(targets []Conn, projectID int64, kind core.EventKind, userID int64) {
	if len(targets) == 0 {
		return
	}
	ev := core.Event{
		Kind:      kind,
		ProjectID: projectID,
		ActorID:   userID,
		At:        time.Now().UTC(),
		Payload:   core.PresencePayload{UserID: userID},
	}
	for _, c := range targets {
		if err := c.Send(ev); err != nil {
			r.log.Debug("presence send failed", "conn_id", c.ID(), "error", err)
		}
	}
}
