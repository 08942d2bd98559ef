package realtime_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"project-tracker/core"
	"project-tracker/realtime"
)

type fakeDirectory struct {
	members map[int64]map[int64]core.Role
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{members: make(map[int64]map[int64]core.Role)}
}

func (d *fakeDirectory) allow(projectID, userID int64, role core.Role) {
	if d.members[projectID] == nil {
		d.members[projectID] = make(map[int64]core.Role)
	}
	d.members[projectID][userID] = role
}

func (d *fakeDirectory) IsMember(_ context.Context, projectID, userID int64) bool {
	_, ok := d.members[projectID][userID]
	return ok
}

func (d *fakeDirectory) RoleOf(_ context.Context, projectID, userID int64) (core.Role, bool) {
	r, ok := d.members[projectID][userID]
	return r, ok
}

type fakeConn struct {
	id     string
	userID int64

	mu       sync.Mutex
	events   []core.Event
	failSend bool
}

func newFakeConn(id string, userID int64) *fakeConn {
	return &fakeConn{id: id, userID: userID}
}

func (c *fakeConn) ID() string    { return c.id }
func (c *fakeConn) UserID() int64 { return c.userID }

func (c *fakeConn) Send(ev core.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSend {
		return errors.New("send failed")
	}
	c.events = append(c.events, ev)
	return nil
}

func (c *fakeConn) received() []core.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]core.Event, len(c.events))
	copy(out, c.events)
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func memberIDs(conns []realtime.Conn) map[string]bool {
	out := make(map[string]bool, len(conns))
	for _, c := range conns {
		out[c.ID()] = true
	}
	return out
}

func TestRegistry_JoinLeaveRoundTrip(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.allow(7, 1, core.RoleMember)
	reg := realtime.NewRegistry(discardLogger(), dir)

	conn := newFakeConn("c1", 1)
	if err := reg.Join(context.Background(), conn, 7); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}
	if !memberIDs(reg.MembersOf(7))["c1"] {
		t.Fatalf("expected c1 in room 7")
	}

	reg.Leave("c1", 7)
	if memberIDs(reg.MembersOf(7))["c1"] {
		t.Fatalf("expected c1 removed from room 7")
	}
}

func TestRegistry_NonMemberJoinForbidden(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.allow(7, 1, core.RoleMember)
	reg := realtime.NewRegistry(discardLogger(), dir)

	occupant := newFakeConn("c1", 1)
	if err := reg.Join(context.Background(), occupant, 7); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}

	intruder := newFakeConn("c2", 99)
	if err := reg.Join(context.Background(), intruder, 7); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if memberIDs(reg.MembersOf(7))["c2"] {
		t.Fatalf("forbidden join must not add the connection")
	}
	// no presence event for the rejected join
	for _, ev := range occupant.received() {
		if ev.Kind == core.EventUserConnected {
			t.Fatalf("occupant must not see presence for a rejected join: %+v", ev)
		}
	}
}

func TestRegistry_LeaveUnknownRoomIsNoOp(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	reg := realtime.NewRegistry(discardLogger(), dir)

	reg.Leave("ghost", 7)
	if got := len(reg.MembersOf(7)); got != 0 {
		t.Fatalf("expected empty room, got %d members", got)
	}
}

func TestRegistry_DisconnectClearsAllRooms(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.allow(7, 1, core.RoleMember)
	dir.allow(8, 1, core.RoleMember)
	dir.allow(9, 1, core.RoleMember)
	reg := realtime.NewRegistry(discardLogger(), dir)

	conn := newFakeConn("c1", 1)
	for _, projectID := range []int64{7, 8, 9} {
		if err := reg.Join(context.Background(), conn, projectID); err != nil {
			t.Fatalf("Join(%d) returned error: %v", projectID, err)
		}
	}

	reg.OnDisconnect("c1")
	for _, projectID := range []int64{7, 8, 9} {
		if memberIDs(reg.MembersOf(projectID))["c1"] {
			t.Fatalf("expected c1 removed from room %d", projectID)
		}
	}

	// idempotent for an already-gone connection
	reg.OnDisconnect("c1")
}

func TestRegistry_JoinPresenceReachesOthersOnly(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.allow(7, 1, core.RoleMember)
	dir.allow(7, 2, core.RoleMember)
	reg := realtime.NewRegistry(discardLogger(), dir)

	first := newFakeConn("c1", 1)
	if err := reg.Join(context.Background(), first, 7); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}

	second := newFakeConn("c2", 2)
	if err := reg.Join(context.Background(), second, 7); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}

	got := first.received()
	if len(got) != 1 || got[0].Kind != core.EventUserConnected {
		t.Fatalf("expected one user_connected for the first occupant, got %+v", got)
	}
	payload, ok := got[0].Payload.(core.PresencePayload)
	if !ok || payload.UserID != 2 {
		t.Fatalf("unexpected presence payload: %+v", got[0].Payload)
	}
	if len(second.received()) != 0 {
		t.Fatalf("the joining connection must not receive its own presence event")
	}
}

func TestRegistry_TypingScopedToRoom(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	dir.allow(7, 1, core.RoleMember)
	dir.allow(7, 2, core.RoleMember)
	dir.allow(8, 3, core.RoleMember)
	reg := realtime.NewRegistry(discardLogger(), dir)

	typist := newFakeConn("c1", 1)
	roomMate := newFakeConn("c2", 2)
	outsider := newFakeConn("c3", 3)
	ctx := context.Background()
	if err := reg.Join(ctx, typist, 7); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}
	if err := reg.Join(ctx, roomMate, 7); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}
	if err := reg.Join(ctx, outsider, 8); err != nil {
		t.Fatalf("Join returned error: %v", err)
	}

	if err := reg.Typing("c1", 7, 5, true); err != nil {
		t.Fatalf("Typing returned error: %v", err)
	}

	var sawTyping bool
	for _, ev := range roomMate.received() {
		if ev.Kind == core.EventUserTyping {
			sawTyping = true
			payload := ev.Payload.(core.TypingPayload)
			if payload.TaskID != 5 || !payload.IsTyping {
				t.Fatalf("unexpected typing payload: %+v", payload)
			}
		}
	}
	if !sawTyping {
		t.Fatalf("expected room mate to see the typing event")
	}
	for _, ev := range outsider.received() {
		if ev.Kind == core.EventUserTyping {
			t.Fatalf("typing must not leak outside the project room")
		}
	}

	// typing into a room the connection never joined is rejected
	if err := reg.Typing("c1", 8, 5, true); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRegistry_ConcurrentJoinAndDisconnect(t *testing.T) {
	t.Parallel()

	dir := newFakeDirectory()
	for u := int64(1); u <= 50; u++ {
		dir.allow(7, u, core.RoleMember)
	}
	reg := realtime.NewRegistry(discardLogger(), dir)

	var wg sync.WaitGroup
	for u := int64(1); u <= 50; u++ {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			conn := newFakeConn(fmt.Sprintf("c%d", u), u)
			if err := reg.Join(context.Background(), conn, 7); err != nil {
				t.Errorf("Join returned error: %v", err)
				return
			}
			reg.OnDisconnect(conn.ID())
		}(u)
	}
	wg.Wait()

	if got := len(reg.MembersOf(7)); got != 0 {
		t.Fatalf("expected empty room after all disconnects, got %d", got)
	}
}
