package realtime

import (
	"log/slog"
	"sync"

	"project-tracker/core"
)

const defaultQueueSize = 256

// Dispatcher fans committed-mutation events out to project rooms. Events pass
// through one buffered queue drained by a single worker goroutine, so the
// delivery order within a room is the order mutations were committed in.
// Dispatch never blocks the caller: when the queue is full the event is
// dropped with a log line, since the live feed is best-effort and clients
// recover by refetching state.
type Dispatcher struct {
	log *slog.Logger
	reg *Registry

	mu     sync.RWMutex
	closed bool
	queue  chan core.Event
	done   chan struct{}
}

var _ core.Dispatcher = (*Dispatcher)(nil)

func NewDispatcher(log *slog.Logger, reg *Registry) *Dispatcher {
	d := &Dispatcher{
		log:   log,
		reg:   reg,
		queue: make(chan core.Event, defaultQueueSize),
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) Dispatch(ev core.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn("dispatch after close, event dropped", "kind", ev.Kind, "project_id", ev.ProjectID)
		return
	}
	select {
	case d.queue <- ev:
	default:
		d.log.Warn("dispatch queue full, event dropped", "kind", ev.Kind, "project_id", ev.ProjectID)
	}
}

// Close stops intake, drains the queue and waits for the worker to finish,
// so events enqueued before shutdown still reach connected clients.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for ev := range d.queue {
		d.deliver(ev)
	}
}

// deliver pushes one event to every connection in the room. A failed send is
// logged and skipped; it never aborts delivery to the remaining connections.
func (d *Dispatcher) deliver(ev core.Event) {
	members := d.reg.MembersOf(ev.ProjectID)
	if len(members) == 0 {
		return
	}

	var failed int
	for _, c := range members {
		if err := c.Send(ev); err != nil {
			failed++
			d.log.Warn("event delivery failed",
				"kind", ev.Kind, "project_id", ev.ProjectID, "conn_id", c.ID(), "error", err)
		}
	}
	d.log.Debug("event dispatched",
		"kind", ev.Kind, "project_id", ev.ProjectID, "connections", len(members), "failed", failed)
}
