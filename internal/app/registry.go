package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dkeye/Rendezvous/internal/core"
	"github.com/dkeye/Rendezvous/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrNotFound = errors.New("connection not found")

type connEntry struct {
	conn     core.SignalConnection
	cancel   context.CancelFunc
	lastSeen atomic.Int64
	once     sync.Once

	mu     sync.Mutex
	room   domain.RoomID
	closed bool
}

// Registry owns every live connection. It is the only component allowed to
// close a transport, and Unregister is the single disconnect path for
// explicit close, read/write errors, heartbeat expiry and kicks.
type Registry struct {
	mu       sync.RWMutex
	conns    map[domain.ConnID]*connEntry
	policy   Policy
	now      func() time.Time
	onDetach func(domain.ConnID)
}

func NewRegistry(policy Policy) *Registry {
	if policy == nil {
		policy = SimplePolicy{}
	}
	return &Registry{
		conns:  make(map[domain.ConnID]*connEntry),
		policy: policy,
		now:    time.Now,
	}
}

// OnDisconnect sets the hook run exactly once per connection on teardown.
// Must be called before any connection is registered.
func (r *Registry) OnDisconnect(fn func(domain.ConnID)) {
	r.onDetach = fn
}

func (r *Registry) Register(conn core.SignalConnection, cancel context.CancelFunc) domain.ConnID {
	id := domain.ConnID(uuid.NewString())
	e := &connEntry{conn: conn, cancel: cancel}
	e.lastSeen.Store(r.now().UnixNano())

	r.mu.Lock()
	r.conns[id] = e
	r.mu.Unlock()
	log.Info().Str("module", "app.registry").Str("sid", string(id)).Msg("registered connection")
	return id
}

func (r *Registry) entry(id domain.ConnID) (*connEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	return e, ok
}

func (r *Registry) IsOpen(id domain.ConnID) bool {
	e, ok := r.entry(id)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed
}

// Send hands a frame to the connection's write pump without blocking.
func (r *Registry) Send(id domain.ConnID, f core.Frame) error {
	e, ok := r.entry(id)
	if !ok || !r.IsOpen(id) {
		return fmt.Errorf("send to %s: %w", id, ErrNotFound)
	}
	err := e.conn.TrySend(f)
	if err == nil {
		return nil
	}
	switch r.policy.OnSendFailure(id, err) {
	case KickMember:
		log.Warn().Err(err).Str("module", "app.registry").Str("sid", string(id)).Msg("send failed, kicking connection")
		// Callers may hold a room lock; teardown takes it again.
		go r.Unregister(id)
	case DropFrame:
		log.Debug().Err(err).Str("module", "app.registry").Str("sid", string(id)).Msg("frame dropped")
	case NoAction:
	}
	return fmt.Errorf("send to %s: %w", id, err)
}

// Unregister closes the transport and runs the disconnect hook. Safe to
// call any number of times from any goroutine.
func (r *Registry) Unregister(id domain.ConnID) {
	e, ok := r.entry(id)
	if !ok {
		return
	}
	e.once.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()

		if e.cancel != nil {
			e.cancel()
		}
		e.conn.Close()
		if r.onDetach != nil {
			r.onDetach(id)
		}

		r.mu.Lock()
		delete(r.conns, id)
		r.mu.Unlock()
		log.Info().Str("module", "app.registry").Str("sid", string(id)).Msg("unregistered connection")
	})
}

// Touch records inbound activity for the heartbeat sweeper.
func (r *Registry) Touch(id domain.ConnID) {
	if e, ok := r.entry(id); ok {
		e.lastSeen.Store(r.now().UnixNano())
	}
}

// BindRoom records the room a connection joined. It fails once the
// connection started closing, so a join racing a disconnect can undo itself.
func (r *Registry) BindRoom(id domain.ConnID, room domain.RoomID) bool {
	e, ok := r.entry(id)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.room = room
	return true
}

func (r *Registry) RoomOf(id domain.ConnID) (domain.RoomID, bool) {
	e, ok := r.entry(id)
	if !ok {
		return "", false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.room, e.room != ""
}

// TakeRoom clears and returns the room binding. Only one caller wins.
func (r *Registry) TakeRoom(id domain.ConnID) (domain.RoomID, bool) {
	e, ok := r.entry(id)
	if !ok {
		return "", false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	room := e.room
	e.room = ""
	return room, room != ""
}

// TakeRoomIf clears the binding only if it still points at room.
func (r *Registry) TakeRoomIf(id domain.ConnID, room domain.RoomID) bool {
	e, ok := r.entry(id)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.room != room {
		return false
	}
	e.room = ""
	return true
}

// Sweep unregisters every connection silent for longer than timeout.
func (r *Registry) Sweep(timeout time.Duration) int {
	cutoff := r.now().Add(-timeout).UnixNano()
	var stale []domain.ConnID
	r.mu.RLock()
	for id, e := range r.conns {
		if e.lastSeen.Load() < cutoff {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	for _, id := range stale {
		log.Info().Str("module", "app.registry").Str("sid", string(id)).Msg("heartbeat expired")
		r.Unregister(id)
	}
	return len(stale)
}

func (r *Registry) RunSweeper(ctx context.Context, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(timeout); n > 0 {
				log.Info().Str("module", "app.registry").Int("expired", n).Msg("sweep done")
			}
		}
	}
}

func (r *Registry) CloseAll() {
	r.mu.RLock()
	ids := make([]domain.ConnID, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	for _, id := range ids {
		r.Unregister(id)
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
