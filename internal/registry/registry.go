package registry

import (
	"context"
	"log"
	"net"
	"sync"
	"time"

	"github.com/NuZard84/go-socket-typeflow/internal/constants"
	"github.com/NuZard84/go-socket-typeflow/internal/metrics"
	"github.com/NuZard84/go-socket-typeflow/internal/models"
	"github.com/NuZard84/go-socket-typeflow/internal/session"
)

// Conn is the write side of a session's connection. The gateway's
// connection wrapper implements it; the registry only ever sends.
type Conn interface {
	Send(msg models.ServerMessage) error
}

// entry ties a session to its connection and broadcaster. The triple is
// inserted atomically: no entry ever exists with a connection but no
// session state.
type entry struct {
	sess   *session.Session
	conn   Conn
	cancel context.CancelFunc // nil until the broadcaster starts
}

// Registry is the single authority for live sessions: it owns the mapping
// from session id to (state, connection, broadcaster) and serializes all
// lifecycle operations behind one lock.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	interval time.Duration
	logCap   int
}

// New creates a registry. interval is the broadcaster push period; logCap
// bounds each session's raw keystroke log.
func New(interval time.Duration, logCap int) *Registry {
	if interval <= 0 {
		interval = constants.DefaultBroadcastInterval
	}
	return &Registry{
		entries:  make(map[string]*entry),
		interval: interval,
		logCap:   logCap,
	}
}

// CreateOrGet registers conn under id, creating fresh session state when
// the id is new. Concurrent callers with the same id all observe the same
// state; exactly one entry wins. A reconnect with a live id attaches to the
// existing entry and rebinds its connection to the caller's socket.
func (r *Registry) CreateOrGet(id, ownerID string, conn Conn) *session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[id]; ok {
		e.conn = conn
		return e.sess
	}

	sess := session.New(id, ownerID, r.logCap)
	r.entries[id] = &entry{sess: sess, conn: conn}
	log.Printf("session registered: %s", id)
	return sess
}

// Get looks up a live session. Callers must treat a miss as recoverable.
func (r *Registry) Get(id string) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.sess, true
}

// Has reports whether a session id is currently live.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[id]
	return ok
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// StartBroadcaster launches the per-session metrics push loop. No-op when
// the entry is gone or already has a running broadcaster, so a double
// start_session never spawns a second loop.
func (r *Registry) StartBroadcaster(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok || e.cancel != nil {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	r.mu.Unlock()

	go r.broadcastLoop(ctx, id)
	log.Printf("metrics broadcaster started for session %s (every %v)", id, r.interval)
}

// Remove cancels the session's broadcaster and discards its state. Safe to
// call repeatedly; later calls are no-ops. Cancellation happens before the
// map entry is deleted, and snapshots are computed under the same lock
// Remove takes, so a broadcaster that wakes after Remove finds nothing to
// read.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	if e.cancel != nil {
		e.cancel()
	}
	delete(r.entries, id)
	r.mu.Unlock()

	log.Printf("session removed: %s", id)
}

// broadcastLoop pushes a metrics snapshot every interval until cancelled.
// A transient send failure is logged and the loop continues; a permanent
// one tears the session down through the same path as a disconnect.
func (r *Registry) broadcastLoop(ctx context.Context, id string) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, conn, ok := r.snapshotLocked(id)
			if !ok {
				return
			}
			msg := models.ServerMessage{
				Type:    constants.MsgMetricsUpdate,
				Metrics: &snap,
				Time:    time.Now().UTC(),
			}
			if err := conn.Send(msg); err != nil {
				if ne, ok := err.(net.Error); ok && ne.Timeout() {
					log.Printf("metrics push timed out for session %s, retrying next tick: %v", id, err)
					continue
				}
				log.Printf("metrics push failed for session %s, tearing down: %v", id, err)
				r.Remove(id)
				return
			}
		}
	}
}

// snapshotLocked computes a snapshot while holding the registry lock so it
// strictly precedes any concurrent Remove. The send itself happens after
// the lock is released; an in-flight send racing a removal may still
// complete, which is fine.
func (r *Registry) snapshotLocked(id string) (metrics.Snapshot, Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return metrics.Snapshot{}, nil, false
	}
	return e.sess.Snapshot(time.Now().UTC()), e.conn, true
}

// StartReaper sweeps out sessions idle longer than idleTimeout. Disabled
// when idleTimeout is zero or negative. The sweep stops when ctx is done.
func (r *Registry) StartReaper(ctx context.Context, idleTimeout time.Duration) {
	if idleTimeout <= 0 {
		return
	}

	sweep := idleTimeout / 2
	if sweep < time.Second {
		sweep = time.Second
	}

	go func() {
		ticker := time.NewTicker(sweep)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, id := range r.idleSessions(idleTimeout) {
					log.Printf("reaping idle session %s", id)
					r.Remove(id)
				}
			}
		}
	}()
	log.Printf("idle session reaper running (timeout %v)", idleTimeout)
}

func (r *Registry) idleSessions(idleTimeout time.Duration) []string {
	cutoff := time.Now().UTC().Add(-idleTimeout)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, e := range r.entries {
		if e.sess.Started() && e.sess.LastActivity().Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}
