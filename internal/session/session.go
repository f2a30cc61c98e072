package session

import (
	"errors"
	"sync"
	"time"

	"github.com/NuZard84/go-socket-typeflow/internal/metrics"
)

var (
	// ErrNotStarted is returned when a keystroke or finish arrives before
	// the session received start_session.
	ErrNotStarted = errors.New("session not started")

	// ErrClosed is returned for operations on a finished session.
	ErrClosed = errors.New("session closed")
)

// Keystroke is one recorded key event.
type Keystroke struct {
	Char      string    `json:"char"`
	Correct   bool      `json:"correct"`
	Timestamp time.Time `json:"timestamp"`
}

// Session accumulates keystrokes for one typing attempt. The owning
// connection's read loop is the only writer; the periodic broadcaster only
// reads, through Snapshot. Counter updates happen under mu so a snapshot
// never observes a half-applied keystroke.
type Session struct {
	ID      string
	OwnerID string

	mu           sync.RWMutex
	started      bool
	finished     bool
	startTime    time.Time
	lastActivity time.Time
	keystrokes   []Keystroke
	logCap       int
	correct      int
	total        int
}

// New creates an unstarted session. logCap bounds the retained raw
// keystroke log; zero or negative means unbounded. The counters never
// depend on retained log entries.
func New(id, ownerID string, logCap int) *Session {
	return &Session{
		ID:      id,
		OwnerID: ownerID,
		logCap:  logCap,
	}
}

// Start arms the session clock. Starting an already running session resets
// counters and history: the prior attempt is discarded and timing restarts
// from now. Both counters are zeroed under the same lock, so no sequence of
// operations can leave correct > total.
func (s *Session) Start(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = true
	s.finished = false
	s.startTime = now
	s.lastActivity = now
	s.keystrokes = nil
	s.correct = 0
	s.total = 0
}

// RecordKeystroke appends one key event and bumps the running counters.
// ts is the client-reported event time kept in the log; now updates
// liveness.
func (s *Session) RecordKeystroke(char string, correct bool, ts, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return ErrClosed
	}
	if !s.started {
		return ErrNotStarted
	}

	if s.logCap > 0 && len(s.keystrokes) >= s.logCap {
		// Drop the oldest entry; the counters keep the full tally.
		copy(s.keystrokes, s.keystrokes[1:])
		s.keystrokes = s.keystrokes[:len(s.keystrokes)-1]
	}
	s.keystrokes = append(s.keystrokes, Keystroke{Char: char, Correct: correct, Timestamp: ts})

	s.total++
	if correct {
		s.correct++
	}
	s.lastActivity = now

	return nil
}

// Touch refreshes the liveness timestamp without recording anything.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastActivity = now
}

// Snapshot computes the current metrics. It has no side effects; two calls
// with the same now yield identical results.
func (s *Session) Snapshot(now time.Time) metrics.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started {
		return metrics.Calculate(0, 0, now, now)
	}
	return metrics.Calculate(s.correct, s.total, s.startTime, now)
}

// Finish marks the session terminal and returns the final snapshot. After
// Finish, RecordKeystroke returns ErrClosed.
func (s *Session) Finish(now time.Time) (metrics.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return metrics.Snapshot{}, ErrClosed
	}
	if !s.started {
		return metrics.Snapshot{}, ErrNotStarted
	}

	s.finished = true
	return metrics.Calculate(s.correct, s.total, s.startTime, now), nil
}

// Started reports whether the session received its start.
func (s *Session) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Finished reports whether the session is terminal.
func (s *Session) Finished() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finished
}

// Counts returns the running correct and total tallies.
func (s *Session) Counts() (correct, total int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.correct, s.total
}

// StartTime returns the timestamp captured at session start.
func (s *Session) StartTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startTime
}

// LastActivity returns the time of the most recent keystroke or heartbeat.
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// KeystrokeCount returns the number of retained raw log entries, which may
// be less than the total tally once the cap kicks in.
func (s *Session) KeystrokeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keystrokes)
}
