package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/history-diff-service/internal/cutout"
	"github.com/spec-kit/history-diff-service/internal/domain"
	"github.com/spec-kit/history-diff-service/internal/history"
)

// Viewport is the panel geometry a render was computed for.
type Viewport struct {
	WidthPx      float64
	LineHeightPx float64
}

// Session holds the server-side render state of one open history panel:
// the rendered blocks, the per-cell cutout states, and the geometry they
// were computed for.
type Session struct {
	ID         string
	UserID     string
	Project    string
	ItemID     int
	Generation int64

	mu           sync.Mutex
	Blocks       []history.RenderedUpdate
	Cells        map[string]*cutout.CellState
	Viewport     Viewport
	Config       domain.UserConfig
	ShowAll      bool
	ScrollOffset float64

	lastAccess  time.Time
	debounceSeq uint64
}

// SessionManager owns the in-process session table and the per-item
// generation counters that supersede stale loads.
type SessionManager struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	generations map[string]int64
	ttl         time.Duration
	debounce    time.Duration
}

// NewSessionManager builds the manager.
func NewSessionManager(ttl, debounce time.Duration) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*Session),
		generations: make(map[string]int64),
		ttl:         ttl,
		debounce:    debounce,
	}
}

func itemKey(project string, itemID int) string {
	return fmt.Sprintf("%s|%d", project, itemID)
}

// BeginLoad bumps and returns the generation for an item. A load that
// finishes after another BeginLoad or Invalidate for the same item is
// stale and must be discarded.
func (m *SessionManager) BeginLoad(project string, itemID int) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := itemKey(project, itemID)
	m.generations[key]++
	return m.generations[key]
}

// StillCurrent reports whether a load begun at generation gen is still the
// newest one for the item.
func (m *SessionManager) StillCurrent(project string, itemID int, gen int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generations[itemKey(project, itemID)] == gen
}

// Invalidate supersedes in-flight loads and drops finished sessions for an
// item. Called when the host reports a save or refresh.
func (m *SessionManager) Invalidate(project string, itemID int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := itemKey(project, itemID)
	m.generations[key]++
	for id, sess := range m.sessions {
		if sess.Project == project && sess.ItemID == itemID {
			delete(m.sessions, id)
		}
	}
}

// Create registers a new session for a finished load.
func (m *SessionManager) Create(sess *Session) *Session {
	sess.ID = uuid.NewString()
	sess.lastAccess = time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return sess
}

// Get returns a live session and refreshes its idle timer.
func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	sess.lastAccess = time.Now()
	return sess, true
}

// Drop removes a session.
func (m *SessionManager) Drop(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// EvictIdle removes sessions idle longer than the TTL. Returns how many
// were dropped.
func (m *SessionManager) EvictIdle() int {
	cutoff := time.Now().Add(-m.ttl)
	m.mu.Lock()
	defer m.mu.Unlock()
	dropped := 0
	for id, sess := range m.sessions {
		if sess.lastAccess.Before(cutoff) {
			delete(m.sessions, id)
			dropped++
		}
	}
	return dropped
}

// StartJanitor evicts idle sessions periodically until ctx is done.
func (m *SessionManager) StartJanitor(ctx context.Context) {
	interval := m.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.EvictIdle()
			}
		}
	}()
}

// DebounceLatest coalesces a burst of recompute requests on one session.
// Every call advances the sequence and waits out the quiet period; only
// the call still holding the newest sequence afterwards may proceed.
func (m *SessionManager) DebounceLatest(ctx context.Context, sess *Session) (bool, error) {
	sess.mu.Lock()
	sess.debounceSeq++
	seq := sess.debounceSeq
	sess.mu.Unlock()

	if m.debounce > 0 {
		timer := time.NewTimer(m.debounce)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return seq == sess.debounceSeq, nil
}
