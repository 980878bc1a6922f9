package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when an id does not name an open session.
var ErrNotFound = errors.New("session not found")

// defaultBuffer is the per-session outbound queue size.
const defaultBuffer = 64

// Table maps session ids to open sessions. Every entry is added exactly
// once, by Create, and removed exactly once, by Remove (or Reap/CloseAll).
type Table struct {
	mu       sync.Mutex
	sessions map[string]*Session

	newID    func() string
	onRemove func(*Session)
	buffer   int
}

// TableOption configures a Table.
type TableOption func(*Table)

// WithIDGenerator overrides id generation. Ids must be unpredictable in
// production; this exists for tests.
func WithIDGenerator(fn func() string) TableOption {
	return func(t *Table) { t.newID = fn }
}

// WithOnRemove registers a hook run once per removed session, after it
// has left the table and been closed.
func WithOnRemove(fn func(*Session)) TableOption {
	return func(t *Table) { t.onRemove = fn }
}

// WithBuffer sets the outbound queue size of new sessions.
func WithBuffer(n int) TableOption {
	return func(t *Table) {
		if n > 0 {
			t.buffer = n
		}
	}
}

// NewTable creates an empty table.
func NewTable(opts ...TableOption) *Table {
	t := &Table{
		sessions: make(map[string]*Session),
		newID:    uuid.NewString,
		buffer:   defaultBuffer,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Create allocates a session with a fresh random id and inserts it.
func (t *Table) Create() *Session {
	t.mu.Lock()
	defer t.mu.Unlock()

	for {
		id := t.newID()
		if _, taken := t.sessions[id]; taken || id == "" {
			continue
		}
		s := newSession(id, t.buffer)
		t.sessions[id] = s
		return s
	}
}

// Lookup returns the open session for id.
func (t *Table) Lookup(id string) (*Session, bool) {
	t.mu.Lock()
	s, ok := t.sessions[id]
	t.mu.Unlock()
	return s, ok
}

// Get is Lookup returning ErrNotFound on a miss.
func (t *Table) Get(id string) (*Session, error) {
	s, ok := t.Lookup(id)
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Remove deletes and closes the session. It is idempotent and reports
// whether this call performed the removal.
func (t *Table) Remove(id string) bool {
	return t.removeIf(id, nil)
}

// removeIf removes id when keep is nil or reports true for the session.
// keep runs under the table lock so the decision and the removal are
// one step.
func (t *Table) removeIf(id string, keep func(*Session) bool) bool {
	t.mu.Lock()
	s, ok := t.sessions[id]
	if ok && keep != nil && !keep(s) {
		ok = false
	}
	if ok {
		delete(t.sessions, id)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}
	s.Close()
	if t.onRemove != nil {
		t.onRemove(s)
	}
	return true
}

// Len returns the number of open sessions.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// IDs returns the ids of all open sessions, sorted.
func (t *Table) IDs() []string {
	t.mu.Lock()
	ids := make([]string, 0, len(t.sessions))
	for id := range t.sessions {
		ids = append(ids, id)
	}
	t.mu.Unlock()
	sort.Strings(ids)
	return ids
}

// Reap removes every session idle for longer than idle as of now and
// returns their ids.
func (t *Table) Reap(idle time.Duration, now time.Time) []string {
	t.mu.Lock()
	var stale []string
	for id, s := range t.sessions {
		if now.Sub(s.LastActive()) > idle {
			stale = append(stale, id)
		}
	}
	t.mu.Unlock()

	// Activity recorded since the snapshot, such as a message accepted
	// meanwhile, spares the session.
	idleSince := func(s *Session) bool { return now.Sub(s.LastActive()) > idle }
	removed := stale[:0]
	for _, id := range stale {
		if t.removeIf(id, idleSince) {
			removed = append(removed, id)
		}
	}
	return removed
}

// CloseAll removes every session and returns how many were open.
func (t *Table) CloseAll() int {
	n := 0
	for _, id := range t.IDs() {
		if t.Remove(id) {
			n++
		}
	}
	return n
}
