// Package session tracks connected clients. A Session is one client's
// stream: an outbound frame queue plus the MCP notification channel. The
// Table maps session ids to live sessions and is the only process-wide
// mutable state of the transport.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// State is the lifecycle of a Session.
type State int32

const (
	StateOpen State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Frame is one server-to-client event.
type Frame struct {
	Event string
	Data  []byte
}

// Session is a connected client. The frame and notification channels are
// never closed; Done signals closure instead, so a late writer can never
// panic on a closed channel.
type Session struct {
	id        string
	createdAt time.Time

	lastActive  atomic.Int64
	state       atomic.Int32
	initialized atomic.Bool

	frames        chan Frame
	notifications chan mcp.JSONRPCNotification
	done          chan struct{}
	closeOnce     sync.Once
}

var _ server.ClientSession = (*Session)(nil)

func newSession(id string, buffer int) *Session {
	now := time.Now()
	s := &Session{
		id:            id,
		createdAt:     now,
		frames:        make(chan Frame, buffer),
		notifications: make(chan mcp.JSONRPCNotification, buffer),
		done:          make(chan struct{}),
	}
	s.lastActive.Store(now.UnixNano())
	return s
}

// SessionID returns the session identifier.
func (s *Session) SessionID() string { return s.id }

// Initialize marks the MCP handshake as complete.
func (s *Session) Initialize() { s.initialized.Store(true) }

// Initialized reports whether the MCP handshake completed.
func (s *Session) Initialized() bool { return s.initialized.Load() }

// NotificationChannel is where the MCP server pushes notifications.
func (s *Session) NotificationChannel() chan<- mcp.JSONRPCNotification {
	return s.notifications
}

// Notifications is the read side of NotificationChannel.
func (s *Session) Notifications() <-chan mcp.JSONRPCNotification {
	return s.notifications
}

// Frames is the queue of outbound frames.
func (s *Session) Frames() <-chan Frame {
	return s.frames
}

// Done is closed when the session closes.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// CreatedAt returns when the session was opened.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Touch records client activity.
func (s *Session) Touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

// LastActive returns the time of the last recorded activity.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Send queues a frame for the client. It blocks while the queue is full
// and returns false without queuing once the session is closed or ctx is
// done. Sending to a closed session is a no-op, never an error.
func (s *Session) Send(ctx context.Context, f Frame) bool {
	if s.State() != StateOpen {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.frames <- f:
		return true
	case <-s.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// Close transitions the session to closed. Safe to call repeatedly and
// concurrently.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosing))
		close(s.done)
		s.state.Store(int32(StateClosed))
	})
}
