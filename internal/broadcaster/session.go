package broadcaster

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goevery/notifier/internal/auth"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

var (
	ErrSessionClosed    = errors.New("session is closed")
	ErrSendQueueFull    = errors.New("session send queue is full")
	ErrSessionNotActive = errors.New("session is not active")
)

type SessionState int32

const (
	SessionStateConnecting SessionState = iota
	SessionStateAuthenticating
	SessionStateActive
	SessionStateClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionStateConnecting:
		return "connecting"
	case SessionStateAuthenticating:
		return "authenticating"
	case SessionStateActive:
		return "active"
	case SessionStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one real-time connection as seen by the registry. The transport
// drains Outbound and watches Done; everything else only calls Send.
type Session struct {
	Id         string
	Room       string
	CreateTime time.Time

	state    atomic.Int32
	identity atomic.Pointer[auth.Identity]

	send chan []byte
	done chan struct{}

	closeOnce  sync.Once
	hooksMu    sync.Mutex
	closeHooks []func(*Session)
}

func NewSession(room string, queueSize int) *Session {
	return &Session{
		Id:         gonanoid.Must(),
		Room:       room,
		CreateTime: time.Now(),
		send:       make(chan []byte, queueSize),
		done:       make(chan struct{}),
	}
}

func (s *Session) State() SessionState {
	return SessionState(s.state.Load())
}

// BeginAuthentication moves a connecting session to authenticating.
func (s *Session) BeginAuthentication() bool {
	return s.state.CompareAndSwap(int32(SessionStateConnecting), int32(SessionStateAuthenticating))
}

// Activate binds the verified identity and makes the session admissible.
func (s *Session) Activate(identity auth.Identity) bool {
	s.identity.Store(&identity)

	return s.state.CompareAndSwap(int32(SessionStateAuthenticating), int32(SessionStateActive))
}

func (s *Session) Identity() auth.Identity {
	identity := s.identity.Load()
	if identity == nil {
		return auth.Identity{}
	}

	return *identity
}

func (s *Session) Send(payload []byte) error {
	if s.State() == SessionStateClosed {
		return ErrSessionClosed
	}

	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	select {
	case s.send <- payload:
		return nil
	default:
		return ErrSendQueueFull
	}
}

func (s *Session) Outbound() <-chan []byte {
	return s.send
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

// OnClose registers a hook run once when the session closes. Hooks added
// after the session closed run immediately.
func (s *Session) OnClose(hook func(*Session)) {
	s.hooksMu.Lock()
	if s.State() != SessionStateClosed {
		s.closeHooks = append(s.closeHooks, hook)
		s.hooksMu.Unlock()
		return
	}
	s.hooksMu.Unlock()

	hook(s)
}

// Close is the single terminal transition; it is safe to call from any
// goroutine any number of times.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.hooksMu.Lock()
		s.state.Store(int32(SessionStateClosed))
		hooks := s.closeHooks
		s.closeHooks = nil
		s.hooksMu.Unlock()

		close(s.done)

		for _, hook := range hooks {
			hook(s)
		}
	})
}

type contextKey string

const sessionKey contextKey = "session"

func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionKey).(*Session)

	return session, ok
}
