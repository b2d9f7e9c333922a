package broadcaster

import (
	"encoding/json"
	"sync"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

type Registry interface {
	Admit(room string, session *Session) error
	Evict(room string, session *Session)
	MembersOf(room string) []*Session
	SendToAll(room string, message Message)
	SendToAllExcept(room string, message Message, identityId int64)
	SendToIdentity(room string, identityId int64, message Message)
	SendToSession(session *Session, message Message)
}

type InMemoryRegistry struct {
	logger *zap.Logger
	mu     sync.RWMutex

	rooms map[string]map[string]*Session
}

func NewInMemoryRegistry(
	logger *zap.Logger,
) *InMemoryRegistry {
	return &InMemoryRegistry{
		logger: logger,
		rooms:  make(map[string]map[string]*Session),
	}
}

func (r *InMemoryRegistry) Admit(room string, session *Session) error {
	if session.State() != SessionStateActive {
		return ErrSessionNotActive
	}

	r.mu.Lock()

	// Rooms are created on first reference and kept even when empty.
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]*Session)
		r.rooms[room] = members
	}

	_, alreadyMember := members[session.Id]
	members[session.Id] = session
	count := len(members)

	r.mu.Unlock()

	if alreadyMember {
		return nil
	}

	r.logger.Debug("session admitted",
		zap.String("room", room),
		zap.String("sessionId", session.Id),
		zap.Int64("userId", session.Identity().Id),
		zap.Int("members", count))

	// Registered outside the lock: on an already closed session the hook
	// runs immediately and needs the write lock itself.
	session.OnClose(func(s *Session) {
		r.Evict(room, s)
	})

	return nil
}

func (r *InMemoryRegistry) Evict(room string, session *Session) {
	r.mu.Lock()

	members, ok := r.rooms[room]
	if !ok {
		r.mu.Unlock()
		return
	}

	if _, ok := members[session.Id]; !ok {
		r.mu.Unlock()
		return
	}

	delete(members, session.Id)
	count := len(members)

	r.mu.Unlock()

	r.logger.Debug("session evicted",
		zap.String("room", room),
		zap.String("sessionId", session.Id),
		zap.Int("members", count))
}

func (r *InMemoryRegistry) MembersOf(room string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Values(r.rooms[room])
}

func (r *InMemoryRegistry) SendToAll(room string, message Message) {
	r.deliver(message, r.MembersOf(room))
}

func (r *InMemoryRegistry) SendToAllExcept(room string, message Message, identityId int64) {
	members := lo.Reject(r.MembersOf(room), func(s *Session, _ int) bool {
		return s.Identity().Id == identityId
	})

	r.deliver(message, members)
}

func (r *InMemoryRegistry) SendToIdentity(room string, identityId int64, message Message) {
	members := lo.Filter(r.MembersOf(room), func(s *Session, _ int) bool {
		return s.Identity().Id == identityId
	})

	r.deliver(message, members)
}

func (r *InMemoryRegistry) SendToSession(session *Session, message Message) {
	r.deliver(message, []*Session{session})
}

// Stats reports the member count of every room referenced so far.
func (r *InMemoryRegistry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.MapValues(r.rooms, func(members map[string]*Session, _ string) int {
		return len(members)
	})
}

// Shutdown closes every admitted session. Close hooks evict them.
func (r *InMemoryRegistry) Shutdown() {
	r.mu.RLock()
	var sessions []*Session
	for _, members := range r.rooms {
		sessions = append(sessions, lo.Values(members)...)
	}
	r.mu.RUnlock()

	for _, session := range sessions {
		session.Close()
	}

	r.logger.Info("registry shut down", zap.Int("sessions", len(sessions)))
}

// deliver runs without holding r.mu. A session whose send fails is closed,
// which evicts it through its close hook; the remaining sends go on.
func (r *InMemoryRegistry) deliver(message Message, sessions []*Session) {
	if len(sessions) == 0 {
		return
	}

	payload, err := json.Marshal(message)
	if err != nil {
		r.logger.Error("failed to encode message",
			zap.String("type", message.MessageType()),
			zap.Error(err))
		return
	}

	for _, session := range sessions {
		if err := session.Send(payload); err != nil {
			r.logger.Warn("delivery failed, closing session",
				zap.String("sessionId", session.Id),
				zap.String("room", session.Room),
				zap.String("type", message.MessageType()),
				zap.Error(err))

			session.Close()
		}
	}
}
