package web

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/liftsource/catalog-import/internal/importer"
)

// session is one in-flight import attempt. Sessions hold no catalog state:
// abandoning one at Upload or Preview has no side effects.
type session struct {
	ID        string
	Pipeline  *importer.Pipeline
	CreatedAt time.Time

	mu         sync.Mutex
	lastAccess time.Time
}

func (s *session) touch() {
	s.mu.Lock()
	s.lastAccess = time.Now()
	s.mu.Unlock()
}

func (s *session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

// sessionRegistry tracks import sessions by id and evicts abandoned ones
// after a TTL.
type sessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	ttl      time.Duration
	stop     chan struct{}
}

func newSessionRegistry(ttl time.Duration) *sessionRegistry {
	r := &sessionRegistry{
		sessions: make(map[string]*session),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go r.janitor()
	return r
}

// Create registers a new session for the given pipeline and returns its id.
func (r *sessionRegistry) Create(p *importer.Pipeline) *session {
	s := &session{
		ID:         uuid.New().String(),
		Pipeline:   p,
		CreatedAt:  time.Now(),
		lastAccess: time.Now(),
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Get returns the session for id, refreshing its idle timer.
func (r *sessionRegistry) Get(id string) (*session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		s.touch()
	}
	return s, ok
}

// Count returns the number of live sessions.
func (r *sessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close stops the eviction goroutine.
func (r *sessionRegistry) Close() {
	close(r.stop)
}

// janitor evicts sessions idle longer than the TTL.
func (r *sessionRegistry) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-r.ttl)
			r.mu.Lock()
			for id, s := range r.sessions {
				if s.idleSince().Before(cutoff) {
					delete(r.sessions, id)
				}
			}
			r.mu.Unlock()
		}
	}
}
