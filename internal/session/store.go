package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/codehouse/bookshop/internal/domain"
)

var sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "bookshop_sessions_active",
	Help: "Current number of live shopping sessions",
})

// Flash is a one-shot message displayed on the next page view.
type Flash struct {
	Kind    string `json:"kind"` // "success" or "failure"
	Message string `json:"message"`
}

// Session owns one cart and serializes all access to it. Two concurrent
// requests from the same session (double-submit, multiple tabs) contend on
// this mutex and never on a global one.
type Session struct {
	ID string

	mu      sync.Mutex
	cart    *domain.Cart
	flashes []Flash
}

// Update runs fn with the session's cart under the session lock. All cart
// mutations must go through here so they apply in request-arrival order.
func (s *Session) Update(fn func(cart *domain.Cart)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.cart)
}

// View runs fn with the cart under the session lock. Reads block briefly
// behind a concurrent mutation but never observe a half-updated cart.
func (s *Session) View(fn func(cart *domain.Cart)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.cart)
}

// PushFlash queues a one-shot message on the session.
func (s *Session) PushFlash(kind, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flashes = append(s.flashes, Flash{Kind: kind, Message: message})
}

// PopFlashes returns queued messages and clears the queue.
func (s *Session) PopFlashes() []Flash {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.flashes
	s.flashes = nil
	return out
}

type entry struct {
	session   *Session
	expiresAt time.Time
}

// Store holds live sessions keyed by session ID. Sessions are created on
// first access and destroyed when their TTL elapses; each entry carries its
// own lock so different sessions never contend.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	ttl      time.Duration
	logger   *slog.Logger
}

// NewStore creates a session store with the given idle TTL.
func NewStore(ttl time.Duration, logger *slog.Logger) *Store {
	return &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		logger:   logger,
	}
}

// GetOrCreate returns the session for the given ID, creating an empty one on
// first access. A blank ID gets a freshly generated one. Each lookup extends
// the session's TTL.
func (st *Store) GetOrCreate(id string) *Session {
	if id == "" {
		id = uuid.New().String()
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now().UTC()
	if e, ok := st.sessions[id]; ok && e.expiresAt.After(now) {
		e.expiresAt = now.Add(st.ttl)
		return e.session
	}

	sess := &Session{ID: id}
	sess.cart = domain.NewCart()
	st.sessions[id] = &entry{session: sess, expiresAt: now.Add(st.ttl)}
	sessionsActive.Set(float64(len(st.sessions)))
	return sess
}

// Get returns the session for the ID without creating one.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	e, ok := st.sessions[id]
	if !ok || !e.expiresAt.After(time.Now().UTC()) {
		return nil, false
	}
	return e.session, true
}

// Destroy removes the session, discarding its cart.
func (st *Store) Destroy(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
	sessionsActive.Set(float64(len(st.sessions)))
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Run sweeps expired sessions until the context is canceled. Intended to run
// as a background goroutine owned by the app.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.sweep()
		}
	}
}

func (st *Store) sweep() {
	now := time.Now().UTC()

	st.mu.Lock()
	var expired []string
	for id, e := range st.sessions {
		if !e.expiresAt.After(now) {
			expired = append(expired, id)
			delete(st.sessions, id)
		}
	}
	sessionsActive.Set(float64(len(st.sessions)))
	st.mu.Unlock()

	if len(expired) > 0 {
		st.logger.Debug("expired sessions swept", slog.Int("count", len(expired)))
	}
}
