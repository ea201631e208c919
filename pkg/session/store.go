package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/getmockd/scriptd/internal/id"
	"github.com/getmockd/scriptd/pkg/logging"
	"github.com/getmockd/scriptd/pkg/response"
)

// CookieName is the cookie carrying the session id.
const CookieName = "sid"

// DefaultTimeout is how long a session lives without requests.
const DefaultTimeout = 10 * time.Minute

// Session is the server-side state of one client.
type Session struct {
	ID   string
	Host string

	// Params are the persistent parameters. They are shared by concurrent
	// requests of the same client.
	Params *response.Params

	validUntil time.Time
}

// ValidUntil returns the expiry time as of the last renewal. Read it only
// through the store that owns the session.
func (s *Session) ValidUntil() time.Time { return s.validUntil }

// Store maps session ids to sessions. All lookups and mutations go through
// one mutex; the map itself is never handed out.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session

	timeout time.Duration
	newID   func() string
	now     func() time.Time
	log     *slog.Logger
	onSweep func(removed, remaining int)
}

// Option configures a Store.
type Option func(*Store)

// WithTimeout sets the idle lifetime of a session.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithIDGenerator replaces the session id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithClock sets the time source used by the background sweeper.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSweepHook is called after every background sweep.
func WithSweepHook(fn func(removed, remaining int)) Option {
	return func(s *Store) {
		s.onSweep = fn
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		timeout:  DefaultTimeout,
		newID:    id.SessionID,
		now:      time.Now,
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Timeout returns the idle lifetime of a session.
func (s *Store) Timeout() time.Duration { return s.timeout }

// Resolve returns the session for sid. When sid is empty, unknown, expired
// or bound to another host a new session is created and created is true.
// Otherwise the session's expiry is pushed to now plus the timeout.
func (s *Store) Resolve(sid, host string, now time.Time) (sess *Session, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sid != "" {
		if existing, ok := s.sessions[sid]; ok {
			if existing.Host == host && now.Before(existing.validUntil) {
				existing.validUntil = now.Add(s.timeout)
				return existing, false
			}
			delete(s.sessions, sid)
		}
	}

	newID := s.newID()
	for _, taken := s.sessions[newID]; taken; _, taken = s.sessions[newID] {
		newID = s.newID()
	}
	sess = &Session{
		ID:         newID,
		Host:       host,
		Params:     response.NewParams(),
		validUntil: now.Add(s.timeout),
	}
	s.sessions[newID] = sess
	return sess, true
}

// Lookup returns a live session without renewing it.
func (s *Store) Lookup(sid string, now time.Time) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sid]
	if !ok || !now.Before(sess.validUntil) {
		return nil, false
	}
	return sess, true
}

// SweepExpired removes sessions whose expiry is not after now and returns
// how many were removed.
func (s *Store) SweepExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for sid, sess := range s.sessions {
		if !now.Before(sess.validUntil) {
			delete(s.sessions, sid)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions, expired ones included until
// the next sweep.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Run sweeps expired sessions every interval until ctx is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := s.SweepExpired(s.now())
			remaining := s.Len()
			if removed > 0 {
				s.log.Debug("swept expired sessions", "removed", removed, "remaining", remaining)
			}
			if s.onSweep != nil {
				s.onSweep(removed, remaining)
			}
		}
	}
}
