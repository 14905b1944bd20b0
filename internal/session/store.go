package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Store owns the live sessions and expires the idle ones.
type Store struct {
	cfg    Config
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewStore creates a store. Sessions idle for longer than ttl are closed by a
// background sweep; a non-positive ttl keeps sessions until Close.
func NewStore(cfg Config, ttl time.Duration) *Store {
	s := &Store{
		cfg:      cfg,
		ttl:      ttl,
		logger:   cfg.Logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
		done:     make(chan struct{}),
	}
	if ttl > 0 {
		s.wg.Add(1)
		go s.janitor(ttl / 2)
	}
	return s
}

// Create starts a new session with a random identifier.
func (s *Store) Create() *Session {
	sess := New(uuid.NewString(), s.cfg)

	s.mu.Lock()
	s.sessions[sess.id] = sess
	count := len(s.sessions)
	s.mu.Unlock()

	s.logger.Debug().Str("session", sess.id).Int("sessions", count).Msg("session created")
	return sess
}

// Get returns the session for id.
func (s *Store) Get(id string) (*Session, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		sess.touch()
	}
	return sess, ok
}

// GetOrCreate returns the session for id, or a new one when id is unknown.
// created reports whether a new session was made.
func (s *Store) GetOrCreate(id string) (sess *Session, created bool) {
	if sess, ok := s.Get(id); ok {
		return sess, false
	}
	return s.Create(), true
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep closes the sessions idle for longer than the ttl and returns how many
// were removed.
func (s *Store) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.ttl)

	var expired []*Session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		if err := sess.Close(); err != nil {
			s.logger.Warn().Err(err).Str("session", sess.id).Msg("closing expired session")
		}
	}
	if len(expired) > 0 {
		s.logger.Debug().Int("expired", len(expired)).Msg("sessions swept")
	}
	return len(expired)
}

// Close stops the sweep and closes every session.
func (s *Store) Close() error {
	var firstErr error
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()

		s.mu.Lock()
		sessions := s.sessions
		s.sessions = make(map[string]*Session)
		s.mu.Unlock()

		for _, sess := range sessions {
			if err := sess.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}

func (s *Store) janitor(interval time.Duration) {
	defer s.wg.Done()

	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.done:
			return
		}
	}
}
