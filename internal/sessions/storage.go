// Package sessions holds the in-memory session store. API keys exist only
// inside these records; ending or expiring a session destroys them.
package sessions

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/WIlski54/Leseassistent/internal/providers"
	"github.com/WIlski54/Leseassistent/internal/relay"
	"github.com/WIlski54/Leseassistent/internal/students"
	"github.com/google/uuid"
)

const sweepInterval = 5 * time.Minute

type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

func NewStore(ttl time.Duration) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
	go s.sweepExpired()
	return s
}

// Create allocates a session with a unique code and a fresh teacher token.
func (s *Store) Create(keys providers.Keys, pin string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Try up to 10 times to generate a unique code
	for range 10 {
		code, err := GenerateCode()
		if err != nil {
			return nil, fmt.Errorf("generating session code: %w", err)
		}
		if _, exists := s.sessions[code]; exists {
			continue
		}

		now := time.Now()
		session := &Session{
			Code:         code,
			TeacherToken: uuid.New().String(),
			Keys:         keys,
			PIN:          pin,
			CreatedAt:    now,
			ExpiresAt:    now.Add(s.ttl),
			Students:     students.NewStore(),
			Hub:          relay.NewHub(),
			translations: make(map[string]*TranslationRequest),
		}
		s.sessions[code] = session
		return session, nil
	}
	return nil, fmt.Errorf("failed to generate unique session code after 10 attempts")
}

// Get returns the session, or nil when it doesn't exist or has expired.
// An expired session is removed on access.
func (s *Store) Get(code string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[code]
	if !ok {
		return nil
	}
	if session.Expired(time.Now()) {
		delete(s.sessions, code)
		return nil
	}
	return session
}

// Delete removes a session and returns it, so the caller can shut down its
// hub. Returns nil when the code is unknown.
func (s *Store) Delete(code string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[code]
	if !ok {
		return nil
	}
	delete(s.sessions, code)
	return session
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) sweepExpired() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		var expired []*Session

		s.mu.Lock()
		for code, session := range s.sessions {
			if session.Expired(now) {
				delete(s.sessions, code)
				expired = append(expired, session)
			}
		}
		s.mu.Unlock()

		for _, session := range expired {
			session.Hub.Shutdown(relay.Message{
				Event: relay.EventSessionEnded,
				Info:  "Die Session ist abgelaufen.",
			})
			slog.Info("session expired", "code", session.Code)
		}
	}
}
