package sessions

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/WIlski54/Leseassistent/internal/providers"
	"github.com/WIlski54/Leseassistent/internal/relay"
	"github.com/WIlski54/Leseassistent/internal/students"
)

// TranslationStatus values for a pending student request.
const (
	TranslationPending  = "pending"
	TranslationApproved = "approved"
	TranslationDenied   = "denied"
)

// TranslationRequest is a student's ask to read the text in another language,
// waiting for teacher approval.
type TranslationRequest struct {
	StudentID    string
	Language     string
	LanguageName string
	Status       string
	AnonymousID  string
	RequestedAt  time.Time
}

// Session is one classroom room: the teacher's keys, the shared text and the
// connected participants. Everything lives in RAM and dies with the session.
type Session struct {
	Code         string
	TeacherToken string // authorizes teacher-only operations, returned once at create
	Keys         providers.Keys
	PIN          string // optional dashboard PIN
	CreatedAt    time.Time
	ExpiresAt    time.Time

	Students *students.Store
	Hub      *relay.Hub

	mu             sync.Mutex
	text           string
	settings       json.RawMessage
	tasks          json.RawMessage
	tasksReleased  bool
	simplification bool
	translations   map[string]*TranslationRequest
}

// Expired reports whether the session has passed its TTL.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Authorize checks the teacher token.
func (s *Session) Authorize(token string) bool {
	return token != "" && token == s.TeacherToken
}

func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

func (s *Session) SetText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = text
}

func (s *Session) Settings() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Session) SetSettings(settings json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// Tasks returns the released tasks, or nil while the teacher holds them back.
func (s *Session) Tasks() json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tasksReleased {
		return nil
	}
	return s.tasks
}

// ReleaseTasks stores tasks and makes them visible to students.
func (s *Session) ReleaseTasks(tasks json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = tasks
	s.tasksReleased = true
}

func (s *Session) SimplificationEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.simplification
}

func (s *Session) SetSimplification(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simplification = enabled
}

// AddTranslationRequest records a pending request, replacing any earlier one
// from the same student.
func (s *Session) AddTranslationRequest(req *TranslationRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req.Status = TranslationPending
	req.RequestedAt = time.Now()
	s.translations[req.StudentID] = req
}

func (s *Session) TranslationRequest(studentID string) *TranslationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.translations[studentID]
}

// ResolveTranslation updates the status of a pending request. Returns nil when
// no request exists for the student.
func (s *Session) ResolveTranslation(studentID, status string) *TranslationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.translations[studentID]
	if !ok {
		return nil
	}
	req.Status = status
	return req
}
