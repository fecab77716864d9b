package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/WIlski54/Leseassistent/internal/assist"
	"github.com/WIlski54/Leseassistent/internal/cache"
	"github.com/WIlski54/Leseassistent/internal/db"
	"github.com/WIlski54/Leseassistent/internal/relay"
	"github.com/WIlski54/Leseassistent/internal/sessions"
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const sendBufferSize = 32

// handleWS upgrades GET /ws?code=&role=&name=&token= into a session relay
// connection. The teacher role requires the session's teacher token.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(r.URL.Query().Get("code"))
	role := relay.Role(r.URL.Query().Get("role"))
	name := r.URL.Query().Get("name")
	token := r.URL.Query().Get("token")

	session := s.Sessions.Get(code)
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	switch role {
	case relay.RoleTeacher:
		if !session.Authorize(token) {
			s.Metrics.FailedAuths.Add(1)
			writeError(w, http.StatusForbidden, "invalid teacher token")
			return
		}
	case relay.RoleStudent:
	default:
		writeError(w, http.StatusBadRequest, "role must be teacher or student")
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "code", code, "err", err)
		return
	}

	client := &relay.Client{
		ID:   uuid.New().String(),
		Role: role,
		Conn: conn,
		Send: make(chan []byte, sendBufferSize),
	}

	ctx := r.Context()
	s.Metrics.ActiveConnections.Add(1)
	defer s.Metrics.ActiveConnections.Add(-1)

	session.Hub.Register(client)
	go client.WritePump(ctx)

	if role == relay.RoleStudent {
		student := session.Students.Add(client.ID, name)
		client.AnonymousID = student.AnonymousID()
		s.Metrics.StudentsJoined.Add(1)
		s.recordUsage(db.UsageEvent{SessionCode: code, Event: db.EventStudentJoined})

		session.Hub.SendTeacher(relay.Message{
			Event:       relay.EventStudentJoin,
			StudentID:   client.ID,
			AnonymousID: client.AnonymousID,
			Name:        student.Name,
			Count:       session.Hub.StudentCount(),
		})
		s.sendSnapshot(client, session)
		slog.Info("student joined", "code", code, "anonymous_id", client.AnonymousID)
	} else {
		// Replay current membership so a reconnecting teacher sees the room.
		for _, st := range session.Students.List() {
			queue(client, relay.Message{
				Event:       relay.EventStudentJoin,
				StudentID:   st.ID,
				AnonymousID: st.AnonymousID(),
				Name:        st.Name,
				Level:       st.Level,
				Count:       session.Hub.StudentCount(),
			})
		}
		queue(client, relay.Message{
			Event: relay.EventJoined,
			Count: session.Hub.StudentCount(),
		})
		slog.Info("teacher connected", "code", code)
	}

	s.readLoop(ctx, session, client)

	if session.Hub.Unregister(client) && role == relay.RoleStudent {
		session.Students.Remove(client.ID)
		session.Hub.SendTeacher(relay.Message{
			Event:       relay.EventStudentLeft,
			StudentID:   client.ID,
			AnonymousID: client.AnonymousID,
			Count:       session.Hub.StudentCount(),
		})
	}
	_ = conn.Close(websocket.StatusNormalClosure, "")
}

// sendSnapshot delivers the current session state to a joining student only.
// Late joiners get the present state, never a replay of past control messages.
func (s *Server) sendSnapshot(c *relay.Client, session *sessions.Session) {
	msg := relay.Message{
		Event:       relay.EventJoined,
		StudentID:   c.ID,
		AnonymousID: c.AnonymousID,
		Text:        session.Text(),
		Settings:    session.Settings(),
		Tasks:       session.Tasks(),
	}
	if st := session.Students.Get(c.ID); st != nil {
		msg.Name = st.Name
	}
	enabled := session.SimplificationEnabled()
	msg.Enabled = &enabled
	queue(c, msg)
}

func queue(c *relay.Client, msg relay.Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshaling relay message", "event", msg.Event, "err", err)
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

func (s *Server) readLoop(ctx context.Context, session *sessions.Session, c *relay.Client) {
	for {
		_, data, err := c.Conn.Read(ctx)
		if err != nil {
			return
		}
		var msg relay.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			queue(c, relay.Message{Event: relay.EventError, Info: "invalid message"})
			continue
		}
		if c.Role == relay.RoleTeacher {
			s.handleTeacherMessage(session, msg)
		} else {
			s.handleStudentMessage(session, c, msg)
		}
	}
}

func (s *Server) handleTeacherMessage(session *sessions.Session, msg relay.Message) {
	switch msg.Event {
	case relay.EventPlay, relay.EventPause, relay.EventSeek:
		session.Hub.BroadcastStudents(msg)
		s.Metrics.RelayMessages.Add(1)

	case relay.EventTextUpdated:
		session.SetText(msg.Text)
		session.Hub.BroadcastStudents(msg)
		s.Metrics.RelayMessages.Add(1)

	case relay.EventSettings:
		session.SetSettings(msg.Settings)
		session.Hub.BroadcastStudents(msg)
		s.Metrics.RelayMessages.Add(1)

	case relay.EventTasksReleased:
		session.ReleaseTasks(msg.Tasks)
		session.Hub.BroadcastStudents(msg)
		s.Metrics.RelayMessages.Add(1)

	case relay.EventSimplification:
		if msg.Enabled == nil {
			return
		}
		session.SetSimplification(*msg.Enabled)
		session.Hub.BroadcastStudents(msg)
		s.Metrics.RelayMessages.Add(1)

	case relay.EventTranslationApproved:
		req := session.ResolveTranslation(msg.StudentID, sessions.TranslationApproved)
		if req == nil {
			return
		}
		// Translation runs outside the teacher's read loop; a slow provider
		// must not stall playback control.
		go s.deliverTranslation(session, req, msg.Layout)

	case relay.EventTranslationDenied:
		req := session.ResolveTranslation(msg.StudentID, sessions.TranslationDenied)
		if req == nil {
			return
		}
		session.Hub.SendStudent(msg.StudentID, relay.Message{
			Event:     relay.EventTranslationDenied,
			StudentID: msg.StudentID,
			Language:  req.Language,
		})
		s.Metrics.RelayMessages.Add(1)

	default:
		slog.Debug("ignoring teacher event", "event", msg.Event)
	}
}

// deliverTranslation translates the session text with the session's own AI key
// and pushes the result to the approved student. The student never sees a key;
// the approval is all the teacher sends.
func (s *Server) deliverTranslation(session *sessions.Session, req *sessions.TranslationRequest, layout string) {
	msg := relay.Message{
		Event:        relay.EventTranslationApproved,
		StudentID:    req.StudentID,
		Language:     req.Language,
		LanguageName: req.LanguageName,
		Layout:       layout,
	}

	text := session.Text()
	if strings.TrimSpace(text) == "" || req.Language == "de" {
		msg.TranslatedText = text
		session.Hub.SendStudent(req.StudentID, msg)
		s.Metrics.RelayMessages.Add(1)
		return
	}

	key := cache.Key(text, req.Language)
	if data, ok := s.TranslationCache.Get(key); ok {
		s.Metrics.CacheHits.Add(1)
		s.recordUsage(db.UsageEvent{
			SessionCode: session.Code, Event: db.EventTranslate,
			Provider: session.Keys.AIProvider, CacheHit: true, Status: http.StatusOK,
		})
		msg.TranslatedText = string(data)
		session.Hub.SendStudent(req.StudentID, msg)
		s.Metrics.RelayMessages.Add(1)
		return
	}

	if session.Keys.AI == "" {
		session.Hub.SendStudent(req.StudentID, relay.Message{
			Event: relay.EventError,
			Info:  "Kein KI-Schlüssel für Übersetzungen hinterlegt.",
		})
		return
	}

	// Detached from the teacher's connection context on purpose: the approval
	// should complete even if the teacher tab reloads meanwhile.
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	s.Metrics.ProxyRequests.Add(1)
	start := time.Now()
	translated, err := s.Assist.Translate(ctx, session.Keys.AIProvider, session.Keys.AI, text, req.Language)
	s.recordUsage(db.UsageEvent{
		SessionCode: session.Code, Event: db.EventTranslate,
		Provider: session.Keys.AIProvider, Status: sttStatus(err),
		DurationMs: int(time.Since(start).Milliseconds()),
	})
	if err != nil {
		slog.Warn("approved translation failed", "code", session.Code, "language", req.Language, "err", err)
		session.Hub.SendStudent(req.StudentID, relay.Message{
			Event: relay.EventError,
			Info:  "Übersetzung fehlgeschlagen.",
		})
		return
	}

	s.TranslationCache.Add(key, []byte(translated))
	msg.TranslatedText = translated
	session.Hub.SendStudent(req.StudentID, msg)
	s.Metrics.RelayMessages.Add(1)
}

func (s *Server) handleStudentMessage(session *sessions.Session, c *relay.Client, msg relay.Message) {
	switch msg.Event {
	case relay.EventTranslationRequest:
		session.AddTranslationRequest(&sessions.TranslationRequest{
			StudentID:    c.ID,
			Language:     msg.Language,
			LanguageName: assist.LanguageName(msg.Language),
			AnonymousID:  c.AnonymousID,
		})
		session.Hub.SendTeacher(relay.Message{
			Event:        relay.EventTranslationRequest,
			StudentID:    c.ID,
			AnonymousID:  c.AnonymousID,
			Language:     msg.Language,
			LanguageName: assist.LanguageName(msg.Language),
		})

	case relay.EventStudentLevel:
		session.Students.SetLevel(c.ID, msg.Level)
		session.Hub.SendTeacher(relay.Message{
			Event:       relay.EventStudentLevel,
			StudentID:   c.ID,
			AnonymousID: c.AnonymousID,
			Level:       msg.Level,
		})

	case relay.EventJoin:
		// A client asking for the current state again, e.g. after a reload
		// restored its connection. Gets a fresh snapshot, never a replay.
		s.sendSnapshot(c, session)

	case relay.EventLeave:
		// The connection teardown after the read loop handles departure.

	default:
		slog.Debug("ignoring student event", "event", msg.Event)
	}
}
