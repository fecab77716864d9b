package db

import (
	"fmt"
	"strings"
	"time"
)

// Usage event names. The table stores no text, no names and no credentials;
// session codes are short-lived and meaningless after the session ends.
const (
	EventSessionCreated = "session_created"
	EventSessionEnded   = "session_ended"
	EventStudentJoined  = "student_joined"
	EventTTSRequest     = "tts_request"
	EventTranslate      = "translate_request"
	EventOCR            = "ocr_request"
	EventSTT            = "stt_request"
	EventLLM            = "llm_request"
)

// UsageEvent is one anonymous usage record.
type UsageEvent struct {
	SessionCode string
	Event       string
	Provider    string
	CacheHit    bool
	Status      int
	DurationMs  int
	CreatedAt   time.Time
}

// BatchRecordEvents inserts usage events in one statement.
func (d *DB) BatchRecordEvents(events []UsageEvent) error {
	if len(events) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO usage_events
		(session_code, event, provider, cache_hit, status, duration_ms, created_at) VALUES `)

	args := make([]any, 0, len(events)*7)
	for i, ev := range events {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 7
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7)
		created := ev.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		args = append(args, ev.SessionCode, ev.Event, ev.Provider, ev.CacheHit, ev.Status, ev.DurationMs, created)
	}

	_, err := d.Exec(sb.String(), args...)
	if err != nil {
		return fmt.Errorf("batch inserting usage events: %w", err)
	}
	return nil
}
