package relay

import "encoding/json"

// Event names exchanged over the room channel.
const (
	// Playback control, teacher to students.
	EventPlay  = "play"
	EventPause = "pause"
	EventSeek  = "seek"

	// Membership.
	EventJoin         = "join"
	EventJoined       = "joined"
	EventLeave        = "leave"
	EventStudentJoin  = "student_joined"
	EventStudentLeft  = "student_left"
	EventSessionEnded = "session_ended"
	EventError        = "error"

	// Shared session state, teacher to students.
	EventTextUpdated    = "text_updated"
	EventSettings       = "settings_updated"
	EventTasksReleased  = "tasks_released"
	EventSimplification = "simplification_toggled"

	// Translation workflow.
	EventTranslationRequest  = "translation_request"
	EventTranslationApproved = "translation_approved"
	EventTranslationDenied   = "translation_denied"

	// Student status, student to teacher.
	EventStudentLevel = "student_level"
)

// Message is the JSON control message relayed between teacher and students.
// Only the fields relevant to an event are set; the rest are omitted.
type Message struct {
	Event    string  `json:"event"`
	Position int     `json:"position,omitempty"` // word index for seek
	Speed    float64 `json:"speed,omitempty"`    // playback speed factor

	Text     string          `json:"text,omitempty"`
	Settings json.RawMessage `json:"settings,omitempty"`
	Tasks    json.RawMessage `json:"tasks,omitempty"`
	Enabled  *bool           `json:"enabled,omitempty"`

	Language       string `json:"language,omitempty"`
	LanguageName   string `json:"language_name,omitempty"`
	TranslatedText string `json:"translated_text,omitempty"`
	Layout         string `json:"layout,omitempty"`
	Level          string `json:"level,omitempty"`

	StudentID   string `json:"student_id,omitempty"`
	AnonymousID string `json:"anonymous_id,omitempty"`
	Name        string `json:"name,omitempty"`
	Count       int    `json:"count,omitempty"`
	Info        string `json:"message,omitempty"`
}
