// Package providers wraps the outbound calls to the third-party AI services
// (ElevenLabs, OpenAI, Anthropic, Google). Every call is made with a
// caller-supplied API key; nothing here retains a key beyond the request.
package providers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Supported AI provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// Keys holds the per-session credentials supplied by the teacher. They live
// only in the in-memory session record and die with it.
type Keys struct {
	ElevenLabs  string
	AI          string
	AIProvider  string // openai | anthropic | google
	VoiceID     string
	STTProvider string // "browser" (client-side) or "scribe"
}

// LogValue redacts the credentials. Keys must never appear in log output.
func (k Keys) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("has_elevenlabs", k.ElevenLabs != ""),
		slog.Bool("has_ai", k.AI != ""),
		slog.String("ai_provider", k.AIProvider),
		slog.String("voice_id", k.VoiceID),
	)
}

// KnownProvider reports whether name is a supported AI provider.
func KnownProvider(name string) bool {
	switch name {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle:
		return true
	}
	return false
}

// UpstreamError carries a provider failure back to the caller unmodified in
// substance: the upstream HTTP status and its error message.
type UpstreamError struct {
	Provider string
	Status   int
	Message  string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
}

// Client issues the outbound provider requests. Base URLs are overridable so
// tests can point at a local httptest server.
type Client struct {
	HTTP *http.Client

	ElevenLabsURL string
	OpenAIURL     string
	AnthropicURL  string
	GoogleURL     string
}

func NewClient() *Client {
	return &Client{
		HTTP:          &http.Client{Timeout: 90 * time.Second},
		ElevenLabsURL: "https://api.elevenlabs.io",
		OpenAIURL:     "https://api.openai.com",
		AnthropicURL:  "https://api.anthropic.com",
		GoogleURL:     "https://generativelanguage.googleapis.com",
	}
}
