package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/WIlski54/Leseassistent/internal/assist"
	"github.com/WIlski54/Leseassistent/internal/cache"
	"github.com/WIlski54/Leseassistent/internal/db"
	"github.com/WIlski54/Leseassistent/internal/providers"
	"github.com/WIlski54/Leseassistent/internal/relay"
	"github.com/WIlski54/Leseassistent/internal/sessions"
	"github.com/WIlski54/Leseassistent/internal/usage"
	"github.com/WIlski54/Leseassistent/internal/voices"
	"github.com/skip2/go-qrcode"
)

type Server struct {
	Sessions  *sessions.Store
	Providers *providers.Client
	Assist    *assist.Service
	Voices    *voices.Registry
	Metrics   *Metrics

	TTSCache         *cache.Cache
	TranslationCache *cache.Cache

	BaseURL string // public base URL for student join links

	DB          *db.DB             // nil if no database configured
	UsageBuffer chan db.UsageEvent // nil if no database configured
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writing response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeJSON parses the request body. A malformed body is the caller's
// mistake, never a reason to touch an upstream provider.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeUpstreamError maps a provider failure onto the response: the upstream
// status and message pass through unchanged, anything else is a bad gateway.
func (s *Server) writeUpstreamError(w http.ResponseWriter, err error) {
	var ue *providers.UpstreamError
	if errors.As(err, &ue) {
		s.Metrics.UpstreamErrors.Add(1)
		writeJSON(w, ue.Status, map[string]any{
			"error":    ue.Message,
			"provider": ue.Provider,
		})
		return
	}
	slog.Error("upstream request failed", "err", err)
	writeError(w, http.StatusBadGateway, "upstream request failed")
}

// recordUsage queues an anonymous usage event. A full buffer drops the event.
func (s *Server) recordUsage(ev db.UsageEvent) {
	if s.UsageBuffer == nil {
		return
	}
	select {
	case s.UsageBuffer <- ev:
	default:
		slog.Warn("usage buffer full, dropping event", "event", ev.Event)
	}
}

// aiCredentials resolves the LLM provider and key for a request: the session's
// stored keys when a session code is given, the request's own otherwise.
func (s *Server) aiCredentials(sessionCode, apiKey, provider string) (string, string, *sessions.Session, error) {
	if sessionCode != "" {
		session := s.Sessions.Get(strings.ToUpper(sessionCode))
		if session == nil {
			return "", "", nil, errSessionNotFound
		}
		if session.Keys.AI == "" {
			return "", "", session, errNoAIKey
		}
		return session.Keys.AIProvider, session.Keys.AI, session, nil
	}
	if apiKey == "" {
		return "", "", nil, errNoAIKey
	}
	if provider == "" {
		provider = providers.ProviderOpenAI
	}
	if !providers.KnownProvider(provider) {
		return "", "", nil, errUnknownProvider
	}
	return provider, apiKey, nil, nil
}

var (
	errSessionNotFound = errors.New("session not found")
	errNoAIKey         = errors.New("no AI API key available")
	errUnknownProvider = errors.New("unknown AI provider")
)

func writeCredentialError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, errUnknownProvider):
		writeError(w, http.StatusBadRequest, "unknown AI provider")
	default:
		writeError(w, http.StatusUnauthorized, "no API key available")
	}
}

// decodeBase64Payload accepts both raw base64 and data URLs
// ("data:audio/webm;base64,....").
func decodeBase64Payload(s string) ([]byte, error) {
	if i := strings.Index(s, ";base64,"); i != -1 {
		s = s[i+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(s)
}

// stripDataURL returns the bare base64 part and, when the payload is a data
// URL, its MIME type.
func stripDataURL(s string) (string, string) {
	if !strings.HasPrefix(s, "data:") {
		return s, ""
	}
	rest := s[len("data:"):]
	i := strings.Index(rest, ";base64,")
	if i == -1 {
		return s, ""
	}
	return rest[i+len(";base64,"):], rest[:i]
}

// --- Session lifecycle -------------------------------------------------------

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ElevenLabsKey string `json:"elevenlabs_key"`
		AIKey         string `json:"ai_key"`
		AIProvider    string `json:"ai_provider"`
		VoiceID       string `json:"voice_id"`
		STTProvider   string `json:"stt_provider"`
		PIN           string `json:"pin"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.AIProvider != "" && !providers.KnownProvider(req.AIProvider) {
		writeError(w, http.StatusBadRequest, "unknown AI provider")
		return
	}

	keys := providers.Keys{
		ElevenLabs:  req.ElevenLabsKey,
		AI:          req.AIKey,
		AIProvider:  req.AIProvider,
		VoiceID:     req.VoiceID,
		STTProvider: req.STTProvider,
	}
	session, err := s.Sessions.Create(keys, req.PIN)
	if err != nil {
		slog.Error("creating session", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	s.Metrics.SessionsCreated.Add(1)
	s.recordUsage(db.UsageEvent{SessionCode: session.Code, Event: db.EventSessionCreated})
	slog.Info("session created", "code", session.Code, "keys", session.Keys)

	writeJSON(w, http.StatusOK, map[string]any{
		"code":          session.Code,
		"teacher_token": session.TeacherToken,
		"expires":       session.ExpiresAt.Format(time.RFC3339),
	})
}

func (s *Server) handleSessionJoin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	session := s.Sessions.Get(strings.ToUpper(strings.TrimSpace(req.Code)))
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code":          session.Code,
		"student_count": session.Hub.StudentCount(),
	})
}

func (s *Server) handleSessionEnd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code         string `json:"code"`
		TeacherToken string `json:"teacher_token"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	session := s.Sessions.Get(code)
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if !session.Authorize(req.TeacherToken) {
		s.Metrics.FailedAuths.Add(1)
		writeError(w, http.StatusForbidden, "invalid teacher token")
		return
	}

	s.Sessions.Delete(code)
	session.Hub.Shutdown(relay.Message{
		Event: relay.EventSessionEnded,
		Info:  "Die Lehrkraft hat die Session beendet.",
	})

	s.Metrics.SessionsEnded.Add(1)
	s.recordUsage(db.UsageEvent{SessionCode: code, Event: db.EventSessionEnded})
	slog.Info("session ended", "code", code)

	writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	session := s.Sessions.Get(strings.ToUpper(r.PathValue("code")))
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"code":                   session.Code,
		"student_count":          session.Hub.StudentCount(),
		"created":                session.CreatedAt.Format(time.RFC3339),
		"expires":                session.ExpiresAt.Format(time.RFC3339),
		"simplification_enabled": session.SimplificationEnabled(),
	})
}

// handleSessionSettings returns the client-safe subset of a session's
// configuration. Key material never leaves the session record.
func (s *Server) handleSessionSettings(w http.ResponseWriter, r *http.Request) {
	session := s.Sessions.Get(strings.ToUpper(r.PathValue("code")))
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	resp := map[string]any{
		"stt_provider":           session.Keys.STTProvider,
		"voice_id":               s.Voices.ResolveVoice("", session.Keys.VoiceID),
		"ai_provider":            session.Keys.AIProvider,
		"has_elevenlabs":         session.Keys.ElevenLabs != "",
		"has_ai":                 session.Keys.AI != "",
		"simplification_enabled": session.SimplificationEnabled(),
	}
	if settings := session.Settings(); settings != nil {
		resp["settings"] = settings
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionQR(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(r.PathValue("code"))
	session := s.Sessions.Get(code)
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	base := s.BaseURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	joinURL := fmt.Sprintf("%s/?code=%s", strings.TrimSuffix(base, "/"), code)

	png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
	if err != nil {
		slog.Error("encoding QR code", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to render QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(png); err != nil {
		slog.Error("writing QR response", "err", err)
	}
}

// --- Shared text and settings ------------------------------------------------

func (s *Server) handleSessionTextSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code         string          `json:"code"`
		TeacherToken string          `json:"teacher_token"`
		Text         string          `json:"text"`
		Settings     json.RawMessage `json:"settings,omitempty"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	session := s.Sessions.Get(strings.ToUpper(strings.TrimSpace(req.Code)))
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if !session.Authorize(req.TeacherToken) {
		s.Metrics.FailedAuths.Add(1)
		writeError(w, http.StatusForbidden, "invalid teacher token")
		return
	}

	session.SetText(req.Text)
	session.Hub.BroadcastStudents(relay.Message{
		Event: relay.EventTextUpdated,
		Text:  req.Text,
	})
	s.Metrics.RelayMessages.Add(1)

	if req.Settings != nil {
		session.SetSettings(req.Settings)
		session.Hub.BroadcastStudents(relay.Message{
			Event:    relay.EventSettings,
			Settings: req.Settings,
		})
		s.Metrics.RelayMessages.Add(1)
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSessionTextGet(w http.ResponseWriter, r *http.Request) {
	session := s.Sessions.Get(strings.ToUpper(r.PathValue("code")))
	if session == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	resp := map[string]any{"text": session.Text()}
	if settings := session.Settings(); settings != nil {
		resp["settings"] = settings
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Provider proxy ----------------------------------------------------------

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text        string `json:"text"`
		SessionCode string `json:"session_code"`
		APIKey      string `json:"api_key"`
		VoiceID     string `json:"voice_id"`
		Language    string `json:"language"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	apiKey := req.APIKey
	sessionVoice := ""
	sessionCode := strings.ToUpper(req.SessionCode)
	if sessionCode != "" {
		session := s.Sessions.Get(sessionCode)
		if session == nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if session.Keys.ElevenLabs != "" {
			apiKey = session.Keys.ElevenLabs
		}
		sessionVoice = session.Keys.VoiceID
	}
	if apiKey == "" {
		writeError(w, http.StatusUnauthorized, "no ElevenLabs API key available")
		return
	}

	voice := s.Voices.ResolveVoice(req.VoiceID, sessionVoice)
	lang := s.Voices.ResolveLanguage(req.Language)
	key := cache.Key(req.Text, voice, lang)

	if data, ok := s.TTSCache.Get(key); ok {
		s.Metrics.CacheHits.Add(1)
		s.recordUsage(db.UsageEvent{
			SessionCode: sessionCode, Event: db.EventTTSRequest,
			Provider: "elevenlabs", CacheHit: true, Status: http.StatusOK,
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
		return
	}

	s.Metrics.ProxyRequests.Add(1)
	start := time.Now()
	out, err := s.Providers.SynthesizeWithTimestamps(r.Context(), apiKey, providers.TTSRequest{
		Text:         req.Text,
		VoiceID:      voice,
		ModelID:      voices.DefaultModelID,
		LanguageCode: lang,
	})
	if err != nil {
		s.recordUsage(db.UsageEvent{
			SessionCode: sessionCode, Event: db.EventTTSRequest,
			Provider: "elevenlabs", Status: upstreamStatus(err),
			DurationMs: int(time.Since(start).Milliseconds()),
		})
		s.writeUpstreamError(w, err)
		return
	}

	s.TTSCache.Add(key, out)
	s.recordUsage(db.UsageEvent{
		SessionCode: sessionCode, Event: db.EventTTSRequest,
		Provider: "elevenlabs", Status: http.StatusOK,
		DurationMs: int(time.Since(start).Milliseconds()),
	})
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(out)
}

func upstreamStatus(err error) int {
	var ue *providers.UpstreamError
	if errors.As(err, &ue) {
		return ue.Status
	}
	return http.StatusBadGateway
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text        string `json:"text"`
		Target      string `json:"target_language"`
		SessionCode string `json:"session_code"`
		APIKey      string `json:"api_key"`
		AIProvider  string `json:"ai_provider"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" || req.Target == "" {
		writeError(w, http.StatusBadRequest, "text and target_language are required")
		return
	}

	resp := func(translated string, cached bool) map[string]any {
		return map[string]any{
			"translated_text": translated,
			"target_language": req.Target,
			"language_name":   assist.LanguageName(req.Target),
			"cached":          cached,
		}
	}

	// German is the source language; nothing to translate, nothing to cache.
	if req.Target == "de" {
		writeJSON(w, http.StatusOK, resp(req.Text, false))
		return
	}

	key := cache.Key(req.Text, req.Target)
	if data, ok := s.TranslationCache.Get(key); ok {
		s.Metrics.CacheHits.Add(1)
		s.recordUsage(db.UsageEvent{
			SessionCode: strings.ToUpper(req.SessionCode), Event: db.EventTranslate,
			CacheHit: true, Status: http.StatusOK,
		})
		writeJSON(w, http.StatusOK, resp(string(data), true))
		return
	}

	provider, apiKey, _, err := s.aiCredentials(req.SessionCode, req.APIKey, req.AIProvider)
	if err != nil {
		writeCredentialError(w, err)
		return
	}

	s.Metrics.ProxyRequests.Add(1)
	start := time.Now()
	translated, err := s.Assist.Translate(r.Context(), provider, apiKey, req.Text, req.Target)
	if err != nil {
		s.recordUsage(db.UsageEvent{
			SessionCode: strings.ToUpper(req.SessionCode), Event: db.EventTranslate,
			Provider: provider, Status: upstreamStatus(err),
			DurationMs: int(time.Since(start).Milliseconds()),
		})
		s.writeUpstreamError(w, err)
		return
	}

	s.TranslationCache.Add(key, []byte(translated))
	s.recordUsage(db.UsageEvent{
		SessionCode: strings.ToUpper(req.SessionCode), Event: db.EventTranslate,
		Provider: provider, Status: http.StatusOK,
		DurationMs: int(time.Since(start).Milliseconds()),
	})
	writeJSON(w, http.StatusOK, resp(translated, false))
}

func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Image       string `json:"image"`
		MimeType    string `json:"mime_type"`
		SessionCode string `json:"session_code"`
		APIKey      string `json:"api_key"`
		AIProvider  string `json:"ai_provider"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Image == "" {
		writeError(w, http.StatusBadRequest, "image is required")
		return
	}

	imageB64, urlMime := stripDataURL(req.Image)
	mime := req.MimeType
	if mime == "" {
		mime = urlMime
	}
	if mime == "" {
		mime = "image/jpeg"
	}

	provider, apiKey, _, err := s.aiCredentials(req.SessionCode, req.APIKey, req.AIProvider)
	if err != nil {
		writeCredentialError(w, err)
		return
	}

	s.Metrics.ProxyRequests.Add(1)
	start := time.Now()
	text, err := s.Assist.ExtractText(r.Context(), provider, apiKey, imageB64, mime)
	s.recordUsage(db.UsageEvent{
		SessionCode: strings.ToUpper(req.SessionCode), Event: db.EventOCR,
		Provider: provider, Status: ocrStatus(err),
		DurationMs: int(time.Since(start).Milliseconds()),
	})
	if errors.Is(err, assist.ErrNoText) {
		writeError(w, http.StatusUnprocessableEntity, "no text recognized in image")
		return
	}
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": text})
}

func ocrStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, assist.ErrNoText):
		return http.StatusUnprocessableEntity
	default:
		return upstreamStatus(err)
	}
}

func (s *Server) handleSpeechToText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Audio         string `json:"audio"`
		Language      string `json:"language"`
		SessionCode   string `json:"session_code"`
		STTProvider   string `json:"stt_provider"`
		ElevenLabsKey string `json:"elevenlabs_key"`
		APIKey        string `json:"api_key"`
		AIProvider    string `json:"ai_provider"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Audio == "" {
		writeError(w, http.StatusBadRequest, "audio is required")
		return
	}
	audio, err := decodeBase64Payload(req.Audio)
	if err != nil {
		writeError(w, http.StatusBadRequest, "audio is not valid base64")
		return
	}

	sttProvider := req.STTProvider
	elevenKey := req.ElevenLabsKey
	sessionCode := strings.ToUpper(req.SessionCode)
	if sessionCode != "" {
		session := s.Sessions.Get(sessionCode)
		if session == nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		if sttProvider == "" {
			sttProvider = session.Keys.STTProvider
		}
		if elevenKey == "" {
			elevenKey = session.Keys.ElevenLabs
		}
	}

	// Scribe runs on the ElevenLabs key with word timestamps; everything else
	// goes through the session's LLM provider.
	if sttProvider == "scribe" {
		if elevenKey == "" {
			writeError(w, http.StatusUnauthorized, "no ElevenLabs API key available")
			return
		}
		s.Metrics.ProxyRequests.Add(1)
		start := time.Now()
		result, err := s.Providers.TranscribeScribe(r.Context(), elevenKey, audio, req.Language)
		s.recordUsage(db.UsageEvent{
			SessionCode: sessionCode, Event: db.EventSTT,
			Provider: "elevenlabs", Status: sttStatus(err),
			DurationMs: int(time.Since(start).Milliseconds()),
		})
		if err != nil {
			s.writeUpstreamError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	provider, apiKey, _, err := s.aiCredentials(req.SessionCode, req.APIKey, req.AIProvider)
	if err != nil {
		writeCredentialError(w, err)
		return
	}

	s.Metrics.ProxyRequests.Add(1)
	start := time.Now()
	text, err := s.Providers.Transcribe(r.Context(), provider, apiKey, audio, req.Language)
	s.recordUsage(db.UsageEvent{
		SessionCode: sessionCode, Event: db.EventSTT,
		Provider: provider, Status: sttStatus(err),
		DurationMs: int(time.Since(start).Milliseconds()),
	})
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"text":     text,
		"language": req.Language,
	})
}

func sttStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return upstreamStatus(err)
}

// --- Educational features ----------------------------------------------------

func (s *Server) handleGenerateTasks(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text         string `json:"text"`
		SessionCode  string `json:"session_code"`
		TeacherToken string `json:"teacher_token"`
		APIKey       string `json:"api_key"`
		AIProvider   string `json:"ai_provider"`
		Release      bool   `json:"release"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	provider, apiKey, session, err := s.aiCredentials(req.SessionCode, req.APIKey, req.AIProvider)
	if err != nil {
		writeCredentialError(w, err)
		return
	}

	text := req.Text
	if text == "" && session != nil {
		text = session.Text()
	}
	if strings.TrimSpace(text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	if req.Release {
		if session == nil {
			writeError(w, http.StatusBadRequest, "release requires a session")
			return
		}
		if !session.Authorize(req.TeacherToken) {
			s.Metrics.FailedAuths.Add(1)
			writeError(w, http.StatusForbidden, "invalid teacher token")
			return
		}
	}

	s.Metrics.ProxyRequests.Add(1)
	start := time.Now()
	tasks, err := s.Assist.GenerateTasks(r.Context(), provider, apiKey, text)
	s.recordUsage(db.UsageEvent{
		SessionCode: strings.ToUpper(req.SessionCode), Event: db.EventLLM,
		Provider: provider, Status: sttStatus(err),
		DurationMs: int(time.Since(start).Milliseconds()),
	})
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}

	if req.Release {
		session.ReleaseTasks(tasks)
		session.Hub.BroadcastStudents(relay.Message{
			Event: relay.EventTasksReleased,
			Tasks: tasks,
		})
		s.Metrics.RelayMessages.Add(1)
	}

	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "released": req.Release})
}

func (s *Server) handleWordInfo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Word        string `json:"word"`
		Language    string `json:"language"`
		SessionCode string `json:"session_code"`
		APIKey      string `json:"api_key"`
		AIProvider  string `json:"ai_provider"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	word := assist.CleanWord(req.Word)
	if word == "" {
		writeError(w, http.StatusBadRequest, "word is required")
		return
	}

	provider, apiKey, _, err := s.aiCredentials(req.SessionCode, req.APIKey, req.AIProvider)
	if err != nil {
		writeCredentialError(w, err)
		return
	}

	s.Metrics.ProxyRequests.Add(1)
	start := time.Now()
	info, err := s.Assist.WordInfo(r.Context(), provider, apiKey, word, req.Language)
	s.recordUsage(db.UsageEvent{
		SessionCode: strings.ToUpper(req.SessionCode), Event: db.EventLLM,
		Provider: provider, Status: sttStatus(err),
		DurationMs: int(time.Since(start).Milliseconds()),
	})
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}

	var result map[string]any
	if err := json.Unmarshal(info, &result); err != nil {
		slog.Error("word info is not an object", "err", err)
		writeError(w, http.StatusBadGateway, "malformed word info")
		return
	}

	// The Gemini image model can illustrate the word. A failed image is not a
	// failed lookup.
	if provider == providers.ProviderGoogle {
		explanation, _ := result["simple_explanation"].(string)
		img, err := s.Assist.WordImage(r.Context(), apiKey, word, explanation)
		if err != nil {
			slog.Warn("word image generation failed", "err", err)
		} else {
			result["image"] = img
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSimplify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text         string `json:"text"`
		Level        string `json:"level"`
		SessionCode  string `json:"session_code"`
		TeacherToken string `json:"teacher_token"`
		APIKey       string `json:"api_key"`
		AIProvider   string `json:"ai_provider"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if !assist.ValidLevel(req.Level) {
		writeError(w, http.StatusBadRequest, "level must be A1, A2 or B1")
		return
	}

	provider, apiKey, session, err := s.aiCredentials(req.SessionCode, req.APIKey, req.AIProvider)
	if err != nil {
		writeCredentialError(w, err)
		return
	}

	// Students may only simplify when the teacher has enabled it. A valid
	// teacher token bypasses the gate.
	if session != nil && !session.SimplificationEnabled() && !session.Authorize(req.TeacherToken) {
		writeError(w, http.StatusForbidden, "simplification is not enabled for this session")
		return
	}

	s.Metrics.ProxyRequests.Add(1)
	start := time.Now()
	simplified, err := s.Assist.Simplify(r.Context(), provider, apiKey, req.Text, req.Level)
	s.recordUsage(db.UsageEvent{
		SessionCode: strings.ToUpper(req.SessionCode), Event: db.EventLLM,
		Provider: provider, Status: sttStatus(err),
		DurationMs: int(time.Since(start).Milliseconds()),
	})
	if err != nil {
		s.writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"simplified_text": simplified,
		"level":           req.Level,
	})
}

// --- Operational endpoints ---------------------------------------------------

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]cache.Stats{
		"tts":         s.TTSCache.Stats(),
		"translation": s.TranslationCache.Stats(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.DB != nil {
		if err := s.DB.Ping(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "db_error",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUsageStats(w http.ResponseWriter, _ *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "usage analytics not configured")
		return
	}
	stats, err := usage.NewQueries(s.DB).Collect()
	if err != nil {
		slog.Error("collecting usage stats", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to collect usage stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
