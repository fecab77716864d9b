package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testClient(upstream *httptest.Server) *Client {
	c := NewClient()
	c.ElevenLabsURL = upstream.URL
	c.OpenAIURL = upstream.URL
	c.AnthropicURL = upstream.URL
	c.GoogleURL = upstream.URL
	return c
}

func TestSynthesizeWithTimestamps(t *testing.T) {
	var gotKey, gotPath string
	var gotBody map[string]any

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("xi-api-key")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"audio_base64":"QUJD","alignment":{}}`))
	}))
	defer upstream.Close()

	c := testClient(upstream)
	raw, err := c.SynthesizeWithTimestamps(context.Background(), "sk_test", TTSRequest{
		Text:         "Der Hund bellt.",
		VoiceID:      "voice-1",
		ModelID:      "eleven_multilingual_v2",
		LanguageCode: "de",
	})
	if err != nil {
		t.Fatal(err)
	}

	if gotKey != "sk_test" {
		t.Errorf("xi-api-key = %q, want sk_test", gotKey)
	}
	if gotPath != "/v1/text-to-speech/voice-1/with-timestamps" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["text"] != "Der Hund bellt." {
		t.Errorf("forwarded text = %v", gotBody["text"])
	}
	if !strings.Contains(string(raw), "audio_base64") {
		t.Errorf("response not passed through: %s", raw)
	}
}

func TestSynthesizeUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":{"message":"invalid api key"}}`))
	}))
	defer upstream.Close()

	c := testClient(upstream)
	_, err := c.SynthesizeWithTimestamps(context.Background(), "bad", TTSRequest{VoiceID: "v", Text: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	ue, ok := err.(*UpstreamError)
	if !ok {
		t.Fatalf("error type = %T, want *UpstreamError", err)
	}
	if ue.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", ue.Status)
	}
	if ue.Message != "invalid api key" {
		t.Errorf("Message = %q", ue.Message)
	}
}

func TestCompleteOpenAI(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-abc" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"Hallo"}}]}`))
	}))
	defer upstream.Close()

	c := testClient(upstream)
	out, err := c.Complete(context.Background(), ProviderOpenAI, "sk-abc", "system", "user")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Hallo" {
		t.Errorf("out = %q, want Hallo", out)
	}
}

func TestCompleteAnthropic(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "sk-ant" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got == "" {
			t.Error("anthropic-version header missing")
		}
		w.Write([]byte(`{"content":[{"text":"Merhaba"}]}`))
	}))
	defer upstream.Close()

	c := testClient(upstream)
	out, err := c.Complete(context.Background(), ProviderAnthropic, "sk-ant", "", "user")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Merhaba" {
		t.Errorf("out = %q, want Merhaba", out)
	}
}

func TestCompleteGoogle(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "g-key" {
			t.Errorf("x-goog-api-key = %q", got)
		}
		if got := r.URL.Query().Get("key"); got != "" {
			t.Errorf("key must not travel in the URL, got query param %q", got)
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Privit"}]}}]}`))
	}))
	defer upstream.Close()

	c := testClient(upstream)
	out, err := c.Complete(context.Background(), ProviderGoogle, "g-key", "sys", "user")
	if err != nil {
		t.Fatal(err)
	}
	if out != "Privit" {
		t.Errorf("out = %q, want Privit", out)
	}
}

// A transport failure's error text carries the request URL, so the key must
// never be part of it.
func TestGoogleTransportErrorOmitsKey(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close() // connection refused from here on

	c := testClient(dead)
	c.GoogleURL = dead.URL

	const secret = "g-secret-key"
	_, err := c.Complete(context.Background(), ProviderGoogle, secret, "", "user")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if strings.Contains(err.Error(), secret) {
		t.Fatalf("credential leaked into error text: %v", err)
	}

	if _, err := c.GenerateImage(context.Background(), secret, "ein Hund"); err == nil {
		t.Fatal("expected transport error")
	} else if strings.Contains(err.Error(), secret) {
		t.Fatalf("credential leaked into error text: %v", err)
	}
}

func TestGenerateImage(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "g-key" {
			t.Errorf("x-goog-api-key = %q", got)
		}
		if !strings.Contains(r.URL.Path, "gemini-2.5-flash-image") {
			t.Errorf("path = %q, want image model", r.URL.Path)
		}
		w.Write([]byte(`{"candidates":[{"content":{"parts":[
			{"text":"here you go"},
			{"inlineData":{"data":"UE5HYnl0ZXM=","mimeType":"image/png"}}
		]}}]}`))
	}))
	defer upstream.Close()

	c := testClient(upstream)
	img, err := c.GenerateImage(context.Background(), "g-key", "ein Hund")
	if err != nil {
		t.Fatal(err)
	}
	if img.Data != "UE5HYnl0ZXM=" || img.MimeType != "image/png" {
		t.Errorf("image = %+v", img)
	}
}

func TestGenerateImage_NoImageInResponse(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"no image today"}]}}]}`))
	}))
	defer upstream.Close()

	c := testClient(upstream)
	if _, err := c.GenerateImage(context.Background(), "k", "Hund"); err == nil {
		t.Error("expected error when response has no inline image")
	}
}

func TestCompleteUnknownProvider(t *testing.T) {
	c := NewClient()
	if _, err := c.Complete(context.Background(), "azure", "k", "", "u"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestCompleteUpstreamErrorSurfaced(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer upstream.Close()

	c := testClient(upstream)
	_, err := c.Complete(context.Background(), ProviderOpenAI, "k", "", "u")
	ue, ok := err.(*UpstreamError)
	if !ok {
		t.Fatalf("error type = %T, want *UpstreamError", err)
	}
	if ue.Status != http.StatusTooManyRequests || ue.Message != "rate limited" {
		t.Errorf("got %d %q", ue.Status, ue.Message)
	}
}

func TestTranscribeScribe(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("model_id"); got != "scribe_v1" {
			t.Errorf("model_id = %q", got)
		}
		if got := r.FormValue("language_code"); got != "de" {
			t.Errorf("language_code = %q", got)
		}
		w.Write([]byte(`{"text":"Guten Morgen","language_code":"de","words":[]}`))
	}))
	defer upstream.Close()

	c := testClient(upstream)
	res, err := c.TranscribeScribe(context.Background(), "sk", []byte("webm-bytes"), "de")
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "Guten Morgen" || res.Language != "de" {
		t.Errorf("result = %+v", res)
	}
}

func TestTranscribeScribeAutoOmitsLanguage(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		if got := r.FormValue("language_code"); got != "" {
			t.Errorf("language_code should be omitted for auto, got %q", got)
		}
		w.Write([]byte(`{"text":"hi","language_code":"en"}`))
	}))
	defer upstream.Close()

	c := testClient(upstream)
	if _, err := c.TranscribeScribe(context.Background(), "sk", []byte("a"), "auto"); err != nil {
		t.Fatal(err)
	}
}

func TestKeysLogValueRedacts(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	keys := Keys{ElevenLabs: "sk_secret_eleven", AI: "sk-secret-ai", AIProvider: "openai", VoiceID: "v1"}
	logger.Info("session created", "keys", keys)

	out := buf.String()
	if strings.Contains(out, "sk_secret_eleven") || strings.Contains(out, "sk-secret-ai") {
		t.Fatalf("credential leaked into log output: %q", out)
	}
	if !strings.Contains(out, "has_elevenlabs=true") {
		t.Errorf("redacted summary missing: %q", out)
	}
}

func TestKnownProvider(t *testing.T) {
	for _, p := range []string{ProviderOpenAI, ProviderAnthropic, ProviderGoogle} {
		if !KnownProvider(p) {
			t.Errorf("KnownProvider(%q) = false", p)
		}
	}
	if KnownProvider("mistral") {
		t.Error("KnownProvider(mistral) = true")
	}
}
