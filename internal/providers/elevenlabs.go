package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// TTSRequest describes one synthesis call.
type TTSRequest struct {
	Text         string
	VoiceID      string
	ModelID      string
	LanguageCode string
}

// SynthesizeWithTimestamps calls the ElevenLabs with-timestamps endpoint and
// returns the raw response JSON (base64 audio plus per-character timing),
// which is passed through to the browser unchanged.
func (c *Client) SynthesizeWithTimestamps(ctx context.Context, apiKey string, req TTSRequest) (json.RawMessage, error) {
	payload := map[string]any{
		"text":          req.Text,
		"model_id":      req.ModelID,
		"language_code": req.LanguageCode,
		"voice_settings": map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s/with-timestamps", c.ElevenLabsURL, req.VoiceID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("xi-api-key", apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{
			Provider: "elevenlabs",
			Status:   resp.StatusCode,
			Message:  elevenLabsErrorMessage(data, resp.StatusCode),
		}
	}
	return json.RawMessage(data), nil
}

// ScribeResult is the reshaped speech-to-text response.
type ScribeResult struct {
	Text     string          `json:"text"`
	Language string          `json:"language"`
	Words    json.RawMessage `json:"words,omitempty"`
}

// TranscribeScribe sends recorded audio to the ElevenLabs Scribe model with
// word-level timestamps.
func (c *Client) TranscribeScribe(ctx context.Context, apiKey string, audio []byte, language string) (*ScribeResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", "audio.webm")
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(audio); err != nil {
		return nil, err
	}
	fields := map[string]string{
		"model_id":               "scribe_v1",
		"tag_audio_events":       "false",
		"timestamps_granularity": "word",
	}
	// "auto" lets the model detect the language itself.
	if language != "" && language != "auto" {
		fields["language_code"] = language
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ElevenLabsURL+"/v1/speech-to-text", &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("xi-api-key", apiKey)
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{
			Provider: "elevenlabs",
			Status:   resp.StatusCode,
			Message:  elevenLabsErrorMessage(data, resp.StatusCode),
		}
	}

	var raw struct {
		Text         string          `json:"text"`
		LanguageCode string          `json:"language_code"`
		Words        json.RawMessage `json:"words"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding scribe response: %w", err)
	}
	lang := raw.LanguageCode
	if lang == "" {
		lang = language
	}
	return &ScribeResult{Text: raw.Text, Language: lang, Words: raw.Words}, nil
}

// elevenLabsErrorMessage digs the human-readable message out of an ElevenLabs
// error body, which nests it under detail.message.
func elevenLabsErrorMessage(body []byte, status int) string {
	var parsed struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Detail) > 0 {
		var detail struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(parsed.Detail, &detail); err == nil && detail.Message != "" {
			return detail.Message
		}
		var s string
		if err := json.Unmarshal(parsed.Detail, &s); err == nil && s != "" {
			return s
		}
	}
	if len(body) > 0 {
		return string(body)
	}
	return fmt.Sprintf("elevenlabs API error (status %d)", status)
}
