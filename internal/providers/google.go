package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	googleModel      = "gemini-2.0-flash"
	googleImageModel = "gemini-2.5-flash-image"
)

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) completeGoogle(ctx context.Context, apiKey, system, user string) (string, error) {
	// Gemini has no separate system role on this endpoint; prepend it.
	text := user
	if system != "" {
		text = system + "\n\n" + user
	}
	payload := map[string]any{
		"contents": []map[string]any{{
			"parts": []map[string]any{{"text": text}},
		}},
		"generationConfig": map[string]any{"temperature": 0.3},
	}
	return c.doGemini(ctx, apiKey, payload)
}

func (c *Client) visionGoogle(ctx context.Context, apiKey, prompt, imageB64, mimeType string) (string, error) {
	payload := map[string]any{
		"contents": []map[string]any{{
			"parts": []map[string]any{
				{"text": prompt},
				{"inline_data": map[string]string{"mime_type": mimeType, "data": imageB64}},
			},
		}},
	}
	return c.doGemini(ctx, apiKey, payload)
}

// transcribeGemini transcribes audio by inlining it into a generateContent call.
func (c *Client) transcribeGemini(ctx context.Context, apiKey string, audio []byte, language string) (string, error) {
	prompt := fmt.Sprintf("Transkribiere diese Audio-Aufnahme auf %s. Gib NUR den transkribierten Text zurück.", language)
	payload := map[string]any{
		"contents": []map[string]any{{
			"parts": []map[string]any{
				{"text": prompt},
				{"inline_data": map[string]string{
					"mime_type": "audio/webm",
					"data":      base64.StdEncoding.EncodeToString(audio),
				}},
			},
		}},
	}
	return c.doGemini(ctx, apiKey, payload)
}

// GeneratedImage is an inline image returned by the Gemini image model.
type GeneratedImage struct {
	Data     string `json:"image_base64"`
	MimeType string `json:"mime_type"`
}

// GenerateImage asks the Gemini image model for an illustration and returns
// the first inline image of the response.
func (c *Client) GenerateImage(ctx context.Context, apiKey, prompt string) (*GeneratedImage, error) {
	payload := map[string]any{
		"contents": []map[string]any{{
			"parts": []map[string]any{{"text": prompt}},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.GoogleURL, googleImageModel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					InlineData *struct {
						Data     string `json:"data"`
						MimeType string `json:"mimeType"`
					} `json:"inlineData"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil && resp.StatusCode == http.StatusOK {
		return nil, fmt.Errorf("decoding gemini image response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(data)
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, &UpstreamError{Provider: ProviderGoogle, Status: resp.StatusCode, Message: msg}
	}
	for _, cand := range parsed.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				mime := part.InlineData.MimeType
				if mime == "" {
					mime = "image/png"
				}
				return &GeneratedImage{Data: part.InlineData.Data, MimeType: mime}, nil
			}
		}
	}
	return nil, fmt.Errorf("gemini returned no image")
}

func (c *Client) doGemini(ctx context.Context, apiKey string, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	// The key goes in a header, never the URL: a transport error carries the
	// full request URL into logs.
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.GoogleURL, googleModel)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-goog-api-key", apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var parsed geminiResponse
	if err := json.Unmarshal(data, &parsed); err != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("decoding gemini response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(data)
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", &UpstreamError{Provider: ProviderGoogle, Status: resp.StatusCode, Message: msg}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
