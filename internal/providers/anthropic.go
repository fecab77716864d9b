package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	anthropicModel   = "claude-sonnet-4-20250514"
	anthropicVersion = "2023-06-01"
)

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) completeAnthropic(ctx context.Context, apiKey, system, user string) (string, error) {
	payload := map[string]any{
		"model":      anthropicModel,
		"max_tokens": 4000,
		"messages": []map[string]any{
			{"role": "user", "content": user},
		},
	}
	if system != "" {
		payload["system"] = system
	}
	return c.doAnthropic(ctx, apiKey, payload)
}

func (c *Client) visionAnthropic(ctx context.Context, apiKey, prompt, imageB64, mimeType string) (string, error) {
	payload := map[string]any{
		"model":      anthropicModel,
		"max_tokens": 4000,
		"messages": []map[string]any{{
			"role": "user",
			"content": []map[string]any{
				{"type": "image", "source": map[string]string{
					"type":       "base64",
					"media_type": mimeType,
					"data":       imageB64,
				}},
				{"type": "text", "text": prompt},
			},
		}},
	}
	return c.doAnthropic(ctx, apiKey, payload)
}

func (c *Client) doAnthropic(ctx context.Context, apiKey string, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.AnthropicURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
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

	var parsed anthropicResponse
	if err := json.Unmarshal(data, &parsed); err != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("decoding anthropic response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(data)
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return "", &UpstreamError{Provider: ProviderAnthropic, Status: resp.StatusCode, Message: msg}
	}
	if len(parsed.Content) == 0 {
		return "", fmt.Errorf("anthropic returned no content")
	}
	return parsed.Content[0].Text, nil
}
