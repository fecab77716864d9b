package providers

import (
	"context"
	"fmt"
)

// Complete runs a plain chat completion against the named provider.
func (c *Client) Complete(ctx context.Context, provider, apiKey, system, user string) (string, error) {
	switch provider {
	case ProviderOpenAI:
		return c.completeOpenAI(ctx, apiKey, system, user)
	case ProviderAnthropic:
		return c.completeAnthropic(ctx, apiKey, system, user)
	case ProviderGoogle:
		return c.completeGoogle(ctx, apiKey, system, user)
	}
	return "", fmt.Errorf("unknown provider %q", provider)
}

// CompleteVision runs a completion over a base64 image plus a prompt.
func (c *Client) CompleteVision(ctx context.Context, provider, apiKey, prompt, imageB64, mimeType string) (string, error) {
	switch provider {
	case ProviderOpenAI:
		return c.visionOpenAI(ctx, apiKey, prompt, imageB64, mimeType)
	case ProviderAnthropic:
		return c.visionAnthropic(ctx, apiKey, prompt, imageB64, mimeType)
	case ProviderGoogle:
		return c.visionGoogle(ctx, apiKey, prompt, imageB64, mimeType)
	}
	return "", fmt.Errorf("unknown provider %q", provider)
}

// Transcribe converts recorded audio to text. Google transcribes inline via
// Gemini; everything else goes through the OpenAI transcription endpoint.
func (c *Client) Transcribe(ctx context.Context, provider, apiKey string, audio []byte, language string) (string, error) {
	if provider == ProviderGoogle {
		return c.transcribeGemini(ctx, apiKey, audio, language)
	}
	return c.transcribeWhisper(ctx, apiKey, audio, language)
}
