// Package assist builds the prompts for the educational features (task
// generation, translation, simplification, word lookup) and extracts the
// structured parts out of the model answers.
package assist

import (
	"context"
	"fmt"
	"strings"

	"github.com/WIlski54/Leseassistent/internal/providers"
)

// LanguageNames maps the supported target language codes to their German names
// used in prompts.
var LanguageNames = map[string]string{
	"de": "Deutsch",
	"tr": "Türkisch",
	"bg": "Bulgarisch",
	"ar": "Arabisch",
	"uk": "Ukrainisch",
	"en": "Englisch",
}

// LanguageName returns the display name for a code, falling back to the code.
func LanguageName(code string) string {
	if name, ok := LanguageNames[code]; ok {
		return name
	}
	return code
}

type Service struct {
	LLM *providers.Client
}

func New(llm *providers.Client) *Service {
	return &Service{LLM: llm}
}

// Translate renders the session text into the target language. The German
// target is the identity.
func (s *Service) Translate(ctx context.Context, provider, apiKey, text, target string) (string, error) {
	if target == "de" {
		return text, nil
	}
	system := fmt.Sprintf(`Du bist ein professioneller Übersetzer. Übersetze ins %s.
Regeln: NUR die Übersetzung ausgeben, keine Erklärungen. Formatierung beibehalten.`, LanguageName(target))

	out, err := s.LLM.Complete(ctx, provider, apiKey, system, text)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// ExtractText asks a vision model to read all text from a base64 image.
// Returns ErrNoText when the model reports an empty page.
func (s *Service) ExtractText(ctx context.Context, provider, apiKey, imageB64, mimeType string) (string, error) {
	const prompt = `Extrahiere den gesamten Text aus diesem Bild.
Gib NUR den erkannten Text zurück, ohne Erklärungen.
Behalte Absätze bei. Wenn kein Text erkennbar ist: [KEIN TEXT ERKANNT]`

	out, err := s.LLM.CompleteVision(ctx, provider, apiKey, prompt, imageB64, mimeType)
	if err != nil {
		return "", err
	}
	if strings.Contains(out, "[KEIN TEXT ERKANNT]") {
		return "", ErrNoText
	}
	return strings.TrimSpace(out), nil
}

// ErrNoText indicates the vision model found no readable text in the image.
var ErrNoText = fmt.Errorf("no text recognized in image")
