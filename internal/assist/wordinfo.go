package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/WIlski54/Leseassistent/internal/providers"
)

var wordCleanRe = regexp.MustCompile(`[^\p{L}\p{N}\s-]`)

// CleanWord strips punctuation so that a clicked word like "Hund," or
// "»Hütte«" looks up cleanly.
func CleanWord(word string) string {
	return strings.TrimSpace(wordCleanRe.ReplaceAllString(word, ""))
}

const wordInfoPromptFormat = `Analysiere das deutsche Wort "%s" und gib die Informationen als JSON zurück.

Antworte NUR mit dem JSON-Objekt, keine Erklärungen davor oder danach.

{
    "word": "%s",
    "article": "der/die/das (nur bei Nomen, sonst leer)",
    "plural": "Pluralform (nur bei Nomen, sonst leer)",
    "word_type": "Nomen/Verb/Adjektiv/Adverb/Präposition/etc.",
    "simple_explanation": "Einfache Erklärung in 1-2 Sätzen für Sprachlerner (A1-A2 Niveau)",
    "example_sentence": "Ein einfacher Beispielsatz mit dem Wort",
    "syllables": "Silbentrennung mit Bindestrichen (z.B. Hun-de-hüt-te)",
    "translation": "%s"
}`

const wordImagePromptFormat = `Generate a simple, clear, educational illustration for the German word "%s".
Meaning: %s

Requirements:
- Simple, clean clipart or illustration style
- White or light background
- No text in the image
- Suitable for language learning
- Child-friendly if applicable`

// WordImage generates an illustration for a word via the Gemini image model.
// Only the google provider can do this.
func (s *Service) WordImage(ctx context.Context, apiKey, word, explanation string) (*providers.GeneratedImage, error) {
	if explanation == "" {
		explanation = word
	}
	return s.LLM.GenerateImage(ctx, apiKey, fmt.Sprintf(wordImagePromptFormat, word, explanation))
}

// WordInfo fetches a learner-friendly breakdown of a single word: article,
// plural, word type, explanation, example sentence, syllables and, when a
// target language is given, a translation.
func (s *Service) WordInfo(ctx context.Context, provider, apiKey, word, targetLanguage string) (json.RawMessage, error) {
	translation := "keine Übersetzung angefordert"
	if targetLanguage != "" {
		translation = fmt.Sprintf("Übersetzung ins %s", LanguageName(targetLanguage))
	}
	prompt := fmt.Sprintf(wordInfoPromptFormat, word, word, translation)

	out, err := s.LLM.Complete(ctx, provider, apiKey, "", prompt)
	if err != nil {
		return nil, err
	}
	info, ok := ExtractJSONObject(out)
	if !ok {
		return nil, fmt.Errorf("no JSON object in model answer")
	}
	return info, nil
}
