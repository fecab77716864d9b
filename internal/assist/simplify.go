package assist

import (
	"context"
	"fmt"
	"strings"
)

// The simplification prompts pin down CEFR-level constraints; the model gets
// one level-specific rule set per request.
var simplificationPrompts = map[string]string{
	"A1": `Vereinfache den folgenden deutschen Text auf Sprachniveau A1 (Anfänger).

REGELN für A1:
- NUR Präsens verwenden (keine Vergangenheit, kein Konjunktiv)
- Sehr kurze Sätze (maximal 8 Wörter)
- Nur Grundwortschatz (die 500 häufigsten Wörter)
- Keine Nebensätze
- Keine Passivkonstruktionen
- Wiederhole wichtige Wörter statt Pronomen zu verwenden
- Vermeide Metaphern und Redewendungen

ORIGINALTEXT:
%s

VEREINFACHTER TEXT (A1):`,

	"A2": `Vereinfache den folgenden deutschen Text auf Sprachniveau A2 (Grundkenntnisse).

REGELN für A2:
- Präsens und Perfekt erlaubt
- Kurze, klare Sätze (maximal 12 Wörter)
- Alltagswortschatz
- Einfache Nebensätze mit "weil", "dass", "wenn" erlaubt
- Keine komplexen Passivkonstruktionen
- Einfache Konnektoren: und, aber, oder, dann

ORIGINALTEXT:
%s

VEREINFACHTER TEXT (A2):`,

	"B1": `Vereinfache den folgenden deutschen Text auf Sprachniveau B1 (Mittelstufe).

REGELN für B1:
- Alle Zeitformen erlaubt, aber klar strukturiert
- Mittellange Sätze (maximal 18 Wörter)
- Erweiterter Wortschatz, aber keine Fachbegriffe ohne Erklärung
- Nebensätze erlaubt
- Klare Textstruktur
- Schwierige Wörter durch einfachere Synonyme ersetzen

ORIGINALTEXT:
%s

VEREINFACHTER TEXT (B1):`,
}

// ValidLevel reports whether level is a supported simplification target.
func ValidLevel(level string) bool {
	_, ok := simplificationPrompts[level]
	return ok
}

// Simplify rewrites German text at the given CEFR level (A1, A2 or B1).
func (s *Service) Simplify(ctx context.Context, provider, apiKey, text, level string) (string, error) {
	tmpl, ok := simplificationPrompts[level]
	if !ok {
		return "", fmt.Errorf("unknown level %q", level)
	}
	out, err := s.LLM.Complete(ctx, provider, apiKey, "", fmt.Sprintf(tmpl, text))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
