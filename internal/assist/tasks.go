package assist

import (
	"context"
	"encoding/json"
	"fmt"
)

const tasksPromptFormat = `Erstelle 5 Verständnisaufgaben zu folgendem Text. Die Aufgaben sollen für Schüler mit Leseschwierigkeiten geeignet sein.

TEXT:
%s

Erstelle genau 5 Aufgaben in diesem JSON-Format (KEINE anderen Texte, NUR das JSON-Array):
[
  {"type": "multiple_choice", "question": "Frage zum Text?", "options": ["Antwort A", "Antwort B", "Antwort C", "Antwort D"], "correct": 0},
  {"type": "true_false", "question": "Eine Aussage zum Text, die richtig oder falsch ist.", "correct": true},
  {"type": "fill_blank", "question": "Ein Satz aus dem Text mit einer ___ Lücke.", "correct": "fehlendes Wort"},
  {"type": "short_answer", "question": "Eine offene Frage zum Text?", "hint": "Ein kleiner Hinweis"},
  {"type": "multiple_choice", "question": "Noch eine Frage?", "options": ["A", "B", "C", "D"], "correct": 2}
]

WICHTIGE REGELN:
- Bei multiple_choice: "correct" ist der INDEX (0-3) der richtigen Antwort
- Bei true_false: "correct" ist true oder false
- Bei fill_blank: "correct" ist das fehlende Wort
- KEINE order/Sortier-Aufgaben erstellen
- Verwende verschiedene Aufgabentypen (mindestens 2 multiple_choice, 1 true_false, 1 fill_blank)
- Alle Fragen müssen sich auf den gegebenen Text beziehen

Antworte NUR mit dem JSON-Array, keine anderen Texte.`

// GenerateTasks asks the LLM for five comprehension tasks and returns the raw
// JSON array. The model answer may wrap the array in prose; only the array is
// kept.
func (s *Service) GenerateTasks(ctx context.Context, provider, apiKey, text string) (json.RawMessage, error) {
	prompt := fmt.Sprintf(tasksPromptFormat, text)
	out, err := s.LLM.Complete(ctx, provider, apiKey, "", prompt)
	if err != nil {
		return nil, err
	}
	tasks, ok := ExtractJSONArray(out)
	if !ok {
		return nil, fmt.Errorf("no task array in model answer")
	}
	return tasks, nil
}
