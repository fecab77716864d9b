package voices

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	r := Defaults()
	if r.DefaultVoice != DefaultVoiceID {
		t.Errorf("DefaultVoice = %q", r.DefaultVoice)
	}
	if r.Fallbacks["uk"] != "ru" || r.Fallbacks["bg"] != "ru" {
		t.Errorf("missing cyrillic fallbacks: %v", r.Fallbacks)
	}
}

func TestResolveVoice(t *testing.T) {
	r := Defaults()
	if got := r.ResolveVoice("req-voice", "sess-voice"); got != "req-voice" {
		t.Errorf("request voice should win, got %q", got)
	}
	if got := r.ResolveVoice("", "sess-voice"); got != "sess-voice" {
		t.Errorf("session voice should win over default, got %q", got)
	}
	if got := r.ResolveVoice("", ""); got != DefaultVoiceID {
		t.Errorf("default voice expected, got %q", got)
	}
}

func TestResolveLanguage(t *testing.T) {
	r := Defaults()
	cases := map[string]string{
		"":   "de",
		"de": "de",
		"tr": "tr",
		"uk": "ru",
		"bg": "ru",
	}
	for in, want := range cases {
		if got := r.ResolveLanguage(in); got != want {
			t.Errorf("ResolveLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voices.yaml")
	yaml := `default_voice: custom-voice
voices:
  - id: custom-voice
    name: Anna
    language: de
  - id: second-voice
    name: Mehmet
    language: tr
language_fallbacks:
  sr: ru
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if r.DefaultVoice != "custom-voice" {
		t.Errorf("DefaultVoice = %q", r.DefaultVoice)
	}
	if len(r.Voices) != 2 {
		t.Errorf("Voices = %d, want 2", len(r.Voices))
	}
	// Custom fallback added, default ones kept.
	if r.Fallbacks["sr"] != "ru" {
		t.Error("custom fallback missing")
	}
	if r.Fallbacks["uk"] != "ru" {
		t.Error("default fallback lost on merge")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/voices.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
