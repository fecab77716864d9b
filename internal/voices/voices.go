// Package voices holds the TTS voice presets and the language fallbacks for
// the multilingual ElevenLabs model.
package voices

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultVoiceID is the ElevenLabs voice used when neither the session nor the
// request specifies one.
const DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

// DefaultModelID is the ElevenLabs TTS model for word-timestamp synthesis.
const DefaultModelID = "eleven_multilingual_v2"

// Voice is a selectable preset shown to teachers.
type Voice struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Language string `yaml:"language,omitempty" json:"language,omitempty"`
}

// Registry resolves voices and language codes. The zero value is not usable;
// construct with Defaults or Load.
type Registry struct {
	DefaultVoice string  `yaml:"default_voice"`
	Voices       []Voice `yaml:"voices"`
	// Fallbacks maps languages the TTS model doesn't support to a close
	// supported one (e.g. Ukrainian and Bulgarian read with the Russian model).
	Fallbacks map[string]string `yaml:"language_fallbacks"`
}

// Defaults returns the compiled-in registry.
func Defaults() *Registry {
	return &Registry{
		DefaultVoice: DefaultVoiceID,
		Voices: []Voice{
			{ID: DefaultVoiceID, Name: "Rachel", Language: "de"},
		},
		Fallbacks: map[string]string{
			"uk": "ru",
			"bg": "ru",
		},
	}
}

// Load reads a YAML voices file and merges it over the defaults. Missing
// fields keep their default values.
func Load(path string) (*Registry, error) {
	reg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read voices config: %w", err)
	}
	var file Registry
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse voices config: %w", err)
	}
	if file.DefaultVoice != "" {
		reg.DefaultVoice = file.DefaultVoice
	}
	if len(file.Voices) > 0 {
		reg.Voices = file.Voices
	}
	for from, to := range file.Fallbacks {
		reg.Fallbacks[from] = to
	}
	slog.Info("loaded voices config", "path", path, "voices", len(reg.Voices))
	return reg, nil
}

// ResolveVoice picks the request voice, then the session voice, then the default.
func (r *Registry) ResolveVoice(requested, sessionVoice string) string {
	if requested != "" {
		return requested
	}
	if sessionVoice != "" {
		return sessionVoice
	}
	return r.DefaultVoice
}

// ResolveLanguage maps a language code through the fallback table.
func (r *Registry) ResolveLanguage(code string) string {
	if code == "" {
		return "de"
	}
	if to, ok := r.Fallbacks[code]; ok {
		return to
	}
	return code
}
