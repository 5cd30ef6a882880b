// Package speech speaks text through a local synthesis engine and tracks the
// lifecycle of each utterance.
package speech

import (
	"context"
	"strings"
)

// Voice is one voice offered by an engine.
type Voice struct {
	Name string
	Lang string
}

// Utterance is a single unit of requested speech output.
type Utterance struct {
	Text   string
	Voice  string  // engine voice name; empty selects by Lang
	Lang   string  // BCP 47, e.g. "en-US"
	Rate   float64 // 1 = normal speed
	Pitch  float64 // 1 = normal pitch
	Volume float64 // 0..1
}

// NewUtterance returns an utterance with the default settings.
func NewUtterance(text string) Utterance {
	return Utterance{Text: text, Lang: "en-US", Rate: 1, Pitch: 1, Volume: 1}
}

// Synthesizer is a speech engine. Speak blocks until the utterance has been
// spoken or ctx is canceled.
type Synthesizer interface {
	Voices(ctx context.Context) ([]Voice, error)
	Speak(ctx context.Context, u Utterance) error
}

// Preference ranks voices: any name in Names wins, then a Lang match.
type Preference struct {
	Names []string
	Lang  string
}

// PickVoice chooses a voice by preference. Name matches are
// case-insensitive substrings; a language match accepts "en" for "en-US".
// Falls back to the first voice; ok is false only when voices is empty.
func PickVoice(voices []Voice, pref Preference) (Voice, bool) {
	if len(voices) == 0 {
		return Voice{}, false
	}
	for _, want := range pref.Names {
		want = strings.ToLower(strings.TrimSpace(want))
		if want == "" {
			continue
		}
		for _, v := range voices {
			if strings.Contains(strings.ToLower(v.Name), want) {
				return v, true
			}
		}
	}
	if pref.Lang != "" {
		lang := normalizeLang(pref.Lang)
		for _, v := range voices {
			if normalizeLang(v.Lang) == lang {
				return v, true
			}
		}
		base, _, _ := strings.Cut(lang, "-")
		for _, v := range voices {
			vb, _, _ := strings.Cut(normalizeLang(v.Lang), "-")
			if vb == base {
				return v, true
			}
		}
	}
	return voices[0], true
}

func normalizeLang(l string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(l), "_", "-"))
}
