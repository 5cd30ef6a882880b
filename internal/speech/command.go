package speech

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/snarg/voice-studio/internal/apperr"
)

// engines are probed in order when no command is configured.
var engines = []string{"espeak-ng", "espeak", "say"}

// CommandSynthesizer drives a command-line speech engine: espeak-ng, espeak
// or macOS say.
type CommandSynthesizer struct {
	path   string
	flavor string // "espeak" or "say"
}

// NewCommandSynthesizer resolves the engine binary. An empty command probes
// the known engines on PATH. The returned synthesizer reports Available()
// false when nothing was found.
func NewCommandSynthesizer(command string) *CommandSynthesizer {
	candidates := engines
	if command != "" {
		candidates = []string{command}
	}
	for _, c := range candidates {
		if p, err := exec.LookPath(c); err == nil {
			return &CommandSynthesizer{path: p, flavor: flavorOf(p)}
		}
	}
	return &CommandSynthesizer{}
}

func flavorOf(path string) string {
	if filepath.Base(path) == "say" {
		return "say"
	}
	return "espeak"
}

// Available reports whether an engine binary was found.
func (c *CommandSynthesizer) Available() bool { return c.path != "" }

// Engine returns the resolved binary path.
func (c *CommandSynthesizer) Engine() string { return c.path }

func (c *CommandSynthesizer) unsupported() error {
	return apperr.New(apperr.UnsupportedCapability,
		fmt.Sprintf("speech synthesis is not supported: none of %s found on PATH", strings.Join(engines, ", ")))
}

// Voices lists the engine's voices.
func (c *CommandSynthesizer) Voices(ctx context.Context) ([]Voice, error) {
	if !c.Available() {
		return nil, c.unsupported()
	}
	var args []string
	if c.flavor == "say" {
		args = []string{"-v", "?"}
	} else {
		args = []string{"--voices"}
	}
	out, err := exec.CommandContext(ctx, c.path, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	if c.flavor == "say" {
		return parseSayVoices(out), nil
	}
	return parseEspeakVoices(out), nil
}

// Speak runs the engine for one utterance. Canceling ctx kills the engine.
func (c *CommandSynthesizer) Speak(ctx context.Context, u Utterance) error {
	if !c.Available() {
		return c.unsupported()
	}
	cmd := exec.CommandContext(ctx, c.path, c.args(u)...)
	cmd.Stdin = strings.NewReader(u.Text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %s", filepath.Base(c.path), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// args maps an utterance onto engine flags. The text itself goes through
// stdin. Both engines speak at roughly 175 words per minute at rate 1.
func (c *CommandSynthesizer) args(u Utterance) []string {
	rate := u.Rate
	if rate <= 0 {
		rate = 1
	}
	wpm := strconv.Itoa(int(175 * rate))

	if c.flavor == "say" {
		var args []string
		if u.Voice != "" {
			args = append(args, "-v", u.Voice)
		}
		return append(args, "-r", wpm, "-f", "-")
	}

	args := []string{"-s", wpm}
	switch {
	case u.Voice != "":
		args = append(args, "-v", u.Voice)
	case u.Lang != "":
		args = append(args, "-v", normalizeLang(u.Lang))
	}
	if u.Pitch > 0 {
		args = append(args, "-p", strconv.Itoa(clamp(int(50*u.Pitch), 0, 99)))
	}
	if u.Volume > 0 {
		args = append(args, "-a", strconv.Itoa(clamp(int(100*u.Volume), 0, 200)))
	}
	return append(args, "--stdin")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// parseEspeakVoices reads `espeak --voices` output:
//
//	Pty Language       Age/Gender VoiceName          File                 Other Languages
//	 5  en-us           --/M      English_(America)  gmw/en-US            (en 3)
func parseEspeakVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	first := true
	for sc.Scan() {
		if first {
			first = false
			continue
		}
		f := strings.Fields(sc.Text())
		if len(f) < 4 {
			continue
		}
		voices = append(voices, Voice{Name: f[3], Lang: f[1]})
	}
	return voices
}

// parseSayVoices reads `say -v ?` output:
//
//	Bad News            en_US    # The light you see at the end of the tunnel...
func parseSayVoices(out []byte) []Voice {
	var voices []Voice
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line, _, _ := strings.Cut(sc.Text(), "#")
		f := strings.Fields(line)
		if len(f) < 2 {
			continue
		}
		voices = append(voices, Voice{
			Name: strings.Join(f[:len(f)-1], " "),
			Lang: f[len(f)-1],
		})
	}
	return voices
}
