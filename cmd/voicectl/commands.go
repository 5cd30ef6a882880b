package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/voice-studio/internal/apperr"
	"github.com/snarg/voice-studio/internal/capture"
	"github.com/snarg/voice-studio/internal/client"
	"github.com/snarg/voice-studio/internal/config"
	"github.com/snarg/voice-studio/internal/history"
	"github.com/snarg/voice-studio/internal/speech"
)

// preferredVoices are tried before falling back to a language match.
var preferredVoices = []string{"Samantha", "Alex", "English_(America)"}

type app struct {
	cfg     *config.ClientConfig
	log     zerolog.Logger
	client  *client.Client
	store   *history.Store
	session *capture.Session
}

func newApp(cfg *config.ClientConfig, log zerolog.Logger) (*app, error) {
	store := history.NewStore(history.NewFileBackend(cfg.HistoryDir), log.With().Str("component", "history").Logger())
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return &app{
		cfg:     cfg,
		log:     log,
		client:  client.New(cfg.ServerURL, cfg.RequestTimeout),
		store:   store,
		session: capture.NewSession(),
	}, nil
}

// transcribe records from a file or stdin until EOF or Ctrl-C, then relays
// the recording and logs the transcript.
func (a *app) transcribe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("transcribe", flag.ContinueOnError)
	contentType := fs.String("type", "", "audio MIME type (default: from file extension)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return apperr.New(apperr.MissingInput, "No audio file provided")
	}

	name := fs.Arg(0)
	var src io.Reader = os.Stdin
	filename := "recording"
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return apperr.Wrap(apperr.ClientError, "open audio file", err)
		}
		src = f
		filename = filepath.Base(name)
		if *contentType == "" {
			*contentType = mime.TypeByExtension(filepath.Ext(name))
		}
	}

	if err := a.session.Start(ctx, src, *contentType); err != nil {
		return err
	}
	if name == "-" {
		fmt.Fprintln(os.Stderr, "Recording from stdin... press Ctrl-C to stop")
	}

	select {
	case <-a.session.Finished():
	case <-ctx.Done():
	}
	payload, err := a.session.Stop()
	defer a.session.Done()
	if err != nil {
		return err
	}
	payload.Filename = filename

	// Ctrl-C only ends the recording; the relay call gets its own deadline.
	reqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.RequestTimeout)
	defer cancel()

	fmt.Fprintln(os.Stderr, "Transcribing...")
	start := time.Now()
	res, err := a.client.Transcribe(reqCtx, payload)
	if err != nil {
		return err
	}
	a.log.Debug().Dur("took", time.Since(start)).Float64("confidence", res.Confidence).Msg("transcription complete")

	fmt.Println(res.Text)
	if text := strings.TrimSpace(res.Text); text != "" {
		if _, err := a.store.Add(history.KindTranscription, text); err != nil {
			return fmt.Errorf("save history: %w", err)
		}
	}
	return nil
}

func (a *app) speak(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("speak", flag.ContinueOnError)
	voice := fs.String("voice", a.cfg.Voice, "voice name")
	lang := fs.String("lang", a.cfg.Lang, "language tag")
	rate := fs.Float64("rate", 1, "speaking rate (1 is normal)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	text := strings.Join(fs.Args(), " ")
	if text == "" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return apperr.Wrap(apperr.ClientError, "read text", err)
		}
		text = string(b)
	}

	synth := speech.NewCommandSynthesizer(a.cfg.TTSCommand)
	u := speech.NewUtterance(text)
	u.Lang = *lang
	u.Rate = *rate
	u.Voice = *voice
	if u.Voice == "" && synth.Available() {
		if voices, err := synth.Voices(ctx); err == nil {
			if v, ok := speech.PickVoice(voices, speech.Preference{Names: preferredVoices, Lang: u.Lang}); ok {
				u.Voice = v.Name
			}
		} else {
			a.log.Debug().Err(err).Msg("voice listing failed")
		}
	}

	var addErr error
	speaker := speech.NewSpeaker(synth, speech.Hooks{
		OnStart: func(u speech.Utterance) {
			a.log.Debug().Str("voice", u.Voice).Msg("speaking")
			_, addErr = a.store.Add(history.KindSpeech, u.Text)
		},
	}, a.log.With().Str("component", "speech").Logger())

	if err := speaker.Speak(ctx, u); err != nil {
		return err
	}
	if addErr != nil {
		return fmt.Errorf("save history: %w", addErr)
	}
	return nil
}

func (a *app) voices(ctx context.Context) error {
	synth := speech.NewCommandSynthesizer(a.cfg.TTSCommand)
	voices, err := synth.Voices(ctx)
	if err != nil {
		return err
	}
	for _, v := range voices {
		fmt.Printf("%-30s %s\n", v.Name, v.Lang)
	}
	return nil
}

func (a *app) showHistory(args []string) error {
	if len(args) > 0 {
		if args[0] != "clear" {
			return fmt.Errorf("unknown history command %q", args[0])
		}
		if err := a.store.Clear(); err != nil {
			return fmt.Errorf("clear history: %w", err)
		}
		fmt.Println("History cleared.")
		return nil
	}

	list := a.store.List()
	if len(list) == 0 {
		fmt.Println("No activity yet.")
		return nil
	}
	for _, act := range list {
		label := "Spoken"
		if act.Kind == history.KindTranscription {
			label = "Transcribed"
		}
		fmt.Printf("%s  %-11s  %s\n", act.Timestamp.Local().Format("2006-01-02 15:04:05"), label, act.Text)
	}
	return nil
}

func (a *app) status(ctx context.Context) error {
	st, err := a.client.Status(ctx)
	if err != nil {
		return err
	}
	if st.AssemblyAI {
		fmt.Println("AssemblyAI: configured")
		return nil
	}
	fmt.Println("AssemblyAI: not configured (add ASSEMBLYAI_API_KEY to the server environment)")
	return nil
}
