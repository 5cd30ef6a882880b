package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/snarg/voice-studio/internal/apperr"
	"github.com/snarg/voice-studio/internal/config"
)

var version = "dev"

const usage = `usage: voicectl [flags] <command> [args]

commands:
  transcribe [-type mime] <file|->   record from a file or stdin and transcribe via the relay
  speak [-voice name] [-lang tag] [-rate n] [text...]
                                     speak text (stdin when no text is given)
  voices                             list local speech voices
  history [clear]                    show or clear the activity history
  status                             check whether the relay has an API key
  version                            print version

flags:
`

func main() {
	envFile := flag.String("env-file", "", "path to .env file (default .env)")
	server := flag.String("server", "", "relay base URL (overrides VOICE_STUDIO_URL)")
	logLevel := flag.String("log-level", "", "log level (overrides LOG_LEVEL)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadClient(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "voicectl: load config: %v\n", err)
		os.Exit(1)
	}
	if *server != "" {
		cfg.ServerURL = *server
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)

	app, err := newApp(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "transcribe":
		err = app.transcribe(ctx, args)
	case "speak":
		err = app.speak(ctx, args)
	case "voices":
		err = app.voices(ctx)
	case "history":
		err = app.showHistory(args)
	case "status":
		err = app.status(ctx)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "voicectl: unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "voicectl: %s\n", message(err))
		log.Debug().Err(err).Str("command", cmd).Msg("command failed")
		os.Exit(1)
	}
}

// message renders an error the way the browser UI would show it.
func message(err error) string {
	e, ok := apperr.As(err)
	if !ok {
		return err.Error()
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Detail)
	}
	return e.Message
}
