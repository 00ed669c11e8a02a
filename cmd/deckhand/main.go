// Package main is the entry point for the deckhand daemon.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "run":
		err = runCommand(args)
	case "list":
		err = listCommand(args)
	case "preview":
		err = previewCommand(args)
	case "states":
		err = statesCommand(args)
	case "version":
		fmt.Println("deckhand", version)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		showUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println("Deckhand - Stream Deck bridge for Home Assistant")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  deckhand run --config FILE [--dry-run]   - Run the daemon")
	fmt.Println("  deckhand list                            - List attached Stream Decks")
	fmt.Println("  deckhand preview --config FILE [--key N] - ASCII preview of key faces")
	fmt.Println("  deckhand states --config FILE            - Show persisted states and sessions")
	fmt.Println("  deckhand version                         - Print the version")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  DECKHAND_TOKEN  - Home Assistant access token (overrides server.token_file)")
}

// logFlags are shared by every subcommand.
type logFlags struct {
	json  bool
	level string
}

func (l *logFlags) register(fs *pflag.FlagSet) {
	fs.BoolVar(&l.json, "log-json", false, "log JSON lines instead of console output")
	fs.StringVar(&l.level, "log-level", "info", "log level: debug, info, warn, error")
}

func (l *logFlags) logger() (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(l.level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid --log-level: %w", err)
	}
	var w io.Writer = os.Stderr
	if !l.json {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

func requireConfig(path string) error {
	if path == "" {
		return fmt.Errorf("--config is required")
	}
	return nil
}
