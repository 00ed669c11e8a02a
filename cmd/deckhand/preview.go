package main

import (
	"context"
	"fmt"

	"github.com/jwulff/deckhand/internal/button"
	"github.com/jwulff/deckhand/internal/config"
	"github.com/jwulff/deckhand/internal/domain"
	"github.com/jwulff/deckhand/internal/entity"
	"github.com/jwulff/deckhand/internal/render"
	"github.com/jwulff/deckhand/internal/storage/sqlite"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func previewCommand(args []string) error {
	fs := pflag.NewFlagSet("preview", pflag.ContinueOnError)
	configPath := fs.String("config", "", "layout file")
	key := fs.Int("key", -1, "only preview this key")
	size := fs.Int("size", 72, "key size in pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireConfig(*configPath); err != nil {
		return err
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}

	// Watched buttons show the last persisted states when there are any.
	cache := entity.NewCache()
	if cfg.StateDB != "" {
		store, err := sqlite.NewFileStore(cfg.StateDB)
		if err != nil {
			return err
		}
		states, err := store.GetEntityStates(context.Background())
		store.Close()
		if err != nil {
			return err
		}
		for _, s := range states {
			cache.Set(s)
		}
	}

	env := &button.Env{
		States:   cache,
		Renderer: render.NewRenderer(*size, cfg.IconsDir),
		Log:      zerolog.Nop(),
	}
	board, err := button.NewBoard(cfg.BuildButtons(env)...)
	if err != nil {
		return err
	}

	shown := 0
	for _, btn := range board.Buttons() {
		if *key >= 0 && btn.Key() != *key {
			continue
		}
		fmt.Printf("Key %d (%s): %q\n", btn.Key(), btn.Action().Kind, btn.Face().Text)
		printFrameASCII(btn.Frame())
		fmt.Println()
		shown++
	}
	if shown == 0 && *key >= 0 {
		return fmt.Errorf("no button on key %d", *key)
	}
	if shown == 0 {
		return fmt.Errorf("no buttons in %s", *configPath)
	}
	fmt.Println("Legend: █=bright ▓=medium ▒=dim ░=faint ·=very dim (space)=off")
	return nil
}

// printFrameASCII renders the frame as ASCII art
func printFrameASCII(frame *domain.Frame) {
	fmt.Print("  ┌")
	for x := 0; x < frame.Width; x++ {
		fmt.Print("─")
	}
	fmt.Println("┐")

	for y := 0; y < frame.Height; y++ {
		fmt.Printf("%2d│", y)
		for x := 0; x < frame.Width; x++ {
			pixel := frame.GetPixel(x, y)
			if pixel == nil {
				fmt.Print(" ")
				continue
			}
			fmt.Print(shade(render.Luminance(*pixel)))
		}
		fmt.Println("│")
	}

	fmt.Print("  └")
	for x := 0; x < frame.Width; x++ {
		fmt.Print("─")
	}
	fmt.Println("┘")
}

func shade(brightness int) string {
	switch {
	case brightness > 200:
		return "█"
	case brightness > 150:
		return "▓"
	case brightness > 100:
		return "▒"
	case brightness > 50:
		return "░"
	case brightness > 10:
		return "·"
	default:
		return " "
	}
}
