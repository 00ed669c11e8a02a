package main

import (
	"fmt"
	"os"

	"github.com/jwulff/deckhand/internal/button"
	"github.com/jwulff/deckhand/internal/config"
	"github.com/jwulff/deckhand/internal/deck"
	"github.com/jwulff/deckhand/internal/entity"
	"github.com/jwulff/deckhand/internal/render"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	configPath := pflag.String("config", "", "layout file")
	key := pflag.Int("key", 0, "key to render")
	size := pflag.Int("size", 72, "key size in pixels")
	write := pflag.Bool("write", false, "write the image to the first attached deck")
	pflag.Parse()

	if *configPath == "" {
		fmt.Println("Usage: debug --config FILE [--key N] [--size PX] [--write]")
		os.Exit(1)
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	env := &button.Env{
		States:   entity.NewCache(),
		Renderer: render.NewRenderer(*size, cfg.IconsDir),
		Log:      zerolog.Nop(),
	}
	board, err := button.NewBoard(cfg.BuildButtons(env)...)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	btn, ok := board.Get(*key)
	if !ok {
		fmt.Printf("Error: no button on key %d\n", *key)
		os.Exit(1)
	}

	frame := btn.Frame()
	data, err := deck.EncodeKeyImage(frame, *size)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	face := btn.Face()
	fmt.Println("Key image:")
	fmt.Printf("  Key: %d\n", *key)
	fmt.Printf("  Text: %q\n", face.Text)
	fmt.Printf("  Background: %s\n", face.Background.Hex())
	fmt.Printf("  Size: %dx%d\n", frame.Width, frame.Height)
	fmt.Printf("  JPEG size: %d bytes\n", len(data))

	reports := deck.ImageReports(*key, data)
	fmt.Printf("  Reports: %d\n", len(reports))
	for i, r := range reports {
		fmt.Printf("    [%d] header % x\n", i, r[:deck.ImageReportHeaderLength])
	}

	if !*write {
		return
	}

	if err := deck.Init(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer deck.Exit()

	d, err := deck.OpenFirst(zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer d.Close()

	fmt.Printf("\nWriting key %d to %s...\n", *key, d.Info().Model.Name)
	if err := d.SetKeyImage(*key, frame); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("Done.")
}
