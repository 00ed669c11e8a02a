package main

import (
	"fmt"

	"github.com/jwulff/deckhand/internal/deck"
	"github.com/spf13/pflag"
)

func listCommand(args []string) error {
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := deck.Init(); err != nil {
		return fmt.Errorf("failed to initialize HID: %w", err)
	}
	defer deck.Exit()

	decks, err := deck.Enumerate()
	if err != nil {
		return err
	}
	if len(decks) == 0 {
		fmt.Println("No Stream Decks found.")
		return nil
	}

	fmt.Printf("Found %d Stream Deck(s):\n", len(decks))
	for _, d := range decks {
		fmt.Printf("  • %s (%d keys, %dpx) serial=%s\n", d.Model.Name, d.Model.KeyCount(), d.Model.KeySize, d.Serial)
		fmt.Printf("    %s\n", d.Path)
	}
	return nil
}
