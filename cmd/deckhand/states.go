package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jwulff/deckhand/internal/config"
	"github.com/jwulff/deckhand/internal/storage/sqlite"
	"github.com/spf13/pflag"
)

func statesCommand(args []string) error {
	fs := pflag.NewFlagSet("states", pflag.ContinueOnError)
	configPath := fs.String("config", "", "layout file")
	limit := fs.Int("sessions", 10, "number of recent sessions to show")
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
	if cfg.StateDB == "" {
		return fmt.Errorf("state_db is not set in %s", *configPath)
	}

	store, err := sqlite.NewFileStore(cfg.StateDB)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	states, err := store.GetEntityStates(ctx)
	if err != nil {
		return err
	}
	sort.Slice(states, func(i, j int) bool { return states[i].EntityID < states[j].EntityID })

	fmt.Printf("Entity states (%d):\n", len(states))
	for _, s := range states {
		fmt.Printf("  %-40s %s\n", s.EntityID, s.State)
	}

	sessions, err := store.GetRecentSessions(ctx, *limit)
	if err != nil {
		return err
	}
	fmt.Println()
	fmt.Printf("Recent sessions (%d):\n", len(sessions))
	for _, s := range sessions {
		status := "ok"
		switch {
		case s.EndedAt.IsZero():
			status = "running"
		case s.Error != "":
			status = s.Error
		case !s.Authenticated():
			status = "not authenticated"
		}
		fmt.Printf("  #%-4d %s  %-10s %s\n",
			s.Generation,
			s.StartedAt.Local().Format(time.DateTime),
			s.Duration().Round(time.Second),
			status)
	}
	return nil
}
