package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jwulff/deckhand/internal/button"
	"github.com/jwulff/deckhand/internal/command"
	"github.com/jwulff/deckhand/internal/config"
	"github.com/jwulff/deckhand/internal/credential"
	"github.com/jwulff/deckhand/internal/deck"
	"github.com/jwulff/deckhand/internal/dispatch"
	"github.com/jwulff/deckhand/internal/entity"
	"github.com/jwulff/deckhand/internal/hass"
	"github.com/jwulff/deckhand/internal/render"
	"github.com/jwulff/deckhand/internal/screensaver"
	"github.com/jwulff/deckhand/internal/shell"
	"github.com/jwulff/deckhand/internal/storage/sqlite"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

// Key layout of the Memory device used by --dry-run.
const (
	dryRunKeys    = 15
	dryRunKeySize = 72
)

func runCommand(args []string) error {
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	configPath := fs.String("config", "", "layout file (.yaml, .json or .jsonc)")
	dryRun := fs.Bool("dry-run", false, "use an in-memory deck instead of hardware")
	var lf logFlags
	lf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireConfig(*configPath); err != nil {
		return err
	}
	log, err := lf.logger()
	if err != nil {
		return err
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return err
	}
	token, err := credential.LoadToken(cfg.Server.TokenFile)
	if err != nil {
		return err
	}

	var store *sqlite.Store
	if cfg.StateDB != "" {
		store, err = sqlite.NewFileStore(cfg.StateDB)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	device, err := openDevice(*dryRun, log)
	if err != nil {
		return err
	}
	if maxKey := cfg.MaxKey(); maxKey >= device.KeyCount() {
		device.Close()
		return fmt.Errorf("button key %d does not exist on a %d-key deck", maxKey, device.KeyCount())
	}
	if err := device.Reset(); err != nil {
		log.Warn().Err(err).Msg("failed to reset deck")
	}
	if err := device.SetBrightness(cfg.Screensaver.Brightness); err != nil {
		log.Warn().Err(err).Msg("failed to set brightness")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	queue := command.NewQueue()
	cache := entity.NewCache()
	saver := screensaver.New(cfg.ScreensaverSettings(), device, log)
	runner := shell.NewRunner(log)
	env := &button.Env{
		Queue:    queue,
		Runner:   runner,
		States:   cache,
		Display:  saver,
		Renderer: render.NewRenderer(device.KeySize(), cfg.IconsDir),
		Log:      log.With().Str("component", "button").Logger(),
	}
	board, err := button.NewBoard(cfg.BuildButtons(env)...)
	if err != nil {
		device.Close()
		return err
	}

	var journal entity.Journal
	var sessions hass.SessionStore
	if store != nil {
		journal = store
		sessions = store
	}
	registry := entity.NewRegistry(cache, board.Subscribers(), journal, log)
	if store != nil {
		states, err := store.GetEntityStates(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("failed to load persisted states")
		} else {
			log.Info().Int("restored", registry.Restore(states)).Msg("loaded last known states")
		}
	}

	saver.SetPainter(board)
	board.DrawAll()
	device.SetKeyCallback(dispatch.New(saver, board, log).HandleKey)

	supervisor := hass.NewSupervisor(cfg.HassConfig(token), queue, registry, sessions, log)

	log.Info().
		Int("keys", device.KeyCount()).
		Int("buttons", len(board.Buttons())).
		Strs("watching", registry.Entities()).
		Bool("dry_run", *dryRun).
		Msg("deckhand running")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return supervisor.Run(gctx) })
	g.Go(func() error { return saver.Run(gctx) })

	<-gctx.Done()
	log.Info().Msg("shutting down")
	// The session's receiver may still be drawing until the group returns.
	err = g.Wait()
	if rerr := device.Reset(); rerr != nil {
		log.Warn().Err(rerr).Msg("failed to reset deck")
	}
	if cerr := device.Close(); cerr != nil {
		log.Warn().Err(cerr).Msg("failed to close deck")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openDevice(dryRun bool, log zerolog.Logger) (deck.Device, error) {
	if dryRun {
		return deck.NewMemory(dryRunKeys, dryRunKeySize), nil
	}
	if err := deck.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize HID: %w", err)
	}
	d, err := deck.OpenFirst(log)
	if err != nil {
		return nil, err
	}
	info := d.Info()
	log.Info().Str("model", info.Model.Name).Str("serial", info.Serial).Msg("connected to deck")
	return d, nil
}

