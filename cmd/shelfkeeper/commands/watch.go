package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/shelfkeeper/internal/host"
	"git.home.luguber.info/inful/shelfkeeper/internal/logfields"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Debounce time.Duration `help:"Collapse file events within this window" default:"500ms"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return watchOwners(ctx, g, cfg.Owners.Usercache, w.Debounce)
}

func watchOwners(ctx context.Context, g *Global, path string, debounce time.Duration) error {
	logger := g.logger()
	cache := host.NewUserCache(path, logger)
	if err := cache.Reload(); err != nil {
		return err
	}
	out := g.out()
	_, _ = fmt.Fprintf(out, "%d known owners\n", len(cache.Known()))

	if err := cache.Watch(ctx, debounce, func(n int) {
		_, _ = fmt.Fprintf(out, "%d known owners\n", n)
	}); err != nil {
		return err
	}
	logger.Info("Watching owner directory", logfields.Path(path))
	<-ctx.Done()
	return nil
}
