// Package commands implements the shelfkeeper CLI. Every command runs the
// editor core in detached mode: no worlds are loaded and every owner is
// offline, so owner edits go straight to the stored data files.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/shelfkeeper/internal/config"
	"git.home.luguber.info/inful/shelfkeeper/internal/editor"
	"git.home.luguber.info/inful/shelfkeeper/internal/host"
	"git.home.luguber.info/inful/shelfkeeper/internal/logfields"
)

// Global is shared by every command.
type Global struct {
	Logger *slog.Logger
	Out    io.Writer
}

func (g *Global) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Global) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"shelfkeeper.yaml" env:"SHELFKEEPER_CONFIG"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log output format (text, json)" enum:"text,json" default:"text"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init     InitCmd     `cmd:"" help:"Write an example configuration file"`
	Registry RegistryCmd `cmd:"" help:"Inspect or edit the tracked shelf locations"`
	Owner    OwnerCmd    `cmd:"" help:"Read and edit books in owner containers"`
	Journal  JournalCmd  `cmd:"" help:"Show recorded operations"`
	Watch    WatchCmd    `cmd:"" help:"Follow owner directory changes until interrupted"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := config.LogLevelInfo
	if c.Verbose {
		level = config.LogLevelDebug
	}
	g.Logger = newLogger(level, config.NormalizeLogFormat(c.LogFormat))
	slog.SetDefault(g.Logger)
	return nil
}

func newLogger(level config.LogLevel, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level.Slog()}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// loadConfig reads the configuration. Logging settings from the file apply
// unless --verbose was given.
func loadConfig(g *Global, root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	if !root.Verbose && cfg.Logging.Level != "" {
		g.Logger = newLogger(cfg.Logging.Level, cfg.Logging.Format)
		slog.SetDefault(g.Logger)
	}
	return cfg, nil
}

// openEditor starts a detached editor. The returned stop function flushes
// the registry and closes the journal.
func openEditor(ctx context.Context, g *Global, root *CLI) (*editor.Editor, func(), error) {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return nil, nil, err
	}
	// One-shot commands neither serve metrics nor relay events.
	cfg.Metrics.Enabled = false
	cfg.Relay.NATSURL = ""

	logger := g.logger()
	cache := host.NewUserCache(cfg.Owners.Usercache, logger)
	if err := cache.Reload(); err != nil {
		return nil, nil, err
	}
	rt := host.NewDetached(cache, host.NewPlayerDataStore(cfg.Owners.PlayerDataDir))

	ed, err := editor.New(cfg, rt, editor.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	if err := ed.Start(ctx); err != nil {
		return nil, nil, err
	}
	stop := func() {
		if err := ed.Stop(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Editor shutdown reported errors", logfields.Error(err))
		}
	}
	return ed, stop, nil
}
