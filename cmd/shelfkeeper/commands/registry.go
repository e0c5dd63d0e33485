package commands

import (
	"context"
	"fmt"

	"git.home.luguber.info/inful/shelfkeeper/internal/location"
)

// RegistryCmd groups the registry subcommands.
type RegistryCmd struct {
	List   RegistryListCmd   `cmd:"" default:"1" help:"List tracked shelf locations"`
	Add    RegistryAddCmd    `cmd:"" help:"Start tracking a shelf location"`
	Remove RegistryRemoveCmd `cmd:"" help:"Stop tracking a shelf location"`
}

type RegistryListCmd struct{}

func (c *RegistryListCmd) Run(g *Global, root *CLI) error {
	ed, stop, err := openEditor(context.Background(), g, root)
	if err != nil {
		return err
	}
	defer stop()

	out := g.out()
	for _, loc := range ed.Shelves().Locations() {
		_, _ = fmt.Fprintln(out, loc.String())
	}
	if !ed.Registry().Scanned() {
		_, _ = fmt.Fprintln(out, "# initial scan not yet completed")
	}
	return nil
}

type RegistryAddCmd struct {
	Locations []string `arg:"" name:"location" help:"Location as world;x;y;z"`
}

func (c *RegistryAddCmd) Run(g *Global, root *CLI) error {
	return editRegistry(g, root, c.Locations, true)
}

type RegistryRemoveCmd struct {
	Locations []string `arg:"" name:"location" help:"Location as world;x;y;z"`
}

func (c *RegistryRemoveCmd) Run(g *Global, root *CLI) error {
	return editRegistry(g, root, c.Locations, false)
}

func editRegistry(g *Global, root *CLI, records []string, add bool) error {
	locs := make([]location.Location, 0, len(records))
	for _, rec := range records {
		loc, err := location.Parse(rec)
		if err != nil {
			return err
		}
		locs = append(locs, loc)
	}

	ed, stop, err := openEditor(context.Background(), g, root)
	if err != nil {
		return err
	}
	defer stop()

	out := g.out()
	for _, loc := range locs {
		var changed bool
		if add {
			changed = ed.Registry().Add(loc)
		} else {
			changed = ed.Registry().Remove(loc)
		}
		switch {
		case changed && add:
			_, _ = fmt.Fprintf(out, "added %s\n", loc.Describe())
		case changed:
			_, _ = fmt.Fprintf(out, "removed %s\n", loc.Describe())
		default:
			_, _ = fmt.Fprintf(out, "unchanged %s\n", loc.Describe())
		}
	}
	return nil
}
