package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/shelfkeeper/internal/journal"
)

// JournalCmd implements the 'journal' command.
type JournalCmd struct {
	Limit  int    `short:"n" help:"Maximum entries to show" default:"20"`
	Target string `short:"t" help:"Only show entries for this target (e.g. world;1;64;2#3)"`
}

func (c *JournalCmd) Run(g *Global, root *CLI) error {
	ed, stop, err := openEditor(context.Background(), g, root)
	if err != nil {
		return err
	}
	defer stop()

	ctx := context.Background()
	var entries []journal.Entry
	if c.Target != "" {
		entries, err = ed.Journal().ByTarget(ctx, c.Target, c.Limit)
	} else {
		entries, err = ed.Journal().Recent(ctx, c.Limit)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TIME\tOP\tTARGET\tOUTCOME\tDURATION\tDETAIL")
	for _, e := range entries {
		detail := e.Reason
		if detail == "" {
			detail = e.Error
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.At.Local().Format(time.DateTime), e.Op, e.Target, e.Outcome, e.Duration.Round(time.Millisecond), detail)
	}
	return tw.Flush()
}
