package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/shelfkeeper/internal/book"
	"git.home.luguber.info/inful/shelfkeeper/internal/editor"
	"git.home.luguber.info/inful/shelfkeeper/internal/host"
	"git.home.luguber.info/inful/shelfkeeper/internal/inventory"
	"git.home.luguber.info/inful/shelfkeeper/internal/task"
)

// OwnerCmd groups the owner subcommands.
type OwnerCmd struct {
	List   OwnerListCmd   `cmd:"" default:"1" help:"List known owners"`
	Books  OwnerBooksCmd  `cmd:"" help:"List books in an owner's containers"`
	Edit   OwnerEditCmd   `cmd:"" help:"Replace a book's content"`
	Add    OwnerAddCmd    `cmd:"" help:"Place a new draft book"`
	Delete OwnerDeleteCmd `cmd:"" help:"Remove a book"`
	Lock   OwnerLockCmd   `cmd:"" help:"Seal a draft book"`
	Unlock OwnerUnlockCmd `cmd:"" help:"Turn a sealed book back into a draft"`
}

// OwnerRef selects an owner container.
type OwnerRef struct {
	Owner     string `arg:"" help:"Owner name or UUID"`
	Container string `short:"C" help:"Container (primary, secondary)" default:"primary"`
}

func (r OwnerRef) container() (host.Container, error) {
	return host.ParseContainer(r.Container)
}

// ContentFlags carry book content. Pages are repeated, never split on commas.
type ContentFlags struct {
	Title  string   `help:"Book title"`
	Author string   `help:"Book author"`
	Page   []string `name:"page" sep:"none" help:"Page text, repeat for each page"`
}

func (c ContentFlags) content() book.Content {
	return book.Content{Title: c.Title, Author: c.Author, Pages: c.Page}
}

type OwnerListCmd struct{}

func (c *OwnerListCmd) Run(g *Global, root *CLI) error {
	ed, stop, err := openEditor(context.Background(), g, root)
	if err != nil {
		return err
	}
	defer stop()

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tUUID\tSTATUS\tLAST SEEN")
	for _, o := range ed.Owners().Owners() {
		status := "offline"
		if o.Online {
			status = "online"
		}
		seen := "-"
		if !o.LastSeen.IsZero() {
			seen = o.LastSeen.Local().Format(time.DateTime)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", o.Name, o.ID, status, seen)
	}
	return tw.Flush()
}

type OwnerBooksCmd struct {
	Owner string `arg:"" optional:"" help:"Owner name or UUID; all owners when omitted"`
	All   bool   `help:"Include the secondary container"`
}

func (c *OwnerBooksCmd) Run(g *Global, root *CLI) error {
	ctx := context.Background()
	ed, stop, err := openEditor(ctx, g, root)
	if err != nil {
		return err
	}
	defer stop()

	var books []inventory.OwnerBook
	switch {
	case c.Owner == "":
		books, err = ed.Owners().AllBooks(ctx).Await(ctx)
	case c.All:
		books, err = ownerBooks(ctx, ed, c.Owner, host.Containers...)
	default:
		books, err = ownerBooks(ctx, ed, c.Owner, host.Primary)
	}
	if err != nil {
		return err
	}
	return printBooks(g.out(), books)
}

func ownerBooks(ctx context.Context, ed *editor.Editor, ref string, containers ...host.Container) ([]inventory.OwnerBook, error) {
	var out []inventory.OwnerBook
	for _, c := range containers {
		part, err := ed.Owners().Books(ctx, ref, c).Await(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, part...)
	}
	return out, nil
}

func printBooks(w io.Writer, books []inventory.OwnerBook) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "OWNER\tCONTAINER\tSLOT\tKIND\tTITLE\tAUTHOR\tPAGES")
	for _, b := range books {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\t%d\n",
			b.OwnerName, b.Container.Alias(), b.Slot, b.Kind, b.Title, b.Author, len(b.Pages))
	}
	return tw.Flush()
}

type OwnerEditCmd struct {
	OwnerRef
	Slot int `arg:"" help:"Slot index"`
	ContentFlags
}

func (c *OwnerEditCmd) Run(g *Global, root *CLI) error {
	return mutateOwner(g, root, c.OwnerRef, func(ctx context.Context, ops *inventory.Operations, cont host.Container) *task.Future[book.Book] {
		return ops.Edit(ctx, c.Owner, cont, c.Slot, c.content())
	})
}

type OwnerAddCmd struct {
	OwnerRef
	Slot int `help:"Slot index; the first empty slot when omitted" default:"-1"`
	ContentFlags
}

func (c *OwnerAddCmd) Run(g *Global, root *CLI) error {
	return mutateOwner(g, root, c.OwnerRef, func(ctx context.Context, ops *inventory.Operations, cont host.Container) *task.Future[book.Book] {
		return ops.Add(ctx, c.Owner, cont, c.Slot, c.content())
	})
}

type OwnerDeleteCmd struct {
	OwnerRef
	Slot int `arg:"" help:"Slot index"`
}

func (c *OwnerDeleteCmd) Run(g *Global, root *CLI) error {
	return mutateOwner(g, root, c.OwnerRef, func(ctx context.Context, ops *inventory.Operations, cont host.Container) *task.Future[book.Book] {
		return ops.Delete(ctx, c.Owner, cont, c.Slot)
	})
}

type OwnerLockCmd struct {
	OwnerRef
	Slot int `arg:"" help:"Slot index"`
}

func (c *OwnerLockCmd) Run(g *Global, root *CLI) error {
	return mutateOwner(g, root, c.OwnerRef, func(ctx context.Context, ops *inventory.Operations, cont host.Container) *task.Future[book.Book] {
		return ops.Lock(ctx, c.Owner, cont, c.Slot)
	})
}

type OwnerUnlockCmd struct {
	OwnerRef
	Slot int `arg:"" help:"Slot index"`
}

func (c *OwnerUnlockCmd) Run(g *Global, root *CLI) error {
	return mutateOwner(g, root, c.OwnerRef, func(ctx context.Context, ops *inventory.Operations, cont host.Container) *task.Future[book.Book] {
		return ops.Unlock(ctx, c.Owner, cont, c.Slot)
	})
}

type ownerMutation func(ctx context.Context, ops *inventory.Operations, c host.Container) *task.Future[book.Book]

func mutateOwner(g *Global, root *CLI, ref OwnerRef, fn ownerMutation) error {
	cont, err := ref.container()
	if err != nil {
		return err
	}
	ctx := context.Background()
	ed, stop, err := openEditor(ctx, g, root)
	if err != nil {
		return err
	}
	defer stop()

	b, err := fn(ctx, ed.Owners(), cont).Await(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(g.out(), "%s slot %d: %s %q by %q (%d pages)\n",
		strings.ToLower(cont.Alias()), b.Slot, b.Kind, b.Title, b.Author, len(b.Pages))
	return nil
}
