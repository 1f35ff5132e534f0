package main

import (
	"context"
	"flag"
	"io"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/bus"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/catalog"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library"
)

const demoISBN = "9784101010014"

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)

	return fs
}

func runRegisterBook(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet("register-book", c.stderr)
	isbn := fs.String("isbn", "", "13-digit ISBN")
	title := fs.String("title", "", "title")
	author := fs.String("author", "", "author")
	publisher := fs.String("publisher", "", "publisher")
	year := fs.Int("year", 0, "year of publication, 0 for unknown")

	if err := fs.Parse(args); err != nil {
		return err
	}

	input := catalog.RegisterBookInput{ISBN: *isbn, Title: *title, Author: *author, Publisher: *publisher}
	if *year != 0 {
		input.PublishedYear = year
	}

	dto, err := bus.ExecuteAs[catalog.BookDTO](ctx, c.app.CatalogCommands(), catalog.RegisterBook{Input: input}, c.app.NewContext())
	if err != nil {
		return err
	}

	return writeJSON(c.stdout, dto)
}

func runListBooks(ctx context.Context, c *cli, _ []string) error {
	list, err := bus.ExecuteAs[catalog.BookListDTO](ctx, c.app.CatalogQueries(), catalog.ListBooks{}, c.app.NewContext())
	if err != nil {
		return err
	}

	return writeJSON(c.stdout, list)
}

func runGetBook(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet("get-book", c.stderr)
	id := fs.String("id", "", "book id")

	if err := fs.Parse(args); err != nil {
		return err
	}

	dto, err := bus.ExecuteAs[catalog.BookDTO](ctx, c.app.CatalogQueries(), catalog.GetBookByID{BookID: *id}, c.app.NewContext())
	if err != nil {
		return err
	}

	return writeJSON(c.stdout, dto)
}

func runRegisterLibrary(ctx context.Context, c *cli, args []string) error {
	fs := newFlagSet("register-library", c.stderr)
	name := fs.String("name", "", "library name")
	location := fs.String("location", "", "location")

	if err := fs.Parse(args); err != nil {
		return err
	}

	result, err := bus.ExecuteAs[library.RegisterLibraryResult](ctx, c.app.LibraryCommands(),
		library.RegisterLibrary{Name: *name, Location: *location}, c.app.NewContext())
	if err != nil {
		return err
	}

	return writeJSON(c.stdout, result)
}

func runListLibraries(ctx context.Context, c *cli, _ []string) error {
	list, err := bus.ExecuteAs[library.LibraryListDTO](ctx, c.app.LibraryQueries(), library.ListLibraries{}, c.app.NewContext())
	if err != nil {
		return err
	}

	return writeJSON(c.stdout, list)
}

func runMigrate(ctx context.Context, c *cli, _ []string) error {
	if err := c.app.Migrate(ctx); err != nil {
		return err
	}

	return writeJSON(c.stdout, map[string]string{"status": "migrated"})
}

// runDemo registers the same book twice: the second attempt shows the ISBN_ALREADY_EXISTS error.
func runDemo(ctx context.Context, c *cli, _ []string) error {
	cmd := catalog.RegisterBook{Input: catalog.RegisterBookInput{
		ISBN:   demoISBN,
		Title:  "吾輩は猫である",
		Author: "夏目漱石",
	}}

	dto, err := bus.ExecuteAs[catalog.BookDTO](ctx, c.app.CatalogCommands(), cmd, c.app.NewContext())
	if err != nil {
		return err
	}

	if err = writeJSON(c.stdout, map[string]any{"registered": dto}); err != nil {
		return err
	}

	_, err = c.app.CatalogCommands().Execute(ctx, cmd, c.app.NewContext())
	if err = writeJSON(c.stdout, map[string]any{"duplicate": publicOrNil(err)}); err != nil {
		return err
	}

	if err = runListBooks(ctx, c, nil); err != nil {
		return err
	}

	return runListLibraries(ctx, c, nil)
}
