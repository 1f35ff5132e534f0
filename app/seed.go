package app

import (
	"context"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/bus"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/library"
)

// SeedLibraries are the mock libraries registered by New.
var SeedLibraries = []library.RegisterLibrary{
	{Name: "Head Office Library", Location: "Tokyo HQ 3F"},
	{Name: "Osaka Office Library", Location: "Osaka Branch 2F"},
	{Name: "Fukuoka Office Library", Location: "Fukuoka Branch 1F"},
}

func (a *App) seedLibraries(ctx context.Context) error {
	existing, err := bus.ExecuteAs[library.LibraryListDTO](ctx, a.LibraryQueries(), library.ListLibraries{}, a.NewContext())
	if err != nil {
		return err
	}

	if existing.Total > 0 {
		return nil
	}

	for _, cmd := range SeedLibraries {
		if _, err = a.LibraryCommands().Execute(ctx, cmd, a.NewContext()); err != nil {
			return err
		}
	}

	a.logger.Info("mock libraries registered", "count", len(SeedLibraries))

	return nil
}
