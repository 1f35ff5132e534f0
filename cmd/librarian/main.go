// Package main provides librarian, a command line client driving the catalog and library buses.
//
// Usage:
//
//	librarian [-config file] [-observability-enabled] <command> [flags]
//
// Commands: demo, register-book, list-books, get-book, register-library, list-libraries, migrate.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/library-cqrs-kernel-go/app"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/apperror"
	"github.com/AntonStoeckl/library-cqrs-kernel-go/config"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var errUnknownCommand = errors.New("unknown command")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// cli holds what every command needs.
type cli struct {
	app    *app.App
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, c *cli, args []string) error
}

func commands() []command {
	return []command{
		{"demo", "register a sample book twice and list the catalog", runDemo},
		{"register-book", "register a book: -isbn -title -author [-publisher] [-year]", runRegisterBook},
		{"list-books", "list all books", runListBooks},
		{"get-book", "show one book: -id", runGetBook},
		{"register-library", "register a library: -name [-location]", runRegisterLibrary},
		{"list-libraries", "list all libraries", runListLibraries},
		{"migrate", "create the postgres tables", runMigrate},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("librarian", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "YAML or JSON config file")
	observabilityEnabled := global.Bool("observability-enabled", false,
		"Enable OpenTelemetry traces, metrics and logs (exporter from the config, stdout by default)")
	global.Usage = func() { printUsage(global, stderr) }

	if err := global.Parse(args); err != nil {
		return exitUsage
	}

	if global.NArg() == 0 {
		printUsage(global, stderr)
		return exitUsage
	}

	cmd, err := findCommand(global.Arg(0))
	if err != nil {
		_, _ = fmt.Fprintln(stderr, err)
		printUsage(global, stderr)

		return exitUsage
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "loading config failed: %v\n", err)
		return exitError
	}

	if *observabilityEnabled {
		cfg.Observability.Enabled = true
	}

	opts := []app.Option{app.WithLogOutput(stderr)}

	if cmd.name == "migrate" {
		opts = append(opts, app.WithoutSeed())
	}

	a, err := app.New(ctx, cfg, opts...)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "starting failed: %v\n", err)
		return exitError
	}
	defer func() { _ = a.Close() }()

	if err = cmd.run(ctx, &cli{app: a, stdout: stdout, stderr: stderr}, global.Args()[1:]); err != nil {
		writeError(stderr, err)
		return exitError
	}

	return exitOK
}

func findCommand(name string) (command, error) {
	for _, cmd := range commands() {
		if cmd.name == name {
			return cmd, nil
		}
	}

	return command{}, fmt.Errorf("%w: %q", errUnknownCommand, name)
}

func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()

	if path != "" {
		var err error
		if cfg, err = config.FromFile(path); err != nil {
			return config.Config{}, err
		}
	}

	return cfg.WithEnv(os.LookupEnv), nil
}

func printUsage(global *flag.FlagSet, out io.Writer) {
	_, _ = fmt.Fprintln(out, "usage: librarian [flags] <command> [command flags]")
	_, _ = fmt.Fprintln(out, "\ncommands:")

	for _, cmd := range commands() {
		_, _ = fmt.Fprintf(out, "  %-17s %s\n", cmd.name, cmd.usage)
	}

	_, _ = fmt.Fprintln(out, "\nflags:")
	global.PrintDefaults()
}

func writeJSON(out io.Writer, value any) error {
	encoded, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(out, string(encoded))

	return err
}

// writeError renders expected errors with code and payload and hides everything else.
func writeError(out io.Writer, err error) {
	public := apperror.Public(err)
	if writeErr := writeJSON(out, map[string]any{"error": public}); writeErr != nil {
		_, _ = fmt.Fprintln(out, err)
	}
}

func publicOrNil(err error) any {
	if err == nil {
		return nil
	}

	return apperror.Public(err)
}
