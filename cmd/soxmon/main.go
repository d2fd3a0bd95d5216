package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"soxmon/pkg/config"
	"soxmon/pkg/log"

	"github.com/spf13/pflag"
)

const usage = `Usage: soxmon <command> [flags]

Commands:
  login      sign in and keep the session token
  logout     forget the session token
  dashboard  load and print the dashboard once
  watch      reload the dashboard on an interval
  whoami     show the signed-in user
  health     check that the backend is up

Run "soxmon <command> --help" for the flags of a command.
`

func main() {
	// Initialize logger
	_ = log.Logger

	if len(os.Args) < 2 || os.Args[1] == "-h" || os.Args[1] == "--help" {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	name := os.Args[1]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}

	fs := pflag.NewFlagSet("soxmon "+name, pflag.ContinueOnError)
	config.RegisterFlags(fs)
	if cmd.flags != nil {
		cmd.flags(fs)
	}
	if err := fs.Parse(os.Args[2:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := log.SetLevel(cfg.Log.Level); err != nil {
		log.Fatal().Err(err).Msg("Invalid log level")
	}
	log.Debug().Str("command", name).Str("server", cfg.Server.URL).Str("store", cfg.Session.Backend).Msg("Starting")

	app, err := newApp(cfg, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open session store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	runErr := cmd.run(ctx, app, fs)
	stop()
	app.Close()

	if runErr != nil {
		var exit exitError
		if errors.As(runErr, &exit) {
			os.Exit(int(exit))
		}
		log.Error().Err(runErr).Str("command", name).Msg("Command failed")
		os.Exit(1)
	}
}
