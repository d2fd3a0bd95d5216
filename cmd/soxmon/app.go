package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"soxmon/pkg/client"
	"soxmon/pkg/config"
	"soxmon/pkg/dashboard"
	"soxmon/pkg/log"
	"soxmon/pkg/metrics"
	"soxmon/pkg/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// exitError ends the process with a status code and no extra log line; the
// command has already told the user what happened.
type exitError int

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", int(e))
}

const (
	exitFailure   exitError = 1
	exitNoSession exitError = 3
)

type command struct {
	flags func(fs *pflag.FlagSet)
	run   func(ctx context.Context, a *app, fs *pflag.FlagSet) error
}

var commands = map[string]command{
	"login":     {flags: loginFlags, run: runLogin},
	"logout":    {run: runLogout},
	"dashboard": {run: runDashboard},
	"watch":     {flags: watchFlags, run: runWatch},
	"whoami":    {run: runWhoami},
	"health":    {run: runHealth},
}

// app wires the session store, client and loader for one invocation.
type app struct {
	cfg      *config.Config
	store    session.Store
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	client   *client.Client
	loader   *dashboard.Loader

	in       *bufio.Reader
	inFile   *os.File
	out      io.Writer
	password func() (string, error)
}

func newApp(cfg *config.Config, in io.Reader, out io.Writer) (*app, error) {
	store, err := session.Open(cfg.SessionOptions())
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	c := client.New(cfg.ClientOptions(m), store)

	a := &app{
		cfg:      cfg,
		store:    store,
		registry: registry,
		metrics:  m,
		client:   c,
		loader:   dashboard.NewLoader(c, m),
		in:       bufio.NewReader(in),
		out:      out,
	}
	if f, ok := in.(*os.File); ok {
		a.inFile = f
	}
	a.password = a.readPassword
	return a, nil
}

func (a *app) Close() {
	if err := session.Close(a.store); err != nil {
		log.Warn().Err(err).Msg("Failed to close session store")
	}
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *app) prompt(label string) (string, error) {
	a.printf("%s", label)
	line, err := a.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readPassword disables echo when stdin is a terminal.
func (a *app) readPassword() (string, error) {
	if a.inFile == nil || !term.IsTerminal(int(a.inFile.Fd())) {
		return a.prompt("Password: ")
	}

	a.printf("Password: ")
	raw, err := term.ReadPassword(int(a.inFile.Fd()))
	a.printf("\n")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// requireSession prints the login hint when no token is held.
func (a *app) requireSession() error {
	if a.client.Authenticated() {
		return nil
	}
	a.printf("Not logged in. Run \"soxmon login\" first.\n")
	return exitNoSession
}

// watchExpiry returns a channel closed by the first session-expired
// notification. then runs once at that point. Notifications arrive from the
// load goroutines, possibly several at a time.
func (a *app) watchExpiry(then func()) <-chan struct{} {
	expired := make(chan struct{})
	var once sync.Once
	a.client.OnSessionExpired(func() {
		once.Do(func() {
			close(expired)
			if then != nil {
				then()
			}
		})
	})
	return expired
}

func sessionEnded(expired <-chan struct{}) bool {
	select {
	case <-expired:
		return true
	default:
		return false
	}
}
