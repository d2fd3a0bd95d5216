package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"soxmon/pkg/client"
	"soxmon/pkg/dashboard"
	"soxmon/pkg/log"
	"soxmon/pkg/metrics"
	"soxmon/pkg/render"

	"github.com/labstack/echo/v4"
	"github.com/spf13/pflag"
)

const (
	flagUser        = "user"
	flagInterval    = "interval"
	flagMetricsAddr = "metrics-addr"

	metricsShutdownTimeout = 5 * time.Second
)

func loginFlags(fs *pflag.FlagSet) {
	fs.StringP(flagUser, "u", "", "username (prompted when empty)")
}

func watchFlags(fs *pflag.FlagSet) {
	fs.Duration(flagInterval, 0, "time between reloads (default from watch.interval)")
	fs.String(flagMetricsAddr, "", "serve Prometheus metrics on this address")
}

func runLogin(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	username, _ := fs.GetString(flagUser)
	if username == "" {
		var err error
		if username, err = a.prompt("Username: "); err != nil {
			return err
		}
	}
	password, err := a.password()
	if err != nil {
		return err
	}

	result, err := a.client.Login(ctx, username, password)
	if err != nil {
		var authErr *client.AuthenticationError
		if errors.As(err, &authErr) {
			a.printf("%s\n", authErr.Message)
			return exitFailure
		}
		return err
	}

	a.printf("Logged in as %s (%s).\n", username, result.Role)
	return nil
}

func runLogout(_ context.Context, a *app, _ *pflag.FlagSet) error {
	if err := a.client.Logout(); err != nil {
		return err
	}
	a.printf("Logged out.\n")
	return nil
}

func runDashboard(ctx context.Context, a *app, _ *pflag.FlagSet) error {
	if err := a.requireSession(); err != nil {
		return err
	}

	expired := a.watchExpiry(nil)

	view := dashboard.NewView(a.loader)
	state := view.Refresh(ctx)
	if sessionEnded(expired) {
		a.printf("Session expired. Run \"soxmon login\" again.\n")
		return exitNoSession
	}
	return a.show(state)
}

func runWatch(ctx context.Context, a *app, fs *pflag.FlagSet) error {
	if err := a.requireSession(); err != nil {
		return err
	}

	interval := a.cfg.Watch.Interval
	if v, _ := fs.GetDuration(flagInterval); v > 0 {
		interval = v
	}
	addr := a.cfg.Metrics.Addr
	if v, _ := fs.GetString(flagMetricsAddr); v != "" {
		addr = v
	}
	if addr != "" {
		stopMetrics := a.serveMetrics(addr)
		defer stopMetrics()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	view := dashboard.NewView(a.loader)
	expired := a.watchExpiry(func() {
		cancel()
		view.Reset()
	})

	// Completed cycles are printed by the subscriber, which runs on the
	// goroutine calling Refresh.
	var showErr error
	view.Subscribe(func(state dashboard.State) {
		if state.Loading || ctx.Err() != nil || sessionEnded(expired) {
			return
		}
		a.printf("\n--- %s ---\n", time.Now().Format(time.DateTime))
		if err := a.show(state); err != nil && !errors.Is(err, exitFailure) {
			showErr = err
		}
	})

	log.Info().Dur("interval", interval).Msg("Watching dashboard")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		view.Refresh(ctx)
		if sessionEnded(expired) {
			a.printf("Session expired. Run \"soxmon login\" again.\n")
			return exitNoSession
		}
		if showErr != nil {
			return showErr
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func runWhoami(ctx context.Context, a *app, _ *pflag.FlagSet) error {
	if err := a.requireSession(); err != nil {
		return err
	}
	user, err := a.client.Me(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		a.printf("Session expired. Run \"soxmon login\" again.\n")
		return exitNoSession
	}

	a.printf("%s (%s)\n", user.Username, user.Role)
	if user.TokenExpires != "" {
		a.printf("Token expires %s\n", user.TokenExpires)
	}
	return nil
}

func runHealth(ctx context.Context, a *app, _ *pflag.FlagSet) error {
	health, err := a.client.Health(ctx)
	if err != nil {
		a.printf("Backend unavailable: %v\n", err)
		return exitFailure
	}
	a.printf("%s %s\n", health.Status, health.Timestamp)
	return nil
}

// show prints one completed cycle.
func (a *app) show(state dashboard.State) error {
	if state.Err != nil {
		if err := render.LoadFailure(a.out, state.Err); err != nil {
			return err
		}
		return exitFailure
	}
	return render.Snapshot(a.out, state.Snapshot)
}

// serveMetrics exposes the client collectors until the returned func runs.
func (a *app) serveMetrics(addr string) func() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echo.WrapHandler(metrics.Handler(a.registry)))

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()
	log.Info().Str("addr", addr).Msg("Serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := e.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}
}
