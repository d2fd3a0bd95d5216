package main

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"soxmon/pkg/backendtest"
	"soxmon/pkg/config"
	"soxmon/pkg/session"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/suite"
)

type CommandsTestSuite struct {
	suite.Suite
	backend *backendtest.Backend
	app     *app
	out     *bytes.Buffer
	ctx     context.Context
}

func (s *CommandsTestSuite) SetupTest() {
	s.backend = backendtest.New()
	s.out = &bytes.Buffer{}
	s.ctx = context.Background()
	s.app = s.newApp("")
}

func (s *CommandsTestSuite) TearDownTest() {
	s.app.Close()
	s.backend.Close()
}

func (s *CommandsTestSuite) newApp(stdin string) *app {
	cfg := &config.Config{
		Server:  config.ServerConfig{URL: s.backend.URL(), Timeout: 5 * time.Second},
		Session: config.SessionConfig{Backend: session.BackendMemory, Key: session.DefaultKey},
		Watch:   config.WatchConfig{Interval: 20 * time.Millisecond},
	}
	a, err := newApp(cfg, strings.NewReader(stdin), s.out)
	s.Require().NoError(err)
	return a
}

func (s *CommandsTestSuite) flags(name string, args ...string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	if cmd := commands[name]; cmd.flags != nil {
		cmd.flags(fs)
	}
	s.Require().NoError(fs.Parse(args))
	return fs
}

func (s *CommandsTestSuite) login() {
	_, err := s.app.client.Login(s.ctx, "admin", "admin123")
	s.Require().NoError(err)
	s.out.Reset()
}

func (s *CommandsTestSuite) TestLoginPromptsForMissingValues() {
	s.app.Close()
	s.app = s.newApp("viewer\nviewer123\n")

	s.Require().NoError(runLogin(s.ctx, s.app, s.flags("login")))

	s.Contains(s.out.String(), "Logged in as viewer (viewer)")
	s.True(s.app.client.Authenticated())
}

func (s *CommandsTestSuite) TestLoginShowsBackendMessage() {
	s.app.password = func() (string, error) { return "wrong", nil }

	err := runLogin(s.ctx, s.app, s.flags("login", "-u", "admin"))

	s.ErrorIs(err, exitFailure)
	s.Contains(s.out.String(), "Incorrect username or password")
	s.False(s.app.client.Authenticated())
}

func (s *CommandsTestSuite) TestLogout() {
	s.login()

	s.Require().NoError(runLogout(s.ctx, s.app, nil))
	s.False(s.app.client.Authenticated())
}

func (s *CommandsTestSuite) TestDashboardWithoutSession() {
	err := runDashboard(s.ctx, s.app, nil)

	s.ErrorIs(err, exitNoSession)
	s.Contains(s.out.String(), "Not logged in")
	s.Empty(s.backend.RequestsTo(backendtest.RouteCPU))
}

func (s *CommandsTestSuite) TestDashboardRendersSnapshot() {
	s.login()

	s.Require().NoError(runDashboard(s.ctx, s.app, nil))

	out := s.out.String()
	s.Contains(out, "ledger-01")
	s.Contains(out, "COMPLIANT  score 3/3")
	s.Contains(out, "Disk Usage")
}

func (s *CommandsTestSuite) TestDashboardFailureShowsRetry() {
	s.login()
	s.backend.FailWith(backendtest.RouteDisk, http.StatusInternalServerError)

	err := runDashboard(s.ctx, s.app, nil)

	s.ErrorIs(err, exitFailure)
	out := s.out.String()
	s.Contains(out, "Failed to load data.")
	s.Contains(out, "retry")
	s.NotContains(out, "[CPU]")
}

func (s *CommandsTestSuite) TestDashboardSessionExpired() {
	s.login()
	s.backend.RevokeAll()

	err := runDashboard(s.ctx, s.app, nil)

	s.ErrorIs(err, exitNoSession)
	s.Contains(s.out.String(), "Session expired")
	s.False(s.app.client.Authenticated())
}

func (s *CommandsTestSuite) TestDashboardExpiryFromEveryRead() {
	for i := 0; i < 20; i++ {
		s.login()
		s.backend.RevokeAll()

		err := runDashboard(s.ctx, s.app, nil)

		s.Require().ErrorIs(err, exitNoSession)
		s.Contains(s.out.String(), "Session expired")
	}
}

func (s *CommandsTestSuite) TestWatchExpiryRunsOnce() {
	var calls atomic.Int32
	expired := s.app.watchExpiry(func() { calls.Add(1) })
	s.False(sessionEnded(expired))

	s.login()
	s.backend.RevokeAll()
	_, err := s.app.loader.LoadAll(s.ctx)
	s.Require().NoError(err)

	s.True(sessionEnded(expired))
	s.Equal(int32(1), calls.Load())
}

func (s *CommandsTestSuite) TestWatchStopsOnExpiry() {
	s.login()

	done := make(chan error, 1)
	go func() {
		done <- runWatch(s.ctx, s.app, s.flags("watch", "--interval", "20ms"))
	}()

	s.Eventually(func() bool {
		return len(s.backend.RequestsTo(backendtest.RouteCPU)) >= 2
	}, 2*time.Second, 10*time.Millisecond)
	s.backend.RevokeAll()

	select {
	case err := <-done:
		s.ErrorIs(err, exitNoSession)
	case <-time.After(2 * time.Second):
		s.Fail("watch did not stop after the session expired")
	}
}

func (s *CommandsTestSuite) TestWatchStopsOnCancel() {
	s.login()
	ctx, cancel := context.WithCancel(s.ctx)

	done := make(chan error, 1)
	go func() {
		done <- runWatch(ctx, s.app, s.flags("watch"))
	}()

	s.Eventually(func() bool {
		// A second cycle starts only after the first has been printed.
		return len(s.backend.RequestsTo(backendtest.RouteCPU)) >= 2
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(2 * time.Second):
		s.Fail("watch did not stop after cancel")
		return
	}

	out := s.out.String()
	s.Contains(out, "ledger-01")
	s.Contains(out, "COMPLIANT  score 3/3")
	s.NotContains(out, "Failed to load data.")
}

func (s *CommandsTestSuite) TestWhoami() {
	s.login()

	s.Require().NoError(runWhoami(s.ctx, s.app, nil))
	s.Contains(s.out.String(), "admin (admin)")
}

func (s *CommandsTestSuite) TestHealth() {
	s.Require().NoError(runHealth(s.ctx, s.app, nil))
	s.Contains(s.out.String(), "healthy")

	s.backend.FailWith(backendtest.RouteHealth, http.StatusServiceUnavailable)
	s.out.Reset()
	s.ErrorIs(runHealth(s.ctx, s.app, nil), exitFailure)
	s.Contains(s.out.String(), "Backend unavailable")
}

func TestCommandsSuite(t *testing.T) {
	suite.Run(t, new(CommandsTestSuite))
}
