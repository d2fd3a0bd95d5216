package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"soxmon/pkg/backendtest"
	"soxmon/pkg/metrics"
	"soxmon/pkg/models"
	"soxmon/pkg/session"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

// failingStore reads a fixed token but cannot remove it.
type failingStore struct {
	token string
}

func (f *failingStore) Token() (string, error) { return f.token, nil }
func (f *failingStore) SaveToken(string) error { return session.ErrStore }
func (f *failingStore) RemoveToken() error     { return session.ErrStore }

// ClientTestSuite exercises the client against the fake backend.
type ClientTestSuite struct {
	suite.Suite
	backend *backendtest.Backend
	store   *session.MemoryStore
	metrics *metrics.Metrics
	client  *Client
	ctx     context.Context
}

func (s *ClientTestSuite) SetupTest() {
	s.backend = backendtest.New()
	s.store = session.NewMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.client = New(Options{BaseURL: s.backend.URL() + "/", Timeout: 5 * time.Second, Metrics: s.metrics}, s.store)
	s.ctx = context.Background()
}

func (s *ClientTestSuite) TearDownTest() {
	s.backend.Close()
}

func (s *ClientTestSuite) TestLoginThenBearerIsSent() {
	result, err := s.client.Login(s.ctx, "admin", "admin123")
	s.Require().NoError(err)
	s.Equal("admin", result.Username)
	s.Equal("admin", result.Role)
	s.Equal("bearer", result.TokenType)
	s.Equal("Login successful!", result.Message)

	token, err := s.store.Token()
	s.Require().NoError(err)
	s.Equal(result.AccessToken, token)

	cpu, err := Get[models.CPU](s.ctx, s.client, PathCPU)
	s.Require().NoError(err)
	s.Require().NotNil(cpu)
	s.Equal(8, cpu.Cores)

	seen := s.backend.RequestsTo(PathCPU)
	s.Require().Len(seen, 1)
	s.Equal("Bearer "+token, seen[0].Authorization)
}

func (s *ClientTestSuite) TestEveryAccountTokenIsReused() {
	for _, creds := range [][2]string{{"admin", "admin123"}, {"viewer", "viewer123"}} {
		result, err := s.client.Login(s.ctx, creds[0], creds[1])
		s.Require().NoError(err)

		info, err := Get[models.SystemInfo](s.ctx, s.client, PathSystemInfo)
		s.Require().NoError(err)
		s.Equal(creds[0], info.RequestedBy)

		seen := s.backend.RequestsTo(PathSystemInfo)
		s.Equal("Bearer "+result.AccessToken, seen[len(seen)-1].Authorization)
	}
}

func (s *ClientTestSuite) TestLoginSendsForm() {
	_, err := s.client.Login(s.ctx, "admin", "admin123")
	s.Require().NoError(err)

	seen := s.backend.RequestsTo(PathLogin)
	s.Require().Len(seen, 1)
	s.Equal(http.MethodPost, seen[0].Method)
	s.Equal(contentTypeForm, seen[0].ContentType)
	s.Equal(map[string]string{"username": "admin", "password": "admin123"}, seen[0].Form)
	s.Empty(seen[0].Authorization)
}

func (s *ClientTestSuite) TestLoginRejectedUsesServerDetail() {
	s.Require().NoError(s.store.SaveToken("previous"))

	_, err := s.client.Login(s.ctx, "admin", "wrong")

	var authErr *AuthenticationError
	s.Require().ErrorAs(err, &authErr)
	s.Equal("Incorrect username or password", authErr.Message)
	s.Equal(http.StatusUnauthorized, authErr.StatusCode)
	s.Equal(http.StatusUnauthorized, StatusCode(err))

	token, err := s.store.Token()
	s.Require().NoError(err)
	s.Equal("previous", token)
}

func (s *ClientTestSuite) TestLoginAllowsEmptyStrings() {
	_, err := s.client.Login(s.ctx, "", "")

	var authErr *AuthenticationError
	s.Require().ErrorAs(err, &authErr)

	seen := s.backend.RequestsTo(PathLogin)
	s.Require().Len(seen, 1)
	s.Equal(map[string]string{"username": "", "password": ""}, seen[0].Form)
}

func (s *ClientTestSuite) TestLoginFallbackMessage() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	_, err := New(Options{BaseURL: server.URL}, s.store).Login(s.ctx, "admin", "admin123")

	var authErr *AuthenticationError
	s.Require().ErrorAs(err, &authErr)
	s.Equal(defaultLoginFailure, authErr.Message)
	s.Equal(http.StatusBadGateway, authErr.StatusCode)
}

func (s *ClientTestSuite) TestLoginNonStringDetailFallsBack() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[{"msg":"field required"}]}`))
	}))
	defer server.Close()

	_, err := New(Options{BaseURL: server.URL}, s.store).Login(s.ctx, "admin", "admin123")
	s.EqualError(err, defaultLoginFailure)
}

func (s *ClientTestSuite) TestLoginMalformedSuccessBody() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	_, err := New(Options{BaseURL: server.URL}, s.store).Login(s.ctx, "admin", "admin123")
	s.ErrorIs(err, ErrDecode)
	s.False(s.client.Authenticated())
}

func (s *ClientTestSuite) TestLoginSaveFailure() {
	_, err := New(Options{BaseURL: s.backend.URL()}, &failingStore{}).Login(s.ctx, "admin", "admin123")
	s.ErrorIs(err, session.ErrStore)
}

func (s *ClientTestSuite) TestUnauthorizedClearsTokenAndNotifies() {
	s.Require().NoError(s.store.SaveToken(s.backend.IssueToken("admin")))
	s.backend.RevokeAll()

	notified := 0
	s.client.OnSessionExpired(func() {
		notified++
		// Removal happens before subscribers run.
		_, err := s.store.Token()
		s.ErrorIs(err, session.ErrNoToken)
	})

	memory, err := Get[models.Memory](s.ctx, s.client, PathMemory)
	s.NoError(err)
	s.Nil(memory)
	s.Equal(1, notified)

	_, err = s.store.Token()
	s.ErrorIs(err, session.ErrNoToken)
	s.InDelta(1, testutil.ToFloat64(s.metrics.SessionExpired), 0)
}

func (s *ClientTestSuite) TestSubscribersRunInOrder() {
	var order []int
	s.client.OnSessionExpired(func() { order = append(order, 1) })
	s.client.OnSessionExpired(func() { order = append(order, 2) })

	_, err := Get[models.Disk](s.ctx, s.client, PathDisk)
	s.NoError(err)
	s.Equal([]int{1, 2}, order)
}

func (s *ClientTestSuite) TestMissingTokenSendsNoCredential() {
	_, err := Get[models.CPU](s.ctx, s.client, PathCPU)
	s.NoError(err)

	seen := s.backend.RequestsTo(PathCPU)
	s.Require().Len(seen, 1)
	s.Empty(seen[0].Authorization)
}

func (s *ClientTestSuite) TestExpiryWithBrokenStoreIsAnError() {
	c := New(Options{BaseURL: s.backend.URL()}, &failingStore{token: "stale"})
	notified := false
	c.OnSessionExpired(func() { notified = true })

	_, err := Get[models.CPU](s.ctx, c, PathCPU)
	s.ErrorIs(err, session.ErrStore)
	s.False(notified)
}

func (s *ClientTestSuite) TestServerErrorIsAPIError() {
	s.Require().NoError(s.store.SaveToken(s.backend.IssueToken("admin")))
	s.backend.FailWith(PathDisk, http.StatusInternalServerError)

	disk, err := Get[models.Disk](s.ctx, s.client, PathDisk)
	s.Nil(disk)

	var apiErr *APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusInternalServerError, apiErr.StatusCode)
	s.Equal(PathDisk, apiErr.Path)
	s.Contains(err.Error(), "500")

	// No retry, and the token survives.
	s.Len(s.backend.RequestsTo(PathDisk), 1)
	s.True(s.client.Authenticated())
	s.InDelta(1, testutil.ToFloat64(s.metrics.Requests.WithLabelValues(PathDisk, "500")), 0)
}

func (s *ClientTestSuite) TestForbiddenIsNotExpiry() {
	s.Require().NoError(s.store.SaveToken(s.backend.IssueToken("viewer")))
	s.backend.FailWith(PathCompliance, http.StatusForbidden)

	_, err := Get[models.ComplianceReport](s.ctx, s.client, PathCompliance)
	s.Equal(http.StatusForbidden, StatusCode(err))
	s.True(s.client.Authenticated())
}

func (s *ClientTestSuite) TestMalformedJSON() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{broken"))
	}))
	defer server.Close()

	_, err := Get[models.CPU](s.ctx, New(Options{BaseURL: server.URL}, s.store), PathCPU)
	s.ErrorIs(err, ErrDecode)
	s.Zero(StatusCode(err))
}

func (s *ClientTestSuite) TestUnreachableBackend() {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := Get[models.CPU](s.ctx, New(Options{BaseURL: url, Timeout: time.Second}, s.store), PathCPU)
	s.ErrorIs(err, ErrTransport)

	_, err = New(Options{BaseURL: url, Timeout: time.Second}, s.store).Login(s.ctx, "admin", "admin123")
	s.ErrorIs(err, ErrTransport)
}

func (s *ClientTestSuite) TestContextTimeout() {
	s.Require().NoError(s.store.SaveToken(s.backend.IssueToken("admin")))
	s.backend.Delay(PathCPU, time.Second)

	ctx, cancel := context.WithTimeout(s.ctx, 50*time.Millisecond)
	defer cancel()

	_, err := Get[models.CPU](ctx, s.client, PathCPU)
	s.ErrorIs(err, ErrTransport)
	s.True(s.client.Authenticated())
}

func (s *ClientTestSuite) TestMe() {
	_, err := s.client.Login(s.ctx, "viewer", "viewer123")
	s.Require().NoError(err)

	me, err := s.client.Me(s.ctx)
	s.Require().NoError(err)
	s.Equal("viewer", me.Username)
	s.Equal("viewer", me.Role)
}

func (s *ClientTestSuite) TestHealthNeedsNoSession() {
	health, err := s.client.Health(s.ctx)
	s.Require().NoError(err)
	s.Equal("healthy", health.Status)

	s.backend.FailWith(PathHealth, http.StatusServiceUnavailable)
	_, err = s.client.Health(s.ctx)
	s.Equal(http.StatusServiceUnavailable, StatusCode(err))
}

func (s *ClientTestSuite) TestLogout() {
	_, err := s.client.Login(s.ctx, "admin", "admin123")
	s.Require().NoError(err)
	s.True(s.client.Authenticated())

	s.Require().NoError(s.client.Logout())
	s.False(s.client.Authenticated())
	s.NoError(s.client.Logout())
}

func (s *ClientTestSuite) TestRetryPolicy() {
	resp := &http.Response{StatusCode: http.StatusServiceUnavailable}

	retry, err := retryOnlyWithoutResponse(s.ctx, resp, nil)
	s.NoError(err)
	s.False(retry)

	retry, err = retryOnlyWithoutResponse(s.ctx, nil, errors.New("connection refused"))
	s.NoError(err)
	s.True(retry)

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	retry, err = retryOnlyWithoutResponse(ctx, nil, errors.New("connection refused"))
	s.ErrorIs(err, context.Canceled)
	s.False(retry)
}

func (s *ClientTestSuite) TestCreateRetryableClient() {
	c := CreateRetryableClient(-1, time.Millisecond, time.Second, 2*time.Second)
	s.Zero(c.RetryMax)
	s.Equal(2*time.Second, c.HTTPClient.Timeout)
	s.Nil(c.Logger)
}

func (s *ClientTestSuite) TestIsRequestFailure() {
	s.True(IsRequestFailure(&APIError{StatusCode: 500, Path: PathDisk}))
	s.True(IsRequestFailure(fmt.Errorf("%w: dial tcp", ErrTransport)))
	s.True(IsRequestFailure(fmt.Errorf("%w: %s", ErrDecode, PathCPU)))
	s.False(IsRequestFailure(&AuthenticationError{StatusCode: 401, Message: "Login failed"}))
	s.False(IsRequestFailure(nil))
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}
