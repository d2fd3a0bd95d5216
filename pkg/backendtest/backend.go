// Package backendtest runs an in-process monitoring backend that speaks the
// same HTTP contract as the real one, for tests and local demos.
package backendtest

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"soxmon/pkg/models"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const tokenBytes = 32

// Routes served by the backend.
const (
	RouteLogin      = "/auth/login"
	RouteMe         = "/auth/me"
	RouteHealth     = "/health"
	RouteSystemInfo = "/api/system-info"
	RouteCPU        = "/api/cpu"
	RouteMemory     = "/api/memory"
	RouteDisk       = "/api/disk"
	RouteCompliance = "/api/compliance"
)

// Request is what the backend saw for one call.
type Request struct {
	Method        string
	Path          string
	Authorization string
	ContentType   string
	Form          map[string]string
}

type account struct {
	password string
	role     string
}

type issuedToken struct {
	username  string
	createdAt time.Time
}

// Backend is a fake monitoring API served over a local listener.
type Backend struct {
	echo   *echo.Echo
	server *httptest.Server

	mu         sync.Mutex
	accounts   map[string]account
	tokens     map[string]issuedToken
	failures   map[string]int
	delays     map[string]time.Duration
	requests   []Request
	systemInfo models.SystemInfo
	cpu        models.CPU
	memory     models.Memory
	disk       models.Disk
	compliance models.ComplianceReport
}

// New starts a backend with the admin/admin123 and viewer/viewer123 accounts.
func New() *Backend {
	b := &Backend{
		echo: echo.New(),
		accounts: map[string]account{
			"admin":  {password: "admin123", role: "admin"},
			"viewer": {password: "viewer123", role: "viewer"},
		},
		tokens:   make(map[string]issuedToken),
		failures: make(map[string]int),
		delays:   make(map[string]time.Duration),
		systemInfo: models.SystemInfo{
			Hostname:      "ledger-01",
			Platform:      "Linux-6.8.0-x86_64-with-glibc2.39",
			PythonVersion: "3.12.3",
		},
		cpu:    models.CPU{Percent: 12.5, Cores: 8},
		memory: models.Memory{Percent: 41.3, TotalGB: 31.2, UsedGB: 12.9, FreeGB: 18.3},
		disk:   models.Disk{Percent: 57.8, TotalGB: 467.6, UsedGB: 270.3, FreeGB: 197.3},
		compliance: models.ComplianceReport{
			ReportTime: "2026-10-18T09:30:00",
			Score:      "3/3",
			Overall:    models.Compliant,
			Checks: []models.ComplianceCheck{
				{Check: "CPU Usage", Value: "12.5%", Threshold: "85%", Status: models.CheckPass},
				{Check: "Memory Usage", Value: "41.3%", Threshold: "90%", Status: models.CheckPass},
				{Check: "Disk Usage", Value: "57.8%", Threshold: "80%", Status: models.CheckPass},
			},
		},
	}
	b.setupRoutes()
	b.server = httptest.NewServer(b.echo)
	return b
}

// URL is the base URL clients should use.
func (b *Backend) URL() string {
	return b.server.URL
}

// Close stops the listener.
func (b *Backend) Close() {
	b.server.Close()
}

func (b *Backend) setupRoutes() {
	b.echo.HideBanner = true
	b.echo.HidePort = true

	b.echo.Use(middleware.Recover())
	b.echo.Use(b.record)
	b.echo.Use(b.injectFaults)

	b.echo.GET(RouteHealth, b.health)
	b.echo.POST(RouteLogin, b.login)

	protected := b.echo.Group("", b.requireToken)
	protected.GET(RouteMe, b.me)
	protected.GET(RouteSystemInfo, b.getSystemInfo)
	protected.GET(RouteCPU, b.getCPU)
	protected.GET(RouteMemory, b.getMemory)
	protected.GET(RouteDisk, b.getDisk)
	protected.GET(RouteCompliance, b.getCompliance)
}

// FailWith makes every request to path answer status until cleared with 0.
func (b *Backend) FailWith(path string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if status == 0 {
		delete(b.failures, path)
		return
	}
	b.failures[path] = status
}

// Delay holds every response to path for d.
func (b *Backend) Delay(path string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delays[path] = d
}

// IssueToken creates a valid token for username without a login call.
func (b *Backend) IssueToken(username string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked(username)
}

// RevokeAll invalidates every issued token, as a server restart would.
func (b *Backend) RevokeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens = make(map[string]issuedToken)
}

// SetCPU replaces the CPU payload.
func (b *Backend) SetCPU(cpu models.CPU) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cpu = cpu
}

// SetCompliance replaces the compliance report payload.
func (b *Backend) SetCompliance(report models.ComplianceReport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.compliance = report
}

// Requests returns a copy of every request seen so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// RequestsTo returns the requests seen for path.
func (b *Backend) RequestsTo(path string) []Request {
	var matched []Request
	for _, req := range b.Requests() {
		if req.Path == path {
			matched = append(matched, req)
		}
	}
	return matched
}

func (b *Backend) issueLocked(username string) string {
	raw := make([]byte, tokenBytes)
	_, _ = rand.Read(raw)
	token := hex.EncodeToString(raw)
	b.tokens[token] = issuedToken{username: username, createdAt: time.Now()}
	return token
}

func (b *Backend) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()
		entry := Request{
			Method:        req.Method,
			Path:          req.URL.Path,
			Authorization: req.Header.Get(echo.HeaderAuthorization),
			ContentType:   req.Header.Get(echo.HeaderContentType),
		}
		if strings.HasPrefix(entry.ContentType, echo.MIMEApplicationForm) {
			if form, err := ctx.FormParams(); err == nil {
				entry.Form = make(map[string]string, len(form))
				for key := range form {
					entry.Form[key] = form.Get(key)
				}
			}
		}

		b.mu.Lock()
		b.requests = append(b.requests, entry)
		b.mu.Unlock()

		return next(ctx)
	}
}

func (b *Backend) injectFaults(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		path := ctx.Request().URL.Path

		b.mu.Lock()
		status, failing := b.failures[path]
		delay := b.delays[path]
		b.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Request().Context().Done():
				return ctx.Request().Context().Err()
			}
		}
		if failing {
			return ctx.JSON(status, models.ErrorDetail{Detail: http.StatusText(status)})
		}
		return next(ctx)
	}
}
