package backendtest

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"soxmon/pkg/models"

	"github.com/labstack/echo/v4"
)

const (
	contextUserKey = "username"
	tokenTTL       = time.Hour
)

func (b *Backend) health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, models.Health{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (b *Backend) login(ctx echo.Context) error {
	if !strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationForm) {
		// Validation failures carry a list, not a string, in "detail".
		return ctx.JSON(http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]string{{"msg": "field required", "loc": "body.username"}},
		})
	}

	username := ctx.FormValue("username")
	password := ctx.FormValue("password")

	b.mu.Lock()
	defer b.mu.Unlock()

	acct, ok := b.accounts[username]
	if !ok || acct.password != password {
		return ctx.JSON(http.StatusUnauthorized, models.ErrorDetail{Detail: "Incorrect username or password"})
	}

	return ctx.JSON(http.StatusOK, models.LoginResult{
		AccessToken: b.issueLocked(username),
		TokenType:   "bearer",
		Username:    username,
		Role:        acct.role,
		Message:     "Login successful!",
	})
}

func (b *Backend) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		token, found := strings.CutPrefix(ctx.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
		if !found || token == "" {
			return ctx.JSON(http.StatusUnauthorized, models.ErrorDetail{Detail: "Not authenticated"})
		}

		b.mu.Lock()
		issued, ok := b.tokens[token]
		if ok && time.Since(issued.createdAt) > tokenTTL {
			delete(b.tokens, token)
			ok = false
		}
		b.mu.Unlock()

		if !ok {
			return ctx.JSON(http.StatusUnauthorized, models.ErrorDetail{Detail: "Invalid or expired token"})
		}

		ctx.Set(contextUserKey, issued.username)
		return next(ctx)
	}
}

func (b *Backend) me(ctx echo.Context) error {
	username, _ := ctx.Get(contextUserKey).(string)

	b.mu.Lock()
	role := b.accounts[username].role
	b.mu.Unlock()

	return ctx.JSON(http.StatusOK, models.CurrentUser{Username: username, Role: role})
}

func (b *Backend) getSystemInfo(ctx echo.Context) error {
	b.mu.Lock()
	info := b.systemInfo
	b.mu.Unlock()

	info.RequestedBy, _ = ctx.Get(contextUserKey).(string)
	return ctx.JSON(http.StatusOK, info)
}

func (b *Backend) getCPU(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ctx.JSON(http.StatusOK, b.cpu)
}

func (b *Backend) getMemory(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ctx.JSON(http.StatusOK, b.memory)
}

func (b *Backend) getDisk(ctx echo.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ctx.JSON(http.StatusOK, b.disk)
}

func (b *Backend) getCompliance(ctx echo.Context) error {
	b.mu.Lock()
	report := b.compliance
	report.Checks = append([]models.ComplianceCheck(nil), b.compliance.Checks...)
	b.mu.Unlock()

	// The wire spelling uses a hyphen.
	report.Overall = models.ComplianceStatus(report.Overall.Label())
	if report.Score == "" {
		report.Score = fmt.Sprintf("%d/%d", report.PassedCount(), len(report.Checks))
	}
	report.CheckedBy, _ = ctx.Get(contextUserKey).(string)
	return ctx.JSON(http.StatusOK, report)
}
