package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/streampulse/user-service/internal/core/domain"
)

func renderError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	NewHTTPErrorHandler(zerolog.Nop())(err, c)
	return rec
}

func TestHTTPErrorHandler_DomainMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", fmt.Errorf("%w: avatar file is required", domain.ErrValidation), http.StatusBadRequest},
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{"invalid token", domain.ErrInvalidToken, http.StatusUnauthorized},
		{"expired token", domain.ErrTokenExpired, http.StatusUnauthorized},
		{"user not found", domain.ErrUserNotFound, http.StatusNotFound},
		{"channel not found", domain.ErrChannelNotFound, http.StatusNotFound},
		{"duplicate user", domain.ErrUserExists, http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := renderError(t, tc.err)
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, rec.Code, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), `"success":false`) {
				t.Fatalf("expected error envelope, got %s", rec.Body.String())
			}
		})
	}
}

func TestHTTPErrorHandler_TokenFailuresAreUniform(t *testing.T) {
	invalid := renderError(t, domain.ErrInvalidToken)
	expired := renderError(t, domain.ErrTokenExpired)
	if invalid.Body.String() != expired.Body.String() {
		t.Fatalf("token failure responses must be indistinguishable:\n%s\n%s",
			invalid.Body.String(), expired.Body.String())
	}
}

func TestHTTPErrorHandler_EchoErrorPassthrough(t *testing.T) {
	rec := renderError(t, echo.NewHTTPError(http.StatusTeapot, "short and stout"))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "short and stout") {
		t.Fatalf("message lost: %s", rec.Body.String())
	}
}

func TestHTTPErrorHandler_UnexpectedErrorsAreOpaque(t *testing.T) {
	rec := renderError(t, errors.New("mongo: connection reset"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "mongo") {
		t.Fatalf("internal details leaked: %s", rec.Body.String())
	}
}
