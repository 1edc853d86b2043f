package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/streampulse/user-service/internal/core/domain"
	"github.com/streampulse/user-service/internal/core/ports"
)

// accessTokenCookie is the cookie fallback for clients that do not send an
// Authorization header.
const accessTokenCookie = "accessToken"

// identityKey is the context key under which the authenticated identity is
// stored. Private to this package; handlers go through CurrentUser.
const identityKey = "auth.identity"

// Auth is the gate in front of every protected route: it extracts the bearer
// credential from the Authorization header or the accessToken cookie,
// verifies it with the access codec, resolves the subject to a sanitized
// user, and attaches that identity to the request context. Any failure is a
// terminal 401; the downstream handler is never invoked.
func Auth(codec ports.TokenCodec, repo ports.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
			}

			subjectID, err := codec.Verify(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
			}

			user, err := repo.FindByID(c.Request().Context(), subjectID)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
			}

			c.Set(identityKey, user.Public())
			return next(c)
		}
	}
}

// CurrentUser returns the identity attached by Auth, or nil when the route
// is not guarded.
func CurrentUser(c echo.Context) *domain.PublicUser {
	user, _ := c.Get(identityKey).(*domain.PublicUser)
	return user
}

func extractToken(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}

	cookie, err := c.Cookie(accessTokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}
