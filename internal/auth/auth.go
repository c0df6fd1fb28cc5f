// Package auth implements the shared-PIN cookie gate for the viewer and
// admin endpoints. It is a single boolean capability check, not a user or
// session abstraction: the cookie carries the shared secret itself and is
// compared by equality on every request.
package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nuitap/nuitap/internal/config"
	"github.com/nuitap/nuitap/internal/web"
)

// Gate holds the configured shared secret and cookie parameters.
type Gate struct {
	cfg config.AuthConfig
	log zerolog.Logger
}

// NewGate returns a Gate for the given auth config.
func NewGate(cfg config.AuthConfig, logger zerolog.Logger) *Gate {
	return &Gate{cfg: cfg, log: logger}
}

// Middleware redirects any request lacking the correct auth cookie to the
// login view. A browser is the consumer, so failure is a navigational
// redirect rather than a 401, and indistinguishable from not having logged
// in yet.
func (g *Gate) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !g.authorized(c) {
				return c.Redirect(http.StatusFound, "/login")
			}
			return next(c)
		}
	}
}

func (g *Gate) authorized(c echo.Context) bool {
	cookie, err := c.Cookie(g.cfg.CookieName)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(g.cfg.PIN)) == 1
}

// LoginForm renders the login page (GET /login).
func (g *Gate) LoginForm(c echo.Context) error {
	return c.HTML(http.StatusOK, web.LoginPage)
}

// Login checks the submitted PIN (POST /login). On match it sets the auth
// cookie and redirects to the viewer; on mismatch it redirects back to the
// form with no error detail, so a guesser learns nothing from the response.
func (g *Gate) Login(c echo.Context) error {
	pin := c.FormValue("pin")
	if subtle.ConstantTimeCompare([]byte(pin), []byte(g.cfg.PIN)) != 1 {
		g.log.Warn().Str("remote", c.RealIP()).Msg("rejected login attempt")
		return c.Redirect(http.StatusFound, "/login")
	}
	c.SetCookie(&http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    g.cfg.PIN,
		Path:     "/",
		MaxAge:   g.cfg.CookieTTLHours * 3600,
		HttpOnly: true,
		Secure:   c.Request().TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, "/view")
}

// Logout expires the auth cookie and returns to the login view (GET /logout).
func (g *Gate) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     g.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return c.Redirect(http.StatusFound, "/login")
}
