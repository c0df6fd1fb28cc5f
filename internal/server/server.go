package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/nuitap/nuitap/internal/auth"
	"github.com/nuitap/nuitap/internal/config"
	"github.com/nuitap/nuitap/internal/handler"
	"github.com/nuitap/nuitap/internal/logstore"
	"github.com/nuitap/nuitap/internal/web"
)

// Server holds the Echo app and dependencies.
type Server struct {
	Echo   *echo.Echo
	Config *config.Config
	Store  *logstore.Store
	Log    zerolog.Logger
}

// New builds the Echo server and registers routes. Ingest and health stay
// public; the query, clear and viewer routes sit behind the cookie gate.
func New(cfg *config.Config, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(
		middleware.Recover(),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			Generator: uuid.NewString,
		}),
		middleware.Logger(),
	)
	if len(cfg.Server.CORSAllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Server.CORSAllowedOrigins,
		}))
	}

	e.Server.ReadTimeout = time.Duration(cfg.Server.ReadTimeout) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.Server.WriteTimeout) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.Server.IdleTimeout) * time.Second

	store := logstore.New(cfg.Log.Dir, logger)
	logHandler := &handler.LogHandler{Store: store, Log: logger}
	gate := auth.NewGate(cfg.Auth, logger)

	// Public: external clients must be able to log without authenticating.
	e.POST("/log", logHandler.Ingest)
	e.GET("/health", logHandler.Health)
	e.GET("/login", gate.LoginForm)
	e.POST("/login", gate.Login)
	e.GET("/logout", gate.Logout)
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, "/view")
	})

	// Gated: query, admin and viewer.
	gated := e.Group("", gate.Middleware())
	gated.GET("/logs", logHandler.Query)
	gated.POST("/clear", logHandler.Clear)
	gated.GET("/view", func(c echo.Context) error {
		return c.HTML(http.StatusOK, web.ViewerPage)
	})

	return &Server{Echo: e, Config: cfg, Store: store, Log: logger}
}

// Start starts the HTTP server. Blocks until the context is cancelled or
// the server fails. On context cancel, Shutdown drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			s.Log.Error().Err(err).Msg("shutdown")
		}
	}()
	addr := ":" + s.Config.Server.Port
	s.Log.Info().Str("addr", addr).Str("log_dir", s.Config.Log.Dir).Msg("listening")
	err := s.Echo.Start(addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Echo.Shutdown(ctx)
}
