package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/axiom/config"
	core "github.com/mohammad-safakhou/axiom/internal/agent/core"
	"github.com/mohammad-safakhou/axiom/internal/store"
)

// Researcher runs one research session and streams its events.
type Researcher interface {
	Run(ctx context.Context, req core.Request, sink core.Sink) error
}

// Deps are the collaborators the HTTP layer needs. Store and Redis may be nil.
type Deps struct {
	Config     *config.Config
	Researcher Researcher
	Store      *store.Store
	Redis      *redis.Client
	Logger     *zap.Logger
}

// New builds the echo instance with every route mounted.
func New(deps Deps) (*echo.Echo, error) {
	if deps.Config == nil || deps.Researcher == nil {
		return nil, errors.New("config and researcher are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	httpLogger := logger.Named("http")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	// Unified HTTP error handler with structured JSON and logging
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		httpLogger.Warn("request failed",
			zap.Int("status", code),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.String("remote", c.RealIP()),
			zap.Error(err))
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     deps.Config.Server.AllowOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, HeaderUserID, "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.Use(Identity([]byte(deps.Config.Server.JWTSecret)))

	quota := NewGuestQuota(deps.Redis, deps.Config.Limits.GuestDailyQueries, httpLogger)
	chat := &ChatHandler{Researcher: deps.Researcher, Logger: httpLogger}
	api.POST("/chat", chat.chat, quota.Middleware())

	if deps.Store != nil {
		threads := &ThreadsHandler{Store: deps.Store}
		threads.Register(api.Group("/threads"))
	}
	return e, nil
}

// Run serves until ctx is canceled, then shuts down gracefully.
func Run(ctx context.Context, deps Deps) error {
	e, err := New(deps)
	if err != nil {
		return err
	}
	addr := deps.Config.Server.Address
	if addr == "" {
		addr = ":10001"
	}
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}
	e.Server.WriteTimeout = deps.Config.Server.WriteTimeout

	errCh := make(chan error, 1)
	go func() {
		if deps.Logger != nil {
			deps.Logger.Info("listening", zap.String("addr", addr))
		}
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
