// Package httpapi implements a read-only debug surface: a /health and
// /stats endpoint over a component's stats.Counters snapshot, built as
// an Echo app with recover middleware and a slog request logger.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"ndnrtc/internal/stats"
)

// Server is the Echo application exposing one process's observability
// surface. It does not mutate any component it reports on — a
// read-only presentation layer over whatever stats are collected.
type Server struct {
	echo  *echo.Echo
	stats *stats.Counters
	role  string
}

// New constructs an Echo app with /health and /stats routes over
// counters. role identifies the process in responses ("producer" or
// "consumer").
func New(role string, counters *stats.Counters) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger())

	s := &Server{echo: e, stats: counters, role: role}
	s.registerRoutes()
	return s
}

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			slog.Debug("http request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return nil
		}
	}
}

// Echo exposes the underlying Echo instance for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/stats", s.handleStats)
}

// Run starts Echo and blocks until ctx cancellation or startup failure.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.echo.Start(addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutCtx)
		return nil
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Role   string `json:"role"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: "ok", Role: s.role})
}

func (s *Server) handleStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.stats.Snapshot())
}
