package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

// StatusServer exposes liveness and the last cycle's outcome over HTTP.
type StatusServer struct {
	Addr   string
	Status *Status
	engine *echo.Echo
}

func NewStatusServer(addr string, status *Status) *StatusServer {
	s := &StatusServer{Addr: addr, Status: status}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(otelecho.Middleware("homedns"))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/status", func(c echo.Context) error {
		return c.JSON(http.StatusOK, s.Status.Snapshot())
	})

	s.engine = e
	return s
}

func (s *StatusServer) Handler() http.Handler {
	return s.engine
}

// Start serves until ctx is done.
func (s *StatusServer) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.engine.Shutdown(shutdownCtx)
	}()

	slog.Info("Status server listening", slog.String("addr", s.Addr))
	if err := s.engine.Start(s.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
