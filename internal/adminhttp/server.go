// Package adminhttp is the operator-facing HTTP surface: a health probe, a
// JSON snapshot of connected clients, and a Prometheus scrape endpoint.
// Grounded on the teacher's internal/httpapi/server.go — an Echo app with
// Recover + a slog-backed request logger middleware — generalized from the
// teacher's chat/blob routes to this server's client-registry and ledger
// domain.
package adminhttp

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/asciichat/fanout/internal/ledger"
)

// Server is the admin/ops Echo application.
type Server struct {
	echo     *echo.Echo
	registry RegistryStats
	ledger   *ledger.Ledger
}

// New constructs an Echo app with /healthz, /stats, and /metrics routes.
// led may be nil.
func New(registry RegistryStats, led *ledger.Ledger, startTime time.Time) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger())

	s := &Server{echo: e, registry: registry, ledger: led}

	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(registry, led, startTime))

	e.GET("/healthz", s.handleHealthz)
	e.GET("/stats", s.handleStats)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	return s
}

// Echo exposes the underlying Echo instance for tests.
func (s *Server) Echo() *echo.Echo { return s.echo }

// requestLogger logs each HTTP request via the standard library logger,
// grounded on the teacher's requestLogger but matching this repo's
// log.Printf convention rather than slog.
func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			if req.URL.Path != "/metrics" && req.URL.Path != "/healthz" {
				log.Printf("[adminhttp] %s %s status=%d duration=%s", req.Method, req.URL.Path, c.Response().Status, time.Since(start))
			}
			return nil
		}
	}
}

type healthResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
}

func (s *Server) handleHealthz(c echo.Context) error {
	clients := 0
	if s.registry != nil {
		clients = s.registry.Count()
	}
	return c.JSON(http.StatusOK, healthResponse{Status: "ok", Clients: clients})
}

type clientStat struct {
	ID             uint32 `json:"id"`
	Active         bool   `json:"active"`
	IsSendingVideo bool   `json:"is_sending_video"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
}

type statsResponse struct {
	Clients []clientStat `json:"clients"`
}

func (s *Server) handleStats(c echo.Context) error {
	resp := statsResponse{Clients: []clientStat{}}
	if s.registry != nil {
		for _, snap := range s.registry.Snapshot() {
			resp.Clients = append(resp.Clients, clientStat{
				ID:             snap.ID,
				Active:         snap.Active,
				IsSendingVideo: snap.IsSendingVideo,
				Width:          snap.Width,
				Height:         snap.Height,
			})
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// Run starts Echo on addr and blocks until ctx cancellation or a startup
// failure, matching the teacher's httpapi.Server.Run shutdown sequencing.
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
