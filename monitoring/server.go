package monitoring

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func newMetricsRouter() *echo.Echo {
	e := echo.New()
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return e
}

// StartMetricsServer serves /metrics on port until ctx is done.
func StartMetricsServer(ctx context.Context, port string) error {
	sc := echo.StartConfig{
		Address:         ":" + port,
		HideBanner:      true,
		HidePort:        true,
		GracefulContext: ctx,
	}

	slog.Info("Metrics server listening", "port", port)
	if err := sc.Start(newMetricsRouter()); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
