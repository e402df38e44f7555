package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hasura-graphql-proxy/internal/config"
	"hasura-graphql-proxy/internal/metrics"
)

// disallowedMethods are answered with 405 on the GraphQL route.
var disallowedMethods = []string{
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodHead,
	http.MethodOptions,
	http.MethodConnect,
	http.MethodTrace,
}

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, gql *GraphQLHandler, health *HealthHandler, m *metrics.Metrics) {
	e.GET("/healthz", health.Healthz)

	e.POST(cfg.Server.Path, gql.Post)
	e.GET(cfg.Server.Path, gql.Get)
	e.Match(disallowedMethods, cfg.Server.Path, gql.MethodNotAllowed)

	if cfg.Metrics.Enabled {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}
}
