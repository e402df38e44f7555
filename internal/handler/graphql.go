package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"hasura-graphql-proxy/internal/metrics"
	"hasura-graphql-proxy/internal/model"
	"hasura-graphql-proxy/internal/service"
)

// allowedMethods is advertised in the Allow header of 405 responses.
var allowedMethods = strings.Join([]string{http.MethodGet, http.MethodPost}, ", ")

// errorResponse is the GraphQL-shaped body of every proxy-generated error.
type errorResponse struct {
	Errors gqlerror.List `json:"errors"`
}

// GraphQLHandler serves the GraphQL proxy route.
type GraphQLHandler struct {
	service *service.ProxyService
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewGraphQLHandler creates a GraphQLHandler.
// The metrics parameter is optional; pass nil to disable error counting.
func NewGraphQLHandler(svc *service.ProxyService, m *metrics.Metrics, logger *slog.Logger) *GraphQLHandler {
	return &GraphQLHandler{
		service: svc,
		metrics: m,
		logger:  logger.With("component", "graphql_handler"),
	}
}

// Post forwards the GraphQL request upstream and relays the upstream status
// and body bytes unchanged.
func (h *GraphQLHandler) Post(c echo.Context) error {
	req := c.Request()

	resp, err := h.service.Forward(req.Context(), req.Header, req.Body)
	if err != nil {
		return h.mapError(c, err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c.Response().WriteHeader(resp.StatusCode)

	// The status is already sent; a copy failure can only truncate the body.
	if _, err := io.Copy(c.Response(), resp.Body); err != nil {
		h.logger.Error("streaming response body",
			"err", err,
			"status", resp.StatusCode,
		)
	}
	return nil
}

// Get reports proxy configuration for diagnostics. It always answers 200.
func (h *GraphQLHandler) Get(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.Diagnostics())
}

// MethodNotAllowed answers any method other than GET and POST.
func (h *GraphQLHandler) MethodNotAllowed(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderAllow, allowedMethods)
	return writeError(c, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
}

func (h *GraphQLHandler) mapError(c echo.Context, err error) error {
	// Body limit violations and similar are rendered by Echo itself.
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, service.ErrEndpointNotConfigured):
		h.logger.Error("proxy error", "err", err)
		h.countError(metrics.ErrorConfiguration)
		return writeError(c, http.StatusInternalServerError, service.ErrEndpointNotConfigured.Error())

	case errors.Is(err, model.ErrInvalidJSON):
		h.logger.Debug("rejected request", "err", err)
		h.countError(metrics.ErrorMalformedRequest)
		return writeError(c, http.StatusBadRequest, model.ErrInvalidJSON.Error())

	case errors.Is(err, model.ErrMissingQuery):
		h.logger.Debug("rejected request", "err", err)
		h.countError(metrics.ErrorMissingQuery)
		return writeError(c, http.StatusBadRequest, model.ErrMissingQuery.Error())
	}

	h.logger.Error("proxy error", "err", err)
	h.countError(metrics.ErrorUpstreamUnreachable)
	return writeError(c, http.StatusBadGateway, "Proxy error: "+err.Error())
}

func (h *GraphQLHandler) countError(kind string) {
	if h.metrics != nil {
		h.metrics.ProxyErrors.WithLabelValues(kind).Inc()
	}
}

func writeError(c echo.Context, status int, message string) error {
	return c.JSON(status, errorResponse{
		Errors: gqlerror.List{{Message: message}},
	})
}
