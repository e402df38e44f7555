// Package service implements the core GraphQL forwarding logic.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"hasura-graphql-proxy/internal/client"
	"hasura-graphql-proxy/internal/config"
	"hasura-graphql-proxy/internal/model"
)

// ErrEndpointNotConfigured is returned when no upstream GraphQL endpoint is
// configured, either statically or in the environment.
var ErrEndpointNotConfigured = errors.New("GraphQL endpoint not configured") //nolint:staticcheck // message is part of the wire contract

// UpstreamError reports a transport-level failure reaching the upstream
// endpoint: DNS, connection refused, TLS, timeout or cancellation.
// Upstream HTTP error statuses are not UpstreamErrors.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return e.Err.Error() }

func (e *UpstreamError) Unwrap() error { return e.Err }

// AdminSecretHeader carries the privileged Hasura credential upstream.
const AdminSecretHeader = "X-Hasura-Admin-Secret"

const (
	userAgent       = "hasura-graphql-proxy/1.0"
	previewLength   = 30
	previewEllipsis = "..."
	previewNotSet   = "NOT SET"
)

// SettingsSource yields the upstream settings in effect for one request.
type SettingsSource interface {
	Settings() config.GraphQLSettings
}

// ProxyService handles the forwarding logic for GraphQL requests.
type ProxyService struct {
	client *client.GraphQLClient
	source SettingsSource
	logger *slog.Logger
}

// NewProxyService creates a ProxyService.
func NewProxyService(c *client.GraphQLClient, source SettingsSource, logger *slog.Logger) *ProxyService {
	return &ProxyService{
		client: c,
		source: source,
		logger: logger.With("component", "proxy_service"),
	}
}

// Forward relays one GraphQL request to the upstream endpoint and returns the
// upstream response untouched. The caller is responsible for closing the
// response body.
//
// Checks run in a fixed order: endpoint configured, body is JSON, body has a
// query. Any upstream HTTP status is a successful relay; only transport
// failures yield an *UpstreamError.
func (s *ProxyService) Forward(ctx context.Context, header http.Header, body io.Reader) (*model.ProxyResponse, error) {
	settings := s.source.Settings()
	if !settings.HasEndpoint() {
		return nil, ErrEndpointNotConfigured
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidJSON, err)
	}

	gqlReq, err := model.ParseGraphQLRequest(raw)
	if err != nil {
		return nil, err
	}

	payload, err := gqlReq.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encode upstream body: %w", err)
	}

	s.logger.Debug("forwarding request",
		"has_authorization", header.Get("Authorization") != "",
		"has_cookie", header.Get("Cookie") != "",
		"has_admin_secret", settings.HasSecret(),
		"bytes", len(payload),
	)

	resp, err := s.client.Post(ctx, settings.EndpointURL, BuildOutboundHeaders(header, settings), payload)
	if err != nil {
		return nil, &UpstreamError{Err: scrub(err, settings.AdminSecret)}
	}
	return resp, nil
}

// Diagnostics reports what is configured without revealing the admin secret
// or the full endpoint.
func (s *ProxyService) Diagnostics() model.Diagnostics {
	settings := s.source.Settings()
	return model.Diagnostics{
		Status:          "ok",
		HasEndpoint:     settings.HasEndpoint(),
		EndpointPreview: endpointPreview(settings.EndpointURL),
		HasSecret:       settings.HasSecret(),
	}
}

// BuildOutboundHeaders derives the upstream header set from the inbound one.
// Only Authorization and Cookie are copied from the client. The admin secret
// comes from settings alone; a client-supplied value is never forwarded.
func BuildOutboundHeaders(inbound http.Header, settings config.GraphQLSettings) http.Header {
	dst := make(http.Header)
	dst.Set("Content-Type", "application/json")
	dst.Set("User-Agent", userAgent)

	for _, key := range []string{"Authorization", "Cookie"} {
		if vals := inbound.Values(key); len(vals) > 0 {
			dst[key] = append([]string(nil), vals...)
		}
	}

	if settings.HasSecret() {
		dst.Set(AdminSecretHeader, settings.AdminSecret)
	}
	return dst
}

// endpointPreview returns the first previewLength characters of endpoint
// followed by an ellipsis, or "NOT SET".
func endpointPreview(endpoint string) string {
	if endpoint == "" {
		return previewNotSet
	}
	runes := []rune(endpoint)
	if len(runes) > previewLength {
		runes = runes[:previewLength]
	}
	return string(runes) + previewEllipsis
}

// scrub removes any occurrence of secret from err's message.
func scrub(err error, secret string) error {
	if secret == "" || !strings.Contains(err.Error(), secret) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "[REDACTED]"), err: err}
}

// redactedError keeps the original chain for errors.Is/As while printing a
// redacted message.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }
