// Package model defines shared types for the proxy.
package model

import (
	"io"
	"net/http"
)

// ProxyResponse is the upstream GraphQL response relayed back to the caller.
// Body is opaque; it is never decoded by the proxy.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Diagnostics is the payload of the GET diagnostic endpoint.
// It reports whether an admin secret is configured, never its value.
type Diagnostics struct {
	Status          string `json:"status"`
	HasEndpoint     bool   `json:"hasEndpoint"`
	EndpointPreview string `json:"endpointPreview"`
	HasSecret       bool   `json:"hasSecret"`
}
