package config

import (
	"os"
	"strings"
)

// DefaultEndpointEnv lists, in priority order, the environment variables
// that may carry the upstream GraphQL endpoint URL.
var DefaultEndpointEnv = []string{
	"HASURA_GRAPHQL_ENDPOINT",
	"HASURA_ENDPOINT",
	"GRAPHQL_ENDPOINT",
	"VITE_HASURA_GRAPHQL_ENDPOINT",
}

// DefaultAdminSecretEnv lists, in priority order, the environment variables
// that may carry the Hasura admin secret.
var DefaultAdminSecretEnv = []string{
	"HASURA_GRAPHQL_ADMIN_SECRET",
	"HASURA_ADMIN_SECRET",
	"VITE_HASURA_ADMIN_SECRET",
}

// GraphQLSettings is the upstream configuration in effect for one request.
type GraphQLSettings struct {
	EndpointURL string
	AdminSecret string
}

// HasEndpoint reports whether an upstream endpoint is configured.
func (s GraphQLSettings) HasEndpoint() bool { return s.EndpointURL != "" }

// HasSecret reports whether an admin secret is configured.
func (s GraphQLSettings) HasSecret() bool { return s.AdminSecret != "" }

// EnvSource resolves GraphQLSettings from the process environment on every
// call, falling back to the static values from the config file and CLI.
// It holds no state between calls.
type EnvSource struct {
	endpointEnv    []string
	adminSecretEnv []string
	static         GraphQLSettings
	lookup         func(string) (string, bool)
}

// NewEnvSource creates an EnvSource from the loaded configuration.
func NewEnvSource(cfg *Config) *EnvSource {
	return newEnvSource(cfg, os.LookupEnv)
}

func newEnvSource(cfg *Config, lookup func(string) (string, bool)) *EnvSource {
	endpointEnv := cfg.GraphQL.EndpointEnv
	if len(endpointEnv) == 0 {
		endpointEnv = DefaultEndpointEnv
	}
	adminSecretEnv := cfg.GraphQL.AdminSecretEnv
	if len(adminSecretEnv) == 0 {
		adminSecretEnv = DefaultAdminSecretEnv
	}
	return &EnvSource{
		endpointEnv:    endpointEnv,
		adminSecretEnv: adminSecretEnv,
		static: GraphQLSettings{
			EndpointURL: strings.TrimSpace(cfg.GraphQL.EndpointURL),
			AdminSecret: strings.TrimSpace(cfg.GraphQL.AdminSecret),
		},
		lookup: lookup,
	}
}

// Settings returns the settings in effect right now.
func (s *EnvSource) Settings() GraphQLSettings {
	return GraphQLSettings{
		EndpointURL: s.first(s.endpointEnv, s.static.EndpointURL),
		AdminSecret: s.first(s.adminSecretEnv, s.static.AdminSecret),
	}
}

// first returns the first non-blank value among names, or fallback.
func (s *EnvSource) first(names []string, fallback string) string {
	for _, name := range names {
		if v, ok := s.lookup(name); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return fallback
}
