// Package server hosts the long-running parts of workdigest: the shared
// context handed to MCP tool handlers, Kubernetes-style health probes and
// the dedicated Prometheus metrics listener.
//
// ServerContext wraps the wired application (see package app) and cancels
// in-flight tool calls on shutdown. HealthChecker serves /healthz, /readyz
// and /healthz/detailed; readiness flips to 503 once the context is shut
// down. MetricsServer exposes /metrics on its own port so that operational
// data stays off the MCP transport.
//
// HTTPServer carries MCP over streamable HTTP on /mcp. With an OAuthConfig
// it also serves an OAuth 2.1 authorization server backed by Google sign-in
// and only lets allow-listed accounts through to /mcp.
package server
