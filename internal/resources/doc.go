// Package resources exposes read-only MCP resources describing the server:
// the analysis profiles behind the report tools and the effective, non-secret
// configuration.
package resources
