// Package app wires configuration, credentials, Google clients, the
// language model and the pipeline into the operations exposed by the CLI
// and the MCP server: Drive, email and transcript reports, the calendar
// assistant and Meet space creation.
package app
