// Package report_tools exposes the batch report runs as MCP tools:
// drive_report, email_report and transcript_report. Each tool runs the
// pipeline and returns the rendered report, as text or JSON.
package report_tools
