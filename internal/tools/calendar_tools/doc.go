// Package calendar_tools exposes natural language calendar requests as the
// calendar_request MCP tool. The request is interpreted by the language
// model and then listed from or added to the configured calendar.
package calendar_tools
