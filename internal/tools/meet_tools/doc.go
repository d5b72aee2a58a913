// Package meet_tools provides the meet_create_space MCP tool, which creates
// a Google Meet space and returns its join link. Transcripts of finished
// meetings are analysed through transcript_report in package report_tools.
package meet_tools
