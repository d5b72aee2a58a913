// Package cmd implements the workdigest command line.
//
// Report commands run one batch through the analysis pipeline and print
// the result:
//   - drive-report: summarize and prioritize the files of a Drive folder
//   - email-report: summarize and prioritize recent Gmail messages
//   - transcript-report: extract key points, action items and deadlines
//     from meeting transcripts, optionally pushing action items to Tasks
//
// The remaining commands are calendar (plain language calendar requests),
// meet create, auth (Google authorization), serve (MCP server),
// generate-docs and version.
package cmd
