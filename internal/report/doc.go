// Package report writes batch results.
//
// A Sink renders a pipeline.BatchResult to a writer: JSONSink produces an
// indented document with summary counts, TextSink the plain-text download
// format whose labels depend on the kind of report (see Layout). TaskSink
// is not a writer; it pushes transcript action items to Google Tasks.
package report
