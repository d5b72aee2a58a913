package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/teemow/workdigest/internal/pipeline"
)

// Sink renders a batch result.
type Sink interface {
	Write(w io.Writer, result *pipeline.BatchResult) error
}

// Field maps a report field or metadata key to its label.
type Field struct {
	Key   string
	Label string
}

// Layout controls the labels of the text format.
type Layout struct {
	NameLabel string
	LinkLabel string
	Metadata  []Field
	Fields    []Field
}

// Layouts of the built-in report kinds.
var (
	DriveLayout = Layout{
		NameLabel: "File Name",
		LinkLabel: "File Link",
		Fields: []Field{
			{Key: pipeline.StageSummary, Label: "Document Summary"},
			{Key: pipeline.StagePriority, Label: "Document Priority"},
		},
	}

	EmailLayout = Layout{
		NameLabel: "Subject",
		LinkLabel: "Email Link",
		Metadata: []Field{
			{Key: "sender", Label: "Sender"},
		},
		Fields: []Field{
			{Key: pipeline.StageSummary, Label: "Email Summary"},
			{Key: pipeline.StagePriority, Label: "Email Priority"},
		},
	}

	TranscriptLayout = Layout{
		NameLabel: "Transcript",
		LinkLabel: "Transcript Link",
		Fields: []Field{
			{Key: pipeline.StageParticipants, Label: "Participants"},
			{Key: pipeline.StageKeyPoints, Label: "Key Points"},
			{Key: pipeline.StageActionItems, Label: "Action Items"},
			{Key: pipeline.StageDeadlines, Label: "Deadlines"},
		},
	}
)

// JSONSink writes the result as an indented JSON document.
type JSONSink struct{}

type jsonDocument struct {
	BatchID  string             `json:"batch_id"`
	Summary  pipeline.Summary   `json:"summary"`
	Reports  []pipeline.Report  `json:"reports"`
	Failures []pipeline.Failure `json:"failures"`
}

func (JSONSink) Write(w io.Writer, result *pipeline.BatchResult) error {
	doc := jsonDocument{
		BatchID:  result.ID,
		Summary:  result.Summary(),
		Reports:  result.Reports(),
		Failures: result.Failures(),
	}
	if doc.Reports == nil {
		doc.Reports = []pipeline.Report{}
	}
	if doc.Failures == nil {
		doc.Failures = []pipeline.Failure{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// TextSink writes one labelled block per report followed by the failed
// items.
type TextSink struct {
	Layout Layout
}

func (s TextSink) Write(w io.Writer, result *pipeline.BatchResult) error {
	var b strings.Builder

	for _, r := range result.Reports() {
		writeLine(&b, s.Layout.NameLabel, r.DisplayName)
		if r.Link != "" {
			writeLine(&b, s.Layout.LinkLabel, r.Link)
		}
		for _, f := range s.Layout.Metadata {
			if v := r.Metadata[f.Key]; v != "" {
				writeLine(&b, f.Label, v)
			}
		}
		for _, f := range s.fields(r) {
			writeLine(&b, f.Label, r.Fields[f.Key])
		}
		b.WriteByte('\n')
	}

	if failures := result.Failures(); len(failures) > 0 {
		fmt.Fprintf(&b, "Failed items (%d):\n", len(failures))
		for _, f := range failures {
			fmt.Fprintf(&b, "- %s: %s", f.ItemID, f.Reason)
			if f.Detail != "" {
				fmt.Fprintf(&b, " (%s)", f.Detail)
			}
			b.WriteByte('\n')
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// fields returns the layout fields present in r, followed by any other
// field in name order.
func (s TextSink) fields(r pipeline.Report) []Field {
	known := make(map[string]bool, len(s.Layout.Fields))
	var out []Field
	for _, f := range s.Layout.Fields {
		known[f.Key] = true
		if _, ok := r.Fields[f.Key]; ok {
			out = append(out, f)
		}
	}

	var extra []string
	for k := range r.Fields {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	slices.Sort(extra)
	for _, k := range extra {
		out = append(out, Field{Key: k, Label: labelOf(k)})
	}
	return out
}

func writeLine(b *strings.Builder, label, value string) {
	if label == "" {
		return
	}
	if strings.Contains(value, "\n") {
		fmt.Fprintf(b, "%s:\n%s\n", label, value)
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

// labelOf turns a stage name like "key_points" into "Key Points".
func labelOf(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

// WriteFile renders result into path. The file is replaced atomically.
func WriteFile(path string, sink Sink, result *pipeline.BatchResult) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := sink.Write(tmp, result); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// SinkFor returns the sink for a format name ("text" or "json").
func SinkFor(format string, layout Layout) (Sink, error) {
	switch strings.ToLower(format) {
	case "", "text", "txt":
		return TextSink{Layout: layout}, nil
	case "json":
		return JSONSink{}, nil
	}
	return nil, fmt.Errorf("unknown report format %q (want text or json)", format)
}
