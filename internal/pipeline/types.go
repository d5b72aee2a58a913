package pipeline

// ContentType describes how the text of an item can be obtained.
type ContentType string

const (
	// ContentText is text that is either inline or downloadable as is.
	ContentText ContentType = "text"

	// ContentExportRequired is a native document that must be exported to plain text.
	ContentExportRequired ContentType = "export_required"

	// ContentUnsupported is anything without a usable text rendering.
	ContentUnsupported ContentType = "unsupported"
)

// Media types understood by the extractor.
const (
	MediaTypePlain = "text/plain"
	MediaTypeHTML  = "text/html"
)

// Transfer encodings understood by the extractor.
const (
	EncodingNone      = ""
	EncodingBase64    = "base64"
	EncodingBase64URL = "base64url"
)

// Item is one unit of content to analyze: a Drive file, an email or a transcript.
// Items are created by a Source and are not modified afterwards.
type Item struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Link        string `json:"link,omitempty"`

	// RawContent holds inline content. A nil RawContent on a text item means the
	// content is downloaded through the TextFetcher.
	RawContent  []byte      `json:"-"`
	ContentType ContentType `json:"content_type"`

	// MediaType is MediaTypePlain (default) or MediaTypeHTML.
	MediaType string `json:"media_type,omitempty"`

	// Encoding is the transfer encoding of RawContent.
	Encoding string `json:"encoding,omitempty"`

	// Charset is the declared character set; empty means UTF-8.
	Charset string `json:"charset,omitempty"`

	// Metadata carries source specific attributes (sender, date, ...) into the report.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ExtractedContent is the decoded text of an item.
type ExtractedContent struct {
	ItemID string `json:"item_id"`
	Text   string `json:"text"`
}

// StageResult is the validated output of one stage for one item.
type StageResult struct {
	ItemID    string `json:"item_id"`
	StageName string `json:"stage_name"`
	Output    string `json:"output"`
}

// Report is the consolidated result for a successfully processed item.
type Report struct {
	ItemID      string            `json:"item_id"`
	DisplayName string            `json:"display_name"`
	Link        string            `json:"link,omitempty"`
	Fields      map[string]string `json:"fields"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Failure records why an item did not produce a report.
type Failure struct {
	ItemID string `json:"item_id"`
	Reason Reason `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// Entry is one resolved item of a batch. Exactly one of Report and Failure is set.
type Entry struct {
	Index   int      `json:"index"`
	Report  *Report  `json:"report,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

// ItemID returns the id of the item the entry belongs to.
func (e Entry) ItemID() string {
	if e.Report != nil {
		return e.Report.ItemID
	}
	if e.Failure != nil {
		return e.Failure.ItemID
	}
	return ""
}

// Succeeded reports whether the entry holds a report.
func (e Entry) Succeeded() bool {
	return e.Report != nil
}

// BatchResult is the outcome of one pipeline run.
type BatchResult struct {
	ID      string  `json:"id"`
	Entries []Entry `json:"entries"`
}

// Summary holds aggregate counts of a batch.
type Summary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Len returns the number of resolved items.
func (b *BatchResult) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Entries)
}

// Reports returns the reports in entry order.
func (b *BatchResult) Reports() []Report {
	var reports []Report
	for _, e := range b.Entries {
		if e.Report != nil {
			reports = append(reports, *e.Report)
		}
	}
	return reports
}

// Failures returns the failures in entry order.
func (b *BatchResult) Failures() []Failure {
	var failures []Failure
	for _, e := range b.Entries {
		if e.Failure != nil {
			failures = append(failures, *e.Failure)
		}
	}
	return failures
}

// Summary counts successful and failed entries.
func (b *BatchResult) Summary() Summary {
	s := Summary{Total: b.Len()}
	if b == nil {
		return s
	}
	for _, e := range b.Entries {
		if e.Succeeded() {
			s.Successful++
		} else {
			s.Failed++
		}
	}
	return s
}
