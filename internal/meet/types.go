package meet

import "time"

// Transcript represents a Google Meet transcript
type Transcript struct {
	// Name is the resource name of the transcript
	// Format: conferenceRecords/{conferenceRecord}/transcripts/{transcript}
	Name string

	// State is the current state of the transcript (e.g., "FILE_GENERATED")
	State string

	StartTime time.Time
	EndTime   time.Time

	// Document is the Docs file the transcript was written to, if any
	Document string
}

// TranscriptEntry represents a single entry in a transcript
type TranscriptEntry struct {
	// Participant is the resource name of the participant who spoke
	Participant string

	// Text is the transcribed text
	Text string

	// Language is the language of this entry (BCP 47 code)
	Language string

	StartTime time.Time
}

// Space represents a Google Meet space
type Space struct {
	// Name is the resource name of the space
	// Format: spaces/{space}
	Name string

	// MeetingURI is the URI to join the meeting
	MeetingURI string

	// MeetingCode is the meeting code (e.g., "abc-defg-hij")
	MeetingCode string

	// AccessType is OPEN, TRUSTED or RESTRICTED
	AccessType string
}

// Access types accepted by CreateSpace.
const (
	AccessOpen       = "OPEN"
	AccessTrusted    = "TRUSTED"
	AccessRestricted = "RESTRICTED"
)
