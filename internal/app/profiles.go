package app

import (
	"github.com/teemow/workdigest/internal/pipeline"
	"github.com/teemow/workdigest/internal/report"
)

// Profile names.
const (
	ProfileDrive      = "drive"
	ProfileEmail      = "email"
	ProfileTranscript = "transcript"
)

const newsletterGuidance = "Newsletters, blogs, marketing mail and subscriptions are always Low priority."

// Profile is the stage set and text layout of one kind of report.
type Profile struct {
	Name   string
	Stages []pipeline.Stage
	Layout report.Layout
}

// DriveProfile summarizes documents in 100 words and rates their priority.
func DriveProfile() Profile {
	return Profile{
		Name: ProfileDrive,
		Stages: []pipeline.Stage{
			pipeline.SummaryStage("document", 100),
			pipeline.PriorityStage("document", 20, ""),
		},
		Layout: report.DriveLayout,
	}
}

// EmailProfile summarizes messages in 30 words and rates their priority.
func EmailProfile() Profile {
	return Profile{
		Name: ProfileEmail,
		Stages: []pipeline.Stage{
			pipeline.SummaryStage("email", 30),
			pipeline.PriorityStage("email", 10, newsletterGuidance),
		},
		Layout: report.EmailLayout,
	}
}

// TranscriptProfile extracts key points, action items, deadlines and
// participants from meeting transcripts.
func TranscriptProfile() Profile {
	return Profile{
		Name: ProfileTranscript,
		Stages: []pipeline.Stage{
			pipeline.ListStage(pipeline.StageKeyPoints,
				"List only the most important topics and updates discussed in the meeting transcript.", 5),
			pipeline.ActionItemsStage(5),
			pipeline.ListStage(pipeline.StageDeadlines,
				"List clear, specific deadlines from phrases like \"due\", \"by next week\" or explicit dates. Tie each deadline to a task or event.", 5),
			pipeline.ParticipantsStage(),
		},
		Layout: report.TranscriptLayout,
	}
}

// ProfileByName returns a built-in profile.
func ProfileByName(name string) (Profile, bool) {
	switch name {
	case ProfileDrive:
		return DriveProfile(), true
	case ProfileEmail:
		return EmailProfile(), true
	case ProfileTranscript:
		return TranscriptProfile(), true
	}
	return Profile{}, false
}
