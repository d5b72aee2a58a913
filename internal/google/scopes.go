package google

import (
	"slices"

	calendar "google.golang.org/api/calendar/v3"
	drive "google.golang.org/api/drive/v3"
	gmail "google.golang.org/api/gmail/v1"
	tasks "google.golang.org/api/tasks/v1"
)

// Meet API scopes. The generated meet/v2 package does not export them.
const (
	MeetSpaceCreatedScope  = "https://www.googleapis.com/auth/meetings.space.created"
	MeetSpaceReadonlyScope = "https://www.googleapis.com/auth/meetings.space.readonly"
)

// Scope sets requested by the individual commands. A token is only reused
// for a command when it was granted every scope of the set.
var (
	DriveScopes    = []string{drive.DriveReadonlyScope}
	GmailScopes    = []string{gmail.GmailReadonlyScope}
	CalendarScopes = []string{calendar.CalendarScope}
	MeetScopes     = []string{MeetSpaceCreatedScope, MeetSpaceReadonlyScope}
	TasksScopes    = []string{tasks.TasksScope}
)

// AllScopes returns the union of all scope sets in a stable order.
func AllScopes() []string {
	return MergeScopes(DriveScopes, GmailScopes, CalendarScopes, MeetScopes, TasksScopes)
}

// MergeScopes returns the distinct scopes of all sets, sorted.
func MergeScopes(sets ...[]string) []string {
	var all []string
	for _, set := range sets {
		for _, s := range set {
			if !slices.Contains(all, s) {
				all = append(all, s)
			}
		}
	}
	slices.Sort(all)
	return all
}

// covers reports whether granted includes every scope in wanted.
func covers(granted, wanted []string) bool {
	for _, s := range wanted {
		if !slices.Contains(granted, s) {
			return false
		}
	}
	return true
}
