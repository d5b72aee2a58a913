// Package schedule turns natural language calendar requests into calendar
// operations.
//
// A Router asks the language model to classify a request as "list" or
// "create" and to fill in the event fields as JSON. The parsed request is
// validated and executed against the user's primary calendar. Times are
// interpreted in the request's time zone, America/Chicago by default.
package schedule
