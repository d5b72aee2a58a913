// Package calendar lists and creates Google Calendar events for the
// calendar assistant.
//
// Example usage:
//
//	client, err := calendar.NewClient(ctx, metrics, option.WithHTTPClient(httpClient))
//	if err != nil {
//	    return err
//	}
//	events, err := client.ListEvents(ctx, "primary", time.Now(), time.Now().AddDate(0, 0, 7), 10)
package calendar
