// Package meet provides a client for the Google Meet API v2.
//
// The client creates meeting spaces and reads the transcripts of finished
// conferences. Source exposes the transcripts of one conference record as
// pipeline items; each transcript is rendered as "Speaker: text" lines with
// speakers resolved through the participants API.
//
// Example usage:
//
//	client, err := meet.NewClient(ctx, metrics, option.WithHTTPClient(httpClient))
//	if err != nil {
//	    return err
//	}
//	space, err := client.CreateSpace(ctx, meet.AccessOpen)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(space.MeetingURI)
package meet
