// Package gmail reads inbox messages for the email report.
//
// Client wraps the Gmail Users service with metrics and tracing. Source lists
// the latest INBOX messages, optionally narrowed by a Gmail search query, as
// pipeline items built from their headers. Bodies are fetched per item
// through FetchPayload and stay base64url encoded; decoding is left to the
// pipeline extractor.
//
// Example usage:
//
//	client, err := gmail.NewClient(ctx, metrics, option.WithHTTPClient(httpClient))
//	if err != nil {
//	    return err
//	}
//	items, err := gmail.NewSource(client, 20, logger).ListItems(ctx, "from:boss@example.com")
package gmail
