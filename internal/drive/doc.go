// Package drive lists and reads Google Drive files for the report pipeline.
//
// Client wraps the Drive v3 API with metrics and tracing. Source turns the
// files of a folder into pipeline items: Google Docs and Slides are exported
// as plain text, text files are downloaded on demand and everything else is
// reported as unsupported.
//
// Example usage:
//
//	client, err := drive.NewClient(ctx, metrics, option.WithHTTPClient(httpClient))
//	if err != nil {
//	    return err
//	}
//	src := drive.NewSource(client, folderID, llmClient)
//	items, err := src.ListItems(ctx, "quarterly planning")
package drive
