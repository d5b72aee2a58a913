// Package tasks wraps the parts of the Google Tasks API (tasks/v1) that
// workdigest needs: finding task lists and adding tasks to them. Transcript
// action items are pushed here by report.TaskSink.
//
// Authentication is handled by the caller, which passes an authorized
// HTTP client (see google.Provider) as a client option:
//
//	httpClient, err := provider.HTTPClient(ctx, account, google.TasksScopes)
//	client, err := tasks.NewClient(ctx, metrics, option.WithHTTPClient(httpClient))
//	task, err := client.CreateTask(ctx, tasks.DefaultList, tasks.TaskInput{Title: "Send the deck"})
package tasks
