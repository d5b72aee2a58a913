// Package tasks_tools provides tasks_list_tasklists, which shows the Google
// Tasks lists an account can push meeting action items to.
package tasks_tools
