// Package google manages OAuth2 credentials for the Google Workspace APIs.
//
// A Provider hands out authenticated HTTP clients per account and scope set.
// Tokens are kept by a TokenStore, by default one JSON file per account under
// the user cache directory, together with the scopes they were granted for.
package google
