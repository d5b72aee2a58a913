// Package google_tools provides the MCP tools that authorize a Google
// account without leaving the MCP client:
//
//  1. google_get_auth_url returns a consent URL for every scope workdigest
//     uses and remembers the PKCE verifier of the pending flow.
//  2. The user signs in and copies the authorization code.
//  3. google_save_auth_code exchanges the code and stores the token.
//
// Tokens are refreshed automatically afterwards, so this is needed once per
// account.
package google_tools
