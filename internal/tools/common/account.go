package common

import (
	"fmt"
	"strings"
)

// GetAccountFromArgs returns the "account" argument, or fallback when it is
// missing or blank.
func GetAccountFromArgs(args map[string]any, fallback string) string {
	if account, ok := args["account"].(string); ok && strings.TrimSpace(account) != "" {
		return strings.TrimSpace(account)
	}
	return fallback
}

// StringArg returns a trimmed string argument, or "" when absent.
func StringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return strings.TrimSpace(s)
}

// RequiredStringArg returns a non-empty string argument.
func RequiredStringArg(args map[string]any, name string) (string, error) {
	s := StringArg(args, name)
	if s == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return s, nil
}

// IntArg returns a numeric argument as int, or def when absent. JSON numbers
// arrive as float64.
func IntArg(args map[string]any, name string, def int) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}
