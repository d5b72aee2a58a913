package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAccountFromArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]any
		expected string
	}{
		{name: "missing uses fallback", args: map[string]any{}, expected: "default"},
		{name: "explicit account", args: map[string]any{"account": "work"}, expected: "work"},
		{name: "blank uses fallback", args: map[string]any{"account": "  "}, expected: "default"},
		{name: "wrong type uses fallback", args: map[string]any{"account": 3.0}, expected: "default"},
		{name: "nil args", args: nil, expected: "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetAccountFromArgs(tt.args, "default"))
		})
	}
}

func TestArgs(t *testing.T) {
	args := map[string]any{"folder": " abc ", "max": 5.0, "n": 2}

	assert.Equal(t, "abc", StringArg(args, "folder"))
	assert.Equal(t, "", StringArg(args, "missing"))
	assert.Equal(t, 5, IntArg(args, "max", 1))
	assert.Equal(t, 2, IntArg(args, "n", 1))
	assert.Equal(t, 7, IntArg(args, "missing", 7))

	v, err := RequiredStringArg(args, "folder")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)
	_, err = RequiredStringArg(args, "missing")
	assert.EqualError(t, err, "missing is required")
}
