package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReleaseType(t *testing.T) {
	pre, err := parseReleaseType("prerelease")
	require.NoError(t, err)
	assert.True(t, pre)

	pre, err = parseReleaseType("full")
	require.NoError(t, err)
	assert.False(t, pre)

	_, err = parseReleaseType("beta")
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"release", "build", "changelog", "check", "init", "version", "completion"} {
		assert.Contains(t, names, want)
	}

	f := releaseCmd.Flags().Lookup("type")
	require.NotNil(t, f)
	assert.Equal(t, "prerelease", f.DefValue)
}
