package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "turn", "doctor", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestSetVersion(t *testing.T) {
	SetVersion("1.2.3", "abc", "today")
	assert.Equal(t, "1.2.3", appVersion)
	assert.Equal(t, "abc", appCommit)
	assert.Equal(t, "today", appDate)
}

func TestCheckWritable(t *testing.T) {
	require.NoError(t, checkWritable(t.TempDir()))
	assert.Error(t, checkWritable("/proc/definitely/not/writable"))
}
