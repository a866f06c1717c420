package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dealbook/internal/ir"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "dealbook", cmd.Use)
	assert.Contains(t, cmd.Long, "audit trail")
	assert.Equal(t, ir.AppVersion, cmd.Version)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{
		{"apply"},
		{"events"},
		{"history"},
		{"view"},
		{"snapshots"},
		{"snapshot", "get"},
		{"snapshot", "create"},
		{"actor", "show"},
		{"actor", "set-label"},
		{"relations"},
		{"test"},
	}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	for _, name := range []string{"db", "config-dir"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Empty(t, flag.DefValue)
	}
}

func TestApplyCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	applyCmd, _, err := cmd.Find([]string{"apply"})
	require.NoError(t, err)

	fileFlag := applyCmd.Flags().Lookup("file")
	require.NotNil(t, fileFlag)
	assert.Equal(t, "f", fileFlag.Shorthand)

	for _, name := range []string{"snapshot", "table", "record", "field", "id-column", "value", "clear"} {
		assert.NotNil(t, applyCmd.Flags().Lookup(name), name)
	}
}

func TestEventsCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	eventsCmd, _, err := cmd.Find([]string{"events"})
	require.NoError(t, err)

	for _, name := range []string{"table", "record", "actor", "since", "until", "limit"} {
		assert.NotNil(t, eventsCmd.Flags().Lookup(name), name)
	}
	assert.Equal(t, "0", eventsCmd.Flags().Lookup("limit").DefValue)
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	assert.NotNil(t, testCmd.Flags().Lookup("update"))
	assert.NotNil(t, testCmd.Flags().Lookup("filter"))
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := runCLI(t, seedDB(t), "--format", "yaml", "actor", "show")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestIsValidFormat(t *testing.T) {
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))
	assert.False(t, isValidFormat("yaml"))
	assert.False(t, isValidFormat(""))
}
