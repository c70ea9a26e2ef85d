package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"normalize", "enrich", "score", "export", "run", "stats", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "scoring", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestNormalizeCommand_Flags(t *testing.T) {
	flag := normalizeCmd.Flags().Lookup("input")
	require.NotNil(t, flag, "normalize command should have --input flag")
}

func TestExportCommand_Flags(t *testing.T) {
	flag := exportCmd.Flags().Lookup("output")
	require.NotNil(t, flag, "export command should have --output flag")
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestScoreCommand_FilterFlags(t *testing.T) {
	for _, flagName := range []string{
		"regions", "min-debt", "exclude-bankrupts", "exclude-no-debt",
		"only-with-property", "only-bank-mfo", "only-court-orders",
		"only-active-inn", "min-score",
	} {
		flag := scoreCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "score should have --%s flag", flagName)
	}
}

func TestRunCommand_FilterFlags(t *testing.T) {
	for _, flagName := range []string{"regions", "min-debt", "min-score"} {
		flag := runCmd.Flags().Lookup(flagName)
		assert.NotNil(t, flag, "run should have --%s flag", flagName)
	}
}

func TestFilterFlagDefaults(t *testing.T) {
	flag := scoreCmd.Flags().Lookup("min-debt")
	require.NotNil(t, flag)
	assert.Equal(t, "250000", flag.DefValue)

	flag = scoreCmd.Flags().Lookup("min-score")
	require.NotNil(t, flag)
	assert.Equal(t, "50", flag.DefValue)

	flag = scoreCmd.Flags().Lookup("exclude-bankrupts")
	require.NotNil(t, flag)
	assert.Equal(t, "true", flag.DefValue)
}
