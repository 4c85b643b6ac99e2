package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootHasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"up", "down", "version", "force"} {
		assert.True(t, names[want], want)
	}
}

func TestForceRejectsBadVersion(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"force", "abc"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid version")
}

func TestResolveDSNPrefersFlag(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env")
	dsnFlag = "postgres://flag"
	t.Cleanup(func() { dsnFlag = "" })

	dsn, err := resolveDSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://flag", dsn)
}

func TestResolveDSNFromEnv(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("DATABASE_URL", "postgres://env")

	dsn, err := resolveDSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://env", dsn)
}
