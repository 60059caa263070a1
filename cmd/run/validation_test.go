package run

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOptions(t *testing.T) RunOptions {
	t.Helper()
	return RunOptions{
		URL:      "https://app.example.com",
		Codebase: t.TempDir(),
		Mode:     "full",
	}
}

func TestValidateRunArgs(t *testing.T) {
	options := validOptions(t)
	require.NoError(t, validateRunArgs(&options))
}

func TestValidateRunArgsMissingURL(t *testing.T) {
	options := validOptions(t)
	options.URL = ""
	err := validateRunArgs(&options)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url")
}

func TestValidateRunArgsRelativeURL(t *testing.T) {
	options := validOptions(t)
	options.URL = "app.example.com/dashboard"
	require.Error(t, validateRunArgs(&options))
}

func TestValidateRunArgsUnknownMode(t *testing.T) {
	options := validOptions(t)
	options.Mode = "turbo"
	err := validateRunArgs(&options)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "turbo")
}

func TestValidateRunArgsMissingCodebase(t *testing.T) {
	options := validOptions(t)
	options.Codebase = "/nonexistent/path"
	require.Error(t, validateRunArgs(&options))
}

func TestValidateRunArgsMissingPRD(t *testing.T) {
	options := validOptions(t)
	options.PRD = "/nonexistent/prd.md"
	require.Error(t, validateRunArgs(&options))
}
