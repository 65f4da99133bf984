package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/catalog"
)

const beaconCatalog = `package parts

part: beacon: {
	name:     "Beacon"
	behavior: "lamp"
	traits: ["placeable", "visible", "output"]
	properties: [
		{id: "LIT", kind: "bool", default: true},
	]
}
`

const brokenCatalog = `package parts

part: ghost: {
	behavior: "haunt"
	traits: ["placeable"]
}
`

func writeCatalogDir(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parts.cue"), []byte(content), 0644))
	return dir
}

func runValidateCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestValidateCommandMissingArgs(t *testing.T) {
	_, err := runValidateCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestValidateCommandValid(t *testing.T) {
	out, err := runValidateCommand(t, "text", writeCatalogDir(t, beaconCatalog))
	require.NoError(t, err)
	assert.Equal(t, "✓ All 1 part(s) valid\n", out)
}

func TestValidateCommandValidJSON(t *testing.T) {
	out, err := runValidateCommand(t, "json", writeCatalogDir(t, beaconCatalog))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 1, resp.Data.Parts)
}

func TestValidateCommandInvalid(t *testing.T) {
	out, err := runValidateCommand(t, "text", writeCatalogDir(t, brokenCatalog))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, catalog.ErrUnknownBehavior)
	assert.Contains(t, out, "part.ghost.behavior")
}

func TestValidateCommandInvalidJSON(t *testing.T) {
	out, err := runValidateCommand(t, "json", writeCatalogDir(t, brokenCatalog))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Errors)
	require.NotNil(t, resp.Error)
	assert.Equal(t, catalog.ErrUnknownBehavior, resp.Error.Code)
}

func TestValidateCommandMissingDirectory(t *testing.T) {
	out, err := runValidateCommand(t, "text", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+catalog.ErrCodeNotFound+"]")
}

func TestValidateCommandEmptyDirectory(t *testing.T) {
	out, err := runValidateCommand(t, "json", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, catalog.ErrCodeNoFiles, resp.Error.Code)
}
