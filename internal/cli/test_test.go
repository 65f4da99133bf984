package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/harness"
)

const repoScenarios = "../../testdata/scenarios"

const lampScenario = `
name: lamp
description: "a pressed button lights its neighbor"
size: {w: 2, h: 1}
place:
  - {at: {x: 0, y: 0}, part: button}
  - {at: {x: 1, y: 0}, part: lamp}
steps:
  - {action: invoke, at: {x: 0, y: 0}, name: press}
cycles: 2
assertions:
  - type: final_state
    at: {x: 1, y: 0}
    expect: {lit: true}
`

const failingScenario = `
name: failing
description: "expects a cargo that never appears"
size: {w: 1, h: 1}
cycles: 1
assertions:
  - type: trace_count
    kind: cargo_spawned
    count: 1
`

func writeScenarios(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

func runTestCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCommand(t, "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := runTestCommand(t, "text", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	out, err := runTestCommand(t, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	out, err := runTestCommand(t, "json", t.TempDir())
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
}

func TestTestCommandRepositoryScenarios(t *testing.T) {
	out, err := runTestCommand(t, "text", repoScenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ blinker")
	assert.Contains(t, out, "✓ button_lamp")
	assert.Contains(t, out, "✓ cargo_belt")
	assert.Contains(t, out, "3 passed, 0 failed, 3 total")
}

func TestTestCommandFailure(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"lamp.yaml":    lampScenario,
		"failing.yaml": failingScenario,
	})

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ lamp")
	assert.Contains(t, out, "✗ failing")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestTestCommandFailureJSON(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"failing.yaml": failingScenario})

	out, err := runTestCommand(t, "json", dir)
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
}

func TestTestCommandFilter(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"lamp.yaml":    lampScenario,
		"failing.yaml": failingScenario,
	})

	out, err := runTestCommand(t, "text", dir, "--filter", "la*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandLoadError(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"broken.yaml": "name: broken\n"})

	out, err := runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandGolden(t *testing.T) {
	dir := writeScenarios(t, map[string]string{"lamp.yaml": lampScenario})
	goldenPath := filepath.Join(dir, "golden", "lamp.golden")

	out, err := runTestCommand(t, "text", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ lamp (golden updated)")

	s, err := harness.LoadScenario(filepath.Join(dir, "lamp.yaml"))
	require.NoError(t, err)
	result, err := harness.Run(s)
	require.NoError(t, err)
	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Equal(t, string(harness.Snapshot("lamp", result)), string(golden))

	_, err = runTestCommand(t, "text", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(goldenPath, []byte("scenario: lamp\n"), 0644))
	out, err = runTestCommand(t, "text", dir)
	require.Error(t, err)
	assert.Contains(t, out, "Golden file mismatch")
}

func TestFindScenarioFiles(t *testing.T) {
	dir := writeScenarios(t, map[string]string{
		"a.yaml":    lampScenario,
		"b.yml":     lampScenario,
		"notes.txt": "skip",
	})

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	_, err = findScenarioFiles(dir, "[")
	assert.Error(t, err)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("s", "golden", "blinker.golden"), goldenFilePath(filepath.Join("s", "blinker.yaml")))
}
